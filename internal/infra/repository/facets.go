package repository

import (
	"strings"

	"github.com/skymirror/skymirror/internal/infra/database/models"
)

const (
	FacetMention = "mention"
	FacetTag     = "tag"
)

const (
	mentionFeatureType = "app.bsky.richtext.facet#mention"
	tagFeatureType     = "app.bsky.richtext.facet#tag"
)

// extractFacets projects the rich-text annotations out of a decoded
// payload into facet rows. Tags are lowercased so lookups are
// case-insensitive; mentions keep the DID verbatim.
func extractFacets(uri string, payload map[string]any) []models.FacetIndex {
	raw, ok := payload["facets"].([]any)
	if !ok {
		return nil
	}

	seen := make(map[string]struct{})
	var entries []models.FacetIndex

	add := func(typ, value string) {
		if value == "" {
			return
		}
		dedup := typ + "\x00" + value
		if _, ok := seen[dedup]; ok {
			return
		}
		seen[dedup] = struct{}{}
		entries = append(entries, models.FacetIndex{URI: uri, Type: typ, Value: value})
	}

	for _, f := range raw {
		facet, ok := f.(map[string]any)
		if !ok {
			continue
		}
		features, ok := facet["features"].([]any)
		if !ok {
			continue
		}
		for _, ft := range features {
			feature, ok := ft.(map[string]any)
			if !ok {
				continue
			}
			switch feature["$type"] {
			case mentionFeatureType:
				did, _ := feature["did"].(string)
				add(FacetMention, did)
			case tagFeatureType:
				tag, _ := feature["tag"].(string)
				add(FacetTag, strings.ToLower(tag))
			}
		}
	}

	return entries
}
