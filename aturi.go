package skymirror

import (
	"fmt"
	"regexp"
	"strings"
)

var didPattern = regexp.MustCompile(`did:[a-z0-9]+:[a-zA-Z0-9._:%-]*[a-zA-Z0-9._-]`)

// ComposeATURI builds the canonical at:// URI for a record.
func ComposeATURI(did, collection, rkey string) string {
	return "at://" + did + "/" + collection + "/" + rkey
}

// ParseATURI splits an at:// URI into its did, collection and rkey parts.
func ParseATURI(uri string) (did, collection, rkey string, err error) {
	rest, ok := strings.CutPrefix(uri, "at://")
	if !ok {
		return "", "", "", fmt.Errorf("unsupported uri scheme: %s", uri)
	}
	parts := strings.SplitN(rest, "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", fmt.Errorf("invalid at uri: %s", uri)
	}
	return parts[0], parts[1], parts[2], nil
}

func IsDID(s string) bool {
	return strings.HasPrefix(s, "did:") && didPattern.MatchString(s)
}

// MentionedDIDs returns the distinct DIDs appearing anywhere in the
// serialized payload, excluding the author itself.
func MentionedDIDs(json string, author string) []string {
	matches := didPattern.FindAllString(json, -1)
	seen := make(map[string]struct{}, len(matches))
	dids := make([]string, 0, len(matches))
	for _, m := range matches {
		if m == author {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		dids = append(dids, m)
	}
	return dids
}
