package repository

import (
	"fmt"

	"github.com/skymirror/skymirror"
)

// buildJoins wires one LEFT JOIN against record_kv per configured
// indexed key, aliased kv0, kv1, … in key order, and appends the inner
// facet join last when a facet filter is present. The bound key names
// go onto params in alias order so placeholder positions stay aligned.
// No filtering happens here.
func buildJoins(indexedKeys []string, params *[]any, facet *skymirror.FacetFilter) (string, map[string]string) {
	aliases := make(map[string]string, len(indexedKeys))
	joins := ""

	for i, key := range indexedKeys {
		alias := fmt.Sprintf("kv%d", i)
		aliases[key] = alias
		joins += fmt.Sprintf(" LEFT JOIN record_kv AS %s ON %s.uri = record.uri AND %s.key = ?", alias, alias, alias)
		*params = append(*params, key)
	}

	if facet != nil {
		joins += " JOIN facet_index ON record.uri = facet_index.uri"
	}

	return joins, aliases
}
