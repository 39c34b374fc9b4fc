package repository

import (
	"strings"

	"github.com/skymirror/skymirror"
)

// buildOrder lowers the requested sort into an ORDER BY clause. Fields
// resolve to direct columns or JSON paths (no kv aliases here), and a
// trailing tie-break on cid, in the last field's direction, makes the
// order strictly total. The cursor protocol depends on that.
func buildOrder(orderBy []skymirror.OrderBy) string {
	if len(orderBy) == 0 {
		return ""
	}

	parts := make([]string, 0, len(orderBy)+1)
	for _, ob := range orderBy {
		dir := ob.Direction
		if dir == "" {
			dir = skymirror.Asc
		}
		if isTableColumn(ob.Field) {
			parts = append(parts, ob.Field+" "+string(dir))
		} else {
			parts = append(parts, jsonExtract(ob.Field)+" "+string(dir))
		}
	}

	lastDir := orderBy[len(orderBy)-1].Direction
	if lastDir == "" {
		lastDir = skymirror.Asc
	}
	parts = append(parts, "cid "+string(lastDir))

	return " ORDER BY " + strings.Join(parts, ", ")
}
