package repository

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/skymirror/skymirror"
	"github.com/skymirror/skymirror/internal/infra/database/models"
)

const cursorDelimiter = "|"

// generateCursor encodes "resume after this row" as the row's sort-key
// values in order-by order plus its cid, delimiter-joined and base64
// encoded. Callers must treat the token as opaque.
func generateCursor(last models.Record, orderBy []skymirror.OrderBy) string {
	parts := make([]string, 0, len(orderBy)+1)

	for _, ob := range orderBy {
		switch ob.Field {
		case "uri":
			parts = append(parts, last.URI)
		case "cid":
			parts = append(parts, last.CID)
		case "did":
			parts = append(parts, last.DID)
		case "indexedAt":
			parts = append(parts, last.IndexedAt)
		default:
			parts = append(parts, jsonPathValue(last.JSON, ob.Field))
		}
	}

	parts = append(parts, last.CID)

	return base64.StdEncoding.EncodeToString([]byte(strings.Join(parts, cursorDelimiter)))
}

// jsonPathValue walks a dotted path through the parsed payload and
// stringifies whatever it finds, mirroring the sort expression's
// JSON_EXTRACT result.
func jsonPathValue(raw string, field string) string {
	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return ""
	}
	value := parsed
	for _, key := range strings.Split(field, ".") {
		obj, ok := value.(map[string]any)
		if !ok {
			return ""
		}
		value = obj[key]
		if value == nil {
			return ""
		}
	}
	switch v := value.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	case bool:
		if v {
			return "1"
		}
		return "0"
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

// buildCursorCondition decodes a cursor into the seek condition
// "strictly after this row" under the given sort: a disjunction where
// clause i holds fields 0..i-1 equal and field i strictly past the
// cursor value, with a final clause on the cid tie-break. An error
// means the token does not fit the current sort spec; callers degrade
// to unpaginated rather than failing the query.
func buildCursorCondition(cursor string, orderBy []skymirror.OrderBy, params *[]any) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return "", fmt.Errorf("undecodable cursor: %w", err)
	}
	parts := strings.Split(string(decoded), cursorDelimiter)
	if len(parts)-1 != len(orderBy) {
		return "", fmt.Errorf("cursor has %d components, sort has %d fields", len(parts), len(orderBy))
	}
	cursorCID := parts[len(parts)-1]

	sortExpr := func(field string) string {
		if isTableColumn(field) {
			return field
		}
		return jsonExtract(field)
	}
	comparator := func(dir skymirror.Direction) string {
		if dir == skymirror.Desc {
			return "<"
		}
		return ">"
	}

	clauses := make([]string, 0, len(orderBy)+1)

	for i, ob := range orderBy {
		var sb strings.Builder
		if i > 0 {
			sb.WriteString("(")
			for j := 0; j < i; j++ {
				if j > 0 {
					sb.WriteString(" AND ")
				}
				sb.WriteString(sortExpr(orderBy[j].Field) + " = ?")
				*params = append(*params, parts[j])
			}
			sb.WriteString(" AND ")
			sb.WriteString(sortExpr(ob.Field) + " " + comparator(ob.Direction) + " ?")
			*params = append(*params, parts[i])
			sb.WriteString(")")
		} else {
			sb.WriteString(sortExpr(ob.Field) + " " + comparator(ob.Direction) + " ?")
			*params = append(*params, parts[i])
		}
		clauses = append(clauses, sb.String())
	}

	var final strings.Builder
	final.WriteString("(")
	for i, ob := range orderBy {
		if i > 0 {
			final.WriteString(" AND ")
		}
		final.WriteString(sortExpr(ob.Field) + " = ?")
		*params = append(*params, parts[i])
	}
	lastDir := orderBy[len(orderBy)-1].Direction
	final.WriteString(" AND cid " + comparator(lastDir) + " ?")
	*params = append(*params, cursorCID)
	final.WriteString(")")
	clauses = append(clauses, final.String())

	return "(" + strings.Join(clauses, " OR ") + ")", nil
}
