package repository

import (
	"strings"

	"github.com/skymirror/skymirror"
	"github.com/skymirror/skymirror/internal/domain"
)

// tableColumns are the fields answerable without touching the payload.
var tableColumns = []string{"did", "uri", "indexedAt", "cid"}

func isTableColumn(field string) bool {
	for _, col := range tableColumns {
		if col == field {
			return true
		}
	}
	return false
}

// whereCompiler lowers a filter tree into a parameterized boolean
// expression. It is a pure function of (tree, alias map); malformed
// leaves are caller bugs and come back as ConditionError.
type whereCompiler struct {
	indexedKeys map[string]struct{}
	kvAliases   map[string]string
}

func newWhereCompiler(indexedKeys []string, kvAliases map[string]string) *whereCompiler {
	keySet := make(map[string]struct{}, len(indexedKeys))
	for _, k := range indexedKeys {
		keySet[k] = struct{}{}
	}
	return &whereCompiler{indexedKeys: keySet, kvAliases: kvAliases}
}

// compileAll joins sibling conditions with AND, adding no parentheses
// beyond what the children supply.
func (w *whereCompiler) compileAll(conds []skymirror.Condition, params *[]any) (string, error) {
	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		part, err := w.compile(c, params)
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " AND "), nil
}

func (w *whereCompiler) compile(cond skymirror.Condition, params *[]any) (string, error) {
	switch {
	case len(cond.AND) > 0:
		parts := make([]string, 0, len(cond.AND))
		for _, c := range cond.AND {
			part, err := w.compile(c, params)
			if err != nil {
				return "", err
			}
			parts = append(parts, "("+part+")")
		}
		return strings.Join(parts, " AND "), nil
	case len(cond.OR) > 0:
		parts := make([]string, 0, len(cond.OR))
		for _, c := range cond.OR {
			part, err := w.compile(c, params)
			if err != nil {
				return "", err
			}
			parts = append(parts, "("+part+")")
		}
		return strings.Join(parts, " OR "), nil
	case cond.NOT != nil:
		part, err := w.compile(*cond.NOT, params)
		if err != nil {
			return "", err
		}
		return "NOT (" + part + ")", nil
	}

	if cond.Field == "" {
		return "", domain.ConditionError{Reason: "missing field"}
	}
	expr := w.columnExpression(cond.Field)

	switch {
	case cond.Equals != nil:
		*params = append(*params, cond.Equals)
		return expr + " = ?", nil
	case len(cond.In) > 0:
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cond.In)), ", ")
		*params = append(*params, cond.In...)
		return expr + " IN (" + placeholders + ")", nil
	case cond.Contains != nil:
		*params = append(*params, "%"+*cond.Contains+"%")
		return expr + " LIKE ?", nil
	}
	return "", domain.ConditionError{Reason: "unsupported operator for field " + cond.Field}
}

// columnExpression resolves a field by priority: direct column, then
// kv alias, then JSON path into the raw payload.
func (w *whereCompiler) columnExpression(field string) string {
	if isTableColumn(field) {
		return "record." + field
	}
	if _, ok := w.indexedKeys[field]; ok {
		if alias, ok := w.kvAliases[field]; ok {
			return alias + ".value"
		}
	}
	return jsonExtract(field)
}

func jsonExtract(field string) string {
	return "JSON_EXTRACT(json, '$." + field + "')"
}
