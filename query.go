package skymirror

import "encoding/json"

// Condition is one node of a query filter tree: exactly one of the
// boolean branches or a leaf {Field, Equals|Contains|In}.
type Condition struct {
	AND []Condition `json:"AND,omitempty"`
	OR  []Condition `json:"OR,omitempty"`
	NOT *Condition  `json:"NOT,omitempty"`

	Field    string  `json:"field,omitempty"`
	Equals   any     `json:"equals,omitempty"`
	Contains *string `json:"contains,omitempty"`
	In       []any   `json:"in,omitempty"`
}

// IsLeaf reports whether the node is a field predicate rather than a
// boolean combinator.
func (c Condition) IsLeaf() bool {
	return len(c.AND) == 0 && len(c.OR) == 0 && c.NOT == nil
}

// WhereClause accepts either a single condition object or an array of
// conditions (implicit AND) on the wire.
type WhereClause []Condition

func (w *WhereClause) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		var conds []Condition
		if err := json.Unmarshal(data, &conds); err != nil {
			return err
		}
		*w = conds
		return nil
	}
	var cond Condition
	if err := json.Unmarshal(data, &cond); err != nil {
		return err
	}
	*w = WhereClause{cond}
	return nil
}

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// OrderBy is one requested sort field. Direction defaults to ascending.
type OrderBy struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction,omitempty"`
}

// FacetFilter restricts results to records carrying the given facet.
type FacetFilter struct {
	Type  string `json:"type"` // "mention" or "tag"
	Value string `json:"value"`
}

// QueryOptions is the caller-facing query shape. Cursor is opaque.
type QueryOptions struct {
	Where   WhereClause  `json:"where,omitempty"`
	OrderBy []OrderBy    `json:"orderBy,omitempty"`
	Facet   *FacetFilter `json:"facet,omitempty"`
	Limit   int          `json:"limit,omitempty"`
	Cursor  string       `json:"cursor,omitempty"`
}

// DefaultOrder is applied when the caller requests no ordering.
func DefaultOrder() []OrderBy {
	return []OrderBy{{Field: "indexedAt", Direction: Asc}}
}
