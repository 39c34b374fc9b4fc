package skymirror

import (
	"encoding/json"
	"testing"
)

func TestWhereClauseUnmarshalObject(t *testing.T) {
	var w WhereClause
	if err := json.Unmarshal([]byte(`{"field":"status","equals":"open"}`), &w); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(w) != 1 {
		t.Fatalf("expected 1 condition, got %d", len(w))
	}
	if w[0].Field != "status" || w[0].Equals != "open" {
		t.Fatalf("unexpected condition: %+v", w[0])
	}
}

func TestWhereClauseUnmarshalArray(t *testing.T) {
	var w WhereClause
	raw := `[{"field":"status","equals":"open"},{"field":"title","contains":"go"}]`
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(w) != 2 {
		t.Fatalf("expected 2 conditions, got %d", len(w))
	}
	if w[1].Contains == nil || *w[1].Contains != "go" {
		t.Fatalf("unexpected contains: %+v", w[1])
	}
}

func TestWhereClauseUnmarshalNested(t *testing.T) {
	var w WhereClause
	raw := `{"OR":[{"field":"a","equals":1},{"NOT":{"field":"b","in":["x","y"]}}]}`
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(w) != 1 || w[0].IsLeaf() {
		t.Fatalf("expected one combinator node, got %+v", w)
	}
	or := w[0].OR
	if len(or) != 2 || or[1].NOT == nil {
		t.Fatalf("unexpected tree: %+v", w[0])
	}
	if len(or[1].NOT.In) != 2 {
		t.Fatalf("unexpected in list: %+v", or[1].NOT.In)
	}
}

func TestConditionIsLeaf(t *testing.T) {
	if !(Condition{Field: "x", Equals: 1}).IsLeaf() {
		t.Fatalf("field predicate should be a leaf")
	}
	if (Condition{AND: []Condition{{Field: "x"}}}).IsLeaf() {
		t.Fatalf("AND node should not be a leaf")
	}
}

func TestDefaultOrder(t *testing.T) {
	order := DefaultOrder()
	if len(order) != 1 || order[0].Field != "indexedAt" || order[0].Direction != Asc {
		t.Fatalf("unexpected default order: %+v", order)
	}
}
