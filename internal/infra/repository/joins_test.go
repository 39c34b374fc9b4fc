package repository

import (
	"reflect"
	"testing"

	"github.com/skymirror/skymirror"
)

func TestBuildJoinsAliasesInKeyOrder(t *testing.T) {
	var params []any
	joins, aliases := buildJoins([]string{"status", "priority"}, &params, nil)

	want := " LEFT JOIN record_kv AS kv0 ON kv0.uri = record.uri AND kv0.key = ?" +
		" LEFT JOIN record_kv AS kv1 ON kv1.uri = record.uri AND kv1.key = ?"
	if joins != want {
		t.Fatalf("got %q\nwant %q", joins, want)
	}
	if !reflect.DeepEqual(params, []any{"status", "priority"}) {
		t.Fatalf("got params %v", params)
	}
	if aliases["status"] != "kv0" || aliases["priority"] != "kv1" {
		t.Fatalf("got aliases %v", aliases)
	}
}

func TestBuildJoinsEmpty(t *testing.T) {
	var params []any
	joins, aliases := buildJoins(nil, &params, nil)
	if joins != "" {
		t.Fatalf("expected no joins, got %q", joins)
	}
	if len(aliases) != 0 || len(params) != 0 {
		t.Fatalf("expected empty aliases and params")
	}
}

func TestBuildJoinsFacetComesLast(t *testing.T) {
	var params []any
	facet := &skymirror.FacetFilter{Type: FacetTag, Value: "golang"}
	joins, _ := buildJoins([]string{"status"}, &params, facet)

	want := " LEFT JOIN record_kv AS kv0 ON kv0.uri = record.uri AND kv0.key = ?" +
		" JOIN facet_index ON record.uri = facet_index.uri"
	if joins != want {
		t.Fatalf("got %q\nwant %q", joins, want)
	}
	// The facet predicate itself binds in the WHERE clause, not here.
	if !reflect.DeepEqual(params, []any{"status"}) {
		t.Fatalf("got params %v", params)
	}
}
