package repository

import (
	"context"
	"testing"

	"github.com/skymirror/skymirror"
)

func seedLabel(t *testing.T, repo *IndexRepository, label skymirror.Label) {
	t.Helper()
	if err := repo.InsertLabel(context.Background(), label); err != nil {
		t.Fatalf("inserting label: %v", err)
	}
}

func TestQueryLabelsReturnsActiveAssertions(t *testing.T) {
	repo := newTestRepository(t, testConfig())
	subject := "at://did:plc:a/app.example.post/1"

	seedLabel(t, repo, skymirror.Label{
		Src: "did:plc:mod", URI: subject, CID: "bafy1", Val: "spam",
		Cts: "2026-01-01T00:00:00Z",
	})

	labels, err := repo.QueryLabels(context.Background(), []string{subject}, nil)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(labels) != 1 || labels[0].Val != "spam" {
		t.Fatalf("unexpected labels: %+v", labels)
	}
}

func TestQueryLabelsEmptySubjects(t *testing.T) {
	repo := newTestRepository(t, testConfig())

	labels, err := repo.QueryLabels(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(labels) != 0 {
		t.Fatalf("expected empty result, got %+v", labels)
	}
}

func TestQueryLabelsNegationCancels(t *testing.T) {
	repo := newTestRepository(t, testConfig())
	subject := "at://did:plc:a/app.example.post/1"

	seedLabel(t, repo, skymirror.Label{
		Src: "did:plc:mod", URI: subject, CID: "bafy1", Val: "spam",
		Cts: "2026-01-01T00:00:00Z",
	})
	seedLabel(t, repo, skymirror.Label{
		Src: "did:plc:mod", URI: subject, CID: "bafy2", Val: "spam", Neg: true,
		Cts: "2026-01-02T00:00:00Z",
	})

	labels, err := repo.QueryLabels(context.Background(), []string{subject}, nil)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(labels) != 0 {
		t.Fatalf("expected negated label hidden, got %+v", labels)
	}
}

func TestInsertLabelStaleUpdateIgnored(t *testing.T) {
	repo := newTestRepository(t, testConfig())
	subject := "at://did:plc:a/app.example.post/1"

	seedLabel(t, repo, skymirror.Label{
		Src: "did:plc:mod", URI: subject, CID: "bafy1", Val: "spam",
		Cts: "2026-01-02T00:00:00Z",
	})
	// Replay of an older assertion for the same identity.
	seedLabel(t, repo, skymirror.Label{
		Src: "did:plc:mod", URI: subject, CID: "bafy1", Val: "spam", Neg: true,
		Cts: "2026-01-01T00:00:00Z",
	})

	labels, err := repo.QueryLabels(context.Background(), []string{subject}, nil)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(labels) != 1 || labels[0].Neg {
		t.Fatalf("expected newer positive assertion to survive, got %+v", labels)
	}
}

func TestQueryLabelsFiltersByIssuer(t *testing.T) {
	repo := newTestRepository(t, testConfig())
	subject := "at://did:plc:a/app.example.post/1"

	seedLabel(t, repo, skymirror.Label{
		Src: "did:plc:mod1", URI: subject, CID: "bafy1", Val: "spam",
		Cts: "2026-01-01T00:00:00Z",
	})
	seedLabel(t, repo, skymirror.Label{
		Src: "did:plc:mod2", URI: subject, CID: "bafy1", Val: "rude",
		Cts: "2026-01-01T00:00:00Z",
	})

	labels, err := repo.QueryLabels(context.Background(), []string{subject}, []string{"did:plc:mod2"})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(labels) != 1 || labels[0].Src != "did:plc:mod2" {
		t.Fatalf("unexpected labels: %+v", labels)
	}
}

func TestQueryLabelsExpired(t *testing.T) {
	repo := newTestRepository(t, testConfig())
	subject := "at://did:plc:a/app.example.post/1"

	past := "2020-01-01T00:00:00Z"
	seedLabel(t, repo, skymirror.Label{
		Src: "did:plc:mod", URI: subject, CID: "bafy1", Val: "temp",
		Cts: "2019-12-01T00:00:00Z", Exp: &past,
	})

	labels, err := repo.QueryLabels(context.Background(), []string{subject}, nil)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(labels) != 0 {
		t.Fatalf("expected expired label hidden, got %+v", labels)
	}
}

func TestClearLabels(t *testing.T) {
	repo := newTestRepository(t, testConfig())
	subject := "at://did:plc:a/app.example.post/1"

	seedLabel(t, repo, skymirror.Label{
		Src: "did:plc:mod", URI: subject, CID: "bafy1", Val: "spam",
		Cts: "2026-01-01T00:00:00Z",
	})
	if err := repo.ClearLabels(context.Background()); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	labels, err := repo.QueryLabels(context.Background(), []string{subject}, nil)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(labels) != 0 {
		t.Fatalf("expected no labels after clear, got %+v", labels)
	}
}
