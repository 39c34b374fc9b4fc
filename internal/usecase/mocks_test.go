package usecase

import (
	"context"
	"errors"

	"github.com/skymirror/skymirror"
	"github.com/skymirror/skymirror/internal/domain"
)

type mockIndex struct {
	records map[string]domain.RawRecord
	actors  map[string]domain.Actor
	labels  []skymirror.Label

	deleted []string
	cleared int

	insertErr error
	labelErr  error
}

func newMockIndex() *mockIndex {
	return &mockIndex{
		records: make(map[string]domain.RawRecord),
		actors:  make(map[string]domain.Actor),
	}
}

func (m *mockIndex) GetRecords(ctx context.Context, collection string, opts skymirror.QueryOptions) (domain.RecordPage, error) {
	return domain.RecordPage{}, nil
}

func (m *mockIndex) CountRecords(ctx context.Context, collection string, opts skymirror.QueryOptions) (int64, error) {
	return int64(len(m.records)), nil
}

func (m *mockIndex) GetRecord(ctx context.Context, uri string) (domain.Record, error) {
	raw, ok := m.records[uri]
	if !ok {
		return domain.Record{}, domain.NotFoundError{Resource: "record"}
	}
	return domain.Record{URI: raw.URI, CID: raw.CID, DID: raw.DID, Collection: raw.Collection}, nil
}

func (m *mockIndex) InsertRecord(ctx context.Context, raw domain.RawRecord) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.records[raw.URI] = raw
	return nil
}

func (m *mockIndex) UpdateRecord(ctx context.Context, raw domain.RawRecord) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.records[raw.URI] = raw
	return nil
}

func (m *mockIndex) DeleteRecord(ctx context.Context, uri string) error {
	delete(m.records, uri)
	m.deleted = append(m.deleted, uri)
	return nil
}

func (m *mockIndex) InsertActor(ctx context.Context, actor domain.Actor) error {
	m.actors[actor.DID] = actor
	return nil
}

func (m *mockIndex) GetActor(ctx context.Context, did string) (domain.Actor, error) {
	actor, ok := m.actors[did]
	if !ok {
		return domain.Actor{}, domain.NotFoundError{Resource: "actor"}
	}
	return actor, nil
}

func (m *mockIndex) GetActorByHandle(ctx context.Context, handle string) (domain.Actor, error) {
	for _, actor := range m.actors {
		if actor.Handle == handle {
			return actor, nil
		}
	}
	return domain.Actor{}, domain.NotFoundError{Resource: "actor"}
}

func (m *mockIndex) SearchActors(ctx context.Context, query string) ([]domain.Actor, error) {
	return nil, nil
}

func (m *mockIndex) UpdateActorSeen(ctx context.Context, did string, lastSeenNotifs string) error {
	return nil
}

func (m *mockIndex) GetMentioningURIs(ctx context.Context, did string) ([]string, error) {
	return nil, nil
}

func (m *mockIndex) InsertLabel(ctx context.Context, label skymirror.Label) error {
	if m.labelErr != nil {
		return m.labelErr
	}
	m.labels = append(m.labels, label)
	return nil
}

func (m *mockIndex) QueryLabels(ctx context.Context, subjects []string, issuers []string) ([]skymirror.Label, error) {
	return m.labels, nil
}

func (m *mockIndex) ClearLabels(ctx context.Context) error {
	m.cleared++
	m.labels = nil
	return nil
}

type mockSignal struct {
	notified   [][]string
	broadcasts int
}

func (m *mockSignal) NotifyMentioned(ctx context.Context, dids []string) error {
	m.notified = append(m.notified, dids)
	return nil
}

func (m *mockSignal) Broadcast(ctx context.Context) error {
	m.broadcasts++
	return nil
}

type mockLeadership struct {
	primary bool
}

func (m *mockLeadership) IsPrimary() bool { return m.primary }

type mockValidator struct {
	rejected map[string]bool
}

func (m *mockValidator) ValidateRecord(collection string, value map[string]any) error {
	if m.rejected[collection] {
		return errors.New("schema violation")
	}
	return nil
}

type mockATPClient struct {
	identities map[string]domain.Identity
	records    map[string][]domain.RemoteRecord
	repos      map[string][]string

	listErr error
}

func (m *mockATPClient) ResolveIdentity(ctx context.Context, did string) (domain.Identity, error) {
	identity, ok := m.identities[did]
	if !ok {
		return domain.Identity{}, errors.New("unknown did")
	}
	return identity, nil
}

func (m *mockATPClient) ListRecords(ctx context.Context, pds, repo, collection string) ([]domain.RemoteRecord, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.records[repo+"/"+collection], nil
}

func (m *mockATPClient) GetRecord(ctx context.Context, pds, repo, collection, rkey string) (domain.RemoteRecord, error) {
	uri := "at://" + repo + "/" + collection + "/" + rkey
	for _, recs := range m.records {
		for _, rec := range recs {
			if rec.URI == uri {
				return rec, nil
			}
		}
	}
	return domain.RemoteRecord{}, errors.New("record not found")
}

func (m *mockATPClient) ListReposByCollection(ctx context.Context, collection string) ([]string, error) {
	return m.repos[collection], nil
}
