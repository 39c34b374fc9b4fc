package usecase

import (
	"context"

	"github.com/skymirror/skymirror"
	"github.com/skymirror/skymirror/internal/domain"
)

// Index defines storage operations over the record index.
type Index interface {
	GetRecords(ctx context.Context, collection string, opts skymirror.QueryOptions) (domain.RecordPage, error)
	CountRecords(ctx context.Context, collection string, opts skymirror.QueryOptions) (int64, error)
	GetRecord(ctx context.Context, uri string) (domain.Record, error)
	InsertRecord(ctx context.Context, raw domain.RawRecord) error
	UpdateRecord(ctx context.Context, raw domain.RawRecord) error
	DeleteRecord(ctx context.Context, uri string) error

	InsertActor(ctx context.Context, actor domain.Actor) error
	GetActor(ctx context.Context, did string) (domain.Actor, error)
	GetActorByHandle(ctx context.Context, handle string) (domain.Actor, error)
	SearchActors(ctx context.Context, query string) ([]domain.Actor, error)
	UpdateActorSeen(ctx context.Context, did string, lastSeenNotifs string) error
	GetMentioningURIs(ctx context.Context, did string) ([]string, error)

	InsertLabel(ctx context.Context, label skymirror.Label) error
	QueryLabels(ctx context.Context, subjects []string, issuers []string) ([]skymirror.Label, error)
	ClearLabels(ctx context.Context) error
}

// SignalPublisher pushes refresh signals to connected clients.
type SignalPublisher interface {
	NotifyMentioned(ctx context.Context, dids []string) error
	Broadcast(ctx context.Context) error
}

// Leadership reports whether this node holds the writer election.
type Leadership interface {
	IsPrimary() bool
}

// RecordValidator checks an inbound payload against its collection schema.
type RecordValidator interface {
	ValidateRecord(collection string, value map[string]any) error
}

// ATPClient encapsulates reads from the wider network: identity
// resolution, repo listing and individual record fetches.
type ATPClient interface {
	ResolveIdentity(ctx context.Context, did string) (domain.Identity, error)
	ListRecords(ctx context.Context, pds, repo, collection string) ([]domain.RemoteRecord, error)
	GetRecord(ctx context.Context, pds, repo, collection, rkey string) (domain.RemoteRecord, error)
	ListReposByCollection(ctx context.Context, collection string) ([]string, error)
}
