package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/skymirror/skymirror"
	"github.com/skymirror/skymirror/internal/domain"
)

// BackfillUsecase seeds the index from existing repos, either a whole
// collection at a time or individual URIs. One failing repo or URI is
// logged and skipped, it never aborts the batch.
type BackfillUsecase struct {
	index  Index
	client ATPClient
}

func NewBackfillUsecase(index Index, client ATPClient) *BackfillUsecase {
	return &BackfillUsecase{index: index, client: client}
}

// Collections indexes every record in each collection for the given
// repos. When repos is empty the full membership is resolved from the
// relay per collection.
func (uc *BackfillUsecase) Collections(ctx context.Context, collections []string, repos []string) error {
	ctx, span := tracer.Start(ctx, "Backfill.Usecase.Collections")
	defer span.End()

	byRepo := make(map[string][]string)
	if len(repos) > 0 {
		for _, repo := range repos {
			byRepo[repo] = collections
		}
	} else {
		for _, collection := range collections {
			members, err := uc.client.ListReposByCollection(ctx, collection)
			if err != nil {
				span.RecordError(err)
				slog.Error("listing repos for collection",
					slog.String("error", err.Error()),
					slog.String("collection", collection),
					slog.String("module", "backfill"),
				)
				continue
			}
			for _, repo := range members {
				byRepo[repo] = append(byRepo[repo], collection)
			}
		}
	}

	for repo, cols := range byRepo {
		identity, err := uc.client.ResolveIdentity(ctx, repo)
		if err != nil {
			slog.Error("resolving repo identity",
				slog.String("error", err.Error()),
				slog.String("did", repo),
				slog.String("module", "backfill"),
			)
			continue
		}
		if err := uc.indexActor(ctx, identity); err != nil {
			slog.Error("indexing actor",
				slog.String("error", err.Error()),
				slog.String("did", repo),
				slog.String("module", "backfill"),
			)
			continue
		}
		for _, collection := range cols {
			records, err := uc.client.ListRecords(ctx, identity.PDS, repo, collection)
			if err != nil {
				slog.Error("listing records",
					slog.String("error", err.Error()),
					slog.String("did", repo),
					slog.String("collection", collection),
					slog.String("module", "backfill"),
				)
				continue
			}
			for _, record := range records {
				if err := uc.indexRemote(ctx, identity.DID, collection, record); err != nil {
					slog.Error("indexing record",
						slog.String("error", err.Error()),
						slog.String("uri", record.URI),
						slog.String("module", "backfill"),
					)
				}
			}
		}
	}
	return nil
}

// URIs indexes the given records individually, skipping any that are
// already present.
func (uc *BackfillUsecase) URIs(ctx context.Context, uris []string) error {
	ctx, span := tracer.Start(ctx, "Backfill.Usecase.URIs")
	defer span.End()

	identities := make(map[string]domain.Identity)
	for _, uri := range uris {
		did, collection, rkey, err := skymirror.ParseATURI(uri)
		if err != nil {
			slog.Warn("skipping malformed uri",
				slog.String("uri", uri),
				slog.String("module", "backfill"),
			)
			continue
		}

		_, err = uc.index.GetRecord(ctx, uri)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			slog.Error("checking indexed record",
				slog.String("error", err.Error()),
				slog.String("uri", uri),
				slog.String("module", "backfill"),
			)
			continue
		}

		identity, ok := identities[did]
		if !ok {
			identity, err = uc.client.ResolveIdentity(ctx, did)
			if err != nil {
				slog.Error("resolving repo identity",
					slog.String("error", err.Error()),
					slog.String("did", did),
					slog.String("module", "backfill"),
				)
				continue
			}
			identities[did] = identity
			if err := uc.indexActor(ctx, identity); err != nil {
				slog.Error("indexing actor",
					slog.String("error", err.Error()),
					slog.String("did", did),
					slog.String("module", "backfill"),
				)
			}
		}

		record, err := uc.client.GetRecord(ctx, identity.PDS, did, collection, rkey)
		if err != nil {
			slog.Error("fetching record",
				slog.String("error", err.Error()),
				slog.String("uri", uri),
				slog.String("module", "backfill"),
			)
			continue
		}
		if err := uc.indexRemote(ctx, did, collection, record); err != nil {
			slog.Error("indexing record",
				slog.String("error", err.Error()),
				slog.String("uri", record.URI),
				slog.String("module", "backfill"),
			)
		}
	}
	return nil
}

func (uc *BackfillUsecase) indexActor(ctx context.Context, identity domain.Identity) error {
	return uc.index.InsertActor(ctx, domain.Actor{
		DID:       identity.DID,
		Handle:    identity.Handle,
		IndexedAt: time.Now().UTC().Format(domain.TimestampLayout),
	})
}

func (uc *BackfillUsecase) indexRemote(ctx context.Context, did, collection string, record domain.RemoteRecord) error {
	payload, err := json.Marshal(record.Value)
	if err != nil {
		return err
	}
	return uc.index.InsertRecord(ctx, domain.RawRecord{
		URI:        record.URI,
		CID:        record.CID,
		DID:        did,
		Collection: collection,
		JSON:       string(payload),
		IndexedAt:  time.Now().UTC().Format(domain.TimestampLayout),
	})
}
