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

// IngestUsecase reconciles firehose commit events into the index.
// HandleCommit never returns an error: a failing event is logged and
// dropped so the stream keeps flowing.
type IngestUsecase struct {
	config    domain.Config
	index     Index
	signal    SignalPublisher
	leader    Leadership
	validator RecordValidator
}

func NewIngestUsecase(
	config domain.Config,
	index Index,
	signal SignalPublisher,
	leader Leadership,
	validator RecordValidator,
) *IngestUsecase {
	return &IngestUsecase{
		config:    config,
		index:     index,
		signal:    signal,
		leader:    leader,
		validator: validator,
	}
}

func (uc *IngestUsecase) HandleCommit(ctx context.Context, ev skymirror.CommitEvent) {
	if ev.Kind != skymirror.CommitKind || ev.Commit == nil {
		return
	}
	if uc.leader != nil && !uc.leader.IsPrimary() {
		return
	}

	commit := ev.Commit
	uri := skymirror.ComposeATURI(ev.DID, commit.Collection, commit.RKey)

	// Externally owned collections are only indexed for repos we
	// already track, so strangers cannot grow the store.
	if uc.config.IsExternal(commit.Collection) {
		_, err := uc.index.GetActor(ctx, ev.DID)
		if errors.Is(err, domain.ErrNotFound) {
			return
		}
		if err != nil {
			slog.Error("checking actor for external collection",
				slog.String("error", err.Error()),
				slog.String("uri", uri),
				slog.String("module", "ingest"),
			)
			return
		}
	}

	switch commit.Operation {
	case skymirror.OperationCreate, skymirror.OperationUpdate:
		uc.applyWrite(ctx, ev, uri)
	case skymirror.OperationDelete:
		uc.applyDelete(ctx, uri)
	}
}

func (uc *IngestUsecase) applyWrite(ctx context.Context, ev skymirror.CommitEvent, uri string) {
	commit := ev.Commit

	if uc.validator != nil {
		if err := uc.validator.ValidateRecord(commit.Collection, commit.Record); err != nil {
			slog.Warn("dropping invalid record",
				slog.String("error", err.Error()),
				slog.String("uri", uri),
				slog.String("module", "ingest"),
			)
			return
		}
	}

	payload, err := json.Marshal(commit.Record)
	if err != nil {
		slog.Error("serializing record payload",
			slog.String("error", err.Error()),
			slog.String("uri", uri),
			slog.String("module", "ingest"),
		)
		return
	}

	if !uc.config.NotificationsOnly {
		raw := domain.RawRecord{
			URI:        uri,
			CID:        commit.CID,
			DID:        ev.DID,
			Collection: commit.Collection,
			JSON:       string(payload),
			IndexedAt:  time.Now().UTC().Format(domain.TimestampLayout),
		}
		if commit.Operation == skymirror.OperationCreate {
			err = uc.index.InsertRecord(ctx, raw)
		} else {
			err = uc.index.UpdateRecord(ctx, raw)
		}
		if err != nil {
			slog.Error("indexing record",
				slog.String("error", err.Error()),
				slog.String("uri", uri),
				slog.String("module", "ingest"),
			)
			return
		}
	}

	mentioned := skymirror.MentionedDIDs(string(payload), ev.DID)
	if len(mentioned) > 0 {
		if err := uc.signal.NotifyMentioned(ctx, mentioned); err != nil {
			slog.Error("notifying mentioned identities",
				slog.String("error", err.Error()),
				slog.String("uri", uri),
				slog.String("module", "ingest"),
			)
		}
	}
}

func (uc *IngestUsecase) applyDelete(ctx context.Context, uri string) {
	if !uc.config.NotificationsOnly {
		if err := uc.index.DeleteRecord(ctx, uri); err != nil {
			slog.Error("deleting record",
				slog.String("error", err.Error()),
				slog.String("uri", uri),
				slog.String("module", "ingest"),
			)
			return
		}
	}
	if err := uc.signal.Broadcast(ctx); err != nil {
		slog.Error("broadcasting delete signal",
			slog.String("error", err.Error()),
			slog.String("uri", uri),
			slog.String("module", "ingest"),
		)
	}
}
