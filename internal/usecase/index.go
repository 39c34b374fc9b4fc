package usecase

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/skymirror/skymirror"
	"github.com/skymirror/skymirror/internal/domain"
)

var tracer = otel.Tracer("usecase")

// IndexUsecase serves read queries over the local index.
type IndexUsecase struct {
	index Index
}

func NewIndexUsecase(index Index) *IndexUsecase {
	return &IndexUsecase{index: index}
}

// Query returns one page of records for a collection. An empty
// collection is rejected upstream by the handler.
func (uc *IndexUsecase) Query(ctx context.Context, collection string, opts skymirror.QueryOptions) (domain.RecordPage, error) {
	ctx, span := tracer.Start(ctx, "Index.Usecase.Query")
	defer span.End()

	page, err := uc.index.GetRecords(ctx, collection, opts)
	if err != nil {
		span.RecordError(errors.Wrap(err, "querying records"))
		return domain.RecordPage{}, err
	}
	return page, nil
}

func (uc *IndexUsecase) Count(ctx context.Context, collection string, opts skymirror.QueryOptions) (int64, error) {
	ctx, span := tracer.Start(ctx, "Index.Usecase.Count")
	defer span.End()

	count, err := uc.index.CountRecords(ctx, collection, opts)
	if err != nil {
		span.RecordError(errors.Wrap(err, "counting records"))
		return 0, err
	}
	return count, nil
}

func (uc *IndexUsecase) Get(ctx context.Context, uri string) (domain.Record, error) {
	ctx, span := tracer.Start(ctx, "Index.Usecase.Get")
	defer span.End()

	return uc.index.GetRecord(ctx, uri)
}

func (uc *IndexUsecase) Labels(ctx context.Context, subjects []string, issuers []string) ([]skymirror.Label, error) {
	ctx, span := tracer.Start(ctx, "Index.Usecase.Labels")
	defer span.End()

	return uc.index.QueryLabels(ctx, subjects, issuers)
}

func (uc *IndexUsecase) SearchActors(ctx context.Context, query string) ([]domain.Actor, error) {
	return uc.index.SearchActors(ctx, query)
}

func (uc *IndexUsecase) GetActor(ctx context.Context, did string) (domain.Actor, error) {
	return uc.index.GetActor(ctx, did)
}

func (uc *IndexUsecase) MarkNotificationsSeen(ctx context.Context, did string, seenAt string) error {
	return uc.index.UpdateActorSeen(ctx, did, seenAt)
}
