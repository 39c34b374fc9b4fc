package usecase

import (
	"context"
	"log/slog"

	"github.com/skymirror/skymirror"
)

// LabelIngest applies moderation label streams to the local store.
type LabelIngest struct {
	index Index
}

func NewLabelIngest(index Index) *LabelIngest {
	return &LabelIngest{index: index}
}

// Resync flushes all stored labels. The label stream replays its full
// state after every (re)connect, so a failed clear would leave stale
// negations behind.
func (uc *LabelIngest) Resync(ctx context.Context) {
	if err := uc.index.ClearLabels(ctx); err != nil {
		slog.Error("clearing labels for resync",
			slog.String("error", err.Error()),
			slog.String("module", "labels"),
		)
	}
}

// HandleEvent applies one batch of label assertions. A failing label
// is logged and skipped so the rest of the batch still lands.
func (uc *LabelIngest) HandleEvent(ctx context.Context, ev skymirror.LabelEvent) {
	for _, label := range ev.Labels {
		if err := uc.index.InsertLabel(ctx, label); err != nil {
			slog.Error("storing label",
				slog.String("error", err.Error()),
				slog.String("uri", label.URI),
				slog.String("val", label.Val),
				slog.String("module", "labels"),
			)
		}
	}
}
