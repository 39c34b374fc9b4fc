package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"

	"github.com/skymirror/skymirror"
)

// Labeler consumes a moderation label stream. The first frame after
// every (re)connect is the start of a full resync: onResync runs
// before it is applied so stale assertions are flushed first.
type Labeler struct {
	client     *Client
	firstEvent atomic.Bool
}

func NewLabeler(instanceURL string, handler func(ctx context.Context, ev skymirror.LabelEvent), onResync func(ctx context.Context), opts Options) *Labeler {
	endpoint := instanceURL + "/xrpc/com.atproto.label.subscribeLabels"

	l := &Labeler{}
	l.firstEvent.Store(true)

	l.client = NewClient("labeler", endpoint, func(ctx context.Context, frame []byte) {
		if l.firstEvent.Swap(false) && onResync != nil {
			onResync(ctx)
		}
		var ev skymirror.LabelEvent
		if err := json.Unmarshal(frame, &ev); err != nil {
			slog.Error("decoding label event",
				slog.String("error", err.Error()),
				slog.String("module", "labeler"),
			)
			return
		}
		handler(ctx, ev)
	}, func() {
		l.firstEvent.Store(true)
	}, opts)

	return l
}

func (l *Labeler) Connect(ctx context.Context) error { return l.client.Connect(ctx) }
func (l *Labeler) Disconnect()                       { l.client.Disconnect() }
func (l *Labeler) State() State                      { return l.client.State() }
