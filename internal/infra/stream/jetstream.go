package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"

	"github.com/skymirror/skymirror"
)

// Jetstream consumes firehose commit events for a configured set of
// collections.
type Jetstream struct {
	client *Client
}

func NewJetstream(instanceURL string, wantedCollections []string, handler func(ctx context.Context, ev skymirror.CommitEvent), opts Options) *Jetstream {
	params := url.Values{}
	for _, col := range wantedCollections {
		params.Add("wantedCollections", col)
	}
	endpoint := instanceURL + "/subscribe?" + params.Encode()

	js := &Jetstream{}
	js.client = NewClient("jetstream", endpoint, func(ctx context.Context, frame []byte) {
		var ev skymirror.CommitEvent
		if err := json.Unmarshal(frame, &ev); err != nil {
			slog.Error("decoding commit event",
				slog.String("error", err.Error()),
				slog.String("module", "jetstream"),
			)
			return
		}
		handler(ctx, ev)
	}, nil, opts)
	return js
}

func (j *Jetstream) Connect(ctx context.Context) error { return j.client.Connect(ctx) }
func (j *Jetstream) Disconnect()                       { j.client.Disconnect() }
func (j *Jetstream) State() State                      { return j.client.State() }
