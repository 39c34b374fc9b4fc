package skymirror

const (
	// CommitKind is the jetstream event kind carrying a repo mutation.
	CommitKind = "commit"

	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
)

// Commit is the repo mutation carried by a firehose commit event.
type Commit struct {
	Rev        string         `json:"rev"`
	Operation  string         `json:"operation"`
	Collection string         `json:"collection"`
	RKey       string         `json:"rkey"`
	Record     map[string]any `json:"record,omitempty"`
	CID        string         `json:"cid"`
}

// CommitEvent is one inbound firehose frame.
type CommitEvent struct {
	DID    string  `json:"did"`
	TimeUS int64   `json:"time_us"`
	Kind   string  `json:"kind"`
	Commit *Commit `json:"commit,omitempty"`
}

// Label is a moderation assertion. The composite identity is
// (src, uri, cid, val); newer cts wins and neg cancels.
type Label struct {
	Src string  `json:"src"`
	URI string  `json:"uri"`
	CID string  `json:"cid,omitempty"`
	Val string  `json:"val"`
	Neg bool    `json:"neg,omitempty"`
	Cts string  `json:"cts"`
	Exp *string `json:"exp,omitempty"`
}

// LabelEvent is one inbound frame from a label stream, a batch of
// assertions at a sequence point.
type LabelEvent struct {
	Seq    int64   `json:"seq"`
	Labels []Label `json:"labels"`
}

const EventRefreshNotifications = "refresh-notifications"

// Event is the single outbound signal message pushed to realtime clients.
type Event struct {
	Type string `json:"type"`
}
