package domain

// TimestampLayout always prints the microsecond fraction so stored
// timestamps stay fixed width and sort lexicographically.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// Record is a hydrated view of an indexed record: the identity columns
// plus the decoded payload.
type Record struct {
	URI        string         `json:"uri"`
	CID        string         `json:"cid"`
	DID        string         `json:"did"`
	Collection string         `json:"collection"`
	IndexedAt  string         `json:"indexedAt"`
	Value      map[string]any `json:"value"`
}

// RecordPage is one page of query results with the resume cursor for
// the next page, empty when the page was empty.
type RecordPage struct {
	Items  []Record `json:"items"`
	Cursor string   `json:"cursor,omitempty"`
}

// Actor mirrors a repository owner's identity resolution state.
type Actor struct {
	DID            string  `json:"did"`
	Handle         string  `json:"handle"`
	LastSeenNotifs *string `json:"lastSeenNotifs,omitempty"`
	IndexedAt      string  `json:"indexedAt"`
}

// RawRecord is the storage-facing shape of a record write: identity
// columns plus the serialized payload.
type RawRecord struct {
	URI        string
	CID        string
	DID        string
	Collection string
	JSON       string
	IndexedAt  string
}

// RemoteRecord is one record as served by a remote repository host.
type RemoteRecord struct {
	URI   string         `json:"uri"`
	CID   string         `json:"cid"`
	Value map[string]any `json:"value"`
}

// Identity is the resolved network location of a repository.
type Identity struct {
	DID    string `json:"did"`
	Handle string `json:"handle"`
	PDS    string `json:"pds"`
}
