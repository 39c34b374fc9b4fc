package models

// Column names are pinned so the query compiler can reference them
// directly; gorm's snake_case naming would break JSON field parity.

// Record is a mirrored federated record. The payload is kept opaque.
type Record struct {
	URI        string `json:"uri" gorm:"primaryKey;type:text;column:uri"`
	CID        string `json:"cid" gorm:"type:text;not null;column:cid"`
	DID        string `json:"did" gorm:"type:text;not null;index;column:did"`
	Collection string `json:"collection" gorm:"type:text;not null;index;index:idx_record_did_collection,composite:did_collection;column:collection"`
	JSON       string `json:"json" gorm:"type:text;not null;column:json"`
	IndexedAt  string `json:"indexedAt" gorm:"type:text;not null;column:indexedAt"`
}

func (Record) TableName() string { return "record" }

// Actor mirrors a repository owner.
type Actor struct {
	DID            string  `json:"did" gorm:"primaryKey;type:text;column:did"`
	Handle         string  `json:"handle" gorm:"type:text;index;column:handle"`
	LastSeenNotifs *string `json:"lastSeenNotifs" gorm:"type:text;column:lastSeenNotifs"`
	IndexedAt      string  `json:"indexedAt" gorm:"type:text;not null;column:indexedAt"`
}

func (Actor) TableName() string { return "actor" }

// RecordKV is one promoted scalar field of a record, one row per
// (uri, key) for every configured indexed key present in the payload.
type RecordKV struct {
	URI   string `json:"uri" gorm:"primaryKey;type:text;column:uri"`
	Key   string `json:"key" gorm:"primaryKey;type:text;index:idx_record_kv_key_value;column:key"`
	Value string `json:"value" gorm:"type:text;not null;index:idx_record_kv_key_value;column:value"`
}

func (RecordKV) TableName() string { return "record_kv" }

// FacetIndex is one mention/tag annotation projected out of a record,
// rebuilt wholesale on every write of the owning record.
type FacetIndex struct {
	URI   string `json:"uri" gorm:"primaryKey;type:text;column:uri"`
	Type  string `json:"type" gorm:"primaryKey;type:text;index:facet_index_type_value;column:type"`
	Value string `json:"value" gorm:"primaryKey;type:text;index:facet_index_type_value;column:value"`
}

func (FacetIndex) TableName() string { return "facet_index" }
