package models

// Label is a moderation assertion from a label stream. Identity is the
// composite (src, uri, cid, val); resolution (newest cts wins, negation
// cancels) happens at query time.
type Label struct {
	Src string  `json:"src" gorm:"primaryKey;type:text;column:src"`
	URI string  `json:"uri" gorm:"primaryKey;type:text;column:uri"`
	CID string  `json:"cid" gorm:"primaryKey;type:text;column:cid"`
	Val string  `json:"val" gorm:"primaryKey;type:text;column:val"`
	Neg bool    `json:"neg" gorm:"not null;default:false;column:neg"`
	Cts string  `json:"cts" gorm:"type:text;not null;column:cts"`
	Exp *string `json:"exp" gorm:"type:text;column:exp"`
}

func (Label) TableName() string { return "labels" }

// RateLimit is one counter bucket, incremented inside a short
// transaction so a rejected request never leaves a partial increment.
type RateLimit struct {
	Key       string `json:"key" gorm:"primaryKey;type:text;column:key"`
	Namespace string `json:"namespace" gorm:"primaryKey;type:text;column:namespace"`
	Points    int    `json:"points" gorm:"not null;column:points"`
	ResetAt   string `json:"resetAt" gorm:"type:text;not null;column:resetAt"`
}

func (RateLimit) TableName() string { return "rate_limit" }
