package model

import "time"

// Session is a persisted session record. Data holds the encrypted,
// encoded session payload; the store never looks inside it.
type Session struct {
	Key       string    `json:"key" bson:"_id"`
	Data      []byte    `json:"-" bson:"data"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at"`
	TouchedAt time.Time `json:"touched_at" bson:"touched_at"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
