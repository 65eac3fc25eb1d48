package model

import "time"

// SpotLock is an advisory lock serializing the read-check-write sequence for
// a single spot. The unique _id insert is the exclusion primitive; a TTL
// index on expires_at reclaims locks left behind by crashed requests.
type SpotLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
