package model

// User as seen by this service: an opaque actor reference plus the username
// exposed in the owner view. Credentials live in the auth service.
type User struct {
	ID       string `json:"id" bson:"_id,omitempty"`
	Username string `json:"username" bson:"username"`
}

type UserSummary struct {
	ID       string `json:"id" bson:"_id"`
	Username string `json:"username" bson:"username"`
}
