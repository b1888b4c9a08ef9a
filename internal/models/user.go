package models

// User is a local operator allowed to call the HTTP API.
// It is unrelated to the Hive account the service manages.
type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"` // don’t expose hash
}
