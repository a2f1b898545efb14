package models

// User is an identity record. Users are owned externally and never
// mutated by the messaging core after creation.
type User struct {
	ID        string `json:"user_id"`
	Name      string `json:"username"`
	CreatedTS int64  `json:"created_at"`
}
