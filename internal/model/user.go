package model

import "time"

// User represents a registered account in the `users` table. Users gate
// ownership of personal lists and groups; they are distinct from Roles,
// which gate database-level permissions.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// ListCounts summarizes one user's list activity for the profile endpoint.
type ListCounts struct {
	Visited  int64 `json:"visited_count"`
	Wishlist int64 `json:"wishlist_count"`
	Liked    int64 `json:"liked_count"`
}

// UserStats is the public aggregate over all registered accounts.
type UserStats struct {
	TotalUsers  int64 `json:"total_users"`
	ActiveUsers int64 `json:"active_users"`
	Visited     int64 `json:"visited"`
	Wishlist    int64 `json:"wishlist"`
	Liked       int64 `json:"liked"`
}
