package model

// ListKind names one of the three personal lists.
type ListKind string

const (
	ListVisited  ListKind = "visited"
	ListWishlist ListKind = "wishlist"
	ListLiked    ListKind = "liked"
)

// ListStatus is the per-place membership summary decorated onto search
// results and returned by the place-status endpoint.
type ListStatus struct {
	Visited    bool `json:"visited"`
	InWishlist bool `json:"in_wishlist"`
	Liked      bool `json:"liked"`
}

// ListPlace is a place joined with the caller's list entry. Which of the
// list-specific fields are set depends on the list kind: visited carries
// VisitedAt, wishlist Priority and AddedAt, liked Rating and LikedAt.
type ListPlace struct {
	ID         int64    `json:"id"`
	Name       string   `json:"name"`
	City       string   `json:"city"`
	State      string   `json:"state"`
	Country    string   `json:"country"`
	Lat        *float64 `json:"lat"`
	Lon        *float64 `json:"lon"`
	Notes      *string  `json:"notes,omitempty"`
	Priority   *int     `json:"priority,omitempty"`
	Rating     *int     `json:"rating,omitempty"`
	VisitedAt  *string  `json:"visited_at,omitempty"`
	AddedAt    *string  `json:"added_at,omitempty"`
	LikedAt    *string  `json:"liked_at,omitempty"`
	DistanceKM *float64 `json:"distance_km,omitempty"`
}
