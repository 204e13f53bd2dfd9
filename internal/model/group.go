package model

import "time"

// Group is a collaboration space for sharing lists and planning routes.
type Group struct {
	ID          int64     `json:"group_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// GroupRole is a member's standing inside a group. The creator is added
// as admin automatically.
type GroupRole string

const (
	GroupAdmin  GroupRole = "admin"
	GroupMember GroupRole = "member"
)

// Membership is one row of `group_members`.
type Membership struct {
	GroupID  int64
	UserID   int64
	Role     GroupRole
	JoinedAt time.Time
}

// GroupSummary is a group as seen from one member's perspective, used by
// the group listing endpoint.
type GroupSummary struct {
	ID              int64     `json:"group_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	CreatedBy       int64     `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
	CreatorUsername string    `json:"creator_username"`
	YourRole        GroupRole `json:"your_role"`
	JoinedAt        time.Time `json:"joined_at"`
	MemberCount     int64     `json:"member_count"`
}

// Member is a group member with their account details exposed to other
// members of the same group.
type Member struct {
	UserID   int64     `json:"user_id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Role     GroupRole `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// MemberStatus is one member's list standing for a single place, used by
// the group places matrix.
type MemberStatus struct {
	UserID     int64  `json:"user_id"`
	Username   string `json:"username"`
	Visited    bool   `json:"visited"`
	InWishlist bool   `json:"in_wishlist"`
	Liked      bool   `json:"liked"`
}

// GroupPlace is a place at least one group member has listed, with the
// full member status matrix attached.
type GroupPlace struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	City      string         `json:"city"`
	State     string         `json:"state"`
	Country   string         `json:"country"`
	Lat       *float64       `json:"lat"`
	Lon       *float64       `json:"lon"`
	PlaceType string         `json:"place_type"`
	Members   []MemberStatus `json:"members"`
}

// RouteStop is one ordered entry of a group route. A route is either the
// group default (user id absent in storage) or a member's personal
// override of it.
type RouteStop struct {
	PlaceID    int64    `json:"place_id"`
	OrderIndex int      `json:"order_index"`
	Name       string   `json:"name"`
	City       string   `json:"city"`
	State      string   `json:"state"`
	Lat        *float64 `json:"lat"`
	Lon        *float64 `json:"lon"`
}
