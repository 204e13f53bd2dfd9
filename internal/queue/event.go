// Package queue defines message payloads exchanged over the message broker.
package queue

// PlaceChangedEvent is published whenever place data is mutated: a manual
// add, an update, a delete, or a CSV import batch. It carries enough for
// downstream consumers to log or invalidate caches without querying the
// primary database.
type PlaceChangedEvent struct {
	Action    string `json:"action"` // added | updated | deleted | imported
	PlaceID   int64  `json:"place_id,omitempty"`
	PlaceName string `json:"place_name,omitempty"`
	PlaceType string `json:"place_type,omitempty"`
	Count     int    `json:"count,omitempty"` // rows affected, for imports
	ActorRole string `json:"actor_role"`
	ActorID   *int64 `json:"actor_id,omitempty"`
	OccurredAt string `json:"occurred_at"`
}
