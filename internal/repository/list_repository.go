package repository

import (
	"context"
	"fmt"

	"geoplaces/internal/database"
	"geoplaces/internal/model"
)

// ListRepo manages the three personal lists. All distance math uses the
// same geography cast as the spatial searches so list distances agree
// with search distances.
type ListRepo struct{}

func NewListRepo() *ListRepo { return &ListRepo{} }

// listTables maps a list kind to its table, the list-specific columns to
// select, and the default ordering.
var listTables = map[model.ListKind]struct {
	table string
	cols  string
	order string
}{
	model.ListVisited:  {"user_visited_places", "l.visited_at::text, l.notes", "l.visited_at DESC"},
	model.ListWishlist: {"user_wishlist", "l.priority, l.added_at::text, l.notes", "l.priority DESC, l.added_at DESC"},
	model.ListLiked:    {"user_liked_places", "l.rating, l.liked_at::text, l.notes", "l.liked_at DESC"},
}

// Places returns the user's list joined with place details. When refLat
// and refLon are both set each row carries distance_km from that point
// and the list is ordered nearest first.
func (r *ListRepo) Places(ctx context.Context, db database.Querier, kind model.ListKind, userID int64, refLat, refLon *float64) ([]model.ListPlace, error) {
	spec, ok := listTables[kind]
	if !ok {
		return nil, fmt.Errorf("unknown list kind %q", kind)
	}
	withDistance := refLat != nil && refLon != nil

	distCol := "NULL::float8 AS distance_km"
	order := spec.order
	args := []any{userID}
	if withDistance {
		distCol = "ST_Distance(p.geom::geography, ST_SetSRID(ST_MakePoint($2, $3), 4326)::geography) / 1000.0 AS distance_km"
		order = "distance_km ASC, " + spec.order
		args = append(args, *refLon, *refLat)
	}

	sql := fmt.Sprintf(`
		SELECT p.id, p.name, p.city, p.state, p.country, p.lat, p.lon, %s, %s
		FROM %s l
		JOIN places p ON l.place_id = p.id
		WHERE l.user_id = $1
		ORDER BY %s`, spec.cols, distCol, spec.table, order)

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, pgErr(err)
	}
	defer rows.Close()

	out := []model.ListPlace{}
	for rows.Next() {
		var lp model.ListPlace
		var city, state, country *string
		dest := []any{&lp.ID, &lp.Name, &city, &state, &country, &lp.Lat, &lp.Lon}
		switch kind {
		case model.ListVisited:
			dest = append(dest, &lp.VisitedAt, &lp.Notes)
		case model.ListWishlist:
			dest = append(dest, &lp.Priority, &lp.AddedAt, &lp.Notes)
		case model.ListLiked:
			dest = append(dest, &lp.Rating, &lp.LikedAt, &lp.Notes)
		}
		dest = append(dest, &lp.DistanceKM)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		lp.City = deref(city)
		lp.State = deref(state)
		lp.Country = deref(country)
		out = append(out, lp)
	}
	return out, rows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// AddVisited records a visit; revisiting updates the notes and bumps the
// visit timestamp.
func (r *ListRepo) AddVisited(ctx context.Context, db database.Querier, userID, placeID int64, notes *string) error {
	_, err := db.Exec(ctx, `
		INSERT INTO user_visited_places (user_id, place_id, notes)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, place_id)
		DO UPDATE SET notes = EXCLUDED.notes, visited_at = CURRENT_TIMESTAMP`,
		userID, placeID, notes)
	return pgErr(err)
}

// AddWishlist adds or updates a wishlist entry with its priority.
func (r *ListRepo) AddWishlist(ctx context.Context, db database.Querier, userID, placeID int64, priority int, notes *string) error {
	_, err := db.Exec(ctx, `
		INSERT INTO user_wishlist (user_id, place_id, priority, notes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, place_id)
		DO UPDATE SET priority = EXCLUDED.priority, notes = EXCLUDED.notes`,
		userID, placeID, priority, notes)
	return pgErr(err)
}

// AddLiked likes a place. A nil rating on a re-like keeps the stored one.
func (r *ListRepo) AddLiked(ctx context.Context, db database.Querier, userID, placeID int64, rating *int, notes *string) error {
	_, err := db.Exec(ctx, `
		INSERT INTO user_liked_places (user_id, place_id, rating, notes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, place_id)
		DO UPDATE SET rating = COALESCE(EXCLUDED.rating, user_liked_places.rating),
		              notes = COALESCE(EXCLUDED.notes, user_liked_places.notes),
		              liked_at = CURRENT_TIMESTAMP`,
		userID, placeID, rating, notes)
	return pgErr(err)
}

// Remove deletes a list entry, reporting whether one existed.
func (r *ListRepo) Remove(ctx context.Context, db database.Querier, kind model.ListKind, userID, placeID int64) (bool, error) {
	spec, ok := listTables[kind]
	if !ok {
		return false, fmt.Errorf("unknown list kind %q", kind)
	}
	tag, err := db.Exec(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE user_id = $1 AND place_id = $2", spec.table),
		userID, placeID)
	if err != nil {
		return false, pgErr(err)
	}
	return tag.RowsAffected() > 0, nil
}

// Statuses resolves list membership for a batch of places in one query,
// keeping search decoration O(1) in the result size.
func (r *ListRepo) Statuses(ctx context.Context, db database.Querier, userID int64, placeIDs []int64) (map[int64]model.ListStatus, error) {
	out := make(map[int64]model.ListStatus, len(placeIDs))
	if len(placeIDs) == 0 {
		return out, nil
	}
	rows, err := db.Query(ctx, `
		SELECT place_id, 'visited' AS kind FROM user_visited_places WHERE user_id = $1 AND place_id = ANY($2)
		UNION ALL
		SELECT place_id, 'wishlist' FROM user_wishlist WHERE user_id = $1 AND place_id = ANY($2)
		UNION ALL
		SELECT place_id, 'liked' FROM user_liked_places WHERE user_id = $1 AND place_id = ANY($2)`,
		userID, placeIDs)
	if err != nil {
		return nil, pgErr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var kind string
		if err := rows.Scan(&id, &kind); err != nil {
			return nil, err
		}
		st := out[id]
		switch model.ListKind(kind) {
		case model.ListVisited:
			st.Visited = true
		case model.ListWishlist:
			st.InWishlist = true
		case model.ListLiked:
			st.Liked = true
		}
		out[id] = st
	}
	return out, rows.Err()
}

// Status returns the three membership booleans for one place.
func (r *ListRepo) Status(ctx context.Context, db database.Querier, userID, placeID int64) (model.ListStatus, error) {
	var st model.ListStatus
	err := db.QueryRow(ctx, `
		SELECT
			EXISTS (SELECT 1 FROM user_visited_places WHERE user_id = $1 AND place_id = $2),
			EXISTS (SELECT 1 FROM user_wishlist WHERE user_id = $1 AND place_id = $2),
			EXISTS (SELECT 1 FROM user_liked_places WHERE user_id = $1 AND place_id = $2)`,
		userID, placeID).Scan(&st.Visited, &st.InWishlist, &st.Liked)
	return st, pgErr(err)
}
