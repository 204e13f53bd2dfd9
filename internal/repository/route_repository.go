package repository

import (
	"context"

	"geoplaces/internal/database"
	"geoplaces/internal/model"
)

// RouteRepo manages ordered place sequences per group. Rows with a NULL
// user_id form the group default; rows with a user_id are that member's
// personal override of it.
type RouteRepo struct{}

func NewRouteRepo() *RouteRepo { return &RouteRepo{} }

const routeSelect = `
	SELECT r.place_id, r.order_index, p.name,
	       COALESCE(p.city, ''), COALESCE(p.state, ''), p.lat, p.lon
	FROM group_routes r
	JOIN places p ON p.id = r.place_id
	WHERE r.group_id = $1 AND `

func scanStops(ctx context.Context, db database.Querier, sql string, args ...any) ([]model.RouteStop, error) {
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, pgErr(err)
	}
	defer rows.Close()
	stops := []model.RouteStop{}
	for rows.Next() {
		var st model.RouteStop
		if err := rows.Scan(&st.PlaceID, &st.OrderIndex, &st.Name, &st.City, &st.State, &st.Lat, &st.Lon); err != nil {
			return nil, err
		}
		stops = append(stops, st)
	}
	return stops, rows.Err()
}

// Effective returns the member's route: their personal override when one
// exists, otherwise the group default. personal reports which was found.
func (r *RouteRepo) Effective(ctx context.Context, db database.Querier, groupID, userID int64) (stops []model.RouteStop, personal bool, err error) {
	stops, err = scanStops(ctx, db,
		routeSelect+"r.user_id = $2 ORDER BY r.order_index", groupID, userID)
	if err != nil {
		return nil, false, err
	}
	if len(stops) > 0 {
		return stops, true, nil
	}
	stops, err = scanStops(ctx, db,
		routeSelect+"r.user_id IS NULL ORDER BY r.order_index", groupID)
	return stops, false, err
}

// SetDefault replaces the group's default route.
func (r *RouteRepo) SetDefault(ctx context.Context, conn *database.Conn, groupID int64, placeIDs []int64) error {
	return r.replace(ctx, conn, groupID, nil, placeIDs)
}

// SetOverride replaces one member's personal route.
func (r *RouteRepo) SetOverride(ctx context.Context, conn *database.Conn, groupID, userID int64, placeIDs []int64) error {
	return r.replace(ctx, conn, groupID, &userID, placeIDs)
}

// replace swaps the route for one scope (default or one user) inside a
// transaction so readers never see a half-written sequence.
func (r *RouteRepo) replace(ctx context.Context, conn *database.Conn, groupID int64, userID *int64, placeIDs []int64) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return pgErr(err)
	}
	defer tx.Rollback(ctx)

	if userID == nil {
		_, err = tx.Exec(ctx, "DELETE FROM group_routes WHERE group_id = $1 AND user_id IS NULL", groupID)
	} else {
		_, err = tx.Exec(ctx, "DELETE FROM group_routes WHERE group_id = $1 AND user_id = $2", groupID, *userID)
	}
	if err != nil {
		return pgErr(err)
	}
	for i, placeID := range placeIDs {
		_, err := tx.Exec(ctx, `
			INSERT INTO group_routes (group_id, user_id, place_id, order_index)
			VALUES ($1, $2, $3, $4)`,
			groupID, userID, placeID, i)
		if err != nil {
			return pgErr(err)
		}
	}
	return pgErr(tx.Commit(ctx))
}

// RemoveStop deletes a place from the member's effective route. When the
// member has no override yet, the default is copied to a personal route
// first, so the removal never edits the shared default. Reports whether
// the place was actually on the route.
func (r *RouteRepo) RemoveStop(ctx context.Context, conn *database.Conn, groupID, userID, placeID int64) (bool, error) {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return false, pgErr(err)
	}
	defer tx.Rollback(ctx)

	var hasOverride bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM group_routes WHERE group_id = $1 AND user_id = $2)`,
		groupID, userID).Scan(&hasOverride)
	if err != nil {
		return false, pgErr(err)
	}
	if !hasOverride {
		_, err = tx.Exec(ctx, `
			INSERT INTO group_routes (group_id, user_id, place_id, order_index)
			SELECT group_id, $2, place_id, order_index
			FROM group_routes
			WHERE group_id = $1 AND user_id IS NULL`,
			groupID, userID)
		if err != nil {
			return false, pgErr(err)
		}
	}

	tag, err := tx.Exec(ctx, `
		DELETE FROM group_routes WHERE group_id = $1 AND user_id = $2 AND place_id = $3`,
		groupID, userID, placeID)
	if err != nil {
		return false, pgErr(err)
	}
	removed := tag.RowsAffected() > 0

	if removed {
		// Close the gap so order_index stays dense.
		_, err = tx.Exec(ctx, `
			WITH ranked AS (
				SELECT place_id, ROW_NUMBER() OVER (ORDER BY order_index) - 1 AS idx
				FROM group_routes
				WHERE group_id = $1 AND user_id = $2
			)
			UPDATE group_routes gr
			SET order_index = ranked.idx
			FROM ranked
			WHERE gr.group_id = $1 AND gr.user_id = $2 AND gr.place_id = ranked.place_id`,
			groupID, userID)
		if err != nil {
			return false, pgErr(err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return false, pgErr(err)
	}
	return removed, nil
}
