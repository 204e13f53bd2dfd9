package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"geoplaces/internal/database"
	"geoplaces/internal/model"
)

// Result caps for the spatial searches. Radius and bbox queries over dense
// regions can match most of the table; the caps bound response size.
const (
	radiusLimit = 2000
	bboxLimit   = 5000
)

// SearchFilter narrows a spatial search. States holds the already-expanded
// name/abbreviation variants; Name is a case-insensitive substring; Types
// is passed through as-is, so unknown categories simply match nothing.
type SearchFilter struct {
	States []string
	Name   string
	Types  []string
}

// PlaceRepo runs place queries against whatever connection the caller
// acquired, so the database sees each query under the caller's role.
type PlaceRepo struct{}

func NewPlaceRepo() *PlaceRepo { return &PlaceRepo{} }

// Dataset rows imported from open sources can carry NULL locality fields;
// they surface as empty strings rather than nullable JSON.
const featureColumns = "id, name, COALESCE(city, ''), COALESCE(state, ''), COALESCE(country, ''), lat, lon, COALESCE(place_type, 'unknown')"

// appendFilters adds the optional filter clauses to a query being built.
func appendFilters(b *strings.Builder, args []any, f SearchFilter) []any {
	if len(f.States) > 0 {
		args = append(args, f.States)
		fmt.Fprintf(b, " AND state ILIKE ANY($%d)", len(args))
	}
	if f.Name != "" {
		args = append(args, "%"+f.Name+"%")
		fmt.Fprintf(b, " AND name ILIKE $%d", len(args))
	}
	if len(f.Types) > 0 {
		args = append(args, f.Types)
		fmt.Fprintf(b, " AND place_type = ANY($%d)", len(args))
	}
	return args
}

func scanFeatures(rows pgx.Rows, withDistance bool) ([]model.Feature, error) {
	defer rows.Close()
	features := []model.Feature{}
	for rows.Next() {
		var ft model.Feature
		dest := []any{&ft.ID, &ft.Name, &ft.City, &ft.State, &ft.Country, &ft.Lat, &ft.Lon, &ft.PlaceType}
		if withDistance {
			dest = append(dest, &ft.DistanceKM)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		features = append(features, ft)
	}
	return features, rows.Err()
}

// SearchRadius finds places within radiusKM of (lat, lon), nearest first.
// The distance math runs in PostGIS over geography, so kilometers are
// great-circle, not planar.
func (r *PlaceRepo) SearchRadius(ctx context.Context, db database.Querier, lat, lon, radiusKM float64, f SearchFilter) ([]model.Feature, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + featureColumns + `
		FROM places_with_types
		WHERE geom IS NOT NULL
		  AND ST_DWithin(geom::geography, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)`)
	args := []any{lon, lat, radiusKM * 1000}
	args = appendFilters(&b, args, f)
	fmt.Fprintf(&b, `
		ORDER BY ST_Distance(geom::geography, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography)
		LIMIT %d`, radiusLimit)

	rows, err := db.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, pgErr(err)
	}
	return scanFeatures(rows, false)
}

// SearchNearest returns the k places closest to (lat, lon) with their
// distance in kilometers. Ordering comes from the KNN operator so the
// spatial index drives the scan; ties stay in store order.
func (r *PlaceRepo) SearchNearest(ctx context.Context, db database.Querier, lat, lon float64, k int, f SearchFilter) ([]model.Feature, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + featureColumns + `,
		  ST_Distance(geom::geography, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) / 1000.0 AS distance_km
		FROM places_with_types
		WHERE geom IS NOT NULL`)
	args := []any{lon, lat}
	args = appendFilters(&b, args, f)
	args = append(args, k)
	fmt.Fprintf(&b, `
		ORDER BY geom <-> ST_SetSRID(ST_MakePoint($1, $2), 4326)
		LIMIT $%d`, len(args))

	rows, err := db.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, pgErr(err)
	}
	return scanFeatures(rows, true)
}

// SearchBBox returns places inside the envelope. No ordering is imposed;
// map viewports render all rows anyway.
func (r *PlaceRepo) SearchBBox(ctx context.Context, db database.Querier, north, south, east, west float64, f SearchFilter) ([]model.Feature, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + featureColumns + `
		FROM places_with_types
		WHERE geom IS NOT NULL
		  AND geom && ST_MakeEnvelope($1, $2, $3, $4, 4326)`)
	args := []any{west, south, east, north}
	args = appendFilters(&b, args, f)
	fmt.Fprintf(&b, " LIMIT %d", bboxLimit)

	rows, err := db.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, pgErr(err)
	}
	return scanFeatures(rows, false)
}

// StateCount is one row of the top-states ranking.
type StateCount struct {
	State string `json:"state"`
	Count int64  `json:"count"`
}

// Bounds is the coordinate envelope of the whole dataset.
type Bounds struct {
	MinLat *float64 `json:"min_lat"`
	MaxLat *float64 `json:"max_lat"`
	MinLon *float64 `json:"min_lon"`
	MaxLon *float64 `json:"max_lon"`
}

// Stats is the /stats payload.
type Stats struct {
	TotalPlaces int64        `json:"total_places"`
	TopStates   []StateCount `json:"top_states"`
	Bounds      Bounds       `json:"bounds"`
}

func (r *PlaceRepo) Stats(ctx context.Context, db database.Querier) (Stats, error) {
	var s Stats
	if err := db.QueryRow(ctx, "SELECT COUNT(*) FROM places").Scan(&s.TotalPlaces); err != nil {
		return s, pgErr(err)
	}

	rows, err := db.Query(ctx, `
		SELECT state, COUNT(*) AS count
		FROM places
		WHERE state IS NOT NULL
		GROUP BY state
		ORDER BY count DESC
		LIMIT 10`)
	if err != nil {
		return s, pgErr(err)
	}
	defer rows.Close()
	s.TopStates = []StateCount{}
	for rows.Next() {
		var sc StateCount
		if err := rows.Scan(&sc.State, &sc.Count); err != nil {
			return s, err
		}
		s.TopStates = append(s.TopStates, sc)
	}
	if err := rows.Err(); err != nil {
		return s, err
	}

	err = db.QueryRow(ctx, `
		SELECT MIN(lat), MAX(lat), MIN(lon), MAX(lon) FROM places`).
		Scan(&s.Bounds.MinLat, &s.Bounds.MaxLat, &s.Bounds.MinLon, &s.Bounds.MaxLon)
	return s, pgErr(err)
}

// StateAnalytics is one per-state aggregation row.
type StateAnalytics struct {
	State  string   `json:"state"`
	Count  int64    `json:"count"`
	AvgLat *float64 `json:"avg_lat"`
	AvgLon *float64 `json:"avg_lon"`
}

func (r *PlaceRepo) StatesAnalytics(ctx context.Context, db database.Querier) ([]StateAnalytics, error) {
	rows, err := db.Query(ctx, `
		SELECT state, COUNT(*) AS count, AVG(lat), AVG(lon)
		FROM places
		WHERE state IS NOT NULL
		GROUP BY state
		ORDER BY count DESC`)
	if err != nil {
		return nil, pgErr(err)
	}
	defer rows.Close()
	out := []StateAnalytics{}
	for rows.Next() {
		var sa StateAnalytics
		if err := rows.Scan(&sa.State, &sa.Count, &sa.AvgLat, &sa.AvgLon); err != nil {
			return nil, err
		}
		out = append(out, sa)
	}
	return out, rows.Err()
}

// DensityCount counts places within radiusKM of the center.
func (r *PlaceRepo) DensityCount(ctx context.Context, db database.Querier, lat, lon, radiusKM float64) (int64, error) {
	var count int64
	err := db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM places
		WHERE ST_DWithin(geom::geography, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3 * 1000)`,
		lon, lat, radiusKM).Scan(&count)
	return count, pgErr(err)
}

// Distance computes the geography distance between two points in km.
func (r *PlaceRepo) Distance(ctx context.Context, db database.Querier, lat1, lon1, lat2, lon2 float64) (float64, error) {
	var km float64
	err := db.QueryRow(ctx, `
		SELECT ST_Distance(
			ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography,
			ST_SetSRID(ST_MakePoint($3, $4), 4326)::geography
		) / 1000.0`,
		lon1, lat1, lon2, lat2).Scan(&km)
	return km, pgErr(err)
}

// ExportRow is one flat row of the CSV/GeoJSON exports. Geometry is only
// populated for GeoJSON and holds the ST_AsGeoJSON output verbatim.
type ExportRow struct {
	ID       int64
	Name     string
	City     *string
	State    *string
	Country  *string
	Lat      *float64
	Lon      *float64
	Geometry json.RawMessage
}

// Export streams the filtered dataset ordered by id. withGeometry selects
// the GeoJSON shape; limit <= 0 means no limit.
func (r *PlaceRepo) Export(ctx context.Context, db database.Querier, state, name string, limit int, withGeometry bool) ([]ExportRow, error) {
	var b strings.Builder
	b.WriteString("SELECT id, name, city, state, country, lat, lon")
	if withGeometry {
		b.WriteString(", ST_AsGeoJSON(geom)::json")
	}
	b.WriteString(" FROM places WHERE 1=1")
	args := []any{}
	if state != "" {
		args = append(args, "%"+state+"%")
		fmt.Fprintf(&b, " AND state ILIKE $%d", len(args))
	}
	if name != "" {
		args = append(args, "%"+name+"%")
		fmt.Fprintf(&b, " AND name ILIKE $%d", len(args))
	}
	b.WriteString(" ORDER BY id")
	if limit > 0 {
		args = append(args, limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}

	rows, err := db.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, pgErr(err)
	}
	defer rows.Close()
	out := []ExportRow{}
	for rows.Next() {
		var er ExportRow
		dest := []any{&er.ID, &er.Name, &er.City, &er.State, &er.Country, &er.Lat, &er.Lon}
		if withGeometry {
			dest = append(dest, &er.Geometry)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, er)
	}
	return out, rows.Err()
}

// Insert creates a place and its type extension row in one transaction
// and returns the new id.
func (r *PlaceRepo) Insert(ctx context.Context, conn *database.Conn, p model.Place, ptype model.PlaceType, td model.TypeData) (int64, error) {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, pgErr(err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO places (source_id, name, city, state, country, lat, lon, geom, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, ST_SetSRID(ST_MakePoint($7, $6), 4326), $8)
		RETURNING id`,
		p.SourceID, p.Name, p.City, p.State, p.Country, p.Lat, p.Lon, p.CreatedBy).Scan(&id)
	if err != nil {
		return 0, pgErr(err)
	}
	if err := insertExtension(ctx, tx, id, ptype, td); err != nil {
		return 0, pgErr(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, pgErr(err)
	}
	return id, nil
}

// insertExtension writes the one type-specific row for a new place.
func insertExtension(ctx context.Context, q database.Querier, placeID int64, ptype model.PlaceType, td model.TypeData) error {
	switch ptype {
	case model.TypeBrewery:
		_, err := q.Exec(ctx, `
			INSERT INTO breweries (place_id, brewery_type, website, phone, street, postal_code)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			placeID, nullStr(td.BreweryType), nullStr(td.Website), nullStr(td.Phone),
			nullStr(td.Street), nullStr(td.PostalCode))
		return err
	case model.TypeRestaurant:
		_, err := q.Exec(ctx, `
			INSERT INTO restaurants (place_id, cuisine_type, price_range, rating, website, phone, street, postal_code, hours_of_operation)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			placeID, nullStr(td.CuisineType), td.PriceRange, td.Rating, nullStr(td.Website),
			nullStr(td.Phone), nullStr(td.Street), nullStr(td.PostalCode), nullStr(td.HoursOfOperation))
		return err
	case model.TypeTouristPlace:
		_, err := q.Exec(ctx, `
			INSERT INTO tourist_places (place_id, place_type, rating, entry_fee, website, phone, street, postal_code, description)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			placeID, nullStr(td.TouristType), td.Rating, td.EntryFee, nullStr(td.Website),
			nullStr(td.Phone), nullStr(td.Street), nullStr(td.PostalCode), nullStr(td.Description))
		return err
	case model.TypeHotel:
		_, err := q.Exec(ctx, `
			INSERT INTO hotels (place_id, star_rating, rating, price_per_night, amenities, website, phone, street, postal_code, check_in_time, check_out_time)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			placeID, td.StarRating, td.Rating, td.PricePerNight, td.Amenities, nullStr(td.Website),
			nullStr(td.Phone), nullStr(td.Street), nullStr(td.PostalCode),
			nullStr(td.CheckInTime), nullStr(td.CheckOutTime))
		return err
	}
	return fmt.Errorf("unknown place type %q", ptype)
}

func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// PlaceUpdate is the partial field set accepted by place updates. Nil
// means "leave unchanged"; Lat and Lon must be set together so geom stays
// consistent with the columns.
type PlaceUpdate struct {
	Name    *string
	City    *string
	State   *string
	Country *string
	Lat     *float64
	Lon     *float64
}

// Empty reports whether the update would change nothing.
func (u PlaceUpdate) Empty() bool {
	return u.Name == nil && u.City == nil && u.State == nil && u.Country == nil && u.Lat == nil
}

// UpdatedPlace echoes the row state after an update.
type UpdatedPlace struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	City      *string  `json:"city"`
	State     *string  `json:"state"`
	Country   *string  `json:"country"`
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
	UpdatedAt *string  `json:"updated_at"`
}

// Update applies the partial update and returns the resulting row, or
// ErrNotFound when the place does not exist.
func (r *PlaceRepo) Update(ctx context.Context, db database.Querier, placeID int64, u PlaceUpdate) (UpdatedPlace, error) {
	sets := []string{}
	args := []any{}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if u.Name != nil {
		add("name", *u.Name)
	}
	if u.City != nil {
		add("city", *u.City)
	}
	if u.State != nil {
		add("state", *u.State)
	}
	if u.Country != nil {
		add("country", *u.Country)
	}
	if u.Lat != nil && u.Lon != nil {
		add("lat", *u.Lat)
		add("lon", *u.Lon)
		args = append(args, *u.Lon, *u.Lat)
		sets = append(sets, fmt.Sprintf("geom = ST_SetSRID(ST_MakePoint($%d, $%d), 4326)", len(args)-1, len(args)))
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, placeID)

	var up UpdatedPlace
	sql := fmt.Sprintf(`
		UPDATE places SET %s WHERE id = $%d
		RETURNING id, name, city, state, country, lat, lon, updated_at::text`,
		strings.Join(sets, ", "), len(args))
	err := db.QueryRow(ctx, sql, args...).
		Scan(&up.ID, &up.Name, &up.City, &up.State, &up.Country, &up.Lat, &up.Lon, &up.UpdatedAt)
	if err != nil {
		return up, pgErr(err)
	}
	return up, nil
}

// Owner returns the creator of a place, nil for dataset rows imported
// without one. ErrNotFound when the place does not exist.
func (r *PlaceRepo) Owner(ctx context.Context, db database.Querier, placeID int64) (*int64, error) {
	var owner *int64
	err := db.QueryRow(ctx, "SELECT created_by FROM places WHERE id = $1", placeID).Scan(&owner)
	if err != nil {
		return nil, pgErr(err)
	}
	return owner, nil
}

// Delete removes a place; the type extension row goes with it via the
// cascading foreign key. Returns the deleted place's name.
func (r *PlaceRepo) Delete(ctx context.Context, db database.Querier, placeID int64) (string, error) {
	var name string
	err := db.QueryRow(ctx, "DELETE FROM places WHERE id = $1 RETURNING name", placeID).Scan(&name)
	if err != nil {
		return "", pgErr(err)
	}
	return name, nil
}

// MyAdded lists the places a user created, newest first.
func (r *PlaceRepo) MyAdded(ctx context.Context, db database.Querier, userID int64) ([]model.OwnedPlace, error) {
	rows, err := db.Query(ctx, `
		SELECT p.id, p.name, COALESCE(p.city, ''), COALESCE(p.state, ''), COALESCE(p.country, ''),
		       p.lat, p.lon, COALESCE(pwt.place_type, 'unknown'), p.created_at, p.updated_at
		FROM places p
		LEFT JOIN places_with_types pwt ON p.id = pwt.id
		WHERE p.created_by = $1
		ORDER BY p.created_at DESC`, userID)
	if err != nil {
		return nil, pgErr(err)
	}
	defer rows.Close()
	out := []model.OwnedPlace{}
	for rows.Next() {
		var op model.OwnedPlace
		if err := rows.Scan(&op.ID, &op.Name, &op.City, &op.State, &op.Country,
			&op.Lat, &op.Lon, &op.PlaceType, &op.CreatedAt, &op.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, op)
	}
	return out, rows.Err()
}
