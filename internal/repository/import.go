package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"geoplaces/internal/database"
	"geoplaces/internal/model"
)

// ImportPlace is one CSV row that survived field validation. Line is the
// 1-based file line, used in skip reports.
type ImportPlace struct {
	Line     int
	Place    model.Place
	Type     model.PlaceType
	TypeData model.TypeData
}

// ImportResult tallies a bulk import. Duplicates and Failures both count
// as skips; they are kept apart because a duplicate is expected on
// re-uploads while a failure means the database rejected the row.
type ImportResult struct {
	Inserted   int
	Duplicates []ImportFailure
	Failures   []ImportFailure
}

type ImportFailure struct {
	Line   int
	Reason string
}

// ImportPlaces inserts the rows inside one transaction committed at the
// end, so a file either lands atomically or not at all. Each row insert
// runs under its own savepoint: a rejected row rolls back to the
// savepoint and the batch continues. Duplicate source_ids are detected by
// the conditional insert returning no row.
func (r *PlaceRepo) ImportPlaces(ctx context.Context, conn *database.Conn, rows []ImportPlace) (ImportResult, error) {
	var res ImportResult
	tx, err := conn.Begin(ctx)
	if err != nil {
		return res, pgErr(err)
	}
	defer tx.Rollback(ctx)

	for _, row := range rows {
		// pgx nested transactions are savepoints.
		sp, err := tx.Begin(ctx)
		if err != nil {
			return res, pgErr(err)
		}

		var id int64
		err = sp.QueryRow(ctx, `
			INSERT INTO places (source_id, name, city, state, country, lat, lon, geom, created_by)
			SELECT $1, $2, $3, $4, $5, $6, $7, ST_SetSRID(ST_MakePoint($7, $6), 4326), $8
			WHERE NOT EXISTS (SELECT 1 FROM places WHERE source_id = $1)
			RETURNING id`,
			row.Place.SourceID, row.Place.Name, row.Place.City, row.Place.State,
			row.Place.Country, row.Place.Lat, row.Place.Lon, row.Place.CreatedBy).Scan(&id)
		if err == nil {
			err = insertExtension(ctx, sp, id, row.Type, row.TypeData)
		} else if errors.Is(err, pgx.ErrNoRows) {
			// No row returned: the source_id already exists.
			_ = sp.Rollback(ctx)
			res.Duplicates = append(res.Duplicates, ImportFailure{
				Line:   row.Line,
				Reason: fmt.Sprintf("duplicate source_id %q, skipped", row.Place.SourceID),
			})
			continue
		}

		if err != nil {
			_ = sp.Rollback(ctx)
			res.Failures = append(res.Failures, ImportFailure{
				Line:   row.Line,
				Reason: fmt.Sprintf("database rejected row: %v", pgErr(err)),
			})
			continue
		}
		if err := sp.Commit(ctx); err != nil {
			return res, pgErr(err)
		}
		res.Inserted++
	}

	if err := tx.Commit(ctx); err != nil {
		return res, pgErr(err)
	}
	return res, nil
}
