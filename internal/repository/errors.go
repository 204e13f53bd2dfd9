// Package repository holds the data access layer. Sentinel errors defined
// here let handlers distinguish failure scenarios without inspecting
// driver internals: ErrNotFound maps to 404, ErrDuplicate to 400/409,
// ErrPrivilege to the database-rejected flavor of 403.
package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a unique constraint rejects an insert,
// such as registering a username that is already taken.
var ErrDuplicate = errors.New("duplicate")

// ErrPrivilege is returned when PostgreSQL itself rejects an operation
// for lack of a grant. Application-level permission checks are advisory;
// this error is the authoritative denial.
var ErrPrivilege = errors.New("insufficient database privilege")

// ErrConflict is returned when an operation cannot proceed because of
// existing state, such as adding a member who already belongs to a group.
var ErrConflict = errors.New("conflict")

// pgErr translates driver errors into the package sentinels, preserving
// the original as wrapped context. SQLSTATE 23505 is unique_violation,
// 42501 insufficient_privilege, 23503 foreign_key_violation.
func pgErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pge *pgconn.PgError
	if errors.As(err, &pge) {
		switch pge.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrDuplicate, pge.ConstraintName)
		case "42501":
			return fmt.Errorf("%w: %s", ErrPrivilege, pge.Message)
		case "23503":
			return fmt.Errorf("%w: %s", ErrConflict, pge.ConstraintName)
		}
	}
	return err
}
