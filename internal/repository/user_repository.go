package repository

import (
	"context"

	"geoplaces/internal/database"
	"geoplaces/internal/model"
)

// UserRepo manages registered accounts.
type UserRepo struct{}

func NewUserRepo() *UserRepo { return &UserRepo{} }

// Create registers an account. A taken username or email surfaces as
// ErrDuplicate via the unique constraints, so the check is race-free.
func (r *UserRepo) Create(ctx context.Context, db database.Querier, username, email, passwordHash string) (model.User, error) {
	u := model.User{Username: username, Email: email, PasswordHash: passwordHash}
	err := db.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING user_id, created_at`,
		username, email, passwordHash).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return model.User{}, pgErr(err)
	}
	return u, nil
}

// FindByUsername loads an account for login. ErrNotFound for unknown
// usernames; callers must not leak which of username/password failed.
func (r *UserRepo) FindByUsername(ctx context.Context, db database.Querier, username string) (model.User, error) {
	var u model.User
	err := db.QueryRow(ctx, `
		SELECT user_id, username, email, password_hash, created_at
		FROM users WHERE username = $1`,
		username).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return model.User{}, pgErr(err)
	}
	return u, nil
}

// IDByUsername resolves a username to its account id.
func (r *UserRepo) IDByUsername(ctx context.Context, db database.Querier, username string) (int64, error) {
	var id int64
	err := db.QueryRow(ctx, "SELECT user_id FROM users WHERE username = $1", username).Scan(&id)
	if err != nil {
		return 0, pgErr(err)
	}
	return id, nil
}

// Profile loads an account with its per-list counts.
func (r *UserRepo) Profile(ctx context.Context, db database.Querier, userID int64) (model.User, model.ListCounts, error) {
	var u model.User
	var c model.ListCounts
	err := db.QueryRow(ctx, `
		SELECT u.user_id, u.username, u.email, u.created_at,
		       (SELECT COUNT(*) FROM user_visited_places WHERE user_id = u.user_id),
		       (SELECT COUNT(*) FROM user_wishlist WHERE user_id = u.user_id),
		       (SELECT COUNT(*) FROM user_liked_places WHERE user_id = u.user_id)
		FROM users u WHERE u.user_id = $1`,
		userID).Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt, &c.Visited, &c.Wishlist, &c.Liked)
	if err != nil {
		return model.User{}, model.ListCounts{}, pgErr(err)
	}
	return u, c, nil
}

// Stats aggregates account activity across all users. Active means having
// at least one list entry.
func (r *UserRepo) Stats(ctx context.Context, db database.Querier) (model.UserStats, error) {
	var s model.UserStats
	err := db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(DISTINCT user_id) FROM (
				SELECT user_id FROM user_visited_places
				UNION
				SELECT user_id FROM user_wishlist
				UNION
				SELECT user_id FROM user_liked_places
			) active),
			(SELECT COUNT(*) FROM user_visited_places),
			(SELECT COUNT(*) FROM user_wishlist),
			(SELECT COUNT(*) FROM user_liked_places)`).
		Scan(&s.TotalUsers, &s.ActiveUsers, &s.Visited, &s.Wishlist, &s.Liked)
	return s, pgErr(err)
}
