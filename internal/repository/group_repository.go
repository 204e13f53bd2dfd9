package repository

import (
	"context"
	"errors"

	"geoplaces/internal/database"
	"geoplaces/internal/model"
)

// GroupRepo manages collaboration groups and their membership.
type GroupRepo struct{}

func NewGroupRepo() *GroupRepo { return &GroupRepo{} }

// Create makes a group and enrolls the creator as its admin member in
// one transaction.
func (r *GroupRepo) Create(ctx context.Context, conn *database.Conn, name, description string, creatorID int64) (model.Group, error) {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return model.Group{}, pgErr(err)
	}
	defer tx.Rollback(ctx)

	g := model.Group{Name: name, Description: description, CreatedBy: creatorID}
	err = tx.QueryRow(ctx, `
		INSERT INTO groups (name, description, created_by)
		VALUES ($1, $2, $3)
		RETURNING group_id, created_at`,
		name, description, creatorID).Scan(&g.ID, &g.CreatedAt)
	if err != nil {
		return model.Group{}, pgErr(err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO group_members (group_id, user_id, role)
		VALUES ($1, $2, 'admin')`,
		g.ID, creatorID)
	if err != nil {
		return model.Group{}, pgErr(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Group{}, pgErr(err)
	}
	return g, nil
}

// ForUser lists the groups the user belongs to, most recently joined
// first.
func (r *GroupRepo) ForUser(ctx context.Context, db database.Querier, userID int64) ([]model.GroupSummary, error) {
	rows, err := db.Query(ctx, `
		SELECT g.group_id, g.name, COALESCE(g.description, ''), g.created_by, g.created_at,
		       u.username, gm.role, gm.joined_at,
		       (SELECT COUNT(*) FROM group_members WHERE group_id = g.group_id)
		FROM groups g
		JOIN group_members gm ON gm.group_id = g.group_id
		JOIN users u ON u.user_id = g.created_by
		WHERE gm.user_id = $1
		ORDER BY gm.joined_at DESC`, userID)
	if err != nil {
		return nil, pgErr(err)
	}
	defer rows.Close()
	out := []model.GroupSummary{}
	for rows.Next() {
		var gs model.GroupSummary
		if err := rows.Scan(&gs.ID, &gs.Name, &gs.Description, &gs.CreatedBy, &gs.CreatedAt,
			&gs.CreatorUsername, &gs.YourRole, &gs.JoinedAt, &gs.MemberCount); err != nil {
			return nil, err
		}
		out = append(out, gs)
	}
	return out, rows.Err()
}

// MemberRole reports the user's role in a group, with ok=false for
// non-members.
func (r *GroupRepo) MemberRole(ctx context.Context, db database.Querier, groupID, userID int64) (model.GroupRole, bool, error) {
	var role model.GroupRole
	err := db.QueryRow(ctx, `
		SELECT role FROM group_members WHERE group_id = $1 AND user_id = $2`,
		groupID, userID).Scan(&role)
	if err != nil {
		if errors.Is(pgErr(err), ErrNotFound) {
			return "", false, nil
		}
		return "", false, pgErr(err)
	}
	return role, true, nil
}

// Details loads a group and its member list.
func (r *GroupRepo) Details(ctx context.Context, db database.Querier, groupID int64) (model.Group, []model.Member, error) {
	var g model.Group
	err := db.QueryRow(ctx, `
		SELECT group_id, name, COALESCE(description, ''), created_by, created_at
		FROM groups WHERE group_id = $1`,
		groupID).Scan(&g.ID, &g.Name, &g.Description, &g.CreatedBy, &g.CreatedAt)
	if err != nil {
		return model.Group{}, nil, pgErr(err)
	}

	rows, err := db.Query(ctx, `
		SELECT u.user_id, u.username, u.email, gm.role, gm.joined_at
		FROM group_members gm
		JOIN users u ON u.user_id = gm.user_id
		WHERE gm.group_id = $1
		ORDER BY gm.joined_at`, groupID)
	if err != nil {
		return model.Group{}, nil, pgErr(err)
	}
	defer rows.Close()
	members := []model.Member{}
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.UserID, &m.Username, &m.Email, &m.Role, &m.JoinedAt); err != nil {
			return model.Group{}, nil, err
		}
		members = append(members, m)
	}
	return g, members, rows.Err()
}

// AddMember enrolls a user as a regular member. ErrConflict when they
// already belong.
func (r *GroupRepo) AddMember(ctx context.Context, db database.Querier, groupID, userID int64) error {
	_, err := db.Exec(ctx, `
		INSERT INTO group_members (group_id, user_id, role)
		VALUES ($1, $2, 'member')`,
		groupID, userID)
	err = pgErr(err)
	if errors.Is(err, ErrDuplicate) {
		return ErrConflict
	}
	return err
}

// RemoveMember drops a membership, reporting whether it existed.
func (r *GroupRepo) RemoveMember(ctx context.Context, db database.Querier, groupID, memberID int64) (bool, error) {
	tag, err := db.Exec(ctx, `
		DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`,
		groupID, memberID)
	if err != nil {
		return false, pgErr(err)
	}
	return tag.RowsAffected() > 0, nil
}

// Places returns every place at least one member has listed, with the
// full member status matrix, in one query instead of one per place.
func (r *GroupRepo) Places(ctx context.Context, db database.Querier, groupID int64) ([]model.GroupPlace, error) {
	rows, err := db.Query(ctx, `
		WITH members AS (
			SELECT gm.user_id, u.username
			FROM group_members gm
			JOIN users u ON u.user_id = gm.user_id
			WHERE gm.group_id = $1
		), group_places AS (
			SELECT p.id, p.name, COALESCE(p.city, '') AS city, COALESCE(p.state, '') AS state,
			       COALESCE(p.country, '') AS country, p.lat, p.lon,
			       COALESCE(pwt.place_type, 'unknown') AS place_type
			FROM places p
			LEFT JOIN places_with_types pwt ON pwt.id = p.id
			WHERE p.id IN (
				SELECT place_id FROM user_visited_places WHERE user_id IN (SELECT user_id FROM members)
				UNION
				SELECT place_id FROM user_wishlist WHERE user_id IN (SELECT user_id FROM members)
				UNION
				SELECT place_id FROM user_liked_places WHERE user_id IN (SELECT user_id FROM members)
			)
		)
		SELECT gp.id, gp.name, gp.city, gp.state, gp.country, gp.lat, gp.lon, gp.place_type,
		       m.user_id, m.username,
		       EXISTS (SELECT 1 FROM user_visited_places v WHERE v.user_id = m.user_id AND v.place_id = gp.id),
		       EXISTS (SELECT 1 FROM user_wishlist w WHERE w.user_id = m.user_id AND w.place_id = gp.id),
		       EXISTS (SELECT 1 FROM user_liked_places l WHERE l.user_id = m.user_id AND l.place_id = gp.id)
		FROM group_places gp
		CROSS JOIN members m
		ORDER BY gp.name, gp.id, m.username`, groupID)
	if err != nil {
		return nil, pgErr(err)
	}
	defer rows.Close()

	out := []model.GroupPlace{}
	var cur *model.GroupPlace
	for rows.Next() {
		var gp model.GroupPlace
		var ms model.MemberStatus
		if err := rows.Scan(&gp.ID, &gp.Name, &gp.City, &gp.State, &gp.Country, &gp.Lat, &gp.Lon,
			&gp.PlaceType, &ms.UserID, &ms.Username, &ms.Visited, &ms.InWishlist, &ms.Liked); err != nil {
			return nil, err
		}
		if cur == nil || cur.ID != gp.ID {
			out = append(out, gp)
			cur = &out[len(out)-1]
		}
		cur.Members = append(cur.Members, ms)
	}
	return out, rows.Err()
}
