package database

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"geoplaces/internal/model"
)

// Querier is the subset of pgx operations repositories run. It is
// satisfied by *pgxpool.Conn, *pgx.Conn and pgx.Tx, so the same query code
// serves pooled, direct and transactional paths.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Conn is a role-scoped database connection handed out by the Router.
// Exactly one of the backing fields is set; the zero Conn is inert and
// safe to Release, which lets tests construct one without a database.
type Conn struct {
	pooled *pgxpool.Conn
	direct *pgx.Conn
}

func (c *Conn) querier() Querier {
	if c.pooled != nil {
		return c.pooled
	}
	return c.direct
}

func (c *Conn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return c.querier().Exec(ctx, sql, args...)
}

func (c *Conn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return c.querier().Query(ctx, sql, args...)
}

func (c *Conn) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return c.querier().QueryRow(ctx, sql, args...)
}

// Begin opens a transaction on the underlying connection.
func (c *Conn) Begin(ctx context.Context) (pgx.Tx, error) {
	if c.pooled != nil {
		return c.pooled.Begin(ctx)
	}
	if c.direct != nil {
		return c.direct.Begin(ctx)
	}
	return nil, fmt.Errorf("begin on zero connection")
}

// Release returns the connection to its pool, or closes it if it was a
// direct fallback connection. Safe on the zero Conn.
func (c *Conn) Release() {
	switch {
	case c == nil:
	case c.pooled != nil:
		c.pooled.Release()
		c.pooled = nil
	case c.direct != nil:
		_ = c.direct.Close(context.Background())
		c.direct = nil
	}
}

// Router hands out connections authenticated as the database login behind
// each application role. Pools are created lazily on first use of a role
// and cached for the life of the process; if pooled acquisition fails the
// router makes one unpooled connection attempt before giving up, so a
// saturated pool degrades to slow rather than broken.
type Router struct {
	baseURL  string
	minConns int32
	maxConns int32
	roles    *model.Registry

	mu    sync.Mutex
	pools map[string]*pgxpool.Pool
}

// NewRouter builds a Router over the base database URL. No connections
// are opened until a role is first used.
func NewRouter(baseURL string, minConns, maxConns int32, roles *model.Registry) *Router {
	return &Router{
		baseURL:  baseURL,
		minConns: minConns,
		maxConns: maxConns,
		roles:    roles,
		pools:    make(map[string]*pgxpool.Pool),
	}
}

// RoleDatabaseURL swaps the role's database credentials into the base URL.
func RoleDatabaseURL(baseURL string, info model.RoleInfo) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse database url: %w", err)
	}
	if info.DBUser != "" {
		if info.DBPassword != "" {
			u.User = url.UserPassword(info.DBUser, info.DBPassword)
		} else {
			u.User = url.User(info.DBUser)
		}
	}
	return u.String(), nil
}

// Acquire returns a connection authenticated as the given role's database
// login, or with the base credentials for RoleNone. The caller must
// Release it.
func (r *Router) Acquire(ctx context.Context, role model.Role) (*Conn, error) {
	if role == model.RoleNone {
		return r.connect(ctx, r.baseURL)
	}
	info, ok := r.roles.Get(role)
	if !ok {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	dbURL, err := RoleDatabaseURL(r.baseURL, info)
	if err != nil {
		return nil, err
	}
	return r.connect(ctx, dbURL)
}

// AcquireAdmin returns a connection with full privileges, for maintenance
// paths that must not depend on the caller's role. It prefers the admin
// role's credentials and falls back to the base URL.
func (r *Router) AcquireAdmin(ctx context.Context) (*Conn, error) {
	if info, ok := r.roles.Get(model.RoleAdmin); ok {
		if dbURL, err := RoleDatabaseURL(r.baseURL, info); err == nil {
			if conn, err := r.connect(ctx, dbURL); err == nil {
				return conn, nil
			}
		}
	}
	return r.connect(ctx, r.baseURL)
}

func (r *Router) connect(ctx context.Context, dbURL string) (*Conn, error) {
	pool, poolErr := r.pool(ctx, dbURL)
	if poolErr == nil {
		pc, err := pool.Acquire(ctx)
		if err == nil {
			return &Conn{pooled: pc}, nil
		}
		poolErr = err
	}

	// One unpooled attempt before reporting failure.
	direct, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", poolErr)
	}
	return &Conn{direct: direct}, nil
}

func (r *Router) pool(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.pools[dbURL]; ok {
		return p, nil
	}
	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	cfg.MinConns = r.minConns
	cfg.MaxConns = r.maxConns
	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	r.pools[dbURL] = p
	return p, nil
}

// Close shuts down every pool the router has created.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for u, p := range r.pools {
		p.Close()
		delete(r.pools, u)
	}
}
