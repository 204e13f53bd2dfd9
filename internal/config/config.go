package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"geoplaces/internal/model"
)

// Config holds all runtime configuration values. Every field has a working
// development default so the server starts with an empty environment; real
// deployments override via env vars or a .env file.
type Config struct {
	Env         string        // application environment (dev/test/prod)
	Port        string        // HTTP port to listen on
	DatabaseURL string        // base Postgres URL; per-role URLs are derived from it
	SecretKey   string        // signs session cookies and seeds token generation
	BcryptCost  int           // bcrypt cost for password hashing
	TokenTTL    time.Duration // auth token lifetime in the token store
	DBMinConns  int32         // minimum pooled connections per role
	DBMaxConns  int32         // maximum pooled connections per role
	RabbitURL   string        // AMQP broker for place change events; optional
	CORSOrigins []string      // allowed origins for browser clients
	Roles       *model.Registry
}

// Load reads configuration from environment variables, falling back to
// development defaults for anything unset.
func Load() Config {
	cfg := Config{
		Env:         getenv("APP_ENV", "dev"),
		Port:        getenv("APP_PORT", "5000"),
		DatabaseURL: getenv("DATABASE_URL", "postgresql://postgres@localhost:5432/geoapp"),
		SecretKey:   getenv("SECRET_KEY", "dev-secret-key-change-in-production"),
		BcryptCost:  envInt("BCRYPT_COST", 10),
		TokenTTL:    envDur("TOKEN_TTL", 1800*time.Second),
		DBMinConns:  int32(envInt("DB_MIN_CONNS", 2)),
		DBMaxConns:  int32(envInt("DB_MAX_CONNS", 10)),
		RabbitURL:   getenv("RABBITMQ_URL", ""),
		CORSOrigins: splitList(getenv("CORS_ORIGINS", "*")),
		Roles:       loadRoles(),
	}
	if cfg.DBMinConns < 1 {
		cfg.DBMinConns = 1
	}
	if cfg.DBMaxConns < cfg.DBMinConns {
		cfg.DBMaxConns = cfg.DBMinConns
	}
	return cfg
}

// loadRoles builds the role registry from built-in defaults, letting env
// vars override each role's login password and database credentials
// (e.g. ROLE_ADMIN_PASSWORD, ROLE_ADMIN_DB_USER, ROLE_ADMIN_DB_PASSWORD).
func loadRoles() *model.Registry {
	defaults := []model.RoleInfo{
		{
			Name:        model.RoleReadonly,
			Password:    "readonly_pass123",
			DBUser:      "readonly_user",
			DBPassword:  "readonly_pass123",
			Permissions: []model.Permission{model.PermSelect},
			Description: "Read-only access to places data",
		},
		{
			Name:        model.RoleApp,
			Password:    "app_pass123",
			DBUser:      "app_user",
			DBPassword:  "app_pass123",
			Permissions: []model.Permission{model.PermSelect, model.PermInsert, model.PermUpdate},
			Description: "Standard application access",
		},
		{
			Name:        model.RoleCurator,
			Password:    "curator_pass123",
			DBUser:      "curator_user",
			DBPassword:  "curator_pass123",
			Permissions: []model.Permission{model.PermSelect, model.PermInsert, model.PermUpdate, model.PermAnalytics},
			Description: "Content curation with analytics",
		},
		{
			Name:        model.RoleAnalyst,
			Password:    "analyst_pass123",
			DBUser:      "analyst_user",
			DBPassword:  "analyst_pass123",
			Permissions: []model.Permission{model.PermSelect, model.PermAnalytics},
			Description: "Read and analytics access",
		},
		{
			Name:        model.RoleAdmin,
			Password:    "admin_pass123",
			DBUser:      "admin_user",
			DBPassword:  "admin_pass123",
			Permissions: []model.Permission{model.PermAll},
			Description: "Full administrative access",
		},
	}
	for i := range defaults {
		key := roleEnvKey(defaults[i].Name)
		defaults[i].Password = getenv("ROLE_"+key+"_PASSWORD", defaults[i].Password)
		defaults[i].DBUser = getenv("ROLE_"+key+"_DB_USER", defaults[i].DBUser)
		defaults[i].DBPassword = getenv("ROLE_"+key+"_DB_PASSWORD", defaults[i].DBPassword)
	}
	return model.NewRegistry(defaults...)
}

// roleEnvKey turns "readonly_user" into "READONLY" for env var lookups.
func roleEnvKey(r model.Role) string {
	name := strings.TrimSuffix(string(r), "_user")
	return strings.ToUpper(name)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Shared env helpers used across the config loaders in this package.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
