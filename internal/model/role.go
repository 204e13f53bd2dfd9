package model

// Role is the closed set of database-credentialed login identities. Each
// role maps to a PostgreSQL login of the same name; the database's own
// grants remain authoritative, the application-level permission set is
// advisory and exists to fail fast with a useful message.
type Role string

const (
	// RoleNone marks an unauthenticated request.
	RoleNone Role = ""
	// RoleReadonly can only read data.
	RoleReadonly Role = "readonly_user"
	// RoleApp can read and write place data.
	RoleApp Role = "app_user"
	// RoleCurator can read, write and use analytics features.
	RoleCurator Role = "curator_user"
	// RoleAnalyst can read data and use analytics features.
	RoleAnalyst Role = "analyst_user"
	// RoleAdmin has full access, including bulk upload.
	RoleAdmin Role = "admin_user"
)

// Permission names mirror the SQL grants issued to each database role.
type Permission string

const (
	PermSelect    Permission = "SELECT"
	PermInsert    Permission = "INSERT"
	PermUpdate    Permission = "UPDATE"
	PermAnalytics Permission = "ANALYTICS"
	PermAll       Permission = "ALL"
)

// RoleInfo carries everything the process needs to know about one role:
// the shared login password, the database credentials the connection
// router uses, and the advisory permission set.
type RoleInfo struct {
	Name        Role
	Password    string
	DBUser      string
	DBPassword  string
	Permissions []Permission
	Description string
}

// Can reports whether the permission set includes p. RoleAdmin's ALL
// grant matches every permission.
func (ri RoleInfo) Can(p Permission) bool {
	for _, have := range ri.Permissions {
		if have == PermAll || have == p {
			return true
		}
	}
	return false
}

// Registry is the immutable role table loaded at process start.
type Registry struct {
	order []Role
	roles map[Role]RoleInfo
}

// NewRegistry builds a registry preserving the order the roles were given
// in, which is also the order list endpoints report them in.
func NewRegistry(infos ...RoleInfo) *Registry {
	r := &Registry{roles: make(map[Role]RoleInfo, len(infos))}
	for _, ri := range infos {
		if _, dup := r.roles[ri.Name]; dup {
			continue
		}
		r.order = append(r.order, ri.Name)
		r.roles[ri.Name] = ri
	}
	return r
}

// Lookup resolves a role by its login name.
func (r *Registry) Lookup(name string) (RoleInfo, bool) {
	ri, ok := r.roles[Role(name)]
	return ri, ok
}

// Get resolves a known role. The zero RoleInfo is returned for RoleNone
// or unknown values.
func (r *Registry) Get(role Role) (RoleInfo, bool) {
	ri, ok := r.roles[role]
	return ri, ok
}

// All returns the roles in registration order.
func (r *Registry) All() []RoleInfo {
	out := make([]RoleInfo, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.roles[name])
	}
	return out
}
