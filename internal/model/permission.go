package model

// Action identifies a permission-gated mutation.
type Action string

const (
	ActionAddPlace    Action = "add_place"
	ActionUpdatePlace Action = "update_place"
	ActionDeletePlace Action = "delete_place"
	ActionUploadCSV   Action = "upload_csv"
)

// DenyReason distinguishes the ways an authorization check can fail so
// handlers can map each to the right HTTP status.
type DenyReason string

const (
	DenyNotAuthenticated DenyReason = "not authenticated"
	DenyInsufficientRole DenyReason = "insufficient role"
	DenyNotOwner         DenyReason = "not resource owner"
)

// Decision is the outcome of an authorization check. A denial never
// surfaces as an error value; it carries a reason and a message suitable
// for the response envelope.
type Decision struct {
	Allowed bool
	Reason  DenyReason
	Message string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason DenyReason, msg string) Decision {
	return Decision{Reason: reason, Message: msg}
}

// actionRoles lists which roles may attempt each action. Ownership checks
// are layered on top for non-admin update/delete.
var actionRoles = map[Action][]Role{
	ActionAddPlace:    {RoleAdmin, RoleApp, RoleCurator},
	ActionUpdatePlace: {RoleAdmin, RoleApp, RoleCurator},
	ActionDeletePlace: {RoleAdmin, RoleCurator},
	ActionUploadCSV:   {RoleAdmin},
}

// Authorize gates a mutation. owner is the creator of the target resource
// (nil when the action creates a new resource or the creator is unknown),
// requester is the authenticated user's id (nil for pure role logins).
// RoleAdmin bypasses ownership; everyone else must own the resource they
// update or delete. The database's own grants still apply afterwards.
func Authorize(role Role, action Action, owner, requester *int64) Decision {
	if role == RoleNone {
		return deny(DenyNotAuthenticated, "Please login first")
	}

	allowed := actionRoles[action]
	ok := false
	for _, r := range allowed {
		if r == role {
			ok = true
			break
		}
	}
	if !ok {
		return deny(DenyInsufficientRole,
			"User '"+string(role)+"' does not have permission for this operation")
	}

	// Ownership only matters for mutations of existing rows, and admin
	// may touch anything.
	if role == RoleAdmin || (action != ActionUpdatePlace && action != ActionDeletePlace) {
		return allow()
	}
	if owner == nil || requester == nil || *owner != *requester {
		return deny(DenyNotOwner, "You can only modify places you created")
	}
	return allow()
}
