package kingdom

import "strings"

// Role is a member's rank within a kingdom.
type Role int32

const (
	RoleLeader Role = iota
	RoleOfficer
	RolePolitician
	RoleMilitary
	RoleCitizen
)

var roleNames = [...]string{
	"leader", "officer", "politician", "military", "citizen",
}

// Kill point values by victim role. Citizens are excluded from scoring
// entirely before this table is consulted.
var killPointsByRole = map[Role]int{
	RoleMilitary:   25,
	RolePolitician: 50,
	RoleOfficer:    150,
	RoleLeader:     500,
}

// Valid returns true for a known role.
func (r Role) Valid() bool {
	return r >= RoleLeader && r <= RoleCitizen
}

// String returns the lowercase role name.
func (r Role) String() string {
	if !r.Valid() {
		return roleNames[RoleCitizen]
	}
	return roleNames[r]
}

// ID returns the numeric role id.
func (r Role) ID() int32 { return int32(r) }

// IsCommandRank reports whether the role may run kingdom-level commands
// (recolor, role assignment, war request responses).
func (r Role) IsCommandRank() bool {
	return r == RoleLeader || r == RoleOfficer
}

// CanInvite reports whether the role may invite new members.
func (r Role) CanInvite() bool {
	return r == RoleLeader || r == RolePolitician
}

// KillPoints returns the score awarded for killing a member of this role.
func (r Role) KillPoints() int {
	return killPointsByRole[r]
}

// RoleByName resolves a role name case-insensitively.
// Returns (RoleCitizen, false) for unknown names.
func RoleByName(name string) (Role, bool) {
	lower := strings.ToLower(strings.TrimSpace(name))
	for i, n := range roleNames {
		if n == lower {
			return Role(i), true
		}
	}
	return RoleCitizen, false
}
