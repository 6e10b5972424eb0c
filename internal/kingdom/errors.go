package kingdom

import "errors"

// Registry errors. All are user-facing and recoverable; operations that
// return one of these have not mutated any state.
var (
	// Validation
	ErrNameInvalid    = errors.New("invalid kingdom name")
	ErrUnknownColor   = errors.New("unknown color")
	ErrUnknownKingdom = errors.New("unknown kingdom")

	// Permission
	ErrNoPermission = errors.New("insufficient role for this operation")

	// State conflict
	ErrNameTaken        = errors.New("kingdom name already taken")
	ErrAlreadyMember    = errors.New("already a member of a kingdom")
	ErrNotMember        = errors.New("not a member of any kingdom")
	ErrMemberUnknown    = errors.New("target is not a member of this kingdom")
	ErrNoChange         = errors.New("operation would change nothing")
	ErrInviteSelf       = errors.New("cannot invite yourself")
	ErrInviteExists     = errors.New("invite already pending")
	ErrLeaderHasMembers = errors.New("owner cannot leave while the kingdom has members")
	ErrOwnerCannotMove  = errors.New("kingdom owners cannot be reassigned to another kingdom")
	ErrLeaderTransfer   = errors.New("leadership cannot be reassigned")

	// Not found
	ErrNoInvite = errors.New("no pending invite from this kingdom")
)
