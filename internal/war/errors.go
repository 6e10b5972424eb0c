package war

import "errors"

var (
	ErrNotMember      = errors.New("not in a kingdom")
	ErrNoPermission   = errors.New("insufficient rank")
	ErrNotAKingdom    = errors.New("group has not claimed enough territory")
	ErrUnknownKingdom = errors.New("unknown kingdom")
	ErrSelfTarget     = errors.New("cannot target own kingdom")
	ErrAlreadyAtWar   = errors.New("kingdom is already at war")
	ErrTargetBusy     = errors.New("target kingdom is already at war")
	ErrNotAtWar       = errors.New("kingdom is not at war")
	ErrRequestPending = errors.New("war assistance request already pending")
	ErrNoRequest      = errors.New("no such war assistance request")
	ErrSurrenderEarly = errors.New("too early to surrender")
)
