package services

import (
	"errors"

	"freshersTicketAPI/internal/rtdb"
)

// Domain errors surfaced by the ticketing workflows. Handlers map each of
// these to a distinct HTTP status; anything else is a transport failure
// and comes back wrapped.
var (
	ErrKeyNotFound          = errors.New("access key not found or inactive")
	ErrKeyExpired           = errors.New("access key has expired")
	ErrKeyExhausted         = errors.New("access key has reached its usage limit")
	ErrKeyAlreadyUsed       = errors.New("access key already used by this user")
	ErrKeyCodeTaken         = errors.New("access key code already exists")
	ErrInvalidKeyCode       = errors.New("access key code must be at least 8 characters")
	ErrDuplicateTicket      = errors.New("user already holds a ticket")
	ErrTicketNotFound       = errors.New("ticket not found")
	ErrTicketAlreadyScanned = errors.New("ticket already scanned")
	ErrProfileNotFound      = errors.New("user profile not found")

	// ErrConflict is transient: the backend reported unresolved contention
	// on a conditional update. The caller may retry once.
	ErrConflict = rtdb.ErrConflict
)
