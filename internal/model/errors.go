package model

import (
	"errors"
	"fmt"
)

// Category errors. Every specific error below wraps exactly one of these so
// callers can branch on the class with errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrStateConflict = errors.New("state conflict")
	ErrInvalidInput  = errors.New("invalid input")
)

// Contention: the request was valid but the ticket type ran out.
var ErrInsufficientInventory = errors.New("insufficient inventory")

var (
	ErrTicketTypeNotFound = fmt.Errorf("ticket type %w", ErrNotFound)
	ErrBookingNotFound    = fmt.Errorf("booking %w", ErrNotFound)
)

// ErrForbidden is returned when the requester is neither the booking owner
// nor an administrator.
var ErrForbidden = errors.New("forbidden")

var (
	ErrInvalidTransition = fmt.Errorf("%w: checked-in booking cannot be canceled", ErrStateConflict)
	ErrAlreadyCanceled   = fmt.Errorf("%w: booking already canceled", ErrStateConflict)
	ErrAlreadyCheckedIn  = fmt.Errorf("%w: booking already checked in", ErrStateConflict)
	ErrNotBooked         = fmt.Errorf("%w: booking is not in BOOKED state", ErrStateConflict)
)

// ErrConcurrentUpdate means a conditional state change matched nothing yet a
// fresh read still shows the booking as BOOKED. Callers may retry.
var ErrConcurrentUpdate = fmt.Errorf("%w: booking changed concurrently", ErrStateConflict)

// ErrIntegrityViolation means an operation would break the inventory
// invariant. It is never persisted; the statement predicates refuse it.
var ErrIntegrityViolation = errors.New("inventory integrity violation")

var (
	ErrInvalidQuantity = fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
	ErrInvalidLimit    = fmt.Errorf("%w: limit must not be negative", ErrInvalidInput)
	ErrInvalidPrice    = fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
)

// ErrTicketTypeExists is reported by storage when a ticket type is inserted
// twice for the same event.
var ErrTicketTypeExists = errors.New("ticket type already exists")

// ErrDuplicateCode is reported by storage when a booking code collides with
// the unique index.
var ErrDuplicateCode = errors.New("duplicate booking code")
