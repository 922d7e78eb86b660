// Package apperr defines the typed failures surfaced by the booking engine.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the broad category of a failure.
type Kind string

const (
	KindNotFound     Kind = "NOT_FOUND"
	KindConflict     Kind = "CONFLICT"
	KindInvalidState Kind = "INVALID_STATE"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindInvalidInput Kind = "INVALID_INPUT"
)

// Error is a user-correctable failure. Code identifies the precise reason.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Code when the target carries one, otherwise on Kind, so both
// errors.Is(err, ErrSlotAlreadyLocked) and errors.Is(err, ErrConflict) work.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != "" {
		return e.Code == t.Code
	}
	return e.Kind == t.Kind
}

// Withf returns a copy of e with a more specific message.
func (e *Error) Withf(format string, args ...any) *Error {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

// Wrap returns a copy of e carrying err as its cause.
func (e *Error) Wrap(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

func newErr(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Kind matchers.
var (
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrInvalidState = &Error{Kind: KindInvalidState}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrInvalidInput = &Error{Kind: KindInvalidInput}
)

// Not found.
var (
	ErrTurfNotFound         = newErr(KindNotFound, "TURF_NOT_FOUND", "turf not found")
	ErrSlotNotFound         = newErr(KindNotFound, "SLOT_NOT_FOUND", "slot not found")
	ErrBookingNotFound      = newErr(KindNotFound, "BOOKING_NOT_FOUND", "booking not found")
	ErrParticipantNotFound  = newErr(KindNotFound, "PARTICIPANT_NOT_FOUND", "participant not found")
	ErrNotificationNotFound = newErr(KindNotFound, "NOTIFICATION_NOT_FOUND", "notification not found")
)

// Conflicts.
var (
	ErrSlotUnavailable      = newErr(KindConflict, "SLOT_UNAVAILABLE", "slot is not available")
	ErrSlotAlreadyLocked    = newErr(KindConflict, "SLOT_ALREADY_LOCKED", "slot is currently locked by another user")
	ErrSlotAlreadyBooked    = newErr(KindConflict, "SLOT_ALREADY_BOOKED", "slot is already booked")
	ErrDuplicateParticipant = newErr(KindConflict, "DUPLICATE_PARTICIPANT", "user is already a participant")
	ErrHolderIsParticipant  = newErr(KindConflict, "HOLDER_IS_PARTICIPANT", "booking holder cannot be added as a participant")
	ErrNotHolder            = newErr(KindConflict, "NOT_HOLDER", "slot lock is held by another user")
)

// Invalid state.
var (
	ErrBookingState     = newErr(KindInvalidState, "INVALID_STATE", "operation is not allowed in the current booking status")
	ErrNotConfirmed     = newErr(KindInvalidState, "NOT_CONFIRMED", "booking is not confirmed")
	ErrAlreadyCheckedIn = newErr(KindInvalidState, "ALREADY_CHECKED_IN", "booking is already checked in")
)

// Unauthorized.
var (
	ErrNotBookingHolder = newErr(KindUnauthorized, "NOT_BOOKING_HOLDER", "user does not hold this booking")
	ErrNotTurfOwner     = newErr(KindUnauthorized, "NOT_TURF_OWNER", "user does not own this turf")
)

// Invalid input.
var (
	ErrInvalidCode    = newErr(KindInvalidInput, "INVALID_CODE", "invalid check-in code")
	ErrInvalidStatus  = newErr(KindInvalidInput, "INVALID_STATUS", "invalid participant status")
	ErrInvalidRequest = newErr(KindInvalidInput, "INVALID_INPUT", "invalid input")
)

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// HTTPStatus maps err onto the status code the API responds with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindInvalidState:
		return http.StatusUnprocessableEntity
	case KindUnauthorized:
		return http.StatusForbidden
	case KindInvalidInput:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
