// Package shared holds the error kinds and identifiers every gradebook
// domain package builds on.
package shared

import (
	"errors"
	"fmt"
)

// Error kinds. Domain errors wrap one of these so callers can classify a
// failure with errors.Is without knowing which aggregate produced it.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	ErrValidation      = errors.New("validation failed")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("empty value")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrFutureTimestamp = errors.New("date is in the future")
	ErrInvalidFormat   = errors.New("malformed value")

	ErrInvalidState     = errors.New("invalid state")
	ErrAlreadyProcessed = errors.New("already processed")

	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrServiceUnavailable marks a backing store that could not be reached.
	ErrServiceUnavailable = errors.New("service unavailable")
)

// validationKinds are the kinds the API reports as 400.
var validationKinds = []error{
	ErrValidation, ErrInvalidInput, ErrEmptyValue,
	ErrValueOutOfRange, ErrFutureTimestamp, ErrInvalidFormat,
}

// conflictKinds are the kinds the API reports as 409.
var conflictKinds = []error{ErrAlreadyExists, ErrAlreadyProcessed, ErrInvalidState}

// DomainError is a failure raised by one aggregate. Kind is the
// classification, Err the optional cause.
type DomainError struct {
	Domain  string
	Op      string
	Kind    error
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	msg := e.Domain + "." + e.Op + ": " + e.Message
	if e.Err == nil {
		return msg
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

// Unwrap exposes the cause, or the kind when there is none.
func (e *DomainError) Unwrap() error {
	if e.Err == nil {
		return e.Kind
	}
	return e.Err
}

// Is matches against both the kind and the cause.
func (e *DomainError) Is(target error) bool {
	return (e.Kind != nil && errors.Is(e.Kind, target)) ||
		(e.Err != nil && errors.Is(e.Err, target))
}

// NewDomainError builds a sentinel-style domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message}
}

// WrapError attaches an aggregate, an operation and a kind to err.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message, Err: err}
}

// Student domain errors
var (
	ErrStudentNotFound      = NewDomainError("student", "Find", ErrNotFound, "student not found")
	ErrStudentAlreadyExists = NewDomainError("student", "Create", ErrAlreadyExists, "enrollment number already registered")
	ErrStudentNotActive     = NewDomainError("student", "CheckStatus", ErrInvalidState, "student is not active")
	ErrInvalidStudentName   = NewDomainError("student", "Validate", ErrEmptyValue, "student name is required")
	ErrInvalidEnrollment    = NewDomainError("student", "Validate", ErrInvalidInput, "enrollment number is required")
)

// Activity domain errors
var (
	ErrActivityNotFound  = NewDomainError("activity", "Find", ErrNotFound, "activity not found")
	ErrActivityNotActive = NewDomainError("activity", "CheckStatus", ErrInvalidState, "activity is not active")
	ErrInvalidMaxValue   = NewDomainError("activity", "Validate", ErrValueOutOfRange, "max value must be greater than 0 and at most 10")
	ErrInvalidActivity   = NewDomainError("activity", "Validate", ErrEmptyValue, "activity name is required")
)

// Grade domain errors
var (
	ErrGradeNotFound      = NewDomainError("grade", "Find", ErrNotFound, "grade not found")
	ErrGradeAlreadyExists = NewDomainError("grade", "Create", ErrAlreadyExists, "student already has a grade for this activity")
	ErrGradeOutOfRange    = NewDomainError("grade", "Validate", ErrValueOutOfRange, "grade must be between 0 and the activity max value")
)

// Attendance domain errors
var (
	ErrAttendanceNotFound      = NewDomainError("attendance", "Find", ErrNotFound, "attendance record not found")
	ErrAttendanceAlreadyExists = NewDomainError("attendance", "Create", ErrAlreadyExists, "attendance already recorded for this student on this date")
	ErrAttendanceInFuture      = NewDomainError("attendance", "Validate", ErrFutureTimestamp, "attendance date cannot be in the future")
)

// Group domain errors
var (
	ErrGroupNotFound      = NewDomainError("group", "Find", ErrNotFound, "group not found")
	ErrGroupAlreadyExists = NewDomainError("group", "Create", ErrAlreadyExists, "group already exists")
	ErrMembershipNotFound = NewDomainError("group", "RemoveMember", ErrNotFound, "student is not a member of this group")
	ErrLeaderNotMember    = NewDomainError("group", "Validate", ErrInvalidInput, "group leader must be a member of the group")
	ErrInvalidGroupName   = NewDomainError("group", "Validate", ErrEmptyValue, "group name is required")
)

// Reward domain errors
var (
	ErrDrawNotFound       = NewDomainError("reward", "Find", ErrNotFound, "reward draw not found")
	ErrAlreadyRedeemed    = NewDomainError("reward", "Redeem", ErrAlreadyProcessed, "reward already redeemed")
	ErrInvalidRewardTable = NewDomainError("reward", "Draw", ErrInvalidConfiguration, "reward table is empty or has no positive weight")
	ErrUnknownCategory    = NewDomainError("reward", "Validate", ErrInvalidInput, "unknown reward category")
)

func isAny(err error, kinds []error) bool {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err is a missing-entity failure.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsValidation reports whether err was caused by bad input.
func IsValidation(err error) bool { return isAny(err, validationKinds) }

// IsConflict reports whether err clashes with stored state.
func IsConflict(err error) bool { return isAny(err, conflictKinds) }
