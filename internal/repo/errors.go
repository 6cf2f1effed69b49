package repo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/librarydesk/circulation/internal/policy"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a referenced id does not exist
	ErrNotFound = errors.New("not found")

	// ErrPolicyViolation is returned when a borrowing rule refuses a transition
	ErrPolicyViolation = errors.New("policy violation")

	// ErrConflict is returned when a row changed underneath a transition
	ErrConflict = errors.New("concurrent modification")

	// ErrPermissionDenied is returned when the acting user lacks the required role
	ErrPermissionDenied = errors.New("permission denied")

	// ErrAlreadyExists is returned when creating something with a taken key
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidCredentials is returned when email or password do not match
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidArgument is returned for malformed input that reached the repository
	ErrInvalidArgument = errors.New("invalid argument")
)

var (
	ErrBookNotFound      = fmt.Errorf("book %w", ErrNotFound)
	ErrUserNotFound      = fmt.Errorf("user %w", ErrNotFound)
	ErrRecordNotFound    = fmt.Errorf("borrow record %w", ErrNotFound)
	ErrAlreadyReturned   = fmt.Errorf("borrow record already returned: %w", ErrNotFound)
	ErrBookAlreadyExists = fmt.Errorf("book %w", ErrAlreadyExists)
	ErrEmailTaken        = fmt.Errorf("email %w", ErrAlreadyExists)
)

// PolicyViolationError carries the rule that refused a transition.
// errors.Is(err, ErrPolicyViolation) holds for it.
type PolicyViolationError struct {
	Reason policy.Reason
}

func (e *PolicyViolationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrPolicyViolation, e.Reason)
}

func (e *PolicyViolationError) Is(target error) bool {
	return target == ErrPolicyViolation
}

func violation(reason policy.Reason) error {
	return &PolicyViolationError{Reason: reason}
}

// ViolationReason extracts the policy reason from err, if any.
func ViolationReason(err error) (policy.Reason, bool) {
	var pv *PolicyViolationError
	if errors.As(err, &pv) {
		return pv.Reason, true
	}
	return policy.ReasonNone, false
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}
