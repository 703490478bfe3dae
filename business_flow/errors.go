// Package businessflow contains the core business logic and use cases of campaign routing and management
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Routing errors
	ErrNoEligibleOperator = errors.New("no eligible operator for campaign")
	ErrRoutingExhausted   = errors.New("every assignment of the campaign reached its grade")
	ErrStorageFailure     = errors.New("routing storage failure")

	// Campaign errors
	ErrCampaignNotFound        = errors.New("campaign not found")
	ErrSlugAlreadyExists       = errors.New("campaign slug already exists")
	ErrInvalidSlug             = errors.New("campaign slug is invalid")
	ErrDuplicateOperator       = errors.New("operator assigned more than once")
	ErrInvalidGrade            = errors.New("grade must be at least 1")
	ErrCampaignUpdateRequired  = errors.New("at least one field must be provided for update")
	ErrAssignedOperatorMissing = errors.New("assigned operator not found")

	// Operator errors
	ErrOperatorNotFound       = errors.New("operator not found")
	ErrInvalidOperatorChannel = errors.New("operator channel is invalid")
	ErrInvalidOperatorStatus  = errors.New("operator status is invalid")

	// Report errors
	ErrInvalidDateRange = errors.New("invalid date range")

	// Admin errors
	ErrAdminNotFound     = errors.New("admin not found")
	ErrAdminInactive     = errors.New("admin is inactive")
	ErrIncorrectPassword = errors.New("incorrect password")
	ErrUsernameTaken     = errors.New("username already exists")
	ErrWeakCredentials   = errors.New("username or password too short")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// storageError wraps a persistence failure of the routing unit of work
func storageError(message string, err error) *BusinessError {
	return NewBusinessError("ROUTING_STORAGE_FAILED", message, fmt.Errorf("%w: %w", ErrStorageFailure, err))
}

func IsNoEligibleOperator(err error) bool {
	return errors.Is(err, ErrNoEligibleOperator)
}

func IsRoutingExhausted(err error) bool {
	return errors.Is(err, ErrRoutingExhausted)
}

func IsStorageFailure(err error) bool {
	return errors.Is(err, ErrStorageFailure)
}

func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}

func IsSlugAlreadyExists(err error) bool {
	return errors.Is(err, ErrSlugAlreadyExists)
}

func IsOperatorNotFound(err error) bool {
	return errors.Is(err, ErrOperatorNotFound)
}

func IsInvalidDateRange(err error) bool {
	return errors.Is(err, ErrInvalidDateRange)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsAdminNotFound(err error) bool {
	return errors.Is(err, ErrAdminNotFound)
}

func IsAdminInactive(err error) bool {
	return errors.Is(err, ErrAdminInactive)
}

// IsValidationError reports errors caused by bad input rather than server state
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrInvalidSlug,
		ErrDuplicateOperator,
		ErrInvalidGrade,
		ErrCampaignUpdateRequired,
		ErrAssignedOperatorMissing,
		ErrInvalidOperatorChannel,
		ErrInvalidOperatorStatus,
		ErrInvalidDateRange,
		ErrWeakCredentials,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func IsUsernameTaken(err error) bool {
	return errors.Is(err, ErrUsernameTaken)
}
