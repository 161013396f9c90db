package core

import (
	"errors"
	"fmt"
)

// Error categories. Callers match them with errors.Is.
var (
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("not found")
	ErrPermission     = errors.New("permission denied")
	ErrInvalidRequest = errors.New("invalid request")
	ErrTransport      = errors.New("transport failure")
	ErrConsistency    = errors.New("local state diverged from persisted state")
	ErrConflict       = errors.New("conflict")
)

var (
	ErrEmptyAccountType       = fmt.Errorf("%w: empty account type", ErrValidation)
	ErrInvalidAccountType     = fmt.Errorf("%w: unknown account type", ErrValidation)
	ErrEmptyAccountNumber     = fmt.Errorf("%w: empty account number", ErrValidation)
	ErrEmptyAccountName       = fmt.Errorf("%w: empty account name", ErrValidation)
	ErrAccountNameTooLong     = fmt.Errorf("%w: account name too long (max 200 characters)", ErrValidation)
	ErrEmptyPaidTo            = fmt.Errorf("%w: empty paid to", ErrValidation)
	ErrPaidToTooLong          = fmt.Errorf("%w: paid to too long (max 200 characters)", ErrValidation)
	ErrInvalidValue           = fmt.Errorf("%w: invalid value", ErrValidation)
	ErrNegativeValue          = fmt.Errorf("%w: negative value", ErrValidation)
	ErrMissingDate            = fmt.Errorf("%w: missing date", ErrValidation)
	ErrInvalidDate            = fmt.Errorf("%w: invalid date", ErrValidation)
	ErrInvalidTransactionType = fmt.Errorf("%w: type must be income or expense", ErrValidation)
	ErrUnknownAccount         = fmt.Errorf("%w: account does not exist", ErrValidation)
	ErrAccountInUse           = fmt.Errorf("%w: account has transactions", ErrConflict)
)
