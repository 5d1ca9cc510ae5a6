package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNegativeBalance   = errors.New("balance is negative")
	ErrPersistence       = errors.New("persistence failure")
	ErrBalanceOverflow   = errors.New("balance out of range")

	ErrInvalidAmount = errors.New("amount must be greater than 0")
	ErrSameAccount   = errors.New("cannot transfer to the same account")
)

// PersistenceError reports a store failure during a ledger operation.
// Nothing the operation wrote is visible once it is returned.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrPersistence, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

// IsRejection reports whether err is a business-rule rejection rather than a store failure.
func IsRejection(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrNegativeBalance) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrBalanceOverflow) ||
		errors.Is(err, ErrSameAccount)
}

func wrapStoreError(op string, err error) error {
	if err == nil || IsRejection(err) {
		return err
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
