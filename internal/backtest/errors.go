package backtest

import (
	"errors"
	"fmt"
)

// Kind classifies engine failures so callers can branch without matching messages.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindDataUnavailable Kind = "data_unavailable"
	KindPersistence     Kind = "persistence"
	KindInternal        Kind = "internal"
)

var (
	ErrValidation      = errors.New("invalid backtest request")
	ErrDataUnavailable = errors.New("no price data available")
	ErrPersistence     = errors.New("failed to persist backtest result")
)

// Error is the error type returned by the engine and the service layer around it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match an *Error against the kind sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrDataUnavailable:
		return e.Kind == KindDataUnavailable
	case ErrPersistence:
		return e.Kind == KindPersistence
	}
	return false
}

func NewValidationError(op string, err error) error {
	return &Error{Kind: KindValidation, Op: op, Err: err}
}

func NewDataUnavailableError(op string, err error) error {
	return &Error{Kind: KindDataUnavailable, Op: op, Err: err}
}

func NewPersistenceError(op string, err error) error {
	return &Error{Kind: KindPersistence, Op: op, Err: err}
}

// KindOf returns the kind of err, or KindInternal when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
