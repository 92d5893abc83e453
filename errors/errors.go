package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrNotAuthenticated   = fmt.Errorf("authentication required")
	ErrForbidden          = fmt.Errorf("insufficient rights")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity rules")
	ErrValidation         = fmt.Errorf("invalid payload")
	ErrNotFound           = fmt.Errorf("record not found")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrUnknownCollection  = fmt.Errorf("unknown collection")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrTransport          = fmt.Errorf("transport failure")
	ErrWorkerPanic        = fmt.Errorf("worker panic")
)

// Is re-exports the standard library matcher so call sites importing
// this package do not have to alias both error packages.
func Is(err, target error) bool { return stderrors.Is(err, target) }

