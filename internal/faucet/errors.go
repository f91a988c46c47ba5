package faucet

import (
	"errors"
	"fmt"
)

// Code identifies a contract failure. It is also the outcome recorded on
// the receipt of a failed call.
type Code string

const (
	// CodeAlreadyInitialized: initialize called on a configured contract.
	CodeAlreadyInitialized Code = "AlreadyInitialized"

	// CodeUninitialized: tap called before initialize.
	CodeUninitialized Code = "Uninitialized"

	// CodeAuthorizationMissing: the caller is not authorized as the user.
	CodeAuthorizationMissing Code = "AuthorizationMissing"

	// CodeCooldownActive: the user tapped less than one cooldown ago.
	CodeCooldownActive Code = "CooldownActive"

	// CodeTransferFailed: the asset transfer to the user failed.
	CodeTransferFailed Code = "TransferFailed"

	// CodeInvalidReward: the reward does not fit the transfer primitive.
	CodeInvalidReward Code = "InvalidReward"

	// CodeInvalidArgument: a malformed address or amount argument.
	CodeInvalidArgument Code = "InvalidArgument"
)

// Error is a contract failure. Every failure aborts the whole call.
//
// Errors compare equal under errors.Is when their codes match, so callers
// test against the sentinels below regardless of message or cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Sentinels for errors.Is.
var (
	ErrAlreadyInitialized   = &Error{Code: CodeAlreadyInitialized, Message: "contract already initialized"}
	ErrUninitialized        = &Error{Code: CodeUninitialized, Message: "contract not initialized"}
	ErrAuthorizationMissing = &Error{Code: CodeAuthorizationMissing, Message: "authorization missing"}
	ErrCooldownActive       = &Error{Code: CodeCooldownActive, Message: "cooldown active"}
	ErrTransferFailed       = &Error{Code: CodeTransferFailed, Message: "transfer failed"}
	ErrInvalidReward        = &Error{Code: CodeInvalidReward, Message: "invalid reward"}
	ErrInvalidArgument      = &Error{Code: CodeInvalidArgument, Message: "invalid argument"}
)

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newError(code Code, msg string, cause error) *Error {
	return &Error{Code: code, Message: msg, Err: cause}
}

// InvalidArgument builds a CodeInvalidArgument error. The host uses it for
// arguments it cannot decode before the contract runs.
func InvalidArgument(msg string, cause error) *Error {
	return newError(CodeInvalidArgument, msg, cause)
}

// CodeOf returns the code of the first *Error in err's chain, or "" if
// there is none.
func CodeOf(err error) Code {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}
