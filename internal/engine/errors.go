package engine

import (
	"errors"
	"fmt"
)

// HostError is a call the host refused to run. Unlike contract failures,
// refused calls are not logged and consume no seq.
type HostError struct {
	// Code identifies the error category.
	Code HostErrorCode

	// Message is a human-readable description.
	Message string

	// FlowToken identifies the refused call, when known.
	FlowToken string

	// Function is the requested contract function.
	Function string
}

// HostErrorCode categorizes host errors.
type HostErrorCode string

const (
	// ErrCodeDuplicateFlowToken indicates the flow token was already used.
	ErrCodeDuplicateFlowToken HostErrorCode = "DUPLICATE_FLOW_TOKEN"

	// ErrCodeUnknownFunction indicates no contract exports the function.
	ErrCodeUnknownFunction HostErrorCode = "UNKNOWN_FUNCTION"

	// ErrCodeInvalidContract indicates a malformed contract address.
	ErrCodeInvalidContract HostErrorCode = "INVALID_CONTRACT"

	// ErrCodeStopped indicates the Run loop is no longer accepting calls.
	ErrCodeStopped HostErrorCode = "ENGINE_STOPPED"
)

// Error implements the error interface.
func (e *HostError) Error() string {
	if e.FlowToken != "" {
		return fmt.Sprintf("%s: %s (flow=%s)", e.Code, e.Message, e.FlowToken)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsDuplicateFlowToken returns true if err is a reused flow token.
// Uses errors.As to handle wrapped errors.
func IsDuplicateFlowToken(err error) bool {
	var he *HostError
	if errors.As(err, &he) {
		return he.Code == ErrCodeDuplicateFlowToken
	}
	return false
}

// IsHostError returns true if the host refused the call.
func IsHostError(err error) bool {
	var he *HostError
	return errors.As(err, &he)
}

func newDuplicateFlowTokenError(flowToken, function string) *HostError {
	return &HostError{
		Code:      ErrCodeDuplicateFlowToken,
		Message:   "flow token already used",
		FlowToken: flowToken,
		Function:  function,
	}
}

func newUnknownFunctionError(flowToken, function string) *HostError {
	return &HostError{
		Code:      ErrCodeUnknownFunction,
		Message:   fmt.Sprintf("unknown function %q", function),
		FlowToken: flowToken,
		Function:  function,
	}
}
