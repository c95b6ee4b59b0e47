package engine

import (
	"errors"
	"fmt"
)

// ContractError is returned when Evaluate is called with inputs that break
// its contract. Data-shape problems never produce an error; they surface as
// diagnostics in the trace.
type ContractError struct {
	// Code identifies the violated precondition.
	Code ContractErrorCode

	// Message is a human-readable description.
	Message string
}

// ContractErrorCode categorizes contract violations.
type ContractErrorCode string

const (
	// ErrCodeNilRuleStore indicates Evaluate received no rule store.
	ErrCodeNilRuleStore ContractErrorCode = "NIL_RULE_STORE"

	// ErrCodeNilCatalog indicates Evaluate received no catalog provider.
	ErrCodeNilCatalog ContractErrorCode = "NIL_CATALOG"

	// ErrCodeNilAnswers indicates Evaluate received no answer set.
	ErrCodeNilAnswers ContractErrorCode = "NIL_ANSWERS"
)

// Error implements the error interface.
func (e *ContractError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsContractError returns true if err is (or wraps) a ContractError.
func IsContractError(err error) bool {
	var ce *ContractError
	return errors.As(err, &ce)
}

func newContractError(code ContractErrorCode, msg string) *ContractError {
	return &ContractError{Code: code, Message: msg}
}
