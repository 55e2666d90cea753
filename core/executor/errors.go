package executor

import "errors"

// ErrorKind enumerates the execution error taxonomy. A
// protocol-level ErrorKind means the transaction is not written to the
// block at all; a revert is a different, successful-admission outcome
// carried on TxExecInfo instead.
type ErrorKind uint8

const (
	ErrInvalidNonce ErrorKind = iota
	ErrInsufficientBalance
	ErrMaxFeeTooLow
	ErrActualFeeExceedsMaxFee
	ErrClassAlreadyDeclared
	ErrUndeclaredClass
	ErrContractNotDeployed
	ErrEntryPointNotFound
	ErrRecursionDepthExceeded
	ErrExecutionFailed
	ErrTransactionValidationFailed
	ErrTransactionReverted
	ErrFeeTransferError
	ErrOther
)

func (k ErrorKind) String() string {
	switch k {
	case ErrInvalidNonce:
		return "InvalidNonce"
	case ErrInsufficientBalance:
		return "InsufficientBalance"
	case ErrMaxFeeTooLow:
		return "MaxFeeTooLow"
	case ErrActualFeeExceedsMaxFee:
		return "ActualFeeExceedsMaxFee"
	case ErrClassAlreadyDeclared:
		return "ClassAlreadyDeclared"
	case ErrUndeclaredClass:
		return "UndeclaredClass"
	case ErrContractNotDeployed:
		return "ContractNotDeployed"
	case ErrEntryPointNotFound:
		return "EntryPointNotFound"
	case ErrRecursionDepthExceeded:
		return "RecursionDepthExceeded"
	case ErrExecutionFailed:
		return "ExecutionFailed"
	case ErrTransactionValidationFailed:
		return "TransactionValidationFailed"
	case ErrTransactionReverted:
		return "TransactionReverted"
	case ErrFeeTransferError:
		return "FeeTransferError"
	default:
		return "Other"
	}
}

// ExecutionError is a protocol-level rejection: the transaction must not be
// written to the block.
type ExecutionError struct {
	Kind ErrorKind
	Msg  string
}

func (e *ExecutionError) Error() string { return e.Kind.String() + ": " + e.Msg }

// NewExecutionError builds an ExecutionError of the given kind.
func NewExecutionError(kind ErrorKind, msg string) *ExecutionError {
	return &ExecutionError{Kind: kind, Msg: msg}
}

// AsExecutionError unwraps err into an *ExecutionError, if it is one.
func AsExecutionError(err error) (*ExecutionError, bool) {
	var e *ExecutionError
	ok := errors.As(err, &e)
	return e, ok
}
