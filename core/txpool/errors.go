package txpool

import "katana-node/core/executor"

// RejectionKind enumerates the pool's own admission error taxonomy
//, distinct from core/executor's block-production error
// taxonomy even though the validator reuses the same underlying checks.
type RejectionKind uint8

const (
	RejectInsufficientFunds RejectionKind = iota
	RejectIntrinsicFeeTooLow
	RejectValidationFailure
	RejectNonAccount
	RejectInvalidNonce
	RejectClassAlreadyDeclared
)

func (k RejectionKind) String() string {
	switch k {
	case RejectInsufficientFunds:
		return "InsufficientFunds"
	case RejectIntrinsicFeeTooLow:
		return "IntrinsicFeeTooLow"
	case RejectValidationFailure:
		return "ValidationFailure"
	case RejectNonAccount:
		return "NonAccount"
	case RejectInvalidNonce:
		return "InvalidNonce"
	case RejectClassAlreadyDeclared:
		return "ClassAlreadyDeclared"
	default:
		return "Unknown"
	}
}

// InvalidTransactionError is returned to the submitter by AddTx: the transaction is rejected outright and never retained by the
// pool.
type InvalidTransactionError struct {
	Kind RejectionKind
	Msg  string
}

func (e *InvalidTransactionError) Error() string { return e.Kind.String() + ": " + e.Msg }

// classifyExecutionError maps the validator's underlying execution error
// onto the pool's admission taxonomy.
func classifyExecutionError(err error) *InvalidTransactionError {
	execErr, ok := executor.AsExecutionError(err)
	if !ok {
		return &InvalidTransactionError{Kind: RejectValidationFailure, Msg: err.Error()}
	}
	switch execErr.Kind {
	case executor.ErrInvalidNonce:
		return &InvalidTransactionError{Kind: RejectInvalidNonce, Msg: execErr.Msg}
	case executor.ErrInsufficientBalance:
		return &InvalidTransactionError{Kind: RejectInsufficientFunds, Msg: execErr.Msg}
	case executor.ErrMaxFeeTooLow:
		return &InvalidTransactionError{Kind: RejectIntrinsicFeeTooLow, Msg: execErr.Msg}
	case executor.ErrClassAlreadyDeclared:
		return &InvalidTransactionError{Kind: RejectClassAlreadyDeclared, Msg: execErr.Msg}
	case executor.ErrContractNotDeployed:
		return &InvalidTransactionError{Kind: RejectNonAccount, Msg: execErr.Msg}
	default:
		return &InvalidTransactionError{Kind: RejectValidationFailure, Msg: execErr.Error()}
	}
}
