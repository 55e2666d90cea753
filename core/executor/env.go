package executor

import "katana-node/core/felt"

// BlockEnv is the subset of block context execution needs.
type BlockEnv struct {
	Number          uint64
	Timestamp       uint64
	SequencerAddr   felt.Address
	L1GasPriceETH   felt.Felt
	L1GasPriceSTRK  felt.Felt
	L1DataPriceETH  felt.Felt
	L1DataPriceSTRK felt.Felt
}

// CfgEnv is the chain-wide, block-independent configuration the adapter
// needs to run. Grounded on original_source's
// abstraction::CfgEnv shape (kept under original_source/ per _INDEX.md).
type CfgEnv struct {
	ChainID             felt.Felt
	FeeTokenETHAddress  felt.Address
	FeeTokenSTRKAddress felt.Address
	ValidateMaxSteps    uint64
	InvokeTxMaxSteps    uint64
	MaxRecursionDepth   uint64

	// BaseFee and PerWordFee model the builtin resource cost schedule; a real
	// Cairo VM would derive this from the proof's resource usage.
	BaseFee    uint64
	PerWordFee uint64
	MinMaxFee  uint64
}

// DefaultCfgEnv returns a conservative configuration suitable for tests and
// single-node development chains.
func DefaultCfgEnv(chainID felt.Felt, ethFeeToken, strkFeeToken felt.Address) CfgEnv {
	return CfgEnv{
		ChainID:             chainID,
		FeeTokenETHAddress:  ethFeeToken,
		FeeTokenSTRKAddress: strkFeeToken,
		ValidateMaxSteps:    1_000_000,
		InvokeTxMaxSteps:    3_000_000,
		MaxRecursionDepth:   50,
		BaseFee:             100,
		PerWordFee:          10,
		MinMaxFee:           100,
	}
}

// Flags toggles admission checks off, one at a time. Used by
// the pool's validate-only path (SkipFeeTransfer) and by simulate/estimate
// (SkipValidate stays false so those paths still exercise __validate__).
type Flags struct {
	SkipValidate             bool
	SkipFeeTransfer          bool
	SkipNonceCheck           bool
	FeeDisabled              bool
	AccountValidationDisabled bool
}
