// Package chainspec loads the genesis configuration every sequencer node
// boots from: chain id, fee-token addresses, predeployed
// classes, genesis allocations and the sequencer address. Genesis is
// deterministic: two nodes given an identical ChainSpec produce identical
// block 0 hashes, since every field here is consumed directly by the
// producer's genesis block assembly with no non-deterministic input mixed
// in.
package chainspec

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"katana-node/core/executor"
	"katana-node/core/felt"
	"katana-node/core/types"
)

// Allocation is one genesis-assigned account: a class hash plus an initial
// storage layout for that account's own contract storage. Fee-token
// balances are seeded separately via STRKBalances/ETHBalances, since those
// slots live in the fee-token contracts' storage rather than the holder's
// own.
type Allocation struct {
	Address   felt.Address
	ClassHash felt.Felt
	Storage   map[felt.Felt]felt.Felt
}

// ChainSpec is the full genesis configuration.
type ChainSpec struct {
	ChainID             felt.Felt
	FeeTokenETHAddress  felt.Address
	FeeTokenSTRKAddress felt.Address
	SequencerAddress    felt.Address

	PredeployedClasses []*types.ContractClass
	Allocations        []Allocation

	// STRKBalances/ETHBalances seed the corresponding fee token's balance
	// storage for each holder at genesis (keyed by holder address, the
	// executor's storage-slot derivation is applied by the caller).
	STRKBalances map[felt.Address]felt.Felt
	ETHBalances  map[felt.Address]felt.Felt
}

// wireAllocation/wireSpec are the plain-string/hex shapes the config file on
// disk actually carries; viper unmarshals into these and wireSpec.toSpec
// converts to Felt/Address.
type wireStorageEntry struct {
	Key   string `mapstructure:"key"`
	Value string `mapstructure:"value"`
}

type wireAllocation struct {
	Address   string              `mapstructure:"address" yaml:"address"`
	ClassHash string              `mapstructure:"class_hash" yaml:"class_hash"`
	Storage   []wireStorageEntry  `mapstructure:"storage" yaml:"storage,omitempty"`
}

type wireBalance struct {
	Holder string `mapstructure:"holder" yaml:"holder"`
	Amount string `mapstructure:"amount" yaml:"amount"`
}

type wireEntryPoint struct {
	Selector string `mapstructure:"selector" yaml:"selector"`
	Offset   uint64 `mapstructure:"offset" yaml:"offset,omitempty"`
}

type wireClass struct {
	Kind        string           `mapstructure:"kind" yaml:"kind"`
	Hash        string           `mapstructure:"hash" yaml:"hash"`
	EntryPoints []wireEntryPoint `mapstructure:"entry_points" yaml:"entry_points,omitempty"`
}

type wireSpec struct {
	ChainID             string           `mapstructure:"chain_id" yaml:"chain_id"`
	FeeTokenETHAddress  string           `mapstructure:"fee_token_eth_address" yaml:"fee_token_eth_address"`
	FeeTokenSTRKAddress string           `mapstructure:"fee_token_strk_address" yaml:"fee_token_strk_address"`
	SequencerAddress    string           `mapstructure:"sequencer_address" yaml:"sequencer_address"`
	PredeployedClasses  []wireClass      `mapstructure:"predeployed_classes" yaml:"predeployed_classes,omitempty"`
	Allocations         []wireAllocation `mapstructure:"allocations" yaml:"allocations,omitempty"`
	STRKBalances        []wireBalance    `mapstructure:"strk_balances" yaml:"strk_balances,omitempty"`
	ETHBalances         []wireBalance    `mapstructure:"eth_balances" yaml:"eth_balances,omitempty"`
}

func classKindFromWire(s string) (types.ClassKind, error) {
	switch s {
	case "", "legacy":
		return types.ClassLegacy, nil
	case "sierra":
		return types.ClassSierra, nil
	default:
		return 0, fmt.Errorf("unknown class kind %q", s)
	}
}

func classKindToWire(k types.ClassKind) string {
	if k == types.ClassSierra {
		return "sierra"
	}
	return "legacy"
}

func parseBalances(entries []wireBalance) (map[felt.Address]felt.Felt, error) {
	out := make(map[felt.Address]felt.Felt, len(entries))
	for _, e := range entries {
		holderFelt, err := parseFelt(e.Holder)
		if err != nil {
			return nil, fmt.Errorf("balance holder: %w", err)
		}
		amount, err := parseFelt(e.Amount)
		if err != nil {
			return nil, fmt.Errorf("balance amount: %w", err)
		}
		out[felt.NewAddress(holderFelt)] = amount
	}
	return out, nil
}

// Load reads a genesis file (YAML or JSON, whatever the Viper
// loader already accepts) from path and returns the parsed ChainSpec.
func Load(path string) (*ChainSpec, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("chainspec: read config: %w", err)
	}
	var w wireSpec
	if err := v.Unmarshal(&w); err != nil {
		return nil, fmt.Errorf("chainspec: unmarshal: %w", err)
	}
	return w.toSpec()
}

func parseFelt(s string) (felt.Felt, error) {
	if s == "" {
		return felt.Zero(), nil
	}
	return felt.FromHex(s)
}

func (w wireSpec) toSpec() (*ChainSpec, error) {
	chainID, err := parseFelt(w.ChainID)
	if err != nil {
		return nil, fmt.Errorf("chainspec: chain_id: %w", err)
	}
	ethAddr, err := parseFelt(w.FeeTokenETHAddress)
	if err != nil {
		return nil, fmt.Errorf("chainspec: fee_token_eth_address: %w", err)
	}
	strkAddr, err := parseFelt(w.FeeTokenSTRKAddress)
	if err != nil {
		return nil, fmt.Errorf("chainspec: fee_token_strk_address: %w", err)
	}
	seqAddr, err := parseFelt(w.SequencerAddress)
	if err != nil {
		return nil, fmt.Errorf("chainspec: sequencer_address: %w", err)
	}

	spec := &ChainSpec{
		ChainID:             chainID,
		FeeTokenETHAddress:  felt.NewAddress(ethAddr),
		FeeTokenSTRKAddress: felt.NewAddress(strkAddr),
		SequencerAddress:    felt.NewAddress(seqAddr),
	}

	for _, wc := range w.PredeployedClasses {
		kind, err := classKindFromWire(wc.Kind)
		if err != nil {
			return nil, fmt.Errorf("chainspec: predeployed class: %w", err)
		}
		hash, err := parseFelt(wc.Hash)
		if err != nil {
			return nil, fmt.Errorf("chainspec: predeployed class hash: %w", err)
		}
		class := &types.ContractClass{Kind: kind, Hash: hash}
		for _, ep := range wc.EntryPoints {
			sel, err := parseFelt(ep.Selector)
			if err != nil {
				return nil, fmt.Errorf("chainspec: predeployed class entry point: %w", err)
			}
			class.EntryPoints = append(class.EntryPoints, types.EntryPoint{Selector: sel, Offset: ep.Offset})
		}
		spec.PredeployedClasses = append(spec.PredeployedClasses, class)
	}

	for _, wa := range w.Allocations {
		addrFelt, err := parseFelt(wa.Address)
		if err != nil {
			return nil, fmt.Errorf("chainspec: allocation address: %w", err)
		}
		classHash, err := parseFelt(wa.ClassHash)
		if err != nil {
			return nil, fmt.Errorf("chainspec: allocation class_hash: %w", err)
		}
		alloc := Allocation{
			Address:   felt.NewAddress(addrFelt),
			ClassHash: classHash,
			Storage:   make(map[felt.Felt]felt.Felt, len(wa.Storage)),
		}
		for _, se := range wa.Storage {
			k, err := parseFelt(se.Key)
			if err != nil {
				return nil, fmt.Errorf("chainspec: allocation storage key: %w", err)
			}
			v, err := parseFelt(se.Value)
			if err != nil {
				return nil, fmt.Errorf("chainspec: allocation storage value: %w", err)
			}
			alloc.Storage[k] = v
		}
		spec.Allocations = append(spec.Allocations, alloc)
	}

	strkBalances, err := parseBalances(w.STRKBalances)
	if err != nil {
		return nil, fmt.Errorf("chainspec: strk_balances: %w", err)
	}
	ethBalances, err := parseBalances(w.ETHBalances)
	if err != nil {
		return nil, fmt.Errorf("chainspec: eth_balances: %w", err)
	}
	spec.STRKBalances = strkBalances
	spec.ETHBalances = ethBalances

	return spec, nil
}

// toWire converts spec into the plain-string shape Save writes and Load
// reads back, the inverse of wireSpec.toSpec.
func (spec *ChainSpec) toWire() wireSpec {
	w := wireSpec{
		ChainID:             spec.ChainID.Hex(),
		FeeTokenETHAddress:  spec.FeeTokenETHAddress.Felt().Hex(),
		FeeTokenSTRKAddress: spec.FeeTokenSTRKAddress.Felt().Hex(),
		SequencerAddress:    spec.SequencerAddress.Felt().Hex(),
	}
	for _, class := range spec.PredeployedClasses {
		wc := wireClass{Kind: classKindToWire(class.Kind), Hash: class.Hash.Hex()}
		for _, ep := range class.EntryPoints {
			wc.EntryPoints = append(wc.EntryPoints, wireEntryPoint{Selector: ep.Selector.Hex(), Offset: ep.Offset})
		}
		w.PredeployedClasses = append(w.PredeployedClasses, wc)
	}
	for _, alloc := range spec.Allocations {
		wa := wireAllocation{Address: alloc.Address.Felt().Hex(), ClassHash: alloc.ClassHash.Hex()}
		for k, v := range alloc.Storage {
			wa.Storage = append(wa.Storage, wireStorageEntry{Key: k.Hex(), Value: v.Hex()})
		}
		w.Allocations = append(w.Allocations, wa)
	}
	for holder, amount := range spec.STRKBalances {
		w.STRKBalances = append(w.STRKBalances, wireBalance{Holder: holder.Felt().Hex(), Amount: amount.Hex()})
	}
	for holder, amount := range spec.ETHBalances {
		w.ETHBalances = append(w.ETHBalances, wireBalance{Holder: holder.Felt().Hex(), Amount: amount.Hex()})
	}
	return w
}

// Save writes spec to path as YAML, in the same shape Load reads (katana
// init's output feeds directly into --chain-spec-file).
func Save(spec *ChainSpec, path string) error {
	data, err := yaml.Marshal(spec.toWire())
	if err != nil {
		return fmt.Errorf("chainspec: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("chainspec: write %s: %w", path, err)
	}
	return nil
}

// devAccountClassHash is the class hash every dev-predeployed account
// shares: one built-in account class, declared once at genesis and assigned to every predeployed
// address.
var devAccountClassHash = felt.FromUint64(0xaccc)

// Dev returns a minimal, hardcoded ChainSpec suitable for tests and local
// development: a single funded predeployed account over the STRK fee token.
// Equivalent to DevN(0, 1).
func Dev() *ChainSpec { return DevN(0, 1) }

// DevN returns a development ChainSpec with n predeployed accounts, each
// funded with the same starting STRK balance and sharing one predeployed
// account class. seed only perturbs
// the sequencer address, keeping account addresses stable across seeds so
// dev tooling can hardcode them; a real seeded-address scheme is out of
// scope for this adapter.
func DevN(seed int64, n int) *ChainSpec {
	if n < 1 {
		n = 1
	}
	chainID := felt.FromBytesBE([]byte("KATANA_DEV"))
	eth := felt.NewAddress(felt.FromUint64(0x10))
	strk := felt.NewAddress(felt.FromUint64(0x11))
	sequencer := felt.NewAddress(felt.FromUint64(uint64(0x1) + uint64(seed)))

	accountClass := &types.ContractClass{
		Kind:        types.ClassLegacy,
		Hash:        devAccountClassHash,
		EntryPoints: executor.StandardEntryPoints(),
	}

	spec := &ChainSpec{
		ChainID:             chainID,
		FeeTokenETHAddress:  eth,
		FeeTokenSTRKAddress: strk,
		SequencerAddress:    sequencer,
		PredeployedClasses:  []*types.ContractClass{accountClass},
		STRKBalances:        make(map[felt.Address]felt.Felt, n),
	}
	for i := 0; i < n; i++ {
		account := felt.NewAddress(felt.FromUint64(0x100 + uint64(i)))
		spec.Allocations = append(spec.Allocations, Allocation{
			Address:   account,
			ClassHash: devAccountClassHash,
		})
		spec.STRKBalances[account] = felt.FromUint64(1_000_000_000)
	}
	return spec
}
