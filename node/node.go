// Package node wires every component in this repository into a runnable
// sequencer: it opens the durable store, loads or generates a
// chain spec, builds the execution adapter and commitment tries, seeds
// genesis, starts block production under the configured policy, and serves
// the JSON-RPC façade plus an optional metrics endpoint. Grounded on the
// cmd/synnergy/main.go launcher shape (construct every subsystem
// in main, run the long-lived ones until a context is cancelled), scaled up
// to the sequencer's much larger dependency graph.
package node

import (
	"context"
	"encoding/binary"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"

	"katana-node/core/chainspec"
	"katana-node/core/executor"
	"katana-node/core/felt"
	"katana-node/core/gasoracle"
	"katana-node/core/producer"
	"katana-node/core/state"
	"katana-node/core/store"
	"katana-node/core/trie"
	"katana-node/core/txpool"
	"katana-node/pkg/config"
	"katana-node/pkg/metrics"
	"katana-node/rpc"
	"katana-node/rpc/jsonrpc"
)

// CurrentDBVersion is the on-disk layout version this build writes and
// requires. Bump alongside
// store.CurrentSchemaVersion whenever the on-disk encoding changes.
const CurrentDBVersion uint32 = 1

const dbVersionFileName = "db.version"

// checkOrInitDBVersion enforces the version file contract: a fresh
// directory gets CurrentDBVersion written to it; an existing directory with
// a mismatched version is a fatal error, since there is no in-place
// migration.
func checkOrInitDBVersion(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("node: create db dir: %w", err)
	}
	path := filepath.Join(dir, dbVersionFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("node: read %s: %w", dbVersionFileName, err)
		}
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, CurrentDBVersion)
		if err := os.WriteFile(path, buf, 0o644); err != nil {
			return fmt.Errorf("node: write %s: %w", dbVersionFileName, err)
		}
		return nil
	}
	if len(data) != 4 {
		return fmt.Errorf("node: %s is corrupt: want 4 bytes, got %d", dbVersionFileName, len(data))
	}
	onDisk := binary.BigEndian.Uint32(data)
	if onDisk != CurrentDBVersion {
		return fmt.Errorf("node: %s version %d does not match build version %d: no in-place migration", dbVersionFileName, onDisk, CurrentDBVersion)
	}
	return nil
}

// Node bundles every live subsystem a running sequencer owns.
type Node struct {
	cfg config.NodeConfig
	log *logrus.Logger

	Store    *store.Store
	Tries    *trie.Manager
	VM       *executor.CairoVM
	Pool     *txpool.Pool
	Producer *producer.Producer
	Spec     *chainspec.ChainSpec
	VMCfg    executor.CfgEnv

	Metrics       *metrics.Registry
	metricsServer *metrics.Server

	rpcServer  *jsonrpc.Server
	httpServer *rpc.Server

	policy producer.Policy
}

// loadChainSpec resolves the genesis configuration: an explicit file always
// wins, --dev synthesizes one sized to --accounts/--seed, and neither is a
// startup error.
func loadChainSpec(cfg config.NodeConfig) (*chainspec.ChainSpec, error) {
	if cfg.ChainSpecFile != "" {
		spec, err := chainspec.Load(cfg.ChainSpecFile)
		if err != nil {
			return nil, fmt.Errorf("node: load chain spec: %w", err)
		}
		return spec, nil
	}
	if cfg.Dev {
		spec := chainspec.DevN(cfg.Seed, cfg.Accounts)
		if cfg.ChainID != "" {
			spec.ChainID = felt.FromBytesBE([]byte(cfg.ChainID))
		}
		return spec, nil
	}
	return nil, fmt.Errorf("node: no chain spec: pass --chain-spec-file or --dev")
}

// New constructs every subsystem and seeds genesis if the store is empty,
// but does not start serving; call Run for that.
func New(cfg config.NodeConfig, log *logrus.Logger) (*Node, error) {
	if err := checkOrInitDBVersion(cfg.DBDir); err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.DBDir, log)
	if err != nil {
		return nil, fmt.Errorf("node: open store: %w", err)
	}

	spec, err := loadChainSpec(cfg)
	if err != nil {
		st.Close()
		return nil, err
	}

	tries := trie.NewManager(st)
	vmCfg := executor.DefaultCfgEnv(spec.ChainID, spec.FeeTokenETHAddress, spec.FeeTokenSTRKAddress)
	vm := executor.NewCairoVM(vmCfg)

	oracle := gasoracle.NewFixed(gasoracle.Prices{
		L1GasPriceETH: felt64(cfg.GPOL1EthPrice),
	})

	blockEnv := executor.BlockEnv{SequencerAddr: spec.SequencerAddress}
	validator := txpool.NewValidator(vm, blockEnv)
	pool := txpool.New(nil, validator, log)

	prod := producer.New(st, pool, vm, tries, spec, vmCfg, oracle, log)
	prod.SetFlags(executor.Flags{
		FeeDisabled:               cfg.DevNoFee,
		SkipFeeTransfer:           cfg.DevNoFee,
		AccountValidationDisabled: cfg.DevNoAccountVal,
	})

	var policy producer.Policy
	if cfg.BlockTimeMS <= 0 {
		policy = producer.InstantPolicy{}
	} else {
		policy = producer.IntervalPolicy{Period: time.Duration(cfg.BlockTimeMS) * time.Millisecond}
	}

	n := &Node{
		cfg:      cfg,
		log:      log,
		Store:    st,
		Tries:    tries,
		VM:       vm,
		Pool:     pool,
		Producer: prod,
		Spec:     spec,
		VMCfg:    vmCfg,
		policy:   policy,
	}

	if cfg.MetricsAddr != "" {
		n.Metrics = metrics.New()
		prod.SetMetrics(n.Metrics)
		n.metricsServer = metrics.NewServer(fmt.Sprintf("%s:%d", cfg.MetricsAddr, cfg.MetricsPort), n.Metrics)
	}

	if _, err := prod.EnsureGenesis(); err != nil {
		st.Close()
		return nil, fmt.Errorf("node: ensure genesis: %w", err)
	}
	pool.SetBase(n.latestStateReader())

	backend := rpc.NewBackend(st, pool, prod, vm, tries, vmCfg, spec, cfg.Dev, log)
	rpcServer := jsonrpc.NewServer()
	if err := rpc.RegisterAll(rpcServer, backend); err != nil {
		st.Close()
		return nil, fmt.Errorf("node: register rpc methods: %w", err)
	}
	n.rpcServer = rpcServer
	n.httpServer = rpc.NewServer(fmt.Sprintf("%s:%d", cfg.HTTPAddr, cfg.HTTPPort), "/", "/ws", rpcServer, backend, log)

	return n, nil
}

// Run starts block production and serves RPC (and metrics, if configured)
// as a set of concurrent services, the same structured-concurrency shape
// other node launchers run their synchronizer/RPC/pprof services
// under: every service gets its own goroutine under a shared WaitGroup, and
// any one of them failing cancels the rest. Blocks until ctx is cancelled
// and every service has returned.
func (n *Node) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wg := conc.NewWaitGroup()
	wg.Go(func() { n.Producer.Run(ctx, n.policy) })
	wg.Go(func() {
		if err := n.httpServer.Start(); err != nil && err != http.ErrServerClosed {
			n.log.WithField("err", err).Error("node: rpc server exited unexpectedly")
			cancel()
		}
	})
	if n.metricsServer != nil {
		wg.Go(func() {
			if err := n.metricsServer.Start(); err != nil {
				n.log.WithField("err", err).Error("node: metrics server exited unexpectedly")
				cancel()
			}
		})
	}

	<-ctx.Done()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := n.httpServer.Close(); err != nil {
		n.log.WithField("err", err).Warn("node: rpc server close error")
	}
	if n.metricsServer != nil {
		if err := n.metricsServer.Close(shutdownCtx); err != nil {
			n.log.WithField("err", err).Warn("node: metrics server close error")
		}
	}
	wg.Wait()
	return n.Store.Close()
}

// latestStateReader returns a state.Reader over the store's current tip,
// used to prime the pool's base view once genesis has sealed block 0.
func (n *Node) latestStateReader() state.Reader {
	return state.NewLatestStateProvider(n.Store)
}

func felt64(f float64) felt.Felt {
	if f < 0 {
		f = 0
	}
	return felt.FromUint64(uint64(f))
}
