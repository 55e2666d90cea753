// Command katana is the sequencer binary: a single process
// that opens or creates a database directory, seeds or loads a genesis
// chain spec, and serves JSON-RPC until interrupted. Grounded on the
// cmd/synnergy/main.go entrypoint shape (a cobra root command
// plus subcommands, flags bound per-command), generalized to viper-bound
// flags/env vars and an actual long-running server loop instead of a mock
// sleep.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"katana-node/core/chainspec"
	"katana-node/core/felt"
	"katana-node/node"
	"katana-node/pkg/config"
	"katana-node/pkg/logging"
)

// Exit codes.
const (
	exitOK             = 0
	exitStartupFailure = 1
	exitBadArguments   = 2
	exitInterrupted    = 130
)

func main() {
	os.Exit(run())
}

// run executes the root command and maps the outcome to one of the
// well-known exit codes. A RunE that set exitCode itself (runNode's startup vs.
// interrupt distinction) is honored; any other failure, including pflag's
// own parse errors, is a bad-arguments exit.
func run() int {
	if err := config.LoadDotEnv(""); err != nil {
		fmt.Fprintln(os.Stderr, "katana:", err)
		return exitStartupFailure
	}

	exitCode := exitOK
	root := rootCmd(&exitCode)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "katana:", err)
		if exitCode == exitOK {
			exitCode = exitBadArguments
		}
		return exitCode
	}
	return exitCode
}

func rootCmd(exitCode *int) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:           "katana",
		Short:         "Run a Starknet-compatible sequencer node",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := runNode(v)
			*exitCode = code
			return err
		},
	}
	bindNodeFlags(cmd, v)
	cmd.AddCommand(initCmd())
	return cmd
}

// bindNodeFlags declares every startup flag and binds it into v so
// config.FromViper can unmarshal a complete NodeConfig, with KATANA_ env
// vars and an optional .env file layered underneath flag values.
func bindNodeFlags(cmd *cobra.Command, v *viper.Viper) {
	defaults := config.Defaults()
	flags := cmd.Flags()

	flags.String("db-dir", defaults.DBDir, "database directory")
	flags.String("http.addr", defaults.HTTPAddr, "RPC listen address")
	flags.Int("http.port", defaults.HTTPPort, "RPC listen port")
	flags.Bool("dev", false, "enable development mode (synthetic chain spec, predeployed accounts)")
	flags.Bool("dev.no-fee", false, "disable fee charging in development mode")
	flags.Bool("dev.no-account-validation", false, "disable account __validate__ calls in development mode")
	flags.Int("block-time", defaults.BlockTimeMS, "block interval in milliseconds (0 = instant mining)")
	flags.String("chain-id", "", "override the chain id")
	flags.Int64("seed", 0, "development account derivation seed")
	flags.Int("accounts", defaults.Accounts, "number of predeployed development accounts")
	flags.Float64("gpo.l1-eth-gas-price", 0, "fixed L1 ETH gas price used by the gas oracle")
	flags.String("metrics.addr", "", "metrics listen address (empty disables the metrics server)")
	flags.Int("metrics.port", 9090, "metrics listen port")
	flags.String("chain-spec-file", "", "path to a genesis chain spec file (required unless --dev)")

	bindings := map[string]string{
		"db-dir":                    "db_dir",
		"http.addr":                 "http_addr",
		"http.port":                 "http_port",
		"dev":                       "dev",
		"dev.no-fee":                "dev_no_fee",
		"dev.no-account-validation": "dev_no_account_validation",
		"block-time":                "block_time_ms",
		"chain-id":                  "chain_id",
		"seed":                      "seed",
		"accounts":                  "accounts",
		"gpo.l1-eth-gas-price":      "gpo_l1_eth_gas_price",
		"metrics.addr":              "metrics_addr",
		"metrics.port":              "metrics_port",
		"chain-spec-file":           "chain_spec_file",
	}
	for flagName, key := range bindings {
		_ = v.BindPFlag(key, flags.Lookup(flagName))
	}

	v.SetEnvPrefix("katana")
	v.AutomaticEnv()
	v.BindEnv("db_dir", "KATANA_DB_DIR")
	v.BindEnv("http_addr", "KATANA_RPC_ADDR")
	v.SetDefault("log_filter", logFilterFromEnv())
}

// logFilterFromEnv reads RUST_LOG directly rather than a KATANA_-prefixed
// variable, matching the filter syntax operators already expect.
func logFilterFromEnv() string {
	if f := os.Getenv("RUST_LOG"); f != "" {
		return f
	}
	return "info"
}

func runNode(v *viper.Viper) (int, error) {
	cfg, err := config.FromViper(v)
	if err != nil {
		return exitStartupFailure, err
	}
	if !cfg.Dev && cfg.ChainSpecFile == "" {
		return exitBadArguments, fmt.Errorf("one of --dev or --chain-spec-file is required")
	}

	logger := logging.New(cfg.LogFilter)

	n, err := node.New(cfg, logger.Logger)
	if err != nil {
		return exitStartupFailure, err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.WithTarget("node").WithField("http_addr", fmt.Sprintf("%s:%d", cfg.HTTPAddr, cfg.HTTPPort)).Info("katana: node starting")
	if err := n.Run(ctx); err != nil {
		return exitStartupFailure, err
	}

	if ctx.Err() != nil {
		return exitInterrupted, nil
	}
	return exitOK, nil
}

// initCmd implements "katana init": a small interactive prompt that writes
// a chain spec file an operator can later pass via --chain-spec-file
// an interactive chain-spec builder.
func initCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively build a genesis chain spec file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, out)
		},
	}
	cmd.Flags().StringVar(&out, "out", "chainspec.yaml", "output path for the generated chain spec")
	return cmd
}

func runInit(cmd *cobra.Command, out string) error {
	reader := bufio.NewReader(cmd.InOrStdin())
	prompt := func(label, def string) string {
		fmt.Fprintf(cmd.OutOrStdout(), "%s [%s]: ", label, def)
		line, _ := reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line == "" {
			return def
		}
		return line
	}

	chainID := prompt("chain id", "KATANA_DEV")
	accountsStr := prompt("number of predeployed accounts", "10")
	n, err := strconv.Atoi(accountsStr)
	if err != nil || n < 1 {
		return fmt.Errorf("invalid account count %q", accountsStr)
	}

	spec := chainspec.DevN(0, n)
	spec.ChainID = felt.FromBytesBE([]byte(chainID))

	if err := chainspec.Save(spec, out); err != nil {
		return fmt.Errorf("write chain spec: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote chain spec for %d accounts to %s\n", n, out)
	return nil
}
