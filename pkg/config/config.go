// Package config loads the sequencer's startup configuration: CLI flags
// (bound through spf13/viper the way pkg/config has long bound YAML
// config files), environment variables, and an optional .env file for
// local development (a direct joho/godotenv dependency;
// DESIGN.md records this as the home found for it).
//
// Version: v0.2.0
package config

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"katana-node/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.2.0"

// NodeConfig is every setting the katana binary accepts, whether
// supplied by flag, environment variable, or .env file. Field names mirror
// the CLI flags 1:1 so cmd/katana can bind them with viper.BindPFlag without
// duplicating a default in two places.
type NodeConfig struct {
	DBDir           string  `mapstructure:"db_dir"`
	HTTPAddr        string  `mapstructure:"http_addr"`
	HTTPPort        int     `mapstructure:"http_port"`
	Dev             bool    `mapstructure:"dev"`
	DevNoFee        bool    `mapstructure:"dev_no_fee"`
	DevNoAccountVal bool    `mapstructure:"dev_no_account_validation"`
	BlockTimeMS     int     `mapstructure:"block_time_ms"`
	ChainID         string  `mapstructure:"chain_id"`
	Seed            int64   `mapstructure:"seed"`
	Accounts        int     `mapstructure:"accounts"`
	GPOL1EthPrice   float64 `mapstructure:"gpo_l1_eth_gas_price"`
	MetricsAddr     string  `mapstructure:"metrics_addr"`
	MetricsPort     int     `mapstructure:"metrics_port"`
	LogFilter       string  `mapstructure:"log_filter"`
	ChainSpecFile   string  `mapstructure:"chain_spec_file"`
}

// Defaults returns the configuration a bare "katana --dev" run should use:
// a db directory under the working directory, the standard loopback RPC
// address, and no metrics server.
func Defaults() NodeConfig {
	return NodeConfig{
		DBDir:       "./katana-db",
		HTTPAddr:    "127.0.0.1",
		HTTPPort:    5050,
		BlockTimeMS: 0, // 0 == instant-mine policy
		Accounts:    10,
		LogFilter:   "info",
	}
}

// LoadDotEnv loads a .env file (if present) into the process environment, so
// KATANA_DB_DIR/KATANA_RPC_ADDR and friends can be set without exporting
// them in the shell first. A missing file is not an error: .env is a
// developer convenience, not a required artifact.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return utils.Wrap(err, "load .env")
	}
	return nil
}

// FromViper builds a NodeConfig from an already-populated viper instance;
// cmd/katana binds flags and environment variables into v before calling
// this, so unmarshal is the only step left.
func FromViper(v *viper.Viper) (NodeConfig, error) {
	cfg := Defaults()
	if err := v.Unmarshal(&cfg); err != nil {
		return NodeConfig{}, utils.Wrap(err, "unmarshal node config")
	}
	return cfg, nil
}
