// Package config loads the configuration of a deployment run from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"github.com/gravita-protocol/gravita-deployments/chain/utils"
	"github.com/gravita-protocol/gravita-deployments/deployment"
)

// State backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// NetworkConfig names the chain a deployment runs against.
type NetworkConfig struct {
	Name string `mapstructure:"name" yaml:"name"` // e.g. "mainnet", "goerli" or "localhost"
	// One of ChainSelector or ChainID is required. The selector wins when both are set.
	ChainSelector  uint64        `mapstructure:"chain_selector" yaml:"chain_selector"`
	ChainID        uint64        `mapstructure:"chain_id" yaml:"chain_id"`
	RPCURL         string        `mapstructure:"rpc_url" yaml:"rpc_url"`
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout" yaml:"confirm_timeout"`
	GasLimit       uint64        `mapstructure:"gas_limit" yaml:"gas_limit"` // 0 lets the node estimate
}

// WalletsConfig holds the well-known accounts as hex addresses.
type WalletsConfig struct {
	Deployer string `mapstructure:"deployer" yaml:"deployer"`
	Admin    string `mapstructure:"admin" yaml:"admin"`
	Treasury string `mapstructure:"treasury" yaml:"treasury"`
}

// CollateralConfig is a collateral type to register. Token and Oracle may be left empty to keep
// the collateral out of a deployment.
type CollateralConfig struct {
	Name   string `mapstructure:"name" yaml:"name"`
	Token  string `mapstructure:"token" yaml:"token"`
	Oracle string `mapstructure:"oracle" yaml:"oracle"`
}

// StateConfig selects where the deployment state is kept.
type StateConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"` // "file" or "postgres"
	Path    string `mapstructure:"path" yaml:"path"`
	// Secret: Postgres connection string. Prefer STATE_POSTGRES_DSN.
	DSN string `mapstructure:"dsn" yaml:"-"`
}

// ContractsConfig holds addresses of contracts deployed outside this tool. Addresses recorded in
// the deployment state take precedence.
type ContractsConfig struct {
	AdminContract     string `mapstructure:"admin_contract" yaml:"admin_contract"`
	DebtToken         string `mapstructure:"debt_token" yaml:"debt_token"`
	FeeCollector      string `mapstructure:"fee_collector" yaml:"fee_collector"`
	PriceFeed         string `mapstructure:"price_feed" yaml:"price_feed"`
	ShortTimelock     string `mapstructure:"short_timelock" yaml:"short_timelock"`
	LongTimelock      string `mapstructure:"long_timelock" yaml:"long_timelock"`
	LockedGRVT        string `mapstructure:"locked_grvt" yaml:"locked_grvt"`
	GRVTToken         string `mapstructure:"grvt_token" yaml:"grvt_token"`
	GRVTStaking       string `mapstructure:"grvt_staking" yaml:"grvt_staking"`
	CommunityIssuance string `mapstructure:"community_issuance" yaml:"community_issuance"`
}

func (c ContractsConfig) byName() map[string]string {
	return map[string]string{
		deployment.NameAdminContract:     c.AdminContract,
		deployment.NameDebtToken:         c.DebtToken,
		deployment.NameFeeCollector:      c.FeeCollector,
		deployment.NamePriceFeed:         c.PriceFeed,
		deployment.NameShortTimelock:     c.ShortTimelock,
		deployment.NameLongTimelock:      c.LongTimelock,
		deployment.NameLockedGRVT:        c.LockedGRVT,
		deployment.NameGRVTToken:         c.GRVTToken,
		deployment.NameGRVTStaking:       c.GRVTStaking,
		deployment.NameCommunityIssuance: c.CommunityIssuance,
	}
}

// OnchainConfig holds the signing material.
//
// WARNING: This data type contains sensitive fields and should not be logged or set in file
// configuration.
type OnchainConfig struct {
	DeployerKey string `mapstructure:"deployer_key" yaml:"-"` // Secret: hex private key of the deployer
}

// LogConfig configures the CLI logger.
type LogConfig struct {
	Level    string `mapstructure:"level" yaml:"level"`
	Encoding string `mapstructure:"encoding" yaml:"encoding"`
}

// Config wraps the entire configuration of a deployment run.
type Config struct {
	Network     NetworkConfig      `mapstructure:"network" yaml:"network"`
	Wallets     WalletsConfig      `mapstructure:"wallets" yaml:"wallets"`
	Collaterals []CollateralConfig `mapstructure:"collaterals" yaml:"collaterals"`
	// Beneficiaries maps a wallet address to its vested GRVT amount in whole tokens.
	Beneficiaries     map[string]uint64 `mapstructure:"beneficiaries" yaml:"beneficiaries"`
	DeployGRVTOnly    bool              `mapstructure:"deploy_grvt_only" yaml:"deploy_grvt_only"`
	TransferOwnership bool              `mapstructure:"transfer_ownership" yaml:"transfer_ownership"`
	State             StateConfig       `mapstructure:"state" yaml:"state"`
	Contracts         ContractsConfig   `mapstructure:"contracts" yaml:"contracts"`
	Onchain           OnchainConfig     `mapstructure:"onchain" yaml:"-"`
	Log               LogConfig         `mapstructure:"log" yaml:"log"`
}

// ErrSecretInFile is returned when a secret is set in the configuration file instead of the
// environment.
var ErrSecretInFile = errors.New("secret must be provided through the environment")

var secretKeys = []string{"onchain.deployer_key", "state.dsn"}

// Load loads the config from the file path, with any bound environment variables overriding
// the values from the file. Variables from a .env file in the working directory are loaded into
// the environment first; use LoadWithDotEnv to name other files.
func Load(filePath string) (*Config, error) {
	return LoadWithDotEnv(filePath)
}

// LoadWithDotEnv is Load with the given .env files. Variables already set in the environment
// are never overwritten. Missing .env files are ignored.
func LoadWithDotEnv(filePath string, dotEnvFiles ...string) (*Config, error) {
	if err := loadDotEnv(dotEnvFiles...); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(filePath)
	setDefaults(v)

	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file %s not found: %w", filePath, err)
		}

		return nil, fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}

	for _, key := range secretKeys {
		if v.InConfig(key) {
			return nil, fmt.Errorf("%s: %w", key, ErrSecretInFile)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file %s: %w", filePath, err)
	}

	if cfg.State.Backend == BackendFile && cfg.State.Path == "" {
		cfg.State.Path = defaultStatePath(filePath, cfg.Network.Name)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("network.confirm_timeout", 5*time.Minute)
	v.SetDefault("state.backend", BackendFile)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
}

// defaultStatePath places the state file next to the config file, one per network.
func defaultStatePath(configPath, network string) string {
	return filepath.Join(filepath.Dir(configPath), network+"DeploymentOutput.json")
}

// Validate checks the configuration of a run. The deployer key is not checked here because
// read-only commands do not sign.
func (c *Config) Validate() error {
	var errs []error

	if c.Network.Name == "" {
		errs = append(errs, errors.New("network.name is required"))
	}
	if _, err := c.ChainSelector(); err != nil {
		errs = append(errs, err)
	}
	if c.Network.ConfirmTimeout <= 0 {
		errs = append(errs, errors.New("network.confirm_timeout must be positive"))
	}

	for field, hex := range map[string]string{
		"wallets.deployer": c.Wallets.Deployer,
		"wallets.admin":    c.Wallets.Admin,
		"wallets.treasury": c.Wallets.Treasury,
	} {
		if err := requireAddress(field, hex); err != nil {
			errs = append(errs, err)
		}
	}

	seen := map[string]bool{}
	for i, col := range c.Collaterals {
		if col.Name == "" {
			errs = append(errs, fmt.Errorf("collaterals[%d].name is required", i))
			continue
		}
		if seen[col.Name] {
			errs = append(errs, fmt.Errorf("collateral %s is configured more than once", col.Name))
		}
		seen[col.Name] = true

		if err := optionalAddress("collateral "+col.Name+" token", col.Token); err != nil {
			errs = append(errs, err)
		}
		if err := optionalAddress("collateral "+col.Name+" oracle", col.Oracle); err != nil {
			errs = append(errs, err)
		}
	}

	for wallet := range c.Beneficiaries {
		if !common.IsHexAddress(wallet) {
			errs = append(errs, fmt.Errorf("beneficiary %q is not a hex address", wallet))
		}
	}

	for name, hex := range c.Contracts.byName() {
		if err := optionalAddress("contract "+name, hex); err != nil {
			errs = append(errs, err)
		}
	}

	switch c.State.Backend {
	case BackendFile:
		if c.State.Path == "" {
			errs = append(errs, errors.New("state.path is required for the file backend"))
		}
	case BackendPostgres:
		if c.State.DSN == "" {
			errs = append(errs, errors.New("state.dsn is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown state backend %q", c.State.Backend))
	}

	return errors.Join(errs...)
}

// ChainSelector resolves the chain selector of the network.
func (c *Config) ChainSelector() (uint64, error) {
	if c.Network.ChainSelector != 0 {
		if _, err := utils.EVMChainID(c.Network.ChainSelector); err != nil {
			return 0, fmt.Errorf("network.chain_selector %d: %w", c.Network.ChainSelector, err)
		}

		return c.Network.ChainSelector, nil
	}
	if c.Network.ChainID == 0 {
		return 0, errors.New("one of network.chain_selector or network.chain_id is required")
	}

	selector, err := utils.SelectorFromEVMChainID(c.Network.ChainID)
	if err != nil {
		return 0, fmt.Errorf("network.chain_id %d: %w", c.Network.ChainID, err)
	}

	return selector, nil
}

// Deployment validates the configuration and converts it into the input of a deployment run.
func (c *Config) Deployment() (deployment.Config, error) {
	if err := c.Validate(); err != nil {
		return deployment.Config{}, err
	}

	out := deployment.Config{
		TargetNetwork: c.Network.Name,
		Wallets: deployment.Wallets{
			Deployer: common.HexToAddress(c.Wallets.Deployer),
			Admin:    common.HexToAddress(c.Wallets.Admin),
			Treasury: common.HexToAddress(c.Wallets.Treasury),
		},
		Beneficiaries:     make(map[common.Address]uint64, len(c.Beneficiaries)),
		Mode:              deployment.ModeFull,
		TransferOwnership: c.TransferOwnership,
	}
	if c.DeployGRVTOnly {
		out.Mode = deployment.ModeGRVTOnly
	}

	for _, col := range c.Collaterals {
		out.Collaterals = append(out.Collaterals, deployment.CollateralConfig{
			Name:   col.Name,
			Token:  strings.TrimSpace(col.Token),
			Oracle: strings.TrimSpace(col.Oracle),
		})
	}
	for wallet, amount := range c.Beneficiaries {
		out.Beneficiaries[common.HexToAddress(wallet)] = amount
	}

	return out, nil
}

// ContractAddresses returns the configured contract addresses keyed by logical name. Contracts
// without an address are omitted.
func (c *Config) ContractAddresses() map[string]common.Address {
	out := map[string]common.Address{}
	for name, hex := range c.Contracts.byName() {
		if hex = strings.TrimSpace(hex); hex != "" && common.IsHexAddress(hex) {
			out[name] = common.HexToAddress(hex)
		}
	}

	return out
}

func requireAddress(field, hex string) error {
	if hex == "" {
		return fmt.Errorf("%s is required", field)
	}
	if !common.IsHexAddress(hex) {
		return fmt.Errorf("%s %q is not a hex address", field, hex)
	}
	if common.HexToAddress(hex) == (common.Address{}) {
		return fmt.Errorf("%s must not be the zero address", field)
	}

	return nil
}

func optionalAddress(field, hex string) error {
	hex = strings.TrimSpace(hex)
	if hex == "" || common.IsHexAddress(hex) {
		return nil
	}

	return fmt.Errorf("%s %q is not a hex address", field, hex)
}

// fileExists reports whether path names an existing file.
func fileExists(path string) bool {
	_, err := os.Stat(path)

	return !errors.Is(err, fs.ErrNotExist)
}
