package config

import (
	"fmt"
	"slices"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// defaultDotEnv is loaded when no .env file is named.
const defaultDotEnv = ".env"

var (
	// envBindings maps config keys to the environment variables that can provide their value.
	//
	// The first variable is the preferred name and any following ones are legacy names kept for
	// existing deployments. Viper uses the first variable that is set.
	envBindings = map[string][]string{
		"onchain.deployer_key":    {"ONCHAIN_EVM_DEPLOYER_KEY", "DEPLOYER_PRIVATEKEY"},
		"network.rpc_url":         {"NETWORK_RPC_URL", "RPC_URL"},
		"network.confirm_timeout": {"NETWORK_CONFIRM_TIMEOUT"},
		"state.backend":           {"STATE_BACKEND"},
		"state.path":              {"STATE_PATH"},
		"state.dsn":               {"STATE_POSTGRES_DSN", "DATABASE_URL"},
		"deploy_grvt_only":        {"DEPLOY_GRVT_ONLY"},
		"transfer_ownership":      {"TRANSFER_OWNERSHIP"},
		"log.level":               {"LOG_LEVEL"},
		"log.encoding":            {"LOG_ENCODING"},
	}
)

// bindEnvs binds the environment variables to the viper instance.
func bindEnvs(v *viper.Viper) error {
	for key, envs := range envBindings {
		// BindEnv takes the config key followed by the variable names
		inputs := slices.Insert(slices.Clone(envs), 0, key)

		if err := v.BindEnv(inputs...); err != nil {
			return err
		}
	}

	return nil
}

// loadDotEnv loads .env files into the process environment without overriding variables that
// are already set.
func loadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{defaultDotEnv}
	}

	existing := lo.Filter(files, func(f string, _ int) bool { return fileExists(f) })
	if len(existing) == 0 {
		return nil
	}

	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env files %v: %w", existing, err)
	}

	return nil
}
