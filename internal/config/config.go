package config

import (
	"fmt"
	"strings"

	"harvest-backend/internal/pkg/constants"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env          string
	DatabaseURL  string // postgres URL, or a SQLite path (default harvest.db)
	RedisURL     string // optional; without it events are only logged and keeper stats are off
	EventChannel string
	LogLevel     string

	PlatformFeeBps  uint64
	FeeCollector    common.Address
	VaultAccount    common.Address
	MinBidIncrement uint64

	GovernanceAddress   common.Address
	GovernanceTokenHash string // bcrypt hash of the governance capability token

	KeeperSchedule string
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("DATABASE_URL", "harvest.db")
	viper.SetDefault("EVENT_CHANNEL", "harvest:events")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("PLATFORM_FEE_BPS", constants.DefaultPlatformFeeBps)
	viper.SetDefault("MIN_BID_INCREMENT", constants.DefaultMinBidIncrement)
	viper.SetDefault("KEEPER_SCHEDULE", "@every 30s")

	cfg := &Config{
		Env:                 viper.GetString("APP_ENV"),
		DatabaseURL:         viper.GetString("DATABASE_URL"),
		RedisURL:            viper.GetString("REDIS_URL"),
		EventChannel:        viper.GetString("EVENT_CHANNEL"),
		LogLevel:            viper.GetString("LOG_LEVEL"),
		PlatformFeeBps:      viper.GetUint64("PLATFORM_FEE_BPS"),
		MinBidIncrement:     viper.GetUint64("MIN_BID_INCREMENT"),
		GovernanceTokenHash: viper.GetString("GOVERNANCE_TOKEN_HASH"),
		KeeperSchedule:      viper.GetString("KEEPER_SCHEDULE"),
	}
	if cfg.PlatformFeeBps > constants.MaxPlatformFeeBps {
		return nil, fmt.Errorf("PLATFORM_FEE_BPS %d exceeds %d", cfg.PlatformFeeBps, constants.MaxPlatformFeeBps)
	}
	if cfg.MinBidIncrement == 0 {
		return nil, fmt.Errorf("MIN_BID_INCREMENT must be positive")
	}

	var err error
	if cfg.FeeCollector, err = address("FEE_COLLECTOR"); err != nil {
		return nil, err
	}
	if cfg.VaultAccount, err = address("VAULT_ACCOUNT"); err != nil {
		return nil, err
	}
	if cfg.GovernanceAddress, err = address("GOVERNANCE_ADDRESS"); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// address reads an optional hex account; empty means unset.
func address(key string) (common.Address, error) {
	s := strings.TrimSpace(viper.GetString(key))
	if s == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%s is not a hex account address: %q", key, s)
	}
	return common.HexToAddress(s), nil
}
