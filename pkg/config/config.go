package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// SourceConfig points at the external spreadsheet this process syncs from.
type SourceConfig struct {
	Ref  string `mapstructure:"ref"`
	Kind string `mapstructure:"kind"`
}

// WebhookConfig is the outbound push endpoint.
type WebhookConfig struct {
	URL string `mapstructure:"url"`
}

// YNABConfig selects a YNAB budget account as the push target. The token is
// read from the named environment variable, never from the config file.
type YNABConfig struct {
	TokenEnv  string `mapstructure:"token_env"`
	BudgetID  string `mapstructure:"budget_id"`
	AccountID string `mapstructure:"account_id"`
}

// Config is the full runtime configuration, loaded from config.yaml with
// SHEETBOOK_* environment and flag overrides layered on top.
type Config struct {
	DataDir      string        `mapstructure:"data_dir"`
	UserID       string        `mapstructure:"user_id"`
	ListenAddr   string        `mapstructure:"listen_addr"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	HTTPTimeout  time.Duration `mapstructure:"http_timeout"`
	Source       SourceConfig  `mapstructure:"source"`
	Webhook      WebhookConfig `mapstructure:"webhook"`
	YNAB         YNABConfig    `mapstructure:"ynab"`
}

// Build loads configuration: defaults, then the config file (explicit path or
// ./config.yaml), then environment, then any bound flags.
func Build(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("user_id", "local")
	v.SetDefault("listen_addr", "0.0.0.0:3000")
	v.SetDefault("poll_interval", time.Minute)
	v.SetDefault("http_timeout", 10*time.Second)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SHEETBOOK")
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// a missing default config file is fine; an explicit one is not
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound || cfgFile != "" {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// YNABToken resolves the configured token environment variable.
func (c *Config) YNABToken() string {
	if c.YNAB.TokenEnv == "" {
		return ""
	}
	return os.Getenv(c.YNAB.TokenEnv)
}

// StatePath is the location of the durable watcher/cursor state file.
func (c *Config) StatePath() string {
	return filepath.Join(c.DataDir, "state.yaml")
}

// LedgerDir is the directory holding per-ledger record files.
func (c *Config) LedgerDir() string {
	return filepath.Join(c.DataDir, "ledgers")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sheetbook"
	}
	return filepath.Join(home, ".sheetbook")
}
