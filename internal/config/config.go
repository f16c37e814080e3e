package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "STAKEPLAN"

// Common holds the settings every command shares.
type Common struct {
	RPCURL       string
	IndexerURL   string
	SS58Prefix   uint16
	PGDSN        string
	PrefsFile    string
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string
}

// WatchConfig holds configuration for the watch command.
type WatchConfig struct {
	Common
	Account      string
	PollInterval time.Duration
	MetricsAddr  string
	Reserve      string
}

func newViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("ss58-prefix", 117)
	v.SetDefault("max-retries", 0)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}
	return v, nil
}

func readConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		return nil
	}
	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func loadCommon(v *viper.Viper) (Common, error) {
	prefix := v.GetUint("ss58-prefix")
	if prefix > 16383 {
		return Common{}, fmt.Errorf("ss58 prefix %d out of range", prefix)
	}
	return Common{
		RPCURL:       v.GetString("rpc"),
		IndexerURL:   v.GetString("indexer"),
		SS58Prefix:   uint16(prefix),
		PGDSN:        v.GetString("pg-dsn"),
		PrefsFile:    v.GetString("prefs-file"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
	}, nil
}

// LoadWatch merges config file, environment variables, and flags into WatchConfig.
func LoadWatch(cfgFile string, flags *pflag.FlagSet) (WatchConfig, error) {
	v, err := newViper(flags)
	if err != nil {
		return WatchConfig{}, err
	}
	v.SetDefault("poll-interval", 30*time.Second)
	v.SetDefault("metrics-addr", "")
	if err := readConfig(v, cfgFile); err != nil {
		return WatchConfig{}, err
	}

	common, err := loadCommon(v)
	if err != nil {
		return WatchConfig{}, err
	}
	return WatchConfig{
		Common:       common,
		Account:      strings.TrimSpace(v.GetString("account")),
		PollInterval: v.GetDuration("poll-interval"),
		MetricsAddr:  v.GetString("metrics-addr"),
		Reserve:      v.GetString("reserve"),
	}, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return splitAll(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return splitAll(items)
	default:
		return nil
	}
}

// splitAll handles env values, which arrive as one comma-separated string.
func splitAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, splitAndClean(item)...)
	}
	return out
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	return cleanStrings(strings.Split(input, ","))
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
