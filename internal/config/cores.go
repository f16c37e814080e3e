package config

import "github.com/spf13/pflag"

// CoresConfig holds configuration for the cores command.
type CoresConfig struct {
	Common
	WithTotals bool
}

// LoadCores merges config file, environment variables, and flags into CoresConfig.
func LoadCores(cfgFile string, flags *pflag.FlagSet) (CoresConfig, error) {
	v, err := newViper(flags)
	if err != nil {
		return CoresConfig{}, err
	}
	if err := readConfig(v, cfgFile); err != nil {
		return CoresConfig{}, err
	}

	common, err := loadCommon(v)
	if err != nil {
		return CoresConfig{}, err
	}
	return CoresConfig{Common: common, WithTotals: v.GetBool("with-totals")}, nil
}
