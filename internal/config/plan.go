package config

import (
	"time"

	"github.com/spf13/pflag"
)

// PlanConfig holds configuration for the plan command.
type PlanConfig struct {
	Common
	Accounts []string
	// Restake is only meaningful when RestakeSet; otherwise the stored
	// preference applies.
	Restake    bool
	RestakeSet bool
	Reserve    string
	MaxOps     int
	Out        string
	Submit     bool
	SignerURL  string
	Wait       time.Duration
}

// LoadPlan merges config file, environment variables, and flags into PlanConfig.
func LoadPlan(cfgFile string, flags *pflag.FlagSet) (PlanConfig, error) {
	v, err := newViper(flags)
	if err != nil {
		return PlanConfig{}, err
	}
	v.SetDefault("max-ops", 0)
	v.SetDefault("wait", 10*time.Second)
	if err := readConfig(v, cfgFile); err != nil {
		return PlanConfig{}, err
	}

	common, err := loadCommon(v)
	if err != nil {
		return PlanConfig{}, err
	}
	return PlanConfig{
		Common:     common,
		Accounts:   getStringSlice(v, "account"),
		Restake:    v.GetBool("restake"),
		RestakeSet: v.IsSet("restake"),
		Reserve:    v.GetString("reserve"),
		MaxOps:     v.GetInt("max-ops"),
		Out:        v.GetString("out"),
		Submit:     v.GetBool("submit"),
		SignerURL:  v.GetString("signer"),
		Wait:       v.GetDuration("wait"),
	}, nil
}
