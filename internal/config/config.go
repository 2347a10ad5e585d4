// Package config loads room configuration from HCL with environment
// overrides for deployment settings.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/openfelt/cardroom/internal/engine"
	"github.com/openfelt/cardroom/internal/table"
	"github.com/openfelt/cardroom/poker"
)

// Config is the complete room configuration.
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Tables []TableConfig  `hcl:"table,block"`
}

// ServerSettings holds deployment-level settings. Environment
// variables override values from the file.
type ServerSettings struct {
	Address    string `hcl:"address,optional" env:"CARDROOM_ADDRESS"`
	Port       int    `hcl:"port,optional" env:"CARDROOM_PORT"`
	LogLevel   string `hcl:"log_level,optional" env:"CARDROOM_LOG_LEVEL"`
	HistoryDir string `hcl:"history_dir,optional" env:"CARDROOM_HISTORY_DIR"`
	// Seed fixes the shuffle RNG for reproducible rooms; 0 seeds from
	// the clock.
	Seed int64 `hcl:"seed,optional" env:"CARDROOM_SEED"`
}

// TableConfig defines one table.
type TableConfig struct {
	Name                 string `hcl:"name,label"`
	Variant              string `hcl:"variant,optional"`
	Structure            string `hcl:"structure,optional"`
	SmallBlind           int    `hcl:"small_blind"`
	BigBlind             int    `hcl:"big_blind"`
	Ante                 int    `hcl:"ante,optional"`
	MaxSeats             int    `hcl:"max_seats,optional"`
	BuyInMin             int    `hcl:"buy_in_min,optional"`
	BuyInMax             int    `hcl:"buy_in_max,optional"`
	ActionTimeoutSeconds int    `hcl:"action_timeout_seconds,optional"`
	TimeBankSeconds      int    `hcl:"time_bank_seconds,optional"`
	HandDelaySeconds     int    `hcl:"hand_delay_seconds,optional"`
	SitOutAfterMisses    int    `hcl:"sit_out_after_misses,optional"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Server: ServerSettings{
			Address:    "localhost",
			Port:       8080,
			LogLevel:   "info",
			HistoryDir: "hands",
		},
		Tables: []TableConfig{
			{
				Name:       "main",
				Variant:    string(poker.VariantHoldem),
				Structure:  string(engine.NoLimit),
				SmallBlind: 1,
				BigBlind:   2,
			},
		},
	}
}

// Load reads configuration from an HCL file, applies environment
// overrides and defaults, and validates the result. A missing file
// yields the defaults.
func Load(filename string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(filename); err == nil {
		parser := hclparse.NewParser()
		file, diags := parser.ParseHCLFile(filename)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parse %s: %s", filename, diags.Error())
		}
		parsed := &Config{}
		if diags := gohcl.DecodeBody(file.Body, nil, parsed); diags.HasErrors() {
			return nil, fmt.Errorf("decode %s: %s", filename, diags.Error())
		}
		cfg = parsed
	}

	if err := env.Parse(&cfg.Server); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.HistoryDir == "" {
		c.Server.HistoryDir = "hands"
	}
	for i := range c.Tables {
		t := &c.Tables[i]
		if t.Variant == "" {
			t.Variant = string(poker.VariantHoldem)
		}
		if t.Structure == "" {
			t.Structure = string(engine.NoLimit)
		}
		if t.MaxSeats == 0 {
			t.MaxSeats = 6
		}
		if t.BuyInMin == 0 {
			t.BuyInMin = t.BigBlind * 50
		}
		if t.BuyInMax == 0 {
			t.BuyInMax = t.BigBlind * 200
		}
		if t.ActionTimeoutSeconds == 0 {
			t.ActionTimeoutSeconds = 30
		}
		if t.TimeBankSeconds == 0 {
			t.TimeBankSeconds = 60
		}
		if t.HandDelaySeconds == 0 {
			t.HandDelaySeconds = 3
		}
		if t.SitOutAfterMisses == 0 {
			t.SitOutAfterMisses = 3
		}
	}
}

// Validate checks the whole configuration, delegating table rules to
// the table runtime.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if len(c.Tables) == 0 {
		return fmt.Errorf("at least one table must be configured")
	}
	seen := map[string]bool{}
	for _, tc := range c.Tables {
		if tc.Name == "" {
			return fmt.Errorf("table with empty name")
		}
		if seen[tc.Name] {
			return fmt.Errorf("duplicate table name %q", tc.Name)
		}
		seen[tc.Name] = true
		if _, err := tc.Runtime(); err != nil {
			return fmt.Errorf("table %s: %w", tc.Name, err)
		}
	}
	return nil
}

// Runtime converts the file representation into the table runtime's
// configuration.
func (tc TableConfig) Runtime() (table.Config, error) {
	variant, err := poker.ParseVariant(tc.Variant)
	if err != nil {
		return table.Config{}, err
	}
	structure, err := engine.ParseStructure(tc.Structure)
	if err != nil {
		return table.Config{}, err
	}
	cfg := table.Config{
		Variant:           variant,
		Structure:         structure,
		SmallBlind:        tc.SmallBlind,
		BigBlind:          tc.BigBlind,
		Ante:              tc.Ante,
		MaxSeats:          tc.MaxSeats,
		MinBuyIn:          tc.BuyInMin,
		MaxBuyIn:          tc.BuyInMax,
		ActionTimeout:     time.Duration(tc.ActionTimeoutSeconds) * time.Second,
		TimeBank:          time.Duration(tc.TimeBankSeconds) * time.Second,
		HandDelay:         time.Duration(tc.HandDelaySeconds) * time.Second,
		SitOutAfterMisses: tc.SitOutAfterMisses,
	}
	if err := cfg.Validate(); err != nil {
		return table.Config{}, err
	}
	return cfg, nil
}

// Address returns the listen address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
