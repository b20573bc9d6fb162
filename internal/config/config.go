// Package config loads and validates the TOML configuration document that
// parameterizes a simulation run or batch.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/rbbnet/bftsim/internal/simerrors"
)

// EfficiencyMode selects how the monthly analyzer computes its denominator.
type EfficiencyMode string

const (
	EfficiencyModeSpan  EfficiencyMode = "span"
	EfficiencyModeFixed EfficiencyMode = "fixed"
)

// Config holds every parameter governing a simulation run, a batch of runs,
// and the monthly analyzer.
type Config struct {
	SimulationDurationDays int     `toml:"simulation_duration_days"`
	NumValidators          int     `toml:"num_validators"`
	NumSimulations         int     `toml:"num_simulations"`

	BlockTime      float64 `toml:"block_time"`
	RequestTimeout float64 `toml:"request_timeout"`

	ResetMeetingIntervalHours  float64 `toml:"reset_meeting_interval_in_hours"`
	LegacyMeetingIntervalHours float64 `toml:"meeting_interval_in_hours"`

	AdjustMeetingIntervalHours  float64 `toml:"adjust_meeting_interval_in_hours"`
	AdjustProcedureIntervalInBlocks int `toml:"adjust_procedure_interval_in_blocks"`
	PRegisterFail                   float64 `toml:"adjust_procedure_call_failure_probability"`

	POperatorAbsence float64 `toml:"p_operator_absence"`

	TFailsShortDays float64 `toml:"T_fails_short_days"`
	TFailsLongDays  float64 `toml:"T_fails_long_days"`

	MeanShortOfflineMinutes float64 `toml:"mean_short_offline_minutes"`
	MeanLongOfflineHours    float64 `toml:"mean_long_offline_hours"`

	// Ambient extensions, not present in the original configuration key set.
	RandomSeed        int64          `toml:"random_seed"`
	OutputDir         string         `toml:"output_dir"`
	MetricsListenAddr string         `toml:"metrics_listen_addr"`
	MaxParallelRuns   int            `toml:"max_parallel_runs"`
	EfficiencyMode    EfficiencyMode `toml:"efficiency_mode"`
	ReservoirCapacity int            `toml:"reservoir_capacity"`
}

// Default returns a Config populated with the original simulator's defaults.
func Default() Config {
	return Config{
		SimulationDurationDays:     3,
		NumValidators:              10,
		NumSimulations:             1,
		BlockTime:                  5,
		RequestTimeout:             2,
		ResetMeetingIntervalHours:  24,
		AdjustMeetingIntervalHours: 5,
		PRegisterFail:              0.01,
		POperatorAbsence:           0.1,
		TFailsShortDays:            1,
		TFailsLongDays:             10,
		MeanShortOfflineMinutes:    5,
		MeanLongOfflineHours:       12,
		EfficiencyMode:             EfficiencyModeSpan,
		ReservoirCapacity:          10000,
	}
}

// Load reads and validates a TOML configuration document at path, filling in
// defaults for any field left unset by the file.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%w: decoding %s: %v", simerrors.ErrInvalidConfig, path, err)
	}
	// A document that sets only the legacy alias replaces the default
	// canonical reset interval instead of conflicting with it.
	if md.IsDefined("meeting_interval_in_hours") && !md.IsDefined("reset_meeting_interval_in_hours") {
		cfg.ResetMeetingIntervalHours = 0
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that every parameter is usable before any simulation
// starts, per the "reject bad configuration up front" error-handling rule.
func (c Config) Validate() error {
	if c.ResetMeetingIntervalHours > 0 && c.LegacyMeetingIntervalHours > 0 {
		return fmt.Errorf("%w: reset_meeting_interval_in_hours and meeting_interval_in_hours are aliases, set only one", simerrors.ErrInvalidConfig)
	}
	if c.SimulationDurationDays <= 0 {
		return fmt.Errorf("%w: simulation_duration_days must be positive", simerrors.ErrInvalidConfig)
	}
	if c.NumValidators <= 0 {
		return fmt.Errorf("%w: num_validators must be positive", simerrors.ErrInvalidConfig)
	}
	if c.NumSimulations <= 0 {
		return fmt.Errorf("%w: num_simulations must be positive", simerrors.ErrInvalidConfig)
	}
	if c.BlockTime <= 0 {
		return fmt.Errorf("%w: block_time must be positive", simerrors.ErrInvalidConfig)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request_timeout must be positive", simerrors.ErrInvalidConfig)
	}
	if c.POperatorAbsence < 0 || c.POperatorAbsence > 1 {
		return fmt.Errorf("%w: p_operator_absence must be within [0,1]", simerrors.ErrInvalidConfig)
	}
	if c.PRegisterFail < 0 || c.PRegisterFail > 1 {
		return fmt.Errorf("%w: adjust_procedure_call_failure_probability must be within [0,1]", simerrors.ErrInvalidConfig)
	}
	if c.TFailsShortDays <= 0 || c.TFailsLongDays <= 0 {
		return fmt.Errorf("%w: T_fails_short_days and T_fails_long_days must be positive", simerrors.ErrInvalidConfig)
	}
	if c.MeanShortOfflineMinutes <= 0 || c.MeanLongOfflineHours <= 0 {
		return fmt.Errorf("%w: offline duration means must be positive", simerrors.ErrInvalidConfig)
	}
	if c.EffectiveResetIntervalHours() <= 0 {
		return fmt.Errorf("%w: a positive reset meeting interval is required", simerrors.ErrInvalidConfig)
	}
	if c.AdjustProcedureIntervalInBlocks < 0 {
		return fmt.Errorf("%w: adjust_procedure_interval_in_blocks must not be negative", simerrors.ErrInvalidConfig)
	}
	if c.AdjustProcedureIntervalInBlocks == 0 && c.AdjustIntervalSeconds() <= 0 {
		return fmt.Errorf("%w: a positive adjust meeting interval is required when adjust_procedure_interval_in_blocks is 0", simerrors.ErrInvalidConfig)
	}
	if c.EfficiencyMode != "" && c.EfficiencyMode != EfficiencyModeSpan && c.EfficiencyMode != EfficiencyModeFixed {
		return fmt.Errorf("%w: efficiency_mode must be %q or %q", simerrors.ErrInvalidConfig, EfficiencyModeSpan, EfficiencyModeFixed)
	}
	return nil
}

// EffectiveResetIntervalHours resolves the reset-meeting interval, honoring
// the legacy alias key when the canonical one is unset.
func (c Config) EffectiveResetIntervalHours() float64 {
	if c.ResetMeetingIntervalHours > 0 {
		return c.ResetMeetingIntervalHours
	}
	return c.LegacyMeetingIntervalHours
}

// LambdaFailShort is the per-second rate of short-duration failure events.
func (c Config) LambdaFailShort() float64 { return 1.0 / (c.TFailsShortDays * 86400) }

// LambdaFailLong is the per-second rate of long-duration failure events.
func (c Config) LambdaFailLong() float64 { return 1.0 / (c.TFailsLongDays * 86400) }

// LambdaTotalFail is the combined per-validator failure-event rate.
func (c Config) LambdaTotalFail() float64 { return c.LambdaFailShort() + c.LambdaFailLong() }

// MeanShortOfflineSeconds is the mean short-failure offline duration.
func (c Config) MeanShortOfflineSeconds() float64 { return c.MeanShortOfflineMinutes * 60 }

// MeanLongOfflineSeconds is the mean long-failure offline duration.
func (c Config) MeanLongOfflineSeconds() float64 { return c.MeanLongOfflineHours * 3600 }

// SimulationDurationSeconds is the run's total simulated duration in seconds.
func (c Config) SimulationDurationSeconds() int64 {
	return int64(c.SimulationDurationDays) * 86400
}

// ResetIntervalSeconds is the RESET-meeting period in seconds.
func (c Config) ResetIntervalSeconds() int64 {
	return int64(c.EffectiveResetIntervalHours() * 3600)
}

// AdjustIntervalSeconds is the time-based ADJUST-meeting period in seconds,
// used whenever AdjustProcedureIntervalInBlocks is 0.
func (c Config) AdjustIntervalSeconds() int64 {
	return int64(c.AdjustMeetingIntervalHours * 3600)
}
