package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefault_IsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestValidate_RejectsNonPositiveDuration(t *testing.T) {
	cfg := Default()
	cfg.SimulationDurationDays = 0
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsConflictingMeetingIntervalAliases(t *testing.T) {
	cfg := Default()
	cfg.ResetMeetingIntervalHours = 24
	cfg.LegacyMeetingIntervalHours = 5
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsOutOfRangeAbsence(t *testing.T) {
	cfg := Default()
	cfg.POperatorAbsence = 1.5
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsOutOfRangeRegisterFailProbability(t *testing.T) {
	cfg := Default()
	cfg.PRegisterFail = -0.1
	assert.Error(t, cfg.Validate())
}

func TestEffectiveResetIntervalHours_FallsBackToLegacyKey(t *testing.T) {
	cfg := Default()
	cfg.ResetMeetingIntervalHours = 0
	cfg.LegacyMeetingIntervalHours = 5
	assert.Equal(t, 5.0, cfg.EffectiveResetIntervalHours())
}

func TestLambdaRates(t *testing.T) {
	cfg := Default()
	cfg.TFailsShortDays = 1
	cfg.TFailsLongDays = 10
	assert.InDelta(t, 1.0/86400, cfg.LambdaFailShort(), 1e-12)
	assert.InDelta(t, cfg.LambdaFailShort()+cfg.LambdaFailLong(), cfg.LambdaTotalFail(), 1e-12)
}
