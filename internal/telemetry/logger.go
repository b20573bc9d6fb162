// Package telemetry constructs the structured logger shared by every
// long-lived component.
package telemetry

import "go.uber.org/zap"

// NewLogger builds a *zap.Logger configured for either production (compact,
// JSON, info level) or debug (human-readable console, debug level) use.
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		cfg := zap.NewDevelopmentConfig()
		return cfg.Build()
	}
	cfg := zap.NewProductionConfig()
	return cfg.Build()
}
