// Package clog wraps zap the way a threaded-through logger is used across
// the pack this module was grounded on: a logger is constructed once and
// passed explicitly into the components that need it (solver, pass driver,
// planner) rather than reached for as global state.
package clog

import "go.uber.org/zap"

// Verbosity mirrors the CLI's -v{,vv,vvv} levels from spec.md §6.4, kept
// here because the core (not the out-of-scope CLI) owns the logger
// construction that those flags eventually select.
type Verbosity int

const (
	// Quiet logs only warnings and errors.
	Quiet Verbosity = iota
	// Normal logs info-level milestones (pass fixpoint reached, plan built).
	Normal
	// Verbose logs debug-level detail (watchdog trips, solver iterations).
	Verbose
	// Trace logs every clause propagation and pulsification delay update.
	Trace
)

// New builds a *zap.SugaredLogger configured for the given verbosity.
// Quiet/Normal use zap's production encoder; Verbose/Trace use the
// development encoder with debug enabled, matching how the rest of the
// retrieved pack splits "prod" vs "dev" zap construction.
func New(v Verbosity) *zap.SugaredLogger {
	var cfg zap.Config
	if v >= Verbose {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	if v <= Quiet {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		// Construction only fails on a malformed config; defaulting to Nop
		// keeps logging a pure convenience rather than a hard dependency.
		return zap.NewNop().Sugar()
	}
	return logger.Sugar()
}

// Nop returns a logger that discards everything, used as the zero-value
// default so components never have to nil-check their logger.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
