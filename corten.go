// Package corten is the root of the inference engine: it names the
// version and collects the engine-wide knobs (solver iteration cap,
// rounding tolerance, default pulse size, matmul worker cap, kernel
// backend override) into one Config built with functional options,
// mirroring the teacher's NewMatrixOptions/MatrixOption defaulting idiom.
// Everything else — graph IR, fact lattice, operators, passes, planner,
// pulsification — lives in the subpackages this file's Config wires up.
package corten

import (
	"github.com/corten-ml/corten/kernel"
	"github.com/corten-ml/corten/tensor"
)

// Version is the engine's semantic version, bumped by hand alongside
// releases.
const Version = "0.1.0"

// Default knob values, applied by NewConfig before any Option runs.
const (
	DefaultIterationCap         = 1000
	DefaultRoundingToleranceOff = 1e-4
	DefaultRoundingToleranceOn  = 1e-2
	DefaultPulseSize            = 8
)

// Config collects the engine-wide knobs a host process may want to tune.
// The zero value is not meant to be used directly; build one with NewConfig.
type Config struct {
	// IterationCap bounds the inference solver's fixpoint loop (package
	// infer's Solve). The pass driver does not read it; it stops runaway
	// rewriting with its own patch-count watchdog.
	IterationCap int
	// ToleranceOff/ToleranceOn back tensor.CloseEnough's RoundingOff/
	// RoundingOn classes.
	ToleranceOff float64
	ToleranceOn  float64
	// DefaultPulseSize is a pulse length for callers to pass to IntoPulsed,
	// which always takes its pulse length as an explicit argument and does
	// not read this field itself.
	DefaultPulseSize int
	// MatMulWorkers caps kernel.MatMulF32's concurrent panel goroutines;
	// 0 leaves it unbounded (one goroutine per output panel).
	MatMulWorkers int
	// BackendOverride pins kernel.SelectBackend to a named backend,
	// bypassing GOARCH-based dispatch; empty leaves dispatch automatic.
	BackendOverride string
}

// Option mutates a Config under construction.
type Option func(*Config)

// WithIterationCap overrides the inference solver's iteration cap.
func WithIterationCap(n int) Option {
	return func(c *Config) { c.IterationCap = n }
}

// WithRoundingTolerance overrides both rounding-tolerance epsilons used by
// tensor.CloseEnough.
func WithRoundingTolerance(off, on float64) Option {
	return func(c *Config) {
		c.ToleranceOff = off
		c.ToleranceOn = on
	}
}

// WithDefaultPulseSize overrides Config.DefaultPulseSize.
func WithDefaultPulseSize(n int) Option {
	return func(c *Config) { c.DefaultPulseSize = n }
}

// WithMatMulWorkers caps kernel.MatMulF32's concurrent panel goroutines.
func WithMatMulWorkers(n int) Option {
	return func(c *Config) { c.MatMulWorkers = n }
}

// WithBackendOverride pins matmul kernel dispatch to a named backend
// (e.g. "generic-4x4"), bypassing GOARCH-based selection.
func WithBackendOverride(name string) Option {
	return func(c *Config) { c.BackendOverride = name }
}

// NewConfig builds a Config from its defaults plus the given options, then
// applies it — wiring ToleranceOff/On, MatMulWorkers and BackendOverride
// into their owning packages. IterationCap and DefaultPulseSize are read
// directly off the returned Config by callers building an InferenceModel
// or calling IntoPulsed, since those are call-site parameters rather than
// process-wide state.
func NewConfig(opts ...Option) *Config {
	c := &Config{
		IterationCap:     DefaultIterationCap,
		ToleranceOff:     DefaultRoundingToleranceOff,
		ToleranceOn:      DefaultRoundingToleranceOn,
		DefaultPulseSize: DefaultPulseSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.apply()
	return c
}

// apply pushes the process-wide knobs into the packages that own them.
func (c *Config) apply() {
	tensor.SetTolerances(c.ToleranceOff, c.ToleranceOn)
	kernel.SetMaxWorkers(c.MatMulWorkers)
	kernel.SetBackendOverride(c.BackendOverride)
}
