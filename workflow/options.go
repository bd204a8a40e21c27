package workflow

import (
	"github.com/flowmesh/workflow/emit"
	"github.com/flowmesh/workflow/metrics"
)

// Options collects Runner configuration. It can be constructed directly
// or built up with functional Option values; the two compose, mirroring
// the teacher's functional-options-plus-struct idiom.
type Options struct {
	// MaxSteps bounds the number of supersteps a run may execute, counted
	// by the run's step number (which a checkpoint restore carries over):
	// if work is still queued once that many supersteps have completed,
	// the run fails with a RunError, guarding against workflows whose
	// loops never terminate. Zero means unbounded.
	MaxSteps int

	// CheckpointEvery writes a checkpoint every N completed supersteps
	// (1 = every step). Zero disables checkpointing; RunHandle has no
	// method to write a checkpoint on demand.
	CheckpointEvery int

	Checkpoints CheckpointManager
	Emitter     emit.Emitter
	Metrics     metrics.Collector
}

// config is the internal accumulator Option values mutate.
type config struct {
	opts Options
}

// Option configures a Runner at construction time.
type Option func(*config) error

// WithMaxSteps sets Options.MaxSteps.
func WithMaxSteps(n int) Option {
	return func(c *config) error {
		c.opts.MaxSteps = n
		return nil
	}
}

// WithCheckpointEvery sets Options.CheckpointEvery.
func WithCheckpointEvery(n int) Option {
	return func(c *config) error {
		c.opts.CheckpointEvery = n
		return nil
	}
}

// WithCheckpointManager sets Options.Checkpoints.
func WithCheckpointManager(m CheckpointManager) Option {
	return func(c *config) error {
		c.opts.Checkpoints = m
		return nil
	}
}

// WithEmitter sets Options.Emitter.
func WithEmitter(e emit.Emitter) Option {
	return func(c *config) error {
		c.opts.Emitter = e
		return nil
	}
}

// WithMetrics sets Options.Metrics.
func WithMetrics(m metrics.Collector) Option {
	return func(c *config) error {
		c.opts.Metrics = m
		return nil
	}
}

// resolveOptions applies base (which may already have fields set
// directly) followed by each functional Option in order, so later
// options override earlier ones and explicit Options fields override
// neither (functional options always win, matching the teacher's
// "Options can be mixed... overrides opts if specified" rule).
func resolveOptions(base Options, opts ...Option) (Options, error) {
	cfg := &config{opts: base}
	for _, o := range opts {
		if o == nil {
			continue
		}
		if err := o(cfg); err != nil {
			return Options{}, err
		}
	}
	if cfg.opts.Emitter == nil {
		cfg.opts.Emitter = emit.NullEmitter{}
	}
	if cfg.opts.Metrics == nil {
		cfg.opts.Metrics = metrics.Noop{}
	}
	return cfg.opts, nil
}
