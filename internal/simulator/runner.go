package simulator

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/YoussefMadkour/SmartGen-Energy-AI/internal/observability/metrics"
	telemetryapp "github.com/YoussefMadkour/SmartGen-Energy-AI/internal/telemetry/application"
)

// recordTimeout bounds a single simulated reading store.
const recordTimeout = 5 * time.Second

// Control errors for the simulator lifecycle.
var (
	ErrAlreadyRunning = errors.New("simulator: already running")
	ErrNotRunning     = errors.New("simulator: not running")
)

// Runner drives the live simulation loop. The caller owns the handle;
// there is no process-wide simulator state.
type Runner struct {
	generator *Generator
	recorder  *telemetryapp.Recorder
	interval  time.Duration
	logger    *log.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRunner constructs a runner ticking at the generator's configured
// interval.
func NewRunner(generator *Generator, recorder *telemetryapp.Recorder, logger *log.Logger) (*Runner, error) {
	if generator == nil {
		return nil, errors.New("simulator runner: nil generator")
	}
	if recorder == nil {
		return nil, errors.New("simulator runner: nil recorder")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		generator: generator,
		recorder:  recorder,
		interval:  generator.cfg.Interval(),
		logger:    logger,
	}, nil
}

// Start launches the simulation loop.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.loop(ctx, r.done)
	r.logger.Printf("simulator: started, interval %s", r.interval)
	return nil
}

// Stop halts the loop and waits for it to exit.
func (r *Runner) Stop() error {
	r.mu.Lock()
	if r.cancel == nil {
		r.mu.Unlock()
		return ErrNotRunning
	}
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	cancel()
	<-done
	r.logger.Printf("simulator: stopped")
	return nil
}

// Running reports whether the loop is active.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

// Interval returns the simulation tick.
func (r *Runner) Interval() time.Duration {
	return r.interval
}

func (r *Runner) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			r.step(ctx, now)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Runner) step(ctx context.Context, now time.Time) {
	recordCtx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()

	if _, err := r.recorder.Record(recordCtx, r.generator.ReadingAt(now)); err != nil {
		r.logger.Printf("simulator: store reading: %v", err)
		return
	}
	metrics.IncSimulatorReading()
}
