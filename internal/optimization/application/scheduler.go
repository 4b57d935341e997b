package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// scheduledRunTimeout bounds a single scheduled optimization run.
const scheduledRunTimeout = time.Minute

// Scheduler re-runs the optimization on a cron schedule so the stored
// run history stays current without dashboard traffic.
type Scheduler struct {
	runner *cron.Cron
	logger *log.Logger
}

// NewScheduler constructs a scheduler that runs service.Optimize with
// the service defaults on the given cron spec.
func NewScheduler(service *Service, spec string, logger *log.Logger) (*Scheduler, error) {
	if service == nil {
		return nil, errors.New("optimization scheduler: nil service")
	}
	if spec == "" {
		return nil, errors.New("optimization scheduler: empty schedule")
	}
	if logger == nil {
		logger = log.Default()
	}

	runner := cron.New()
	if _, err := runner.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), scheduledRunTimeout)
		defer cancel()

		result, err := service.Optimize(ctx, OptimizeParams{})
		if err != nil {
			logger.Printf("optimization scheduler: run error: %v", err)
			return
		}
		logger.Printf("optimization scheduler: window %s-%s UTC, daily savings %.2f USD (%s)",
			result.Analysis.WindowStart.Format("15:04"),
			result.Analysis.WindowEnd.Format("15:04"),
			result.Analysis.Savings.DailySavingsUSD,
			result.RecommendationSource,
		)
	}); err != nil {
		return nil, fmt.Errorf("optimization scheduler: invalid schedule %q: %w", spec, err)
	}

	return &Scheduler{runner: runner, logger: logger}, nil
}

// Start launches the cron loop.
func (s *Scheduler) Start() {
	if s == nil || s.runner == nil {
		return
	}
	s.runner.Start()
}

// Stop halts scheduling and waits for a running job to finish.
func (s *Scheduler) Stop() {
	if s == nil || s.runner == nil {
		return
	}
	<-s.runner.Stop().Done()
}
