// Package simulatorhttp controls the synthetic telemetry feed.
package simulatorhttp

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/YoussefMadkour/SmartGen-Energy-AI/internal/simulator"
)

type statusResponse struct {
	Running         bool `json:"running"`
	IntervalSeconds int  `json:"interval_seconds"`
}

// StartHandler starts the simulation loop.
type StartHandler struct {
	runner *simulator.Runner
	logger *log.Logger
}

// NewStartHandler constructs a start handler.
func NewStartHandler(runner *simulator.Runner, logger *log.Logger) (*StartHandler, error) {
	if runner == nil {
		return nil, errors.New("simulator start: nil runner")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &StartHandler{runner: runner, logger: logger}, nil
}

// ServeHTTP handles POST /api/v1/simulator/start.
func (h *StartHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if err := h.runner.Start(); errors.Is(err, simulator.ErrAlreadyRunning) {
		http.Error(w, "simulator already running", http.StatusConflict)
		return
	} else if err != nil {
		h.logger.Printf("simulator start: %v", err)
		http.Error(w, "start simulator error", http.StatusInternalServerError)
		return
	}

	writeStatus(w, h.runner)
}

// StopHandler stops the simulation loop.
type StopHandler struct {
	runner *simulator.Runner
	logger *log.Logger
}

// NewStopHandler constructs a stop handler.
func NewStopHandler(runner *simulator.Runner, logger *log.Logger) (*StopHandler, error) {
	if runner == nil {
		return nil, errors.New("simulator stop: nil runner")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &StopHandler{runner: runner, logger: logger}, nil
}

// ServeHTTP handles POST /api/v1/simulator/stop.
func (h *StopHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if err := h.runner.Stop(); errors.Is(err, simulator.ErrNotRunning) {
		http.Error(w, "simulator not running", http.StatusConflict)
		return
	} else if err != nil {
		h.logger.Printf("simulator stop: %v", err)
		http.Error(w, "stop simulator error", http.StatusInternalServerError)
		return
	}

	writeStatus(w, h.runner)
}

// StatusHandler reports whether the loop is active.
type StatusHandler struct {
	runner *simulator.Runner
}

// NewStatusHandler constructs a status handler.
func NewStatusHandler(runner *simulator.Runner) (*StatusHandler, error) {
	if runner == nil {
		return nil, errors.New("simulator status: nil runner")
	}
	return &StatusHandler{runner: runner}, nil
}

// ServeHTTP handles GET /api/v1/simulator/status.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeStatus(w, h.runner)
}

func writeStatus(w http.ResponseWriter, runner *simulator.Runner) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(statusResponse{
		Running:         runner.Running(),
		IntervalSeconds: int(runner.Interval().Seconds()),
	})
}
