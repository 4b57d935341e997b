package simulator

import (
	"math"
	"math/rand"
	"time"

	telemetry "github.com/YoussefMadkour/SmartGen-Energy-AI/internal/telemetry/domain"
)

// peakHour is where the daily load curve tops out; the trough falls
// twelve hours opposite, in the pre-dawn hours.
const peakHour = 14.0

// noiseFraction is the amplitude of load noise as a share of the
// configured power range.
const noiseFraction = 0.1

// Generator produces synthetic readings following a daily load curve
// with random noise.
type Generator struct {
	cfg   Config
	noise func() float64
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithNoise replaces the random noise source. Tests fix it to a
// constant to make readings deterministic.
func WithNoise(fn func() float64) GeneratorOption {
	return func(g *Generator) {
		if fn != nil {
			g.noise = fn
		}
	}
}

// NewGenerator constructs a Generator with a time-seeded noise source.
func NewGenerator(cfg Config, opts ...GeneratorOption) *Generator {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	g := &Generator{
		cfg: cfg,
		noise: func() float64 {
			return (rng.Float64()*2 - 1) * noiseFraction
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ReadingAt produces the synthetic reading for one instant. Load is
// clamped to the configured range and rounded to two decimals; fuel
// rate is proportional to load.
func (g *Generator) ReadingAt(ts time.Time) telemetry.Reading {
	utc := ts.UTC()
	hourOfDay := float64(utc.Hour()) + float64(utc.Minute())/60

	phase := (hourOfDay - peakHour) * 2 * math.Pi / 24
	span := g.cfg.MaxPowerKW - g.cfg.MinPowerKW
	base := g.cfg.MinPowerKW + span/2*(1+math.Cos(phase))

	load := base + g.noise()*span
	load = math.Min(g.cfg.MaxPowerKW, math.Max(g.cfg.MinPowerKW, load))
	load = round2(load)

	return telemetry.Reading{
		Timestamp:   utc,
		PowerLoadKW: load,
		FuelRateLPH: round2(load * g.cfg.FuelFactor),
		Status:      telemetry.StatusOn,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
