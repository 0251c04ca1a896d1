// Package hostmetric supplies Sampler implementations for the health
// monitor. The default sampler derives a ticks-per-second style reading
// from the host's one-minute load average, so the orchestrator degrades
// modules when the machine itself is saturated.
package hostmetric

import (
	"context"
	"runtime"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shirou/gopsutil/v3/load"

	"github.com/vk/modhost/internal/modkit"
)

// DefaultNominalTPS is the tick rate of an idle host, matching the 20 Hz
// convention of game-server tick loops.
const DefaultNominalTPS = 20.0

// sampleRetries bounds how often a transient load read is retried within a
// single sample.
const sampleRetries = 2

// LoadSampler maps the one-minute load average onto a 0..Nominal TPS scale:
// an idle machine reports the nominal rate, a machine at or beyond full
// per-core load reports 0.
type LoadSampler struct {
	// Nominal is the TPS an idle host reports. Defaults to
	// DefaultNominalTPS when zero.
	Nominal float64

	// readLoad is swappable for tests.
	readLoad func(ctx context.Context) (float64, error)
}

// NewLoadSampler creates a LoadSampler reading from gopsutil.
func NewLoadSampler(nominal float64) *LoadSampler {
	if nominal <= 0 {
		nominal = DefaultNominalTPS
	}
	return &LoadSampler{
		Nominal: nominal,
		readLoad: func(ctx context.Context) (float64, error) {
			avg, err := load.AvgWithContext(ctx)
			if err != nil {
				return 0, err
			}
			return avg.Load1, nil
		},
	}
}

// Sample implements health.Sampler. Transient read errors are retried with
// a short exponential backoff before the sample is given up on.
func (s *LoadSampler) Sample(ctx context.Context) (modkit.HealthSample, error) {
	var load1 float64
	op := func() error {
		var err error
		load1, err = s.readLoad(ctx)
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), sampleRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return modkit.HealthSample{}, err
	}

	return modkit.HealthSample{
		TPS:  scaleLoad(load1, runtime.NumCPU(), s.Nominal),
		Time: time.Now(),
	}, nil
}

// scaleLoad converts a load average into the TPS scale, clamped to
// [0, nominal].
func scaleLoad(load1 float64, cpus int, nominal float64) float64 {
	if cpus < 1 {
		cpus = 1
	}
	tps := nominal * (1 - load1/float64(cpus))
	if tps < 0 {
		return 0
	}
	if tps > nominal {
		return nominal
	}
	return tps
}
