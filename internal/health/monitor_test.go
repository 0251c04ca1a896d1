package health

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/modhost/internal/modkit"
	"github.com/vk/modhost/internal/registry"
)

// scriptedSampler replays a fixed series of TPS readings, then keeps
// returning the last one.
type scriptedSampler struct {
	mu      sync.Mutex
	series  []float64
	idx     int
	samples atomic.Int64
}

func (s *scriptedSampler) Sample(ctx context.Context) (modkit.HealthSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples.Add(1)
	tps := s.series[s.idx]
	if s.idx < len(s.series)-1 {
		s.idx++
	}
	return modkit.HealthSample{TPS: tps, Time: time.Now()}, nil
}

// reactiveModule counts edge-triggered callbacks.
type reactiveModule struct {
	degraded  atomic.Int64
	recovered atomic.Int64
	onDegrade func() error
}

func (m *reactiveModule) OnDegraded(sample modkit.HealthSample, logger *slog.Logger) error {
	m.degraded.Add(1)
	if m.onDegrade != nil {
		return m.onDegrade()
	}
	return nil
}

func (m *reactiveModule) OnRecovered(sample modkit.HealthSample, logger *slog.Logger) error {
	m.recovered.Add(1)
	return nil
}

// reportingModule self-reports a snapshot on demand.
type reportingModule struct {
	snap  modkit.HealthSnapshot
	panic bool
}

func (m *reportingModule) Health() modkit.HealthSnapshot {
	if m.panic {
		panic("broken reporter")
	}
	return m.snap
}

func enabledEntry(t *testing.T, reg *registry.Registry, name string, instance any) *registry.Entry {
	t.Helper()
	require.NoError(t, reg.Register(modkit.Descriptor{Name: name, Instance: instance}))
	entry, ok := reg.Get(name)
	require.True(t, ok)
	entry.SetState(modkit.Enabled)
	return entry
}

func testConfig() Config {
	return Config{
		Interval:     time.Hour, // ticks are driven manually in tests
		DegradeBelow: 18.0,
		RecoverAt:    19.5,
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()
	reg := registry.New()
	sampler := &scriptedSampler{series: []float64{20}}

	t.Run("nil sampler", func(t *testing.T) {
		t.Parallel()
		_, err := New(reg, nil, testConfig())
		assert.Error(t, err)
	})

	t.Run("non-positive interval", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cfg.Interval = 0
		_, err := New(reg, sampler, cfg)
		assert.Error(t, err)
	})

	t.Run("thresholds must not overlap", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cfg.RecoverAt = cfg.DegradeBelow
		_, err := New(reg, sampler, cfg)
		assert.Error(t, err, "equal thresholds would oscillate on a flat reading")
	})
}

func TestMonitor_HysteresisIsEdgeTriggered(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// Readings straddle the 18.0 / 19.5 thresholds: two healthy ticks, two
	// degraded ticks, one recovery tick. Exactly one callback per edge.
	reg := registry.New()
	mod := &reactiveModule{}
	entry := enabledEntry(t, reg, "economy", mod)

	sampler := &scriptedSampler{series: []float64{20, 20, 17, 17, 20}}
	m, err := New(reg, sampler, testConfig())
	require.NoError(t, err)
	defer m.Stop()

	// --- Act ---
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		m.tick(ctx)
	}

	// --- Assert ---
	// The flag flips synchronously in the tick; the callbacks land async.
	assert.False(t, entry.Degraded())
	assert.Eventually(t, func() bool {
		return mod.degraded.Load() == 1 && mod.recovered.Load() == 1
	}, time.Second, 5*time.Millisecond, "want exactly one callback per edge")

	// A further healthy tick stays silent.
	m.tick(ctx)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(1), mod.degraded.Load())
	assert.Equal(t, int64(1), mod.recovered.Load())
}

func TestMonitor_ReadingBetweenThresholdsHoldsState(t *testing.T) {
	t.Parallel()

	// 19.0 sits in the dead band: not low enough to degrade, not high
	// enough to recover.
	reg := registry.New()
	mod := &reactiveModule{}
	entry := enabledEntry(t, reg, "economy", mod)

	sampler := &scriptedSampler{series: []float64{17, 19, 19, 19.5}}
	m, err := New(reg, sampler, testConfig())
	require.NoError(t, err)
	defer m.Stop()

	ctx := context.Background()
	m.tick(ctx) // 17: degrade
	assert.True(t, entry.Degraded())
	m.tick(ctx) // 19: hold
	m.tick(ctx) // 19: hold
	assert.True(t, entry.Degraded())
	m.tick(ctx) // 19.5: recover, threshold is inclusive
	assert.False(t, entry.Degraded())

	assert.Eventually(t, func() bool {
		return mod.degraded.Load() == 1 && mod.recovered.Load() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestMonitor_CallbackFailureIsIsolated(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// One module's callback errors, another's panics; the third is fine.
	// All three flags still flip and the loop keeps ticking.
	reg := registry.New()
	erroring := &reactiveModule{onDegrade: func() error { return errors.New("downstream unavailable") }}
	panicking := &reactiveModule{onDegrade: func() error { panic("callback bug") }}
	healthy := &reactiveModule{}
	e1 := enabledEntry(t, reg, "erroring", erroring)
	e2 := enabledEntry(t, reg, "panicking", panicking)
	e3 := enabledEntry(t, reg, "healthy", healthy)

	sampler := &scriptedSampler{series: []float64{10}}
	m, err := New(reg, sampler, testConfig())
	require.NoError(t, err)
	defer m.Stop()

	// --- Act ---
	m.tick(context.Background())

	// --- Assert ---
	assert.True(t, e1.Degraded())
	assert.True(t, e2.Degraded())
	assert.True(t, e3.Degraded())
	assert.Eventually(t, func() bool {
		return erroring.degraded.Load() == 1 &&
			panicking.degraded.Load() == 1 &&
			healthy.degraded.Load() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestMonitor_OnlyEnabledReactiveModulesAreEvaluated(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	reactive := &reactiveModule{}
	enabledEntry(t, reg, "reactive", reactive)

	// Registered but disabled: never evaluated.
	parked := &reactiveModule{}
	require.NoError(t, reg.Register(modkit.Descriptor{Name: "parked", Instance: parked}))
	parkedEntry, _ := reg.Get("parked")
	parkedEntry.SetState(modkit.Disabled)

	// Enabled but not health-reactive: ignored without error.
	enabledEntry(t, reg, "indifferent", struct{}{})

	sampler := &scriptedSampler{series: []float64{5}}
	m, err := New(reg, sampler, testConfig())
	require.NoError(t, err)
	defer m.Stop()

	m.tick(context.Background())

	assert.False(t, parkedEntry.Degraded())
	assert.Eventually(t, func() bool { return reactive.degraded.Load() == 1 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(0), parked.degraded.Load())
}

func TestMonitor_SampleErrorSkipsTick(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	mod := &reactiveModule{}
	entry := enabledEntry(t, reg, "economy", mod)

	failing := SamplerFunc(func(ctx context.Context) (modkit.HealthSample, error) {
		return modkit.HealthSample{}, errors.New("metric source down")
	})
	m, err := New(reg, failing, testConfig())
	require.NoError(t, err)
	defer m.Stop()

	m.tick(context.Background())

	assert.False(t, entry.Degraded(), "a failed sample must not change any flag")
	assert.Equal(t, int64(0), mod.degraded.Load())
}

func TestMonitor_StartStop(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	sampler := &scriptedSampler{series: []float64{20}}
	cfg := testConfig()
	cfg.Interval = 5 * time.Millisecond
	m, err := New(reg, sampler, cfg)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		m.Start(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool { return sampler.samples.Load() >= 3 },
		time.Second, time.Millisecond, "the loop should sample repeatedly")

	m.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Stop")
	}

	after := sampler.samples.Load()
	time.Sleep(25 * time.Millisecond)
	assert.Equal(t, after, sampler.samples.Load(), "no samples after Stop")
}

func TestMonitor_Snapshots(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	enabledEntry(t, reg, "economy", &reportingModule{snap: modkit.HealthSnapshot{
		Level:   modkit.Warning,
		Message: "queue backlog",
		Metrics: map[string]float64{"queue_depth": 42},
	}})
	enabledEntry(t, reg, "broken", &reportingModule{panic: true})
	enabledEntry(t, reg, "silent", struct{}{})

	sampler := &scriptedSampler{series: []float64{20}}
	m, err := New(reg, sampler, testConfig())
	require.NoError(t, err)
	defer m.Stop()

	snaps := m.Snapshots(context.Background())

	require.Len(t, snaps, 2)
	assert.Equal(t, modkit.Warning, snaps["economy"].Level)
	assert.Equal(t, float64(42), snaps["economy"].Metrics["queue_depth"])
	assert.Equal(t, modkit.Unhealthy, snaps["broken"].Level, "a panicking reporter degrades to unhealthy")
	assert.NotContains(t, snaps, "silent")
}
