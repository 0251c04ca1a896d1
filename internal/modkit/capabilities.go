package modkit

import "log/slog"

// The interfaces below are the opt-in capabilities of a module instance.
// Which ones an instance satisfies is checked exactly once, at registration,
// and frozen into a Capabilities set; nothing re-inspects the instance at
// runtime.

// Initializer is implemented by modules that need an init hook when they
// transition from Loading to Enabled.
type Initializer interface {
	Init(ctx *Context) error
}

// Disabler is implemented by modules that want to release resources when
// they are disabled. Errors are recorded but never veto the transition.
type Disabler interface {
	Disable(ctx *Context) error
}

// Reloadable is implemented by modules that support an in-place reload with
// no state transition.
type Reloadable interface {
	Reload(ctx *Context) error
}

// HealthReactive is implemented by modules that opt into the hysteresis
// loop. Both hooks are edge-triggered: OnDegraded fires once when the host
// metric drops below the degrade threshold, OnRecovered once when it climbs
// back to the recovery threshold.
type HealthReactive interface {
	OnDegraded(sample HealthSample, logger *slog.Logger) error
	OnRecovered(sample HealthSample, logger *slog.Logger) error
}

// HealthReporter is implemented by modules that can self-report a health
// snapshot on demand. This path is independent of the hysteresis loop.
type HealthReporter interface {
	Health() HealthSnapshot
}

// Capabilities records which optional interfaces a module instance
// satisfies.
type Capabilities struct {
	Init           bool
	Disable        bool
	Reload         bool
	HealthReactive bool
	HealthReporter bool
}

// CapabilitiesOf computes the capability set of an instance. A nil instance
// has no capabilities.
func CapabilitiesOf(instance any) Capabilities {
	if instance == nil {
		return Capabilities{}
	}
	var caps Capabilities
	_, caps.Init = instance.(Initializer)
	_, caps.Disable = instance.(Disabler)
	_, caps.Reload = instance.(Reloadable)
	_, caps.HealthReactive = instance.(HealthReactive)
	_, caps.HealthReporter = instance.(HealthReporter)
	return caps
}
