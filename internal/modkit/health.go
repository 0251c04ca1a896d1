package modkit

import "time"

// HealthLevel grades a module's self-reported condition.
type HealthLevel int

const (
	Healthy HealthLevel = iota
	Warning
	Degraded
	Unhealthy
)

func (l HealthLevel) String() string {
	switch l {
	case Healthy:
		return "healthy"
	case Warning:
		return "warning"
	case Degraded:
		return "degraded"
	case Unhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// HealthSnapshot is a module's on-demand, self-reported status. It has no
// automatic effect on lifecycle state; the admin surface merely displays it.
type HealthSnapshot struct {
	Level   HealthLevel
	Message string
	Metrics map[string]float64
	Time    time.Time
}

// HealthSample is a single reading of the host performance metric, expressed
// as a ticks-per-second style value where higher is healthier.
type HealthSample struct {
	TPS  float64
	Time time.Time
}
