package modkit

import (
	"fmt"
	"strings"
)

// State is the lifecycle state of a registered module. Transitions between
// states happen only through the lifecycle controller.
type State int

const (
	// Unloaded is the initial state of a freshly registered module.
	Unloaded State = iota
	// Loading is the transient state while injection and the init hook run.
	Loading
	// Enabled means the module is live. Invariant: every REQUIRED
	// dependency of an Enabled module is itself Enabled.
	Enabled
	// Disabled means the module was deliberately taken down, either by an
	// operator or by the enable policy. A manual enable brings it back.
	Disabled
	// Failed means injection, the init hook, or a dependency prevented the
	// module from enabling. Never retried automatically.
	Failed
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Enabled:
		return "enabled"
	case Disabled:
		return "disabled"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Priority orders modules that are otherwise unconstrained by dependencies.
// Higher priorities load earlier.
type Priority int

const (
	PriorityLowest Priority = iota
	PriorityLow
	PriorityNormal
	PriorityHigh
	PriorityHighest
)

func (p Priority) String() string {
	switch p {
	case PriorityLowest:
		return "lowest"
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityHighest:
		return "highest"
	default:
		return "unknown"
	}
}

// ParsePriority converts the textual form used in module manifests back into
// a Priority. The empty string maps to PriorityNormal.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(s) {
	case "":
		return PriorityNormal, nil
	case "lowest":
		return PriorityLowest, nil
	case "low":
		return PriorityLow, nil
	case "normal":
		return PriorityNormal, nil
	case "high":
		return PriorityHigh, nil
	case "highest":
		return PriorityHighest, nil
	default:
		return PriorityNormal, fmt.Errorf("unknown priority %q", s)
	}
}
