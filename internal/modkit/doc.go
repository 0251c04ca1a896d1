// Package modkit defines the shared model of the orchestration core: the
// module descriptor, the lifecycle state machine's states, the optional
// capability interfaces a module instance may satisfy, and the health types
// exchanged between modules and the monitor.
//
// The package is deliberately free of behavior beyond capability detection;
// all state transitions are owned by the lifecycle controller and all
// mutable descriptor state lives in the registry.
package modkit
