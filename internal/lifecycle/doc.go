// Package lifecycle drives modules through the lifecycle state machine in
// resolver order. It owns every state transition: bulk registration with
// cascading failure, manual enable/disable/reload, and unregistration.
//
// Failures are isolated. An error from one module marks that module and its
// transitive REQUIRED dependents Failed, records the cause on each
// descriptor, and leaves unrelated dependency chains untouched; bulk
// operations always run to completion.
package lifecycle
