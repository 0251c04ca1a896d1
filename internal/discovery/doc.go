// Package discovery is the external discovery collaborator shipped next to
// the core: it turns HCL module manifests and the enable/disable policy
// file into the already-parsed inputs the orchestrator consumes. The core
// packages never import discovery; a host is free to replace it with static
// registration or any other mechanism that produces descriptors.
package discovery
