// Package registry is the authoritative store of module descriptors and
// their lifecycle state. Map access is sharded through a concurrent map so
// unrelated modules never contend; the fields of a single entry are guarded
// by that entry's own RWMutex.
package registry
