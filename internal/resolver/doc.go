// Package resolver builds the dependency graph over registered module
// descriptors and answers the three questions the lifecycle controller
// needs: which REQUIRED cycles exist (with their full paths, for
// diagnostics), which declared dependencies are missing from the descriptor
// set, and in what deterministic order modules should be attempted.
//
// REQUIRED edges drive cycle detection and ordering. SOFT edges never block
// either; they only nudge the order so a soft dependency loads before its
// dependent when that does not conflict with REQUIRED ordering.
package resolver
