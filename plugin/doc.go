// Package plugin implements the extension layer of httpkit: pluggable
// modules with metadata, declared dependencies, lifecycle hooks, and
// capabilities that are integrated into a middleware pipeline and event
// bus when the plugin starts.
//
// The registry owns all lifecycle state and the dependency graph.
// Registration rejects unknown dependencies and dependency cycles;
// StartAll computes one global topological load order, so a dependency
// is always started no later than any of its dependents.
package plugin
