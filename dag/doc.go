// Package dag provides the directed dependency graph behind the plugin
// registry: cycle detection via depth-first traversal with an explicit
// recursion stack, and load-order computation via Kahn's algorithm.
package dag
