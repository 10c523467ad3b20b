// Package middleware implements the ordered, conditionally-filtered
// execution engine that runs around each logical request.
//
// A Pipeline maintains three independent phase lists (request, response,
// error), each kept sorted ascending by priority and stable for equal
// priorities. Entries can be restricted by URL patterns, HTTP methods, or
// a custom predicate, run under a per-entry timeout, and feed cumulative
// per-entry metrics. A pipeline run returns a Result; it never panics
// across the boundary.
package middleware
