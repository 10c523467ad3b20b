// Package httpclient defines the boundary between the httpkit control
// plane and the transport that actually performs network attempts.
//
// The control plane never opens sockets. It drives an Executor — a
// function that performs exactly one network attempt against a Request
// descriptor and returns a Response descriptor or a typed error. Status
// code classification lives here so the retry scheduler and middleware
// pipeline can reason about failures without touching the wire.
package httpclient
