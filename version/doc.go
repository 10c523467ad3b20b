// Package version exposes the library's build version, used for the
// default User-Agent header on outgoing requests.
//
// Version and commit are set at compile time via -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/httpkit/version.Version=1.2.0"
package version
