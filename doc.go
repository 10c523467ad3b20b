// Package httpkit is a resilient, extensible HTTP client. The Client
// facade runs every request through a middleware pipeline, a retry
// scheduler with circuit-breaker admission, and an event bus, and can
// be extended at runtime through a plugin registry.
//
//	client, err := httpkit.New(httpkit.Config{BaseURL: "https://api.example.com"})
//	if err != nil {
//		return err
//	}
//	resp, err := client.Get(ctx, "/users/42")
package httpkit
