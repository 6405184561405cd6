package instance

import (
	"os"

	"github.com/annetom/pizzaria-checkout/pkg/env"
)

// ID identifies the running process in logs: the platform dyno name, then
// WORKER_ID, then the hostname.
func ID() string {
	if id := env.First("DYNO", "WORKER_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
