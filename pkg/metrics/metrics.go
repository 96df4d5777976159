// Package metrics holds the gateway's in-process Prometheus registry.
//
// There is deliberately no HTTP endpoint here (out of scope per the
// gateway's external interfaces); the registry exists purely so collectors
// can be wired at startup and scraped by whatever wraps the process (a
// sidecar, a push-gateway job) in deployments that want it. When metrics
// are not initialised, every constructor in this package and its
// subpackages returns nil, and every recorder method on a nil receiver is
// a no-op.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
)

// InitRegistry creates the process-wide collector registry. Call once at
// startup before constructing any metrics. Safe to call more than once;
// later calls are no-ops.
func InitRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()

	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return registry != nil
}

// GetRegistry returns the process-wide registry, or nil if metrics are
// disabled.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}
