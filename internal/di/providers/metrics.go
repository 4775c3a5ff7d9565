package providers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samber/do/v2"

	"github.com/pilgrimapp/pilgrim-server/internal/metrics"
)

// MetricsHandle holds the process registry and the domain recorder on it.
type MetricsHandle struct {
	Registry *prometheus.Registry
	Recorder *metrics.Recorder
}

// ProvideMetrics provides a fresh Prometheus registry with the Go runtime
// and process collectors plus the Pilgrim counters.
func ProvideMetrics(i do.Injector) (*MetricsHandle, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &MetricsHandle{Registry: reg, Recorder: metrics.New(reg)}, nil
}
