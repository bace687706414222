// Package metrics exposes the Prometheus counters/histograms the
// orchestrator reports scan progress and store latency through.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the orchestrator.Metrics implementation backed by a
// prometheus.Registerer.
type Registry struct {
	pingReplies    prometheus.Counter
	openPorts      prometheus.Counter
	storeSaveSecs  prometheus.Histogram
	portProbesSent prometheus.Counter

	// lastProbesSent tracks the previous cumulative count reported by
	// pkg/portscan's progress callback, so only the delta is added to the
	// counter.
	lastProbesSent float64
}

// New constructs and registers the netrecon_* metric family against reg.
func New(reg prometheus.Registerer) *Registry {
	r := &Registry{
		pingReplies: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netrecon_ping_replies_total",
			Help: "Total number of ICMP echo replies observed across all ping sweeps.",
		}),
		openPorts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netrecon_ports_open_total",
			Help: "Total number of open ports observed across all port scans.",
		}),
		storeSaveSecs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "netrecon_store_save_duration_seconds",
			Help:    "Wall-clock duration of each result-store SaveRows commit.",
			Buckets: prometheus.DefBuckets,
		}),
		portProbesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netrecon_portscan_probes_sent_total",
			Help: "Total number of SYN probes sent across all port scans.",
		}),
	}

	reg.MustRegister(r.pingReplies, r.openPorts, r.storeSaveSecs, r.portProbesSent)
	return r
}

func (r *Registry) ObservePingReplies(n int) {
	r.pingReplies.Add(float64(n))
}

func (r *Registry) ObserveOpenPorts(n int) {
	r.openPorts.Add(float64(n))
}

func (r *Registry) ObserveStoreSave(d time.Duration) {
	r.storeSaveSecs.Observe(d.Seconds())
}

// ObservePortProbesSent is called with the cumulative count by
// pkg/portscan's progress callback; only the delta since the last call is
// meaningful to the counter.
func (r *Registry) ObservePortProbesSent(cumulative uint64) {
	r.portProbesSent.Add(float64(cumulative) - r.lastProbesSent)
	r.lastProbesSent = float64(cumulative)
}
