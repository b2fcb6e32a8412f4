// Package metrics exposes the prometheus counters/gauges SPEC_FULL.md's
// domain stack calls for: installed-rule counts, registry refcount
// gauges, pool-exhaustion counters, and fanout-failure counters.
// Grounded on the pack's prometheus/client_golang usage (a struct of
// pre-registered vecs, updated inline at the call sites that already
// know the labels) rather than the teacher's own metrics package, which
// predates client_golang in this corpus and hand-rolls gauges instead.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Namespace prefixes every metric this package registers.
const Namespace = "flowcore"

// Metrics holds every counter/gauge pkg/core and its registries update.
// The zero value is not usable; construct with New and register the
// result with a prometheus.Registerer before use.
type Metrics struct {
	RulesInstalled   *prometheus.CounterVec
	RulesDestroyed   *prometheus.CounterVec
	FlowPutFailures  *prometheus.CounterVec
	PoolExhausted    *prometheus.CounterVec
	FanoutFailures   prometheus.Counter
	TunnelRefcount   prometheus.Gauge
	TableIDRefcount  prometheus.Gauge
	PortsActive      prometheus.Gauge
	FlowsActive      prometheus.Gauge
}

// New constructs every metric, unregistered. Call Register to attach
// them to reg.
func New() *Metrics {
	return &Metrics{
		RulesInstalled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Name: "rules_installed_total",
			Help: "Hardware rules installed, by table.",
		}, []string{"table"}),
		RulesDestroyed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Name: "rules_destroyed_total",
			Help: "Hardware rules destroyed, by table.",
		}, []string{"table"}),
		FlowPutFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Name: "flow_put_failures_total",
			Help: "flow_put calls that returned an error, by errno.",
		}, []string{"errno"}),
		PoolExhausted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Name: "pool_exhausted_total",
			Help: "Allocator exhaustion events, by pool.",
		}, []string{"pool"}),
		FanoutFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace, Name: "fanout_failures_total",
			Help: "Per-uplink fanout rule installs that failed mid-fanout.",
		}),
		TunnelRefcount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace, Name: "tunnel_registry_size",
			Help: "Currently-interned tunnel-id triples.",
		}),
		TableIDRefcount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace, Name: "tableid_registry_size",
			Help: "Currently-interned hw-table ids, both key spaces combined.",
		}),
		PortsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace, Name: "ports_active",
			Help: "Currently-registered ports.",
		}),
		FlowsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace, Name: "flows_active",
			Help: "Currently-installed flows across all ports.",
		}),
	}
}

// Register attaches every metric to reg. Call once at startup.
func (m *Metrics) Register(reg prometheus.Registerer) {
	reg.MustRegister(
		m.RulesInstalled, m.RulesDestroyed, m.FlowPutFailures, m.PoolExhausted,
		m.FanoutFailures, m.TunnelRefcount, m.TableIDRefcount, m.PortsActive, m.FlowsActive,
	)
}
