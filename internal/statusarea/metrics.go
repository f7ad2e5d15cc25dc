package statusarea

import (
	"github.com/prometheus/client_golang/prometheus"
)

// HostMetrics is a thin prometheus.Collector over the FSA's per-host
// counters, grounded on rclone's own fs/accounting pulling in
// prometheus/client_golang for the same kind of gauge (test files
// reference it; this mirrors the pattern the pack converges on for
// exposing transfer-engine internals, e.g. dittofs, objectfs,
// other_examples' warren).
type HostMetrics struct {
	area    *Area
	aliases map[int]string

	activeTransfers *prometheus.Desc
	errorCounter    *prometheus.Desc
}

// NewHostMetrics builds a collector over the given aliases (index ->
// alias), resolved once at registration time since Area doesn't expose
// a reverse index.
func NewHostMetrics(area *Area, aliases map[int]string) *HostMetrics {
	return &HostMetrics{
		area:    area,
		aliases: aliases,
		activeTransfers: prometheus.NewDesc(
			"afd_host_active_transfers",
			"Number of worker slots currently connected for this host.",
			[]string{"host"}, nil,
		),
		errorCounter: prometheus.NewDesc(
			"afd_host_error_counter",
			"Error count for this host since its last successful file transfer.",
			[]string{"host"}, nil,
		),
	}
}

func (m *HostMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.activeTransfers
	ch <- m.errorCounter
}

func (m *HostMetrics) Collect(ch chan<- prometheus.Metric) {
	for idx, alias := range m.aliases {
		active := m.area.ActiveTransfers(idx)
		ch <- prometheus.MustNewConstMetric(m.activeTransfers, prometheus.GaugeValue, float64(active), alias)

		errs := m.area.ErrorCounter(idx)
		ch <- prometheus.MustNewConstMetric(m.errorCounter, prometheus.GaugeValue, float64(errs), alias)
	}
}
