// Package metrics exposes directory counters to Prometheus. Collector
// satisfies the observer hooks of the access checker and the directory.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MobilityFirst/GNS-sub011/internal/server/access"
	"github.com/MobilityFirst/GNS-sub011/internal/server/responsecode"
)

// Collector counts saga outcomes, rollbacks, access decisions and orphan
// sweep results.
type Collector struct {
	sagas        *prometheus.CounterVec
	rollbacks    *prometheus.CounterVec
	accessChecks *prometheus.CounterVec
	relinked     prometheus.Counter
	removed      prometheus.Counter
	sweeps       *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		sagas: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gns_saga_total",
			Help: "Directory operations by outcome.",
		}, []string{"op", "outcome"}),
		rollbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gns_rollbacks_total",
			Help: "Sagas that ran their compensation.",
		}, []string{"op"}),
		accessChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gns_access_checks_total",
			Help: "Access decisions by result code.",
		}, []string{"access", "result"}),
		relinked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gns_orphans_relinked_total",
			Help: "Sub-GUIDs linked back into their account by the orphan sweep.",
		}),
		removed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gns_orphans_removed_total",
			Help: "Sub-GUIDs deleted by the orphan sweep because their account was gone.",
		}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gns_orphan_sweeps_total",
			Help: "Orphan sweep runs by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(c.sagas, c.rollbacks, c.accessChecks, c.relinked, c.removed, c.sweeps)
	return c
}

func (c *Collector) ObserveSaga(op, outcome string) {
	c.sagas.WithLabelValues(op, outcome).Inc()
}

func (c *Collector) ObserveRollback(op string) {
	c.rollbacks.WithLabelValues(op).Inc()
}

func (c *Collector) ObserveAccessCheck(t access.Type, code responsecode.Code) {
	c.accessChecks.WithLabelValues(t.String(), code.Name()).Inc()
}

func (c *Collector) ObserveOrphans(relinked, removed int) {
	c.relinked.Add(float64(relinked))
	c.removed.Add(float64(removed))
}

// ObserveSweep records one sweep run; err is nil on success.
func (c *Collector) ObserveSweep(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.sweeps.WithLabelValues(result).Inc()
}

// Handler serves the gathered metrics in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
