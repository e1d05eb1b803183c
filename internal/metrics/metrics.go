// Package metrics exports FHEM exchange and PSU state metrics to Prometheus.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/muurk/psufhem/internal/fhem"
	"github.com/muurk/psufhem/internal/psu"
)

// Collector implements fhem.Observer and prometheus.Collector.
type Collector struct {
	requests     *prometheus.CounterVec
	tokenRefresh prometheus.Counter
	errors       *prometheus.CounterVec
	psuOn        prometheus.Gauge
	psuEnabled   prometheus.Gauge
	lastChange   prometheus.Gauge
}

var _ fhem.Observer = (*Collector)(nil)

// NewCollector creates an unregistered collector.
func NewCollector() *Collector {
	return &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "psufhem_fhem_requests_total",
			Help: "FHEMWEB requests by command verb and HTTP status code",
		}, []string{"command", "code"}),
		tokenRefresh: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "psufhem_fhem_token_refresh_total",
			Help: "Commands retried after a stale csrf token",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "psufhem_fhem_errors_total",
			Help: "Failed FHEM operations by error kind",
		}, []string{"kind"}),
		psuOn: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "psufhem_psu_on",
			Help: "Last observed PSU state (1=on, 0=off)",
		}),
		psuEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "psufhem_psu_enabled",
			Help: "1 if a FHEM address is configured",
		}),
		lastChange: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "psufhem_psu_last_change_timestamp_seconds",
			Help: "Time of the last observed state change (epoch seconds)",
		}),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.requests.Describe(ch)
	c.tokenRefresh.Describe(ch)
	c.errors.Describe(ch)
	c.psuOn.Describe(ch)
	c.psuEnabled.Describe(ch)
	c.lastChange.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.requests.Collect(ch)
	c.tokenRefresh.Collect(ch)
	c.errors.Collect(ch)
	c.psuOn.Collect(ch)
	c.psuEnabled.Collect(ch)
	c.lastChange.Collect(ch)
}

// ObserveExchange implements fhem.Observer.
func (c *Collector) ObserveExchange(verb string, statusCode int, _ bool) {
	c.requests.WithLabelValues(verb, strconv.Itoa(statusCode)).Inc()
}

// ObserveTokenRefresh implements fhem.Observer.
func (c *Collector) ObserveTokenRefresh() {
	c.tokenRefresh.Inc()
}

// ObserveError implements fhem.Observer.
func (c *Collector) ObserveError(kind fhem.ErrorType) {
	c.errors.WithLabelValues(kind.Label()).Inc()
}

// ObserveEvent records a watcher event.
func (c *Collector) ObserveEvent(ev psu.Event) {
	c.psuOn.Set(boolToFloat(ev.On))
	c.psuEnabled.Set(boolToFloat(ev.Enabled))
	c.lastChange.Set(float64(ev.At.Unix()))
}

// Follow records events from ch until it is closed.
func (c *Collector) Follow(ch <-chan psu.Event) {
	for ev := range ch {
		c.ObserveEvent(ev)
	}
}

func boolToFloat(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
