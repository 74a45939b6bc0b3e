// Package metrics exposes a radio.System's live scheduling activity as
// Prometheus metrics (spec §10): per-engine scheduler pass counts and
// message throughput, per-buffer occupancy, reconfigure apply outcomes,
// and per-controller event-queue depth. Grounded on the teacher's
// pkg/metrics/metrics.go package-level Registry plus NewGaugeVec/
// NewCounterVec declarations, namespaced the same way.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/radioflow/runtime/internal/enginemanager"
)

const namespace = "radioflow"

// Registry is the process-wide registry every radioflow collector and
// counter in this package registers into, mirroring the teacher's
// package-level prometheus.NewRegistry() (pkg/metrics/metrics.go).
var Registry = prometheus.NewRegistry()

var reconfigApplies = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "system",
		Name:      "reconfig_applies_total",
		Help:      "Count of System.Reconfigure calls grouped by outcome.",
	},
	[]string{"result"},
)

var engineLoads = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "system",
		Name:      "radio_loads_total",
		Help:      "Count of System.LoadRadio calls grouped by outcome.",
	},
	[]string{"result"},
)

func init() {
	Registry.MustRegister(reconfigApplies, engineLoads)
}

// RecordReconfigApply counts one System.Reconfigure call by whether it
// succeeded.
func RecordReconfigApply(ok bool) {
	reconfigApplies.WithLabelValues(resultLabel(ok)).Inc()
}

// RecordRadioLoad counts one System.LoadRadio call by whether it succeeded.
func RecordRadioLoad(ok bool) {
	engineLoads.WithLabelValues(resultLabel(ok)).Inc()
}

func resultLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// Source is the subset of radio.System's surface this package's Collector
// scrapes at collection time; *radio.System satisfies it structurally, so
// radio never needs to import metrics.
type Source interface {
	EngineStats() map[string]enginemanager.EngineStats
	ControllerQueueDepths() map[string]int
}

var (
	enginePassesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "engine", "scheduler_passes_total"),
		"Cumulative PhyEngine scheduler passes, by engine.",
		[]string{"engine"}, nil,
	)
	engineMessagesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "engine", "messages_handled_total"),
		"Cumulative StackEngine messages handled, by engine.",
		[]string{"engine"}, nil,
	)
	bufferOccupancyDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "engine", "buffer_occupancy"),
		"Current pending-element count of a component's input buffer.",
		[]string{"engine", "buffer"}, nil,
	)
	controllerQueueDepthDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "controller", "event_queue_depth"),
		"Current undelivered event count of a controller's event queue.",
		[]string{"controller"}, nil,
	)
)

// Collector is a pull-based prometheus.Collector that reads a Source fresh
// on every scrape, rather than being updated on every engine pass — engine
// internals stay unaware that anything is watching them.
type Collector struct {
	source Source
}

// NewCollector returns a Collector reading from source.
func NewCollector(source Source) *Collector {
	return &Collector{source: source}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- enginePassesDesc
	ch <- engineMessagesDesc
	ch <- bufferOccupancyDesc
	ch <- controllerQueueDepthDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for name, stats := range c.source.EngineStats() {
		switch stats.Kind {
		case "stack":
			ch <- prometheus.MustNewConstMetric(engineMessagesDesc, prometheus.CounterValue, float64(stats.MessagesHandled), name)
		default:
			ch <- prometheus.MustNewConstMetric(enginePassesDesc, prometheus.CounterValue, float64(stats.Passes), name)
		}
		for bufName, occupancy := range stats.BufferOccupancy {
			ch <- prometheus.MustNewConstMetric(bufferOccupancyDesc, prometheus.GaugeValue, float64(occupancy), name, bufName)
		}
	}
	for controller, depth := range c.source.ControllerQueueDepths() {
		if depth < 0 {
			continue
		}
		ch <- prometheus.MustNewConstMetric(controllerQueueDepthDesc, prometheus.GaugeValue, float64(depth), controller)
	}
}

// RegisterSource registers a Collector over source into Registry. Callers
// (cmd/radiohost) do this once per loaded System.
func RegisterSource(source Source) error {
	return Registry.Register(NewCollector(source))
}

// Handler serves Registry in the Prometheus text exposition format,
// mirroring the teacher's pkg/metrics.Handler (promhttp.HandlerFor).
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
