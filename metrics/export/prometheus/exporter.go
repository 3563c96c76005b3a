package prometheus

import (
	"net/http"

	agencyAuth "github.com/MrEthical07/agencyAuth"
	"github.com/MrEthical07/agencyAuth/metrics/export/internaldefs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsSource is what the collector reads on every scrape. *agencyAuth.Engine
// implements it.
type MetricsSource interface {
	MetricsSnapshot() agencyAuth.MetricsSnapshot
	AuditDropped() uint64
	RehashDropped() uint64
}

type counterDesc struct {
	id   agencyAuth.MetricID
	desc *prometheus.Desc
}

type histogramDesc struct {
	id   agencyAuth.MetricID
	desc *prometheus.Desc
}

// Collector is a prometheus.Collector over an engine's metric snapshot.
// Values are read at scrape time; nothing is copied between scrapes.
type Collector struct {
	source        MetricsSource
	counters      []counterDesc
	histograms    []histogramDesc
	auditDropped  *prometheus.Desc
	rehashDropped *prometheus.Desc
}

// NewCollector builds a collector reading from engine.
func NewCollector(engine *agencyAuth.Engine) *Collector {
	return NewCollectorFromSource(engine)
}

// NewCollectorFromSource builds a collector reading from source.
func NewCollectorFromSource(source MetricsSource) *Collector {
	c := &Collector{
		source:        source,
		counters:      make([]counterDesc, 0, len(internaldefs.CounterDefs)),
		histograms:    make([]histogramDesc, 0, len(internaldefs.HistogramDefs)),
		auditDropped:  prometheus.NewDesc(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, nil, nil),
		rehashDropped: prometheus.NewDesc(internaldefs.RehashDroppedName, internaldefs.RehashDroppedHelp, nil, nil),
	}
	for _, def := range internaldefs.CounterDefs {
		c.counters = append(c.counters, counterDesc{
			id:   def.ID,
			desc: prometheus.NewDesc(def.Name, def.Help, nil, nil),
		})
	}
	for _, def := range internaldefs.HistogramDefs {
		c.histograms = append(c.histograms, histogramDesc{
			id:   def.ID,
			desc: prometheus.NewDesc(def.Name, def.Help, nil, nil),
		})
	}
	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.counters {
		ch <- d.desc
	}
	for _, d := range c.histograms {
		ch <- d.desc
	}
	ch <- c.auditDropped
	ch <- c.rehashDropped
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.source == nil {
		return
	}

	snapshot := c.source.MetricsSnapshot()
	for _, d := range c.counters {
		ch <- prometheus.MustNewConstMetric(d.desc, prometheus.CounterValue, float64(snapshot.Counters[d.id]))
	}

	for _, d := range c.histograms {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[d.id]))
		buckets := make(map[float64]uint64, len(internaldefs.HistogramUpperBounds))
		for i, le := range internaldefs.HistogramUpperBounds {
			buckets[le] = cumulative[i]
		}
		// Sum is not tracked by the engine.
		ch <- prometheus.MustNewConstHistogram(d.desc, cumulative[len(cumulative)-1], 0, buckets)
	}

	ch <- prometheus.MustNewConstMetric(c.auditDropped, prometheus.CounterValue, float64(c.source.AuditDropped()))
	ch <- prometheus.MustNewConstMetric(c.rehashDropped, prometheus.CounterValue, float64(c.source.RehashDropped()))
}

// Handler serves the collector from a private registry. Use Register instead
// to expose the metrics next to others.
func Handler(engine *agencyAuth.Engine) http.Handler {
	registry := prometheus.NewRegistry()
	registry.MustRegister(NewCollector(engine))
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// Register adds a collector for engine to reg.
func Register(reg prometheus.Registerer, engine *agencyAuth.Engine) error {
	return reg.Register(NewCollector(engine))
}
