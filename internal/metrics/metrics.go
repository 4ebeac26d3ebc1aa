// Package metrics exposes the service's Prometheus instruments. Exported vars
// are used directly from the hot paths; labels are kept low-cardinality
// (author class, result) so the registry stays bounded.
package metrics

import (
    "time"

    "github.com/prometheus/client_golang/prometheus"
)

var (
    FanoutRefs = prometheus.NewCounterVec(prometheus.CounterOpts{
        Name: "timeline_fanout_refs_total",
        Help: "Post references written during fan-out, by author class",
    }, []string{"class"})
    FanoutLanding = prometheus.NewHistogram(prometheus.HistogramOpts{
        Name:    "timeline_fanout_landing_seconds",
        Help:    "Latency from ingest receipt to fan-out completion per post",
        Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
    })
    FanoutDeadLetters = prometheus.NewCounter(prometheus.CounterOpts{
        Name: "timeline_fanout_dead_letters_total",
        Help: "Recipient appends abandoned after bounded retries",
    })
    CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
        Name: "timeline_cache_hits_total",
        Help: "Assembler reads served by cache alone",
    })
    CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
        Name: "timeline_cache_misses_total",
        Help: "Assembler reads that fell back to the log",
    })
    AssembleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
        Name:    "timeline_assemble_seconds",
        Help:    "Home timeline assembly duration",
        Buckets: prometheus.DefBuckets,
    })
    IngestEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
        Name: "timeline_ingest_events_total",
        Help: "Post-created events consumed from the bus, by result",
    }, []string{"result"})
)

func init() {
    prometheus.MustRegister(FanoutRefs, FanoutLanding, FanoutDeadLetters,
        CacheHits, CacheMisses, AssembleDuration, IngestEvents)
}

// ObserveAssemble records one assembly run.
func ObserveAssemble(start time.Time) {
    AssembleDuration.Observe(time.Since(start).Seconds())
}
