package capture

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pagechat",
		Subsystem: "capture",
		Name:      "turns_total",
		Help:      "Finished turns by outcome.",
	}, []string{"outcome"})
	turnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "pagechat",
		Subsystem: "capture",
		Name:      "turn_seconds",
		Help:      "Time from turn start to turn completion.",
		Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 80, 160, 320, 600},
	})
	pollTicks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pagechat",
		Subsystem: "capture",
		Name:      "poll_ticks_total",
		Help:      "Poll ticks executed by the completion detector.",
	})
	chunksEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pagechat",
		Subsystem: "capture",
		Name:      "chunks_emitted_total",
		Help:      "Incremental text chunks delivered to sinks.",
	})
	extractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pagechat",
		Subsystem: "capture",
		Name:      "extractions_total",
		Help:      "Final extractions by winning strategy.",
	}, []string{"source"})
	copyInterceptFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pagechat",
		Subsystem: "capture",
		Name:      "copy_intercept_failures_total",
		Help:      "Copy actions that produced no clipboard payload.",
	})
)

const (
	outcomeComplete    = "complete"
	outcomeCeiling     = "ceiling"
	outcomeNoCandidate = "no_candidate"
	outcomeEmpty       = "empty"
	outcomeAborted     = "aborted"
	outcomePageLost    = "page_lost"
)
