package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricToolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "surf",
		Name:      "tool_calls_total",
		Help:      "Tool calls by executing backend and outcome.",
	}, []string{"backend", "outcome"})

	metricFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "surf",
		Name:      "tool_fallbacks_total",
		Help:      "Browser-path failures that fell back to the subprocess backend.",
	})
)
