package prefetch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// prefetchInFlight tracks image loads running for the live selection
	prefetchInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "carousel_prefetch_in_flight",
			Help: "Number of image loads currently in flight",
		},
	)

	// imageLoadsTotal counts settled image loads by result
	imageLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carousel_image_loads_total",
			Help: "Total number of image loads by result",
		},
		[]string{"result"}, // "ready", "error", "discarded", "unavailable"
	)

	imageRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "carousel_image_retries_total",
			Help: "Total number of image load retries",
		},
	)
)
