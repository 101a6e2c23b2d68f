package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// pageFetchesTotal counts settled page requests by result
	pageFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carousel_page_fetches_total",
			Help: "Total number of page requests by result",
		},
		[]string{"result"}, // "loaded", "error", "aborted", "stale"
	)
)
