package carousel

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// transitionsTotal counts dispatched actions
	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carousel_transitions_total",
			Help: "Total number of carousel state machine actions by type",
		},
		[]string{"action"}, // "select", "next", "previous", "metadata", "page", "image"
	)
)
