package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// buildDuration tracks how long each feed takes to assemble
	buildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "askgraph_feed_build_duration_seconds",
			Help:    "Time spent assembling a feed",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"feed"},
	)

	// candidateCount tracks how many candidate rows a personalized feed considered before truncation
	candidateCount = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "askgraph_feed_candidates",
			Help:    "Number of candidate rows considered per personalized feed",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000},
		},
		[]string{"feed"},
	)
)
