// Package metrics defines prometheus metrics to expose
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_api_request_duration_seconds",
			Help:    "Total time taken for requests in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 15, 20, 30, 60, 120, 300, 600},
		},
		[]string{"path"},
	)

	TimeToFirstChunk = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_api_time_to_first_chunk_seconds",
			Help:    "Time until the first stream chunk is relayed downstream",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 15, 20, 30, 60, 120},
		},
		[]string{"model"},
	)

	StreamChunks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_api_stream_chunks_total",
			Help: "Total stream chunks relayed downstream",
		},
		[]string{"model"},
	)

	SkippedFrames = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_api_skipped_frames_total",
			Help: "Upstream frames dropped because they failed to parse",
		},
		[]string{"model"},
	)

	InflightStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_api_inflight_streams",
			Help: "Currently open relay sessions",
		},
	)

	ErrorCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_api_error_count",
			Help: "Error count",
		},
		[]string{"model", "from"},
	)

	ResponseCodes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_api_status_code",
			Help: "Status Codes",
		},
		[]string{"path", "status_code"},
	)
)
