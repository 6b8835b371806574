package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/liuscraft/frequency/internal/audio"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome 标签取值
const (
	OutcomeOK         = "ok"
	OutcomeInvalid    = "invalid_argument"
	OutcomeAllocation = "allocation"
	OutcomeError      = "error"
)

// Gauges
var (
	ActiveTracks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "frequency_active_tracks",
		Help: "Number of tracks held by the server",
	})
	StreamConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "frequency_stream_connections",
		Help: "Number of open tone stream websocket connections",
	})
)

// Counters
var (
	TonesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frequency_tones_total",
		Help: "Total tone synthesis requests by outcome",
	}, []string{"outcome"})
	SamplesGeneratedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frequency_samples_generated_total",
		Help: "Total PCM samples synthesized",
	})
)

// Histograms
var (
	SynthesisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "frequency_synthesis_duration_seconds",
		Help:    "Time spent synthesizing one tone",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})
)

// Handler 暴露默认 registry
func Handler() http.Handler {
	return promhttp.Handler()
}

// Outcome 按错误类型给出 outcome 标签
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, audio.ErrInvalidArgument):
		return OutcomeInvalid
	case errors.Is(err, audio.ErrAllocation):
		return OutcomeAllocation
	default:
		return OutcomeError
	}
}

// ObserveSynthesis 记录一次合成的结果、样本数与耗时
func ObserveSynthesis(samples int, elapsed time.Duration, err error) {
	TonesTotal.WithLabelValues(Outcome(err)).Inc()
	if err != nil {
		return
	}
	SamplesGeneratedTotal.Add(float64(samples))
	SynthesisDuration.Observe(elapsed.Seconds())
}
