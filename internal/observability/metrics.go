// Package observability holds the Prometheus instruments shared by the
// voice session and the token service.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every instrument the process exports.
type Metrics struct {
	SessionsStarted prometheus.Counter
	SessionErrors   prometheus.Counter
	FunctionCalls   *prometheus.CounterVec
	AudioChunksIn   prometheus.Counter
	AudioChunksOut  prometheus.Counter
	CardsEmitted    *prometheus.CounterVec
	TokensMinted    prometheus.Counter
}

// New registers all instruments against reg. Pass
// prometheus.DefaultRegisterer for the process-wide registry, or a fresh
// one in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "mkevoice",
			Name:      "sessions_started_total",
			Help:      "Voice sessions started.",
		}),
		SessionErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "mkevoice",
			Name:      "session_errors_total",
			Help:      "Voice sessions ended by a terminal error.",
		}),
		FunctionCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mkevoice",
			Name:      "function_calls_total",
			Help:      "Function calls dispatched, by function name and outcome.",
		}, []string{"function", "status"}),
		AudioChunksIn: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "mkevoice",
			Name:      "audio_chunks_in_total",
			Help:      "Capture frames sent upstream.",
		}),
		AudioChunksOut: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "mkevoice",
			Name:      "audio_chunks_out_total",
			Help:      "Playback frames received from the model.",
		}),
		CardsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mkevoice",
			Name:      "cards_emitted_total",
			Help:      "UI cards emitted by function handlers, by card kind.",
		}, []string{"kind"}),
		TokensMinted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "mkevoice",
			Name:      "tokens_minted_total",
			Help:      "Ephemeral session tokens minted.",
		}),
	}
}
