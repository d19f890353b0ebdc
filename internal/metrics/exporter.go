// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func init() {
	prometheus.MustRegister(FramesCaptured, FramesDropped, FrameBytesWritten, FrameWriteLatency)
	prometheus.MustRegister(CaptureErrors, CaptureRunning, EncoderRunning)
	prometheus.MustRegister(PlaylistUpdates, PlaylistSegments, PlaylistMediaSequence, PlaylistWindowSeconds)
	prometheus.MustRegister(HTTPRequests, EventSubscribers)
}

// Handler returns the Prometheus exposition handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument wraps h so every response is counted under the given handler label.
func Instrument(name string, h http.Handler) http.Handler {
	return promhttp.InstrumentHandlerCounter(
		HTTPRequests.MustCurryWith(prometheus.Labels{"handler": name}),
		h,
	)
}

// SetBool sets g to 1 for true and 0 for false.
func SetBool(g prometheus.Gauge, v bool) {
	if v {
		g.Set(1)
		return
	}
	g.Set(0)
}
