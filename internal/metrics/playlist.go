package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	PlaylistUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "livestream_playlist_updates_total",
		Help: "Number of times the encoder rewrote the playlist",
	})

	PlaylistSegments = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "livestream_playlist_segments",
		Help: "Segments currently listed in the playlist",
	})

	PlaylistMediaSequence = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "livestream_playlist_media_sequence",
		Help: "EXT-X-MEDIA-SEQUENCE of the current playlist",
	})

	PlaylistWindowSeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "livestream_playlist_window_seconds",
		Help: "Total duration covered by the listed segments",
	})

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livestream_http_requests_total",
			Help: "HTTP requests served, by handler and status code",
		},
		[]string{"handler", "code"},
	)

	EventSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "livestream_event_subscribers",
		Help: "Connected /events websocket clients",
	})
)
