package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	FramesCaptured = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "livestream_frames_captured_total",
		Help: "Total number of frames read from the camera",
	})

	FramesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livestream_frames_dropped_total",
			Help: "Frames read from the camera but not handed to the encoder",
		},
		[]string{"reason"}, // size_mismatch
	)

	FrameBytesWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "livestream_encoder_bytes_written_total",
		Help: "Raw frame bytes written into the encoder pipe",
	})

	FrameWriteLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "livestream_encoder_write_seconds",
		Help:    "Time spent blocked writing one frame into the encoder pipe",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
	})

	CaptureErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livestream_capture_errors_total",
			Help: "Capture loop failures",
		},
		[]string{"stage"}, // open, read, write
	)

	CaptureRunning = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "livestream_capture_running",
		Help: "1 while the capture loop is pushing frames, 0 otherwise",
	})

	EncoderRunning = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "livestream_encoder_running",
		Help: "1 while the encoder process is alive, 0 otherwise",
	})
)
