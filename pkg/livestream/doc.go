// Package livestream provides an embeddable camera-to-HLS streaming service.
//
// A Stream reads raw frames from a camera, pipes them into an ffmpeg
// process that writes a rolling HLS playlist (index.m3u8) and segment
// files into an output directory, and serves that directory together with
// a small player page over HTTP.
//
// # Basic Usage
//
//	cfg := livestream.DefaultConfig()
//	cfg.Source = livestream.SourceCommand // ffmpeg v4l2 capture, no cgo
//
//	s, err := livestream.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := s.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Stop()
//
// Then open http://localhost:5000/stream.
//
// # HTTP Endpoints
//
//	GET /stream           player page (hls.js with native HLS fallback)
//	GET /hls/{filename}   playlist and segments from the output directory
//	GET /healthz          JSON status, 503 unless running with a live encoder
//	GET /metrics          Prometheus metrics
//	GET /events           websocket feed of playlist updates
//
// [Stream.Handler] exposes the same routes for mounting in another server.
//
// # Frame Sources
//
// [SourceCommand] and [SourceTest] are built in. The OpenCV camera
// ([SourceCamera]) needs cgo and is injected with [WithFrameSource]; the
// livestream command does this. Any [FrameSource] can be injected the same
// way, and [WithEncoder] replaces ffmpeg.
//
// # Failure Behavior
//
// When the camera cannot be opened or stops delivering frames, the
// capture loop ends and closes the encoder input, but the Stream stays
// in [StateRunning] and keeps serving HTTP. Set Config.Reconnect to reopen
// the camera with exponential backoff instead.
//
// # Lifecycle States
//
// A Stream is in one of [StateStopped], [StateStarting], [StateRunning],
// [StateStopping] or [StateCrashed]; see [Stream.Status].
package livestream
