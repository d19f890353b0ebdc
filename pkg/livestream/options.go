package livestream

// Option configures optional behavior of a Stream.
type Option func(*options)

type options struct {
	logger       Logger
	eventHandler EventHandler
	source       FrameSource
	encoder      Encoder
}

// WithLogger sets the logger. Without it nothing is logged.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for stream events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithFrameSource replaces the source selected by Config.Source. It is
// required for SourceCamera.
func WithFrameSource(source FrameSource) Option {
	return func(o *options) {
		o.source = source
	}
}

// WithEncoder replaces the ffmpeg encoder.
func WithEncoder(encoder Encoder) Option {
	return func(o *options) {
		o.encoder = encoder
	}
}
