package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/bft-labs/livestream/internal/domain"
	"github.com/bft-labs/livestream/internal/metrics"
	"github.com/bft-labs/livestream/internal/ports"
)

// errEncoderWrite marks failures writing into the encoder pipe. They end
// the loop even when Reconnect is set: a fresh camera does not revive a
// dead encoder.
var errEncoderWrite = errors.New("write frame to encoder")

// PumpConfig contains configuration for the capture loop.
type PumpConfig struct {
	Format domain.FrameFormat

	// Reconnect reopens the frame source after it fails or runs dry.
	Reconnect      bool
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// CaptureEventEmitter is notified when the capture loop opens or loses
// the frame source.
type CaptureEventEmitter interface {
	OnCaptureStarted(format domain.FrameFormat)
	OnCaptureStopped(err error, frames uint64)
}

// PumpStats is a point-in-time view of the capture loop.
type PumpStats struct {
	Running bool
	Frames  uint64
	Dropped uint64
	Bytes   uint64
}

// Pump reads frames from a FrameSource and writes them into an Encoder.
// The encoder must already be started; Pump closes it when Run returns.
type Pump struct {
	config  PumpConfig
	source  ports.FrameSource
	encoder ports.Encoder
	logger  ports.Logger
	emitter CaptureEventEmitter

	running atomic.Bool
	frames  atomic.Uint64
	dropped atomic.Uint64
	bytes   atomic.Uint64
}

func NewPump(
	config PumpConfig,
	source ports.FrameSource,
	encoder ports.Encoder,
	logger ports.Logger,
	emitter CaptureEventEmitter,
) *Pump {
	return &Pump{
		config:  config,
		source:  source,
		encoder: encoder,
		logger:  logger,
		emitter: emitter,
	}
}

// Run captures until the source fails, the encoder pipe breaks, or ctx
// is canceled. The encoder input is closed and the encoder waited for
// on every exit path.
func (p *Pump) Run(ctx context.Context) error {
	defer func() {
		if cerr := p.encoder.Close(); cerr != nil && ctx.Err() == nil {
			p.logger.Warn("encoder exited with error", ports.Err(cerr))
		}
	}()

	bo := newBackoff(p.config.BackoffInitial, p.config.BackoffMax)

	for {
		before := p.frames.Load()
		err := p.capture(ctx)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !p.config.Reconnect || errors.Is(err, errEncoderWrite) {
			return err
		}

		if p.frames.Load() > before {
			bo.Reset()
		}
		p.logger.Warn("capture stopped, reopening device",
			ports.Err(err),
			ports.Duration("backoff", bo.Current()),
		)
		if !bo.Wait(ctx) {
			return ctx.Err()
		}
	}
}

// capture runs one open/read/write session against the source.
func (p *Pump) capture(ctx context.Context) error {
	format := p.config.Format

	if err := p.source.Open(ctx, format); err != nil {
		metrics.CaptureErrors.WithLabelValues("open").Inc()
		p.logger.Error("could not open video device", ports.Err(err))
		if !errors.Is(err, domain.ErrCameraOpen) {
			err = fmt.Errorf("%w: %w", domain.ErrCameraOpen, err)
		}
		return err
	}

	p.running.Store(true)
	metrics.SetBool(metrics.CaptureRunning, true)
	if p.emitter != nil {
		p.emitter.OnCaptureStarted(format)
	}
	p.logger.Info("capture started",
		ports.String("resolution", format.Resolution()),
		ports.Float64("fps", format.FPS),
		ports.String("pixel_format", format.PixelFormat),
	)

	var (
		frame   domain.Frame
		size    = format.FrameSize()
		session uint64
	)
	err := p.loop(ctx, &frame, size, &session)

	if cerr := p.source.Close(); cerr != nil {
		p.logger.Warn("failed to release video device", ports.Err(cerr))
	}
	p.running.Store(false)
	metrics.SetBool(metrics.CaptureRunning, false)

	if ctx.Err() == nil {
		p.logger.Info("capture stopped",
			ports.Uint64("frames", session),
			ports.Err(err),
		)
	}
	if p.emitter != nil {
		p.emitter.OnCaptureStopped(err, session)
	}
	return err
}

func (p *Pump) loop(ctx context.Context, frame *domain.Frame, size int, session *uint64) error {
	for {
		if err := p.source.Read(ctx, frame); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !errors.Is(err, io.EOF) {
				metrics.CaptureErrors.WithLabelValues("read").Inc()
			}
			return fmt.Errorf("read frame: %w", err)
		}

		*session++
		p.frames.Add(1)
		metrics.FramesCaptured.Inc()

		if len(frame.Data) != size {
			n := p.dropped.Add(1)
			metrics.FramesDropped.WithLabelValues("size_mismatch").Inc()
			if n == 1 || n%100 == 0 {
				p.logger.Warn("dropping frame with unexpected size",
					ports.Int("got", len(frame.Data)),
					ports.Int("want", size),
					ports.Uint64("dropped", n),
				)
			}
			continue
		}

		start := time.Now()
		n, err := p.encoder.Write(frame.Data)
		if err != nil {
			metrics.CaptureErrors.WithLabelValues("write").Inc()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Error("failed to write frame to encoder",
				ports.Uint64("seq", frame.Seq),
				ports.Err(err),
			)
			return fmt.Errorf("%w: %w", errEncoderWrite, err)
		}
		metrics.FrameWriteLatency.Observe(time.Since(start).Seconds())
		metrics.FrameBytesWritten.Add(float64(n))
		p.bytes.Add(uint64(n))
	}
}

func (p *Pump) Stats() PumpStats {
	return PumpStats{
		Running: p.running.Load(),
		Frames:  p.frames.Load(),
		Dropped: p.dropped.Load(),
		Bytes:   p.bytes.Load(),
	}
}
