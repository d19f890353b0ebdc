// Package ffmpeg runs an ffmpeg subprocess that turns raw frames written to its
// stdin into an HLS playlist and rolling segment files.
package ffmpeg

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/bft-labs/livestream/internal/domain"
	"github.com/bft-labs/livestream/internal/metrics"
	"github.com/bft-labs/livestream/internal/ports"
)

// stopGrace is how long ffmpeg gets to finalize the playlist after an interrupt.
const stopGrace = 5 * time.Second

type commandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// Encoder implements ports.Encoder with an ffmpeg subprocess.
type Encoder struct {
	cfg    Config
	logger ports.Logger

	// command builds the process; replaced in tests.
	command commandFunc

	mu        sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	done      chan struct{}
	waitErr   error
	closeOnce *sync.Once
}

// New creates an encoder. The process is not started until Start is called.
func New(cfg Config, logger ports.Logger) *Encoder {
	cfg.setDefaults()
	return &Encoder{
		cfg:     cfg,
		logger:  logger,
		command: exec.CommandContext,
	}
}

// Config returns the effective encoder configuration.
func (e *Encoder) Config() Config {
	return e.cfg
}

// Start launches ffmpeg for frames of format f.
// Canceling ctx interrupts ffmpeg so it can still write a final playlist.
func (e *Encoder) Start(ctx context.Context, f domain.FrameFormat) error {
	if err := f.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.done != nil {
		select {
		case <-e.done:
		default:
			return domain.ErrAlreadyRunning
		}
	}

	args := Args(e.cfg, f)
	cmd := e.command(ctx, e.cfg.Binary, args...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = stopGrace

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to get ffmpeg stdin pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to get ffmpeg stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	e.cmd = cmd
	e.stdin = stdin
	e.done = make(chan struct{})
	e.waitErr = nil
	e.closeOnce = &sync.Once{}
	metrics.SetBool(metrics.EncoderRunning, true)

	e.logger.Info("ffmpeg started",
		ports.String("resolution", f.Resolution()),
		ports.Float64("fps", f.FPS),
		ports.String("pix_fmt", f.PixelFormat),
		ports.String("playlist", e.cfg.PlaylistPath()),
		ports.Int("pid", cmd.Process.Pid),
	)

	go e.wait(cmd, stderr, e.done)
	return nil
}

// wait drains stderr into the logger, then reaps the process.
func (e *Encoder) wait(cmd *exec.Cmd, stderr io.Reader, done chan struct{}) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		e.logger.Debug("ffmpeg", ports.String("line", scanner.Text()))
	}

	err := cmd.Wait()

	e.mu.Lock()
	e.waitErr = err
	e.mu.Unlock()
	metrics.SetBool(metrics.EncoderRunning, false)

	if err != nil {
		e.logger.Warn("ffmpeg exited", ports.Err(err))
	} else {
		e.logger.Info("ffmpeg exited")
	}
	close(done)
}

// Write pushes raw frame bytes into ffmpeg's stdin.
func (e *Encoder) Write(p []byte) (int, error) {
	e.mu.Lock()
	stdin := e.stdin
	e.mu.Unlock()

	if stdin == nil {
		return 0, domain.ErrEncoderNotRunning
	}
	n, err := stdin.Write(p)
	if err != nil {
		return n, fmt.Errorf("write to ffmpeg stdin: %w", err)
	}
	return n, nil
}

// Running reports whether the ffmpeg process has been started and not yet exited.
func (e *Encoder) Running() bool {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()

	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Close closes ffmpeg's stdin and waits for it to exit.
// Safe to call more than once; later calls return the same exit error.
func (e *Encoder) Close() error {
	e.mu.Lock()
	stdin := e.stdin
	done := e.done
	once := e.closeOnce
	e.mu.Unlock()

	if done == nil {
		return nil
	}

	once.Do(func() {
		if err := stdin.Close(); err != nil {
			e.logger.Debug("close ffmpeg stdin", ports.Err(err))
		}
	})
	<-done

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.waitErr
}

var _ ports.Encoder = (*Encoder)(nil)
