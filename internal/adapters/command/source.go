// Package command reads raw frames from the stdout of a capture process,
// by default ffmpeg reading a V4L2 device. It needs no cgo, unlike the gocv source.
package command

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/bft-labs/livestream/internal/domain"
	"github.com/bft-labs/livestream/internal/ports"
)

// readBufferSize is sized for a few 640x480 bgr24 frames.
const readBufferSize = 4 << 20

// DefaultArgv returns an ffmpeg invocation that reads device through V4L2 and writes
// raw frames of format f to stdout.
func DefaultArgv(ffmpeg, device string, f domain.FrameFormat) []string {
	return []string{
		ffmpeg,
		"-hide_banner",
		"-loglevel", "error",
		"-f", "v4l2",
		"-framerate", strconv.FormatFloat(f.FPS, 'f', -1, 64),
		"-video_size", f.Resolution(),
		"-i", device,
		"-f", "rawvideo",
		"-pix_fmt", f.PixelFormat,
		"-s", f.Resolution(),
		"-",
	}
}

// Source implements ports.FrameSource on top of a capture process.
type Source struct {
	argv   []string
	logger ports.Logger

	// command builds the process; replaced in tests.
	command func(ctx context.Context, name string, args ...string) *exec.Cmd

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdout *os.File
	reader *bufio.Reader
	done   chan struct{}
	size   int
	seq    uint64
}

// NewSource creates a source running argv. argv[0] is the executable.
func NewSource(argv []string, logger ports.Logger) *Source {
	return &Source{
		argv:    argv,
		logger:  logger,
		command: exec.CommandContext,
	}
}

// Open starts the capture process.
func (s *Source) Open(ctx context.Context, format domain.FrameFormat) error {
	if len(s.argv) == 0 {
		return fmt.Errorf("%w: empty capture command", domain.ErrCameraOpen)
	}
	if err := format.Validate(); err != nil {
		return err
	}

	cmd := s.command(ctx, s.argv[0], s.argv[1:]...)
	cmd.WaitDelay = time.Second

	// Wait closes cmd.StdoutPipe readers; with our own pipe, frames
	// buffered after the process exited are still read, then io.EOF.
	stdout, stdoutW, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("%w: stdout pipe: %v", domain.ErrCameraOpen, err)
	}
	cmd.Stdout = stdoutW

	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdout.Close()
		stdoutW.Close()
		return fmt.Errorf("%w: stderr pipe: %v", domain.ErrCameraOpen, err)
	}
	err = cmd.Start()
	// The child holds its own copy of the write end.
	stdoutW.Close()
	if err != nil {
		stdout.Close()
		return fmt.Errorf("%w: %v", domain.ErrCameraOpen, err)
	}

	s.mu.Lock()
	s.cmd = cmd
	s.stdout = stdout
	s.reader = bufio.NewReaderSize(stdout, readBufferSize)
	s.done = make(chan struct{})
	s.size = format.FrameSize()
	s.seq = 0
	done := s.done
	s.mu.Unlock()

	s.logger.Info("capture command started",
		ports.String("command", s.argv[0]),
		ports.Int("pid", cmd.Process.Pid),
		ports.Int("frame_size", format.FrameSize()),
	)

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			s.logger.Debug("capture", ports.String("line", scanner.Text()))
		}
		if err := cmd.Wait(); err != nil {
			s.logger.Debug("capture command exited", ports.Err(err))
		}
		if ctx.Err() != nil {
			// Orphaned grandchildren may still hold the write end.
			_ = stdout.SetReadDeadline(time.Now())
		}
		close(done)
	}()
	return nil
}

// Read reads exactly one frame from the process output.
// A trailing partial frame is discarded and reported as io.EOF.
func (s *Source) Read(ctx context.Context, frame *domain.Frame) error {
	s.mu.Lock()
	reader, size := s.reader, s.size
	s.mu.Unlock()

	if reader == nil {
		return domain.ErrCameraOpen
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if cap(frame.Data) >= size {
		frame.Data = frame.Data[:size]
	} else {
		frame.Data = make([]byte, size)
	}

	if _, err := io.ReadFull(reader, frame.Data); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return io.EOF
		}
		return err
	}

	s.seq++
	frame.Seq = s.seq
	frame.CapturedAt = time.Now()
	return nil
}

// Close stops the capture process and waits for it to exit.
func (s *Source) Close() error {
	s.mu.Lock()
	cmd, stdout, done := s.cmd, s.stdout, s.done
	s.cmd, s.stdout, s.reader = nil, nil, nil
	s.mu.Unlock()

	if cmd == nil {
		return nil
	}
	select {
	case <-done:
	default:
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			s.logger.Debug("kill capture command", ports.Err(err))
		}
		<-done
	}
	return stdout.Close()
}

var _ ports.FrameSource = (*Source)(nil)
