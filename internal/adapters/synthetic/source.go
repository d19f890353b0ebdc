// Package synthetic generates a moving test pattern, for running the pipeline
// without a camera.
package synthetic

import (
	"context"
	"io"
	"time"

	"github.com/bft-labs/livestream/internal/domain"
	"github.com/bft-labs/livestream/internal/ports"
)

// Source implements ports.FrameSource with a generated gradient and a moving square.
type Source struct {
	// Limit stops the source with io.EOF after this many frames. Zero means unlimited.
	Limit uint64

	// Paced sleeps between frames to emulate the configured frame rate.
	Paced bool

	format domain.FrameFormat
	seq    uint64
	next   time.Time
}

// NewSource returns a paced, unlimited generator.
func NewSource() *Source {
	return &Source{Paced: true}
}

// Open validates the format. The generator has no device to acquire.
func (s *Source) Open(ctx context.Context, format domain.FrameFormat) error {
	if err := format.Validate(); err != nil {
		return err
	}
	s.format = format
	s.seq = 0
	s.next = time.Now()
	return nil
}

// Read renders the next pattern frame.
func (s *Source) Read(ctx context.Context, frame *domain.Frame) error {
	if s.Limit > 0 && s.seq >= s.Limit {
		return io.EOF
	}

	if s.Paced {
		if wait := time.Until(s.next); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		s.next = s.next.Add(s.format.FrameInterval())
	} else if err := ctx.Err(); err != nil {
		return err
	}

	size := s.format.FrameSize()
	if cap(frame.Data) >= size {
		frame.Data = frame.Data[:size]
	} else {
		frame.Data = make([]byte, size)
	}
	render(frame.Data, s.format, s.seq)

	s.seq++
	frame.Seq = s.seq
	frame.CapturedAt = time.Now()
	return nil
}

// Close is a no-op.
func (s *Source) Close() error {
	return nil
}

// render fills buf with frame n of the pattern.
func render(buf []byte, f domain.FrameFormat, n uint64) {
	w, h := f.Width, f.Height
	shift := byte(n * 2)

	box := w / 8
	if box < 1 {
		box = 1
	}
	boxX := int(n*4) % max(w-box, 1)
	boxY := int(n*3) % max(h-box, 1)
	inBox := func(x, y int) bool {
		return x >= boxX && x < boxX+box && y >= boxY && y < boxY+box
	}

	switch f.PixelFormat {
	case domain.PixelFormatBGR24, domain.PixelFormatRGB24:
		i := 0
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if inBox(x, y) {
					buf[i], buf[i+1], buf[i+2] = 255, 255, 255
				} else {
					buf[i] = byte(x*255/w) + shift
					buf[i+1] = byte(y*255/h) + shift
					buf[i+2] = 128 + shift
				}
				i += 3
			}
		}
	case domain.PixelFormatGray:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				v := byte((x+y)*255/(w+h)) + shift
				if inBox(x, y) {
					v = 255
				}
				buf[y*w+x] = v
			}
		}
	default:
		// Planar/packed YUV: a flat luma ramp with neutral chroma is enough for a test feed.
		luma := w * h
		for i := 0; i < len(buf); i++ {
			if i < luma {
				buf[i] = byte(i%w*255/w) + shift
			} else {
				buf[i] = 128
			}
		}
	}
}

var _ ports.FrameSource = (*Source)(nil)
