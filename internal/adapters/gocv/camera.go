// Package gocv reads frames from a local camera through OpenCV.
//
// Building this package requires OpenCV and cgo; see gocv.io for setup.
package gocv

import (
	"context"
	"fmt"
	"image"
	"io"
	"time"

	"gocv.io/x/gocv"

	"github.com/bft-labs/livestream/internal/domain"
	"github.com/bft-labs/livestream/internal/ports"
)

// Camera implements ports.FrameSource with gocv.VideoCapture.
type Camera struct {
	device int
	logger ports.Logger

	capture   *gocv.VideoCapture
	raw       gocv.Mat
	resized   gocv.Mat
	converted gocv.Mat
	format    domain.FrameFormat
	seq       uint64
}

// NewCamera creates a source for the camera with the given device index (0 is the default camera).
func NewCamera(device int, logger ports.Logger) *Camera {
	return &Camera{device: device, logger: logger}
}

// Open opens the video device and asks it for the configured resolution.
// The driver may ignore the hint; Read resizes whatever it delivers.
func (c *Camera) Open(ctx context.Context, format domain.FrameFormat) error {
	switch format.PixelFormat {
	case domain.PixelFormatBGR24, domain.PixelFormatRGB24, domain.PixelFormatGray:
	default:
		return fmt.Errorf("%w: %q (camera delivers bgr24, rgb24 or gray)", domain.ErrUnsupportedPixelFormat, format.PixelFormat)
	}

	capture, err := gocv.OpenVideoCapture(c.device)
	if err != nil {
		return fmt.Errorf("%w: device %d: %v", domain.ErrCameraOpen, c.device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("%w: device %d", domain.ErrCameraOpen, c.device)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(format.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(format.Height))
	capture.Set(gocv.VideoCaptureFPS, format.FPS)

	c.capture = capture
	c.raw = gocv.NewMat()
	c.resized = gocv.NewMat()
	c.converted = gocv.NewMat()
	c.format = format
	c.seq = 0

	c.logger.Info("camera opened",
		ports.Int("device", c.device),
		ports.Float64("driver_width", capture.Get(gocv.VideoCaptureFrameWidth)),
		ports.Float64("driver_height", capture.Get(gocv.VideoCaptureFrameHeight)),
	)
	return nil
}

// Read captures the next frame, resized to the configured geometry.
// Returns io.EOF when the device stops delivering frames.
func (c *Camera) Read(ctx context.Context, frame *domain.Frame) error {
	if c.capture == nil {
		return domain.ErrCameraOpen
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if ok := c.capture.Read(&c.raw); !ok {
			return io.EOF
		}
		if !c.raw.Empty() {
			break
		}
		// Some drivers hand out empty frames while warming up.
		time.Sleep(c.format.FrameInterval())
	}

	src := c.raw
	if src.Cols() != c.format.Width || src.Rows() != c.format.Height {
		gocv.Resize(src, &c.resized, image.Pt(c.format.Width, c.format.Height), 0, 0, gocv.InterpolationLinear)
		src = c.resized
	}

	switch c.format.PixelFormat {
	case domain.PixelFormatRGB24:
		gocv.CvtColor(src, &c.converted, gocv.ColorBGRToRGB)
		src = c.converted
	case domain.PixelFormatGray:
		gocv.CvtColor(src, &c.converted, gocv.ColorBGRToGray)
		src = c.converted
	}

	c.seq++
	frame.Seq = c.seq
	frame.Data = src.ToBytes()
	frame.CapturedAt = time.Now()
	return nil
}

// Close releases the device and the frame buffers.
func (c *Camera) Close() error {
	if c.capture == nil {
		return nil
	}
	c.raw.Close()
	c.resized.Close()
	c.converted.Close()
	err := c.capture.Close()
	c.capture = nil
	return err
}

var _ ports.FrameSource = (*Camera)(nil)
