package livestream

import (
	"time"

	"github.com/bft-labs/livestream/internal/app"
	"github.com/bft-labs/livestream/internal/domain"
)

// EventHandler receives notifications about a Stream. Methods are called
// synchronously from the goroutine that observed the event and should
// return quickly.
type EventHandler interface {
	OnStateChange(StateChangeEvent)
	OnCaptureStarted(CaptureStartedEvent)
	OnCaptureStopped(CaptureStoppedEvent)
	OnPlaylistUpdate(PlaylistEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to
// handle only some events.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent)       {}
func (BaseEventHandler) OnCaptureStarted(CaptureStartedEvent) {}
func (BaseEventHandler) OnCaptureStopped(CaptureStoppedEvent) {}
func (BaseEventHandler) OnPlaylistUpdate(PlaylistEvent)       {}

type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

type CaptureStartedEvent struct {
	Format FrameFormat
}

// CaptureStoppedEvent is sent each time the capture loop loses its
// source. Err is io.EOF (wrapped) when the camera stopped delivering.
type CaptureStoppedEvent struct {
	Err    error
	Frames uint64
}

// PlaylistEvent is sent after the encoder rewrote the playlist.
type PlaylistEvent struct {
	Name      string
	Playlist  Playlist
	UpdatedAt time.Time
}

// eventEmitterWrapper adapts EventHandler to the internal emitter interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnCaptureStarted(format domain.FrameFormat) {
	if e.handler == nil {
		return
	}
	e.handler.OnCaptureStarted(CaptureStartedEvent{Format: format})
}

func (e *eventEmitterWrapper) OnCaptureStopped(err error, frames uint64) {
	if e.handler == nil {
		return
	}
	e.handler.OnCaptureStopped(CaptureStoppedEvent{Err: err, Frames: frames})
}

func (e *eventEmitterWrapper) OnPlaylistUpdate(update domain.PlaylistUpdate) {
	if e.handler == nil {
		return
	}
	e.handler.OnPlaylistUpdate(PlaylistEvent{
		Name:      update.Name,
		Playlist:  update.Playlist,
		UpdatedAt: update.UpdatedAt,
	})
}
