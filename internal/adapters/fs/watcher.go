package fs

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/livestream/internal/domain"
	"github.com/bft-labs/livestream/internal/metrics"
	"github.com/bft-labs/livestream/internal/ports"
)

// DefaultDebounce coalesces the create/write/rename burst ffmpeg emits per playlist rewrite.
const DefaultDebounce = 50 * time.Millisecond

// PlaylistWatcher watches the output directory and publishes a parsed playlist
// every time the encoder rewrites it.
type PlaylistWatcher struct {
	mu sync.RWMutex

	dir      string
	name     string
	debounce time.Duration
	logger   ports.Logger

	subscribers []ports.PlaylistSubscriber
	last        *domain.PlaylistUpdate
	timer       *time.Timer
	stopped     bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPlaylistWatcher creates a watcher for dir/name. A non-positive debounce uses DefaultDebounce.
func NewPlaylistWatcher(dir, name string, debounce time.Duration, logger ports.Logger) *PlaylistWatcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &PlaylistWatcher{
		dir:      dir,
		name:     name,
		debounce: debounce,
		logger:   logger,
	}
}

// Subscribe registers s for future playlist updates.
func (w *PlaylistWatcher) Subscribe(s ports.PlaylistSubscriber) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.subscribers = append(w.subscribers, s)
}

// Last returns the most recent update, if any.
func (w *PlaylistWatcher) Last() (domain.PlaylistUpdate, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.last == nil {
		return domain.PlaylistUpdate{}, false
	}
	return *w.last, true
}

// Start begins watching. The directory must exist.
func (w *PlaylistWatcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.stopped = false
	w.mu.Unlock()

	// A playlist may already exist when PrepareDir kept old files.
	w.refresh()

	w.wg.Add(1)
	go w.watchLoop(watchCtx, watcher)
	return nil
}

// Stop ends the watch loop and cancels any pending refresh.
func (w *PlaylistWatcher) Stop() {
	w.mu.Lock()
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	cancel := w.cancel
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}

func (w *PlaylistWatcher) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer w.wg.Done()
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != w.name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleRefresh()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("playlist watcher error", ports.Err(err))
		}
	}
}

func (w *PlaylistWatcher) scheduleRefresh() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.refresh)
}

// refresh re-reads the playlist and notifies subscribers.
func (w *PlaylistWatcher) refresh() {
	path := filepath.Join(w.dir, w.name)
	pl, err := ReadPlaylist(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			w.logger.Debug("playlist read failed", ports.String("path", path), ports.Err(err))
		}
		return
	}

	update := domain.PlaylistUpdate{
		Name:      w.name,
		Playlist:  pl,
		UpdatedAt: time.Now(),
	}

	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.last = &update
	subs := append([]ports.PlaylistSubscriber(nil), w.subscribers...)
	w.mu.Unlock()

	metrics.PlaylistUpdates.Inc()
	metrics.PlaylistSegments.Set(float64(len(pl.Segments)))
	metrics.PlaylistMediaSequence.Set(float64(pl.MediaSequence))
	metrics.PlaylistWindowSeconds.Set(pl.Window().Seconds())

	w.logger.Debug("playlist updated",
		ports.Int("segments", len(pl.Segments)),
		ports.Uint64("media_sequence", pl.MediaSequence),
	)

	for _, s := range subs {
		s.OnPlaylistUpdate(update)
	}
}
