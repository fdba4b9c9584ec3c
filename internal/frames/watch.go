package frames

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/kozaktomas/face-tracker/internal/pipeline"
)

const defaultDebounce = 400 * time.Millisecond

// WatchSource yields the frames already in a directory, then frames written into
// it later, in arrival order. A file is picked up once it has seen no write for
// the debounce interval.
type WatchSource struct {
	dir         string
	watcher     *fsnotify.Watcher
	queue       []string
	pending     map[string]time.Time // path -> last write event
	seen        map[string]bool
	debounce    time.Duration
	idleTimeout time.Duration
	lastFrame   time.Time
	logger      *zap.Logger
}

// WatchOption configures a WatchSource.
type WatchOption func(*WatchSource)

// WithDebounce sets how long a file must stay unchanged before it is read.
func WithDebounce(d time.Duration) WatchOption {
	return func(s *WatchSource) { s.debounce = d }
}

// WithIdleTimeout ends the stream when no new frame arrived for d. Zero waits forever.
func WithIdleTimeout(d time.Duration) WatchOption {
	return func(s *WatchSource) { s.idleTimeout = d }
}

// WithLogger sets a logger for watcher events.
func WithLogger(l *zap.Logger) WatchOption {
	return func(s *WatchSource) { s.logger = l }
}

// NewWatchSource starts watching dir. Close must be called to release the watcher.
func NewWatchSource(dir string, opts ...WatchOption) (*WatchSource, error) {
	s := &WatchSource{
		dir:      dir,
		pending:  make(map[string]time.Time),
		seen:     make(map[string]bool),
		debounce: defaultDebounce,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	s.watcher = w

	// Listing after Add means a file created in between is reported twice at
	// most, and seen filters the duplicate.
	existing, err := listFrames(dir)
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	for _, path := range existing {
		s.seen[path] = true
	}
	s.queue = existing
	s.lastFrame = time.Now()

	s.logger.Debug("watching frame directory", zap.String("dir", dir), zap.Int("existing", len(existing)))
	return s, nil
}

// Close stops watching the directory.
func (s *WatchSource) Close() error {
	return s.watcher.Close()
}

// Next implements pipeline.Source.
func (s *WatchSource) Next(ctx context.Context) (*pipeline.Frame, error) {
	for {
		if len(s.queue) > 0 {
			path := s.queue[0]
			s.queue = s.queue[1:]
			frame, err := readFrame(path)
			if errors.Is(err, os.ErrNotExist) {
				s.logger.Debug("frame disappeared before it was read", zap.String("path", path))
				continue
			}
			if err != nil {
				return nil, err
			}
			s.lastFrame = time.Now()
			return frame, nil
		}

		wait := s.nextWait()
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case ev, ok := <-s.watcher.Events:
			timer.Stop()
			if !ok {
				return nil, io.EOF
			}
			s.handleEvent(ev)
		case err, ok := <-s.watcher.Errors:
			timer.Stop()
			if !ok {
				return nil, io.EOF
			}
			s.logger.Warn("watcher error", zap.Error(err))
		case now := <-timer.C:
			s.flush(now)
			if len(s.queue) == 0 && len(s.pending) == 0 && s.idle(now) {
				return nil, io.EOF
			}
		}
	}
}

func (s *WatchSource) handleEvent(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	if !IsFrameFile(ev.Name) || s.seen[ev.Name] {
		return
	}
	s.logger.Debug("frame event", zap.String("op", ev.Op.String()), zap.String("path", ev.Name))
	s.pending[ev.Name] = time.Now()
}

// flush moves settled files into the queue, ordered by name within one batch.
func (s *WatchSource) flush(now time.Time) {
	var ready []string
	for path, last := range s.pending {
		if now.Sub(last) >= s.debounce {
			ready = append(ready, path)
		}
	}
	slices.Sort(ready)
	for _, path := range ready {
		delete(s.pending, path)
		s.seen[path] = true
	}
	s.queue = append(s.queue, ready...)
}

func (s *WatchSource) idle(now time.Time) bool {
	return s.idleTimeout > 0 && now.Sub(s.lastFrame) >= s.idleTimeout
}

// nextWait returns how long to sleep before pending files or the idle timeout
// need attention.
func (s *WatchSource) nextWait() time.Duration {
	wait := time.Hour
	if s.idleTimeout > 0 {
		wait = max(time.Until(s.lastFrame.Add(s.idleTimeout)), 0)
	}
	for _, last := range s.pending {
		if d := max(time.Until(last.Add(s.debounce)), 0); d < wait {
			wait = d
		}
	}
	return wait
}
