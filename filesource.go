package flowtime

import (
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
)

// LoaderFunc parses the file behind a FileSource into a payload for one
// animation frame. It runs on the goroutine the source launches for the
// load, never on the context's executor.
type LoaderFunc func(req EvaluationRequest, path string, frame int) (*DataCollection, error)

// FileSource is a pipeline head that loads its payload from a file on
// demand and watches the file for modifications. A detected change
// invalidates everything downstream so the next evaluation reloads.
type FileSource struct {
	CachingPipelineObject

	path    string
	loader  LoaderFunc
	frames  int
	watcher *fsnotify.Watcher
}

// FileSourceOption configures a FileSource.
type FileSourceOption func(*FileSource)

// WithFrameCount declares how many animation frames the file provides.
// The default is one.
func WithFrameCount(frames int) FileSourceOption {
	return func(s *FileSource) { s.frames = frames }
}

// NewFileSource creates a file-backed source, adds it to ctx and starts
// watching path for modifications. The watcher is best effort: when the
// platform cannot watch the file, the source still works but stale
// results are only dropped by explicit Reload calls.
//
// Must run on the context's executor.
func NewFileSource(ctx *PipelineContext, path string, loader LoaderFunc, opts ...FileSourceOption) (*FileSource, error) {
	if loader == nil {
		return nil, fmt.Errorf("flowtime: FileSource requires a loader")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("flowtime: FileSource: %w", err)
	}

	s := &FileSource{path: path, loader: loader, frames: 1}
	for _, opt := range opts {
		opt(s)
	}
	s.initCaching(s)
	ctx.AddNode(s)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger := ctx.Logger()
		logger.Warn().Err(err).Str("path", path).Msg("file watch unavailable")
		return s, nil
	}
	if err := watcher.Add(path); err != nil {
		logger := ctx.Logger()
		logger.Warn().Err(err).Str("path", path).Msg("file watch failed")
		watcher.Close()
		return s, nil
	}
	s.watcher = watcher
	go s.watch(ctx, watcher)
	return s, nil
}

// Path returns the watched file path.
func (s *FileSource) Path() string { return s.path }

// SourceFrames returns the declared frame count.
func (s *FileSource) SourceFrames() int { return s.frames }

// watch forwards file modification events onto the context's executor.
// The context and watcher are captured as arguments: the node's ctx
// field is cleared when the node is removed, but the goroutine only
// exits once the watcher's channels close.
func (s *FileSource) watch(ctx *PipelineContext, watcher *fsnotify.Watcher) {
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				ctx.Submit(s.Reload)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger := ctx.Logger()
			logger.Warn().Err(err).Str("path", s.path).Msg("file watch error")
		}
	}
}

// detach closes the file watcher before the node loses its context, so
// the watch goroutine drains out instead of forwarding events for a
// removed node.
func (s *FileSource) detach() {
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
	s.NodeBase.detach()
}

// Reload drops the cached payload and announces the change downstream.
// The next evaluation re-invokes the loader.
//
// Must run on the context's executor.
func (s *FileSource) Reload() {
	s.invalidateCache(true, EmptyInterval())
	s.NotifyDependents(ChangeEvent{Kind: EventTargetChanged, Interval: EmptyInterval()})
}

// evaluateInternal loads the frame covering the requested time on a
// fresh goroutine, so evaluation never blocks the executor.
func (s *FileSource) evaluateInternal(req EvaluationRequest) Future[PipelineFlowState] {
	frame := s.FrameForEvalTime(req.Time())
	p := NewPromise[PipelineFlowState]()
	go func() {
		if req.Canceled() || p.IsCanceled() {
			p.SetFailed(ErrCanceled)
			return
		}
		data, err := s.loader(req, s.path, frame)
		if err != nil {
			state := ErrorState(err, s.frameValidity(frame))
			p.SetResult(state)
			return
		}
		state := NewFlowState(data, PipelineStatus{Type: StatusSuccess}, s.frameValidity(frame))
		p.SetResult(state)
	}()
	return p.Future()
}

// frameValidity returns the time range served by one frame. A
// single-frame file is valid for all times.
func (s *FileSource) frameValidity(frame int) TimeInterval {
	if s.frames <= 1 {
		return InfiniteInterval()
	}
	return NewTimeInterval(s.FrameTime(frame), s.FrameTime(frame+1)-1)
}

// Close stops the file watcher. The node itself stays usable.
func (s *FileSource) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
