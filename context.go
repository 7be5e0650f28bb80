package flowtime

import (
	"os"
	"sort"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// PipelineContext owns a set of pipeline nodes and the execution context
// they run on. All node interaction (evaluation, event delivery, cache
// mutation) is confined to the context's executor; calls arriving from
// other goroutines must be forwarded with Submit.
type PipelineContext struct {
	executor     Executor
	ownsExecutor bool
	arena        *NodeArena
	extensions   []Extension
	logger       zerolog.Logger
	displayTime  atomic.Int64
	evalLog      *EvaluationLog
	closed       bool
}

// ContextOption configures a PipelineContext.
type ContextOption func(*PipelineContext)

// WithExecutor supplies an execution context instead of the default
// dedicated SerialExecutor. The caller stays responsible for closing it.
func WithExecutor(ex Executor) ContextOption {
	return func(c *PipelineContext) {
		c.executor = ex
		c.ownsExecutor = false
	}
}

// WithLogger supplies the logger used by the context and its extensions.
func WithLogger(logger zerolog.Logger) ContextOption {
	return func(c *PipelineContext) { c.logger = logger }
}

// WithExtensions registers extensions at construction time.
func WithExtensions(exts ...Extension) ContextOption {
	return func(c *PipelineContext) { c.extensions = append(c.extensions, exts...) }
}

// WithEvaluationLogLimit bounds the evaluation history; the default
// keeps 1000 records.
func WithEvaluationLogLimit(limit int) ContextOption {
	return func(c *PipelineContext) { c.evalLog = newEvaluationLog(limit) }
}

// NewPipelineContext creates a context with a dedicated serial executor
// unless WithExecutor overrides it.
func NewPipelineContext(opts ...ContextOption) *PipelineContext {
	c := &PipelineContext{
		arena:   NewNodeArena(),
		logger:  zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.Disabled),
		evalLog: newEvaluationLog(1000),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.executor == nil {
		c.executor = NewSerialExecutor()
		c.ownsExecutor = true
	}
	sort.SliceStable(c.extensions, func(i, j int) bool {
		return c.extensions[i].Order() < c.extensions[j].Order()
	})
	for _, ext := range c.extensions {
		if err := ext.Init(c); err != nil {
			c.logger.Error().Err(err).Str("extension", ext.Name()).Msg("extension init failed")
		}
	}
	return c
}

// Executor returns the context's execution context.
func (c *PipelineContext) Executor() Executor { return c.executor }

// Logger returns the context's logger.
func (c *PipelineContext) Logger() zerolog.Logger { return c.logger }

// EvaluationLog returns the bounded evaluation history.
func (c *PipelineContext) EvaluationLog() *EvaluationLog { return c.evalLog }

// Submit forwards fn to the context's executor.
func (c *PipelineContext) Submit(fn func()) { c.executor.Submit(fn) }

// DisplayTime returns the current display time. Safe from any goroutine.
func (c *PipelineContext) DisplayTime() TimePoint {
	return TimePoint(c.displayTime.Load())
}

// SetDisplayTime updates the current display time. The display time
// decides which cache slot keeps its contents across invalidations and
// when preliminary state notifications fire.
func (c *PipelineContext) SetDisplayTime(t TimePoint) {
	c.displayTime.Store(int64(t))
}

// AddNode inserts a node into the context and returns its handle. Must
// run on the context's executor.
func (c *PipelineContext) AddNode(node PipelineObject) NodeHandle {
	h := c.arena.Insert(node)
	node.attach(c, h)
	c.logger.Debug().Stringer("node", h).Msg("node added")
	return h
}

// Node resolves a handle to its node, returning nil for stale handles.
func (c *PipelineContext) Node(h NodeHandle) PipelineObject {
	return c.arena.Get(h)
}

// RemoveNode detaches a node and invalidates its handle. Must run on the
// context's executor.
func (c *PipelineContext) RemoveNode(h NodeHandle) {
	node := c.arena.Get(h)
	if node == nil {
		return
	}
	node.detach()
	c.arena.Remove(h)
	c.logger.Debug().Stringer("node", h).Msg("node removed")
}

// NodeCount returns the number of live nodes.
func (c *PipelineContext) NodeCount() int { return c.arena.Len() }

// EachNode calls fn for every live node.
func (c *PipelineContext) EachNode(fn func(NodeHandle, PipelineObject)) {
	c.arena.Each(fn)
}

// UseExtension registers an extension after construction.
func (c *PipelineContext) UseExtension(ext Extension) error {
	if err := ext.Init(c); err != nil {
		return err
	}
	c.extensions = append(c.extensions, ext)
	sort.SliceStable(c.extensions, func(i, j int) bool {
		return c.extensions[i].Order() < c.extensions[j].Order()
	})
	return nil
}

func (c *PipelineContext) observeEvent(node NodeHandle, ev ChangeEvent) {
	for _, ext := range c.extensions {
		ext.OnEvent(node, ev)
	}
}

func (c *PipelineContext) evaluateStart(op *Operation) {
	c.evalLog.begin(op.Request.ID(), op.Node, op.Request.Time())
	for _, ext := range c.extensions {
		ext.OnEvaluateStart(op)
	}
}

func (c *PipelineContext) evaluateEnd(op *Operation, state PipelineFlowState, err error) {
	c.evalLog.end(op.Request.ID(), op.Node, state.Status(), err)
	for i := len(c.extensions) - 1; i >= 0; i-- {
		c.extensions[i].OnEvaluateEnd(op, state, err)
	}
}

// Close disposes the extensions and, if the context owns its executor,
// shuts the executor down after draining pending work. Close is
// idempotent.
func (c *PipelineContext) Close() {
	if c.closed {
		return
	}
	c.closed = true
	for i := len(c.extensions) - 1; i >= 0; i-- {
		if err := c.extensions[i].Dispose(c); err != nil {
			c.logger.Error().Err(err).Str("extension", c.extensions[i].Name()).Msg("extension dispose failed")
		}
	}
	if c.ownsExecutor {
		if se, ok := c.executor.(*SerialExecutor); ok {
			se.Close()
		}
	}
}
