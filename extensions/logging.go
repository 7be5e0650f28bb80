package extensions

import (
	"time"

	"github.com/rs/zerolog"

	flowtime "github.com/flowtime-fn/flowtime-go"
)

// LoggingExtension logs every evaluation with its duration and outcome.
type LoggingExtension struct {
	flowtime.BaseExtension

	logger zerolog.Logger
	starts map[string]time.Time
}

// NewLoggingExtension creates a new logging extension writing to logger.
func NewLoggingExtension(logger zerolog.Logger) *LoggingExtension {
	return &LoggingExtension{
		BaseExtension: flowtime.NewBaseExtension("logging"),
		logger:        logger,
		starts:        make(map[string]time.Time),
	}
}

func (e *LoggingExtension) OnEvaluateStart(op *flowtime.Operation) {
	key := op.Request.ID() + "/" + op.Node.String()
	e.starts[key] = time.Now()
	e.logger.Debug().
		Str("request", op.Request.ID()).
		Stringer("node", op.Node).
		Int64("time", int64(op.Request.Time())).
		Msg("evaluation started")
}

func (e *LoggingExtension) OnEvaluateEnd(op *flowtime.Operation, state flowtime.PipelineFlowState, err error) {
	key := op.Request.ID() + "/" + op.Node.String()
	var duration time.Duration
	if start, ok := e.starts[key]; ok {
		duration = time.Since(start)
		delete(e.starts, key)
	}

	if err != nil {
		e.logger.Warn().
			Str("request", op.Request.ID()).
			Stringer("node", op.Node).
			Dur("duration", duration).
			Err(err).
			Msg("evaluation failed")
		return
	}
	e.logger.Debug().
		Str("request", op.Request.ID()).
		Stringer("node", op.Node).
		Dur("duration", duration).
		Str("status", state.Status().String()).
		Msg("evaluation completed")
}
