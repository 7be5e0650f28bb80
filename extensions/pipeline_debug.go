package extensions

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	flowtime "github.com/flowtime-fn/flowtime-go"
)

// PipelineDebugExtension dumps the failing node's chain when an
// evaluation ends in an error: each stage's status and whether its cache
// covers the requested time. The dump goes to the logger at error level.
//
// Usage:
//
//	ext := extensions.NewPipelineDebugExtension(logger)
//	ctx := flowtime.NewPipelineContext(flowtime.WithExtensions(ext))
type PipelineDebugExtension struct {
	flowtime.BaseExtension

	logger zerolog.Logger
}

// NewPipelineDebugExtension creates a pipeline debug extension writing
// to logger.
func NewPipelineDebugExtension(logger zerolog.Logger) *PipelineDebugExtension {
	return &PipelineDebugExtension{
		BaseExtension: flowtime.NewBaseExtension("pipeline-debug"),
		logger:        logger,
	}
}

func (e *PipelineDebugExtension) OnEvaluateEnd(op *flowtime.Operation, state flowtime.PipelineFlowState, err error) {
	if err == nil && !state.Status().IsError() {
		return
	}

	dump := e.formatChain(op)
	ev := e.logger.Error().
		Str("request", op.Request.ID()).
		Stringer("node", op.Node).
		Int64("time", int64(op.Request.Time()))
	if err != nil {
		ev = ev.Err(err)
	} else {
		ev = ev.Str("status", state.Status().Message)
	}
	ev.Str("chain", dump).Msg("pipeline evaluation error")
}

// formatChain walks from the failing node down to the chain's head.
func (e *PipelineDebugExtension) formatChain(op *flowtime.Operation) string {
	var sb strings.Builder
	sb.WriteString("\n")

	t := op.Request.Time()
	handle := op.Node
	depth := 0
	for !handle.IsNull() {
		node := op.Context.Node(handle)
		if node == nil {
			fmt.Fprintf(&sb, "%s%v (removed)\n", indent(depth), handle)
			break
		}

		cached := ""
		if app, ok := node.(*flowtime.ModifierApplication); ok {
			if app.Cache().Contains(t) {
				cached = " [cached]"
			}
			if covered := app.Cache().CoveredIntervals(); covered.Len() > 0 {
				cached += fmt.Sprintf(" covers=%v", covered.Intervals())
			}
			fmt.Fprintf(&sb, "%s%v %s status=%s%s\n", indent(depth), handle, nodeLabel(node), node.Status(), cached)
			handle = app.Input()
			depth++
			continue
		}

		fmt.Fprintf(&sb, "%s%v %s status=%s\n", indent(depth), handle, nodeLabel(node), node.Status())
		break
	}
	return sb.String()
}

func indent(depth int) string {
	if depth == 0 {
		return "  "
	}
	return "  " + strings.Repeat("  ", depth) + "└─> "
}

func nodeLabel(node flowtime.PipelineObject) string {
	return fmt.Sprintf("%T", node)
}
