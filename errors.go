package flowtime

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// ErrNodeRemoved is returned when a stale handle is used after its node
// was removed from the context.
var ErrNodeRemoved = errors.New("flowtime: node removed")

// EvaluationError wraps a failure produced while evaluating a pipeline
// node, recording which node failed, the originating request, and a
// stack trace captured at the failure site.
type EvaluationError struct {
	Node       NodeHandle
	RequestID  string
	Cause      error
	StackTrace []byte
}

func (e *EvaluationError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("evaluation error at node %v during request %s: %v", e.Node, e.RequestID, e.Cause)
	}
	return fmt.Sprintf("evaluation error at node %v: %v", e.Node, e.Cause)
}

func (e *EvaluationError) Unwrap() error {
	return e.Cause
}

// NewEvaluationError captures the current stack and wraps cause.
func NewEvaluationError(node NodeHandle, requestID string, cause error) *EvaluationError {
	return &EvaluationError{
		Node:       node,
		RequestID:  requestID,
		Cause:      cause,
		StackTrace: debug.Stack(),
	}
}
