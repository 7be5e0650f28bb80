package flowtime

// StatusType classifies the outcome of a pipeline evaluation.
type StatusType int

const (
	// StatusSuccess indicates the evaluation completed normally.
	StatusSuccess StatusType = iota
	// StatusWarning indicates the evaluation completed with a non-fatal problem.
	StatusWarning
	// StatusError indicates the evaluation failed; the state carries no usable payload.
	StatusError
	// StatusPending indicates an evaluation is still in progress.
	StatusPending
)

func (t StatusType) String() string {
	switch t {
	case StatusSuccess:
		return "success"
	case StatusWarning:
		return "warning"
	case StatusError:
		return "error"
	case StatusPending:
		return "pending"
	default:
		return "unknown"
	}
}

// PipelineStatus describes the outcome of evaluating a pipeline node.
type PipelineStatus struct {
	Type    StatusType
	Message string
}

// StatusFromError converts an error into an error-typed status.
// A nil error yields the zero (success) status.
func StatusFromError(err error) PipelineStatus {
	if err == nil {
		return PipelineStatus{}
	}
	return PipelineStatus{Type: StatusError, Message: err.Error()}
}

// IsError reports whether the status represents a failed evaluation.
func (s PipelineStatus) IsError() bool { return s.Type == StatusError }

func (s PipelineStatus) String() string {
	if s.Message == "" {
		return s.Type.String()
	}
	return s.Type.String() + ": " + s.Message
}
