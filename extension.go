package flowtime

// Extension provides hooks into the evaluation lifecycle
type Extension interface {
	// Name returns the extension's name
	Name() string

	// Order determines extension execution order (lower = earlier)
	Order() int

	// Init is called when the extension is registered to a context
	Init(ctx *PipelineContext) error

	// OnEvaluateStart is called before a node starts computing a result
	OnEvaluateStart(op *Operation)

	// OnEvaluateEnd is called after a node produced a result or failed
	OnEvaluateEnd(op *Operation, state PipelineFlowState, err error)

	// OnEvent observes change events as they are fired by nodes
	OnEvent(node NodeHandle, ev ChangeEvent)

	// Dispose is called when the context is closed
	Dispose(ctx *PipelineContext) error
}

// BaseExtension provides default implementations for Extension methods
type BaseExtension struct {
	name string
}

// NewBaseExtension creates a new base extension with the given name
func NewBaseExtension(name string) BaseExtension {
	return BaseExtension{name: name}
}

func (e *BaseExtension) Name() string {
	return e.name
}

func (e *BaseExtension) Order() int {
	return 100
}

func (e *BaseExtension) Init(ctx *PipelineContext) error {
	return nil
}

func (e *BaseExtension) OnEvaluateStart(op *Operation) {
}

func (e *BaseExtension) OnEvaluateEnd(op *Operation, state PipelineFlowState, err error) {
}

func (e *BaseExtension) OnEvent(node NodeHandle, ev ChangeEvent) {
}

func (e *BaseExtension) Dispose(ctx *PipelineContext) error {
	return nil
}

// Operation describes what operation is happening
type Operation struct {
	Kind    OperationKind
	Node    NodeHandle
	Request EvaluationRequest
	Context *PipelineContext
}

// OperationKind represents the type of operation
type OperationKind string

const (
	// OpEvaluate indicates a full evaluation of a node
	OpEvaluate OperationKind = "evaluate"
)
