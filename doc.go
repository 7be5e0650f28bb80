// Package flowtime provides an asynchronous, time-indexed pipeline
// evaluation and caching engine for Go.
//
// # Overview
//
// Flowtime organizes code around four core concepts:
//
//  1. Pipeline objects: nodes that produce a time-dependent result on demand
//  2. Flow states: cheap-to-copy snapshots of a node's output with a validity interval
//  3. Futures: single-assignment, cancelable, continuation-composable result containers
//  4. Contexts: owners of the nodes and the serial executor their work runs on
//
// # Basic Usage
//
// Build a chain from a source and modifier applications:
//
//	ctx := flowtime.NewPipelineContext()
//	defer ctx.Close()
//
//	var source *flowtime.StaticSource
//	var app *flowtime.ModifierApplication
//	ctx.Submit(func() {
//	    source = flowtime.NewStaticSource(ctx, flowtime.NewDataCollection(payload))
//	    app = flowtime.NewModifierApplication(ctx, source.Handle(), myModifier)
//	})
//
// Evaluate through an accessor from any goroutine:
//
//	acc := flowtime.Access(ctx, app.Handle())
//	state, err := acc.Get(context.Background(), flowtime.TimeForFrame(3))
//
// # Time and Validity
//
// Animation time is an integer tick count (4800 ticks per second, 200
// per frame). Every result carries a TimeInterval saying how long it
// stays correct; intervals intersect downwards through the chain, so a
// chain's output is only as durable as its most volatile stage.
//
// # Caching
//
// Each node caches up to two results: the most recently computed state
// and the state covering the context's display time. Repeated requests
// for a covered time are served from the cache without recomputation,
// and concurrent requests for the same uncovered time share one
// in-flight computation.
//
// Invalidation is event driven. Modifiers announce their edits:
//
//	func (m *MyModifier) SetRadius(r float64) {
//	    m.radius = r
//	    m.NotifyParameterChanged("radius")
//	}
//
// and the bound applications translate those events into cache drops or
// soft invalidations according to fixed rules. A modifier can opt out of
// invalidation for parameters that do not affect its output by
// implementing ParameterFilter.
//
// # Futures
//
// Evaluate never blocks; it returns a SharedFuture immediately. Holders
// may clone it, wait on it, or chain continuations:
//
//	f := app.Evaluate(req)
//	f.WhenFinished(ctx.Executor(), func(state flowtime.PipelineFlowState, err error) {
//	    ...
//	})
//
// Canceling one holder's handle never disturbs other holders; the
// underlying computation is canceled only when the last handle goes
// away. Canceled results are never cached.
//
// # Copy-on-Write States
//
// Flow states share their payload by reference. A modifier that wants to
// change a data object asks the state for a private clone:
//
//	mutable := state.MakeMutable(obj).(*MyObject)
//	mutable.Value = 42
//
// Other states sharing the original payload are unaffected, and repeat
// calls for the same object within one state return the same clone.
//
// # Extensions
//
// Extensions hook the evaluation lifecycle for cross-cutting concerns:
//
//	ctx := flowtime.NewPipelineContext(
//	    flowtime.WithExtensions(extensions.NewLoggingExtension(logger)),
//	)
//
// The context also keeps a bounded evaluation log for after-the-fact
// debugging, available through ctx.EvaluationLog().
//
// # Thread Safety
//
// Node interaction is confined to the context's executor: construction,
// evaluation and event delivery must run there, via ctx.Submit. The
// Accessor type does this marshalling automatically and is safe to use
// from any goroutine, as are futures and their continuations.
package flowtime
