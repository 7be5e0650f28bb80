package flowtime

import (
	"errors"
	"testing"
)

// TestEvaluationLog_RecordsEvaluations tests that evaluations through a
// context leave log records
func TestEvaluationLog_RecordsEvaluations(t *testing.T) {
	ctx := inlineContext()
	node := newCountingNode(ctx, func(req EvaluationRequest) Future[PipelineFlowState] {
		return MakeFinishedFuture(successState(NewTimeInterval(0, 10)))
	})

	req := evalAt(5)
	f := node.Evaluate(req)
	f.Cancel()

	records := ctx.EvaluationLog().ForRequest(req.ID())
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.Node != node.Handle() || rec.Time != 5 {
		t.Errorf("record = %+v", rec)
	}
	if rec.Finished.IsZero() {
		t.Error("record should be marked finished")
	}
	if rec.Status.Type != StatusSuccess {
		t.Errorf("record status = %v", rec.Status.Type)
	}
}

// TestEvaluationLog_Bounded tests eviction of the oldest records
func TestEvaluationLog_Bounded(t *testing.T) {
	l := newEvaluationLog(3)
	handles := []NodeHandle{{index: 0, generation: 1}}
	for i := 0; i < 5; i++ {
		l.begin(string(rune('a'+i)), handles[0], TimePoint(i))
	}
	records := l.Records()
	if len(records) != 3 {
		t.Fatalf("expected 3 retained records, got %d", len(records))
	}
	if records[0].RequestID != "c" {
		t.Errorf("oldest retained record = %q, want c", records[0].RequestID)
	}
}

// TestEvaluationLog_EndWithoutBegin tests the tolerant end path
func TestEvaluationLog_EndWithoutBegin(t *testing.T) {
	l := newEvaluationLog(10)
	l.end("missing", NodeHandle{index: 0, generation: 1}, PipelineStatus{}, errors.New("x"))
	if len(l.Records()) != 0 {
		t.Error("end without begin must not create a record")
	}
}
