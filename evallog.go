package flowtime

import (
	"sync"
	"time"
)

// EvaluationRecord is one completed or in-flight evaluation as seen by
// the evaluation log.
type EvaluationRecord struct {
	RequestID string
	Node      NodeHandle
	Time      TimePoint
	Status    PipelineStatus
	Err       error
	Started   time.Time
	Finished  time.Time
}

// Duration returns how long the evaluation took, or the elapsed time so
// far for an in-flight record.
func (r *EvaluationRecord) Duration() time.Duration {
	if r.Finished.IsZero() {
		return time.Since(r.Started)
	}
	return r.Finished.Sub(r.Started)
}

// EvaluationLog keeps a bounded history of evaluations for debugging.
// When the limit is exceeded, the oldest records are evicted.
type EvaluationLog struct {
	mu      sync.RWMutex
	records map[string]*EvaluationRecord
	order   []string
	limit   int
}

func newEvaluationLog(limit int) *EvaluationLog {
	return &EvaluationLog{
		records: make(map[string]*EvaluationRecord),
		limit:   limit,
	}
}

func (l *EvaluationLog) begin(requestID string, node NodeHandle, t TimePoint) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := recordKey(requestID, node)
	l.records[key] = &EvaluationRecord{
		RequestID: requestID,
		Node:      node,
		Time:      t,
		Started:   time.Now(),
	}
	l.order = append(l.order, key)

	for len(l.records) > l.limit {
		oldest := l.order[0]
		l.order = l.order[1:]
		delete(l.records, oldest)
	}
}

func (l *EvaluationLog) end(requestID string, node NodeHandle, status PipelineStatus, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := l.records[recordKey(requestID, node)]
	if rec == nil {
		return
	}
	rec.Status = status
	rec.Err = err
	rec.Finished = time.Now()
}

func recordKey(requestID string, node NodeHandle) string {
	return requestID + "/" + node.String()
}

// Records returns a snapshot of all retained records, oldest first.
func (l *EvaluationLog) Records() []*EvaluationRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*EvaluationRecord, 0, len(l.order))
	for _, key := range l.order {
		if rec := l.records[key]; rec != nil {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out
}

// Filter returns the retained records matching predicate.
func (l *EvaluationLog) Filter(predicate func(*EvaluationRecord) bool) []*EvaluationRecord {
	var result []*EvaluationRecord
	for _, rec := range l.Records() {
		if predicate(rec) {
			result = append(result, rec)
		}
	}
	return result
}

// ForRequest returns all records of one request, oldest first.
func (l *EvaluationLog) ForRequest(requestID string) []*EvaluationRecord {
	return l.Filter(func(r *EvaluationRecord) bool { return r.RequestID == requestID })
}
