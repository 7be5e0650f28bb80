package flowtime

import (
	"sync"
	"testing"
	"time"
)

// TestSerialExecutor_FIFO tests submission order preservation
func TestSerialExecutor_FIFO(t *testing.T) {
	ex := NewSerialExecutor()
	defer ex.Close()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		i := i
		wg.Add(1)
		ex.Submit(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()

	for i, v := range order {
		if v != i {
			t.Fatalf("order[%d] = %d, submissions were reordered", i, v)
		}
	}
}

// TestSerialExecutor_NoOverlap tests that tasks never run concurrently
func TestSerialExecutor_NoOverlap(t *testing.T) {
	ex := NewSerialExecutor()
	defer ex.Close()

	var running int32
	var wg sync.WaitGroup
	var mu sync.Mutex
	overlapped := false
	for i := 0; i < 50; i++ {
		wg.Add(1)
		ex.Submit(func() {
			mu.Lock()
			running++
			if running > 1 {
				overlapped = true
			}
			mu.Unlock()

			time.Sleep(100 * time.Microsecond)

			mu.Lock()
			running--
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()
	if overlapped {
		t.Error("serial executor ran two tasks concurrently")
	}
}

// TestSerialExecutor_CloseDrains tests that Close waits for queued work
func TestSerialExecutor_CloseDrains(t *testing.T) {
	ex := NewSerialExecutor()

	done := make([]bool, 10)
	for i := 0; i < 10; i++ {
		i := i
		ex.Submit(func() {
			time.Sleep(time.Millisecond)
			done[i] = true
		})
	}
	ex.Close()

	for i, d := range done {
		if !d {
			t.Errorf("task %d was dropped by Close", i)
		}
	}
}

// TestSerialExecutor_SubmitAfterClosePanics tests the lifecycle guard
func TestSerialExecutor_SubmitAfterClosePanics(t *testing.T) {
	ex := NewSerialExecutor()
	ex.Close()
	defer func() {
		if recover() == nil {
			t.Error("Submit after Close should panic")
		}
	}()
	ex.Submit(func() {})
}

// TestInlineExecutor tests synchronous execution
func TestInlineExecutor(t *testing.T) {
	ran := false
	InlineExecutor{}.Submit(func() { ran = true })
	if !ran {
		t.Error("InlineExecutor should run the function before returning")
	}
}
