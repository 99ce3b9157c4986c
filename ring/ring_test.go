package ring_test

import (
	"sync"
	"testing"

	"github.com/a2y-d5l/rote/ring"
)

func TestNewBufferIsEmpty(t *testing.T) {
	buf := ring.New[int](3)
	if !buf.IsEmpty() {
		t.Error("expected new buffer to be empty")
	}
	if buf.IsFull() {
		t.Error("expected new buffer not to be full")
	}
	if buf.Len() != 0 {
		t.Errorf("expected len 0, got %d", buf.Len())
	}
	if buf.Capacity() != 3 {
		t.Errorf("expected capacity 3, got %d", buf.Capacity())
	}
}

func TestPushAndPop(t *testing.T) {
	buf := ring.New[int](2)
	if err := buf.Push(1); err != nil {
		t.Fatalf("push 1: %v", err)
	}
	if err := buf.Push(2); err != nil {
		t.Fatalf("push 2: %v", err)
	}
	if !buf.IsFull() {
		t.Error("expected buffer to be full")
	}

	v, err := buf.Pop()
	if err != nil || v != 1 {
		t.Fatalf("expected (1, nil), got (%d, %v)", v, err)
	}
	v, err = buf.Pop()
	if err != nil || v != 2 {
		t.Fatalf("expected (2, nil), got (%d, %v)", v, err)
	}
	if !buf.IsEmpty() {
		t.Error("expected buffer to be empty")
	}
	if _, err := buf.Pop(); err != ring.ErrEmpty {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
}

func TestPushFullReturnsErrFull(t *testing.T) {
	buf := ring.New[int](2)
	_ = buf.Push(1)
	_ = buf.Push(2)
	if err := buf.Push(3); err != ring.ErrFull {
		t.Errorf("expected ErrFull, got %v", err)
	}
}

func TestForcePushOverwritesOldest(t *testing.T) {
	buf := ring.New[int](2)
	_ = buf.Push(1)
	_ = buf.Push(2)
	buf.ForcePush(3)

	if !buf.IsFull() {
		t.Error("expected buffer to be full after force push")
	}
	if buf.Len() != buf.Capacity() {
		t.Errorf("expected len == capacity, got %d", buf.Len())
	}

	v, _ := buf.Pop()
	if v != 2 {
		t.Errorf("expected oldest surviving element 2, got %d", v)
	}
	v, _ = buf.Pop()
	if v != 3 {
		t.Errorf("expected 3, got %d", v)
	}
	if _, err := buf.Pop(); err != ring.ErrEmpty {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
}

func TestMixedOperations(t *testing.T) {
	buf := ring.New[int](3)
	_ = buf.Push(1)
	_ = buf.Push(2)
	v, _ := buf.Pop()
	if v != 1 {
		t.Fatalf("expected 1, got %d", v)
	}
	_ = buf.Push(3)
	_ = buf.Push(4)
	if !buf.IsFull() {
		t.Fatal("expected full")
	}
	if err := buf.Push(5); err != ring.ErrFull {
		t.Fatalf("expected ErrFull, got %v", err)
	}
	buf.ForcePush(6) // overwrites oldest (2)

	want := []int{3, 4, 6}
	for _, w := range want {
		got, err := buf.Pop()
		if err != nil || got != w {
			t.Fatalf("expected %d, got (%d, %v)", w, got, err)
		}
	}
	if _, err := buf.Pop(); err != ring.ErrEmpty {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
}

func TestSnapshotReflectsOrderWithoutDraining(t *testing.T) {
	buf := ring.New[int](3)
	_ = buf.Push(1)
	_ = buf.Push(2)
	buf.ForcePush(3) // buffer not yet full: holds 1, 2, 3
	buf.ForcePush(4) // evicts 1; buffer now holds 2, 3, 4

	got := buf.Snapshot()
	want := []int{2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("index %d: expected %d, got %d", i, w, got[i])
		}
	}
	if buf.Len() != 3 {
		t.Errorf("expected snapshot not to drain buffer, len=%d", buf.Len())
	}
}

// TestConcurrentProducerConsumer pushes from one goroutine and pops from
// another, verifying every produced value is eventually observed exactly
// once and in order. This exercises the acquire/release contract described
// in spec.md §4.1.
func TestConcurrentProducerConsumer(t *testing.T) {
	const n = 20000
	buf := ring.New[int](64)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			for buf.Push(i) == ring.ErrFull {
				// spin until consumer drains
			}
		}
	}()

	got := make([]int, 0, n)
	go func() {
		defer wg.Done()
		for len(got) < n {
			v, err := buf.Pop()
			if err == ring.ErrEmpty {
				continue
			}
			got = append(got, v)
		}
	}()

	wg.Wait()

	for i, v := range got {
		if v != i {
			t.Fatalf("out of order at index %d: got %d", i, v)
		}
	}
}
