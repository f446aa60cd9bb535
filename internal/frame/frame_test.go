package frame

import (
	"testing"
	"time"
)

func TestQueuePushDropsOnFull(t *testing.T) {
	q := NewQueue[int](2)
	if !q.Push(1) {
		t.Fatal("expected first push to succeed")
	}
	if !q.Push(2) {
		t.Fatal("expected second push to succeed")
	}
	if q.Push(3) {
		t.Fatal("expected third push to be dropped (queue full)")
	}
	if q.Len() != 2 {
		t.Fatalf("expected len 2, got %d", q.Len())
	}
}

func TestQueuePopTimesOut(t *testing.T) {
	q := NewQueue[int](1)
	start := time.Now()
	_, ok := q.Pop(20 * time.Millisecond)
	if ok {
		t.Fatal("expected timeout on empty queue")
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Fatal("returned before timeout elapsed")
	}
}

func TestQueuePopReturnsPushedOrder(t *testing.T) {
	q := NewQueue[int](4)
	q.Push(1)
	q.Push(2)
	v1, _ := q.Pop(time.Second)
	v2, _ := q.Pop(time.Second)
	if v1 != 1 || v2 != 2 {
		t.Fatalf("expected FIFO order 1,2 got %d,%d", v1, v2)
	}
}

func TestQueueDrain(t *testing.T) {
	q := NewQueue[int](4)
	q.Push(1)
	q.Push(2)
	q.Push(3)
	if n := q.Drain(); n != 3 {
		t.Fatalf("expected drain count 3, got %d", n)
	}
	if q.Len() != 0 {
		t.Fatalf("expected empty queue after drain, got len %d", q.Len())
	}
}
