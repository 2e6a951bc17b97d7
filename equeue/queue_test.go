package equeue

import "testing"

func TestPushPopFIFO(t *testing.T) {
	q := New[int](4)
	for i := 0; i < 4; i++ {
		if !q.Push(i) {
			t.Fatalf("push %d failed, should have room", i)
		}
	}
	if q.Push(99) {
		t.Fatal("push into full queue should fail")
	}
	for i := 0; i < 4; i++ {
		v, ok := q.Pop()
		if !ok {
			t.Fatalf("pop %d: expected ok", i)
		}
		if v != i {
			t.Fatalf("pop %d: got %d, want FIFO order", i, v)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("pop from empty queue should report !ok")
	}
}

func TestCapacityRoundsUpToPowerOfTwo(t *testing.T) {
	q := New[int](5)
	if q.Cap() != 8 {
		t.Fatalf("Cap() = %d, want 8", q.Cap())
	}
}

func TestWrapAround(t *testing.T) {
	q := New[int](2)
	q.Push(1)
	q.Push(2)
	v, _ := q.Pop()
	if v != 1 {
		t.Fatalf("got %d, want 1", v)
	}
	q.Push(3)
	if !q.Full() {
		t.Fatal("expected full after wrap-around push")
	}
	for _, want := range []int{2, 3} {
		v, ok := q.Pop()
		if !ok || v != want {
			t.Fatalf("got (%d,%v), want (%d,true)", v, ok, want)
		}
	}
	if !q.Empty() {
		t.Fatal("expected empty after draining")
	}
}
