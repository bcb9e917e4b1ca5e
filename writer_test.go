package broadcastqueue

import (
	"testing"
	"time"
)

func TestMPWriterSingleGoroutine(t *testing.T) {
	q := New[int](WithBlockSize(64))
	w := q.Writer()
	r := q.Reader()

	for i := 0; i < 10; i++ {
		w.Push(i)
	}

	for i := 0; i < 10; i++ {
		v, ok := r.Next()
		if !ok || *v != i {
			t.Fatalf("Next() #%d = %v, %v, want %d, true", i, v, ok, i)
		}
	}
	wantEmpty(t, r)
}

func TestMPWriterBlockCrossing(t *testing.T) {
	q := New[int](WithBlockSize(64))
	w := q.Writer()
	r := q.Reader()

	const n = 64*2 + 5
	for i := 0; i < n; i++ {
		w.Push(i)
	}
	for i := 0; i < n; i++ {
		v, ok := r.Next()
		if !ok || *v != i {
			t.Fatalf("Next() #%d = %v, %v, want %d, true", i, v, ok, i)
		}
	}
	wantEmpty(t, r)

	if got := q.Stats().BlocksLinked; got != 2 {
		t.Fatalf("BlocksLinked = %d, want 2", got)
	}
}

// TestMPWriterAdvanceWaitsForPublication reproduces a writer
// descheduled between claiming a cell and publishing it while a
// different writer's claim overflows the block. advance must not link
// a successor block until the outstanding cell is actually published,
// or a reader that observes next != nil early would skip it forever.
func TestMPWriterAdvanceWaitsForPublication(t *testing.T) {
	q := New[int](WithBlockSize(64))
	w := q.Writer().(*MPWriter[int])
	tail := w.tail.raw()

	// Claim cell 0 but do not publish it yet.
	if idx := tail.writeIndex.Add(1) - 1; idx != 0 {
		t.Fatalf("claimed index %d, want 0", idx)
	}

	// Fill and publish every other cell, then force one claim past
	// capacity, exactly as Push does when it finds the block full.
	for i := uint32(1); i < tail.capacity; i++ {
		if idx := tail.writeIndex.Add(1) - 1; idx != i {
			t.Fatalf("claimed index %d, want %d", idx, i)
		}
		tail.mem[i] = int(i)
		tail.publish(i)
	}
	if idx := tail.writeIndex.Add(1) - 1; idx < tail.capacity {
		t.Fatalf("expected an overflow claim, got %d", idx)
	}

	done := make(chan *block[int], 1)
	go func() { done <- w.advance(tail) }()

	select {
	case <-done:
		t.Fatalf("advance returned before cell 0 was published")
	case <-time.After(50 * time.Millisecond):
	}

	tail.mem[0] = 0
	tail.publish(0)

	select {
	case next := <-done:
		if next == tail {
			t.Fatalf("advance returned the original block after it filled")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("advance did not unblock once cell 0 was published")
	}
}

// TestWriterWrongProducerModePanics asserts Queue.Writer and
// Queue.SPWriter each reject the other's producer mode instead of
// silently returning a writer whose protocol every subscribed Reader
// on that queue cannot observe.
func TestWriterWrongProducerModePanics(t *testing.T) {
	t.Run("SPWriter on multi-producer queue", func(t *testing.T) {
		q := New[int](WithBlockSize(64))
		defer func() {
			if recover() == nil {
				t.Fatalf("SPWriter() on ProducerModeMulti: expected panic, got none")
			}
		}()
		q.SPWriter()
	})

	t.Run("Writer on single-producer queue", func(t *testing.T) {
		q := New[int](WithProducerMode(ProducerModeSingle))
		defer func() {
			if recover() == nil {
				t.Fatalf("Writer() on ProducerModeSingle: expected panic, got none")
			}
		}()
		q.Writer()
	})
}

// TestMPWriterClose asserts MPWriter implements Writer's Close and
// that closing releases its held BlockRef without panicking or
// disturbing the queue's own reference on the same block.
func TestMPWriterClose(t *testing.T) {
	q := New[int](WithBlockSize(64))
	var w Writer[int] = q.Writer()
	w.Push(1)
	w.Close()

	r := q.Reader()
	w2 := q.Writer()
	w2.Push(2)
	wantSequence(t, r, 2)
}

func TestSPWriterSecondCallPanics(t *testing.T) {
	q := New[int](WithProducerMode(ProducerModeSingle))
	w := q.SPWriter()
	w.Push(1)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("second SPWriter(): expected panic, got none")
			}
		}()
		q.SPWriter()
	}()

	r := q.Reader()
	w.Push(2)
	wantSequence(t, r, 2)
}

func TestLegacyProducerModeSingleBlock(t *testing.T) {
	q := New[int](WithBlockSize(64), WithProducerMode(ProducerModeMultiLegacy))
	w := q.Writer()
	r := q.Reader()

	for i := 0; i < 20; i++ {
		w.Push(i)
	}
	for i := 0; i < 20; i++ {
		v, ok := r.Next()
		if !ok || *v != i {
			t.Fatalf("Next() #%d = %v, %v, want %d, true", i, v, ok, i)
		}
	}
	wantEmpty(t, r)
}
