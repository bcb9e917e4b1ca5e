package broadcastqueue

import "runtime"

// MPWriter is a multi-producer writer handle for a Queue, constructed
// by Queue.Writer. Any number of MPWriters, and any number of
// goroutines sharing one, may call Push concurrently: the block's own
// tryPush protocol (bitmap or legacy, block.go/legacy.go) arbitrates
// concurrent cell claims, and advance arbitrates concurrent chain
// extension with a CAS on the full block's next pointer.
type MPWriter[T any] struct {
	q    *Queue[T]
	tail BlockRef[T]
}

// Push claims a cell in the current tail block, retrying against
// freshly-advanced blocks until one accepts the value. It never
// blocks and never fails.
func (w *MPWriter[T]) Push(v T) {
	for {
		cur := w.tail.raw()
		if cur.tryPush(v) {
			return
		}
		w.tail = blockRefOf(w.advance(cur))
	}
}

// advance moves this writer past a full block, either by following an
// already-installed next pointer (another writer already extended the
// chain) or by allocating a new block and winning the CAS that installs
// it. The loser of a CAS race discards its allocation — immediately
// releasing its only reference destroys it at once, since nothing else
// ever learned of it — and follows the winner instead.
//
// A block's cell claims (write_index past capacity, or a legacy
// occupied_len rollback) can outrun publication: another writer may
// still be mid-write on a cell it claimed earlier. advance must not
// install a successor until every claimed cell has actually been
// published — otherwise a reader could see next != nil, conclude the
// block has nothing more to offer, and permanently skip a cell that is
// written moments later. So it spins on the block's true published
// length reaching capacity before ever attempting the CAS.
func (w *MPWriter[T]) advance(full *block[T]) *block[T] {
	for {
		if next := full.nextBlock(); next != nil {
			full.release()
			return next
		}
		if !full.publishedFull() {
			runtime.Gosched()
			continue
		}

		// next is created with use_count = 1, earmarked for full's next
		// pointer (the edge this CAS may or may not end up installing).
		// If the CAS succeeds, two further credits are acquired — one
		// for the queue's tail slot, one for this writer's own hold.
		next := newBlock[T](w.q, w.q.blockSize, w.q.usesBitmap())
		if full.next.CompareAndSwap(nil, next) {
			next.acquire() // queue's tail-slot credit
			next.acquire() // this writer's own credit
			displaced := w.q.swapTail(next)
			displaced.release()
			full.release()
			return next
		}

		// Lost the race: next was never linked anywhere, so dropping
		// our sole reference to it frees it immediately.
		next.release()

		winner := full.nextBlock()
		full.release()
		return winner
	}
}

// Close releases the writer's hold on its current tail block. The
// queue's own tail reference keeps the chain reachable independently,
// so Close only matters for dropping this writer's extra credit
// promptly when it is being discarded.
func (w *MPWriter[T]) Close() {
	w.tail.Release()
	w.tail = BlockRef[T]{}
}
