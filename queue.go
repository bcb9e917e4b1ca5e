package broadcastqueue

import (
	"log/slog"
	"sync/atomic"
)

// Queue is a lock-free, unbounded, multi-producer / multi-consumer
// broadcast queue. Every Reader subscribed via Queue.Reader observes
// every value pushed after its subscription, in a well-defined order.
// The zero Queue[T] is not usable; construct one with New.
type Queue[T any] struct {
	// tail is the queue's own reference to the newest block. It is
	// briefly swapped to nil as a spinlock whenever a Reader subscribes
	// or a writer extends the chain, so that no caller can ever observe
	// or acquire a block that is mid-rotation. Extending the chain is
	// otherwise optimistic: a writer that finds tail stale simply walks
	// block.next chains to find the real tail.
	tail atomic.Pointer[block[T]]

	blockSize    uint32
	producerMode ProducerMode
	consumerMode ConsumerMode
	logger       *slog.Logger
	destroyHook  func()
	stats        statsCounters
	spTaken      atomic.Bool
}

// New constructs an empty Queue. With no options, it uses BLOCK_SIZE
// 4096 and the multi-producer bitmap protocol.
func New[T any](opts ...Option) *Queue[T] {
	cfg := newConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.blockSize == 0 {
		panic(ErrInvalidBlockSize)
	}
	// The multiple-of-64 requirement is a bitmap-protocol constraint
	// (one word publishes 64 cells); single-producer and legacy blocks
	// carry no bitmap and need only a positive capacity.
	if cfg.producerMode == ProducerModeMulti && cfg.blockSize%64 != 0 {
		panic(ErrBlockSizeNotBitmapAligned)
	}

	q := &Queue[T]{
		blockSize:    cfg.blockSize,
		producerMode: cfg.producerMode,
		consumerMode: cfg.consumerMode,
		logger:       cfg.logger,
		destroyHook:  cfg.destroyHook,
	}

	// The first block's sole reference (use_count = 1) is the
	// queue's own ownership of its tail; there is no predecessor yet
	// to claim a second credit.
	first := newBlock[T](q, q.blockSize, q.usesBitmap())
	q.tail.Store(first)
	return q
}

func (q *Queue[T]) usesBitmap() bool {
	return q.producerMode == ProducerModeMulti
}

// onBlockAllocated implements queueHooks.
func (q *Queue[T]) onBlockAllocated(id uint64, useCount int64) {
	q.stats.blocksAllocated.Add(1)
	q.logBlockEvent("block allocated", id, useCount)
}

// onBlockDestroyed implements queueHooks.
func (q *Queue[T]) onBlockDestroyed(id uint64) {
	q.stats.blocksDestroyed.Add(1)
	q.logBlockEvent("block destroyed", id, 0)
	if q.destroyHook != nil {
		q.destroyHook()
	}
}

// lockTail takes exclusive, momentary ownership of the queue's tail
// reference, spinning until it succeeds. The caller must call
// unlockTail (directly or via swapTail) before any other goroutine's
// lockTail can proceed.
func (q *Queue[T]) lockTail() *block[T] {
	for {
		if b := q.tail.Swap(nil); b != nil {
			return b
		}
	}
}

func (q *Queue[T]) unlockTail(b *block[T]) {
	q.tail.Store(b)
}

// loadTail returns a freshly-acquired reference to the current tail
// block, safe to use regardless of concurrent writers extending the
// chain.
func (q *Queue[T]) loadTail() *block[T] {
	b := q.lockTail()
	b.acquire()
	q.unlockTail(b)
	return b
}

// swapTail installs next (which must already carry its own +1 credit
// earmarked for the queue's tail slot) as the queue's tail reference,
// and returns the block being displaced, still holding the queue's
// old credit on it — the caller is responsible for releasing it.
func (q *Queue[T]) swapTail(next *block[T]) *block[T] {
	old := q.lockTail()
	q.unlockTail(next)
	q.stats.blocksLinked.Add(1)
	return old
}

// Reader subscribes a new Reader starting from the queue's current
// tail length: messages pushed before this call are never delivered
// to it, only messages pushed after.
func (q *Queue[T]) Reader() *Reader[T] {
	b := q.loadTail()
	bitmap := q.usesBitmap()

	var length uint32
	if bitmap {
		length, _ = b.scanLen(0)
	} else {
		length = b.len.Load()
	}

	return &Reader[T]{
		q:         q,
		block:     blockRefOf(b),
		index:     length,
		len:       length,
		bitCursor: length / 64,
		bitmap:    bitmap,
	}
}

// Writer returns a fresh multi-producer writer handle. Any number of
// MPWriters (and goroutines sharing one) may push concurrently. It
// panics with ErrWrongProducerMode unless the queue was constructed
// with ProducerModeMulti or ProducerModeMultiLegacy: a
// ProducerModeSingle queue's blocks carry no bitmap, so an MPWriter
// would claim cells through the legacy packed counter, which the
// queue's SPWriter never consults when it fills cells from its private
// cursor — the two would write the same cells.
func (q *Queue[T]) Writer() Writer[T] {
	if q.producerMode == ProducerModeSingle {
		panic(ErrWrongProducerMode)
	}
	b := q.loadTail()
	return &MPWriter[T]{q: q, tail: blockRefOf(b)}
}

// SPWriter returns the queue's single-producer writer handle. Only
// one may exist at a time for a given queue; a second call panics
// with ErrSecondSingleProducer. It panics with ErrWrongProducerMode
// unless the queue was constructed with ProducerModeSingle: on a
// ProducerModeMulti queue every Reader derives its length by scanning
// the block's bitmap, which an SPWriter never sets — the mismatch is
// silent, permanent data loss rather than a crash, so it is rejected
// up front instead. ProducerModeMultiLegacy queues are rejected the
// same way. The caller — not the queue — is responsible for
// ensuring only one goroutine ever uses the returned writer, since it
// performs no synchronization on its own cursor.
func (q *Queue[T]) SPWriter() *SPWriter[T] {
	if q.producerMode != ProducerModeSingle {
		panic(ErrWrongProducerMode)
	}
	if !q.spTaken.CompareAndSwap(false, true) {
		panic(ErrSecondSingleProducer)
	}
	b := q.loadTail()
	return &SPWriter[T]{q: q, tail: blockRefOf(b), cursor: b.len.Load()}
}
