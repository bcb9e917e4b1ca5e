package broadcastqueue

import "sync/atomic"

// Stats is a point-in-time snapshot of a Queue's block lifecycle
// counters. It exists so tests and host applications can observe
// memory reclamation without reaching into the block chain itself.
type Stats struct {
	// BlocksAllocated counts every block ever allocated by this queue.
	BlocksAllocated uint64
	// BlocksDestroyed counts every block whose use_count has reached
	// zero and been released back to the garbage collector.
	BlocksDestroyed uint64
	// BlocksLinked counts every successful CAS/store that linked a
	// new block into the chain as the new tail.
	BlocksLinked uint64
}

// Live reports how many blocks this queue has allocated but not yet
// destroyed.
func (s Stats) Live() uint64 {
	return s.BlocksAllocated - s.BlocksDestroyed
}

type statsCounters struct {
	blocksAllocated atomic.Uint64
	blocksDestroyed atomic.Uint64
	blocksLinked    atomic.Uint64
}

// Stats returns a snapshot of the queue's block lifecycle counters.
func (q *Queue[T]) Stats() Stats {
	return Stats{
		BlocksAllocated: q.stats.blocksAllocated.Load(),
		BlocksDestroyed: q.stats.blocksDestroyed.Load(),
		BlocksLinked:    q.stats.blocksLinked.Load(),
	}
}
