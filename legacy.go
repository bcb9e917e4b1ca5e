package broadcastqueue

// This file implements the "legacy" multi-producer write protocol: a
// single packed (occupied_len, active_writers) counter, offered as an
// alternative to the bitmap protocol for blocks that don't need
// per-cell publication bits. A block uses this protocol instead of the
// bitmap when its owning Queue was built with
// WithProducerMode(ProducerModeMultiLegacy) (signalled by b.bits ==
// nil combined with the queue never calling the bitmap path).

const packedWritersShift = 32

func packEncode(occupiedLen, writers uint32) uint64 {
	return uint64(occupiedLen) | uint64(writers)<<packedWritersShift
}

func packDecode(v uint64) (occupiedLen, writers uint32) {
	return uint32(v), uint32(v >> packedWritersShift)
}

// pushLegacy claims a cell via the packed (occupied_len,
// active_writers) counter. A writer adds (1, 1); if the pre-add
// occupied_len was already at capacity, it rolls back with a
// subtract of (1, 1) and, if it was the last active writer to leave,
// seals the block by publishing len = capacity. Otherwise it writes
// the value and subtracts (0, 1); if it was the last active writer,
// it raises len up to the new occupied_len with a fetch-max.
func (b *block[T]) pushLegacy(v T) bool {
	claim := packEncode(1, 1)
	afterClaim := b.legacy.Add(claim)
	prevOccupied, _ := packDecode(afterClaim - claim)

	if prevOccupied >= b.capacity {
		rollback := packEncode(1, 1)
		afterRollback := b.legacy.Add(-rollback)
		_, prevWriters := packDecode(afterRollback + rollback)
		if prevWriters == 1 {
			b.len.Store(b.capacity)
		}
		return false
	}

	b.mem[prevOccupied] = v

	release := packEncode(0, 1)
	afterRelease := b.legacy.Add(-release)
	occupied, prevWriters := packDecode(afterRelease + release)
	if prevWriters == 1 {
		// occupied reflects every claim made so far, not just this
		// writer's own: with active_writers about to drop to zero, no
		// other writer is still mid-write, so every cell up to occupied
		// is fully written and safe to publish — even ones claimed by a
		// writer other than the one finishing last.
		newLen := occupied
		for {
			cur := b.len.Load()
			if cur >= newLen {
				break
			}
			if b.len.CompareAndSwap(cur, newLen) {
				break
			}
		}
	}
	return true
}
