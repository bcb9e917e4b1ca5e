package broadcastqueue

import (
	"context"
	"io"
	"log/slog"
)

// discardLogger is the zero-value logger installed by New when the
// caller does not pass WithLogger. It never formats a record, so
// queues built without logging pay nothing for it on the hot path
// beyond the interface check baked into logBlockEvent.
var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// logBlockEvent emits a Debug-level structured log record for a block
// lifecycle transition (allocation or destruction).
func (q *Queue[T]) logBlockEvent(msg string, blockID uint64, useCount int64) {
	if q.logger == nil || !q.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	q.logger.Debug(msg,
		slog.Uint64("block_id", blockID),
		slog.Int64("use_count", useCount),
	)
}
