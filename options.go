package broadcastqueue

import "log/slog"

// ProducerMode selects the writer protocol a Queue's blocks use.
type ProducerMode int

const (
	// ProducerModeMulti is the bitmap publication protocol mandated
	// as the default multi-producer protocol: each writer claims a
	// cell via a single fetch-add on write_index and publishes it by
	// setting one bit in a per-block bitmap. This is the recommended
	// mode for any queue with more than one writer.
	ProducerModeMulti ProducerMode = iota

	// ProducerModeSingle configures the queue for exactly one writer,
	// obtained via Queue.SPWriter. The writer owns a private cursor
	// and never needs a fetch-add or CAS to claim a cell.
	ProducerModeSingle

	// ProducerModeMultiLegacy selects the packed (occupied_len,
	// active_writers) counter protocol recorded as an equivalent
	// alternative to the bitmap protocol. It is offered for
	// completeness and grounding in the original source; prefer
	// ProducerModeMulti unless you specifically need this protocol,
	// since readers of a legacy-protocol block can observe a stalled
	// len while writers are continuously in flight in that block.
	ProducerModeMultiLegacy
)

// ConsumerMode documents whether a Queue is expected to ever have
// more than one live Reader. It is advisory only and never changes
// correctness or behavior: a single-consumer queue behaves identically
// to a multi-consumer one. It exists so callers and tooling can record
// the intended usage pattern alongside the Queue's other construction
// options.
type ConsumerMode int

const (
	// ConsumerModeMulti is the default: any number of Readers may
	// subscribe and run concurrently.
	ConsumerModeMulti ConsumerMode = iota

	// ConsumerModeSingle documents that only one Reader will ever be
	// live for this queue at a time. The Queue does not enforce this;
	// it is purely a documented intent.
	ConsumerModeSingle
)

// defaultBlockSize is BLOCK_SIZE when the caller does not override it
// with WithBlockSize.
const defaultBlockSize = 4096

// config collects the plain-value settings a functional Option
// mutates. It exists separately from Queue[T] because a generic type
// cannot itself be the target of a non-generic functional-option
// slice (Option is shared by every Queue[T] instantiation).
type config struct {
	blockSize    uint32
	producerMode ProducerMode
	consumerMode ConsumerMode
	logger       *slog.Logger
	destroyHook  func()
}

func newConfig() config {
	return config{
		blockSize:    defaultBlockSize,
		producerMode: ProducerModeMulti,
		consumerMode: ConsumerModeMulti,
		logger:       discardLogger,
	}
}

// Option configures a Queue at construction time. See New.
type Option func(*config)

// WithBlockSize sets the number of message cells per block. n must be
// positive; New panics with ErrInvalidBlockSize otherwise. When the
// queue ends up using the bitmap multi-producer protocol
// (ProducerModeMulti, the default), n must additionally be a multiple
// of 64 — checked by New once producer_mode is known, since the
// bitmap packs publication bits 64 to a word. Single-producer and
// legacy-protocol queues carry no such alignment requirement.
func WithBlockSize(n int) Option {
	return func(c *config) {
		if n <= 0 {
			panic(ErrInvalidBlockSize)
		}
		c.blockSize = uint32(n)
	}
}

// WithProducerMode selects the writer protocol. Default is
// ProducerModeMulti (bitmap).
func WithProducerMode(m ProducerMode) Option {
	return func(c *config) { c.producerMode = m }
}

// WithConsumerMode documents the expected number of concurrent
// readers. Default is ConsumerModeMulti.
func WithConsumerMode(m ConsumerMode) Option {
	return func(c *config) { c.consumerMode = m }
}

// WithLogger installs a structured logger for block lifecycle events
// (allocation and destruction), all emitted at slog.LevelDebug.
// Linking a block into the chain is counted in Stats but not logged.
// A nil logger is ignored; the default is a logger that discards
// everything.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDestroyHook installs a callback invoked synchronously from the
// block destruction path every time a block's use_count reaches zero.
// It exists to let tests assert precisely when memory reclamation
// happens; it is not meant for production use.
func WithDestroyHook(fn func()) Option {
	return func(c *config) { c.destroyHook = fn }
}
