package broadcastqueue

import "fmt"

var (
	// ErrSecondSingleProducer is panicked by Queue.SPWriter when a
	// single-producer writer has already been created for this queue.
	// A Queue supports at most one live SPWriter at a time; the caller
	// is expected to hold that guarantee, but a violation is loud
	// rather than silently corrupting block state.
	ErrSecondSingleProducer = fmt.Errorf("broadcastqueue: queue already has a single-producer writer")

	// ErrInvalidBlockSize is panicked by New and WithBlockSize when the
	// requested block size is not positive.
	ErrInvalidBlockSize = fmt.Errorf("broadcastqueue: block size must be positive")

	// ErrBlockSizeNotBitmapAligned is panicked by New when the queue
	// resolves to ProducerModeMulti (the bitmap protocol, which packs
	// publication bits 64 at a time) and the requested block size is
	// not a multiple of 64. Single-producer and legacy-protocol queues
	// never trigger this check.
	ErrBlockSizeNotBitmapAligned = fmt.Errorf("broadcastqueue: block size must be a multiple of 64 for the bitmap protocol")

	// ErrWrongProducerMode is panicked by Queue.SPWriter and Queue.Writer
	// when called against a queue configured for the other writer
	// protocol. Mixing protocols on one queue silently corrupts
	// delivery: a bitmap-subscribed Reader never observes a value in a
	// block whose writer only ever touched len, and an MPWriter on a
	// single-producer queue claims cells through a counter that the
	// SPWriter's private cursor never consults.
	ErrWrongProducerMode = fmt.Errorf("broadcastqueue: writer does not match the queue's configured producer mode")
)
