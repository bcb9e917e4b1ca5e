// Package broadcastqueue implements a lock-free, unbounded,
// multi-producer / multi-consumer broadcast queue.
//
// Every Reader subscribed to a Queue observes every value pushed
// after its subscription, in a well-defined order, without mutual
// exclusion on either the producer or the consumer side. The queue is
// shared by all producers and consumers: there is no per-reader
// duplication of values in memory. Internally the queue is an atomic
// singly-linked list of fixed-size blocks; writers append to the tail
// block and readers walk the list toward the tail, releasing blocks
// as they pass them.
//
// The queue never blocks. Push cannot fail for lack of space (the
// queue grows without bound if a reader falls behind); Reader.Next
// returns false when no value is currently available rather than
// waiting for one. There is no backpressure, no bounded capacity, and
// no persistence — see the package-level Non-goals in the design
// notes checked in alongside this package.
package broadcastqueue
