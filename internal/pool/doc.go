// Package pool provides a cached worker pool.
//
// Submit hands a task to an idle worker or starts a new one. Workers that
// stay idle for the configured timeout exit. The pool is unbounded unless
// MaxWorkers is set, in which case Submit waits for a free slot.
package pool
