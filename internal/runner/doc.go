// Package runner owns the LED strip and runs at most one animation worker
// at a time.
//
// Transitions (start, stop, off, reload, shutdown) are serialized by a
// transition mutex that is held across the bounded wait for the previous
// worker to exit. The observable state (active pattern, running flag,
// current worker) is guarded by a separate RWMutex, always written as a
// unit and never held during strip I/O, so Status never blocks behind a
// transition.
//
// Exactly one goroutine writes to the strip at any moment: the live worker,
// or the transition that has seen the previous worker's done channel close.
// A worker that misses its stop deadline is kept as a straggler and every
// later transition waits for it again before touching the strip.
package runner
