// Package loop implements the cooperative single-threaded event loop that
// drives a connection attempt.
//
// All connection callbacks execute inside Pump on the goroutine that owns the
// loop. Transport and resolver goroutines never run application code
// themselves; they Post closures onto the loop and the owner runs them on the
// next Pump. This gives callbacks for a single connection causal ordering with
// no concurrent delivery, so the connection state machine needs no locking.
//
// The owner's schedule is:
//
//	for !done {
//		lp.Pump()
//		lp.WaitForWork(interval)
//	}
//
// WaitForWork blocks for at most the given interval, which is what allows a
// timeout callback to be scheduled even when no network activity occurs.
package loop
