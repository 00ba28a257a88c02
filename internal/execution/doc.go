// Package execution drives virtual users through a staged concurrency ramp.
//
// A Ramp turns a list of stages into a piecewise-linear target; the
// Scheduler ticks over it, spawning VUs when below target and draining the
// newest ones when above. Drained VUs always finish the iteration they are
// in; cancellation is only observed at iteration boundaries.
package execution
