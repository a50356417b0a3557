// Package sim provides the discrete-event kernel for the workforce simulation.
//
// # Reading Guide
//
// Start with these files to understand the kernel:
//   - task.go: the Task interface and the Await values a task suspends on
//   - simulator.go: the event loop, task registry and the AcquireWithin race
//   - pool.go: the bounded, priority-ordered worker pool
//
// # Architecture
//
// The sim package owns time, tasks and the shared pool. Domain behaviour lives in
// sub-packages:
//   - sim/stochastic/: per-tick hazard triggers and rounded uniform draws
//   - sim/staffing/: the hire/quit controller that withholds pool slots
//   - sim/deliverable/: the Build, Monitor and Rebuild lifecycle of one model
//   - sim/montecarlo/: replication runner and cross-replication aggregation
//   - sim/scenario/: scenario files and defaults
//   - sim/trace/: decision trace recording
//   - sim/store/: SQLite result store
//   - sim/metrics/: Prometheus textfile sink
//
// # Scheduling model
//
// A Simulator runs one replication on a single goroutine. Tasks are resumed by
// wake events and return an Await describing their next suspension point. Events
// are ordered by (tick, class, sequence), so within a tick tasks run in the order
// their wakes were created, and a grant that lands on the same tick as a
// timeout always wins the race.
package sim
