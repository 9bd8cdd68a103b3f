// Package sim provides the core event-driven backtest engine.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - event.go: the kind-tagged Event (Data, Order, Fill, Rejected)
//   - queue.go: the per-scenario FIFO EventQueue
//   - scenario.go: cartesian expansion of a ParamGrid into Scenarios
//   - backtest.go: the drive loop and event dispatch
//
// # Architecture
//
// The sim package defines the event model and the collaborator interfaces;
// implementations live in sub-packages:
//   - sim/datasource/: historical quote sources (SQLite, PostgreSQL, CSV, memory)
//   - sim/broker/: reference execution venue
//   - sim/strategy/: sample strategies and the name registry
//   - sim/trace/: per-scenario journal recording and summaries
//
// # Key Interfaces
//
//   - DataSource: next chronological snapshot, or exhaustion
//   - Venue: continue flag, Advance, ProcessOrder
//   - Strategy: OnData, OnFill, OnRejected
//   - Journal: receives order lifecycle events as they are built
//
// Within one scenario everything runs on a single goroutine: the drive loop
// pops an event, dispatches it, and handlers push follow-up events onto the
// same queue. Advance is only called when the queue is empty, so a fill is
// never dispatched before the order event that caused it.
package sim
