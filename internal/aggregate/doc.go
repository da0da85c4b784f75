// Package aggregate coalesces the inbound session event stream into a
// capped, sorted canonical word list on a fixed flush window, so layout
// recomputation happens at a bounded rate regardless of event rate.
package aggregate
