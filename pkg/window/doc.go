// Package window implements windowing constructs. On an unbounded stream of events, windowing groups
// consecutive admitted events into finite batches. Only tumbling windows are supported: windows never
// overlap and a new window opens as soon as the previous one closes.
//
// Two disciplines exist. A count window closes when it holds n events, driven purely by event arrival.
// A time window closes every d from the moment it was opened, driven by a ticker and independent of
// event arrival, so it may close empty. Empty batches are handed off like any other batch and it is up to
// the consumer to drop them before evaluation.
//
// Partial windows are never flushed: Reset discards whatever has accumulated.
package window
