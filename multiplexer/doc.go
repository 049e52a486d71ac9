// Package multiplexer drives many in-flight transport handles to completion
// concurrently.
//
// A Multiplexer keeps a registration set of handles. Drain performs the
// registered handles, one goroutine per handle, and returns only when all of
// them have completed. Several executors can share one Multiplexer: each
// drains only its own handles with Only. Callers pair every Register with
// exactly one Deregister; the multiplexer never owns the handles it drives.
//
// A process-wide instance is available through Default. It is created on
// first use and released by Shutdown, which entry points defer from main.
package multiplexer
