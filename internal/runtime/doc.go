// Package runtime implements the flow engine: one Engine per session, holding the
// current node and the session context, dispatching function calls through a bound
// registry table.
package runtime
