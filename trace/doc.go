// Package trace captures APT frames exchanged on a connection.
//
// A [Tracer] is handed to a connection through its configuration; nothing
// here is package-level state. [FileTracer] appends CBOR-encoded [Event]s to
// a capture file and [Reader] streams them back, optionally filtered.
package trace
