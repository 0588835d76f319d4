// Package transport provides the byte-stream layer underneath the APT
// message codec: opening the USB-serial port of a controller, writing raw
// bytes, reading an exact number of bytes within a deadline, draining stray
// input and closing the port exactly once.
//
// The package has no knowledge of message framing. Line settings (baud
// rate, data characteristics, RTS flow control) are applied once in Open and
// are never touched again by upper layers.
//
// Real ports are backed by go.bug.st/serial. Any value satisfying [Stream]
// can be wrapped with [NewConn], which is how tests and the in-memory
// controller simulator plug in.
package transport
