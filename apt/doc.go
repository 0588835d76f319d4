// Package apt implements the framing and dispatch layer of the APT binary
// protocol spoken by Thorlabs-style motion and piezo controllers over a
// USB-serial link.
//
// # Wire Format
//
// Every message starts with a 6-byte little-endian header. Bit 7 of the
// destination byte (header index 4) is the sole framing discriminator:
//
//	header only:  [ID lo][ID hi][Param1][Param2][Dest][Source]
//	with payload: [ID lo][ID hi][Len lo][Len hi][Dest|0x80][Source] + Len bytes
//
// Payload layouts are looked up by message ID in a [SchemaTable]. Decoding a
// payload for an ID without a schema fails with [ErrSchema]: the table, not
// the device, is at fault and retrying cannot help.
//
// # Request/Response
//
// [Connection.Query] writes a request and decodes the next message on the
// wire, verifying its ID. The protocol is strictly synchronous; no message
// is buffered or reordered. Only receive timeouts are retried, and only
// while a deadline (context deadline or [WithQueryTimeout]) remains. A
// response with an unexpected ID surfaces as a [*MismatchError] immediately.
//
// A connection serializes exchanges internally. After a query gives up on a
// timeout, the next write first drains stray input so that a late reply is
// not mistaken for the answer to a new request.
package apt
