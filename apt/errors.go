package apt

import (
	"errors"
	"fmt"
)

// Sentinel errors for the APT message layer.
var (
	// ErrMessageReceipt is the parent of every failure to receive the
	// expected message.
	ErrMessageReceipt = errors.New("apt: message receipt error")

	// ErrReceiveTimeout indicates no header byte arrived within the read timeout.
	ErrReceiveTimeout = fmt.Errorf("%w: timeout", ErrMessageReceipt)

	// ErrTruncated indicates a header or payload stopped arriving part way.
	// The connection drains its input before returning it.
	ErrTruncated = fmt.Errorf("%w: truncated message", ErrMessageReceipt)

	// ErrUnexpectedMessage indicates a well-framed message with the wrong ID.
	ErrUnexpectedMessage = fmt.Errorf("%w: unexpected message", ErrMessageReceipt)

	// ErrSchema indicates a message ID without a registered payload layout,
	// or payload data that does not fit its layout.
	ErrSchema = errors.New("apt: schema error")

	// ErrInvalidMessage indicates a message that violates the framing
	// invariants (params together with a payload, 8-bit addresses).
	ErrInvalidMessage = errors.New("apt: invalid message")

	// ErrConnClosed indicates an operation on a closed connection.
	ErrConnClosed = errors.New("apt: connection closed")

	// ErrConnConfigNil indicates a nil ConnectionConfig was provided.
	ErrConnConfigNil = errors.New("apt: connection config is nil")
)

// MismatchError reports a response whose message ID differs from the one
// the query expected. It signals a desynchronized stream and is never
// retried by Query.
type MismatchError struct {
	// Request is the ID of the request sent, zero for Connection.Expect.
	Request  MessageID
	Expected MessageID
	Received MessageID
}

func (e *MismatchError) Error() string {
	if e.Request == 0 {
		return fmt.Sprintf("apt: expected %s but received %s", e.Expected, e.Received)
	}

	return fmt.Sprintf("apt: querying %s: expected %s but received %s", e.Request, e.Expected, e.Received)
}

// Unwrap matches ErrUnexpectedMessage and, through it, ErrMessageReceipt.
func (e *MismatchError) Unwrap() []error {
	return []error{ErrUnexpectedMessage}
}
