package device

import (
	"context"
	"fmt"
	"time"

	"github.com/arloliu/go-apt/apt"
)

// ChannelEnabler switches a channel's drive output on and off.
type ChannelEnabler interface {
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
	IsEnabled(ctx context.Context) (bool, error)
}

// Identifier flashes the LED of the module driving a channel.
type Identifier interface {
	Identify(ctx context.Context) error
}

// Homer moves a channel to its home position.
type Homer interface {
	Home(ctx context.Context) error
}

// AbsoluteMover moves a channel to an absolute position.
type AbsoluteMover interface {
	MoveAbsolute(ctx context.Context, position int32) error
	Position(ctx context.Context) (int32, error)
}

// Zeroer sets a channel's zero reference.
type Zeroer interface {
	Zero(ctx context.Context) error
}

var (
	_ ChannelEnabler = (*Motor)(nil)
	_ Identifier     = (*Motor)(nil)
	_ Homer          = (*Motor)(nil)
	_ AbsoluteMover  = (*Motor)(nil)
	_ ChannelEnabler = (*Piezo)(nil)
	_ Identifier     = (*Piezo)(nil)
	_ Zeroer         = (*Piezo)(nil)
)

// handle binds a channel to its registry and implements the capabilities
// common to every channel type.
type handle struct {
	reg *Registry
	ch  Channel
}

// Channel returns the channel address.
func (h handle) Channel() Channel { return h.ch }

// Enable enables the channel.
func (h handle) Enable(ctx context.Context) error {
	return h.reg.EnableChannel(ctx, h.ch.Index)
}

// Disable disables the channel.
func (h handle) Disable(ctx context.Context) error {
	return h.reg.DisableChannel(ctx, h.ch.Index)
}

// IsEnabled queries the channel's enable state.
func (h handle) IsEnabled(ctx context.Context) (bool, error) {
	return h.reg.RefreshEnabled(ctx, h.ch.Index)
}

// Identify flashes the module LED.
func (h handle) Identify(ctx context.Context) error {
	return h.reg.Identify(ctx, h.ch.Index)
}

func (h handle) conn() *apt.Connection { return h.reg.conn }

// send writes a header-only message for this channel.
func (h handle) send(ctx context.Context, id apt.MessageID, param2 byte) error {
	return h.conn().Send(ctx, id, h.ch.ChannelID, param2, h.ch.Dest)
}

// write writes a payload message whose first field is the channel ID.
func (h handle) write(ctx context.Context, id apt.MessageID, values ...any) error {
	values = append([]any{uint16(h.ch.ChannelID)}, values...)
	return h.conn().WriteMessage(ctx, apt.NewPayloadMessage(id, h.ch.Dest, 0, values...))
}

// query requests req for this channel and checks that the response names
// the same channel, in param1 or in the first payload field.
func (h handle) query(ctx context.Context, req, expected apt.MessageID) (*apt.Message, error) {
	rsp, err := h.conn().Request(ctx, req, h.ch.ChannelID, 0, h.ch.Dest, expected)
	if err != nil {
		return nil, err
	}
	if err := h.checkChannel(rsp); err != nil {
		return nil, err
	}

	return rsp, nil
}

// expect waits up to timeout, or the context deadline, for a message
// reporting on this channel.
func (h handle) expect(ctx context.Context, id apt.MessageID, timeout time.Duration) (*apt.Message, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	rsp, err := h.conn().Expect(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := h.checkChannel(rsp); err != nil {
		return nil, err
	}

	return rsp, nil
}

func (h handle) checkChannel(rsp *apt.Message) error {
	var got uint16
	if rsp.HasPayload() {
		v, err := apt.Field[uint16](rsp, 0)
		if err != nil {
			return err
		}
		got = v
	} else {
		got = uint16(rsp.Param1)
	}

	if got != uint16(h.ch.ChannelID) {
		return fmt.Errorf("%w: %s for %s names channel 0x%02X", ErrInconsistentResponse, rsp.ID, h.ch, got)
	}

	return nil
}
