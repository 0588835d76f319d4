package device

import (
	"context"
	"fmt"
	"sync"

	"github.com/arloliu/go-apt/apt"
	"github.com/arloliu/go-apt/logger"
)

// Channel enable states carried in MOD_SET/GET_CHANENABLESTATE param2.
const (
	ChanEnabled  byte = 0x01
	ChanDisabled byte = 0x02
)

// Bay occupancy states carried in RACK_GET_BAYUSED param2.
const (
	BayOccupied byte = 0x01
	BayEmpty    byte = 0x02
)

// maxChannels bounds the channel bit mask of a stand-alone unit.
const maxChannels = 8

// Registry maps logical channel indices to channel addresses and tracks
// their enable state. The channel list is fixed at enumeration.
type Registry struct {
	conn     *apt.Connection
	cfg      *Config
	logger   logger.Logger
	info     HardwareInfo
	rack     bool
	channels []Channel

	mu      sync.RWMutex
	enabled []bool
}

// Enumerate identifies the controller on conn and builds its channel registry.
//
// Rack controllers get one channel per occupied bay; other units get one
// channel per reported channel. Unless disabled by WithEnableChannels, every
// channel is then enabled. A controller without channels, or one whose
// serial number differs from WithSerialNumber, yields ErrDeviceNotFound.
func Enumerate(ctx context.Context, conn *apt.Connection, cfg *Config) (*Registry, error) {
	rsp, err := conn.Request(ctx, apt.HWReqInfo, 0, 0, cfg.dest, apt.HWGetInfo)
	if err != nil {
		return nil, fmt.Errorf("device: request hardware info: %w", err)
	}
	info, err := decodeHardwareInfo(rsp)
	if err != nil {
		return nil, fmt.Errorf("device: decode hardware info: %w", err)
	}

	if cfg.serialNumber != "" && cfg.serialNumber != info.Serial() {
		return nil, fmt.Errorf("%w: requested serial %s, device reports %s", ErrDeviceNotFound, cfg.serialNumber, info.Serial())
	}

	r := &Registry{
		conn:   conn,
		cfg:    cfg,
		logger: cfg.logger,
		info:   info,
		rack:   cfg.IsRackSerial(info.SerialNumber),
	}

	if r.rack {
		err = r.enumerateBays(ctx)
	} else {
		err = r.enumerateChannels()
	}
	if err != nil {
		return nil, err
	}
	if len(r.channels) == 0 {
		return nil, fmt.Errorf("%w: %s (serial %s) reports no channels", ErrDeviceNotFound, info.Model, info.Serial())
	}

	r.enabled = make([]bool, len(r.channels))
	if cfg.enableChannels {
		for i := range r.channels {
			if err := r.EnableChannel(ctx, i); err != nil {
				return nil, err
			}
		}
	}

	r.logger.Debug("device: channels enumerated", "serial", info.Serial(), "rack", r.rack, "channels", len(r.channels))

	return r, nil
}

func (r *Registry) enumerateChannels() error {
	n := int(r.info.NumChannels)
	if n > maxChannels {
		return fmt.Errorf("%w: %d channels reported, at most %d addressable", ErrInconsistentResponse, n, maxChannels)
	}

	for i := range n {
		r.channels = append(r.channels, Channel{Index: i, ChannelID: 1 << i, Dest: r.cfg.dest})
	}

	return nil
}

func (r *Registry) enumerateBays(ctx context.Context) error {
	slots := min(int(r.info.NumChannels), apt.MaxBayCount)

	for slot := range slots {
		rsp, err := r.conn.Request(ctx, apt.RackReqBayUsed, byte(slot), 0, apt.RackAddress, apt.RackGetBayUsed)
		if err != nil {
			return fmt.Errorf("device: query bay %d: %w", slot, err)
		}
		if rsp.Param1 != byte(slot) {
			return fmt.Errorf("%w: bay query for slot %d answered for slot %d", ErrInconsistentResponse, slot, rsp.Param1)
		}

		switch rsp.Param2 {
		case BayOccupied:
			r.channels = append(r.channels, Channel{Index: len(r.channels), ChannelID: 0x01, Dest: apt.BayAddress(slot)})
		case BayEmpty:
		default:
			return fmt.Errorf("%w: bay %d state 0x%02X", ErrInconsistentResponse, slot, rsp.Param2)
		}
	}

	return nil
}

// Info returns the controller's hardware information.
func (r *Registry) Info() HardwareInfo { return r.info }

// IsRack reports whether the controller was enumerated as a rack.
func (r *Registry) IsRack() bool { return r.rack }

// Len returns the number of channels.
func (r *Registry) Len() int { return len(r.channels) }

// Channels returns a copy of the channel list.
func (r *Registry) Channels() []Channel {
	return append([]Channel(nil), r.channels...)
}

// Channel returns the channel at index i.
func (r *Registry) Channel(i int) (Channel, error) {
	if i < 0 || i >= len(r.channels) {
		return Channel{}, fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidChannel, i, len(r.channels))
	}

	return r.channels[i], nil
}

// Enabled returns the recorded enable state of channel i.
func (r *Registry) Enabled(i int) (bool, error) {
	if _, err := r.Channel(i); err != nil {
		return false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.enabled[i], nil
}

// EnabledChannels returns the indices of channels recorded as enabled.
func (r *Registry) EnabledChannels() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []int
	for i, on := range r.enabled {
		if on {
			out = append(out, i)
		}
	}

	return out
}

// EnableChannel enables channel i.
func (r *Registry) EnableChannel(ctx context.Context, i int) error {
	return r.setEnabled(ctx, i, true)
}

// DisableChannel disables channel i.
func (r *Registry) DisableChannel(ctx context.Context, i int) error {
	return r.setEnabled(ctx, i, false)
}

func (r *Registry) setEnabled(ctx context.Context, i int, on bool) error {
	ch, err := r.Channel(i)
	if err != nil {
		return err
	}

	state := ChanDisabled
	if on {
		state = ChanEnabled
	}
	if err := r.conn.Send(ctx, apt.ModSetChanEnableState, ch.ChannelID, state, ch.Dest); err != nil {
		return fmt.Errorf("device: set enable state of %s: %w", ch, err)
	}

	r.mu.Lock()
	r.enabled[i] = on
	r.mu.Unlock()

	return nil
}

// RefreshEnabled queries the enable state of channel i and records it.
func (r *Registry) RefreshEnabled(ctx context.Context, i int) (bool, error) {
	ch, err := r.Channel(i)
	if err != nil {
		return false, err
	}

	rsp, err := r.conn.Request(ctx, apt.ModReqChanEnableState, ch.ChannelID, 0, ch.Dest, apt.ModGetChanEnableState)
	if err != nil {
		return false, fmt.Errorf("device: query enable state of %s: %w", ch, err)
	}
	if rsp.Param1 != ch.ChannelID {
		return false, fmt.Errorf("%w: enable state of %s answered for channel 0x%02X", ErrInconsistentResponse, ch, rsp.Param1)
	}

	var on bool
	switch rsp.Param2 {
	case ChanEnabled:
		on = true
	case ChanDisabled:
	default:
		return false, fmt.Errorf("%w: %s enable state 0x%02X", ErrInconsistentResponse, ch, rsp.Param2)
	}

	r.mu.Lock()
	r.enabled[i] = on
	r.mu.Unlock()

	return on, nil
}

// Identify flashes the front panel LED of the module driving channel i.
func (r *Registry) Identify(ctx context.Context, i int) error {
	ch, err := r.Channel(i)
	if err != nil {
		return err
	}

	return r.conn.Send(ctx, apt.ModIdentify, ch.ChannelID, 0, ch.Dest)
}
