package device

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-apt/apt"
	"github.com/arloliu/go-apt/logger"
	"github.com/arloliu/go-apt/transport"
)

// DefaultRackPrefixes are the serial number prefixes of rack controllers
// (BSC, BBD and MPZ families).
var DefaultRackPrefixes = []int{70, 71, 73}

// DefaultMoveTimeout bounds homing and absolute moves whose context has no deadline.
const DefaultMoveTimeout = 60 * time.Second

// DefaultQueryTimeout is the per-query deadline used by Open.
const DefaultQueryTimeout = 2 * time.Second

// Config holds the configuration of a controller.
type Config struct {
	rackPrefixes   map[int]struct{}
	serialNumber   string
	dest           apt.Address
	enableChannels bool
	disableOnClose bool
	moveTimeout    time.Duration

	portOptions transport.PortOptions
	opener      transport.PortOpener
	connOpts    []apt.ConnOption

	logger logger.Logger
}

// NewConfig creates a controller configuration.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		rackPrefixes:   toSet(DefaultRackPrefixes),
		dest:           apt.GenericUSB,
		enableChannels: true,
		disableOnClose: true,
		moveTimeout:    DefaultMoveTimeout,
		portOptions:    transport.DefaultPortOptions(),
		logger:         logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func toSet(prefixes []int) map[int]struct{} {
	set := make(map[int]struct{}, len(prefixes))
	for _, p := range prefixes {
		set[p] = struct{}{}
	}

	return set
}

// IsRackSerial reports whether the first two digits of an 8-digit serial
// number are a configured rack prefix.
func (cfg *Config) IsRackSerial(serial uint32) bool {
	if serial < 10000000 || serial > 99999999 {
		return false
	}
	_, ok := cfg.rackPrefixes[int(serial/1000000)]

	return ok
}

// SerialNumber returns the requested serial number, or "" for any device.
func (cfg *Config) SerialNumber() string { return cfg.serialNumber }

// Dest returns the destination address of the controller itself.
func (cfg *Config) Dest() apt.Address { return cfg.dest }

// EnableChannels reports whether enumeration enables every channel.
func (cfg *Config) EnableChannels() bool { return cfg.enableChannels }

// DisableOnClose reports whether Close disables the enabled channels.
func (cfg *Config) DisableOnClose() bool { return cfg.disableOnClose }

// MoveTimeout returns the deadline applied to moves without a context deadline.
func (cfg *Config) MoveTimeout() time.Duration { return cfg.moveTimeout }

// GetLogger returns the configured logger.
func (cfg *Config) GetLogger() logger.Logger { return cfg.logger }

// Option is a functional option for configuring a Config.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(cfg *Config) error { return f(cfg) }

// WithRackPrefixes replaces the serial number prefixes treated as rack controllers.
func WithRackPrefixes(prefixes ...int) Option {
	return optFunc(func(cfg *Config) error {
		for _, p := range prefixes {
			if p < 10 || p > 99 {
				return fmt.Errorf("device: rack prefix %d is not two digits", p)
			}
		}
		cfg.rackPrefixes = toSet(prefixes)

		return nil
	})
}

// WithSerialNumber selects the controller by its 8-digit serial number.
// Open looks the USB port up by it and checks the device reports it.
func WithSerialNumber(serial string) Option {
	return optFunc(func(cfg *Config) error {
		cfg.serialNumber = serial
		return nil
	})
}

// WithDest sets the destination address of the controller. Default 0x50.
func WithDest(addr apt.Address) Option {
	return optFunc(func(cfg *Config) error {
		if addr == 0 || !addr.Valid() {
			return fmt.Errorf("device: destination %s out of range [0x01, %s]", addr, apt.MaxAddress)
		}
		cfg.dest = addr

		return nil
	})
}

// WithEnableChannels controls whether enumeration enables every channel. Default true.
func WithEnableChannels(enabled bool) Option {
	return optFunc(func(cfg *Config) error {
		cfg.enableChannels = enabled
		return nil
	})
}

// WithDisableOnClose controls whether Close disables enabled channels. Default true.
func WithDisableOnClose(disable bool) Option {
	return optFunc(func(cfg *Config) error {
		cfg.disableOnClose = disable
		return nil
	})
}

// WithMoveTimeout sets the deadline of homing and moves without a context deadline.
func WithMoveTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d <= 0 {
			return errors.New("device: move timeout must be positive")
		}
		cfg.moveTimeout = d

		return nil
	})
}

// WithPortOptions sets the serial line settings used by Open.
func WithPortOptions(opts transport.PortOptions) Option {
	return optFunc(func(cfg *Config) error {
		normalized, err := opts.Normalize()
		if err != nil {
			return err
		}
		cfg.portOptions = normalized

		return nil
	})
}

// WithPortOpener replaces the function Open uses to open serial ports.
func WithPortOpener(opener transport.PortOpener) Option {
	return optFunc(func(cfg *Config) error {
		cfg.opener = opener
		return nil
	})
}

// WithConnOptions adds options for the apt.Connection created by Open.
func WithConnOptions(opts ...apt.ConnOption) Option {
	return optFunc(func(cfg *Config) error {
		cfg.connOpts = append(cfg.connOpts, opts...)
		return nil
	})
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *Config) error {
		if l == nil {
			return errors.New("device: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
