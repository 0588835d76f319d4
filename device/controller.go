package device

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/arloliu/go-apt/apt"
	"github.com/arloliu/go-apt/logger"
	"github.com/arloliu/go-apt/transport"
)

// Controller is an opened APT controller with its enumerated channels.
type Controller struct {
	conn   *apt.Connection
	reg    *Registry
	cfg    *Config
	logger logger.Logger

	closeOnce sync.Once
	closeErr  error
}

// Open resolves the controller's serial port, opens it and sets the
// controller up with NewController.
//
// path may name the port directly. When empty, the port is looked up by
// WithSerialNumber, or, without one, the single APT port present is used.
func Open(ctx context.Context, path string, opts ...Option) (*Controller, error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}

	if path == "" {
		if path, err = resolvePort(cfg.serialNumber); err != nil {
			return nil, err
		}
	}

	tr, err := transport.Open(path, cfg.portOptions, cfg.opener, cfg.logger)
	if err != nil {
		return nil, err
	}

	connOpts := append([]apt.ConnOption{
		apt.WithLogger(cfg.logger),
		apt.WithQueryTimeout(DefaultQueryTimeout),
	}, cfg.connOpts...)

	connCfg, err := apt.NewConnectionConfig(connOpts...)
	if err != nil {
		return nil, errors.Join(err, tr.Close())
	}
	conn, err := apt.NewConnection(tr, connCfg)
	if err != nil {
		return nil, errors.Join(err, tr.Close())
	}

	return newController(ctx, conn, cfg)
}

func resolvePort(serialNumber string) (string, error) {
	if serialNumber != "" {
		info, err := transport.FindPort(serialNumber)
		if err != nil {
			if errors.Is(err, transport.ErrPortNotFound) {
				return "", fmt.Errorf("%w: %w", ErrDeviceNotFound, err)
			}
			return "", err
		}
		return info.Path, nil
	}

	ports, err := transport.ListAPTPorts()
	if err != nil {
		return "", err
	}
	switch len(ports) {
	case 0:
		return "", fmt.Errorf("%w: no APT controller attached", ErrDeviceNotFound)
	case 1:
		return ports[0].Path, nil
	default:
		return "", fmt.Errorf("%w: %d APT controllers attached, select one by serial number", ErrDeviceNotFound, len(ports))
	}
}

// NewController takes ownership of conn: it sends the connect handshake,
// enumerates the channels and logs the controller identity. conn is closed
// if any step fails.
func NewController(ctx context.Context, conn *apt.Connection, opts ...Option) (*Controller, error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, errors.Join(err, conn.Close())
	}

	return newController(ctx, conn, cfg)
}

func newController(ctx context.Context, conn *apt.Connection, cfg *Config) (c *Controller, err error) {
	defer func() {
		if err != nil {
			err = errors.Join(err, conn.Close())
		}
	}()

	// firmware updates are disabled for the session before anything else
	if err := conn.Send(ctx, apt.HWNoFlashProgramming, 0, 0, cfg.dest); err != nil {
		return nil, fmt.Errorf("device: connect handshake: %w", err)
	}

	reg, err := Enumerate(ctx, conn, cfg)
	if err != nil {
		return nil, err
	}

	info := reg.Info()
	cfg.logger.Info("device: connected",
		"port", conn.Name(),
		"model", info.Model,
		"serial", info.Serial(),
		"firmware", info.FirmwareVersion(),
		"notes", info.Notes,
		"channels", reg.Len(),
		"rack", reg.IsRack())

	return &Controller{conn: conn, reg: reg, cfg: cfg, logger: cfg.logger}, nil
}

// Conn returns the underlying connection.
func (c *Controller) Conn() *apt.Connection { return c.conn }

// Registry returns the channel registry.
func (c *Controller) Registry() *Registry { return c.reg }

// Info returns the controller's hardware information.
func (c *Controller) Info() HardwareInfo { return c.reg.Info() }

// Identify flashes the front panel LED of channel i.
func (c *Controller) Identify(ctx context.Context, i int) error {
	return c.reg.Identify(ctx, i)
}

// Motor returns the motor capabilities of channel i.
func (c *Controller) Motor(i int) (*Motor, error) {
	ch, err := c.reg.Channel(i)
	if err != nil {
		return nil, err
	}

	return &Motor{handle: handle{reg: c.reg, ch: ch}, moveTimeout: c.cfg.moveTimeout}, nil
}

// Piezo returns the piezo capabilities of channel i. It queries the
// actuator's maximum travel, used to scale positions.
func (c *Controller) Piezo(ctx context.Context, i int, opts ...PiezoOption) (*Piezo, error) {
	ch, err := c.reg.Channel(i)
	if err != nil {
		return nil, err
	}

	return newPiezo(ctx, handle{reg: c.reg, ch: ch}, opts...)
}

// Close disables the channels left enabled, when configured to, and closes
// the connection. Only the first call has an effect.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		var errs []error
		if c.cfg.disableOnClose && !c.conn.IsClosed() {
			ctx, cancel := context.WithTimeout(context.Background(), DefaultQueryTimeout)
			for _, i := range c.reg.EnabledChannels() {
				if err := c.reg.DisableChannel(ctx, i); err != nil {
					errs = append(errs, err)
				}
			}
			cancel()
		}
		if err := c.conn.Close(); err != nil {
			errs = append(errs, err)
		}

		c.closeErr = errors.Join(errs...)
		if c.closeErr != nil {
			c.logger.Warn("device: close", "error", c.closeErr)
		}
	})

	return c.closeErr
}
