package apt

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-apt/logger"
	"github.com/arloliu/go-apt/trace"
)

// Default connection settings.
const (
	DefaultReadTimeout   = 500 * time.Millisecond // one decode attempt
	DefaultRetryInterval = 10 * time.Millisecond  // pause between query attempts
	DefaultDrainSilence  = 50 * time.Millisecond  // quiet period that ends a drain
)

// Range limits for connection settings.
const (
	MinReadTimeout = 10 * time.Millisecond
	MaxReadTimeout = 10 * time.Second

	MaxQueryTimeout = 10 * time.Minute

	MaxRetryInterval = 1 * time.Second

	MinDrainSilence = 1 * time.Millisecond
	MaxDrainSilence = 1 * time.Second
)

// ConnectionConfig holds the configuration of an APT connection.
type ConnectionConfig struct {
	// readTimeout bounds a single transport read of one header or payload.
	readTimeout time.Duration

	// queryTimeout is the overall deadline of a Query when the context has
	// none. Zero means one decode attempt.
	queryTimeout time.Duration

	retryInterval time.Duration
	drainSilence  time.Duration

	// hostAddress fills the source of outgoing messages that leave it zero.
	hostAddress Address

	table  *SchemaTable
	tracer trace.Tracer
	logger logger.Logger
}

// NewConnectionConfig creates a connection configuration.
//
// opts are functional options applied in order; see With* functions.
func NewConnectionConfig(opts ...ConnOption) (*ConnectionConfig, error) {
	cfg := &ConnectionConfig{
		readTimeout:   DefaultReadTimeout,
		retryInterval: DefaultRetryInterval,
		drainSilence:  DefaultDrainSilence,
		hostAddress:   HostAddress,
		tracer:        trace.NoopTracer{},
		logger:        logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.table == nil {
		cfg.table = DefaultSchemaTable()
	}

	return cfg, nil
}

// --- Getters ---

// ReadTimeout returns the per-read timeout.
func (cfg *ConnectionConfig) ReadTimeout() time.Duration { return cfg.readTimeout }

// QueryTimeout returns the default query deadline; zero means a single attempt.
func (cfg *ConnectionConfig) QueryTimeout() time.Duration { return cfg.queryTimeout }

// RetryInterval returns the pause between query attempts.
func (cfg *ConnectionConfig) RetryInterval() time.Duration { return cfg.retryInterval }

// DrainSilence returns the quiet period that ends a drain.
func (cfg *ConnectionConfig) DrainSilence() time.Duration { return cfg.drainSilence }

// HostAddress returns the source address used for outgoing messages.
func (cfg *ConnectionConfig) HostAddress() Address { return cfg.hostAddress }

// SchemaTable returns the payload layout table.
func (cfg *ConnectionConfig) SchemaTable() *SchemaTable { return cfg.table }

// GetTracer returns the configured frame tracer.
func (cfg *ConnectionConfig) GetTracer() trace.Tracer { return cfg.tracer }

// GetLogger returns the configured logger.
func (cfg *ConnectionConfig) GetLogger() logger.Logger { return cfg.logger }

// --- ConnOption ---

// ConnOption is a functional option for configuring a ConnectionConfig.
type ConnOption interface {
	apply(*ConnectionConfig) error
}

type connOptFunc func(*ConnectionConfig) error

func (f connOptFunc) apply(cfg *ConnectionConfig) error { return f(cfg) }

// WithReadTimeout sets the timeout of a single header or payload read.
// Range: 10ms–10s.
func WithReadTimeout(d time.Duration) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if d < MinReadTimeout || d > MaxReadTimeout {
			return fmt.Errorf("apt: read timeout %v out of range [%v, %v]", d, MinReadTimeout, MaxReadTimeout)
		}
		cfg.readTimeout = d

		return nil
	})
}

// WithQueryTimeout sets the overall deadline of a Query whose context has
// no deadline. Receive timeouts are retried until it passes. Zero (the
// default) makes exactly one decode attempt.
func WithQueryTimeout(d time.Duration) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if d < 0 || d > MaxQueryTimeout {
			return fmt.Errorf("apt: query timeout %v out of range [0, %v]", d, MaxQueryTimeout)
		}
		cfg.queryTimeout = d

		return nil
	})
}

// WithRetryInterval sets the pause between query attempts. Range: 0–1s.
func WithRetryInterval(d time.Duration) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if d < 0 || d > MaxRetryInterval {
			return fmt.Errorf("apt: retry interval %v out of range [0, %v]", d, MaxRetryInterval)
		}
		cfg.retryInterval = d

		return nil
	})
}

// WithDrainSilence sets the quiet period that ends a drain. Range: 1ms–1s.
func WithDrainSilence(d time.Duration) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if d < MinDrainSilence || d > MaxDrainSilence {
			return fmt.Errorf("apt: drain silence %v out of range [%v, %v]", d, MinDrainSilence, MaxDrainSilence)
		}
		cfg.drainSilence = d

		return nil
	})
}

// WithHostAddress sets the source address of outgoing messages. Default 0x01.
func WithHostAddress(addr Address) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if addr == 0 || !addr.Valid() {
			return fmt.Errorf("apt: host address %s out of range [0x01, %s]", addr, MaxAddress)
		}
		cfg.hostAddress = addr

		return nil
	})
}

// WithSchemaTable sets the payload layout table. Default DefaultSchemaTable().
func WithSchemaTable(t *SchemaTable) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if t == nil {
			return errors.New("apt: schema table must not be nil")
		}
		cfg.table = t

		return nil
	})
}

// WithTracer sets the frame tracer. Default trace.NoopTracer.
func WithTracer(t trace.Tracer) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if t == nil {
			return errors.New("apt: tracer must not be nil")
		}
		cfg.tracer = t

		return nil
	})
}

// WithLogger sets the logger for the connection.
func WithLogger(l logger.Logger) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if l == nil {
			return errors.New("apt: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
