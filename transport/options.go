package transport

import (
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
)

// Line settings required by the APT controllers' FT232 USB bridge.
const (
	DefaultBaudRate   = 115200
	DefaultDataBits   = 8
	DefaultStopBits   = 1
	DefaultParity     = "N"
	DefaultSettleTime = 50 * time.Millisecond
)

// Flow control modes accepted by PortOptions.
const (
	FlowNone   = "none"
	FlowRTSCTS = "rtscts"
)

// PortOptions describes the serial line parameters applied when a port is
// opened. Zero values are replaced with the APT defaults by Normalize.
type PortOptions struct {
	BaudRate    int           `yaml:"baud_rate" json:"baud_rate"`
	DataBits    int           `yaml:"data_bits" json:"data_bits"`
	StopBits    int           `yaml:"stop_bits" json:"stop_bits"`
	Parity      string        `yaml:"parity" json:"parity"`
	FlowControl string        `yaml:"flow_control" json:"flow_control"`
	SettleTime  time.Duration `yaml:"settle_time" json:"settle_time"`
}

// DefaultPortOptions returns 115200 baud, 8N1 with RTS/CTS flow control.
func DefaultPortOptions() PortOptions {
	opts, _ := PortOptions{}.Normalize()
	return opts
}

// Normalize validates the options and applies defaults for any unset values.
func (o PortOptions) Normalize() (PortOptions, error) {
	opts := o

	if opts.BaudRate <= 0 {
		opts.BaudRate = DefaultBaudRate
	}

	if opts.DataBits == 0 {
		opts.DataBits = DefaultDataBits
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("transport: invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}

	if opts.StopBits == 0 {
		opts.StopBits = DefaultStopBits
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("transport: invalid stop bits %d: supported values are 1 or 2", opts.StopBits)
	}

	switch parity := strings.TrimSpace(strings.ToUpper(opts.Parity)); parity {
	case "", "N", "NONE":
		opts.Parity = "N"
	case "E", "EVEN":
		opts.Parity = "E"
	case "O", "ODD":
		opts.Parity = "O"
	default:
		return opts, fmt.Errorf("transport: unsupported parity %q: expected N, E, or O", o.Parity)
	}

	switch flow := strings.TrimSpace(strings.ToLower(opts.FlowControl)); flow {
	case "", FlowRTSCTS, "rts/cts", "hardware":
		opts.FlowControl = FlowRTSCTS
	case FlowNone, "off":
		opts.FlowControl = FlowNone
	default:
		return opts, fmt.Errorf("transport: unsupported flow control %q", o.FlowControl)
	}

	if opts.SettleTime < 0 {
		return opts, fmt.Errorf("transport: settle time %v must not be negative", opts.SettleTime)
	}
	if opts.SettleTime == 0 {
		opts.SettleTime = DefaultSettleTime
	}

	return opts, nil
}

// SerialMode converts the options into the go.bug.st/serial mode used to
// open the port.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		StopBits: serial.OneStopBit,
	}
	if opts.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}

	switch opts.Parity {
	case "N":
		mode.Parity = serial.NoParity
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	}

	if opts.FlowControl == FlowRTSCTS {
		mode.InitialStatusBits = &serial.ModemOutputBits{RTS: true, DTR: true}
	}

	return mode, nil
}
