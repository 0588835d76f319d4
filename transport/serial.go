package transport

import (
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial"

	"github.com/arloliu/go-apt/logger"
)

// PortOpener opens a serial port. It matches serial.Open and is replaced in
// tests with an opener returning a FakeStream.
type PortOpener func(path string, mode *serial.Mode) (serial.Port, error)

// Open opens the serial port at path and prepares the line for APT traffic:
// the mode from opts is applied, the input and output buffers are purged
// after the settle delay, and RTS is asserted when RTS/CTS flow control is
// selected.
//
// A nil opener uses serial.Open. Any failure closes the port and wraps
// ErrConnection.
func Open(path string, opts PortOptions, opener PortOpener, l logger.Logger) (*Conn, error) {
	if l == nil {
		l = logger.GetLogger()
	}
	if opener == nil {
		opener = serial.Open
	}

	norm, err := opts.Normalize()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}

	mode, err := norm.SerialMode()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}

	port, err := opener(path, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrConnection, path, err)
	}

	if err := preparePort(port, norm); err != nil {
		return nil, errors.Join(fmt.Errorf("%w: configure %s: %w", ErrConnection, path, err), port.Close())
	}

	l.Debug("transport: port opened",
		"port", path,
		"baudRate", norm.BaudRate,
		"flowControl", norm.FlowControl,
	)

	return NewConn(port, path, l), nil
}

func preparePort(port serial.Port, opts PortOptions) error {
	time.Sleep(opts.SettleTime)

	if err := port.ResetInputBuffer(); err != nil {
		return err
	}
	if err := port.ResetOutputBuffer(); err != nil {
		return err
	}

	time.Sleep(opts.SettleTime)

	if opts.FlowControl == FlowRTSCTS {
		if err := port.SetRTS(true); err != nil {
			return err
		}
	}

	return nil
}

// OpenSerialNumber looks up the USB port whose serial number is serialNumber
// and opens it with Open. ErrPortNotFound is returned when no port matches.
func OpenSerialNumber(serialNumber string, opts PortOptions, opener PortOpener, l logger.Logger) (*Conn, error) {
	info, err := FindPort(serialNumber)
	if err != nil {
		return nil, err
	}

	return Open(info.Path, opts, opener, l)
}
