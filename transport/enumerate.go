package transport

import (
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
)

// USB identifiers of the FTDI bridge fitted to APT controllers.
const (
	FTDIVendorID = "0403"
	APTProductID = "FAF0"

	ftdiChannelSuffix = "A"
)

// PortInfo describes an enumerated USB serial port.
type PortInfo struct {
	Path         string `json:"path"`
	VID          string `json:"vid"`
	PID          string `json:"pid"`
	SerialNumber string `json:"serial_number"`
}

// IsAPT reports whether the port carries the APT controller USB identifiers.
func (p PortInfo) IsAPT() bool {
	return strings.EqualFold(p.VID, FTDIVendorID) && strings.EqualFold(p.PID, APTProductID)
}

// listPorts is replaced in tests.
var listPorts = enumerator.GetDetailedPortsList

// ListPorts returns every USB serial port known to the operating system.
func ListPorts() ([]PortInfo, error) {
	details, err := listPorts()
	if err != nil {
		return nil, fmt.Errorf("transport: enumerate ports: %w", err)
	}

	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		if d == nil || !d.IsUSB {
			continue
		}
		ports = append(ports, PortInfo{
			Path:         d.Name,
			VID:          strings.ToUpper(d.VID),
			PID:          strings.ToUpper(d.PID),
			SerialNumber: d.SerialNumber,
		})
	}

	return ports, nil
}

// ListAPTPorts returns the enumerated ports whose USB identifiers match an
// APT controller.
func ListAPTPorts() ([]PortInfo, error) {
	ports, err := ListPorts()
	if err != nil {
		return nil, err
	}

	apt := ports[:0]
	for _, p := range ports {
		if p.IsAPT() {
			apt = append(apt, p)
		}
	}

	return apt, nil
}

// FindPort returns the USB port whose serial number equals serialNumber.
//
// Some FTDI drivers append a channel letter to the USB serial number
// (e.g. "83812345A"); such suffixed entries also match.
func FindPort(serialNumber string) (PortInfo, error) {
	ports, err := ListPorts()
	if err != nil {
		return PortInfo{}, err
	}

	for _, p := range ports {
		if p.SerialNumber == serialNumber || p.SerialNumber == serialNumber+ftdiChannelSuffix {
			return p, nil
		}
	}

	return PortInfo{}, fmt.Errorf("%w: serial number %q", ErrPortNotFound, serialNumber)
}
