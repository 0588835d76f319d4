package commands

import (
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/arloliu/go-apt/device"
	"github.com/arloliu/go-apt/transport"
)

// WritePorts writes a table of USB serial ports.
func WritePorts(w io.Writer, ports []transport.PortInfo) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tVID\tPID\tSERIAL\tAPT")
	for _, p := range ports {
		mark := ""
		if p.IsAPT() {
			mark = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.Path, p.VID, p.PID, p.SerialNumber, mark)
	}

	return tw.Flush()
}

// WriteInfo writes the controller identity and its channel table.
func WriteInfo(w io.Writer, info device.HardwareInfo, rack bool, channels []device.Channel, enabled []int) error {
	kind := "stand-alone"
	if rack {
		kind = "rack"
	}

	fmt.Fprintf(w, "Model:    %s (%s)\n", info.Model, kind)
	fmt.Fprintf(w, "Serial:   %s\n", info.Serial())
	fmt.Fprintf(w, "Firmware: %s\n", info.FirmwareVersion())
	fmt.Fprintf(w, "Hardware: %d\n", info.HardwareVersion)
	if info.Notes != "" {
		fmt.Fprintf(w, "Notes:    %s\n", info.Notes)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CHANNEL\tID\tDEST\tENABLED")
	for _, ch := range channels {
		fmt.Fprintf(tw, "%d\t0x%02X\t%s\t%t\n", ch.Index, ch.ChannelID, ch.Dest, slices.Contains(enabled, ch.Index))
	}

	return tw.Flush()
}
