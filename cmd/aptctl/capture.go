package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/arloliu/go-apt/apt"
	"github.com/arloliu/go-apt/cmd/aptctl/commands"
	"github.com/arloliu/go-apt/trace"
)

func parseFilter(conn, direction, msgID, addr, since, until string, errorsOnly bool) (trace.Filter, error) {
	f := trace.Filter{ConnectionID: conn, ErrorsOnly: errorsOnly}

	if direction != "" {
		d, ok := trace.ParseDirection(direction)
		if !ok {
			return f, fmt.Errorf("invalid direction %q (use in or out)", direction)
		}
		f.Direction = &d
	}
	if msgID != "" {
		n, err := strconv.ParseUint(msgID, 0, 16)
		if err != nil {
			return f, fmt.Errorf("invalid message ID %q: %w", msgID, err)
		}
		id := uint16(n)
		f.MessageID = &id
	}
	if addr != "" {
		n, err := strconv.ParseUint(addr, 0, 7)
		if err != nil {
			return f, fmt.Errorf("invalid address %q: %w", addr, err)
		}
		a := uint8(n)
		f.Address = &a
	}
	if since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return f, fmt.Errorf("invalid -since: %w", err)
		}
		f.TimeStart = &t
	}
	if until != "" {
		t, err := time.Parse(time.RFC3339, until)
		if err != nil {
			return f, fmt.Errorf("invalid -until: %w", err)
		}
		f.TimeEnd = &t
	}

	return f, nil
}

func runView(args []string) error {
	fs := newFlagSet("view", "Print a trace capture in human-readable form", "<capture.cbor>")
	conn := fs.String("conn", "", "Filter by connection ID")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	msgID := fs.String("msg", "", "Filter by message ID, e.g. 0x0006")
	addr := fs.String("addr", "", "Filter by source or destination address, e.g. 0x50")
	since := fs.String("since", "", "Only events at or after this RFC 3339 time")
	until := fs.String("until", "", "Only events before this RFC 3339 time")
	errorsOnly := fs.Bool("errors", false, "Only frames that failed to decode")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return errors.New("capture file path required")
	}

	filter, err := parseFilter(*conn, *direction, *msgID, *addr, *since, *until, *errorsOnly)
	if err != nil {
		return err
	}

	r, err := trace.NewReader(fs.Arg(0), filter)
	if err != nil {
		return err
	}
	defer r.Close()

	table := apt.DefaultSchemaTable()
	for {
		event, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		commands.FormatEvent(os.Stdout, event, table)
	}
}

func runStats(args []string) error {
	fs := newFlagSet("stats", "Summarize a trace capture", "<capture.cbor>")
	conn := fs.String("conn", "", "Filter by connection ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return errors.New("capture file path required")
	}

	r, err := trace.NewReader(fs.Arg(0), trace.Filter{ConnectionID: *conn})
	if err != nil {
		return err
	}
	defer r.Close()

	events, err := r.ReadAll()
	if err != nil {
		return err
	}
	commands.WriteStats(os.Stdout, commands.ComputeStats(events))

	return nil
}
