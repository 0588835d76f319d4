package commands

import (
	"fmt"
	"io"

	"github.com/arloliu/go-apt/apt"
	"github.com/arloliu/go-apt/internal/util"
	"github.com/arloliu/go-apt/trace"
)

// FormatEvent writes a human-readable representation of event to w.
// Frames are decoded with table to show their parameters or payload.
func FormatEvent(w io.Writer, event trace.Event, table *apt.SchemaTable) {
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	id := apt.MessageID(event.MessageID)

	fmt.Fprintf(w, "%s [conn:%s] %-3s %s %s -> %s\n",
		ts, shortenConnID(event.ConnectionID), event.Direction,
		id, apt.Address(event.Source), apt.Address(event.Dest))

	if len(event.Frame) > 0 {
		fmt.Fprintf(w, "  frame:   %s\n", util.HexString(event.Frame))
	}

	switch {
	case event.Error != "":
		fmt.Fprintf(w, "  error:   %s\n", event.Error)
	case len(event.Frame) > 0:
		msg, err := apt.Unmarshal(table, event.Frame)
		switch {
		case err != nil:
			fmt.Fprintf(w, "  decode:  %v\n", err)
		case msg.HasPayload():
			fmt.Fprintf(w, "  payload: %v\n", formatPayload(msg.Payload))
		default:
			fmt.Fprintf(w, "  params:  0x%02X 0x%02X\n", msg.Param1, msg.Param2)
		}
	}
}

func formatPayload(p apt.Payload) string {
	out := "["
	for i, v := range p {
		if i > 0 {
			out += " "
		}
		switch v := v.(type) {
		case string:
			out += fmt.Sprintf("%q", v)
		case []byte:
			out += "<" + util.HexString(v) + ">"
		default:
			out += fmt.Sprint(v)
		}
	}

	return out + "]"
}

// shortenConnID returns the first 8 characters of the connection ID.
func shortenConnID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}

	return id
}
