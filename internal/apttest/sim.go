// Package apttest provides a scripted APT controller for tests.
//
// A Sim sits behind a transport.FakeStream: every frame the host writes is
// decoded and answered the way a controller would, from in-memory state.
package apttest

import (
	"sync"

	"go.bug.st/serial"

	"github.com/arloliu/go-apt/apt"
	"github.com/arloliu/go-apt/logger"
	"github.com/arloliu/go-apt/transport"
)

// Handler answers one request. Returning nil sends nothing.
type Handler func(s *Sim, req *apt.Message) []*apt.Message

// Config describes the simulated controller.
type Config struct {
	Serial   uint32
	Model    string
	Notes    string
	Firmware [4]byte
	// Channels is the channel count of a stand-alone unit.
	Channels uint16
	// Bays lists bay occupancy of a rack; when set it overrides Channels.
	Bays []bool

	// MaxTravel is reported by PZ_GET_MAXTRAVEL in 0.1 um steps. Default 200.
	MaxTravel uint16
	// MaxVolts is reported by PZ_GET_OUTPUTMAXVOLTS in 0.1 V steps. Default 750.
	MaxVolts uint16
	// ZeroPolls is the number of status queries reporting zeroing after PZ_SET_ZERO.
	ZeroPolls int
	// SettlePolls is the number of position queries still reporting the old
	// position after PZ_SET_OUTPUTPOS.
	SettlePolls int
}

type chanKey struct {
	dest apt.Address
	id   uint16
}

type channelState struct {
	enable   byte
	position int32
	encoder  int32
	mode     byte
	volts    int16
	pzPos    uint16
	target   uint16
	settle   int
	zeroing  int
}

// Sim is a simulated APT controller.
type Sim struct {
	cfg   Config
	table *apt.SchemaTable
	fs    *transport.FakeStream

	mu       sync.Mutex
	channels map[chanKey]*channelState
	requests []*apt.Message
	handlers map[apt.MessageID]Handler
}

// New creates a simulator answering on a fresh FakeStream.
func New(cfg Config) *Sim {
	if cfg.MaxTravel == 0 {
		cfg.MaxTravel = 200
	}
	if cfg.MaxVolts == 0 {
		cfg.MaxVolts = 750
	}

	s := &Sim{
		cfg:      cfg,
		table:    apt.DefaultSchemaTable(),
		fs:       transport.NewFakeStream(),
		channels: make(map[chanKey]*channelState),
		handlers: make(map[apt.MessageID]Handler),
	}
	s.fs.OnWrite = s.onWrite

	return s
}

// Stream returns the stream the host side talks to.
func (s *Sim) Stream() *transport.FakeStream { return s.fs }

// Opener returns a transport.PortOpener handing out the simulator's stream
// with the requested mode applied.
func (s *Sim) Opener() transport.PortOpener {
	return func(_ string, mode *serial.Mode) (serial.Port, error) {
		if err := s.fs.SetMode(mode); err != nil {
			return nil, err
		}

		return s.fs, nil
	}
}

// Conn creates an apt.Connection to the simulator.
func (s *Sim) Conn(opts ...apt.ConnOption) (*apt.Connection, error) {
	cfg, err := apt.NewConnectionConfig(append([]apt.ConnOption{apt.WithLogger(logger.NopLogger{})}, opts...)...)
	if err != nil {
		return nil, err
	}

	return apt.NewConnection(transport.NewConn(s.fs, "sim", logger.NopLogger{}), cfg)
}

// Handle replaces the answer to requests with the given ID.
func (s *Sim) Handle(id apt.MessageID, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handlers[id] = h
}

// Requests returns every decoded request received so far.
func (s *Sim) Requests() []*apt.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]*apt.Message(nil), s.requests...)
}

// RequestsOf returns the received requests with the given ID.
func (s *Sim) RequestsOf(id apt.MessageID) []*apt.Message {
	var out []*apt.Message
	for _, req := range s.Requests() {
		if req.ID == id {
			out = append(out, req)
		}
	}

	return out
}

// EnableState returns the enable state last set for a channel; 0 if never set.
func (s *Sim) EnableState(dest apt.Address, chanID byte) byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.channels[chanKey{dest, uint16(chanID)}]; ok {
		return st.enable
	}

	return 0
}

// Reply builds a header-only reply to req.
func Reply(req *apt.Message, id apt.MessageID, param1, param2 byte) *apt.Message {
	return apt.NewMessage(id, param1, param2, req.Source, req.Dest)
}

// ReplyPayload builds a payload reply to req.
func ReplyPayload(req *apt.Message, id apt.MessageID, values ...any) *apt.Message {
	return apt.NewPayloadMessage(id, req.Source, req.Dest, values...)
}

func (s *Sim) onWrite(p []byte) []byte {
	req, err := apt.Unmarshal(s.table, p)
	if err != nil {
		return nil
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	h, ok := s.handlers[req.ID]
	s.mu.Unlock()

	var replies []*apt.Message
	if ok {
		replies = h(s, req)
	} else {
		replies = s.answer(req)
	}

	var out []byte
	for _, rsp := range replies {
		frame, err := apt.Marshal(s.table, rsp)
		if err != nil {
			continue
		}
		out = append(out, frame...)
	}

	return out
}
