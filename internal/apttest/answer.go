package apttest

import "github.com/arloliu/go-apt/apt"

func channelOf(req *apt.Message) uint16 {
	if req.HasPayload() {
		if id, err := apt.Field[uint16](req, 0); err == nil {
			return id
		}
	}

	return uint16(req.Param1)
}

// state returns the channel state addressed by req. Callers hold s.mu.
func (s *Sim) state(req *apt.Message) *channelState {
	key := chanKey{req.Dest, channelOf(req)}
	st, ok := s.channels[key]
	if !ok {
		st = &channelState{mode: 0x01}
		s.channels[key] = st
	}

	return st
}

func (s *Sim) numChannels() uint16 {
	if s.cfg.Bays != nil {
		return uint16(len(s.cfg.Bays))
	}

	return s.cfg.Channels
}

func (s *Sim) answer(req *apt.Message) []*apt.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := channelOf(req)

	switch req.ID {
	case apt.HWReqInfo:
		return []*apt.Message{ReplyPayload(req, apt.HWGetInfo,
			s.cfg.Serial, s.cfg.Model, uint16(0x0010), s.cfg.Firmware[:], s.cfg.Notes,
			uint16(1), uint16(0), s.numChannels())}

	case apt.RackReqBayUsed:
		state := byte(0x02)
		if slot := int(req.Param1); slot < len(s.cfg.Bays) && s.cfg.Bays[slot] {
			state = 0x01
		}
		return []*apt.Message{Reply(req, apt.RackGetBayUsed, req.Param1, state)}

	case apt.ModSetChanEnableState:
		s.state(req).enable = req.Param2
	case apt.ModReqChanEnableState:
		state := s.state(req).enable
		if state == 0 {
			state = 0x02
		}
		return []*apt.Message{Reply(req, apt.ModGetChanEnableState, req.Param1, state)}

	case apt.MotMoveHome:
		st := s.state(req)
		st.position, st.encoder = 0, 0
		return []*apt.Message{Reply(req, apt.MotMoveHomed, req.Param1, 0)}
	case apt.MotMoveAbsolute:
		st := s.state(req)
		st.position, _ = apt.Field[int32](req, 1)
		st.encoder = st.position
		return []*apt.Message{ReplyPayload(req, apt.MotMoveCompleted, ch, st.position, st.encoder, uint32(0))}
	case apt.MotMoveStop:
		st := s.state(req)
		return []*apt.Message{ReplyPayload(req, apt.MotMoveStopped, ch, st.position, st.encoder, uint32(0))}
	case apt.MotSetPosCounter:
		s.state(req).position, _ = apt.Field[int32](req, 1)
	case apt.MotReqPosCounter:
		return []*apt.Message{ReplyPayload(req, apt.MotGetPosCounter, ch, s.state(req).position)}
	case apt.MotSetEncCounter:
		s.state(req).encoder, _ = apt.Field[int32](req, 1)
	case apt.MotReqEncCounter:
		return []*apt.Message{ReplyPayload(req, apt.MotGetEncCounter, ch, s.state(req).encoder)}
	case apt.MotReqStatusUpdate:
		st := s.state(req)
		return []*apt.Message{ReplyPayload(req, apt.MotGetStatusUpdate, ch, st.position, st.encoder, uint32(0x80000400))}

	case apt.PzSetPosControlMode:
		s.state(req).mode = req.Param2
	case apt.PzReqPosControlMode:
		return []*apt.Message{Reply(req, apt.PzGetPosControlMode, req.Param1, s.state(req).mode)}
	case apt.PzSetOutputVolts:
		s.state(req).volts, _ = apt.Field[int16](req, 1)
	case apt.PzReqOutputVolts:
		return []*apt.Message{ReplyPayload(req, apt.PzGetOutputVolts, ch, s.state(req).volts)}
	case apt.PzSetOutputPos:
		st := s.state(req)
		st.target, _ = apt.Field[uint16](req, 1)
		st.settle = s.cfg.SettlePolls
	case apt.PzReqOutputPos:
		st := s.state(req)
		if st.settle > 0 {
			st.settle--
		} else {
			st.pzPos = st.target
		}
		return []*apt.Message{ReplyPayload(req, apt.PzGetOutputPos, ch, st.pzPos)}
	case apt.PzReqMaxTravel:
		return []*apt.Message{ReplyPayload(req, apt.PzGetMaxTravel, ch, s.cfg.MaxTravel)}
	case apt.PzReqOutputMaxVolts:
		return []*apt.Message{ReplyPayload(req, apt.PzGetOutputMaxVolts, ch, s.cfg.MaxVolts, uint16(0))}
	case apt.PzSetZero:
		st := s.state(req)
		st.zeroing = s.cfg.ZeroPolls
		st.pzPos, st.target = 0, 0
	case apt.PzReqPzStatusBits:
		st := s.state(req)
		var bits uint32
		if st.zeroing > 0 {
			st.zeroing--
			bits |= 1 << 5
		}
		return []*apt.Message{ReplyPayload(req, apt.PzGetPzStatusBits, ch, bits)}
	}

	return nil
}
