package device

import (
	"context"
	"time"

	"github.com/arloliu/go-apt/apt"
)

// Stop modes carried in MOT_MOVE_STOP param2.
const (
	StopImmediate byte = 0x01
	StopProfiled  byte = 0x02
)

// MotorStatus is the decoded MOT_GET_STATUSUPDATE (or MOVE_COMPLETED) payload.
type MotorStatus struct {
	Position     int32
	EncoderCount int32
	StatusBits   uint32
}

// Motor exposes the stepper/DC motor messages of a channel.
type Motor struct {
	handle
	moveTimeout time.Duration
}

// Home starts homing and waits for MOT_MOVE_HOMED.
func (m *Motor) Home(ctx context.Context) error {
	if err := m.send(ctx, apt.MotMoveHome, 0); err != nil {
		return err
	}
	_, err := m.expect(ctx, apt.MotMoveHomed, m.moveTimeout)

	return err
}

// MoveAbsolute moves to position, in encoder counts, and waits for
// MOT_MOVE_COMPLETED.
func (m *Motor) MoveAbsolute(ctx context.Context, position int32) error {
	if err := m.write(ctx, apt.MotMoveAbsolute, position); err != nil {
		return err
	}
	_, err := m.expect(ctx, apt.MotMoveCompleted, m.moveTimeout)

	return err
}

// Stop halts a move and waits for MOT_MOVE_STOPPED.
func (m *Motor) Stop(ctx context.Context, mode byte) (MotorStatus, error) {
	if err := m.send(ctx, apt.MotMoveStop, mode); err != nil {
		return MotorStatus{}, err
	}
	rsp, err := m.expect(ctx, apt.MotMoveStopped, m.moveTimeout)
	if err != nil {
		return MotorStatus{}, err
	}

	return decodeMotorStatus(rsp)
}

// Position returns the position counter.
func (m *Motor) Position(ctx context.Context) (int32, error) {
	return m.counter(ctx, apt.MotReqPosCounter, apt.MotGetPosCounter)
}

// SetPosition overwrites the position counter.
func (m *Motor) SetPosition(ctx context.Context, position int32) error {
	return m.write(ctx, apt.MotSetPosCounter, position)
}

// EncoderCount returns the encoder counter.
func (m *Motor) EncoderCount(ctx context.Context) (int32, error) {
	return m.counter(ctx, apt.MotReqEncCounter, apt.MotGetEncCounter)
}

// SetEncoderCount overwrites the encoder counter.
func (m *Motor) SetEncoderCount(ctx context.Context, count int32) error {
	return m.write(ctx, apt.MotSetEncCounter, count)
}

// Status requests a status update.
func (m *Motor) Status(ctx context.Context) (MotorStatus, error) {
	rsp, err := m.query(ctx, apt.MotReqStatusUpdate, apt.MotGetStatusUpdate)
	if err != nil {
		return MotorStatus{}, err
	}

	return decodeMotorStatus(rsp)
}

func (m *Motor) counter(ctx context.Context, req, expected apt.MessageID) (int32, error) {
	rsp, err := m.query(ctx, req, expected)
	if err != nil {
		return 0, err
	}

	return apt.Field[int32](rsp, 1)
}

func decodeMotorStatus(msg *apt.Message) (MotorStatus, error) {
	var (
		st  MotorStatus
		err error
	)
	if st.Position, err = apt.Field[int32](msg, 1); err != nil {
		return st, err
	}
	if st.EncoderCount, err = apt.Field[int32](msg, 2); err != nil {
		return st, err
	}
	if st.StatusBits, err = apt.Field[uint32](msg, 3); err != nil {
		return st, err
	}

	return st, nil
}
