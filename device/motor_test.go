package device

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-apt/apt"
	"github.com/arloliu/go-apt/internal/apttest"
)

func benchMotor(t *testing.T, sim *apttest.Sim, opts ...Option) *Motor {
	t.Helper()

	m, err := openController(t, sim, opts...).Motor(0)
	require.NoError(t, err)

	return m
}

func TestMotor_MoveAndCounters(t *testing.T) {
	ctx := context.Background()
	sim := benchSim()
	m := benchMotor(t, sim)

	require.NoError(t, m.MoveAbsolute(ctx, 12800))

	reqs := sim.RequestsOf(apt.MotMoveAbsolute)
	require.Len(t, reqs, 1)
	assert.Equal(t, apt.Payload{uint16(1), int32(12800)}, reqs[0].Payload)

	pos, err := m.Position(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(12800), pos)

	enc, err := m.EncoderCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(12800), enc)

	require.NoError(t, m.SetPosition(ctx, -40))
	require.NoError(t, m.SetEncoderCount(ctx, 7))

	st, err := m.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, MotorStatus{Position: -40, EncoderCount: 7, StatusBits: 0x80000400}, st)

	require.NoError(t, m.Home(ctx))
	pos, err = m.Position(ctx)
	require.NoError(t, err)
	assert.Zero(t, pos)
}

func TestMotor_Stop(t *testing.T) {
	ctx := context.Background()
	sim := benchSim()
	m := benchMotor(t, sim)

	require.NoError(t, m.SetPosition(ctx, 300))
	st, err := m.Stop(ctx, StopProfiled)
	require.NoError(t, err)
	assert.Equal(t, int32(300), st.Position)

	reqs := sim.RequestsOf(apt.MotMoveStop)
	require.Len(t, reqs, 1)
	assert.Equal(t, StopProfiled, reqs[0].Param2)
}

func TestMotor_HomeTimeout(t *testing.T) {
	sim := benchSim()
	sim.Handle(apt.MotMoveHome, func(*apttest.Sim, *apt.Message) []*apt.Message { return nil })
	m := benchMotor(t, sim, WithMoveTimeout(80*time.Millisecond))

	start := time.Now()
	err := m.Home(context.Background())
	require.ErrorIs(t, err, apt.ErrReceiveTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond)
}

func TestMotor_CompletionForOtherChannel(t *testing.T) {
	sim := benchSim()
	sim.Handle(apt.MotMoveAbsolute, func(_ *apttest.Sim, req *apt.Message) []*apt.Message {
		return []*apt.Message{apttest.ReplyPayload(req, apt.MotMoveCompleted, uint16(2), int32(0), int32(0), uint32(0))}
	})
	m := benchMotor(t, sim)

	err := m.MoveAbsolute(context.Background(), 10)
	require.ErrorIs(t, err, ErrInconsistentResponse)
}
