package device

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-apt/apt"
	"github.com/arloliu/go-apt/internal/apttest"
)

func TestEnumerate_Standalone(t *testing.T) {
	sim := benchSim()
	reg, err := Enumerate(context.Background(), simConn(t, sim), testConfig(t))
	require.NoError(t, err)

	assert.False(t, reg.IsRack())
	assert.Equal(t, "83000001", reg.Info().Serial())
	assert.Equal(t, "BPC303", reg.Info().Model)
	assert.Equal(t, "1.3.5", reg.Info().FirmwareVersion())

	require.Equal(t, 3, reg.Len())
	assert.Equal(t, []Channel{
		{Index: 0, ChannelID: 0x01, Dest: apt.GenericUSB},
		{Index: 1, ChannelID: 0x02, Dest: apt.GenericUSB},
		{Index: 2, ChannelID: 0x04, Dest: apt.GenericUSB},
	}, reg.Channels())

	assert.Equal(t, []int{0, 1, 2}, reg.EnabledChannels())
	for _, id := range []byte{0x01, 0x02, 0x04} {
		assert.Equal(t, ChanEnabled, sim.EnableState(apt.GenericUSB, id), "channel 0x%02X", id)
	}
}

func TestEnumerate_RackBays(t *testing.T) {
	sim := rackSim(true, false, true, false)
	reg, err := Enumerate(context.Background(), simConn(t, sim), testConfig(t))
	require.NoError(t, err)

	assert.True(t, reg.IsRack())
	assert.Equal(t, []Channel{
		{Index: 0, ChannelID: 0x01, Dest: 0x21},
		{Index: 1, ChannelID: 0x01, Dest: 0x23},
	}, reg.Channels())

	bayReqs := sim.RequestsOf(apt.RackReqBayUsed)
	require.Len(t, bayReqs, 4)
	for slot, req := range bayReqs {
		assert.Equal(t, byte(slot), req.Param1)
		assert.Equal(t, apt.RackAddress, req.Dest)
	}

	assert.Equal(t, ChanEnabled, sim.EnableState(0x21, 0x01))
	assert.Equal(t, ChanEnabled, sim.EnableState(0x23, 0x01))
	assert.Zero(t, sim.EnableState(0x22, 0x01))
}

func TestEnumerate_RackPrefixes(t *testing.T) {
	sim := benchSim()
	_, err := Enumerate(context.Background(), simConn(t, sim), testConfig(t, WithRackPrefixes(83)))

	// enumerated as a rack whose three bays are all empty
	require.ErrorIs(t, err, ErrDeviceNotFound)
	assert.Len(t, sim.RequestsOf(apt.RackReqBayUsed), 3)
}

func TestEnumerate_NotFound(t *testing.T) {
	t.Run("serial mismatch", func(t *testing.T) {
		sim := benchSim()
		_, err := Enumerate(context.Background(), simConn(t, sim), testConfig(t, WithSerialNumber("83000002")))
		require.ErrorIs(t, err, ErrDeviceNotFound)
		assert.Empty(t, sim.RequestsOf(apt.ModSetChanEnableState))
	})

	t.Run("no channels", func(t *testing.T) {
		sim := apttest.New(apttest.Config{Serial: benchSerial, Model: "KPZ101"})
		_, err := Enumerate(context.Background(), simConn(t, sim), testConfig(t))
		require.ErrorIs(t, err, ErrDeviceNotFound)
	})

	t.Run("empty rack", func(t *testing.T) {
		sim := rackSim(false, false)
		_, err := Enumerate(context.Background(), simConn(t, sim), testConfig(t))
		require.ErrorIs(t, err, ErrDeviceNotFound)
	})

	t.Run("no answer", func(t *testing.T) {
		sim := benchSim()
		sim.Handle(apt.HWReqInfo, func(*apttest.Sim, *apt.Message) []*apt.Message { return nil })
		_, err := Enumerate(context.Background(), simConn(t, sim), testConfig(t))
		require.ErrorIs(t, err, apt.ErrReceiveTimeout)
	})
}

func TestEnumerate_Inconsistent(t *testing.T) {
	t.Run("too many channels", func(t *testing.T) {
		sim := apttest.New(apttest.Config{Serial: benchSerial, Channels: 9})
		_, err := Enumerate(context.Background(), simConn(t, sim), testConfig(t))
		require.ErrorIs(t, err, ErrInconsistentResponse)
	})

	t.Run("bay slot", func(t *testing.T) {
		sim := rackSim(true, true)
		sim.Handle(apt.RackReqBayUsed, func(_ *apttest.Sim, req *apt.Message) []*apt.Message {
			return []*apt.Message{apttest.Reply(req, apt.RackGetBayUsed, req.Param1+1, BayOccupied)}
		})
		_, err := Enumerate(context.Background(), simConn(t, sim), testConfig(t))
		require.ErrorIs(t, err, ErrInconsistentResponse)
	})

	t.Run("bay state", func(t *testing.T) {
		sim := rackSim(true)
		sim.Handle(apt.RackReqBayUsed, func(_ *apttest.Sim, req *apt.Message) []*apt.Message {
			return []*apt.Message{apttest.Reply(req, apt.RackGetBayUsed, req.Param1, 0x07)}
		})
		_, err := Enumerate(context.Background(), simConn(t, sim), testConfig(t))
		require.ErrorIs(t, err, ErrInconsistentResponse)
	})
}

func TestEnumerate_WithoutEnable(t *testing.T) {
	sim := benchSim()
	reg, err := Enumerate(context.Background(), simConn(t, sim), testConfig(t, WithEnableChannels(false)))
	require.NoError(t, err)

	assert.Empty(t, reg.EnabledChannels())
	assert.Empty(t, sim.RequestsOf(apt.ModSetChanEnableState))
}

func TestRegistry_EnableState(t *testing.T) {
	ctx := context.Background()
	sim := benchSim()
	reg, err := Enumerate(ctx, simConn(t, sim), testConfig(t))
	require.NoError(t, err)

	require.NoError(t, reg.DisableChannel(ctx, 1))
	assert.Equal(t, ChanDisabled, sim.EnableState(apt.GenericUSB, 0x02))
	assert.Equal(t, []int{0, 2}, reg.EnabledChannels())

	on, err := reg.Enabled(1)
	require.NoError(t, err)
	assert.False(t, on)

	on, err = reg.RefreshEnabled(ctx, 1)
	require.NoError(t, err)
	assert.False(t, on)

	on, err = reg.RefreshEnabled(ctx, 2)
	require.NoError(t, err)
	assert.True(t, on)

	require.NoError(t, reg.EnableChannel(ctx, 1))
	assert.Equal(t, ChanEnabled, sim.EnableState(apt.GenericUSB, 0x02))
	assert.Equal(t, []int{0, 1, 2}, reg.EnabledChannels())
}

func TestRegistry_RefreshInconsistent(t *testing.T) {
	ctx := context.Background()
	sim := benchSim()
	reg, err := Enumerate(ctx, simConn(t, sim), testConfig(t))
	require.NoError(t, err)

	sim.Handle(apt.ModReqChanEnableState, func(_ *apttest.Sim, req *apt.Message) []*apt.Message {
		return []*apt.Message{apttest.Reply(req, apt.ModGetChanEnableState, 0x04, ChanEnabled)}
	})
	_, err = reg.RefreshEnabled(ctx, 0)
	require.ErrorIs(t, err, ErrInconsistentResponse)

	sim.Handle(apt.ModReqChanEnableState, func(_ *apttest.Sim, req *apt.Message) []*apt.Message {
		return []*apt.Message{apttest.Reply(req, apt.ModGetChanEnableState, req.Param1, 0x09)}
	})
	_, err = reg.RefreshEnabled(ctx, 0)
	require.ErrorIs(t, err, ErrInconsistentResponse)
}

func TestRegistry_InvalidChannel(t *testing.T) {
	ctx := context.Background()
	reg, err := Enumerate(ctx, simConn(t, benchSim()), testConfig(t))
	require.NoError(t, err)

	for _, i := range []int{-1, 3} {
		_, err := reg.Channel(i)
		require.ErrorIs(t, err, ErrInvalidChannel)
		_, err = reg.Enabled(i)
		require.ErrorIs(t, err, ErrInvalidChannel)
		require.ErrorIs(t, reg.EnableChannel(ctx, i), ErrInvalidChannel)
		require.ErrorIs(t, reg.Identify(ctx, i), ErrInvalidChannel)
	}
}

func TestRegistry_Identify(t *testing.T) {
	sim := rackSim(false, true)
	reg, err := Enumerate(context.Background(), simConn(t, sim), testConfig(t))
	require.NoError(t, err)

	require.NoError(t, reg.Identify(context.Background(), 0))

	reqs := sim.RequestsOf(apt.ModIdentify)
	require.Len(t, reqs, 1)
	assert.Equal(t, apt.Address(0x22), reqs[0].Dest)
	assert.Equal(t, byte(0x01), reqs[0].Param1)
}
