package device

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/arloliu/go-apt/apt"
	"github.com/arloliu/go-apt/internal/pool"
)

// ControlMode is the piezo position control loop mode.
type ControlMode byte

// Piezo control modes.
const (
	OpenLoop           ControlMode = 0x01
	ClosedLoop         ControlMode = 0x02
	OpenLoopSmoothed   ControlMode = 0x03
	ClosedLoopSmoothed ControlMode = 0x04
)

func (m ControlMode) String() string {
	switch m {
	case OpenLoop:
		return "open-loop"
	case ClosedLoop:
		return "closed-loop"
	case OpenLoopSmoothed:
		return "open-loop-smoothed"
	case ClosedLoopSmoothed:
		return "closed-loop-smoothed"
	default:
		return fmt.Sprintf("mode(0x%02X)", byte(m))
	}
}

// Piezo scaling and timing constants.
const (
	// FullScale is the wire value of 100% output voltage or travel.
	FullScale = 32767

	// TravelStep is the unit of PZ_GET_MAXTRAVEL, in micrometres.
	TravelStep = 0.1
	// VoltageStep is the unit of PZ_GET_OUTPUTMAXVOLTS, in volts.
	VoltageStep = 0.1

	DefaultMaxVoltage       = 75.0 // volts
	DefaultPositionAccuracy = 0.05 // micrometres
	DefaultSettleTimeout    = 1 * time.Second
	DefaultZeroTimeout      = 25 * time.Second
	DefaultSettlePoll       = 10 * time.Millisecond
	DefaultZeroPoll         = 500 * time.Millisecond

	// zeroingBit is set in the piezo status bits while zeroing is in progress.
	zeroingBit = 1 << 5
)

// Input voltage sources for PZ_SET_INPUTVOLTSSRC.
const (
	InputSoftware uint16 = 0x00
	InputExtSig   uint16 = 0x01
	InputPotentio uint16 = 0x02
)

// PiezoSetup holds the channel parameters written by Piezo.Setup.
type PiezoSetup struct {
	Mode          ControlMode
	InputSource   uint16
	PropConst     uint16
	IntConst      uint16
	CurrentLimit  uint16
	LPFilter      uint16
	FeedbackInput uint16
	BNCMode       uint16
	DigOutputs    byte
}

// DefaultPiezoSetup returns open-loop software control at 0 V.
func DefaultPiezoSetup() PiezoSetup {
	return PiezoSetup{
		Mode:          OpenLoop,
		InputSource:   InputSoftware,
		PropConst:     100,
		IntConst:      15,
		CurrentLimit:  0x03,
		LPFilter:      0x05,
		FeedbackInput: 0x01,
		BNCMode:       0x01,
		DigOutputs:    0x59,
	}
}

// Piezo exposes the piezo controller messages of a channel. Voltages are
// in volts and positions in micrometres.
type Piezo struct {
	handle

	maxVoltage    float64
	maxTravel     float64
	accuracy      float64
	settleTimeout time.Duration
	zeroTimeout   time.Duration
	settlePoll    time.Duration
	zeroPoll      time.Duration
}

// PiezoOption configures a Piezo.
type PiezoOption func(*Piezo)

// WithMaxVoltage sets the actuator's maximum voltage used to scale outputs.
// Default 75 V.
func WithMaxVoltage(v float64) PiezoOption {
	return func(p *Piezo) { p.maxVoltage = v }
}

// WithMaxTravel sets the maximum travel instead of querying PZ_REQ_MAXTRAVEL.
func WithMaxTravel(um float64) PiezoOption {
	return func(p *Piezo) { p.maxTravel = um }
}

// WithPositionAccuracy sets the tolerance SetPosition waits for.
func WithPositionAccuracy(um float64) PiezoOption {
	return func(p *Piezo) { p.accuracy = um }
}

// WithSettleTimeout bounds the wait of SetPosition.
func WithSettleTimeout(d time.Duration) PiezoOption {
	return func(p *Piezo) { p.settleTimeout = d }
}

// WithZeroTimeout bounds the wait of Zero.
func WithZeroTimeout(d time.Duration) PiezoOption {
	return func(p *Piezo) { p.zeroTimeout = d }
}

// WithPollIntervals sets the status polling periods of SetPosition and Zero.
func WithPollIntervals(settle, zero time.Duration) PiezoOption {
	return func(p *Piezo) {
		p.settlePoll = settle
		p.zeroPoll = zero
	}
}

func newPiezo(ctx context.Context, h handle, opts ...PiezoOption) (*Piezo, error) {
	p := &Piezo{
		handle:        h,
		maxVoltage:    DefaultMaxVoltage,
		accuracy:      DefaultPositionAccuracy,
		settleTimeout: DefaultSettleTimeout,
		zeroTimeout:   DefaultZeroTimeout,
		settlePoll:    DefaultSettlePoll,
		zeroPoll:      DefaultZeroPoll,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.maxVoltage <= 0 {
		return nil, fmt.Errorf("%w: max voltage %v", ErrOutOfRange, p.maxVoltage)
	}
	if p.maxTravel == 0 {
		travel, err := p.MaxTravel(ctx)
		if err != nil {
			return nil, err
		}
		p.maxTravel = travel
	}
	if p.maxTravel <= 0 {
		return nil, fmt.Errorf("%w: max travel %v", ErrOutOfRange, p.maxTravel)
	}

	return p, nil
}

// MaxVoltageSetting returns the voltage used to scale outputs.
func (p *Piezo) MaxVoltageSetting() float64 { return p.maxVoltage }

// MaxTravelSetting returns the travel used to scale positions.
func (p *Piezo) MaxTravelSetting() float64 { return p.maxTravel }

// Setup writes the initial channel configuration: digital outputs, NT mode,
// control mode, zero output voltage, input source, PI constants and
// amplifier settings.
func (p *Piezo) Setup(ctx context.Context, s PiezoSetup) error {
	steps := []func() error{
		func() error { return p.conn().Send(ctx, apt.ModSetDigOutputs, 0, s.DigOutputs, p.ch.Dest) },
		func() error { return p.conn().Send(ctx, apt.PzSetNTMode, 0x01, 0, p.ch.Dest) },
		func() error { return p.SetControlMode(ctx, s.Mode) },
		func() error { return p.SetVoltage(ctx, 0) },
		func() error { return p.write(ctx, apt.PzSetInputVoltsSrc, s.InputSource) },
		func() error { return p.write(ctx, apt.PzSetPIConsts, s.PropConst, s.IntConst) },
		func() error {
			return p.write(ctx, apt.PzSetIOSettings, s.CurrentLimit, s.LPFilter, s.FeedbackInput, s.BNCMode)
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return fmt.Errorf("device: piezo setup of %s: %w", p.ch, err)
		}
	}

	return nil
}

// ControlMode returns the position control mode.
func (p *Piezo) ControlMode(ctx context.Context) (ControlMode, error) {
	rsp, err := p.query(ctx, apt.PzReqPosControlMode, apt.PzGetPosControlMode)
	if err != nil {
		return 0, err
	}

	return ControlMode(rsp.Param2), nil
}

// SetControlMode sets the position control mode.
func (p *Piezo) SetControlMode(ctx context.Context, mode ControlMode) error {
	return p.send(ctx, apt.PzSetPosControlMode, byte(mode))
}

// Voltage returns the output voltage. Meaningful in open-loop mode.
func (p *Piezo) Voltage(ctx context.Context) (float64, error) {
	rsp, err := p.query(ctx, apt.PzReqOutputVolts, apt.PzGetOutputVolts)
	if err != nil {
		return 0, err
	}
	v, err := apt.Field[int16](rsp, 1)
	if err != nil {
		return 0, err
	}

	return float64(v) / FullScale * p.maxVoltage, nil
}

// SetVoltage sets the output voltage. Ignored by the controller in closed-loop mode.
func (p *Piezo) SetVoltage(ctx context.Context, volts float64) error {
	if volts < 0 || volts > p.maxVoltage {
		return fmt.Errorf("%w: %v V not in [0, %v]", ErrOutOfRange, volts, p.maxVoltage)
	}

	return p.write(ctx, apt.PzSetOutputVolts, int16(math.Round(FullScale*volts/p.maxVoltage)))
}

// Position returns the actuator position relative to the zero reference.
// Meaningful in closed-loop mode.
func (p *Piezo) Position(ctx context.Context) (float64, error) {
	rsp, err := p.query(ctx, apt.PzReqOutputPos, apt.PzGetOutputPos)
	if err != nil {
		return 0, err
	}
	v, err := apt.Field[uint16](rsp, 1)
	if err != nil {
		return 0, err
	}

	return float64(v) / FullScale * p.maxTravel, nil
}

// SetPositionOutput commands a position without waiting for it.
// Ignored by the controller in open-loop mode.
func (p *Piezo) SetPositionOutput(ctx context.Context, um float64) error {
	if um < 0 || um > p.maxTravel {
		return fmt.Errorf("%w: %v um not in [0, %v]", ErrOutOfRange, um, p.maxTravel)
	}

	return p.write(ctx, apt.PzSetOutputPos, uint16(math.Round(FullScale*um/p.maxTravel)))
}

// SetPosition commands a position and polls until the measured position is
// within the configured accuracy, or ErrSettleTimeout.
func (p *Piezo) SetPosition(ctx context.Context, um float64) error {
	if err := p.SetPositionOutput(ctx, um); err != nil {
		return err
	}

	deadline := time.Now().Add(p.settleTimeout)
	for {
		pos, err := p.Position(ctx)
		if err != nil {
			return err
		}
		if math.Abs(pos-um) <= 1.01*p.accuracy {
			return nil
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("%w: %s at %.3f um, target %.3f um", ErrSettleTimeout, p.ch, pos, um)
		}
		if err := pool.Sleep(ctx, p.settlePoll); err != nil {
			return err
		}
	}
}

// MoveToCenter moves to half of the maximum travel.
func (p *Piezo) MoveToCenter(ctx context.Context) error {
	return p.SetPosition(ctx, p.maxTravel/2)
}

// Zero applies zero volts, takes the resulting position as the zero
// reference and waits for the controller to finish.
func (p *Piezo) Zero(ctx context.Context) error {
	if err := p.send(ctx, apt.PzSetZero, 0); err != nil {
		return err
	}

	deadline := time.Now().Add(p.zeroTimeout)
	for {
		zeroing, err := p.IsZeroing(ctx)
		if err != nil {
			return err
		}
		if !zeroing {
			return nil
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("%w: %s still zeroing after %v", ErrSettleTimeout, p.ch, p.zeroTimeout)
		}
		if err := pool.Sleep(ctx, p.zeroPoll); err != nil {
			return err
		}
	}
}

// IsZeroing reports whether a zeroing is in progress.
func (p *Piezo) IsZeroing(ctx context.Context) (bool, error) {
	bits, err := p.StatusBits(ctx)
	if err != nil {
		return false, err
	}

	return bits&zeroingBit != 0, nil
}

// StatusBits returns the piezo status flags.
func (p *Piezo) StatusBits(ctx context.Context) (uint32, error) {
	rsp, err := p.query(ctx, apt.PzReqPzStatusBits, apt.PzGetPzStatusBits)
	if err != nil {
		return 0, err
	}

	return apt.Field[uint32](rsp, 1)
}

// MaxTravel queries the actuator's maximum travel in micrometres.
func (p *Piezo) MaxTravel(ctx context.Context) (float64, error) {
	rsp, err := p.query(ctx, apt.PzReqMaxTravel, apt.PzGetMaxTravel)
	if err != nil {
		return 0, err
	}
	v, err := apt.Field[uint16](rsp, 1)
	if err != nil {
		return 0, err
	}

	return float64(v) * TravelStep, nil
}

// MaxOutputVoltage queries the actuator's maximum operating voltage in volts.
func (p *Piezo) MaxOutputVoltage(ctx context.Context) (float64, error) {
	rsp, err := p.query(ctx, apt.PzReqOutputMaxVolts, apt.PzGetOutputMaxVolts)
	if err != nil {
		return 0, err
	}
	v, err := apt.Field[uint16](rsp, 1)
	if err != nil {
		return 0, err
	}

	return float64(v) * VoltageStep, nil
}
