package apt

import "fmt"

// MessageID is the 16-bit APT message identifier.
type MessageID uint16

// Message IDs known to the default schema table.
const (
	HWDisconnect         MessageID = 0x0002
	HWReqInfo            MessageID = 0x0005
	HWGetInfo            MessageID = 0x0006
	HWStartUpdateMsgs    MessageID = 0x0011
	HWStopUpdateMsgs     MessageID = 0x0012
	HWNoFlashProgramming MessageID = 0x0018

	RackReqBayUsed MessageID = 0x0060
	RackGetBayUsed MessageID = 0x0061

	ModSetChanEnableState MessageID = 0x0210
	ModReqChanEnableState MessageID = 0x0211
	ModGetChanEnableState MessageID = 0x0212
	ModSetDigOutputs      MessageID = 0x0213
	ModIdentify           MessageID = 0x0223

	MotSetEncCounter   MessageID = 0x0409
	MotReqEncCounter   MessageID = 0x040A
	MotGetEncCounter   MessageID = 0x040B
	MotSetPosCounter   MessageID = 0x0410
	MotReqPosCounter   MessageID = 0x0411
	MotGetPosCounter   MessageID = 0x0412
	MotMoveHome        MessageID = 0x0443
	MotMoveHomed       MessageID = 0x0444
	MotMoveAbsolute    MessageID = 0x0453
	MotMoveCompleted   MessageID = 0x0464
	MotMoveStop        MessageID = 0x0465
	MotMoveStopped     MessageID = 0x0466
	MotReqStatusUpdate MessageID = 0x0480
	MotGetStatusUpdate MessageID = 0x0481

	PzSetNTMode         MessageID = 0x0603
	PzSetPosControlMode MessageID = 0x0640
	PzReqPosControlMode MessageID = 0x0641
	PzGetPosControlMode MessageID = 0x0642
	PzSetOutputVolts    MessageID = 0x0643
	PzReqOutputVolts    MessageID = 0x0644
	PzGetOutputVolts    MessageID = 0x0645
	PzSetOutputPos      MessageID = 0x0646
	PzReqOutputPos      MessageID = 0x0647
	PzGetOutputPos      MessageID = 0x0648
	PzReqMaxTravel      MessageID = 0x0650
	PzGetMaxTravel      MessageID = 0x0651
	PzSetInputVoltsSrc  MessageID = 0x0652
	PzReqInputVoltsSrc  MessageID = 0x0653
	PzGetInputVoltsSrc  MessageID = 0x0654
	PzSetPIConsts       MessageID = 0x0655
	PzReqPIConsts       MessageID = 0x0656
	PzGetPIConsts       MessageID = 0x0657
	PzSetZero           MessageID = 0x0658
	PzReqPzStatusBits   MessageID = 0x065B
	PzGetPzStatusBits   MessageID = 0x065C
	PzSetIOSettings     MessageID = 0x0670
	PzReqIOSettings     MessageID = 0x0671
	PzGetIOSettings     MessageID = 0x0672
	PzSetOutputMaxVolts MessageID = 0x0680
	PzReqOutputMaxVolts MessageID = 0x0681
	PzGetOutputMaxVolts MessageID = 0x0682
)

var messageNames = map[MessageID]string{
	HWDisconnect:         "HW_DISCONNECT",
	HWReqInfo:            "HW_REQ_INFO",
	HWGetInfo:            "HW_GET_INFO",
	HWStartUpdateMsgs:    "HW_START_UPDATEMSGS",
	HWStopUpdateMsgs:     "HW_STOP_UPDATEMSGS",
	HWNoFlashProgramming: "HW_NO_FLASH_PROGRAMMING",

	RackReqBayUsed: "RACK_REQ_BAYUSED",
	RackGetBayUsed: "RACK_GET_BAYUSED",

	ModSetChanEnableState: "MOD_SET_CHANENABLESTATE",
	ModReqChanEnableState: "MOD_REQ_CHANENABLESTATE",
	ModGetChanEnableState: "MOD_GET_CHANENABLESTATE",
	ModSetDigOutputs:      "MOD_SET_DIGOUTPUTS",
	ModIdentify:           "MOD_IDENTIFY",

	MotSetEncCounter:   "MOT_SET_ENCCOUNTER",
	MotReqEncCounter:   "MOT_REQ_ENCCOUNTER",
	MotGetEncCounter:   "MOT_GET_ENCCOUNTER",
	MotSetPosCounter:   "MOT_SET_POSCOUNTER",
	MotReqPosCounter:   "MOT_REQ_POSCOUNTER",
	MotGetPosCounter:   "MOT_GET_POSCOUNTER",
	MotMoveHome:        "MOT_MOVE_HOME",
	MotMoveHomed:       "MOT_MOVE_HOMED",
	MotMoveAbsolute:    "MOT_MOVE_ABSOLUTE",
	MotMoveCompleted:   "MOT_MOVE_COMPLETED",
	MotMoveStop:        "MOT_MOVE_STOP",
	MotMoveStopped:     "MOT_MOVE_STOPPED",
	MotReqStatusUpdate: "MOT_REQ_STATUSUPDATE",
	MotGetStatusUpdate: "MOT_GET_STATUSUPDATE",

	PzSetNTMode:         "PZ_SET_NTMODE",
	PzSetPosControlMode: "PZ_SET_POSCONTROLMODE",
	PzReqPosControlMode: "PZ_REQ_POSCONTROLMODE",
	PzGetPosControlMode: "PZ_GET_POSCONTROLMODE",
	PzSetOutputVolts:    "PZ_SET_OUTPUTVOLTS",
	PzReqOutputVolts:    "PZ_REQ_OUTPUTVOLTS",
	PzGetOutputVolts:    "PZ_GET_OUTPUTVOLTS",
	PzSetOutputPos:      "PZ_SET_OUTPUTPOS",
	PzReqOutputPos:      "PZ_REQ_OUTPUTPOS",
	PzGetOutputPos:      "PZ_GET_OUTPUTPOS",
	PzReqMaxTravel:      "PZ_REQ_MAXTRAVEL",
	PzGetMaxTravel:      "PZ_GET_MAXTRAVEL",
	PzSetInputVoltsSrc:  "PZ_SET_INPUTVOLTSSRC",
	PzReqInputVoltsSrc:  "PZ_REQ_INPUTVOLTSSRC",
	PzGetInputVoltsSrc:  "PZ_GET_INPUTVOLTSSRC",
	PzSetPIConsts:       "PZ_SET_PICONSTS",
	PzReqPIConsts:       "PZ_REQ_PICONSTS",
	PzGetPIConsts:       "PZ_GET_PICONSTS",
	PzSetZero:           "PZ_SET_ZERO",
	PzReqPzStatusBits:   "PZ_REQ_PZSTATUSBITS",
	PzGetPzStatusBits:   "PZ_GET_PZSTATUSBITS",
	PzSetIOSettings:     "PZ_SET_IOSETTINGS",
	PzReqIOSettings:     "PZ_REQ_IOSETTINGS",
	PzGetIOSettings:     "PZ_GET_IOSETTINGS",
	PzSetOutputMaxVolts: "PZ_SET_OUTPUTMAXVOLTS",
	PzReqOutputMaxVolts: "PZ_REQ_OUTPUTMAXVOLTS",
	PzGetOutputMaxVolts: "PZ_GET_OUTPUTMAXVOLTS",
}

// Name returns the protocol name of the ID, or "" if it is not a known ID.
func (id MessageID) Name() string {
	return messageNames[id]
}

// String returns e.g. "HW_GET_INFO(0x0006)", or "0x1234" for unknown IDs.
func (id MessageID) String() string {
	if name, ok := messageNames[id]; ok {
		return fmt.Sprintf("%s(0x%04X)", name, uint16(id))
	}

	return fmt.Sprintf("0x%04X", uint16(id))
}

// Address is a 7-bit APT module address.
type Address uint8

// Well-known addresses.
const (
	HostAddress Address = 0x01 // host controller (PC)
	RackAddress Address = 0x11 // rack controller motherboard
	Bay0Address Address = 0x21 // first bay of a rack; bay n is Bay0Address+n
	GenericUSB  Address = 0x50 // stand-alone USB unit
	MaxAddress  Address = 0x7F
)

// MaxBayCount is the largest number of bays a rack controller carries.
const MaxBayCount = 10

// BayAddress returns the destination address of rack bay slot (0-based).
func BayAddress(slot int) Address {
	return Bay0Address + Address(slot)
}

// Valid reports whether a fits in the 7 address bits.
func (a Address) Valid() bool {
	return a <= MaxAddress
}

func (a Address) String() string {
	return fmt.Sprintf("0x%02X", uint8(a))
}
