package device

import (
	"fmt"
	"strconv"

	"github.com/arloliu/go-apt/apt"
)

// HardwareInfo is the decoded HW_GET_INFO response.
type HardwareInfo struct {
	SerialNumber    uint32
	Model           string
	Type            uint16
	Firmware        [4]byte // minor, interim, major, reserved
	Notes           string
	HardwareVersion uint16
	ModState        uint16
	NumChannels     uint16
}

// Serial returns the serial number in its 8-digit decimal form.
func (h HardwareInfo) Serial() string {
	return strconv.FormatUint(uint64(h.SerialNumber), 10)
}

// FirmwareVersion returns the firmware version as "major.interim.minor".
func (h HardwareInfo) FirmwareVersion() string {
	return fmt.Sprintf("%d.%d.%d", h.Firmware[2], h.Firmware[1], h.Firmware[0])
}

// decodeHardwareInfo converts a HW_GET_INFO message. Text fields arrive
// with their NUL padding already trimmed by the codec.
func decodeHardwareInfo(msg *apt.Message) (HardwareInfo, error) {
	var (
		info HardwareInfo
		err  error
	)

	if info.SerialNumber, err = apt.Field[uint32](msg, 0); err != nil {
		return info, err
	}
	if info.Model, err = apt.Field[string](msg, 1); err != nil {
		return info, err
	}
	if info.Type, err = apt.Field[uint16](msg, 2); err != nil {
		return info, err
	}
	fw, err := apt.Field[[]byte](msg, 3)
	if err != nil {
		return info, err
	}
	copy(info.Firmware[:], fw)
	if info.Notes, err = apt.Field[string](msg, 4); err != nil {
		return info, err
	}
	if info.HardwareVersion, err = apt.Field[uint16](msg, 5); err != nil {
		return info, err
	}
	if info.ModState, err = apt.Field[uint16](msg, 6); err != nil {
		return info, err
	}
	if info.NumChannels, err = apt.Field[uint16](msg, 7); err != nil {
		return info, err
	}

	return info, nil
}

// Channel addresses one logical channel of a controller.
type Channel struct {
	// Index is the 0-based logical channel index.
	Index int
	// ChannelID is the channel identifier carried in requests.
	ChannelID byte
	// Dest is the destination address of the module driving the channel.
	Dest apt.Address
}

func (c Channel) String() string {
	return fmt.Sprintf("ch%d(id=0x%02X dest=%s)", c.Index, c.ChannelID, c.Dest)
}
