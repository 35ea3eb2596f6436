package socketcan

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// Identifier flag bits and masks, matching the kernel definitions in
// <linux/can.h>.
const (
	FlagExtended uint32 = 0x80000000 // EFF: frame uses the 29-bit format
	FlagRemote   uint32 = 0x40000000 // RTR: remote transmission request
	FlagError    uint32 = 0x20000000 // ERR: error message frame

	MaskStandard uint32 = 0x000007FF // identifier bits of a standard frame
	MaskExtended uint32 = 0x1FFFFFFF // identifier bits of an extended frame
	MaskError    uint32 = 0x1FFFFFFF // error class bits of an error frame
)

// FrameSize is the wire size in bytes of a classical CAN frame
// (struct can_frame).
const FrameSize = 16

// Construction errors.
var (
	ErrTooMuchData = errors.New("socketcan: more than 8 bytes of data")
	ErrIDTooLarge  = errors.New("socketcan: identifier exceeds 29 bits")
)

// Frame is a classical CAN (2.0A/2.0B) frame held in its kernel
// representation: a 32-bit identifier word carrying the EFF/RTR/ERR flag
// bits, a data length code and an 8-byte payload buffer.
//
// Packing the flags into the identifier word mirrors struct can_frame, so
// moving a Frame to or from a raw socket is a fixed 16-byte copy with no
// field translation. Bytes of the payload buffer beyond Len are unspecified
// and never exposed by Data. Not implemented: CAN FD specific fields.
type Frame struct {
	id   uint32
	dlc  uint8
	data [8]byte
}

// New builds a frame from a numeric identifier and a payload of up to 8
// bytes. Identifiers above the standard 11-bit range are promoted to the
// extended format automatically. rtr marks the frame as a remote
// transmission request, errf as an error message frame.
func New(id uint32, data []byte, rtr, errf bool) (Frame, error) {
	if len(data) > 8 {
		return Frame{}, ErrTooMuchData
	}
	if id > MaskExtended {
		return Frame{}, ErrIDTooLarge
	}
	if id > MaskStandard {
		id |= FlagExtended
	}
	if rtr {
		id |= FlagRemote
	}
	if errf {
		id |= FlagError
	}
	f := Frame{id: id, dlc: uint8(len(data))}
	copy(f.data[:], data)
	return f, nil
}

// NewStandard builds a data frame with a standard (11-bit) identifier.
func NewStandard(id uint32, data []byte) (Frame, error) {
	if id > MaskStandard {
		return Frame{}, ErrIDTooLarge
	}
	return New(id, data, false, false)
}

// NewExtended builds a data frame with an extended (29-bit) identifier,
// regardless of whether the identifier would fit the standard range.
func NewExtended(id uint32, data []byte) (Frame, error) {
	f, err := New(id, data, false, false)
	if err != nil {
		return Frame{}, err
	}
	f.id |= FlagExtended
	return f, nil
}

// ID returns the identifier with the flag bits masked off, using the
// extended mask when the extended flag is set.
func (f Frame) ID() uint32 {
	if f.IsExtended() {
		return f.id & MaskExtended
	}
	return f.id & MaskStandard
}

// Data returns exactly Len bytes of payload.
func (f Frame) Data() []byte {
	return f.data[:f.dlc]
}

// Len returns the data length code.
func (f Frame) Len() uint8 { return f.dlc }

// IsExtended reports whether the frame uses a 29-bit identifier.
func (f Frame) IsExtended() bool { return f.id&FlagExtended != 0 }

// IsRemote reports whether the frame is a remote transmission request.
func (f Frame) IsRemote() bool { return f.id&FlagRemote != 0 }

// IsError reports whether the frame is an error message frame.
func (f Frame) IsError() bool { return f.id&FlagError != 0 }

// ErrorClass returns the raw error class bits of the identifier word.
// Meaningful only when IsError is true; decode with DecodeBusError.
func (f Frame) ErrorClass() uint32 { return f.id & MaskError }

// SetRemote marks the frame as a remote transmission request for dlc bytes.
// The payload buffer is left untouched: a remote frame carries no data, only
// the requested length.
func (f *Frame) SetRemote(dlc uint8) error {
	if dlc > 8 {
		return ErrTooMuchData
	}
	f.id |= FlagRemote
	f.dlc = dlc
	return nil
}

// ControllerErrorData returns the controller-specific bytes (5..7) of an
// error frame carrying a full 8-byte payload, or nil when not applicable.
func (f Frame) ControllerErrorData() []byte {
	if !f.IsError() || f.dlc != 8 {
		return nil
	}
	return f.data[5:8]
}

// MarshalBinary encodes the frame into the 16-byte struct can_frame wire
// layout.
//
// Layout (little-endian):
//
//	0..3  identifier word (identifier plus EFF/RTR/ERR flags)
//	4     data length code
//	5..7  padding and reserved bytes, zeroed
//	8..15 data bytes
func (f Frame) MarshalBinary() ([]byte, error) {
	buf := make([]byte, FrameSize)
	binary.LittleEndian.PutUint32(buf[0:4], f.id)
	buf[4] = f.dlc
	copy(buf[8:16], f.data[:])
	return buf, nil
}

// UnmarshalBinary decodes a frame from the struct can_frame layout. Apart
// from the size check the bytes are reinterpreted as-is: frames coming off a
// raw socket are taken the way the kernel handed them over.
func (f *Frame) UnmarshalBinary(data []byte) error {
	if len(data) < FrameSize {
		return fmt.Errorf("socketcan: need %d bytes, got %d", FrameSize, len(data))
	}
	f.id = binary.LittleEndian.Uint32(data[0:4])
	f.dlc = data[4]
	if f.dlc > 8 {
		// classical CAN never reports more; keep Data in range
		f.dlc = 8
	}
	copy(f.data[:], data[8:16])
	return nil
}

// String renders the frame in candump style, e.g. "123 [2] DE AD".
func (f Frame) String() string {
	var b strings.Builder
	if f.IsExtended() {
		fmt.Fprintf(&b, "%08X", f.ID())
	} else {
		fmt.Fprintf(&b, "%03X", f.ID())
	}
	fmt.Fprintf(&b, " [%d]", f.dlc)
	if f.IsRemote() {
		b.WriteString(" RTR")
		return b.String()
	}
	for _, c := range f.Data() {
		fmt.Fprintf(&b, " %02X", c)
	}
	return b.String()
}
