package socketcan

import (
	"errors"
	"fmt"
)

// Error classes reported in the identifier word of an error frame. The
// kernel sets exactly one class bit per frame, which is why decoding
// dispatches on the exact value instead of testing individual bits.
const (
	ErrClassTxTimeout       uint32 = 0x00000001
	ErrClassLostArbitration uint32 = 0x00000002
	ErrClassController      uint32 = 0x00000004
	ErrClassProtocol        uint32 = 0x00000008
	ErrClassTransceiver     uint32 = 0x00000010
	ErrClassNoAck           uint32 = 0x00000020
	ErrClassBusOff          uint32 = 0x00000040
	ErrClassBusError        uint32 = 0x00000080
	ErrClassRestarted       uint32 = 0x00000100
)

// Decoding errors. Malformed error frames are reported as such rather than
// coerced to a default variant, preserving what actually came off the bus.
var (
	ErrNotAnError               = errors.New("socketcan: frame is not an error frame")
	ErrInvalidControllerProblem = errors.New("socketcan: invalid controller problem code")
	ErrInvalidViolationType     = errors.New("socketcan: invalid protocol violation type")
	ErrInvalidLocation          = errors.New("socketcan: invalid protocol violation location")
	ErrInvalidTransceiverError  = errors.New("socketcan: invalid transceiver error code")
)

// UnknownErrorTypeError reports an error frame whose class bits match none
// of the known error classes.
type UnknownErrorTypeError struct {
	Class uint32
}

func (e UnknownErrorTypeError) Error() string {
	return fmt.Sprintf("socketcan: unknown error class %#x", e.Class)
}

// NotEnoughDataError reports an error frame whose payload is shorter than
// the auxiliary byte its class requires.
type NotEnoughDataError struct {
	Index uint8
}

func (e NotEnoughDataError) Error() string {
	return fmt.Sprintf("socketcan: error frame payload too short, need byte %d", e.Index)
}

// BusErrorKind classifies a decoded bus error.
type BusErrorKind uint8

const (
	// KindTransmitTimeout is a TX timeout by the netdevice driver.
	KindTransmitTimeout BusErrorKind = iota
	// KindLostArbitration means arbitration was lost; see
	// BusError.ArbitrationBit.
	KindLostArbitration
	// KindControllerProblem is a controller status change; see
	// BusError.Controller.
	KindControllerProblem
	// KindProtocolViolation is a protocol violation; see BusError.Violation
	// and BusError.Location.
	KindProtocolViolation
	// KindTransceiverError is a transceiver fault; see BusError.Transceiver.
	KindTransceiverError
	// KindNoAck means no ACK was received for the transmitted frame.
	KindNoAck
	// KindBusOff means the controller went bus-off.
	KindBusOff
	// KindBusError is a generic bus error.
	KindBusError
	// KindRestarted means the controller restarted after bus-off.
	KindRestarted
)

func (k BusErrorKind) String() string {
	switch k {
	case KindTransmitTimeout:
		return "transmit timeout"
	case KindLostArbitration:
		return "lost arbitration"
	case KindControllerProblem:
		return "controller problem"
	case KindProtocolViolation:
		return "protocol violation"
	case KindTransceiverError:
		return "transceiver error"
	case KindNoAck:
		return "no ack"
	case KindBusOff:
		return "bus off"
	case KindBusError:
		return "bus error"
	case KindRestarted:
		return "restarted"
	}
	return "unknown"
}

// ControllerProblem is the sub-reason of a controller error, taken from
// byte 1 of the payload.
type ControllerProblem uint8

const (
	ControllerUnspecified      ControllerProblem = 0x00
	ControllerRxBufferOverflow ControllerProblem = 0x01
	ControllerTxBufferOverflow ControllerProblem = 0x02
	ControllerRxWarning        ControllerProblem = 0x04
	ControllerTxWarning        ControllerProblem = 0x08
	ControllerRxPassive        ControllerProblem = 0x10
	ControllerTxPassive        ControllerProblem = 0x20
	ControllerActive           ControllerProblem = 0x40
)

func (c ControllerProblem) String() string {
	switch c {
	case ControllerUnspecified:
		return "unspecified"
	case ControllerRxBufferOverflow:
		return "rx buffer overflow"
	case ControllerTxBufferOverflow:
		return "tx buffer overflow"
	case ControllerRxWarning:
		return "rx error warning level reached"
	case ControllerTxWarning:
		return "tx error warning level reached"
	case ControllerRxPassive:
		return "rx error passive"
	case ControllerTxPassive:
		return "tx error passive"
	case ControllerActive:
		return "recovered to error active"
	}
	return "invalid"
}

func decodeControllerProblem(b byte) (ControllerProblem, error) {
	switch c := ControllerProblem(b); c {
	case ControllerUnspecified, ControllerRxBufferOverflow,
		ControllerTxBufferOverflow, ControllerRxWarning, ControllerTxWarning,
		ControllerRxPassive, ControllerTxPassive, ControllerActive:
		return c, nil
	}
	return 0, ErrInvalidControllerProblem
}

// ViolationType is the kind of a protocol violation, taken from byte 2 of
// the payload.
type ViolationType uint8

const (
	ViolationUnspecified       ViolationType = 0x00
	ViolationSingleBit         ViolationType = 0x01
	ViolationFrameFormat       ViolationType = 0x02
	ViolationBitStuffing       ViolationType = 0x04
	ViolationDominantBit       ViolationType = 0x08
	ViolationRecessiveBit      ViolationType = 0x10
	ViolationBusOverload       ViolationType = 0x20
	ViolationActive            ViolationType = 0x40
	ViolationTransmissionError ViolationType = 0x80
)

func (v ViolationType) String() string {
	switch v {
	case ViolationUnspecified:
		return "unspecified"
	case ViolationSingleBit:
		return "single bit error"
	case ViolationFrameFormat:
		return "frame format error"
	case ViolationBitStuffing:
		return "bit stuffing error"
	case ViolationDominantBit:
		return "unable to send dominant bit"
	case ViolationRecessiveBit:
		return "unable to send recessive bit"
	case ViolationBusOverload:
		return "bus overload"
	case ViolationActive:
		return "bus active again"
	case ViolationTransmissionError:
		return "transmission error"
	}
	return "invalid"
}

func decodeViolationType(b byte) (ViolationType, error) {
	switch v := ViolationType(b); v {
	case ViolationUnspecified, ViolationSingleBit, ViolationFrameFormat,
		ViolationBitStuffing, ViolationDominantBit, ViolationRecessiveBit,
		ViolationBusOverload, ViolationActive, ViolationTransmissionError:
		return v, nil
	}
	return 0, ErrInvalidViolationType
}

// Location names the position inside a frame where a protocol violation
// occurred, taken from byte 3 of the payload.
type Location uint8

const (
	LocationUnspecified    Location = 0x00
	LocationID2821         Location = 0x02 // ID bits 28-21 (SFF: 10-3)
	LocationStartOfFrame   Location = 0x03
	LocationSubstituteRTR  Location = 0x04 // substitute RTR (SFF: RTR)
	LocationIDExtension    Location = 0x05
	LocationID2018         Location = 0x06 // ID bits 20-18 (SFF: 2-0)
	LocationID1713         Location = 0x07
	LocationCRCSequence    Location = 0x08
	LocationReserved0      Location = 0x09
	LocationDataSection    Location = 0x0A
	LocationDataLengthCode Location = 0x0B
	LocationRTR            Location = 0x0C
	LocationReserved1      Location = 0x0D
	LocationID0400         Location = 0x0E
	LocationID1205         Location = 0x0F
	LocationIntermission   Location = 0x12
	LocationCRCDelimiter   Location = 0x18
	LocationAckSlot        Location = 0x19
	LocationEndOfFrame     Location = 0x1A
	LocationAckDelimiter   Location = 0x1B
)

func (l Location) String() string {
	switch l {
	case LocationUnspecified:
		return "unspecified"
	case LocationStartOfFrame:
		return "start of frame"
	case LocationID2821:
		return "ID bits 28-21"
	case LocationID2018:
		return "ID bits 20-18"
	case LocationSubstituteRTR:
		return "substitute RTR"
	case LocationIDExtension:
		return "identifier extension"
	case LocationID1713:
		return "ID bits 17-13"
	case LocationID1205:
		return "ID bits 12-5"
	case LocationID0400:
		return "ID bits 4-0"
	case LocationRTR:
		return "RTR bit"
	case LocationReserved1:
		return "reserved bit 1"
	case LocationReserved0:
		return "reserved bit 0"
	case LocationDataLengthCode:
		return "data length code"
	case LocationDataSection:
		return "data section"
	case LocationCRCSequence:
		return "CRC sequence"
	case LocationCRCDelimiter:
		return "CRC delimiter"
	case LocationAckSlot:
		return "ACK slot"
	case LocationAckDelimiter:
		return "ACK delimiter"
	case LocationEndOfFrame:
		return "end of frame"
	case LocationIntermission:
		return "intermission"
	}
	return "invalid"
}

func decodeLocation(b byte) (Location, error) {
	switch l := Location(b); l {
	case LocationUnspecified, LocationStartOfFrame, LocationID2821,
		LocationID2018, LocationSubstituteRTR, LocationIDExtension,
		LocationID1713, LocationID1205, LocationID0400, LocationRTR,
		LocationReserved1, LocationReserved0, LocationDataLengthCode,
		LocationDataSection, LocationCRCSequence, LocationCRCDelimiter,
		LocationAckSlot, LocationAckDelimiter, LocationEndOfFrame,
		LocationIntermission:
		return l, nil
	}
	return 0, ErrInvalidLocation
}

// Transceiver is the sub-reason of a transceiver fault, taken from byte 4 of
// the payload.
type Transceiver uint8

const (
	TransceiverUnspecified          Transceiver = 0x00
	TransceiverCanHighNoWire        Transceiver = 0x04
	TransceiverCanHighShortToBat    Transceiver = 0x05
	TransceiverCanHighShortToVcc    Transceiver = 0x06
	TransceiverCanHighShortToGnd    Transceiver = 0x07
	TransceiverCanLowNoWire         Transceiver = 0x40
	TransceiverCanLowShortToBat     Transceiver = 0x50
	TransceiverCanLowShortToVcc     Transceiver = 0x60
	TransceiverCanLowShortToGnd     Transceiver = 0x70
	TransceiverCanLowShortToCanHigh Transceiver = 0x80
)

func (t Transceiver) String() string {
	switch t {
	case TransceiverUnspecified:
		return "unspecified"
	case TransceiverCanHighNoWire:
		return "CAN high no wire"
	case TransceiverCanHighShortToBat:
		return "CAN high short to battery"
	case TransceiverCanHighShortToVcc:
		return "CAN high short to VCC"
	case TransceiverCanHighShortToGnd:
		return "CAN high short to ground"
	case TransceiverCanLowNoWire:
		return "CAN low no wire"
	case TransceiverCanLowShortToBat:
		return "CAN low short to battery"
	case TransceiverCanLowShortToVcc:
		return "CAN low short to VCC"
	case TransceiverCanLowShortToGnd:
		return "CAN low short to ground"
	case TransceiverCanLowShortToCanHigh:
		return "CAN low short to CAN high"
	}
	return "invalid"
}

func decodeTransceiver(b byte) (Transceiver, error) {
	switch t := Transceiver(b); t {
	case TransceiverUnspecified, TransceiverCanHighNoWire,
		TransceiverCanHighShortToBat, TransceiverCanHighShortToVcc,
		TransceiverCanHighShortToGnd, TransceiverCanLowNoWire,
		TransceiverCanLowShortToBat, TransceiverCanLowShortToVcc,
		TransceiverCanLowShortToGnd, TransceiverCanLowShortToCanHigh:
		return t, nil
	}
	return 0, ErrInvalidTransceiverError
}

// BusError is the decoded interpretation of an error frame. Only the fields
// relevant to Kind carry meaning.
type BusError struct {
	Kind BusErrorKind

	// ArbitrationBit is the bit at which arbitration was lost, 0 if
	// unspecified (KindLostArbitration).
	ArbitrationBit uint8

	// Controller is the sub-reason of a KindControllerProblem.
	Controller ControllerProblem

	// Violation and Location describe a KindProtocolViolation.
	Violation ViolationType
	Location  Location

	// Transceiver is the sub-reason of a KindTransceiverError.
	Transceiver Transceiver
}

// Error implements the error interface with a human-readable summary.
func (e BusError) Error() string {
	switch e.Kind {
	case KindLostArbitration:
		return fmt.Sprintf("socketcan: lost arbitration at bit %d", e.ArbitrationBit)
	case KindControllerProblem:
		return fmt.Sprintf("socketcan: controller problem: %s", e.Controller)
	case KindProtocolViolation:
		return fmt.Sprintf("socketcan: protocol violation: %s at %s", e.Violation, e.Location)
	case KindTransceiverError:
		return fmt.Sprintf("socketcan: transceiver error: %s", e.Transceiver)
	}
	return "socketcan: " + e.Kind.String()
}

// payloadByte fetches one auxiliary byte of an error frame payload.
func payloadByte(f Frame, idx uint8) (byte, error) {
	d := f.Data()
	if int(idx) >= len(d) {
		return 0, NotEnoughDataError{Index: idx}
	}
	return d[idx], nil
}

// DecodeBusError interprets an error frame as a BusError. SocketCAN signals
// bus faults through frames with the error flag set: the class lives in the
// identifier bits and class-specific detail in the payload. Frames without
// the error flag fail with ErrNotAnError.
func DecodeBusError(f Frame) (BusError, error) {
	if !f.IsError() {
		return BusError{}, ErrNotAnError
	}
	switch class := f.ErrorClass(); class {
	case ErrClassTxTimeout:
		return BusError{Kind: KindTransmitTimeout}, nil
	case ErrClassLostArbitration:
		bit, err := payloadByte(f, 0)
		if err != nil {
			return BusError{}, err
		}
		return BusError{Kind: KindLostArbitration, ArbitrationBit: bit}, nil
	case ErrClassController:
		b, err := payloadByte(f, 1)
		if err != nil {
			return BusError{}, err
		}
		sub, err := decodeControllerProblem(b)
		if err != nil {
			return BusError{}, err
		}
		return BusError{Kind: KindControllerProblem, Controller: sub}, nil
	case ErrClassProtocol:
		vb, err := payloadByte(f, 2)
		if err != nil {
			return BusError{}, err
		}
		vtype, err := decodeViolationType(vb)
		if err != nil {
			return BusError{}, err
		}
		lb, err := payloadByte(f, 3)
		if err != nil {
			return BusError{}, err
		}
		loc, err := decodeLocation(lb)
		if err != nil {
			return BusError{}, err
		}
		return BusError{Kind: KindProtocolViolation, Violation: vtype, Location: loc}, nil
	case ErrClassTransceiver:
		b, err := payloadByte(f, 4)
		if err != nil {
			return BusError{}, err
		}
		sub, err := decodeTransceiver(b)
		if err != nil {
			return BusError{}, err
		}
		return BusError{Kind: KindTransceiverError, Transceiver: sub}, nil
	case ErrClassNoAck:
		return BusError{Kind: KindNoAck}, nil
	case ErrClassBusOff:
		return BusError{Kind: KindBusOff}, nil
	case ErrClassBusError:
		return BusError{Kind: KindBusError}, nil
	case ErrClassRestarted:
		return BusError{Kind: KindRestarted}, nil
	default:
		return BusError{}, UnknownErrorTypeError{Class: class}
	}
}

// DecodeError interprets the frame as a bus error report. See DecodeBusError.
func (f Frame) DecodeError() (BusError, error) {
	return DecodeBusError(f)
}
