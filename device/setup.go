package device

import (
	"encoding/binary"
	"fmt"

	"github.com/ardnew/nxboot/pkg"
)

// Standard USB request codes (USB 2.0 Spec Table 9-4).
const (
	RequestGetStatus        = 0x00
	RequestClearFeature     = 0x01
	RequestSetFeature       = 0x03
	RequestSetAddress       = 0x05
	RequestGetDescriptor    = 0x06
	RequestSetDescriptor    = 0x07
	RequestGetConfiguration = 0x08
	RequestSetConfiguration = 0x09
	RequestGetInterface     = 0x0A
	RequestSetInterface     = 0x0B
	RequestSynchFrame       = 0x0C
)

// Request type masks (USB 2.0 Spec Table 9-2).
const (
	RequestTypeDirectionMask = 0x80
	RequestTypeTypeMask      = 0x60
	RequestTypeRecipientMask = 0x1F
)

// Request type field values.
const (
	RequestDirectionHostToDevice = 0x00
	RequestDirectionDeviceToHost = 0x80

	RequestTypeStandard = 0x00
	RequestTypeClass    = 0x20
	RequestTypeVendor   = 0x40

	RequestRecipientDevice    = 0x00
	RequestRecipientInterface = 0x01
	RequestRecipientEndpoint  = 0x02
)

// SetupPacket represents an 8-byte USB SETUP packet.
type SetupPacket struct {
	RequestType uint8  // bmRequestType: direction, type, recipient
	Request     uint8  // bRequest: specific request code
	Value       uint16 // wValue: request-specific parameter
	Index       uint16 // wIndex: request-specific index
	Length      uint16 // wLength: number of bytes in the data stage
}

// SetupPacketSize is the size of a USB SETUP packet in bytes.
const SetupPacketSize = 8

// ParseSetupPacket decodes an 8-byte setup packet into out.
func ParseSetupPacket(data []byte, out *SetupPacket) error {
	if len(data) < SetupPacketSize {
		return pkg.ErrSetupPacketTooShort
	}
	out.RequestType = data[0]
	out.Request = data[1]
	out.Value = binary.LittleEndian.Uint16(data[2:4])
	out.Index = binary.LittleEndian.Uint16(data[4:6])
	out.Length = binary.LittleEndian.Uint16(data[6:8])
	return nil
}

// MarshalTo serializes the setup packet to buf.
// Returns the number of bytes written (always 8 if buf is large enough).
func (s *SetupPacket) MarshalTo(buf []byte) int {
	if len(buf) < SetupPacketSize {
		return 0
	}
	buf[0] = s.RequestType
	buf[1] = s.Request
	binary.LittleEndian.PutUint16(buf[2:4], s.Value)
	binary.LittleEndian.PutUint16(buf[4:6], s.Index)
	binary.LittleEndian.PutUint16(buf[6:8], s.Length)
	return SetupPacketSize
}

// IsDeviceToHost reports whether the data stage flows toward the host.
func (s *SetupPacket) IsDeviceToHost() bool {
	return s.RequestType&RequestTypeDirectionMask == RequestDirectionDeviceToHost
}

// IsStandard reports whether this is a standard (chapter 9) request.
func (s *SetupPacket) IsStandard() bool {
	return s.RequestType&RequestTypeTypeMask == RequestTypeStandard
}

// DescriptorType returns the descriptor type from the wValue high byte.
func (s *SetupPacket) DescriptorType() uint8 {
	return uint8(s.Value >> 8)
}

// String returns a human-readable representation of the setup packet.
func (s *SetupPacket) String() string {
	dir := "OUT"
	if s.IsDeviceToHost() {
		dir = "IN"
	}
	return fmt.Sprintf("SETUP[%s type=0x%02X] Request=0x%02X Value=0x%04X Index=0x%04X Length=%d",
		dir, s.RequestType, s.Request, s.Value, s.Index, s.Length)
}

// GetDescriptorRequest builds a GET_DESCRIPTOR setup for descriptor type dt.
func GetDescriptorRequest(dt uint8, length uint16) SetupPacket {
	return SetupPacket{
		RequestType: RequestDirectionDeviceToHost | RequestTypeStandard | RequestRecipientDevice,
		Request:     RequestGetDescriptor,
		Value:       uint16(dt) << 8,
		Length:      length,
	}
}

// SetAddressRequest builds a SET_ADDRESS setup.
func SetAddressRequest(addr uint8) SetupPacket {
	return SetupPacket{Request: RequestSetAddress, Value: uint16(addr)}
}

// SetConfigurationRequest builds a SET_CONFIGURATION setup.
func SetConfigurationRequest(value uint8) SetupPacket {
	return SetupPacket{Request: RequestSetConfiguration, Value: uint16(value)}
}
