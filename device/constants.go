package device

import (
	"fmt"

	"github.com/ardnew/nxboot/device/hal"
)

// Default identity reported when no ECID-derived identity is configured.
const (
	DefaultVendorID  uint16 = 0x04E8
	DefaultProductID uint16 = 0x1234
)

// Endpoint numbers used by the download interface.
const (
	ControlEndpoint uint8 = 0
	BulkInEndpoint  uint8 = 1
	BulkOutEndpoint uint8 = 2
)

// Endpoint addresses as they appear in descriptors.
const (
	BulkInAddress  uint8 = 0x80 | BulkInEndpoint
	BulkOutAddress uint8 = BulkOutEndpoint
)

// Max packet sizes per negotiated speed.
const (
	ControlMaxPacketHigh = 64
	ControlMaxPacketFull = 8
	BulkMaxPacketHigh    = 512
	BulkMaxPacketFull    = 64
)

// MinDownloadAddr is the lowest address accepted by DownloadAt.
const MinDownloadAddr uint64 = 0x40000000

// ControlMaxPacket returns the EP0 max packet size for speed.
func ControlMaxPacket(speed hal.Speed) int {
	if speed == hal.SpeedFull {
		return ControlMaxPacketFull
	}
	return ControlMaxPacketHigh
}

// BulkMaxPacket returns the bulk endpoint max packet size for speed.
func BulkMaxPacket(speed hal.Speed) int {
	if speed == hal.SpeedFull {
		return BulkMaxPacketFull
	}
	return BulkMaxPacketHigh
}

// EP0State is the control endpoint data stage state.
type EP0State uint8

// Control endpoint states.
const (
	EP0Init EP0State = iota
	EP0GetDescriptor
	EP0GetInterface
	EP0GetConfig
	EP0GetStatus
)

// String returns a human-readable state name.
func (s EP0State) String() string {
	switch s {
	case EP0Init:
		return "Init"
	case EP0GetDescriptor:
		return "GetDescriptor"
	case EP0GetInterface:
		return "GetInterface"
	case EP0GetConfig:
		return "GetConfig"
	case EP0GetStatus:
		return "GetStatus"
	default:
		return fmt.Sprintf("Unknown EP0 State (%d)", s)
	}
}

// Phase is the bulk download phase.
type Phase uint8

// Download phases.
const (
	PhaseHeader  Phase = iota // receiving the 512-byte boot header
	PhasePayload              // receiving payload_size bytes
	PhaseDone
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseHeader:
		return "Header"
	case PhasePayload:
		return "Payload"
	case PhaseDone:
		return "Done"
	default:
		return fmt.Sprintf("Unknown Phase (%d)", p)
	}
}
