package hal

import (
	"context"
	"fmt"
)

// Speed represents the USB connection speed.
type Speed uint8

// USB speed constants (USB 2.0 Specification).
const (
	SpeedUnknown Speed = iota // Not connected or unknown
	SpeedLow                  // Low Speed (1.5 Mbit/s)
	SpeedFull                 // Full Speed (12 Mbit/s)
	SpeedHigh                 // High Speed (480 Mbit/s)
)

// String returns a human-readable speed name.
func (s Speed) String() string {
	switch s {
	case SpeedLow:
		return "Low Speed"
	case SpeedFull:
		return "Full Speed"
	case SpeedHigh:
		return "High Speed"
	default:
		return "Unknown"
	}
}

// EndpointIn is the direction bit of an IN endpoint address.
const EndpointIn = 0x80

// DeviceInfo identifies an opened device for logging.
type DeviceInfo struct {
	VendorID  uint16
	ProductID uint16
	Bus       int
	Address   int
	Speed     Speed
	Name      string // vendor/product name when known
}

// String returns "bus:addr vid:pid name".
func (d DeviceInfo) String() string {
	s := fmt.Sprintf("%03d:%03d %04x:%04x", d.Bus, d.Address, d.VendorID, d.ProductID)
	if d.Name != "" {
		s += " " + d.Name
	}
	return s
}

// Transport locates and opens devices on the host.
type Transport interface {
	// Open returns the first device matching vid and pid. It returns an
	// error wrapping pkg.ErrDeviceNotFound when nothing matches.
	Open(ctx context.Context, vid, pid uint16) (Device, error)

	// Close releases transport-wide resources.
	Close() error
}

// Device is an opened USB device.
type Device interface {
	// Info describes the device.
	Info() DeviceInfo

	// ClaimInterface claims exclusive access to an interface, detaching a
	// kernel driver if one is bound.
	ClaimInterface(iface uint8) error

	// ReleaseInterface releases a claimed interface.
	ReleaseInterface(iface uint8) error

	// BulkTransfer performs one bulk transfer on endpoint. OUT endpoints
	// send data; IN endpoints fill it. Returns the bytes transferred, which
	// may be fewer than len(data).
	BulkTransfer(ctx context.Context, endpoint uint8, data []byte) (int, error)

	// Close releases the device handle.
	Close() error
}
