package hal

import "fmt"

// Speed represents the negotiated USB connection speed.
type Speed uint8

// USB speed constants.
const (
	SpeedUnknown Speed = iota // Not enumerated or unsupported
	SpeedFull                 // Full Speed (12 Mbit/s)
	SpeedHigh                 // High Speed (480 Mbit/s)
)

// String returns a human-readable speed name.
func (s Speed) String() string {
	switch s {
	case SpeedFull:
		return "Full Speed"
	case SpeedHigh:
		return "High Speed"
	default:
		return "Unknown"
	}
}

// Raw enumerated-speed codes reported by [Controller.EnumeratedSpeed].
const (
	EnumSpeedHigh uint32 = 0 // high speed, 30/60 MHz PHY clock
	EnumSpeedFull uint32 = 1 // full speed on a high-speed PHY
)

// SpeedFromEnum maps a raw enumerated-speed code to a Speed. Codes other than
// EnumSpeedHigh and EnumSpeedFull map to SpeedUnknown.
func SpeedFromEnum(code uint32) Speed {
	switch code {
	case EnumSpeedHigh:
		return SpeedHigh
	case EnumSpeedFull:
		return SpeedFull
	default:
		return SpeedUnknown
	}
}

// Interrupt is a set of core interrupt status bits.
type Interrupt uint32

// Core interrupt bits.
const (
	IntRxFIFO   Interrupt = 1 << 4  // receive FIFO not empty
	IntSuspend  Interrupt = 1 << 11 // bus suspend
	IntReset    Interrupt = 1 << 12 // bus reset
	IntEnumDone Interrupt = 1 << 13 // speed enumeration complete
	IntInEP     Interrupt = 1 << 18 // IN endpoint interrupt pending
	IntOutEP    Interrupt = 1 << 19 // OUT endpoint interrupt pending
	IntWakeup   Interrupt = 1 << 31 // resume/remote wakeup
)

// IntDevice is every interrupt the download engine services.
const IntDevice = IntWakeup | IntOutEP | IntInEP | IntEnumDone | IntReset | IntSuspend | IntRxFIFO

// Has reports whether all bits of mask are set.
func (i Interrupt) Has(mask Interrupt) bool {
	return i&mask == mask
}

// Any reports whether at least one bit of mask is set.
func (i Interrupt) Any(mask Interrupt) bool {
	return i&mask != 0
}

// Endpoint interrupt bits reported by InEndpointInterrupt and
// OutEndpointInterrupt.
const (
	EPIntTransferComplete uint32 = 1 << 0
	EPIntSetupDone        uint32 = 1 << 3 // OUT endpoints only
	EPIntInTokenTxEmpty   uint32 = 1 << 4 // IN endpoints only
)

// InEndpointBit returns the bit for IN endpoint ep in EndpointInterrupts.
func InEndpointBit(ep uint8) uint32 {
	return 1 << (ep & 0x0F)
}

// OutEndpointBit returns the bit for OUT endpoint ep in EndpointInterrupts.
func OutEndpointBit(ep uint8) uint32 {
	return 1 << (16 + ep&0x0F)
}

// PacketStatus classifies an entry popped from the receive FIFO.
type PacketStatus uint8

// Receive FIFO packet status codes.
const (
	PacketGlobalOutNak  PacketStatus = 1
	PacketOutData       PacketStatus = 2
	PacketOutComplete   PacketStatus = 3
	PacketSetupComplete PacketStatus = 4
	PacketSetupData     PacketStatus = 6
)

// String returns a short name for the packet status.
func (p PacketStatus) String() string {
	switch p {
	case PacketGlobalOutNak:
		return "global-out-nak"
	case PacketOutData:
		return "out-data"
	case PacketOutComplete:
		return "out-complete"
	case PacketSetupComplete:
		return "setup-complete"
	case PacketSetupData:
		return "setup-data"
	default:
		return fmt.Sprintf("reserved(%d)", uint8(p))
	}
}

// ReceiveStatus describes the packet at the head of the receive FIFO.
type ReceiveStatus struct {
	Status    PacketStatus
	Endpoint  uint8
	ByteCount int
}

// Transfer types for EndpointConfig.
const (
	TransferControl uint8 = 0x00
	TransferBulk    uint8 = 0x02
)

// EndpointConfig describes an endpoint to enable.
type EndpointConfig struct {
	Address       uint8  // Endpoint address including direction bit
	Attributes    uint8  // Transfer type
	MaxPacketSize uint16 // Maximum packet size
}

// Number returns the endpoint number (0-15).
func (e *EndpointConfig) Number() uint8 {
	return e.Address & 0x0F
}

// IsIn returns true if this is an IN endpoint (device to host).
func (e *EndpointConfig) IsIn() bool {
	return e.Address&0x80 != 0
}

// TransferType returns the transfer type.
func (e *EndpointConfig) TransferType() uint8 {
	return e.Attributes & 0x03
}

// Registers provides raw access to a 32-bit memory-mapped register block.
// Offsets are in bytes from the block base.
type Registers interface {
	Read32(offset uint32) uint32
	Write32(offset uint32, value uint32)
}

// Controller is the capability interface the download engine drives. It
// covers one OTG device controller operated in polled slave mode.
//
// Implementations are not required to be safe for concurrent use; the engine
// calls every method from a single goroutine.
type Controller interface {
	// PowerOn brings up the PHY, soft-resets the core, and attaches to the bus
	// in device mode.
	PowerOn() error

	// CoreReset soft-resets the controller core and waits for it to go idle.
	CoreReset() error

	// PowerOff powers down the PHY.
	PowerOff() error

	// InterruptStatus returns the pending core interrupts.
	InterruptStatus() Interrupt

	// AckInterrupts clears the given core interrupt bits.
	AckInterrupts(Interrupt)

	// PopReceiveStatus pops the status of the packet at the head of the
	// receive FIFO. The packet payload is then read with ReadFIFO.
	PopReceiveStatus() ReceiveStatus

	// ReadFIFO copies len(buf) bytes out of the receive FIFO for ep.
	ReadFIFO(ep uint8, buf []byte)

	// WriteFIFO copies data into the transmit FIFO for IN endpoint ep.
	WriteFIFO(ep uint8, data []byte) error

	// EndpointInterrupts returns the per-endpoint pending bits. See
	// InEndpointBit and OutEndpointBit.
	EndpointInterrupts() uint32

	// InEndpointInterrupt returns the pending interrupt bits of IN endpoint ep.
	InEndpointInterrupt(ep uint8) uint32

	// AckInEndpoint clears interrupt bits of IN endpoint ep.
	AckInEndpoint(ep uint8, bits uint32)

	// OutEndpointInterrupt returns the pending interrupt bits of OUT endpoint ep.
	OutEndpointInterrupt(ep uint8) uint32

	// AckOutEndpoint clears interrupt bits of OUT endpoint ep.
	AckOutEndpoint(ep uint8, bits uint32)

	// BusReset NAKs every OUT endpoint, reprograms interrupt masks and FIFO
	// sizes, clears the NAKs, and clears the device address.
	BusReset()

	// EnumeratedSpeed returns the raw enumerated-speed code.
	EnumeratedSpeed() uint32

	// SetAddress programs the device address.
	SetAddress(addr uint8)

	// ConfigureEndpoint enables an endpoint with the given parameters. OUT
	// endpoints are left armed for one max-size packet.
	ConfigureEndpoint(cfg EndpointConfig) error

	// ArmControl prepares EP0 IN for the next control data stage, clearing
	// its NAK.
	ArmControl(maxPacket int)

	// ArmSetup arms EP0 OUT to receive SETUP packets.
	ArmSetup()

	// ArmIn enables IN endpoint ep to send a single packet of length bytes.
	ArmIn(ep uint8, length int)

	// ArmOut enables OUT endpoint ep to receive up to length bytes.
	ArmOut(ep uint8, length int)

	// NakIn sets NAK on IN endpoint ep.
	NakIn(ep uint8)

	// Stall sets the halt bit on IN endpoint ep.
	Stall(ep uint8)
}
