package dwc2

import (
	"fmt"
	"time"

	"github.com/ardnew/nxboot/device/hal"
	"github.com/ardnew/nxboot/pkg"
)

// PHY powers the USB PHY attached to the controller.
type PHY interface {
	PowerOn() error
	PowerOff() error
}

// NopPHY is a PHY that is already powered, e.g. left enabled by the boot ROM.
type NopPHY struct{}

// PowerOn implements PHY.
func (NopPHY) PowerOn() error { return nil }

// PowerOff implements PHY.
func (NopPHY) PowerOff() error { return nil }

// DefaultSpinLimit bounds every busy-wait on a status bit.
const DefaultSpinLimit = 1 << 20

// Controller drives a DesignWare OTG core in device slave mode.
// It implements hal.Controller.
type Controller struct {
	regs      hal.Registers
	phy       PHY
	delay     func(time.Duration)
	spinLimit int

	speed  uint32
	ep0    uint32 // EP0 max packet field encoding
	inMPS  [NumEndpoints]uint16
	outMPS [NumEndpoints]uint16
}

// Option configures a Controller.
type Option func(*Controller)

// WithPHY sets the PHY powered by PowerOn and PowerOff.
func WithPHY(phy PHY) Option {
	return func(c *Controller) { c.phy = phy }
}

// WithDelay replaces time.Sleep for the settle delays of the attach sequence.
func WithDelay(delay func(time.Duration)) Option {
	return func(c *Controller) { c.delay = delay }
}

// WithSpinLimit bounds busy-waits on status bits.
func WithSpinLimit(n int) Option {
	return func(c *Controller) { c.spinLimit = n }
}

// New returns a controller operating the register block regs.
func New(regs hal.Registers, opts ...Option) *Controller {
	c := &Controller{
		regs:      regs,
		phy:       NopPHY{},
		delay:     time.Sleep,
		spinLimit: DefaultSpinLimit,
		ep0:       ep0MPS64,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ hal.Controller = (*Controller)(nil)

func (c *Controller) read(off uint32) uint32 {
	return c.regs.Read32(off)
}

func (c *Controller) write(off, v uint32) {
	c.regs.Write32(off, v)
}

func (c *Controller) modify(off, clr, set uint32) {
	c.write(off, c.read(off)&^clr|set)
}

// PowerOn implements hal.Controller.
func (c *Controller) PowerOn() error {
	if err := c.phy.PowerOn(); err != nil {
		return fmt.Errorf("phy on: %w", err)
	}
	if err := c.CoreReset(); err != nil {
		return err
	}

	c.write(regGAHBCFG, gahbcfgInit)
	c.write(regGUSBCFG, gusbcfgInit)

	if c.read(regGINTSTS)&gintstsHostMode == 0 {
		c.modify(regDCTL, 0, dctlSoftDisconnect)
		c.delay(10 * time.Microsecond)
		c.modify(regDCTL, dctlSoftDisconnect, 0)
		c.delay(10 * time.Microsecond)

		c.write(regDCFG, dcfgInit)
		c.write(regGINTMSK, uint32(hal.IntDevice))
		c.delay(10 * time.Microsecond)
	}
	pkg.LogDebug(pkg.ComponentHAL, "core attached")
	return nil
}

// CoreReset implements hal.Controller.
func (c *Controller) CoreReset() error {
	c.write(regGRSTCTL, grstctlCoreSoftReset)
	for i := 0; i < c.spinLimit; i++ {
		if c.read(regGRSTCTL)&grstctlAHBIdle != 0 {
			return nil
		}
	}
	return fmt.Errorf("core reset: AHB idle: %w", pkg.ErrTimeout)
}

// PowerOff implements hal.Controller.
func (c *Controller) PowerOff() error {
	return c.phy.PowerOff()
}

// InterruptStatus implements hal.Controller.
func (c *Controller) InterruptStatus() hal.Interrupt {
	return hal.Interrupt(c.read(regGINTSTS))
}

// AckInterrupts implements hal.Controller.
func (c *Controller) AckInterrupts(i hal.Interrupt) {
	c.write(regGINTSTS, uint32(i))
}

// PopReceiveStatus implements hal.Controller.
func (c *Controller) PopReceiveStatus() hal.ReceiveStatus {
	rx := c.read(regGRXSTSP)
	return hal.ReceiveStatus{
		Status:    hal.PacketStatus(rx >> grxstspStsPos & grxstspStsMask),
		Endpoint:  uint8(rx & grxstspEPMask),
		ByteCount: int(rx & grxstspCntMask >> grxstspCntPos),
	}
}

// ReadFIFO implements hal.Controller. Whole words are popped, so a trailing
// partial word is read and truncated.
func (c *Controller) ReadFIFO(ep uint8, buf []byte) {
	fifo := regFIFO(ep)
	for i := 0; i < len(buf); i += 4 {
		w := c.read(fifo)
		for j := 0; j < 4 && i+j < len(buf); j++ {
			buf[i+j] = byte(w >> (8 * j))
		}
	}
}

// WriteFIFO implements hal.Controller. It waits for enough non-periodic
// transmit FIFO space before pushing the packet.
func (c *Controller) WriteFIFO(ep uint8, data []byte) error {
	words := uint32(len(data)+3) / 4
	ready := false
	for i := 0; i < c.spinLimit; i++ {
		if c.read(regGNPTXSTS)&nptxSpaceMask >= words {
			ready = true
			break
		}
	}
	if !ready {
		return fmt.Errorf("ep%d tx fifo: %w", ep, pkg.ErrTimeout)
	}

	fifo := regFIFO(ep)
	for i := 0; i < len(data); i += 4 {
		var w uint32
		for j := 0; j < 4 && i+j < len(data); j++ {
			w |= uint32(data[i+j]) << (8 * j)
		}
		c.write(fifo, w)
	}
	return nil
}

// EndpointInterrupts implements hal.Controller.
func (c *Controller) EndpointInterrupts() uint32 {
	return c.read(regDAINT)
}

// InEndpointInterrupt implements hal.Controller.
func (c *Controller) InEndpointInterrupt(ep uint8) uint32 {
	return c.read(regDIEPINT(ep))
}

// AckInEndpoint implements hal.Controller.
func (c *Controller) AckInEndpoint(ep uint8, bits uint32) {
	c.write(regDIEPINT(ep), bits)
}

// OutEndpointInterrupt implements hal.Controller.
func (c *Controller) OutEndpointInterrupt(ep uint8) uint32 {
	return c.read(regDOEPINT(ep))
}

// AckOutEndpoint implements hal.Controller.
func (c *Controller) AckOutEndpoint(ep uint8, bits uint32) {
	c.write(regDOEPINT(ep), bits)
}

// BusReset implements hal.Controller.
func (c *Controller) BusReset() {
	for ep := uint8(0); ep < NumEndpoints; ep++ {
		c.modify(regDOEPCTL(ep), 0, depctlSetNAK)
	}

	c.write(regDAINTMSK, hal.OutEndpointBit(2)|hal.OutEndpointBit(0)|
		hal.InEndpointBit(1)|hal.InEndpointBit(0))
	c.write(regDOEPMSK, doepmskInit)
	c.write(regDIEPMSK, diepmskInit)
	c.write(regGRXFSIZ, rxFIFOSize)
	c.write(regGNPTXFSIZ, nptxFIFOSize<<16|nptxFIFOStart)

	for ep := uint8(0); ep < NumEndpoints; ep++ {
		c.modify(regDOEPCTL(ep), 0, depctlEnable|depctlClearNAK)
	}

	c.modify(regDCFG, dcfgAddrMask, 0)
}

// EnumeratedSpeed implements hal.Controller.
func (c *Controller) EnumeratedSpeed() uint32 {
	c.speed = c.read(regDSTS) & dstsSpeedMask >> dstsSpeedShift
	return c.speed
}

// SetAddress implements hal.Controller.
func (c *Controller) SetAddress(addr uint8) {
	c.write(regDCFG, dcfgInit|uint32(addr&0x7F)<<dcfgAddrShift|c.speed)
}

func ep0Encoding(maxPacket int) uint32 {
	if maxPacket <= 8 {
		return ep0MPS8
	}
	return ep0MPS64
}

// ConfigureEndpoint implements hal.Controller.
func (c *Controller) ConfigureEndpoint(cfg hal.EndpointConfig) error {
	ep := cfg.Number()
	mps := uint32(cfg.MaxPacketSize)

	switch cfg.TransferType() {
	case hal.TransferControl:
		if ep != 0 {
			return fmt.Errorf("control endpoint %d: %w", ep, pkg.ErrInvalidParameter)
		}
		c.ep0 = ep0Encoding(int(mps))
		c.inMPS[0], c.outMPS[0] = cfg.MaxPacketSize, cfg.MaxPacketSize
		c.write(regDIEPINT(0), 0xFF)
		c.write(regDOEPINT(0), 0xFF)
		c.write(regDIEPCTL(0), depctlClearNAK|c.ep0)
		c.write(regDOEPCTL(0), depctlEnable|depctlClearNAK|c.ep0)

	case hal.TransferBulk:
		if cfg.IsIn() {
			c.inMPS[ep] = cfg.MaxPacketSize
			c.write(regDIEPINT(ep), 0xFF)
			c.write(regDIEPCTL(ep), depctlClearNAK|depctlTypeBulk|depctlActive|mps)
		} else {
			c.outMPS[ep] = cfg.MaxPacketSize
			c.write(regDOEPINT(ep), 0xFF)
			c.write(regDOEPTSIZ(ep), deptsizPacketCount1|mps)
			c.write(regDOEPCTL(ep), depctlEnable|depctlClearNAK|depctlTypeBulk|depctlActive|mps)
		}

	default:
		return fmt.Errorf("endpoint 0x%02X type %d: %w", cfg.Address, cfg.TransferType(), pkg.ErrNotSupported)
	}
	return nil
}

// ArmControl implements hal.Controller.
func (c *Controller) ArmControl(maxPacket int) {
	c.write(regDIEPTSIZ(0), deptsizPacketCount1|uint32(maxPacket))
	c.write(regDIEPCTL(0), depctlClearNAK|ep0Encoding(maxPacket))
}

// ArmSetup implements hal.Controller.
func (c *Controller) ArmSetup() {
	c.write(regDOEPTSIZ(0), doeptsizSetupCount1|deptsizPacketCount1|8)
	c.write(regDOEPCTL(0), depctlEnable|depctlClearNAK)
}

// ArmIn implements hal.Controller.
func (c *Controller) ArmIn(ep uint8, length int) {
	ep &= 0x0F
	c.write(regDIEPTSIZ(ep), deptsizPacketCount1|uint32(length))
	if ep == 0 {
		c.write(regDIEPCTL(0), depctlEnable|depctlClearNAK|c.ep0)
		return
	}
	c.write(regDIEPCTL(ep), depctlEnable|depctlClearNAK|depctlTypeBulk|depctlActive|
		uint32(ep+1)<<depctlNextShift|uint32(c.inMPS[ep]))
}

// ArmOut implements hal.Controller.
func (c *Controller) ArmOut(ep uint8, length int) {
	ep &= 0x0F
	c.write(regDOEPTSIZ(ep), deptsizPacketCount1|uint32(length))
	c.write(regDOEPCTL(ep), depctlEnable|depctlClearNAK|depctlTypeBulk|depctlActive|
		uint32(c.outMPS[ep]))
}

// NakIn implements hal.Controller.
func (c *Controller) NakIn(ep uint8) {
	c.write(regDIEPCTL(ep), depctlSetNAK|depctlTypeBulk)
}

// Stall implements hal.Controller.
func (c *Controller) Stall(ep uint8) {
	c.modify(regDIEPCTL(ep), 0, depctlStall)
}
