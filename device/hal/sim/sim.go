package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ardnew/nxboot/device/hal"
	"github.com/ardnew/nxboot/pkg"
)

// DefaultPollInterval bounds how long InterruptStatus waits for host activity.
const DefaultPollInterval = time.Millisecond

// maxEndpoints is the number of endpoint slots per direction.
const maxEndpoints = 16

type eventKind uint8

const (
	evReset eventKind = iota
	evEnumDone
	evSetup
	evOut
	evInToken
)

// event is one bus occurrence queued by the host side.
type event struct {
	kind eventKind
	ep   uint8
	code uint32
	data []byte
}

func (ev *event) status() hal.Interrupt {
	switch ev.kind {
	case evReset:
		return hal.IntReset
	case evEnumDone:
		return hal.IntEnumDone
	case evSetup:
		return hal.IntRxFIFO
	case evOut:
		if ev.ep == 0 {
			return hal.IntRxFIFO | hal.IntOutEP
		}
		return hal.IntRxFIFO
	case evInToken:
		return hal.IntInEP
	}
	return 0
}

// Packet is one IN transaction answered by the device.
type Packet struct {
	Endpoint uint8
	Data     []byte
	Stall    bool
	NAK      bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithPollInterval sets how long InterruptStatus waits on an empty queue.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		c.poll = d
	}
}

// Controller is an in-memory hal.Controller. The device engine drives it
// from one goroutine while a scripted host drives it from another. Host
// activity is queued as events and presented to the engine one at a time:
// InterruptStatus exposes the head event and AckInterrupts retires it.
type Controller struct {
	mu   sync.Mutex
	wake chan struct{} // closed and replaced on every state change
	poll time.Duration

	queue  []event
	loaded bool
	rxOff  int

	powered    bool
	poweredOn  int
	powerOffs  int
	coreResets int
	busResets  int
	setupArms  int
	ctrlArms   int
	ctrlArmed  int

	speedCode uint32
	address   uint8
	ctrlMax   int
	inMax     [maxEndpoints]int
	outMax    [maxEndpoints]int
	outArmed  [maxEndpoints]int
	inArmed   [maxEndpoints]int
	inBuf     [maxEndpoints][]byte

	inbox  []Packet
	stalls int
}

// New creates a powered-down simulated controller.
func New(opts ...Option) *Controller {
	c := &Controller{
		wake: make(chan struct{}),
		poll: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// broadcast wakes every waiter. c.mu must be held.
func (c *Controller) broadcast() {
	close(c.wake)
	c.wake = make(chan struct{})
}

// waitLocked blocks until cond holds or ctx is done. c.mu must be held and
// is held again on return.
func (c *Controller) waitLocked(ctx context.Context, cond func() bool) error {
	for !cond() {
		w := c.wake
		c.mu.Unlock()
		select {
		case <-w:
		case <-ctx.Done():
			c.mu.Lock()
			return ctx.Err()
		}
		c.mu.Lock()
	}
	return nil
}

func (c *Controller) push(ev event) {
	c.mu.Lock()
	c.queue = append(c.queue, ev)
	c.broadcast()
	c.mu.Unlock()
}

// deliver records an IN transaction. c.mu must be held.
func (c *Controller) deliver(p Packet) {
	c.inbox = append(c.inbox, p)
	c.broadcast()
}

func (c *Controller) head() *event {
	if len(c.queue) == 0 {
		return nil
	}
	return &c.queue[0]
}

// =============================================================================
// hal.Controller
// =============================================================================

// PowerOn implements hal.Controller.
func (c *Controller) PowerOn() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.powered = true
	c.poweredOn++
	c.broadcast()
	return nil
}

// CoreReset implements hal.Controller.
func (c *Controller) CoreReset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.coreResets++
	c.outArmed = [maxEndpoints]int{}
	c.inArmed = [maxEndpoints]int{}
	return nil
}

// PowerOff implements hal.Controller.
func (c *Controller) PowerOff() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.powered = false
	c.powerOffs++
	c.broadcast()
	return nil
}

// InterruptStatus implements hal.Controller. It waits up to the poll
// interval for host activity.
func (c *Controller) InterruptStatus() hal.Interrupt {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		w := c.wake
		c.mu.Unlock()
		t := time.NewTimer(c.poll)
		select {
		case <-w:
		case <-t.C:
		}
		t.Stop()
		c.mu.Lock()
	}
	ev := c.head()
	if ev == nil {
		return 0
	}
	c.loaded = true
	return ev.status()
}

// AckInterrupts implements hal.Controller. It retires the event last
// reported by InterruptStatus.
func (c *Controller) AckInterrupts(hal.Interrupt) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded || len(c.queue) == 0 {
		return
	}
	c.queue = c.queue[1:]
	c.loaded = false
	c.rxOff = 0
	c.broadcast()
}

// PopReceiveStatus implements hal.Controller.
func (c *Controller) PopReceiveStatus() hal.ReceiveStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	ev := c.head()
	if ev == nil {
		return hal.ReceiveStatus{}
	}
	switch ev.kind {
	case evSetup:
		return hal.ReceiveStatus{Status: hal.PacketSetupData, ByteCount: len(ev.data)}
	case evOut:
		return hal.ReceiveStatus{Status: hal.PacketOutData, Endpoint: ev.ep, ByteCount: len(ev.data)}
	}
	return hal.ReceiveStatus{}
}

// ReadFIFO implements hal.Controller.
func (c *Controller) ReadFIFO(_ uint8, buf []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ev := c.head()
	if ev == nil {
		return
	}
	c.rxOff += copy(buf, ev.data[min(c.rxOff, len(ev.data)):])
}

// WriteFIFO implements hal.Controller. The packet is delivered to the host
// once the armed length has been written.
func (c *Controller) WriteFIFO(ep uint8, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.powered {
		return fmt.Errorf("write ep%d: %w", ep, pkg.ErrNoDevice)
	}
	c.inBuf[ep] = append(c.inBuf[ep], data...)
	if len(c.inBuf[ep]) >= c.inArmed[ep] {
		c.deliver(Packet{Endpoint: ep, Data: c.inBuf[ep]})
		c.inBuf[ep] = nil
		c.inArmed[ep] = 0
	}
	return nil
}

// EndpointInterrupts implements hal.Controller.
func (c *Controller) EndpointInterrupts() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ev := c.head()
	if ev == nil {
		return 0
	}
	switch ev.kind {
	case evInToken:
		return hal.InEndpointBit(ev.ep)
	case evOut:
		return hal.OutEndpointBit(ev.ep)
	}
	return 0
}

// InEndpointInterrupt implements hal.Controller.
func (c *Controller) InEndpointInterrupt(ep uint8) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ev := c.head(); ev != nil && ev.kind == evInToken && ev.ep == ep {
		return hal.EPIntInTokenTxEmpty
	}
	return 0
}

// AckInEndpoint implements hal.Controller.
func (c *Controller) AckInEndpoint(uint8, uint32) {}

// OutEndpointInterrupt implements hal.Controller.
func (c *Controller) OutEndpointInterrupt(ep uint8) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ev := c.head(); ev != nil && ev.kind == evOut && ev.ep == ep {
		return hal.EPIntTransferComplete
	}
	return 0
}

// AckOutEndpoint implements hal.Controller.
func (c *Controller) AckOutEndpoint(uint8, uint32) {}

// BusReset implements hal.Controller.
func (c *Controller) BusReset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busResets++
	c.address = 0
	c.outArmed = [maxEndpoints]int{}
	c.inArmed = [maxEndpoints]int{}
	c.inBuf = [maxEndpoints][]byte{}
}

// EnumeratedSpeed implements hal.Controller.
func (c *Controller) EnumeratedSpeed() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speedCode
}

// SetAddress implements hal.Controller.
func (c *Controller) SetAddress(addr uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.address = addr
}

// ConfigureEndpoint implements hal.Controller. OUT endpoints are left armed
// for one max-size packet.
func (c *Controller) ConfigureEndpoint(cfg hal.EndpointConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ep := cfg.Number()
	mps := int(cfg.MaxPacketSize)
	switch cfg.TransferType() {
	case hal.TransferControl:
		c.ctrlMax = mps
	case hal.TransferBulk:
		if cfg.IsIn() {
			c.inMax[ep] = mps
		} else {
			c.outMax[ep] = mps
			c.outArmed[ep] = mps
		}
	default:
		return fmt.Errorf("endpoint 0x%02X: %w", cfg.Address, pkg.ErrNotSupported)
	}
	c.broadcast()
	return nil
}

// ArmControl implements hal.Controller.
func (c *Controller) ArmControl(maxPacket int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctrlArms++
	c.ctrlArmed = maxPacket
}

// ArmSetup implements hal.Controller.
func (c *Controller) ArmSetup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setupArms++
}

// ArmIn implements hal.Controller. A zero length delivers a zero-length
// packet immediately.
func (c *Controller) ArmIn(ep uint8, length int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inBuf[ep] = nil
	c.inArmed[ep] = length
	if length == 0 {
		c.deliver(Packet{Endpoint: ep, Data: []byte{}})
	}
}

// ArmOut implements hal.Controller.
func (c *Controller) ArmOut(ep uint8, length int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outArmed[ep] = length
	c.broadcast()
}

// NakIn implements hal.Controller.
func (c *Controller) NakIn(ep uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deliver(Packet{Endpoint: ep, NAK: true})
}

// Stall implements hal.Controller.
func (c *Controller) Stall(ep uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stalls++
	c.deliver(Packet{Endpoint: ep, Stall: true})
}

// =============================================================================
// Inspection
// =============================================================================

// Powered reports whether the PHY is powered.
func (c *Controller) Powered() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.powered
}

// Address returns the address last programmed by the device.
func (c *Controller) Address() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.address
}

// Stalls returns the number of stalls issued.
func (c *Controller) Stalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stalls
}

// CoreResets returns the number of core soft resets issued.
func (c *Controller) CoreResets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.coreResets
}

// PowerOffs returns the number of PHY power-downs issued.
func (c *Controller) PowerOffs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.powerOffs
}

// SetupArms returns the number of times EP0 was re-armed for SETUP.
func (c *Controller) SetupArms() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setupArms
}

// ControlArms returns the number of times EP0 was armed for a data stage and
// the max packet size of the latest arm.
func (c *Controller) ControlArms() (count, maxPacket int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctrlArms, c.ctrlArmed
}

// Inbox returns a copy of every IN transaction answered so far.
func (c *Controller) Inbox() []Packet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Packet(nil), c.inbox...)
}

// Pending returns the number of queued events the device has not retired.
func (c *Controller) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}
