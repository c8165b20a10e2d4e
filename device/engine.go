package device

import (
	"context"
	"errors"
	"fmt"

	"github.com/ardnew/nxboot/device/hal"
	"github.com/ardnew/nxboot/nsih"
	"github.com/ardnew/nxboot/pkg"
)

// EventKind identifies a milestone in a download.
type EventKind uint8

// Engine events.
const (
	EventBusReset EventKind = iota
	EventEnumerated
	EventAddressed
	EventConfigured
	EventHeader
	EventComplete
	EventAborted
)

// String returns a human-readable event name.
func (k EventKind) String() string {
	switch k {
	case EventBusReset:
		return "BusReset"
	case EventEnumerated:
		return "Enumerated"
	case EventAddressed:
		return "Addressed"
	case EventConfigured:
		return "Configured"
	case EventHeader:
		return "Header"
	case EventComplete:
		return "Complete"
	case EventAborted:
		return "Aborted"
	default:
		return fmt.Sprintf("Unknown Event (%d)", k)
	}
}

// Event is a snapshot of the session delivered to the observer.
type Event struct {
	Kind      EventKind
	Speed     hal.Speed
	Phase     Phase
	Cursor    int
	Remaining int
	Err       error
}

// Option configures an Engine.
type Option func(*Engine)

// WithIdentity sets the vendor and product IDs reported in the device
// descriptor.
func WithIdentity(vid, pid uint16) Option {
	return func(e *Engine) {
		e.vid, e.pid = vid, pid
	}
}

// WithObserver registers fn to receive engine events. fn runs on the
// polling loop and must not block.
func WithObserver(fn func(Event)) Option {
	return func(e *Engine) {
		e.observer = fn
	}
}

// scratchSize covers the largest byte count the receive status can report.
const scratchSize = 2048

// Engine runs the download protocol on a device controller. It is not safe
// for concurrent use; one goroutine drives Download to completion.
type Engine struct {
	ctl      hal.Controller
	catalog  *Catalog
	observer func(Event)
	vid, pid uint16

	session Session
	err     error
	setup   [SetupPacketSize]byte
	scratch [scratchSize]byte
}

// NewEngine creates an engine driving ctl.
func NewEngine(ctl hal.Controller, opts ...Option) *Engine {
	e := &Engine{
		ctl: ctl,
		vid: DefaultVendorID,
		pid: DefaultProductID,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.catalog = NewCatalog(e.vid, e.pid)
	return e
}

// Catalog returns the descriptor tables served by the engine.
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// Session returns the current session state.
func (e *Engine) Session() *Session {
	return &e.session
}

// DownloadAt is Download with the target address check applied first.
func (e *Engine) DownloadAt(ctx context.Context, addr uint64, dst []byte) (int, error) {
	if addr < MinDownloadAddr {
		return 0, fmt.Errorf("%w: 0x%08X", pkg.ErrInvalidAddress, addr)
	}
	return e.Download(ctx, dst)
}

// Download powers the controller, enumerates, and receives one boot image
// into dst. The header phase receives 512 bytes at dst[0:]; the payload
// phase then overwrites dst from offset 0 with payload_size bytes. It returns
// the payload size. The controller is reset and powered down on every exit.
func (e *Engine) Download(ctx context.Context, dst []byte) (n int, err error) {
	if len(dst) < nsih.HeaderSize {
		return 0, fmt.Errorf("%w: %d bytes, need %d", pkg.ErrBufferTooSmall, len(dst), nsih.HeaderSize)
	}
	if err := e.ctl.PowerOn(); err != nil {
		return 0, err
	}
	defer func() {
		if serr := e.shutdown(); serr != nil && err == nil {
			err = serr
		}
		if err != nil {
			n = 0
			e.emit(EventAborted, err)
		}
	}()

	e.err = nil
	e.session.begin(dst, e.catalog)
	pkg.LogInfo(pkg.ComponentEngine, "waiting for host", "buffer", len(dst))

	for {
		if cerr := ctx.Err(); cerr != nil {
			return 0, fmt.Errorf("%w: %w", pkg.ErrCancelled, cerr)
		}
		e.poll()
		if e.err != nil {
			return 0, e.err
		}
		if e.session.downloading {
			continue
		}
		if e.session.phase == PhaseHeader {
			if err := e.beginPayload(); err != nil {
				return 0, err
			}
			continue
		}
		e.session.phase = PhaseDone
		pkg.LogInfo(pkg.ComponentEngine, "download complete", "bytes", e.session.payloadSize)
		e.emit(EventComplete, nil)
		return e.session.payloadSize, nil
	}
}

func (e *Engine) shutdown() error {
	return errors.Join(e.ctl.CoreReset(), e.ctl.PowerOff())
}

func (e *Engine) emit(kind EventKind, err error) {
	if e.observer == nil {
		return
	}
	s := &e.session
	e.observer(Event{
		Kind:      kind,
		Speed:     s.speed,
		Phase:     s.phase,
		Cursor:    s.cursor,
		Remaining: s.remaining,
		Err:       err,
	})
}

// handler services one global interrupt source.
type handler struct {
	mask hal.Interrupt
	fn   func(*Engine)
}

// dispatch is walked in order on every poll. A handler runs when any bit of
// its mask is pending.
var dispatch = [...]handler{
	{hal.IntReset, (*Engine).onReset},
	{hal.IntEnumDone, (*Engine).onEnumDone},
	{hal.IntSuspend, (*Engine).onSuspend},
	{hal.IntWakeup, (*Engine).onResume},
	{hal.IntRxFIFO, (*Engine).onReceive},
	{hal.IntInEP | hal.IntOutEP, (*Engine).onEndpoint},
}

// poll services one snapshot of the global interrupt status.
func (e *Engine) poll() {
	status := e.ctl.InterruptStatus()
	if status&hal.IntDevice == 0 {
		return
	}
	for _, h := range dispatch {
		if status.Any(h.mask) {
			h.fn(e)
			if e.err != nil {
				break
			}
		}
	}
	e.ctl.AckInterrupts(status)
}

func (e *Engine) onReset() {
	s := &e.session
	if s.received > 0 || s.phase != PhaseHeader {
		pkg.LogWarn(pkg.ComponentEngine, "bus reset during download, restarting",
			"phase", s.phase, "received", s.received)
	}
	e.ctl.BusReset()
	s.restart()
	e.emit(EventBusReset, nil)
}

func (e *Engine) onEnumDone() {
	s := &e.session
	code := e.ctl.EnumeratedSpeed()
	speed := hal.SpeedFromEnum(code)
	if speed == hal.SpeedUnknown {
		e.err = fmt.Errorf("%w: enumeration code %d", pkg.ErrUnsupportedSpeed, code)
		pkg.LogError(pkg.ComponentEngine, "unsupported speed", "code", code)
		return
	}
	s.setSpeed(speed, e.catalog)

	eps := [...]hal.EndpointConfig{
		{Address: ControlEndpoint, Attributes: hal.TransferControl, MaxPacketSize: uint16(s.ctrlMax)},
		{Address: BulkOutAddress, Attributes: hal.TransferBulk, MaxPacketSize: uint16(s.bulkMax)},
		{Address: BulkInAddress, Attributes: hal.TransferBulk, MaxPacketSize: uint16(s.bulkMax)},
	}
	for _, ep := range eps {
		if err := e.ctl.ConfigureEndpoint(ep); err != nil {
			e.err = err
			return
		}
	}
	pkg.LogInfo(pkg.ComponentEngine, "enumerated", "speed", speed,
		"control", s.ctrlMax, "bulk", s.bulkMax)
	e.emit(EventEnumerated, nil)
}

func (e *Engine) onSuspend() {
	pkg.LogDebug(pkg.ComponentEngine, "suspend")
}

func (e *Engine) onResume() {
	pkg.LogDebug(pkg.ComponentEngine, "resume")
}

// onReceive pops one entry from the receive FIFO.
func (e *Engine) onReceive() {
	rs := e.ctl.PopReceiveStatus()
	switch rs.Status {
	case hal.PacketSetupData:
		if rs.ByteCount != SetupPacketSize {
			e.ctl.ReadFIFO(ControlEndpoint, e.scratch[:min(rs.ByteCount, len(e.scratch))])
			e.stallControl(pkg.ErrSetupPacketTooShort, nil)
			return
		}
		e.ctl.ReadFIFO(ControlEndpoint, e.setup[:])
		e.handleSetup(e.setup[:])

	case hal.PacketOutData:
		if rs.ByteCount == 0 {
			return
		}
		if rs.Endpoint == BulkOutEndpoint {
			e.bulkOut(rs.ByteCount)
			return
		}
		// OUT data stages on EP0 carry nothing this device uses.
		e.ctl.ReadFIFO(rs.Endpoint, e.scratch[:min(rs.ByteCount, len(e.scratch))])

	default:
		pkg.LogDebug(pkg.ComponentEngine, "receive status", "status", rs.Status, "ep", rs.Endpoint)
	}
}

// onEndpoint services per-endpoint IN and OUT interrupts.
func (e *Engine) onEndpoint() {
	pending := e.ctl.EndpointInterrupts()

	if pending&hal.InEndpointBit(ControlEndpoint) != 0 {
		st := e.ctl.InEndpointInterrupt(ControlEndpoint)
		if st&hal.EPIntInTokenTxEmpty != 0 {
			e.transferEP0()
		}
		e.ctl.AckInEndpoint(ControlEndpoint, st)
	}
	if pending&hal.OutEndpointBit(ControlEndpoint) != 0 {
		st := e.ctl.OutEndpointInterrupt(ControlEndpoint)
		e.ctl.ArmSetup()
		e.ctl.AckOutEndpoint(ControlEndpoint, st)
	}
	if pending&hal.InEndpointBit(BulkInEndpoint) != 0 {
		st := e.ctl.InEndpointInterrupt(BulkInEndpoint)
		e.ctl.AckInEndpoint(BulkInEndpoint, st)
		if st&hal.EPIntInTokenTxEmpty != 0 {
			e.bulkIn()
		}
	}
	if pending&hal.OutEndpointBit(BulkOutEndpoint) != 0 {
		st := e.ctl.OutEndpointInterrupt(BulkOutEndpoint)
		e.ctl.AckOutEndpoint(BulkOutEndpoint, st)
	}
}
