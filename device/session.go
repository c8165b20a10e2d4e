package device

import (
	"fmt"

	"github.com/ardnew/nxboot/device/hal"
	"github.com/ardnew/nxboot/nsih"
	"github.com/ardnew/nxboot/pkg"
)

// Session is the mutable state of one download. It is owned by the engine's
// polling loop and exposed read-only for diagnostics.
type Session struct {
	speed      hal.Speed
	ctrlMax    int
	bulkMax    int
	deviceDesc []byte
	configDesc []byte

	ep0     EP0State
	pending []byte // descriptor bytes not yet sent
	wLength uint16
	address uint8
	config  uint8
	iface   uint8
	alt     uint8

	dst         []byte
	cursor      int
	remaining   int
	received    int
	payloadSize int
	phase       Phase
	downloading bool

	upload    []byte
	uploadOff int
}

// Speed returns the negotiated bus speed.
func (s *Session) Speed() hal.Speed { return s.speed }

// State returns the control endpoint state.
func (s *Session) State() EP0State { return s.ep0 }

// Phase returns the download phase.
func (s *Session) Phase() Phase { return s.phase }

// Cursor returns the write offset into the destination buffer.
func (s *Session) Cursor() int { return s.cursor }

// Remaining returns the bytes still expected in the current phase.
func (s *Session) Remaining() int { return s.remaining }

// Received returns the total bulk OUT bytes received since the last restart.
func (s *Session) Received() int { return s.received }

// Downloading reports whether the current phase is still receiving.
func (s *Session) Downloading() bool { return s.downloading }

// Address returns the USB address assigned by the host.
func (s *Session) Address() uint8 { return s.address }

// Configuration returns the configuration value selected by the host.
func (s *Session) Configuration() uint8 { return s.config }

// ControlMaxPacket returns the negotiated EP0 max packet size.
func (s *Session) ControlMaxPacket() int { return s.ctrlMax }

// BulkMaxPacket returns the negotiated bulk max packet size.
func (s *Session) BulkMaxPacket() int { return s.bulkMax }

func (s *Session) begin(dst []byte, cat *Catalog) {
	s.dst = dst
	s.upload = nil
	s.setSpeed(hal.SpeedHigh, cat)
	s.restart()
}

// restart returns the session to the start of the header phase with the
// control endpoint idle. The destination buffer is kept.
func (s *Session) restart() {
	s.ep0 = EP0Init
	s.pending = nil
	s.wLength = 0
	s.address = 0
	s.config = 0
	s.iface = 0
	s.alt = 0

	s.cursor = 0
	s.remaining = nsih.HeaderSize
	s.received = 0
	s.payloadSize = 0
	s.phase = PhaseHeader
	s.downloading = true
	s.uploadOff = 0
}

func (s *Session) setSpeed(speed hal.Speed, cat *Catalog) {
	s.speed = speed
	s.ctrlMax = ControlMaxPacket(speed)
	s.bulkMax = BulkMaxPacket(speed)
	s.deviceDesc = cat.Device(speed)
	s.configDesc = cat.Config(speed)
}

func (s *Session) outChunk() int {
	return min(s.bulkMax, s.remaining)
}

// bulkOut consumes one OUT packet of n bytes from the bulk FIFO.
func (e *Engine) bulkOut(n int) {
	s := &e.session
	if !s.downloading {
		e.ctl.ReadFIFO(BulkOutEndpoint, e.scratch[:min(n, len(e.scratch))])
		pkg.LogWarn(pkg.ComponentSession, "bulk data outside download, dropped", "bytes", n)
		return
	}

	room := max(len(s.dst)-s.cursor, 0)
	if n <= room {
		e.ctl.ReadFIFO(BulkOutEndpoint, s.dst[s.cursor:s.cursor+n])
	} else {
		e.ctl.ReadFIFO(BulkOutEndpoint, e.scratch[:min(n, len(e.scratch))])
		if room > 0 {
			copy(s.dst[s.cursor:], e.scratch[:room])
		}
		pkg.LogWarn(pkg.ComponentSession, "bulk data past end of buffer",
			"cursor", s.cursor, "bytes", n, "room", room)
	}

	s.cursor += n
	s.remaining -= n
	s.received += n

	if s.remaining <= 0 {
		s.downloading = false
		pkg.LogDebug(pkg.ComponentSession, "phase complete",
			"phase", s.phase, "cursor", s.cursor, "received", s.received)
		return
	}
	e.ctl.ArmOut(BulkOutEndpoint, s.outChunk())
}

// beginPayload switches from the header phase to the payload phase using
// the payload_size field of the header just received.
func (e *Engine) beginPayload() error {
	s := &e.session
	s.cursor -= nsih.HeaderSize
	size := int(nsih.PayloadSizeOf(s.dst[:nsih.HeaderSize]))
	if size > len(s.dst)-s.cursor {
		return fmt.Errorf("%w: payload %d bytes, buffer %d", pkg.ErrBufferTooSmall, size, len(s.dst)-s.cursor)
	}

	s.payloadSize = size
	s.remaining = size
	s.phase = PhasePayload
	s.downloading = size > 0
	pkg.LogInfo(pkg.ComponentSession, "header received", "payload", size)
	e.emit(EventHeader, nil)

	if s.downloading {
		e.ctl.ArmOut(BulkOutEndpoint, s.outChunk())
	}
	return nil
}

// StartUpload queues data to be returned to the host on the bulk IN endpoint.
// Packets are written as the host issues IN tokens.
func (e *Engine) StartUpload(data []byte) {
	e.session.upload = data
	e.session.uploadOff = 0
}

// bulkIn services an IN token on the bulk IN endpoint.
func (e *Engine) bulkIn() {
	s := &e.session
	left := len(s.upload) - s.uploadOff
	if left <= 0 {
		e.ctl.NakIn(BulkInEndpoint)
		return
	}
	n := min(left, s.bulkMax)
	e.ctl.ArmIn(BulkInEndpoint, n)
	if err := e.ctl.WriteFIFO(BulkInEndpoint, s.upload[s.uploadOff:s.uploadOff+n]); err != nil {
		pkg.LogError(pkg.ComponentSession, "bulk IN write failed", "error", err)
		return
	}
	s.uploadOff += n
}
