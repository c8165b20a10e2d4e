package device

import "github.com/ardnew/nxboot/pkg"

// handleSetup processes one SETUP packet received on EP0. A SETUP always
// cancels any data stage still in progress.
func (e *Engine) handleSetup(raw []byte) {
	s := &e.session

	var setup SetupPacket
	if err := ParseSetupPacket(raw, &setup); err != nil {
		e.stallControl(err, nil)
		return
	}
	if s.ep0 != EP0Init {
		pkg.LogDebug(pkg.ComponentControl, "setup aborts data stage", "state", s.ep0)
		s.ep0 = EP0Init
		s.pending = nil
	}

	if err := e.standardRequest(&setup); err != nil {
		e.stallControl(err, &setup)
		return
	}
	e.ctl.ArmControl(s.ctrlMax)
}

func (e *Engine) stallControl(err error, setup *SetupPacket) {
	s := &e.session
	s.ep0 = EP0Init
	s.pending = nil
	if setup != nil {
		pkg.LogDebug(pkg.ComponentControl, "stall", "setup", setup.String(), "error", err)
	} else {
		pkg.LogDebug(pkg.ComponentControl, "stall", "error", err)
	}
	e.ctl.Stall(ControlEndpoint)
}

// standardRequest applies a chapter 9 request and selects the next EP0 state.
func (e *Engine) standardRequest(setup *SetupPacket) error {
	s := &e.session
	if !setup.IsStandard() {
		return pkg.ErrInvalidRequest
	}
	s.wLength = setup.Length

	switch setup.Request {
	case RequestSetAddress:
		s.address = uint8(setup.Value & 0x7F)
		e.ctl.SetAddress(s.address)
		pkg.LogDebug(pkg.ComponentControl, "set address", "address", s.address)
		e.emit(EventAddressed, nil)

	case RequestSetConfiguration:
		s.config = uint8(setup.Value)
		pkg.LogDebug(pkg.ComponentControl, "set configuration", "value", s.config)
		e.emit(EventConfigured, nil)

	case RequestGetConfiguration:
		s.ep0 = EP0GetConfig

	case RequestGetDescriptor:
		var table []byte
		switch setup.DescriptorType() {
		case DescriptorTypeDevice:
			table = s.deviceDesc
		case DescriptorTypeConfiguration:
			table = s.configDesc
		default:
			return pkg.ErrInvalidRequest
		}
		s.pending = table[:min(len(table), int(setup.Length))]
		s.ep0 = EP0GetDescriptor

	case RequestGetInterface:
		s.ep0 = EP0GetInterface

	case RequestSetInterface:
		s.iface = uint8(setup.Index)
		s.alt = uint8(setup.Value)

	case RequestSynchFrame:

	case RequestGetStatus:
		s.ep0 = EP0GetStatus

	case RequestClearFeature, RequestSetFeature:
		pkg.LogDebug(pkg.ComponentControl, "feature request ignored", "setup", setup.String())

	default:
		return pkg.ErrInvalidRequest
	}
	return nil
}

// transferEP0 services an IN token on EP0 according to the current state.
// No IN transaction carries more than the negotiated control max packet.
func (e *Engine) transferEP0() {
	s := &e.session
	var reply [2]byte

	switch s.ep0 {
	case EP0Init:
		// status stage
		e.ctl.ArmIn(ControlEndpoint, 0)
		return

	case EP0GetDescriptor:
		n := len(s.pending)
		if n > s.ctrlMax {
			n = s.ctrlMax
		} else {
			s.ep0 = EP0Init
		}
		e.writeControl(s.pending[:n])
		s.pending = s.pending[n:]
		return

	case EP0GetConfig:
		reply[0] = s.config
		e.replyControl(reply[:1])

	case EP0GetInterface:
		reply[0] = s.alt
		e.replyControl(reply[:1])

	case EP0GetStatus:
		e.replyControl(reply[:2])
	}
	s.ep0 = EP0Init
}

func (e *Engine) replyControl(data []byte) {
	e.writeControl(data[:min(len(data), int(e.session.wLength))])
}

func (e *Engine) writeControl(data []byte) {
	e.ctl.ArmIn(ControlEndpoint, len(data))
	if len(data) == 0 {
		return
	}
	if err := e.ctl.WriteFIFO(ControlEndpoint, data); err != nil {
		pkg.LogError(pkg.ComponentControl, "EP0 write failed", "error", err)
		e.session.ep0 = EP0Init
		e.session.pending = nil
	}
}

