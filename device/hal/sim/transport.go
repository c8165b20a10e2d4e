package sim

import (
	"context"
	"encoding/binary"
	"fmt"

	devhal "github.com/ardnew/nxboot/device/hal"
	"github.com/ardnew/nxboot/host/hal"
	"github.com/ardnew/nxboot/pkg"
)

// DefaultAddress is the address the loopback host assigns on Open.
const DefaultAddress = 7

// Transport is a host-side hal.Transport wired to a simulated controller.
// Open attaches the device and enumerates it the way a host stack would.
type Transport struct {
	ctl   *Controller
	speed devhal.Speed
}

// NewTransport returns a transport that enumerates ctl at speed.
func NewTransport(ctl *Controller, speed devhal.Speed) *Transport {
	return &Transport{ctl: ctl, speed: speed}
}

// standard request setups used during enumeration
var (
	getDeviceDescriptor = [8]byte{0x80, 0x06, 0x00, 0x01, 0x00, 0x00, 0x40, 0x00}
	getConfigHeader     = [8]byte{0x80, 0x06, 0x00, 0x02, 0x00, 0x00, 0x09, 0x00}
	setConfiguration1   = [8]byte{0x00, 0x09, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00}
)

// Open implements hal.Transport.
func (t *Transport) Open(ctx context.Context, vid, pid uint16) (dev hal.Device, err error) {
	defer pkg.WrapErr("sim open", &err)

	t.ctl.Attach(t.speed)

	desc, err := t.ctl.ControlIn(ctx, getDeviceDescriptor[:], 64)
	if err != nil {
		return nil, err
	}
	if len(desc) < 18 {
		return nil, fmt.Errorf("device descriptor %d bytes: %w", len(desc), pkg.ErrInvalidDescriptor)
	}
	info := hal.DeviceInfo{
		VendorID:  binary.LittleEndian.Uint16(desc[8:10]),
		ProductID: binary.LittleEndian.Uint16(desc[10:12]),
		Bus:       1,
		Address:   DefaultAddress,
		Name:      "simulated",
	}
	if t.speed == devhal.SpeedFull {
		info.Speed = hal.SpeedFull
	} else {
		info.Speed = hal.SpeedHigh
	}
	if info.VendorID != vid || info.ProductID != pid {
		return nil, fmt.Errorf("%04x:%04x: %w", vid, pid, pkg.ErrDeviceNotFound)
	}

	setAddress := [8]byte{0x00, 0x05, DefaultAddress}
	if err := t.ctl.ControlOut(ctx, setAddress[:]); err != nil {
		return nil, err
	}
	cfg, err := t.ctl.ControlIn(ctx, getConfigHeader[:], 9)
	if err != nil {
		return nil, err
	}
	if len(cfg) >= 4 {
		total := binary.LittleEndian.Uint16(cfg[2:4])
		full := getConfigHeader
		binary.LittleEndian.PutUint16(full[6:8], total)
		if _, err := t.ctl.ControlIn(ctx, full[:], int(total)); err != nil {
			return nil, err
		}
	}
	if err := t.ctl.ControlOut(ctx, setConfiguration1[:]); err != nil {
		return nil, err
	}

	pkg.LogDebug(pkg.ComponentTransport, "sim device opened", "device", info.String())
	return &Device{ctl: t.ctl, info: info}, nil
}

// Close implements hal.Transport.
func (t *Transport) Close() error {
	return nil
}

// Device is an opened simulated device.
type Device struct {
	ctl     *Controller
	info    hal.DeviceInfo
	claimed uint32
}

// Info implements hal.Device.
func (d *Device) Info() hal.DeviceInfo {
	return d.info
}

// ClaimInterface implements hal.Device.
func (d *Device) ClaimInterface(iface uint8) error {
	if iface > 31 {
		return fmt.Errorf("interface %d: %w", iface, pkg.ErrClaimInterface)
	}
	d.claimed |= 1 << iface
	return nil
}

// ReleaseInterface implements hal.Device.
func (d *Device) ReleaseInterface(iface uint8) error {
	if iface <= 31 {
		d.claimed &^= 1 << iface
	}
	return nil
}

// BulkTransfer implements hal.Device.
func (d *Device) BulkTransfer(ctx context.Context, endpoint uint8, data []byte) (int, error) {
	if endpoint&hal.EndpointIn != 0 {
		got, err := d.ctl.BulkIn(ctx, endpoint&0x0F)
		return copy(data, got), err
	}
	return d.ctl.BulkOut(ctx, endpoint, data)
}

// Close implements hal.Device.
func (d *Device) Close() error {
	return nil
}
