package libusb

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/gousb"
	"github.com/google/gousb/usbid"

	"github.com/ardnew/nxboot/host/hal"
	"github.com/ardnew/nxboot/pkg"
)

// Transport implements hal.Transport over libusb.
type Transport struct {
	ctx *gousb.Context
}

// New creates a libusb context. debug is the libusb log level (0-4).
func New(debug int) *Transport {
	ctx := gousb.NewContext()
	if debug > 0 {
		ctx.Debug(debug)
	}
	return &Transport{ctx: ctx}
}

// Open implements hal.Transport.
func (t *Transport) Open(_ context.Context, vid, pid uint16) (dev hal.Device, err error) {
	defer pkg.WrapErr("libusb open", &err)

	d, err := t.ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("%04x:%04x: %w", vid, pid, pkg.ErrDeviceNotFound)
	}
	if err := d.SetAutoDetach(true); err != nil {
		pkg.LogDebug(pkg.ComponentTransport, "auto detach unavailable", "error", err)
	}

	info := hal.DeviceInfo{
		VendorID:  uint16(d.Desc.Vendor),
		ProductID: uint16(d.Desc.Product),
		Bus:       d.Desc.Bus,
		Address:   d.Desc.Address,
		Speed:     speedOf(d.Desc.Speed),
		Name:      usbid.Describe(d.Desc),
	}
	pkg.LogDebug(pkg.ComponentTransport, "device opened", "device", info.String())

	return &Device{dev: d, info: info}, nil
}

// Close implements hal.Transport.
func (t *Transport) Close() error {
	return t.ctx.Close()
}

func speedOf(s gousb.Speed) hal.Speed {
	switch s {
	case gousb.SpeedLow:
		return hal.SpeedLow
	case gousb.SpeedFull:
		return hal.SpeedFull
	case gousb.SpeedHigh, gousb.SpeedSuper:
		return hal.SpeedHigh
	}
	return hal.SpeedUnknown
}

// Device is an opened libusb device.
type Device struct {
	dev    *gousb.Device
	info   hal.DeviceInfo
	cfg    *gousb.Config
	claims map[uint8]*gousb.Interface
}

// Info implements hal.Device.
func (d *Device) Info() hal.DeviceInfo {
	return d.info
}

// ClaimInterface implements hal.Device. The active configuration is
// selected on first use, falling back to configuration 1.
func (d *Device) ClaimInterface(iface uint8) (err error) {
	defer pkg.WrapErr("libusb claim", &err)

	if d.cfg == nil {
		num, err := d.dev.ActiveConfigNum()
		if err != nil || num == 0 {
			num = 1
		}
		cfg, err := d.dev.Config(num)
		if err != nil {
			return fmt.Errorf("%w: config %d: %w", pkg.ErrClaimInterface, num, err)
		}
		d.cfg = cfg
		d.claims = make(map[uint8]*gousb.Interface)
	}
	if _, ok := d.claims[iface]; ok {
		return nil
	}
	intf, err := d.cfg.Interface(int(iface), 0)
	if err != nil {
		return fmt.Errorf("%w: interface %d: %w", pkg.ErrClaimInterface, iface, err)
	}
	d.claims[iface] = intf
	return nil
}

// ReleaseInterface implements hal.Device.
func (d *Device) ReleaseInterface(iface uint8) error {
	intf, ok := d.claims[iface]
	if !ok {
		return nil
	}
	intf.Close()
	delete(d.claims, iface)
	return nil
}

// BulkTransfer implements hal.Device. The endpoint must belong to a claimed
// interface.
func (d *Device) BulkTransfer(ctx context.Context, endpoint uint8, data []byte) (n int, err error) {
	defer pkg.WrapErr("libusb bulk", &err)

	num := int(endpoint & 0x0F)
	for _, intf := range d.claims {
		if endpoint&hal.EndpointIn != 0 {
			in, ierr := intf.InEndpoint(num)
			if ierr != nil {
				continue
			}
			n, err = in.ReadContext(ctx, data)
		} else {
			out, oerr := intf.OutEndpoint(num)
			if oerr != nil {
				continue
			}
			n, err = out.WriteContext(ctx, data)
		}
		if errors.Is(err, gousb.ErrorNoDevice) {
			err = fmt.Errorf("%w: %w", pkg.ErrNoDevice, err)
		}
		return n, err
	}
	return 0, fmt.Errorf("endpoint 0x%02x: %w", endpoint, pkg.ErrInvalidParameter)
}

// Close implements hal.Device.
func (d *Device) Close() error {
	for iface := range d.claims {
		_ = d.ReleaseInterface(iface)
	}
	var errs []error
	if d.cfg != nil {
		errs = append(errs, d.cfg.Close())
		d.cfg = nil
	}
	errs = append(errs, d.dev.Close())
	return errors.Join(errs...)
}
