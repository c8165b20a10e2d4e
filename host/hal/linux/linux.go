//go:build linux

package linux

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ardnew/nxboot/host/hal"
	"github.com/ardnew/nxboot/pkg"
	"github.com/ardnew/nxboot/pkg/linux/usbid"
)

// Transport opens devices through sysfs and usbfs.
type Transport struct {
	sysfsRoot string
	devfsRoot string
	ids       *usbid.Database
}

// Option configures a Transport.
type Option func(*Transport)

// WithRoots overrides the sysfs and devfs directories scanned by Open.
func WithRoots(sysfs, devfs string) Option {
	return func(t *Transport) {
		t.sysfsRoot = sysfs
		t.devfsRoot = devfs
	}
}

// WithIDs sets the database used to name opened devices.
func WithIDs(db *usbid.Database) Option {
	return func(t *Transport) {
		t.ids = db
	}
}

// New returns a Transport rooted at the standard system paths.
func New(opts ...Option) *Transport {
	t := &Transport{
		sysfsRoot: SysfsUSBPath,
		devfsRoot: DevfsUSBPath,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.ids == nil {
		t.ids = usbid.New()
	}
	return t
}

// Open implements hal.Transport. It opens the first device whose sysfs
// attributes match vid and pid.
func (t *Transport) Open(ctx context.Context, vid, pid uint16) (dev hal.Device, err error) {
	defer pkg.WrapErr("usbfs open", &err)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d, ok, err := findDevice(t.sysfsRoot, t.devfsRoot, vid, pid)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%04x:%04x: %w", vid, pid, pkg.ErrDeviceNotFound)
	}

	fd, err := openDevice(d.devfsPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.devfsPath, err)
	}

	t.ids.Load()
	info := hal.DeviceInfo{
		VendorID:  d.vendorID,
		ProductID: d.productID,
		Bus:       int(d.busNum),
		Address:   int(d.devNum),
		Speed:     d.speed,
		Name:      t.ids.Describe(d.vendorID, d.productID),
	}
	pkg.LogDebug(pkg.ComponentTransport, "usbfs device opened",
		"device", info.String(), "path", d.devfsPath)

	return &Device{fd: fd, info: info}, nil
}

// Close implements hal.Transport.
func (t *Transport) Close() error {
	return nil
}

// Device is an open usbfs device node.
type Device struct {
	fd   int
	info hal.DeviceInfo
}

// Info implements hal.Device.
func (d *Device) Info() hal.DeviceInfo {
	return d.info
}

// ClaimInterface implements hal.Device. A kernel driver holding the
// interface is detached and the claim retried once.
func (d *Device) ClaimInterface(iface uint8) error {
	err := claimInterface(d.fd, iface)
	if errors.Is(err, unix.EBUSY) {
		pkg.LogDebug(pkg.ComponentTransport, "detaching kernel driver", "interface", iface)
		if derr := disconnectDriver(d.fd, iface); derr == nil {
			err = claimInterface(d.fd, iface)
		}
	}
	if err != nil {
		return fmt.Errorf("%w %d: %w", pkg.ErrClaimInterface, iface, err)
	}
	return nil
}

// ReleaseInterface implements hal.Device.
func (d *Device) ReleaseInterface(iface uint8) error {
	return releaseInterface(d.fd, iface)
}

// BulkTransfer implements hal.Device. The buffer is split into
// MaxBulkChunk pieces; a piece the device accepts only partially ends the
// transfer with the running count and no error.
func (d *Device) BulkTransfer(ctx context.Context, endpoint uint8, data []byte) (total int, err error) {
	for len(data) > 0 {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		timeout, err := timeoutMillis(ctx)
		if err != nil {
			return total, err
		}

		chunk := data[:min(len(data), MaxBulkChunk)]
		n, err := doBulkTransfer(d.fd, endpoint, chunk, timeout)
		total += n
		if err != nil {
			return total, mapErrno(err)
		}
		if n < len(chunk) {
			break
		}
		data = data[n:]
	}
	return total, nil
}

// Close implements hal.Device.
func (d *Device) Close() error {
	if d.fd < 0 {
		return nil
	}
	err := closeDevice(d.fd)
	d.fd = -1
	return err
}

// timeoutMillis converts the context deadline to a usbfs timeout. Zero means
// no deadline.
func timeoutMillis(ctx context.Context) (uint32, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0, nil
	}
	left := time.Until(deadline)
	if left <= 0 {
		return 0, context.DeadlineExceeded
	}
	ms := left.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	return uint32(min(ms, int64(^uint32(0)))), nil
}

// mapErrno maps usbfs errno values to package errors.
func mapErrno(err error) error {
	switch {
	case errors.Is(err, unix.ENODEV):
		return fmt.Errorf("%w: %w", pkg.ErrNoDevice, err)
	case errors.Is(err, unix.ETIMEDOUT):
		return fmt.Errorf("%w: %w", pkg.ErrTimeout, err)
	case errors.Is(err, unix.EPIPE):
		return fmt.Errorf("%w: %w", pkg.ErrStall, err)
	default:
		return err
	}
}
