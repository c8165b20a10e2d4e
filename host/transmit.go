package host

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ardnew/nxboot/host/hal"
	"github.com/ardnew/nxboot/pkg"
)

// Boot ROM USB identity and download endpoint.
const (
	DefaultVendorID  uint16 = 0x04E8
	DefaultProductID uint16 = 0x1234
	DefaultInterface uint8  = 0
	DefaultEndpoint  uint8  = 0x02
)

// TransmitOptions selects the target device and endpoint.
type TransmitOptions struct {
	VID       uint16
	PID       uint16
	Interface uint8
	Endpoint  uint8
	// Timeout bounds the whole transmission. Zero waits indefinitely.
	Timeout time.Duration
}

// DefaultTransmitOptions returns options addressing the boot ROM.
func DefaultTransmitOptions() TransmitOptions {
	return TransmitOptions{
		VID:       DefaultVendorID,
		PID:       DefaultProductID,
		Interface: DefaultInterface,
		Endpoint:  DefaultEndpoint,
	}
}

// Result reports the outcome of a transmission.
type Result struct {
	Requested   int
	Transferred int
}

// Short reports whether fewer bytes were accepted than requested.
func (r Result) Short() bool {
	return r.Transferred < r.Requested
}

// Transmit opens the first device matching opts, claims its interface, and
// sends buf in a single bulk OUT transfer. A short transfer is not an error;
// callers check Result.Short.
func Transmit(ctx context.Context, t hal.Transport, buf []byte, opts TransmitOptions) (res Result, err error) {
	res.Requested = len(buf)
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	dev, err := t.Open(ctx, opts.VID, opts.PID)
	if err != nil {
		return res, err
	}
	defer dev.Close()

	if err := dev.ClaimInterface(opts.Interface); err != nil {
		if !errors.Is(err, pkg.ErrClaimInterface) {
			err = fmt.Errorf("%w: %w", pkg.ErrClaimInterface, err)
		}
		return res, err
	}
	defer func() {
		if rerr := dev.ReleaseInterface(opts.Interface); rerr != nil {
			pkg.LogWarn(pkg.ComponentTransport, "release interface", "error", rerr)
		}
	}()

	pkg.LogInfo(pkg.ComponentTransport, "start transfer",
		"device", dev.Info().String(), "endpoint", fmt.Sprintf("0x%02x", opts.Endpoint), "size", len(buf))

	n, err := dev.BulkTransfer(ctx, opts.Endpoint, buf)
	res.Transferred = n
	if err != nil {
		return res, fmt.Errorf("bulk transfer: %w", err)
	}

	if res.Short() {
		pkg.LogWarn(pkg.ComponentTransport, "short transfer, image may fail to run",
			"transferred", n, "requested", len(buf))
	} else {
		pkg.LogInfo(pkg.ComponentTransport, "transfer successful", "size", n)
	}
	return res, nil
}
