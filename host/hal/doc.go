// Package hal defines the boundary between the host loader and the
// platform USB stack.
//
// A [Transport] finds a device by vendor and product ID and returns a
// [Device] handle that can claim an interface and issue bulk transfers.
// The loader needs nothing else: it opens the boot device, claims
// interface 0, writes the image to endpoint 0x02 in one transfer, and
// releases the handle.
//
// # Implementations
//
//   - [github.com/ardnew/nxboot/host/hal/libusb]: libusb via gousb.
//   - [github.com/ardnew/nxboot/host/hal/linux]: pure Go over sysfs and usbfs.
//   - [github.com/ardnew/nxboot/device/hal/sim]: loopback into a simulated
//     device controller, for tests.
//
// # Example
//
//	dev, err := t.Open(ctx, 0x04e8, 0x1234)
//	if err != nil {
//	    return err
//	}
//	defer dev.Close()
//	if err := dev.ClaimInterface(0); err != nil {
//	    return err
//	}
//	defer dev.ReleaseInterface(0)
//	n, err := dev.BulkTransfer(ctx, 0x02, image)
package hal
