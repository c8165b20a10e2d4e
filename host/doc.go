// Package host packages boot images and transmits them to a device in USB
// boot mode.
//
// [BuildImage] turns an input binary into a [TransferRequest]: it prepends
// or injects a boot header, pads the total to a 16-byte multiple, and sets
// payload_size to total minus the header size. [Transmit] then opens the
// device through a [hal.Transport], claims interface 0, and sends the whole
// buffer in one bulk OUT transfer on endpoint 0x02.
//
// # Image Layouts
//
//   - Verbatim: the input already carries a header; only payload_size is
//     rewritten.
//   - Header32: a 512-byte header with a branch to 0x200 precedes the input.
//   - Header64: a 2048-byte header with a warm-reset stub precedes the input.
//   - Inject: the fields are written into header space reserved at the
//     start of the input.
//
// # Example
//
//	req, err := host.BuildImage(bin, host.ImageOptions{
//	    Variant:    nsih.Header32,
//	    LoadAddr:   0xffff0000,
//	    LaunchAddr: 0xffff0000,
//	})
//	if err != nil {
//	    return err
//	}
//	res, err := host.Transmit(ctx, transport, req.Buffer, host.DefaultTransmitOptions())
//	if err == nil && res.Short() {
//	    log.Printf("transferred only %d of %d bytes", res.Transferred, res.Requested)
//	}
package host
