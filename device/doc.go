// Package device implements the device side of the boot image download
// protocol on top of a polled OTG controller.
//
// The [Engine] drives a [hal.Controller] from a single polling loop. It
// enumerates as a vendor-specific device with one bulk IN and one bulk OUT
// endpoint, answers the minimal set of chapter 9 requests needed by the
// host, and receives an image in two phases:
//
//   - Header: exactly 512 bytes land at the start of the destination buffer.
//   - Payload: the cursor is rewound to the start and payload_size bytes,
//     read from the header at offset 0x44, are received over it.
//
// The download returns once the payload phase has no bytes remaining. On
// every exit the controller is soft reset and the PHY powered down.
//
// # Control Endpoint
//
// EP0 runs a small state machine (see [EP0State]). GET_DESCRIPTOR streams
// the speed-selected table from the [Catalog] in max-packet chunks, clamped
// to wLength. Unsupported or malformed requests stall EP0.
//
// # Identity
//
// The default identity is 04E8:1234. [IdentityFromECID] derives an identity
// from the chip ECID word and [WithIdentity] applies it:
//
//	vid, pid := device.IdentityFromECID(ecid)
//	e := device.NewEngine(ctl, device.WithIdentity(vid, pid))
//	n, err := e.DownloadAt(ctx, 0x40000000, dram)
//
// # Zero-Allocation Design
//
// Descriptor tables are built once per engine into fixed arrays and served
// by slicing. The polling loop itself does not allocate.
package device
