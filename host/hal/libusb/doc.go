// Package libusb implements the host transport over libusb through
// github.com/google/gousb.
//
// Devices are opened by vendor and product ID with kernel driver auto-detach
// enabled, so a bound driver does not prevent claiming the interface. Device
// names in logs come from the usb.ids database bundled with gousb.
//
// Building this package requires cgo and the libusb-1.0 development headers.
package libusb
