// Package linux provides a pure-Go USB host transport for Linux.
//
// Devices are located by scanning sysfs (/sys/bus/usb/devices) for a
// matching idVendor and idProduct, then opened through the usbfs device node
// under /dev/bus/usb. Interfaces are claimed with USBDEVFS_CLAIMINTERFACE,
// detaching a bound kernel driver when the claim reports EBUSY. Bulk data
// moves with synchronous USBDEVFS_BULK calls of at most [MaxBulkChunk]
// bytes, bounded by the context deadline.
//
// # Requirements
//
// The user must have read/write access to the device node, either by
// running as root or through a udev rule such as:
//
//	SUBSYSTEM=="usb", ATTR{idVendor}=="04e8", ATTR{idProduct}=="1234", MODE="0666"
//
// On other platforms [New] returns a transport whose Open reports
// pkg.ErrNotSupported.
package linux
