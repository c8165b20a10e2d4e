//go:build linux

package linux

import "unsafe"

// ioc constructs an ioctl number from direction, type, number, and size.
// The bit layout comes from the per-architecture constants.
func ioc(dir, typ, nr, size uintptr) uintptr {
	return dir<<iocDirShift | typ<<iocTypeShift | nr<<iocNRShift | size<<iocSizeShift
}

const (
	iocNRBits   = 8
	iocTypeBits = 8

	iocNRShift   = 0
	iocTypeShift = iocNRShift + iocNRBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits
)

// Usbdevfs ioctl numbers. Argument sizes follow the Go structs, which match
// the kernel layout on both 32-bit and 64-bit targets.
var (
	ioctlUsbdevfsBulk             = ioc(iocRead|iocWrite, usbdevfsType, ioctlBulk, unsafe.Sizeof(bulkTransfer{}))
	ioctlUsbdevfsIoctl            = ioc(iocRead|iocWrite, usbdevfsType, ioctlIoctl, unsafe.Sizeof(usbdevfsIoctl{}))
	ioctlUsbdevfsClaimInterface   = ioc(iocRead, usbdevfsType, ioctlClaimInterface, 4)
	ioctlUsbdevfsReleaseInterface = ioc(iocRead, usbdevfsType, ioctlReleaseInterface, 4)
	ioctlUsbdevfsDisconnect       = ioc(iocNone, usbdevfsType, ioctlDisconnect, 0)
)
