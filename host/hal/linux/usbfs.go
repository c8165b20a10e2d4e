//go:build linux

package linux

import (
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// bulkTransfer matches the kernel's struct usbdevfs_bulktransfer.
type bulkTransfer struct {
	endpoint uint32
	length   uint32
	timeout  uint32 // milliseconds, 0 waits forever
	data     uintptr
}

// usbdevfsIoctl matches the kernel's struct usbdevfs_ioctl.
type usbdevfsIoctl struct {
	ifno int32
	code int32
	data uintptr
}

// openDevice opens a usbfs device node for read/write access.
func openDevice(path string) (int, error) {
	return unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
}

// closeDevice closes a device file descriptor.
func closeDevice(fd int) error {
	return unix.Close(fd)
}

// ioctlPtr performs an ioctl whose argument is a pointer.
func ioctlPtr(fd int, req uintptr, arg unsafe.Pointer) (int, error) {
	r, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
	if errno != 0 {
		return 0, errno
	}
	return int(r), nil
}

// claimInterface claims exclusive access to an interface.
func claimInterface(fd int, iface uint8) error {
	return unix.IoctlSetPointerInt(fd, uint(ioctlUsbdevfsClaimInterface), int(iface))
}

// releaseInterface releases a previously claimed interface.
func releaseInterface(fd int, iface uint8) error {
	return unix.IoctlSetPointerInt(fd, uint(ioctlUsbdevfsReleaseInterface), int(iface))
}

// disconnectDriver detaches the kernel driver bound to an interface.
func disconnectDriver(fd int, iface uint8) error {
	cmd := usbdevfsIoctl{
		ifno: int32(iface),
		code: int32(ioctlUsbdevfsDisconnect),
	}
	_, err := ioctlPtr(fd, ioctlUsbdevfsIoctl, unsafe.Pointer(&cmd))
	return err
}

// doBulkTransfer performs one synchronous bulk transfer and returns the
// number of bytes the kernel reports as transferred.
func doBulkTransfer(fd int, endpoint uint8, data []byte, timeout uint32) (int, error) {
	bulk := bulkTransfer{
		endpoint: uint32(endpoint),
		length:   uint32(len(data)),
		timeout:  timeout,
	}
	if len(data) > 0 {
		bulk.data = uintptr(unsafe.Pointer(&data[0]))
	}
	n, err := ioctlPtr(fd, ioctlUsbdevfsBulk, unsafe.Pointer(&bulk))
	runtime.KeepAlive(data)
	return n, err
}
