package linux

// System paths.
const (
	// SysfsUSBPath is the base path for USB devices in sysfs.
	SysfsUSBPath = "/sys/bus/usb/devices"

	// DevfsUSBPath is the base path for USB device nodes.
	DevfsUSBPath = "/dev/bus/usb"
)

// DevfsPathMaxLen is the maximum length of a devfs path built from the
// default root.
const DevfsPathMaxLen = 64

// MaxBulkChunk is the largest buffer handed to one USBDEVFS_BULK call. The
// kernel bounds a single usbfs buffer by usbfs_memory_mb; 16 KiB stays well
// under it while keeping the call count low.
const MaxBulkChunk = 16 * 1024

// usbdevfs ioctl type character.
const usbdevfsType = 'U'

// usbdevfs ioctl command numbers.
const (
	ioctlBulk             = 2
	ioctlIoctl            = 18
	ioctlClaimInterface   = 15
	ioctlReleaseInterface = 16
	ioctlDisconnect       = 22
)
