//go:build linux

package linux

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ardnew/nxboot/host/hal"
)

// usbDeviceInfo holds information about a USB device discovered via sysfs.
type usbDeviceInfo struct {
	sysfsPath string    // path under the sysfs root
	devfsPath string    // path under the devfs root
	busNum    uint8     // bus number
	devNum    uint8     // device number
	vendorID  uint16    // idVendor
	productID uint16    // idProduct
	speed     hal.Speed // negotiated speed
}

// scanUSBDevices lists the devices below sysfsRoot. Device nodes are
// resolved relative to devfsRoot.
func scanUSBDevices(sysfsRoot, devfsRoot string) ([]usbDeviceInfo, error) {
	entries, err := os.ReadDir(sysfsRoot)
	if err != nil {
		return nil, err
	}

	var devices []usbDeviceInfo
	for _, entry := range entries {
		name := entry.Name()

		// Root hubs are usbN and interfaces are B-P:C.I; devices are B-P[.P...].
		if strings.HasPrefix(name, "usb") || strings.Contains(name, ":") {
			continue
		}

		info, err := parseUSBDevice(filepath.Join(sysfsRoot, name), devfsRoot)
		if err != nil {
			continue
		}
		devices = append(devices, info)
	}
	return devices, nil
}

// findDevice returns the first device below sysfsRoot with the given IDs.
func findDevice(sysfsRoot, devfsRoot string, vid, pid uint16) (usbDeviceInfo, bool, error) {
	devices, err := scanUSBDevices(sysfsRoot, devfsRoot)
	if err != nil {
		return usbDeviceInfo{}, false, err
	}
	for _, d := range devices {
		if d.vendorID == vid && d.productID == pid {
			return d, true, nil
		}
	}
	return usbDeviceInfo{}, false, nil
}

// parseUSBDevice parses USB device information from sysfs.
func parseUSBDevice(sysfsPath, devfsRoot string) (usbDeviceInfo, error) {
	info := usbDeviceInfo{sysfsPath: sysfsPath}

	busNum, err := readSysfsUint8(filepath.Join(sysfsPath, "busnum"))
	if err != nil {
		return info, err
	}
	info.busNum = busNum

	devNum, err := readSysfsUint8(filepath.Join(sysfsPath, "devnum"))
	if err != nil {
		return info, err
	}
	info.devNum = devNum
	info.devfsPath = formatDevfsPath(devfsRoot, busNum, devNum)

	if info.vendorID, err = readSysfsHexUint16(filepath.Join(sysfsPath, "idVendor")); err != nil {
		return info, err
	}
	if info.productID, err = readSysfsHexUint16(filepath.Join(sysfsPath, "idProduct")); err != nil {
		return info, err
	}

	if s, err := readSysfsString(filepath.Join(sysfsPath, "speed")); err == nil {
		info.speed = parseSpeed(s)
	}
	return info, nil
}

// readSysfsString reads a string from a sysfs attribute file.
func readSysfsString(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// readSysfsUint8 reads an unsigned decimal uint8 from a sysfs attribute file.
func readSysfsUint8(path string) (uint8, error) {
	s, err := readSysfsString(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, err
	}
	return uint8(v), nil
}

// readSysfsHexUint16 reads a hexadecimal uint16 from a sysfs attribute file.
func readSysfsHexUint16(path string) (uint16, error) {
	s, err := readSysfsString(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}

// formatDevfsPath constructs a device node path from bus and device numbers.
// The layout is root/BBB/DDD with both numbers zero-padded.
func formatDevfsPath(root string, busNum, devNum uint8) string {
	var buf [DevfsPathMaxLen]byte
	b := append(buf[:0], root...)
	b = append(b, '/')
	b = appendPadded(b, busNum, 3)
	b = append(b, '/')
	b = appendPadded(b, devNum, 3)
	return string(b)
}

// appendPadded appends val to b in decimal, zero-padded to width.
func appendPadded(b []byte, val uint8, width int) []byte {
	var digits [3]byte
	s := strconv.AppendUint(digits[:0], uint64(val), 10)
	for i := len(s); i < width; i++ {
		b = append(b, '0')
	}
	return append(b, s...)
}

// parseSpeed converts a sysfs speed string to a hal.Speed value.
func parseSpeed(s string) hal.Speed {
	switch s {
	case "1.5":
		return hal.SpeedLow
	case "12":
		return hal.SpeedFull
	case "480":
		return hal.SpeedHigh
	default:
		return hal.SpeedUnknown
	}
}
