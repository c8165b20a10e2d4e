package main

import (
	"fmt"
	"strings"

	"github.com/ardnew/nxboot/host/hal"
	"github.com/ardnew/nxboot/host/hal/libusb"
	"github.com/ardnew/nxboot/host/hal/linux"
	"github.com/ardnew/nxboot/pkg"
)

// Transport backends.
const (
	backendLibusb = "libusb"
	backendUsbfs  = "usbfs"
)

// openBackend constructs the named host transport. debug raises libusb's own
// log level when the loader runs at debug level.
func openBackend(name string, debug bool) (hal.Transport, error) {
	switch strings.ToLower(name) {
	case backendLibusb:
		level := 0
		if debug {
			level = 3
		}
		return libusb.New(level), nil
	case backendUsbfs:
		return linux.New(), nil
	}
	return nil, fmt.Errorf("%w: backend %q (want %s or %s)",
		pkg.ErrInvalidParameter, name, backendLibusb, backendUsbfs)
}
