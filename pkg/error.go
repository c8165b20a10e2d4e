package pkg

import "errors"

// Wire format errors.
var (
	// ErrInvalidHeader indicates a boot header with a missing or wrong signature.
	ErrInvalidHeader = errors.New("invalid boot header")

	// ErrEmptyImage indicates an input image with no bytes.
	ErrEmptyImage = errors.New("empty image")

	// ErrBufferTooSmall indicates the provided buffer is too small.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrInvalidDescriptor indicates a truncated descriptor or one whose
	// type byte does not match.
	ErrInvalidDescriptor = errors.New("invalid descriptor")
)

// Device-side protocol errors.
var (
	// ErrStall indicates an endpoint stall condition.
	ErrStall = errors.New("endpoint stalled")

	// ErrUnsupportedSpeed indicates the controller enumerated at a speed
	// other than full or high.
	ErrUnsupportedSpeed = errors.New("unsupported bus speed")

	// ErrCancelled indicates the download was aborted by the caller.
	ErrCancelled = errors.New("download cancelled")

	// ErrInvalidRequest indicates an invalid or unsupported request.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrSetupPacketTooShort indicates the setup packet data is too short.
	ErrSetupPacketTooShort = errors.New("setup packet too short")

	// ErrInvalidAddress indicates a download address outside DRAM.
	ErrInvalidAddress = errors.New("invalid download address")

	// ErrTimeout indicates a controller operation that did not settle.
	ErrTimeout = errors.New("timeout")
)

// Host-side transport errors.
var (
	// ErrDeviceNotFound indicates no device matched the requested VID/PID.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrClaimInterface indicates the interface could not be claimed.
	ErrClaimInterface = errors.New("cannot claim interface")

	// ErrNoDevice indicates the device went away during an operation.
	ErrNoDevice = errors.New("device not present")

	// ErrNotSupported indicates an unsupported operation or feature.
	ErrNotSupported = errors.New("not supported")

	// ErrInvalidParameter indicates an invalid parameter was provided.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// OpError records the operation that failed along with its cause.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// WrapErr wraps *err in an OpError naming op. It is meant to be deferred:
//
//	func (t *Transport) Open(...) (dev hal.Device, err error) {
//	    defer pkg.WrapErr("open", &err)
//	    ...
//	}
func WrapErr(op string, err *error) {
	if *err != nil {
		*err = &OpError{Op: op, Err: *err}
	}
}
