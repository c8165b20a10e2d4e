//go:build !profile

package prof

import "io"

// Enabled reports whether profiling support is compiled in.
const Enabled = false

// Profiling errors, never returned by the stubs.
var (
	ErrCPUProfileActive error
	ErrInvalidProfile   error
)

// StartCPU is a no-op when built without the "profile" tag.
func StartCPU(string) error { return nil }

// StopCPU is a no-op when built without the "profile" tag.
func StopCPU() error { return nil }

// IsCPUActive always returns false when built without the "profile" tag.
func IsCPUActive() bool { return false }

// Write is a no-op when built without the "profile" tag.
func Write(Profile, string) error { return nil }

// WriteTo is a no-op when built without the "profile" tag.
func WriteTo(Profile, io.Writer) error { return nil }

// Start returns a stop function that does nothing.
func Start(string, string) (func() error, error) {
	return func() error { return nil }, nil
}
