//go:build profile

package prof

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/pprof"
	"sync"
)

// Enabled reports whether profiling support is compiled in.
const Enabled = true

// Profiling errors.
var (
	// ErrCPUProfileActive indicates CPU profiling is already active.
	ErrCPUProfileActive = errors.New("cpu profile already active")

	// ErrInvalidProfile indicates an invalid or unsupported profile type.
	ErrInvalidProfile = errors.New("invalid profile")
)

var (
	cpuMutex  sync.Mutex
	cpuFile   *os.File
	cpuActive bool
)

// StartCPU starts CPU profiling into the file at path.
// Returns [ErrCPUProfileActive] if CPU profiling is already active.
func StartCPU(path string) error {
	cpuMutex.Lock()
	defer cpuMutex.Unlock()

	if cpuActive {
		return ErrCPUProfileActive
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return err
	}

	cpuFile = f
	cpuActive = true
	return nil
}

// StopCPU stops CPU profiling and closes its file. It is safe to call when
// profiling is not active.
func StopCPU() error {
	cpuMutex.Lock()
	defer cpuMutex.Unlock()

	if !cpuActive {
		return nil
	}
	pprof.StopCPUProfile()
	cpuActive = false

	err := cpuFile.Close()
	cpuFile = nil
	return err
}

// IsCPUActive reports whether CPU profiling is currently active.
func IsCPUActive() bool {
	cpuMutex.Lock()
	defer cpuMutex.Unlock()
	return cpuActive
}

// Write writes a snapshot of profile to the file at path.
func Write(profile Profile, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteTo(profile, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteTo writes a snapshot of profile to w in protobuf format.
// [ProfileCPU] is rejected; it streams through [StartCPU] instead.
func WriteTo(profile Profile, w io.Writer) error {
	if profile == ProfileCPU {
		return fmt.Errorf("%w: %s is not a snapshot", ErrInvalidProfile, profile)
	}
	p := pprof.Lookup(string(profile))
	if p == nil {
		return fmt.Errorf("%w: %s", ErrInvalidProfile, profile)
	}
	return p.WriteTo(w, 0)
}

// Start begins a profiling session for one command run. CPU samples go to
// cpuPath when it is not empty. The returned stop ends CPU profiling and,
// when heapPath is not empty, writes a heap snapshot there.
func Start(cpuPath, heapPath string) (stop func() error, err error) {
	if cpuPath != "" {
		if err := StartCPU(cpuPath); err != nil {
			return nil, err
		}
	}
	return func() error {
		err := StopCPU()
		if heapPath != "" {
			err = errors.Join(err, Write(ProfileHeap, heapPath))
		}
		return err
	}, nil
}
