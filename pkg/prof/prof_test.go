//go:build profile

package prof

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestStartCPU(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cpu.prof")

	if err := StartCPU(path); err != nil {
		t.Fatalf("StartCPU() error = %v", err)
	}
	if !IsCPUActive() {
		t.Error("IsCPUActive() = false, want true")
	}

	err := StartCPU(filepath.Join(t.TempDir(), "cpu2.prof"))
	if !errors.Is(err, ErrCPUProfileActive) {
		t.Errorf("second StartCPU() error = %v, want %v", err, ErrCPUProfileActive)
	}

	if err := StopCPU(); err != nil {
		t.Errorf("StopCPU() error = %v", err)
	}
	if IsCPUActive() {
		t.Error("IsCPUActive() after StopCPU = true")
	}
	if err := StopCPU(); err != nil {
		t.Errorf("StopCPU() when inactive error = %v", err)
	}
}

func TestStartCPU_InvalidPath(t *testing.T) {
	if err := StartCPU("/nonexistent/directory/cpu.prof"); err == nil {
		t.Error("StartCPU() error = nil, want error for invalid path")
		StopCPU()
	}
}

func TestWriteTo(t *testing.T) {
	for _, p := range []Profile{ProfileHeap, ProfileAllocs, ProfileGoroutine, ProfileBlock, ProfileMutex} {
		var buf bytes.Buffer
		if err := WriteTo(p, &buf); err != nil {
			t.Errorf("WriteTo(%s) error = %v", p, err)
			continue
		}
		if buf.Len() == 0 {
			t.Errorf("WriteTo(%s) wrote nothing", p)
		}
	}

	var buf bytes.Buffer
	if err := WriteTo(ProfileCPU, &buf); !errors.Is(err, ErrInvalidProfile) {
		t.Errorf("WriteTo(cpu) error = %v, want %v", err, ErrInvalidProfile)
	}
	if err := WriteTo(Profile("bogus"), &buf); !errors.Is(err, ErrInvalidProfile) {
		t.Errorf("WriteTo(bogus) error = %v, want %v", err, ErrInvalidProfile)
	}
}

func TestStart(t *testing.T) {
	dir := t.TempDir()
	cpu := filepath.Join(dir, "cpu.prof")
	heap := filepath.Join(dir, "heap.prof")

	stop, err := Start(cpu, heap)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := stop(); err != nil {
		t.Fatalf("stop() error = %v", err)
	}

	for _, path := range []string{cpu, heap} {
		if fi, err := os.Stat(path); err != nil || fi.Size() == 0 {
			t.Errorf("%s not written: %v", filepath.Base(path), err)
		}
	}
}
