// Package prof wraps [runtime/pprof] for the loader command's profiling
// flags. It is conditionally compiled using the "profile" build tag:
//
//	go build -tags profile ./cmd/loader
//
// Without the tag every function is a no-op and [Enabled] is false, so the
// flags can stay wired in release builds at no cost.
//
// A command run brackets its work with [Start]:
//
//	stop, err := prof.Start("cpu.prof", "heap.prof")
//	if err != nil {
//	    return err
//	}
//	defer stop()
//
// [ProfileCPU] streams samples for the whole session; every other profile is
// a point-in-time snapshot taken with [Write] or [WriteTo].
package prof
