// Package pkg provides shared utilities for the nxboot download tools.
//
// This package contains common functionality used by both the device engine
// and the host loader, including:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel error values and an operation-tagged error wrapper
//   - Component identifiers for log filtering
//
// # Logging
//
// The logging subsystem wraps [log/slog] with per-component context:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentSession, "header received", "payload", 112)
//
// # Errors
//
// Protocol and transport failures are reported as sentinel values, optionally
// wrapped in an [OpError] naming the failed operation:
//
//	if errors.Is(err, pkg.ErrDeviceNotFound) {
//	    // no board in download mode
//	}
package pkg
