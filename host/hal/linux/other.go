//go:build !linux

package linux

import (
	"context"

	"github.com/ardnew/nxboot/host/hal"
	"github.com/ardnew/nxboot/pkg"
	"github.com/ardnew/nxboot/pkg/linux/usbid"
)

// Transport is unavailable on this platform; Open always fails.
type Transport struct{}

// Option configures a Transport.
type Option func(*Transport)

// WithRoots is accepted for API compatibility and has no effect.
func WithRoots(sysfs, devfs string) Option { return func(*Transport) {} }

// WithIDs is accepted for API compatibility and has no effect.
func WithIDs(db *usbid.Database) Option { return func(*Transport) {} }

// New returns a Transport whose Open reports pkg.ErrNotSupported.
func New(opts ...Option) *Transport { return &Transport{} }

// Open implements hal.Transport.
func (t *Transport) Open(ctx context.Context, vid, pid uint16) (hal.Device, error) {
	return nil, pkg.ErrNotSupported
}

// Close implements hal.Transport.
func (t *Transport) Close() error { return nil }
