package sim_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/nxboot/device"
	devhal "github.com/ardnew/nxboot/device/hal"
	"github.com/ardnew/nxboot/device/hal/sim"
	"github.com/ardnew/nxboot/host"
	"github.com/ardnew/nxboot/nsih"
	"github.com/ardnew/nxboot/pkg"
)

type download struct {
	n   int
	err error
}

func run(ctx context.Context, eng *device.Engine, dst []byte) <-chan download {
	done := make(chan download, 1)
	go func() {
		n, err := eng.Download(ctx, dst)
		done <- download{n, err}
	}()
	return done
}

func input(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(0xA5 ^ i)
	}
	return b
}

func TestLoopback(t *testing.T) {
	tests := []struct {
		name        string
		speed       devhal.Speed
		opts        host.ImageOptions
		requested   int
		transferred int
		payload     int
		// offset of the input within the received payload, -1 to skip
		inputAt int
	}{
		{
			name:        "h32 high speed",
			speed:       devhal.SpeedHigh,
			opts:        host.ImageOptions{Variant: nsih.Header32, LoadAddr: nsih.DefaultLoadAddr, LaunchAddr: nsih.DefaultLoadAddr},
			requested:   624,
			transferred: 624,
			payload:     112,
			inputAt:     0,
		},
		{
			name:        "h32 full speed",
			speed:       devhal.SpeedFull,
			opts:        host.ImageOptions{Variant: nsih.Header32, LoadAddr: nsih.DefaultLoadAddr, LaunchAddr: nsih.DefaultLoadAddr},
			requested:   624,
			transferred: 624,
			payload:     112,
			inputAt:     0,
		},
		{
			// the device reads one 512-byte header and then payload_size
			// bytes, so most of a 2048-byte header's image is never taken
			name:        "h64 comes up short",
			speed:       devhal.SpeedHigh,
			opts:        host.ImageOptions{Variant: nsih.Header64, LoadAddr: nsih.DefaultLoadAddr, LaunchAddr: nsih.DefaultLoadAddr},
			requested:   2160,
			transferred: 1024,
			payload:     112,
			inputAt:     -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			in := input(100)
			req, err := host.BuildImage(in, tt.opts)
			require.NoError(t, err)
			require.Equal(t, tt.requested, req.Total())

			ctl := sim.New()
			dst := make([]byte, 4096)
			done := run(ctx, device.NewEngine(ctl), dst)

			res, err := host.Transmit(ctx, sim.NewTransport(ctl, tt.speed), req.Buffer, host.DefaultTransmitOptions())
			require.NoError(t, err)
			assert.Equal(t, tt.requested, res.Requested)
			assert.Equal(t, tt.transferred, res.Transferred)
			assert.Equal(t, tt.transferred < tt.requested, res.Short())

			var d download
			select {
			case d = <-done:
			case <-ctx.Done():
				t.Fatal("device did not finish")
			}
			require.NoError(t, d.err)
			assert.Equal(t, tt.payload, d.n)
			if tt.inputAt >= 0 {
				assert.Equal(t, in, dst[tt.inputAt:tt.inputAt+len(in)])
			}
		})
	}
}

func TestLoopback_Identity(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ctl := sim.New()
	vid, pid := device.IdentityFromECID(0x2375_0001)
	done := run(ctx, device.NewEngine(ctl, device.WithIdentity(vid, pid)), make([]byte, 1024))

	_, err := host.Transmit(ctx, sim.NewTransport(ctl, devhal.SpeedHigh), make([]byte, 528), host.DefaultTransmitOptions())
	require.ErrorIs(t, err, pkg.ErrDeviceNotFound)

	opts := host.DefaultTransmitOptions()
	opts.VID, opts.PID = vid, pid
	req, err := host.BuildImage(input(16), host.ImageOptions{Variant: nsih.Header32})
	require.NoError(t, err)

	res, err := host.Transmit(ctx, sim.NewTransport(ctl, devhal.SpeedHigh), req.Buffer, opts)
	require.NoError(t, err)
	assert.False(t, res.Short())

	d := <-done
	require.NoError(t, d.err)
	assert.Equal(t, 16, d.n)
}

func TestTransport_Device(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ctl := sim.New()
	done := run(ctx, device.NewEngine(ctl), make([]byte, 1024))

	tr := sim.NewTransport(ctl, devhal.SpeedHigh)
	defer tr.Close()
	dev, err := tr.Open(ctx, device.DefaultVendorID, device.DefaultProductID)
	require.NoError(t, err)
	defer dev.Close()

	info := dev.Info()
	assert.Equal(t, "001:007 04e8:1234 simulated", info.String())
	assert.ErrorIs(t, dev.ClaimInterface(32), pkg.ErrClaimInterface)
	assert.NoError(t, dev.ClaimInterface(0))
	assert.NoError(t, dev.ReleaseInterface(0))
	assert.Equal(t, uint8(sim.DefaultAddress), ctl.Address())

	cancel()
	d := <-done
	assert.ErrorIs(t, d.err, pkg.ErrCancelled)
}
