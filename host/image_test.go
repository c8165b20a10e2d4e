package host

import (
	"bytes"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/nxboot/nsih"
	"github.com/ardnew/nxboot/pkg"
)

func sample(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i + 1)
	}
	return b
}

func TestBuildImage_Sizes(t *testing.T) {
	tests := []struct {
		name    string
		variant nsih.Variant
		input   int
		total   int
		payload uint32
		offset  int
	}{
		{"h32 small", nsih.Header32, 100, 624, 112, 512},
		{"h64 small", nsih.Header64, 100, 2160, 112, 2048},
		{"h32 aligned", nsih.Header32, 512, 1024, 512, 512},
		{"h32 one byte", nsih.Header32, 1, 528, 16, 512},
		{"verbatim", nsih.Verbatim, 1000, 1008, 496, 0},
		{"verbatim header only", nsih.Verbatim, 512, 528, 16, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := sample(tt.input)
			opts := DefaultImageOptions()
			opts.Variant = tt.variant

			req, err := BuildImage(in, opts)
			require.NoError(t, err)

			assert.Equal(t, tt.total, req.Total())
			assert.Zero(t, req.Total()%nsih.Alignment)
			assert.Equal(t, tt.payload, req.Header.PayloadSize)
			assert.Equal(t, tt.payload, nsih.PayloadSizeOf(req.Buffer))
			assert.Equal(t, tt.offset, req.Offset)
			assert.Equal(t, tt.variant.Size(), req.HeaderSize)
			assert.Equal(t, uint32(req.Total()-req.HeaderSize), req.Header.PayloadSize)

			if tt.variant != nsih.Verbatim {
				assert.Equal(t, in, req.Buffer[tt.offset:tt.offset+len(in)])
			}
			for _, b := range req.Buffer[tt.offset+len(in):] {
				if b != 0 {
					t.Fatalf("padding not zero: 0x%02X", b)
				}
			}
		})
	}
}

func TestBuildImage_Header32(t *testing.T) {
	req, err := BuildImage(sample(100), ImageOptions{
		Variant:      nsih.Header32,
		LoadAddr:     0x40100000,
		LaunchAddr:   0x40100200,
		NextLoadAddr: 8 * nsih.SectorSize,
	})
	require.NoError(t, err)

	var hdr nsih.Header
	require.NoError(t, nsih.Decode(req.Buffer, &hdr))
	assert.Equal(t, uint32(0x40100000), hdr.LoadAddr)
	assert.Equal(t, uint32(0x40100200), hdr.LaunchAddr)
	assert.Equal(t, uint32(4096), hdr.NextLoadAddr)
	assert.Equal(t, uint32(112), hdr.PayloadSize)
	assert.Equal(t, hdr, req.Header)
}

func TestBuildImage_Inject(t *testing.T) {
	in := sample(1000)
	req, err := BuildImage(in, ImageOptions{
		Variant:    nsih.Header32,
		Inject:     true,
		LoadAddr:   0xFFFF0000,
		LaunchAddr: 0xFFFF0000,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, req.Offset)
	assert.Equal(t, 1008, req.Total())
	assert.Equal(t, uint32(496), req.Header.PayloadSize)

	var hdr nsih.Header
	require.NoError(t, nsih.Decode(req.Buffer, &hdr))
	assert.Equal(t, uint32(0xFFFF0000), hdr.LoadAddr)

	// bytes outside the header fields are the input's own
	assert.Equal(t, in[:nsih.OffsetNextLoadAddr], req.Buffer[:nsih.OffsetNextLoadAddr])
	assert.Equal(t, in[nsih.OffsetSignature+4:], req.Buffer[nsih.OffsetSignature+4:len(in)])
	assert.NotSame(t, &in[0], &req.Buffer[0], "input is copied")
}

func TestBuildImage_InjectShortInput(t *testing.T) {
	_, err := BuildImage(sample(10), ImageOptions{Variant: nsih.Header32, Inject: true})
	require.NoError(t, err, "short input is padded before injection")

	_, err = BuildImage(sample(10), ImageOptions{Variant: nsih.Header64, Inject: true})
	require.NoError(t, err)
}

func TestBuildImage_Verbatim(t *testing.T) {
	src := make([]byte, 600)
	require.NoError(t, nsih.WriteFields(src, &nsih.Header{PayloadSize: 9999, LoadAddr: 0x40000000, LaunchAddr: 0x40000100}))

	req, err := BuildImage(src, DefaultImageOptions())
	require.NoError(t, err)

	assert.Equal(t, 608, req.Total())
	assert.Equal(t, uint32(96), nsih.PayloadSizeOf(req.Buffer))
	assert.Equal(t, uint32(0x40000000), req.Header.LoadAddr, "fields come from the image")
	assert.Equal(t, uint32(9999), nsih.PayloadSizeOf(src), "source untouched")
}

func TestBuildImage_VerbatimUnsigned(t *testing.T) {
	var logs bytes.Buffer
	pkg.SetLogOutput(&logs, pkg.LogFormatText)
	pkg.SetLogLevel(slog.LevelWarn)
	t.Cleanup(func() { pkg.SetLogOutput(os.Stderr, pkg.LogFormatText) })

	signed := make([]byte, 600)
	require.NoError(t, nsih.WriteFields(signed, &nsih.Header{LoadAddr: 0x40000000}))
	_, err := BuildImage(signed, DefaultImageOptions())
	require.NoError(t, err)
	assert.NotContains(t, logs.String(), "no NSIH signature")

	req, err := BuildImage(sample(600), DefaultImageOptions())
	require.NoError(t, err, "unsigned input is still sent")
	assert.Equal(t, 608, req.Total())
	assert.Equal(t, uint32(96), nsih.PayloadSizeOf(req.Buffer))
	assert.Contains(t, logs.String(), "input carries no NSIH signature")
	assert.Contains(t, logs.String(), "component=packager")
}

func TestBuildImage_Empty(t *testing.T) {
	_, err := BuildImage(nil, DefaultImageOptions())
	assert.ErrorIs(t, err, pkg.ErrEmptyImage)
}

func BenchmarkBuildImage(b *testing.B) {
	in := sample(64 * 1024)
	opts := ImageOptions{Variant: nsih.Header32, LoadAddr: nsih.DefaultLoadAddr, LaunchAddr: nsih.DefaultLoadAddr}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := BuildImage(in, opts); err != nil {
			b.Fatal(err)
		}
	}
}
