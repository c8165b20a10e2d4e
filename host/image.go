package host

import (
	"fmt"

	"github.com/ardnew/nxboot/nsih"
	"github.com/ardnew/nxboot/pkg"
)

// ImageOptions selects how an input binary is packaged.
type ImageOptions struct {
	// Variant is the header to prepend. Verbatim sends the input as is,
	// patching only its payload size field.
	Variant nsih.Variant

	// Inject writes the header fields into space the input already reserves
	// at offset 0 instead of prepending a header. No trampoline is written.
	Inject bool

	LoadAddr     uint32
	LaunchAddr   uint32
	NextLoadAddr uint32
}

// DefaultImageOptions returns options for a verbatim image loaded and
// launched at the on-chip SRAM base.
func DefaultImageOptions() ImageOptions {
	return ImageOptions{
		Variant:    nsih.Verbatim,
		LoadAddr:   nsih.DefaultLoadAddr,
		LaunchAddr: nsih.DefaultLoadAddr,
	}
}

// TransferRequest is a packaged image ready for transmission.
type TransferRequest struct {
	Source     []byte       // input binary, not modified
	Header     nsih.Header  // fields written into Buffer
	HeaderSize int          // header size the payload size is computed against
	Offset     int          // offset of Source within Buffer
	Buffer     []byte       // bytes to send, len(Buffer) is the aligned total
	Options    ImageOptions // options the request was built with
}

// Total returns the aligned size of the buffer.
func (r *TransferRequest) Total() int {
	return len(r.Buffer)
}

// BuildImage packages input according to opts.
//
// With Header32 or Header64 the input is placed after a freshly encoded
// header of that variant. With Inject the input stays at offset 0 and the
// fields are written over its reserved header space; without a variant this
// assumes a 512-byte header. Verbatim images get only their payload size
// field updated. In every case the buffer is zero-padded to the aligned
// total and payload_size equals total minus the header size.
func BuildImage(input []byte, opts ImageOptions) (req *TransferRequest, err error) {
	if len(input) == 0 {
		return nil, pkg.ErrEmptyImage
	}

	hs := opts.Variant.Size()
	offset := hs
	if opts.Inject || opts.Variant == nsih.Verbatim {
		offset = 0
	}

	total := nsih.AlignedSize(offset+len(input), hs)
	buf := make([]byte, total)
	copy(buf[offset:], input)

	hdr := nsih.Header{
		NextLoadAddr: opts.NextLoadAddr,
		PayloadSize:  uint32(total - hs),
		LoadAddr:     opts.LoadAddr,
		LaunchAddr:   opts.LaunchAddr,
		Signature:    nsih.Signature,
	}

	switch {
	case opts.Inject:
		err = nsih.WriteFields(buf, &hdr)
	case opts.Variant == nsih.Verbatim:
		nsih.PutUint32At(buf, nsih.OffsetPayloadSize, hdr.PayloadSize)
		// the remaining fields are whatever the image carries
		if derr := nsih.Decode(buf, &hdr); derr != nil {
			pkg.LogWarn(pkg.ComponentPackager, "input carries no NSIH signature", "error", derr)
		}
	default:
		_, err = nsih.EncodeTo(buf, &hdr, opts.Variant)
	}
	if err != nil {
		return nil, fmt.Errorf("%s header: %w", opts.Variant, err)
	}

	pkg.LogDebug(pkg.ComponentPackager, "image built",
		"variant", opts.Variant, "inject", opts.Inject,
		"input", len(input), "total", total, "payload", hdr.PayloadSize)

	return &TransferRequest{
		Source:     input,
		Header:     hdr,
		HeaderSize: hs,
		Offset:     offset,
		Buffer:     buf,
		Options:    opts,
	}, nil
}
