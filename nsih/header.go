package nsih

import (
	"fmt"

	"github.com/ardnew/nxboot/pkg"
)

// Signature is the magic word "NSIH" read as a little-endian uint32.
const Signature uint32 = 0x4849534E

// Field offsets within the header.
const (
	OffsetTrampoline   = 0x000
	OffsetStub64       = 0x05C
	OffsetNextLoadAddr = 0x040
	OffsetPayloadSize  = 0x044
	OffsetLoadAddr     = 0x048
	OffsetLaunchAddr   = 0x04C
	OffsetSignature    = 0x1FC
)

// Header sizes in bytes.
const (
	// HeaderSize is the size of the field-carrying part of every header and
	// the size the device engine receives in its header phase.
	HeaderSize = 512

	// HeaderSize64 is the size of the 64-bit variant, whose payload is linked
	// at +0x800.
	HeaderSize64 = 2048
)

// Alignment is the granularity of the total image size.
const Alignment = 16

// DefaultLoadAddr is the load and launch address used when none is given.
const DefaultLoadAddr uint32 = 0xFFFF0000

// SectorSize converts the next-load sector number to a byte address.
const SectorSize = 512

// Variant selects the header layout.
type Variant uint8

// Header variants.
const (
	Verbatim Variant = iota // image already carries a header
	Header32                // 512-byte header with a single branch to +0x200
	Header64                // 2048-byte header with an AArch64 warm-reset stub
)

// String returns the variant name.
func (v Variant) String() string {
	switch v {
	case Verbatim:
		return "verbatim"
	case Header32:
		return "h32"
	case Header64:
		return "h64"
	default:
		return fmt.Sprintf("Variant(%d)", uint8(v))
	}
}

// Size returns the header size for the variant. A verbatim image is assumed
// to carry a 512-byte header.
func (v Variant) Size() int {
	if v == Header64 {
		return HeaderSize64
	}
	return HeaderSize
}

// Header holds the decoded header fields.
type Header struct {
	NextLoadAddr uint32 // address hint for a chained download stage
	PayloadSize  uint32 // total image size minus header size
	LoadAddr     uint32 // address the payload is placed at
	LaunchAddr   uint32 // address execution jumps to after load
	Signature    uint32 // must equal Signature
}

// Valid reports whether the signature matches.
func (h *Header) Valid() bool {
	return h.Signature == Signature
}

// String returns a human-readable summary of the header.
func (h *Header) String() string {
	return fmt.Sprintf("NSIH[load=0x%08X launch=0x%08X size=%d next=0x%08X]",
		h.LoadAddr, h.LaunchAddr, h.PayloadSize, h.NextLoadAddr)
}

// Uint32At reads a little-endian uint32 at off. It returns 0 if b is too short.
func Uint32At(b []byte, off int) uint32 {
	if off < 0 || len(b) < off+4 {
		return 0
	}
	return uint32(b[off]) |
		uint32(b[off+1])<<8 |
		uint32(b[off+2])<<16 |
		uint32(b[off+3])<<24
}

// PutUint32At writes v as little-endian at off. It is a no-op if b is too short.
func PutUint32At(b []byte, off int, v uint32) {
	if off < 0 || len(b) < off+4 {
		return
	}
	b[off] = byte(v)
	b[off+1] = byte(v >> 8)
	b[off+2] = byte(v >> 16)
	b[off+3] = byte(v >> 24)
}

// PayloadSizeOf returns the payload size field of a received header.
func PayloadSizeOf(b []byte) uint32 {
	return Uint32At(b, OffsetPayloadSize)
}

// WriteFields writes the address and size fields and the signature into b
// without touching any other byte. b must hold at least HeaderSize bytes.
func WriteFields(b []byte, h *Header) error {
	if len(b) < HeaderSize {
		return pkg.ErrBufferTooSmall
	}
	PutUint32At(b, OffsetNextLoadAddr, h.NextLoadAddr)
	PutUint32At(b, OffsetPayloadSize, h.PayloadSize)
	PutUint32At(b, OffsetLoadAddr, h.LoadAddr)
	PutUint32At(b, OffsetLaunchAddr, h.LaunchAddr)
	PutUint32At(b, OffsetSignature, Signature)
	return nil
}

// EncodeTo zero-fills the first v.Size() bytes of buf and writes the header
// for variant v. Returns the number of bytes written.
func EncodeTo(buf []byte, h *Header, v Variant) (int, error) {
	n := v.Size()
	if len(buf) < n {
		return 0, pkg.ErrBufferTooSmall
	}
	clear(buf[:n])
	if err := WriteFields(buf, h); err != nil {
		return 0, err
	}
	writeTrampoline(buf, v)
	return n, nil
}

// Encode returns a newly allocated header for variant v.
func Encode(h *Header, v Variant) []byte {
	buf := make([]byte, v.Size())
	_, _ = EncodeTo(buf, h, v)
	return buf
}

// Decode parses a header from b into out. Only the first HeaderSize bytes are
// examined, so a 64-bit header decodes the same way as a 32-bit one.
// Returns ErrInvalidHeader if b is too short or the signature does not match.
func Decode(b []byte, out *Header) error {
	if len(b) < HeaderSize {
		return fmt.Errorf("%w: %d bytes", pkg.ErrInvalidHeader, len(b))
	}
	out.NextLoadAddr = Uint32At(b, OffsetNextLoadAddr)
	out.PayloadSize = Uint32At(b, OffsetPayloadSize)
	out.LoadAddr = Uint32At(b, OffsetLoadAddr)
	out.LaunchAddr = Uint32At(b, OffsetLaunchAddr)
	out.Signature = Uint32At(b, OffsetSignature)
	if !out.Valid() {
		return fmt.Errorf("%w: signature 0x%08X", pkg.ErrInvalidHeader, out.Signature)
	}
	return nil
}

// AlignedSize rounds n up to a multiple of Alignment. A result that does not
// exceed headerSize is raised to headerSize+Alignment so that the payload
// size field is never zero; the boot ROM refuses to run an empty image.
func AlignedSize(n, headerSize int) int {
	if n < 0 {
		n = 0
	}
	size := (n + Alignment - 1) / Alignment * Alignment
	if size <= headerSize {
		size = headerSize + Alignment
	}
	return size
}
