// Package nsih encodes and decodes the NSIH boot header that prefixes every
// image sent over the USB download protocol.
//
// The header is a fixed-layout little-endian record. Fields are always
// accessed through byte-wise fixed-offset helpers ([Uint32At], [PutUint32At]),
// never through a struct overlay, so the encoding is independent of host byte
// order and alignment:
//
//	Offset  Field
//	0x000   trampoline (header variants only; 64-bit variant also at 0x05C)
//	0x040   next load address
//	0x044   payload size (total image size minus header size)
//	0x048   load address
//	0x04C   launch address
//	0x1FC   signature "NSIH"
//
// Two header variants exist: [Header32] (512 bytes, payload linked at +0x200)
// and [Header64] (2048 bytes, payload linked at +0x800). [Verbatim] describes
// an image that already carries its own header.
//
// # Example
//
//	h := nsih.Header{LoadAddr: 0xffff0000, LaunchAddr: 0xffff0000, PayloadSize: 112}
//	buf := nsih.Encode(&h, nsih.Header32)
//
//	var got nsih.Header
//	if err := nsih.Decode(buf, &got); err != nil {
//	    // signature mismatch
//	}
package nsih
