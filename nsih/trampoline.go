package nsih

// Branch32 is "b 0x200", the single instruction at offset 0 of a Header32
// image. It jumps over the header to the payload.
const Branch32 uint32 = 0xEA00007E

// armBranchSelf is "b .".
const armBranchSelf uint32 = 0xEAFFFFFE

// Vectors64 occupies offset 0 of a Header64 image. The reset vector branches
// to the AArch32 stub at OffsetStub64; the remaining vectors spin.
var Vectors64 = [8]uint32{
	0xEA000015, // b 0x5c
	armBranchSelf,
	armBranchSelf,
	armBranchSelf,
	armBranchSelf,
	armBranchSelf,
	armBranchSelf,
	armBranchSelf,
}

// Stub64 occupies OffsetStub64 of a Header64 image. It runs in AArch32,
// points every core's reset vector at the image base plus 0x800, then
// requests a warm reset into AArch64 through RMR. Unused words are zero.
var Stub64 = [54]uint32{
	0xE24F0064, // 0x5c: sub   r0, pc, #0x64        image base
	0xE2801B02, // 0x60: add   r1, r0, #0x800       AArch64 entry
	0xE1A01121, // 0x64: lsr   r1, r1, #2
	0xE59F2028, // 0x68: ldr   r2, [pc, #0x28]      =RVBARADDR0
	0xE3A03008, // 0x6c: mov   r3, #8
	0xE4821004, // 0x70: str   r1, [r2], #4
	0xE2533001, // 0x74: subs  r3, r3, #1
	0x1AFFFFFC, // 0x78: bne   0x70
	0xF57FF04F, // 0x7c: dsb   sy
	0xEE1C0F50, // 0x80: mrc   p15, 0, r0, c12, c0, 2
	0xE3800003, // 0x84: orr   r0, r0, #3           AA64 | RR
	0xEE0C0F50, // 0x88: mcr   p15, 0, r0, c12, c0, 2
	0xF57FF06F, // 0x8c: isb   sy
	0xE320F003, // 0x90: wfi
	0xEAFFFFFD, // 0x94: b     0x90
	0xC001113C, // 0x98: tieoff RVBARADDR0
}

func writeTrampoline(buf []byte, v Variant) {
	switch v {
	case Header32:
		PutUint32At(buf, OffsetTrampoline, Branch32)
	case Header64:
		for i, w := range Vectors64 {
			PutUint32At(buf, OffsetTrampoline+4*i, w)
		}
		for i, w := range Stub64 {
			PutUint32At(buf, OffsetStub64+4*i, w)
		}
	}
}
