//go:build linux && !mips && !mipsle && !mips64 && !mips64le && !ppc64 && !ppc64le

package linux

// asm-generic ioctl direction encoding.
const (
	iocNone  = 0
	iocWrite = 1
	iocRead  = 2

	iocSizeBits = 14
)
