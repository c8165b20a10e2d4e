//go:build linux && (mips || mipsle || mips64 || mips64le || ppc64 || ppc64le)

package linux

// MIPS and PowerPC ioctl direction encoding.
const (
	iocNone  = 1
	iocRead  = 2
	iocWrite = 4

	iocSizeBits = 13
)
