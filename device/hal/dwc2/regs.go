package dwc2

// Global register offsets.
const (
	regGAHBCFG   = 0x008
	regGUSBCFG   = 0x00C
	regGRSTCTL   = 0x010
	regGINTSTS   = 0x014
	regGINTMSK   = 0x018
	regGRXSTSP   = 0x020
	regGRXFSIZ   = 0x024
	regGNPTXFSIZ = 0x028
	regGNPTXSTS  = 0x02C
)

// Device register offsets.
const (
	regDCFG     = 0x800
	regDCTL     = 0x804
	regDSTS     = 0x808
	regDIEPMSK  = 0x810
	regDOEPMSK  = 0x814
	regDAINT    = 0x818
	regDAINTMSK = 0x81C
)

// NumEndpoints is the number of endpoint register sets per direction.
const NumEndpoints = 16

func regDIEPCTL(ep uint8) uint32  { return 0x900 + 0x20*uint32(ep&0x0F) }
func regDIEPINT(ep uint8) uint32  { return 0x908 + 0x20*uint32(ep&0x0F) }
func regDIEPTSIZ(ep uint8) uint32 { return 0x910 + 0x20*uint32(ep&0x0F) }
func regDOEPCTL(ep uint8) uint32  { return 0xB00 + 0x20*uint32(ep&0x0F) }
func regDOEPINT(ep uint8) uint32  { return 0xB08 + 0x20*uint32(ep&0x0F) }
func regDOEPTSIZ(ep uint8) uint32 { return 0xB10 + 0x20*uint32(ep&0x0F) }
func regFIFO(ep uint8) uint32     { return 0x1000 + 0x1000*uint32(ep&0x0F) }

// GRSTCTL bits.
const (
	grstctlCoreSoftReset uint32 = 1 << 0
	grstctlAHBIdle       uint32 = 1 << 31
)

// GAHBCFG: slave mode, single burst, global interrupt unmask.
const gahbcfgInit uint32 = 1 << 0

// GUSBCFG: TxFIFO rewind, turnaround 5, 16-bit UTMI+, HS/FS timeout 7.
const gusbcfgInit uint32 = 1<<14 | 5<<10 | 1<<3 | 7<<0

// GINTSTS current mode bit; zero means device mode.
const gintstsHostMode uint32 = 1 << 0

// DCTL bits.
const dctlSoftDisconnect uint32 = 1 << 1

// DCFG bits.
const (
	dcfgInit      uint32 = 1 << 18
	dcfgAddrShift        = 4
	dcfgAddrMask  uint32 = 0x7F << dcfgAddrShift
)

// DSTS enumerated speed field.
const (
	dstsSpeedMask  uint32 = 0x6
	dstsSpeedShift        = 1
)

// DxEPCTL bits.
const (
	depctlEnable    uint32 = 1 << 31
	depctlSetNAK    uint32 = 1 << 27
	depctlClearNAK  uint32 = 1 << 26
	depctlStall     uint32 = 1 << 21
	depctlTypeBulk  uint32 = 2 << 18
	depctlActive    uint32 = 1 << 15
	depctlNextShift        = 11
)

// EP0 max packet size field encodings.
const (
	ep0MPS64 uint32 = 0
	ep0MPS8  uint32 = 3
)

// DxEPTSIZ fields.
const (
	deptsizPacketCount1 uint32 = 1 << 19
	doeptsizSetupCount1 uint32 = 1 << 29
)

// Endpoint interrupt masks.
const (
	doepmskInit uint32 = 1<<3 | 1<<2 | 1<<0 // setup done, AHB error, transfer done
	diepmskInit uint32 = 1<<4 | 1<<3 | 1<<2 | 1<<0
)

// FIFO sizing in 32-bit words.
const (
	rxFIFOSize     uint32 = 512
	nptxFIFOSize   uint32 = 512
	nptxFIFOStart  uint32 = 512
	nptxSpaceMask  uint32 = 0xFFFF
	grxstspEPMask  uint32 = 0xF
	grxstspCntMask uint32 = 0x7FF0
	grxstspCntPos         = 4
	grxstspStsPos         = 17
	grxstspStsMask uint32 = 0xF
)
