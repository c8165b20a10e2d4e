package dwc2

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/ardnew/nxboot/device/hal"
	"github.com/ardnew/nxboot/pkg"
)

// fakeRegs is a register file with just enough behavior for the controller:
// GRSTCTL reports AHB idle, GINTSTS is write-one-to-clear, GRXSTSP and the
// FIFO windows are queues.
type fakeRegs struct {
	mem      map[uint32]uint32
	rxStatus []uint32
	rxWords  []uint32
	txWords  map[uint32][]uint32
	writes   []uint32
	busy     bool
}

func newFakeRegs() *fakeRegs {
	return &fakeRegs{
		mem:     map[uint32]uint32{regGNPTXSTS: 0xFFFF},
		txWords: map[uint32][]uint32{},
	}
}

func (f *fakeRegs) Read32(off uint32) uint32 {
	switch {
	case off == regGRSTCTL:
		if f.busy {
			return 0
		}
		return grstctlAHBIdle
	case off == regGRXSTSP:
		if len(f.rxStatus) == 0 {
			return 0
		}
		v := f.rxStatus[0]
		f.rxStatus = f.rxStatus[1:]
		return v
	case off >= 0x1000:
		if len(f.rxWords) == 0 {
			return 0
		}
		v := f.rxWords[0]
		f.rxWords = f.rxWords[1:]
		return v
	}
	return f.mem[off]
}

func (f *fakeRegs) Write32(off, v uint32) {
	f.writes = append(f.writes, off)
	switch {
	case off == regGINTSTS:
		f.mem[off] &^= v
	case off >= 0x1000:
		f.txWords[off] = append(f.txWords[off], v)
	default:
		f.mem[off] = v
	}
}

func newTestController(regs *fakeRegs) *Controller {
	return New(regs, WithDelay(func(time.Duration) {}), WithSpinLimit(16))
}

type countingPHY struct{ on, off int }

func (p *countingPHY) PowerOn() error  { p.on++; return nil }
func (p *countingPHY) PowerOff() error { p.off++; return nil }

func TestPowerOn(t *testing.T) {
	regs := newFakeRegs()
	regs.mem[regDCTL] = 0x4
	phy := &countingPHY{}
	c := New(regs, WithPHY(phy), WithDelay(func(time.Duration) {}))

	if err := c.PowerOn(); err != nil {
		t.Fatalf("PowerOn() error = %v", err)
	}
	if phy.on != 1 {
		t.Errorf("PHY PowerOn calls = %d, want 1", phy.on)
	}
	if got := regs.mem[regGUSBCFG]; got != gusbcfgInit {
		t.Errorf("GUSBCFG = 0x%08X, want 0x%08X", got, gusbcfgInit)
	}
	if got := regs.mem[regDCTL]; got != 0x4 {
		t.Errorf("DCTL = 0x%08X, want soft disconnect released", got)
	}
	if got := regs.mem[regDCFG]; got != dcfgInit {
		t.Errorf("DCFG = 0x%08X, want 0x%08X", got, dcfgInit)
	}
	if got := hal.Interrupt(regs.mem[regGINTMSK]); got != hal.IntDevice {
		t.Errorf("GINTMSK = 0x%08X, want 0x%08X", uint32(got), uint32(hal.IntDevice))
	}

	if err := c.PowerOff(); err != nil || phy.off != 1 {
		t.Errorf("PowerOff() = %v, calls = %d", err, phy.off)
	}
}

func TestCoreResetTimeout(t *testing.T) {
	regs := newFakeRegs()
	regs.busy = true
	c := newTestController(regs)
	if err := c.CoreReset(); !errors.Is(err, pkg.ErrTimeout) {
		t.Errorf("CoreReset() error = %v, want ErrTimeout", err)
	}
}

func TestPopReceiveStatus(t *testing.T) {
	regs := newFakeRegs()
	regs.rxStatus = []uint32{
		6<<17 | 8<<4 | 0,   // setup, 8 bytes, ep0
		2<<17 | 512<<4 | 2, // out data, 512 bytes, ep2
	}
	c := newTestController(regs)

	tests := []hal.ReceiveStatus{
		{Status: hal.PacketSetupData, Endpoint: 0, ByteCount: 8},
		{Status: hal.PacketOutData, Endpoint: 2, ByteCount: 512},
	}
	for i, want := range tests {
		if got := c.PopReceiveStatus(); got != want {
			t.Errorf("PopReceiveStatus() #%d = %+v, want %+v", i, got, want)
		}
	}
}

func TestReadFIFOPartialWord(t *testing.T) {
	regs := newFakeRegs()
	regs.rxWords = []uint32{0x04030201, 0x08070605}
	c := newTestController(regs)

	buf := make([]byte, 6)
	c.ReadFIFO(2, buf)
	if want := []byte{1, 2, 3, 4, 5, 6}; !bytes.Equal(buf, want) {
		t.Errorf("ReadFIFO() = % X, want % X", buf, want)
	}
	if len(regs.rxWords) != 0 {
		t.Errorf("ReadFIFO left %d words in the FIFO", len(regs.rxWords))
	}
}

func TestWriteFIFO(t *testing.T) {
	regs := newFakeRegs()
	c := newTestController(regs)

	if err := c.WriteFIFO(0, []byte{0x12, 0x01, 0x00, 0x02, 0xFF}); err != nil {
		t.Fatalf("WriteFIFO() error = %v", err)
	}
	got := regs.txWords[regFIFO(0)]
	want := []uint32{0x02000112, 0x000000FF}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("FIFO words = %08X, want %08X", got, want)
	}

	regs.mem[regGNPTXSTS] = 0
	if err := c.WriteFIFO(0, []byte{1}); !errors.Is(err, pkg.ErrTimeout) {
		t.Errorf("WriteFIFO(full) error = %v, want ErrTimeout", err)
	}
}

func TestSetAddressKeepsSpeed(t *testing.T) {
	regs := newFakeRegs()
	regs.mem[regDSTS] = 1 << 1 // full speed
	c := newTestController(regs)

	if got := c.EnumeratedSpeed(); got != hal.EnumSpeedFull {
		t.Fatalf("EnumeratedSpeed() = %d, want %d", got, hal.EnumSpeedFull)
	}
	c.SetAddress(0x15)
	if got, want := regs.mem[regDCFG], uint32(1<<18|0x15<<4|1); got != want {
		t.Errorf("DCFG = 0x%08X, want 0x%08X", got, want)
	}
}

func TestBusReset(t *testing.T) {
	regs := newFakeRegs()
	regs.mem[regDCFG] = dcfgInit | 0x15<<4
	c := newTestController(regs)

	c.BusReset()

	if got := regs.mem[regDCFG]; got != dcfgInit {
		t.Errorf("DCFG = 0x%08X, want address cleared", got)
	}
	if got := regs.mem[regGRXFSIZ]; got != 512 {
		t.Errorf("GRXFSIZ = %d, want 512", got)
	}
	if got := regs.mem[regGNPTXFSIZ]; got != 512<<16|512 {
		t.Errorf("GNPTXFSIZ = 0x%08X", got)
	}
	if got := regs.mem[regDAINTMSK]; got != 0x00050003 {
		t.Errorf("DAINTMSK = 0x%08X, want 0x00050003", got)
	}
	for ep := uint8(0); ep < NumEndpoints; ep++ {
		want := depctlSetNAK | depctlEnable | depctlClearNAK
		if got := regs.mem[regDOEPCTL(ep)]; got != want {
			t.Errorf("DOEPCTL%d = 0x%08X, want 0x%08X", ep, got, want)
		}
	}
}

func TestConfigureEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		cfg     hal.EndpointConfig
		reg     uint32
		want    uint32
		wantErr error
	}{
		{
			name: "ep0 high speed",
			cfg:  hal.EndpointConfig{Address: 0x00, Attributes: hal.TransferControl, MaxPacketSize: 64},
			reg:  regDOEPCTL(0),
			want: depctlEnable | depctlClearNAK | ep0MPS64,
		},
		{
			name: "ep0 full speed",
			cfg:  hal.EndpointConfig{Address: 0x00, Attributes: hal.TransferControl, MaxPacketSize: 8},
			reg:  regDIEPCTL(0),
			want: depctlClearNAK | ep0MPS8,
		},
		{
			name: "bulk out",
			cfg:  hal.EndpointConfig{Address: 0x02, Attributes: hal.TransferBulk, MaxPacketSize: 512},
			reg:  regDOEPCTL(2),
			want: depctlEnable | depctlClearNAK | depctlTypeBulk | depctlActive | 512,
		},
		{
			name: "bulk in",
			cfg:  hal.EndpointConfig{Address: 0x81, Attributes: hal.TransferBulk, MaxPacketSize: 64},
			reg:  regDIEPCTL(1),
			want: depctlClearNAK | depctlTypeBulk | depctlActive | 64,
		},
		{
			name:    "control on ep3",
			cfg:     hal.EndpointConfig{Address: 0x03, Attributes: hal.TransferControl, MaxPacketSize: 64},
			wantErr: pkg.ErrInvalidParameter,
		},
		{
			name:    "interrupt",
			cfg:     hal.EndpointConfig{Address: 0x83, Attributes: 0x03, MaxPacketSize: 8},
			wantErr: pkg.ErrNotSupported,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			regs := newFakeRegs()
			c := newTestController(regs)
			err := c.ConfigureEndpoint(tt.cfg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ConfigureEndpoint() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ConfigureEndpoint() error = %v", err)
			}
			if got := regs.mem[tt.reg]; got != tt.want {
				t.Errorf("reg 0x%03X = 0x%08X, want 0x%08X", tt.reg, got, tt.want)
			}
		})
	}
}

func TestArmAndStall(t *testing.T) {
	regs := newFakeRegs()
	c := newTestController(regs)
	_ = c.ConfigureEndpoint(hal.EndpointConfig{Address: 0x00, Attributes: hal.TransferControl, MaxPacketSize: 8})
	_ = c.ConfigureEndpoint(hal.EndpointConfig{Address: 0x02, Attributes: hal.TransferBulk, MaxPacketSize: 64})

	c.ArmIn(0, 8)
	if got := regs.mem[regDIEPTSIZ(0)]; got != 1<<19|8 {
		t.Errorf("DIEPTSIZ0 = 0x%08X, want 0x%08X", got, uint32(1<<19|8))
	}
	if got := regs.mem[regDIEPCTL(0)]; got != depctlEnable|depctlClearNAK|ep0MPS8 {
		t.Errorf("DIEPCTL0 = 0x%08X", got)
	}

	c.Stall(0)
	if regs.mem[regDIEPCTL(0)]&depctlStall == 0 {
		t.Error("Stall(0) did not set the stall bit")
	}

	c.ArmOut(2, 40)
	if got := regs.mem[regDOEPTSIZ(2)]; got != 1<<19|40 {
		t.Errorf("DOEPTSIZ2 = 0x%08X", got)
	}

	c.ArmSetup()
	if got := regs.mem[regDOEPTSIZ(0)]; got != 1<<29|1<<19|8 {
		t.Errorf("DOEPTSIZ0 = 0x%08X", got)
	}

	c.ArmControl(64)
	if got := regs.mem[regDIEPCTL(0)]; got != depctlClearNAK|ep0MPS64 {
		t.Errorf("DIEPCTL0 after ArmControl = 0x%08X", got)
	}

	c.NakIn(1)
	if got := regs.mem[regDIEPCTL(1)]; got != depctlSetNAK|depctlTypeBulk {
		t.Errorf("DIEPCTL1 = 0x%08X", got)
	}
}

func TestInterruptAck(t *testing.T) {
	regs := newFakeRegs()
	regs.mem[regGINTSTS] = uint32(hal.IntReset | hal.IntRxFIFO)
	c := newTestController(regs)

	st := c.InterruptStatus()
	if !st.Has(hal.IntReset | hal.IntRxFIFO) {
		t.Fatalf("InterruptStatus() = 0x%08X", uint32(st))
	}
	c.AckInterrupts(hal.IntReset)
	if got := c.InterruptStatus(); got != hal.IntRxFIFO {
		t.Errorf("InterruptStatus() after ack = 0x%08X, want 0x%08X", uint32(got), uint32(hal.IntRxFIFO))
	}
}
