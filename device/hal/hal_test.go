package hal

import "testing"

func TestSpeedFromEnum(t *testing.T) {
	tests := []struct {
		code uint32
		want Speed
	}{
		{0, SpeedHigh},
		{1, SpeedFull},
		{2, SpeedUnknown},
		{3, SpeedUnknown},
	}

	for _, tt := range tests {
		if got := SpeedFromEnum(tt.code); got != tt.want {
			t.Errorf("SpeedFromEnum(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestSpeedString(t *testing.T) {
	if got := SpeedHigh.String(); got != "High Speed" {
		t.Errorf("SpeedHigh.String() = %q", got)
	}
	if got := SpeedFull.String(); got != "Full Speed" {
		t.Errorf("SpeedFull.String() = %q", got)
	}
	if got := Speed(9).String(); got != "Unknown" {
		t.Errorf("Speed(9).String() = %q", got)
	}
}

func TestEndpointBits(t *testing.T) {
	if got := InEndpointBit(1); got != 0x00000002 {
		t.Errorf("InEndpointBit(1) = 0x%08X, want 0x00000002", got)
	}
	if got := OutEndpointBit(2); got != 0x00040000 {
		t.Errorf("OutEndpointBit(2) = 0x%08X, want 0x00040000", got)
	}
	if got := OutEndpointBit(0x82); got != 0x00040000 {
		t.Errorf("OutEndpointBit(0x82) = 0x%08X, want direction bit ignored", got)
	}
}

func TestInterruptHas(t *testing.T) {
	st := IntReset | IntRxFIFO
	if !st.Has(IntReset) {
		t.Error("Has(IntReset) = false, want true")
	}
	if st.Has(IntReset | IntEnumDone) {
		t.Error("Has(IntReset|IntEnumDone) = true, want false")
	}
	if IntDevice&IntRxFIFO == 0 || IntDevice&IntWakeup == 0 {
		t.Error("IntDevice missing serviced bits")
	}
}

func TestInterruptAny(t *testing.T) {
	tests := []struct {
		st   Interrupt
		mask Interrupt
		want bool
	}{
		{IntInEP, IntInEP | IntOutEP, true},
		{IntOutEP, IntInEP | IntOutEP, true},
		{IntInEP | IntOutEP, IntInEP | IntOutEP, true},
		{IntRxFIFO, IntInEP | IntOutEP, false},
		{0, IntReset, false},
	}
	for _, tt := range tests {
		if got := tt.st.Any(tt.mask); got != tt.want {
			t.Errorf("Interrupt(0x%08X).Any(0x%08X) = %v, want %v", uint32(tt.st), uint32(tt.mask), got, tt.want)
		}
	}
}

func TestPacketStatusString(t *testing.T) {
	tests := []struct {
		p    PacketStatus
		want string
	}{
		{PacketOutData, "out-data"},
		{PacketSetupData, "setup-data"},
		{PacketSetupComplete, "setup-complete"},
		{PacketStatus(5), "reserved(5)"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("PacketStatus(%d).String() = %q, want %q", tt.p, got, tt.want)
		}
	}
}

func TestEndpointConfig(t *testing.T) {
	in := EndpointConfig{Address: 0x81, Attributes: TransferBulk, MaxPacketSize: 512}
	if !in.IsIn() || in.Number() != 1 || in.TransferType() != TransferBulk {
		t.Errorf("EndpointConfig %+v decoded wrong", in)
	}
	out := EndpointConfig{Address: 0x02, Attributes: TransferBulk}
	if out.IsIn() || out.Number() != 2 {
		t.Errorf("EndpointConfig %+v decoded wrong", out)
	}
}
