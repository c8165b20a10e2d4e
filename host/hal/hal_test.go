package hal

import (
	"testing"
)

// =============================================================================
// Speed Tests
// =============================================================================

func TestSpeed_String(t *testing.T) {
	tests := []struct {
		speed    Speed
		expected string
	}{
		{SpeedUnknown, "Unknown"},
		{SpeedLow, "Low Speed"},
		{SpeedFull, "Full Speed"},
		{SpeedHigh, "High Speed"},
		{Speed(255), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.speed.String(); got != tt.expected {
				t.Errorf("Speed(%d).String() = %q, want %q", tt.speed, got, tt.expected)
			}
		})
	}
}

// =============================================================================
// DeviceInfo Tests
// =============================================================================

func TestDeviceInfo_String(t *testing.T) {
	tests := []struct {
		name string
		info DeviceInfo
		want string
	}{
		{
			name: "unnamed",
			info: DeviceInfo{VendorID: 0x04e8, ProductID: 0x1234, Bus: 1, Address: 7},
			want: "001:007 04e8:1234",
		},
		{
			name: "named",
			info: DeviceInfo{VendorID: 0x04e8, ProductID: 0x1234, Bus: 3, Address: 12, Name: "Samsung Electronics Co., Ltd"},
			want: "003:012 04e8:1234 Samsung Electronics Co., Ltd",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.String(); got != tt.want {
				t.Errorf("DeviceInfo.String() = %q, want %q", got, tt.want)
			}
		})
	}
}
