package prof

import "testing"

func TestParseProfile(t *testing.T) {
	tests := []struct {
		name    string
		want    Profile
		wantErr bool
	}{
		{"cpu", ProfileCPU, false},
		{"HEAP", ProfileHeap, false},
		{"Mutex", ProfileMutex, false},
		{"threads", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseProfile(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseProfile(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseProfile(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestStart_Disabled(t *testing.T) {
	if Enabled {
		t.Skip("built with profiling")
	}
	stop, err := Start("unused.prof", "")
	if err != nil || stop() != nil {
		t.Errorf("Start() without profiling should be a no-op, got %v", err)
	}
	if IsCPUActive() {
		t.Error("IsCPUActive() = true without profiling")
	}
}
