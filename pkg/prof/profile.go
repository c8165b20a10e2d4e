package prof

import (
	"fmt"
	"strings"
)

// Profile names a pprof profile.
type Profile string

// Profile names understood by [Write] and [WriteTo].
const (
	ProfileCPU       Profile = "cpu"
	ProfileHeap      Profile = "heap"
	ProfileAllocs    Profile = "allocs"
	ProfileGoroutine Profile = "goroutine"
	ProfileBlock     Profile = "block"
	ProfileMutex     Profile = "mutex"
)

var profiles = [...]Profile{
	ProfileCPU, ProfileHeap, ProfileAllocs, ProfileGoroutine, ProfileBlock, ProfileMutex,
}

// String returns the profile name.
func (p Profile) String() string {
	return string(p)
}

// ParseProfile returns the profile called name, ignoring case.
func ParseProfile(name string) (Profile, error) {
	for _, p := range profiles {
		if strings.EqualFold(name, string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown profile %q", name)
}
