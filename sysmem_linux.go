//go:build linux

package laminar

import "syscall"

// freeSystemMemory reports free physical memory in bytes.
func freeSystemMemory() (uint64, bool) {
	var info syscall.Sysinfo_t
	if err := syscall.Sysinfo(&info); err != nil {
		return 0, false
	}
	return uint64(info.Freeram) * uint64(info.Unit), true
}
