//go:build !linux

package laminar

// freeSystemMemory has no portable probe outside linux; callers fall
// back to their single-slot default.
func freeSystemMemory() (uint64, bool) {
	return 0, false
}
