package laminar

import "sync/atomic"

// Façade lifecycle phases. Any log call outside PhaseInitialized is a
// silent no-op so host applications are never destabilized by logging
// during teardown races.
const (
	PhaseUninitialized int32 = iota
	PhaseInitialized
	PhaseClosing
	PhaseClosed
)

// State encapsulates the runtime state of a façade.
type State struct {
	phase atomic.Int32

	Processed      atomic.Uint64 // Records handed to delivery (inline or enqueued)
	RateLimited    atomic.Uint64 // Records rejected by the rate limiter
	Rejected       atomic.Uint64 // Records refused by a saturated dispatcher
	DeliveryPanics atomic.Uint64 // Recovered panics on the inline delivery path
}

// Phase returns the current lifecycle phase.
func (s *State) Phase() int32 {
	return s.phase.Load()
}

func (s *State) transition(from, to int32) bool {
	return s.phase.CompareAndSwap(from, to)
}
