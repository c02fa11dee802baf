package laminar

// Stats is a point-in-time snapshot of the engine's counters. Values
// are read with relaxed ordering so a snapshot taken under load is
// approximate, not a consistent cut.
type Stats struct {
	// Processed counts records accepted past routing and rate checks.
	Processed uint64
	// Dropped counts records discarded by full async queues or drain.
	Dropped uint64
	// Rejected counts Enqueue calls that returned false.
	Rejected uint64
	// RateLimited counts records refused by the rate limiter.
	RateLimited uint64
	// SinkWriteErrors counts failed batch writes across all sinks.
	SinkWriteErrors uint64
	// SinkFormatErrors counts records a formatter failed on.
	SinkFormatErrors uint64
	// WorkerPanics counts recovered panics in the delivery path,
	// async workers and inline routing alike.
	WorkerPanics uint64
}

// Stats returns a snapshot aggregated over the logger, its sinks and
// its dispatcher.
func (l *Logger) Stats() Stats {
	st := Stats{
		Processed:    l.state.Processed.Load(),
		Rejected:     l.state.Rejected.Load(),
		RateLimited:  l.state.RateLimited.Load(),
		WorkerPanics: l.state.DeliveryPanics.Load(),
	}
	for _, s := range l.router.Sinks() {
		st.SinkWriteErrors += s.WriteErrors()
		st.SinkFormatErrors += s.FormatErrors()
	}
	if l.dispatcher != nil {
		st.Dropped = l.dispatcher.Dropped()
		st.WorkerPanics += l.dispatcher.WorkerPanics()
	}
	return st
}
