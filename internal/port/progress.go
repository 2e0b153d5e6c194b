package port

// ProgressSink consumes byte-delta events from transfer workers.
// Implementations must serialize concurrent calls: events for one
// target arrive in order, but calls for different targets interleave
// from multiple workers.
type ProgressSink interface {
	// InitTotal establishes a target's total at probe time (0 for
	// unknown) and seeds the display with bytes already present in
	// the temp directory.
	InitTotal(name string, total, initial uint64)

	// Advance reports delta more bytes written for the target.
	Advance(name string, delta uint64)

	// Restart resets the target's completed count to zero after a
	// policy-driven restart (server refused to honor a resume).
	Restart(name string)

	// Finalize reconciles the target to its true total on completion.
	Finalize(name string, total uint64)

	// Close flushes the sink after all targets reach a terminal phase.
	Close() error
}
