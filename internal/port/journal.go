package port

import "github.com/vertextoedge/bulkfetch/internal/domain"

// BatchSummary aggregates journal rows for one orchestrator run.
type BatchSummary struct {
	Completed  int
	Failed     int
	TotalBytes uint64
}

// TransferJournal persists per-target transfer rows so interrupted or
// failed batches can be inspected after the fact. A transfer writes a
// row when it starts, throttled progress updates while streaming, and
// a final update at its terminal phase.
type TransferJournal interface {
	// RecordStart inserts or resets the row for (batchID, target).
	RecordStart(batchID string, state *domain.TransferState) error

	// RecordProgress updates phase, bytes and retry count mid-transfer.
	RecordProgress(batchID string, state *domain.TransferState) error

	// RecordOutcome stores the terminal phase for the target.
	RecordOutcome(batchID string, out domain.Outcome) error

	// Summary aggregates the batch after all targets are terminal.
	Summary(batchID string) (*BatchSummary, error)
}
