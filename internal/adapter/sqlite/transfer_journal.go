package sqlite

import (
	"database/sql"

	"github.com/vertextoedge/bulkfetch/internal/domain"
	"github.com/vertextoedge/bulkfetch/internal/port"
)

// RecordStart inserts or resets the journal row for (batchID, target).
// A transfer restarted within the same batch reuses its row.
func (s *Store) RecordStart(batchID string, state *domain.TransferState) error {
	query := `
		INSERT INTO transfers (batch_id, name, url, total_size, bytes_completed, phase, retry_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(batch_id, name) DO UPDATE SET
			total_size = excluded.total_size,
			bytes_completed = excluded.bytes_completed,
			phase = excluded.phase,
			retry_count = excluded.retry_count,
			last_error = NULL,
			updated_at = datetime('now')
	`

	_, err := s.db.Exec(query,
		batchID, state.Target.Name, state.Target.URL,
		state.TotalSize, state.BytesCompleted, string(state.Phase), state.RetryCount)
	return err
}

// RecordProgress updates phase, byte count and retry count mid-transfer.
func (s *Store) RecordProgress(batchID string, state *domain.TransferState) error {
	query := `
		UPDATE transfers
		SET bytes_completed = ?,
			phase = ?,
			retry_count = ?,
			updated_at = datetime('now')
		WHERE batch_id = ? AND name = ?
	`

	_, err := s.db.Exec(query,
		state.BytesCompleted, string(state.Phase), state.RetryCount,
		batchID, state.Target.Name)
	return err
}

// RecordOutcome stores the terminal phase for the target.
func (s *Store) RecordOutcome(batchID string, out domain.Outcome) error {
	var lastError sql.NullString
	if out.Err != nil {
		lastError = sql.NullString{String: out.Err.Error(), Valid: true}
	}

	query := `
		UPDATE transfers
		SET total_size = ?,
			bytes_completed = ?,
			phase = ?,
			retry_count = ?,
			last_error = ?,
			updated_at = datetime('now')
		WHERE batch_id = ? AND name = ?
	`

	_, err := s.db.Exec(query,
		out.TotalSize, out.BytesCompleted, string(out.Phase), out.Retries,
		lastError, batchID, out.Target.Name)
	return err
}

// Summary aggregates the batch after all targets are terminal.
func (s *Store) Summary(batchID string) (*port.BatchSummary, error) {
	query := `
		SELECT
			COUNT(CASE WHEN phase = ? THEN 1 END),
			COUNT(CASE WHEN phase = ? THEN 1 END),
			COALESCE(SUM(bytes_completed), 0)
		FROM transfers
		WHERE batch_id = ?
	`

	summary := &port.BatchSummary{}
	err := s.db.QueryRow(query,
		string(domain.PhaseCompleted), string(domain.PhaseFailed), batchID).
		Scan(&summary.Completed, &summary.Failed, &summary.TotalBytes)
	if err != nil {
		return nil, err
	}

	return summary, nil
}
