// package repositories provides the SQLite persistence layer: the credential store and the sync history.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
)

// NextSequence returns the next sequence number for table within tx.
//
// Sequence numbers provide human-readable ordering for rows (e.g. sync #42) independent of UUIDs.
// The caller must insert the row in the same transaction so concurrent writers cannot reuse a value.
func NextSequence(ctx context.Context, tx *sql.Tx, table string) (int, error) {
	var sequence int
	err := tx.QueryRowContext(ctx, fmt.Sprintf("SELECT COALESCE(MAX(seq), 0) + 1 FROM %s", table)).Scan(&sequence)
	if err != nil {
		return 0, fmt.Errorf("failed to get sequence value: %w", err)
	}
	return sequence, nil
}
