package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/melon/internal/models"
	"github.com/desertthunder/melon/internal/shared"
)

// ErrSyncRunNotFound is returned by [SyncRunRepository.Get] for unknown ids.
var ErrSyncRunNotFound = errors.New("sync run not found")

const syncRunColumns = `
	id, seq, video_title, source_url, candidate_count, matched_count,
	playlist_url, error, matched_json, created_at
`

// SyncRunRepository persists the sync history.
type SyncRunRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSyncRunRepository creates a new SyncRunRepository with the given database connection
func NewSyncRunRepository(db *sql.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db, now: time.Now}
}

// Record inserts run with a generated ID, sequence and creation time, and writes them back into run.
func (r *SyncRunRepository) Record(ctx context.Context, run *models.SyncRun) error {
	matched := run.Matched
	if matched == nil {
		matched = []models.MatchedSong{}
	}
	matchedJSON, err := json.Marshal(matched)
	if err != nil {
		return fmt.Errorf("failed to encode matched songs: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	seq, err := NextSequence(ctx, tx, "sync_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	createdAt := r.now().UTC()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sync_runs (`+syncRunColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		seq,
		run.VideoTitle,
		run.SourceURL,
		run.CandidateCount,
		run.MatchedCount,
		run.PlaylistURL,
		run.Error,
		string(matchedJSON),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sync run: %w", err)
	}

	run.ID = id
	run.Seq = seq
	run.CreatedAt = createdAt
	return nil
}

// Get retrieves a sync run by ID.
func (r *SyncRunRepository) Get(ctx context.Context, id string) (*models.SyncRun, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+syncRunColumns+` FROM sync_runs WHERE id = ?`, id)
	run, err := scanSyncRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSyncRunNotFound, id)
	}
	return run, err
}

// List returns the most recent runs first. A limit of zero or less returns every run.
func (r *SyncRunRepository) List(ctx context.Context, limit int) ([]*models.SyncRun, error) {
	query := `SELECT ` + syncRunColumns + ` FROM sync_runs ORDER BY seq DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	runs := []*models.SyncRun{}
	for rows.Next() {
		run, err := scanSyncRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync runs: %w", err)
	}
	return runs, nil
}

// Delete removes a sync run by ID.
func (r *SyncRunRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sync_runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete sync run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrSyncRunNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSyncRun(s scanner) (*models.SyncRun, error) {
	var (
		run         models.SyncRun
		matchedJSON string
	)
	err := s.Scan(
		&run.ID,
		&run.Seq,
		&run.VideoTitle,
		&run.SourceURL,
		&run.CandidateCount,
		&run.MatchedCount,
		&run.PlaylistURL,
		&run.Error,
		&matchedJSON,
		&run.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan sync run: %w", err)
	}

	if err := json.Unmarshal([]byte(matchedJSON), &run.Matched); err != nil {
		return nil, fmt.Errorf("failed to decode matched songs for %s: %w", run.ID, err)
	}
	return &run, nil
}
