// Package store persists optimization artifacts. Each record holds the best
// genome and run statistics for one (agent, phase) pair; saving again
// overwrites the prior record, so the store always reflects the latest run.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/XiaoConstantine/textevo-go/pkg/core"
	"github.com/XiaoConstantine/textevo-go/pkg/errors"
	"github.com/XiaoConstantine/textevo-go/pkg/logging"
)

// SQLiteStore is a SQLite-backed artifact store. The path ":memory:" creates
// an in-memory database, which the tests rely on.
type SQLiteStore struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string

	initialized sync.Once
}

// NewSQLiteStore opens (and if needed creates) the artifact database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.StoreFailed, "failed to open SQLite database"),
			errors.Fields{"path": path},
		)
	}

	store := &SQLiteStore{
		db:   db,
		path: path,
	}
	if err := store.ensureInitialized(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) ensureInitialized() error {
	var initErr error
	s.initialized.Do(func() {
		// WAL mode for better concurrency
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			initErr = errors.Wrap(err, errors.StoreFailed, "failed to enable WAL mode")
			return
		}

		query := `
        CREATE TABLE IF NOT EXISTS phase_results (
            agent TEXT NOT NULL,
            phase TEXT NOT NULL,
            genome TEXT NOT NULL,
            score REAL NOT NULL,
            generations INTEGER NOT NULL,
            calls_consumed INTEGER NOT NULL,
            degraded INTEGER NOT NULL DEFAULT 0,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            PRIMARY KEY (agent, phase)
        );

        CREATE INDEX IF NOT EXISTS idx_phase_results_agent
        ON phase_results(agent);
        `

		if _, err := s.db.Exec(query); err != nil {
			initErr = errors.Wrap(err, errors.StoreFailed, "failed to initialize database")
			return
		}
	})
	return initErr
}

// SavePhase upserts the record for one (agent, phase) pair.
func (s *SQLiteStore) SavePhase(ctx context.Context, agent, phase string, result core.PhaseResult) error {
	if err := s.ensureInitialized(); err != nil {
		return err
	}
	if result.BestGenome == nil {
		return errors.WithFields(
			errors.New(errors.InvalidInput, "phase result carries no genome"),
			errors.Fields{"agent": agent, "phase": phase},
		)
	}

	genomeJSON, err := json.Marshal(result.BestGenome)
	if err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.InvalidInput, "failed to marshal genome to JSON"),
			errors.Fields{"agent": agent, "phase": phase},
		)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, errors.StoreFailed, "failed to begin transaction")
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			logging.GetLogger().Error(ctx, "failed to rollback transaction: %v", err)
		}
	}()

	query := `
    INSERT INTO phase_results (agent, phase, genome, score, generations, calls_consumed, degraded, updated_at)
    VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
    ON CONFLICT(agent, phase) DO UPDATE SET
        genome = excluded.genome,
        score = excluded.score,
        generations = excluded.generations,
        calls_consumed = excluded.calls_consumed,
        degraded = excluded.degraded,
        updated_at = CURRENT_TIMESTAMP
    `

	degraded := 0
	if result.Degraded {
		degraded = 1
	}
	_, err = tx.ExecContext(ctx, query, agent, phase, string(genomeJSON),
		result.Score, result.Generations, result.CallsConsumed, degraded)
	if err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.StoreFailed, "failed to store phase result"),
			errors.Fields{"agent": agent, "phase": phase},
		)
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, errors.StoreFailed, "failed to commit transaction")
	}
	return nil
}

// SaveRun persists every phase of a finished run under the agent's name.
func (s *SQLiteStore) SaveRun(ctx context.Context, agent string, result *core.OptimizationResult) error {
	if result == nil {
		return errors.New(errors.InvalidInput, "result is required")
	}
	for phase, pr := range result.PerPhase {
		if pr.BestGenome == nil {
			// A phase cut short by budget or cancellation may carry no
			// winner; skip it rather than fail the whole save.
			continue
		}
		if err := s.SavePhase(ctx, agent, phase, pr); err != nil {
			return err
		}
	}
	return nil
}

// LoadPhase returns the stored record for one (agent, phase) pair.
func (s *SQLiteStore) LoadPhase(ctx context.Context, agent, phase string) (core.PhaseResult, error) {
	if err := s.ensureInitialized(); err != nil {
		return core.PhaseResult{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		genomeJSON string
		result     core.PhaseResult
		degraded   int
	)
	query := `SELECT genome, score, generations, calls_consumed, degraded
              FROM phase_results WHERE agent = ? AND phase = ?`

	err := s.db.QueryRowContext(ctx, query, agent, phase).Scan(
		&genomeJSON, &result.Score, &result.Generations, &result.CallsConsumed, &degraded)
	if err == sql.ErrNoRows {
		return core.PhaseResult{}, errors.WithFields(
			errors.New(errors.ResourceNotFound, "no stored result"),
			errors.Fields{"agent": agent, "phase": phase},
		)
	}
	if err != nil {
		return core.PhaseResult{}, errors.WithFields(
			errors.Wrap(err, errors.StoreFailed, "failed to load phase result"),
			errors.Fields{"agent": agent, "phase": phase},
		)
	}

	genome := &core.Genome{}
	if err := json.Unmarshal([]byte(genomeJSON), genome); err != nil {
		return core.PhaseResult{}, errors.WithFields(
			errors.Wrap(err, errors.StoreFailed, "failed to unmarshal stored genome"),
			errors.Fields{"agent": agent, "phase": phase},
		)
	}
	result.BestGenome = genome
	result.Degraded = degraded != 0
	return result, nil
}

// ListPhases returns the phase names stored for an agent, oldest first.
func (s *SQLiteStore) ListPhases(ctx context.Context, agent string) ([]string, error) {
	if err := s.ensureInitialized(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT phase FROM phase_results WHERE agent = ? ORDER BY created_at", agent)
	if err != nil {
		return nil, errors.Wrap(err, errors.StoreFailed, "failed to list phases")
	}
	defer rows.Close()

	var phases []string
	for rows.Next() {
		var phase string
		if err := rows.Scan(&phase); err != nil {
			return nil, errors.Wrap(err, errors.StoreFailed, "failed to scan phase name")
		}
		phases = append(phases, phase)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.StoreFailed, "error iterating rows")
	}
	return phases, nil
}

// DeleteAgent removes every record stored for an agent.
func (s *SQLiteStore) DeleteAgent(ctx context.Context, agent string) error {
	if err := s.ensureInitialized(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM phase_results WHERE agent = ?", agent); err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.StoreFailed, "failed to delete agent records"),
			errors.Fields{"agent": agent},
		)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		return errors.Wrap(err, errors.StoreFailed, "failed to close database connection")
	}
	return nil
}
