// Package audit persists routing metadata to Postgres. Case payloads and model output are never stored.
package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"reasoncare-orchestrator/internal/common/database"
	"reasoncare-orchestrator/internal/models"
)

const defaultTable = "orchestration_runs"

// PostgresStore records one row per routed request.
type PostgresStore struct {
	db    *database.PostgresClient
	table string
	index string
}

func NewPostgresStore(db *database.PostgresClient, table string) *PostgresStore {
	if table == "" {
		table = defaultTable
	}
	return &PostgresStore{
		db:    db,
		table: pq.QuoteIdentifier(table),
		index: pq.QuoteIdentifier(table + "_request_id_idx"),
	}
}

// Migrate creates the run table when it does not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return s.db.Migrate(ctx,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id UUID PRIMARY KEY,
	request_id TEXT NOT NULL,
	request_type TEXT NOT NULL,
	status_code INTEGER NOT NULL,
	agents TEXT[] NOT NULL DEFAULT '{}',
	failed_agents TEXT[] NOT NULL DEFAULT '{}',
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	degraded BOOLEAN NOT NULL DEFAULT FALSE,
	error_code TEXT,
	started_at TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL
)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (request_id)`, s.index, s.table),
	)
}

func (s *PostgresStore) Record(ctx context.Context, run models.RunRecord) error {
	id := run.ID
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	query := fmt.Sprintf(`INSERT INTO %s
	(id, request_id, request_type, status_code, agents, failed_agents, confidence, degraded, error_code, started_at, duration_ms)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`, s.table)

	_, err := s.db.Exec(ctx, query,
		id,
		run.RequestID,
		string(run.RequestType),
		run.StatusCode,
		pq.Array(nonNil(run.Agents)),
		pq.Array(nonNil(run.FailedAgents)),
		run.Confidence,
		run.Degraded,
		nullable(run.ErrorCode),
		run.StartedAt,
		run.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.RequestID, err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
