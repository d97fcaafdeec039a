package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/adscope/suggest-triage/internal/db"
	"github.com/adscope/suggest-triage/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection
// for the hot store operations.
var preparedStatements = map[string]string{
	"insert_run":   `INSERT INTO runs (id, seed, language, country, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
	"complete_run": `UPDATE runs SET stats = $1, status = $2, updated_at = $3 WHERE id = $4`,
	"fail_run":     `UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
	"get_run":      `SELECT id, seed, language, country, status, stats, created_at, updated_at FROM runs WHERE id = $1`,
	"get_cache":    `SELECT seed, tail, label, confidence, reason FROM semantic_cache WHERE seed = $1 AND tail = $2`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wires an existing pool, mainly for tests.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	seed       TEXT NOT NULL,
	language   TEXT NOT NULL,
	country    TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	stats      JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS outcomes (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	position   INTEGER NOT NULL,
	candidate  TEXT NOT NULL,
	tail       TEXT NOT NULL,
	label      TEXT NOT NULL,
	stage      TEXT NOT NULL,
	reason     TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	signals    JSONB,
	dropped    BOOLEAN NOT NULL DEFAULT false,
	PRIMARY KEY (run_id, position)
);

CREATE TABLE IF NOT EXISTS semantic_cache (
	seed       TEXT NOT NULL,
	tail       TEXT NOT NULL,
	label      TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	reason     TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (seed, tail)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_seed ON runs(seed);
CREATE INDEX IF NOT EXISTS idx_outcomes_label ON outcomes(run_id, label);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, seed, language, country string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, seed, language, country, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, seed, language, country, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Seed:      seed,
		Language:  language,
		Country:   country,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, stats *model.BatchStats) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal stats")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET stats = $1, status = $2, updated_at = $3 WHERE id = $4`,
		statsJSON, string(model.RunStatusComplete), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(model.RunStatusFailed), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, seed, language, country, status, stats, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	)
	return scanPgRun(row)
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, seed, language, country, status, stats, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $1`
	}
	if filter.Seed != "" {
		args = append(args, filter.Seed)
		query += ` AND seed = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) InsertOutcomes(ctx context.Context, runID string, outcomes []model.Outcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(outcomes))
	for i, o := range outcomes {
		signalsJSON, err := json.Marshal(o.Signals)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal signals")
		}
		rows = append(rows, []any{
			runID, i, o.Candidate, o.Tail, string(o.Label), o.Stage, o.Reason,
			o.Confidence, signalsJSON, o.Dropped,
		})
	}

	_, err := db.CopyFrom(ctx, s.pool, "outcomes",
		[]string{"run_id", "position", "candidate", "tail", "label", "stage", "reason", "confidence", "signals", "dropped"},
		rows,
	)
	return eris.Wrapf(err, "postgres: insert outcomes for run %s", runID)
}

func (s *PostgresStore) ListOutcomes(ctx context.Context, runID string) ([]model.Outcome, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT candidate, tail, label, stage, reason, confidence, signals, dropped
		 FROM outcomes WHERE run_id = $1 ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list outcomes")
	}
	defer rows.Close()

	var out []model.Outcome
	for rows.Next() {
		var o model.Outcome
		var signalsJSON []byte
		if err := rows.Scan(&o.Candidate, &o.Tail, &o.Label, &o.Stage, &o.Reason,
			&o.Confidence, &signalsJSON, &o.Dropped); err != nil {
			return nil, eris.Wrap(err, "postgres: scan outcome")
		}
		if len(signalsJSON) > 0 && string(signalsJSON) != "null" {
			if err := json.Unmarshal(signalsJSON, &o.Signals); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal signals")
			}
		}
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list outcomes iterate")
}

func (s *PostgresStore) GetSemanticCache(ctx context.Context, seed, tail string) (*CacheRow, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT seed, tail, label, confidence, reason FROM semantic_cache WHERE seed = $1 AND tail = $2`,
		seed, tail,
	)

	var cr CacheRow
	err := row.Scan(&cr.Seed, &cr.Tail, &cr.Label, &cr.Confidence, &cr.Reason)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get semantic cache")
	}
	return &cr, nil
}

func (s *PostgresStore) UpsertSemanticCache(ctx context.Context, cacheRows []CacheRow) error {
	if len(cacheRows) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(cacheRows))
	for _, r := range cacheRows {
		rows = append(rows, []any{r.Seed, r.Tail, string(r.Label), r.Confidence, r.Reason, now})
	}

	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "semantic_cache",
		Columns:      []string{"seed", "tail", "label", "confidence", "reason", "updated_at"},
		ConflictKeys: []string{"seed", "tail"},
	}, rows)
	return eris.Wrap(err, "postgres: upsert semantic cache")
}

func (s *PostgresStore) ClearSemanticCache(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM semantic_cache`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: clear semantic cache")
	}
	return int(tag.RowsAffected()), nil
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var statsJSON []byte

	err := row.Scan(&r.ID, &r.Seed, &r.Language, &r.Country, &r.Status, &statsJSON, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan run")
	}

	if len(statsJSON) > 0 && string(statsJSON) != "null" {
		r.Stats = &model.BatchStats{}
		if err := json.Unmarshal(statsJSON, r.Stats); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal stats")
		}
	}
	return &r, nil
}

