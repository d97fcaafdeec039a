package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adscope/suggest-triage/internal/model"
	"github.com/adscope/suggest-triage/internal/semantic"
)

func newMockStore(t *testing.T) (pgxmock.PgxPoolIface, *PostgresStore) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewPostgresWithPool(mock)
}

func TestPostgresCreateRun(t *testing.T) {
	mock, s := newMockStore(t)

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(pgxmock.AnyArg(), "ремонт пылесосов", "ru", "by", "running", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), "ремонт пылесосов", "ru", "by")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFailRunNotFound(t *testing.T) {
	mock, s := newMockStore(t)

	mock.ExpectExec(`UPDATE runs SET status`).
		WithArgs("failed", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.FailRun(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsertOutcomesUsesCopy(t *testing.T) {
	mock, s := newMockStore(t)

	mock.ExpectCopyFrom(pgx.Identifier{"outcomes"},
		[]string{"run_id", "position", "candidate", "tail", "label", "stage", "reason", "confidence", "signals", "dropped"}).
		WillReturnResult(2)

	outcomes := []model.Outcome{
		{Candidate: "a", Label: model.LabelValid, Stage: "signals", Confidence: 0.9},
		{Candidate: "b", Label: model.LabelTrash, Stage: "geo", Confidence: 0.95},
	}
	require.NoError(t, s.InsertOutcomes(context.Background(), "run-1", outcomes))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetSemanticCacheMiss(t *testing.T) {
	mock, s := newMockStore(t)

	mock.ExpectQuery(`SELECT seed, tail, label, confidence, reason FROM semantic_cache`).
		WithArgs("seed", "tail").
		WillReturnError(pgx.ErrNoRows)

	row, err := s.GetSemanticCache(context.Background(), "seed", "tail")
	require.NoError(t, err)
	assert.Nil(t, row)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetSemanticCacheHit(t *testing.T) {
	mock, s := newMockStore(t)

	mock.ExpectQuery(`SELECT seed, tail, label, confidence, reason FROM semantic_cache`).
		WithArgs("seed", "tail").
		WillReturnRows(pgxmock.NewRows([]string{"seed", "tail", "label", "confidence", "reason"}).
			AddRow("seed", "tail", "valid", 0.8, "sim"))

	row, err := s.GetSemanticCache(context.Background(), "seed", "tail")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, semantic.Entry{Label: model.LabelValid, Confidence: 0.8, Reason: "sim"}, row.Entry)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresClearSemanticCache(t *testing.T) {
	mock, s := newMockStore(t)

	mock.ExpectExec(`DELETE FROM semantic_cache`).
		WillReturnResult(pgxmock.NewResult("DELETE", 7))

	n, err := s.ClearSemanticCache(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
