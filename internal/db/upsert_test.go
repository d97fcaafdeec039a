package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(nil, nil, UpsertConfig{
		Table:        "semantic_cache",
		Columns:      []string{"seed", "tail", "label"},
		ConflictKeys: []string{"seed", "tail"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(nil, nil, UpsertConfig{
		Table:        "semantic_cache",
		ConflictKeys: []string{"seed", "tail"},
	}, [][]any{{"s", "t", "valid"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(nil, nil, UpsertConfig{
		Table:   "semantic_cache",
		Columns: []string{"seed", "tail", "label"},
	}, [][]any{{"s", "t", "valid"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestQuoteAndJoin(t *testing.T) {
	result := quoteAndJoin([]string{"seed", "tail", "label"})
	assert.Equal(t, `"seed", "tail", "label"`, result)
}
