package judge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adscope/suggest-triage/internal/model"
)

func TestParseDecision(t *testing.T) {
	d, err := parseDecision("VALID\nthe tail narrows the intent")
	require.NoError(t, err)
	assert.Equal(t, model.LabelValid, d.Label)
	assert.Equal(t, "the tail narrows the intent", d.Reason)

	d, err = parseDecision("trash\noff-topic")
	require.NoError(t, err)
	assert.Equal(t, model.LabelTrash, d.Label)

	d, err = parseDecision("GRAY")
	require.NoError(t, err)
	assert.Equal(t, model.LabelGrey, d.Label)
	assert.Equal(t, "judge decision", d.Reason)
}

func TestParseDecisionRejectsUnknownLabel(t *testing.T) {
	_, err := parseDecision("MAYBE\nwho knows")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown label")

	_, err = parseDecision("")
	assert.Error(t, err)
}
