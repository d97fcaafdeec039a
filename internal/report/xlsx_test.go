package report

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/adscope/suggest-triage/internal/model"
)

func sampleOutcomes() []model.Outcome {
	return []model.Outcome{
		{
			Candidate:  "ремонт пылесосов минск",
			Tail:       "минск",
			Label:      model.LabelValid,
			Stage:      "signals",
			Reason:     "geo entity in target country",
			Confidence: 0.95,
			Signals: []model.Signal{
				{Name: "geo_entity", Weight: 1.0, Polarity: model.PolarityPositive},
			},
		},
		{
			Candidate:  "доставка цветов",
			Label:      model.LabelTrash,
			Stage:      "tail",
			Reason:     "seed not found in candidate",
			Confidence: 0.9,
			Dropped:    true,
		},
	}
}

func TestWriteXLSX_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	stats := &model.BatchStats{
		Total: 2, Valid: 1, Trash: 1, Dropped: 1,
		Reasons: map[string]int{"signals": 1, "tail": 1},
	}

	require.NoError(t, WriteXLSX(path, "ремонт пылесосов", sampleOutcomes(), stats))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 2)

	sheet := f.Sheets[0]
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "position", sheet.Rows[0].Cells[0].Value)
	assert.Equal(t, "ремонт пылесосов минск", sheet.Rows[1].Cells[1].Value)
	assert.Equal(t, "valid", sheet.Rows[1].Cells[3].Value)
	assert.Contains(t, sheet.Rows[1].Cells[7].Value, "+geo_entity")
	assert.Equal(t, "trash", sheet.Rows[2].Cells[3].Value)

	assert.Equal(t, "summary", f.Sheets[1].Name)
}

func TestWriteXLSX_NoStatsSkipsSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")

	require.NoError(t, WriteXLSX(path, "seed", sampleOutcomes(), nil))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	assert.Len(t, f.Sheets, 1)
}

func TestFormatSignals(t *testing.T) {
	s := formatSignals([]model.Signal{
		{Name: "commerce", Weight: 0.8, Polarity: model.PolarityPositive},
		{Name: "seed_echo", Weight: 0.65, Polarity: model.PolarityNegative},
	})
	assert.Equal(t, "+commerce(0.80) -seed_echo(0.65)", s)
	assert.Empty(t, formatSignals(nil))
}

func TestReadCandidatesXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "candidates.xlsx")

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("input")
	require.NoError(t, err)
	for _, v := range []string{"ремонт пылесосов", "", "  ремонт пылесосов минск  "} {
		sheet.AddRow().AddCell().Value = v
	}
	require.NoError(t, f.Save(path))

	got, err := ReadCandidatesXLSX(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"ремонт пылесосов", "ремонт пылесосов минск"}, got)
}

func TestReadCandidatesXLSX_MissingFile(t *testing.T) {
	_, err := ReadCandidatesXLSX(filepath.Join(t.TempDir(), "nope.xlsx"))
	assert.Error(t, err)
}
