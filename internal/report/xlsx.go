// Package report turns classified batches into files people actually
// open: an XLSX workbook with one row per candidate and a summary
// sheet for the batch counters.
package report

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/adscope/suggest-triage/internal/model"
)

var outcomeHeader = []string{
	"position", "candidate", "tail", "label", "stage", "reason",
	"confidence", "signals", "dropped",
}

// WriteXLSX writes the outcomes of one run into an XLSX workbook at
// path. Stats may be nil, in which case the summary sheet is skipped.
func WriteXLSX(path, seed string, outcomes []model.Outcome, stats *model.BatchStats) error {
	f := xlsx.NewFile()

	sheet, err := f.AddSheet("outcomes")
	if err != nil {
		return eris.Wrap(err, "report: add outcomes sheet")
	}

	hdr := sheet.AddRow()
	for _, h := range outcomeHeader {
		hdr.AddCell().Value = h
	}

	for i, o := range outcomes {
		row := sheet.AddRow()
		row.AddCell().SetInt(i)
		row.AddCell().Value = o.Candidate
		row.AddCell().Value = o.Tail
		row.AddCell().Value = string(o.Label)
		row.AddCell().Value = o.Stage
		row.AddCell().Value = o.Reason
		row.AddCell().SetFloatWithFormat(o.Confidence, "0.00")
		row.AddCell().Value = formatSignals(o.Signals)
		row.AddCell().SetBool(o.Dropped)
	}

	if stats != nil {
		if err := addSummarySheet(f, seed, stats); err != nil {
			return err
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "report: save workbook")
	}
	return nil
}

func addSummarySheet(f *xlsx.File, seed string, stats *model.BatchStats) error {
	sheet, err := f.AddSheet("summary")
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}

	addPair := func(k, v string) {
		row := sheet.AddRow()
		row.AddCell().Value = k
		row.AddCell().Value = v
	}

	addPair("seed", seed)
	addPair("total", fmt.Sprintf("%d", stats.Total))
	addPair("valid", fmt.Sprintf("%d", stats.Valid))
	addPair("trash", fmt.Sprintf("%d", stats.Trash))
	addPair("grey", fmt.Sprintf("%d", stats.Grey))
	addPair("dropped", fmt.Sprintf("%d", stats.Dropped))
	addPair("duration_ms", fmt.Sprintf("%d", stats.DurationMS))
	for stage, n := range stats.Reasons {
		addPair("decided_by_"+stage, fmt.Sprintf("%d", n))
	}
	return nil
}

// formatSignals renders fired signals compactly, one token per signal
// with its polarity sign and weight.
func formatSignals(sigs []model.Signal) string {
	if len(sigs) == 0 {
		return ""
	}
	parts := make([]string, len(sigs))
	for i, s := range sigs {
		sign := "+"
		if s.Polarity == model.PolarityNegative {
			sign = "-"
		}
		parts[i] = fmt.Sprintf("%s%s(%.2f)", sign, s.Name, s.Weight)
	}
	return strings.Join(parts, " ")
}

// ReadCandidatesXLSX reads candidate phrases from the first column of
// the first sheet of an XLSX file. Empty cells are skipped.
func ReadCandidatesXLSX(path string) ([]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "report: open candidates file")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("report: candidates file has no sheets")
	}

	var out []string
	for _, row := range f.Sheets[0].Rows {
		if len(row.Cells) == 0 {
			continue
		}
		v := strings.TrimSpace(row.Cells[0].Value)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}
