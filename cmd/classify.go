package main

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adscope/suggest-triage/internal/report"
)

var (
	classifySeed    string
	classifyCountry string
	classifyInput   string
	classifyExport  string
	classifyNoStore bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify [candidates...]",
	Short: "Classify suggestion candidates against a seed phrase",
	Long:  "Candidates come from positional arguments or from --input (one per line, or the first column of an XLSX file). Results print to stdout as JSON and are persisted as a run unless --no-store is set.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		candidates, err := loadCandidates(args)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			return eris.New("classify: no candidates given")
		}

		env, err := initEnv(ctx, "classify")
		if err != nil {
			return err
		}
		defer env.Close()

		var runID string
		if !classifyNoStore {
			run, err := env.Store.CreateRun(ctx, classifySeed, cfg.Pipeline.Language, classifyCountry)
			if err != nil {
				return eris.Wrap(err, "create run")
			}
			runID = run.ID
		}

		outcomes, stats, err := env.Pipeline.Classify(ctx, classifySeed, classifyCountry, candidates)
		if err != nil {
			if runID != "" {
				if failErr := env.Store.FailRun(ctx, runID); failErr != nil {
					zap.L().Warn("mark run failed", zap.String("run_id", runID), zap.Error(failErr))
				}
			}
			return eris.Wrap(err, "classify batch")
		}

		if runID != "" {
			if err := env.Store.InsertOutcomes(ctx, runID, outcomes); err != nil {
				return eris.Wrap(err, "insert outcomes")
			}
			if err := env.Store.CompleteRun(ctx, runID, stats); err != nil {
				return eris.Wrap(err, "complete run")
			}
		}

		if classifyExport != "" {
			if err := report.WriteXLSX(classifyExport, classifySeed, outcomes, stats); err != nil {
				return eris.Wrap(err, "export report")
			}
			zap.L().Info("report written", zap.String("path", classifyExport))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"run_id":   runID,
			"stats":    stats,
			"outcomes": outcomes,
		})
	},
}

// loadCandidates merges positional arguments with the --input file.
func loadCandidates(args []string) ([]string, error) {
	candidates := append([]string(nil), args...)
	if classifyInput == "" {
		return candidates, nil
	}

	if strings.HasSuffix(classifyInput, ".xlsx") {
		fromFile, err := report.ReadCandidatesXLSX(classifyInput)
		if err != nil {
			return nil, err
		}
		return append(candidates, fromFile...), nil
	}

	f, err := os.Open(classifyInput)
	if err != nil {
		return nil, eris.Wrap(err, "classify: open input")
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			candidates = append(candidates, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "classify: read input")
	}
	return candidates, nil
}

func init() {
	classifyCmd.Flags().StringVar(&classifySeed, "seed", "", "seed phrase the suggestions were scraped for (required)")
	classifyCmd.Flags().StringVar(&classifyCountry, "country", "", "target country code, e.g. by (required)")
	classifyCmd.Flags().StringVar(&classifyInput, "input", "", "candidates file, plain text or xlsx")
	classifyCmd.Flags().StringVar(&classifyExport, "export", "", "write an xlsx report to this path")
	classifyCmd.Flags().BoolVar(&classifyNoStore, "no-store", false, "skip run persistence")
	_ = classifyCmd.MarkFlagRequired("seed")
	_ = classifyCmd.MarkFlagRequired("country")
	rootCmd.AddCommand(classifyCmd)
}
