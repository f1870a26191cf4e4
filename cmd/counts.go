package cmd

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/surveyloom-cli/internal/analysis"
	"github.com/KaramelBytes/surveyloom-cli/internal/utils"
)

var (
	cntInput  surveyFlags
	cntFormat string
	cntOutput string
)

var countsCmd = &cobra.Command{
	Use:   "counts <file>",
	Short: "Per-question 0-10 answer counts with Low/Mod/High shares, Avg and STD",
	Example: `  surveyloom counts survey.csv
  surveyloom counts survey.csv --filters "Gender = Female, Avg >= 6" --format json
  surveyloom counts survey.xlsx --group "I am excited to work most days.:Low" -o low.md`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := cntInput.load(args[0])
		if err != nil {
			return err
		}
		rows, err := analysis.ComputeCounts(s.ds, s.filters.Rows, s.group)
		if err != nil {
			return err
		}
		rows, err = analysis.FilterSummaries(rows, s.filters.Summary)
		if err != nil {
			return err
		}
		body, err := renderCounts(s.ds.Name, rows, cntFormat)
		if err != nil {
			return err
		}
		return emit(cmd.OutOrStdout(), body, cntOutput, "counts table")
	},
}

func renderCounts(name string, rows []analysis.QuestionSummary, format string) ([]byte, error) {
	if rows == nil {
		rows = []analysis.QuestionSummary{}
	}
	switch strings.ToLower(format) {
	case "", "md", "markdown":
		return []byte(analysis.CountsMarkdown(name, rows)), nil
	case "json":
		return utils.PrettyJSON(rows)
	case "yaml", "yml":
		return analysis.YAML(rows)
	case "csv":
		var buf bytes.Buffer
		if err := analysis.WriteCountsCSV(&buf, rows); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported --format: %s (use md|json|yaml|csv)", format)
	}
}

func init() {
	rootCmd.AddCommand(countsCmd)
	cntInput.register(countsCmd)
	countsCmd.Flags().StringVar(&cntFormat, "format", "md", "output format: md|json|yaml|csv")
	countsCmd.Flags().StringVarP(&cntOutput, "output", "o", "", "optional path to write the table")
}
