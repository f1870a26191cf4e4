package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/surveyloom-cli/internal/analysis"
	"github.com/KaramelBytes/surveyloom-cli/internal/utils"
)

var (
	corInput  surveyFlags
	corFormat string
	corOutput string
)

var correlateCmd = &cobra.Command{
	Use:   "correlate <file>",
	Short: "Pairwise-complete Pearson correlations between questions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := corInput.load(args[0])
		if err != nil {
			return err
		}
		if len(s.filters.Summary) > 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "⚠ Warning: summary filters (Low/Mod/High/Avg/STD) only apply to counts; ignoring them")
		}
		m, err := analysis.ComputeCorrelation(s.ds, s.filters.Rows, s.group)
		if err != nil {
			return err
		}
		if m.Columns == nil {
			m = &analysis.CorrMatrix{Columns: []string{}, Values: [][]*float64{}}
		}
		var body []byte
		switch strings.ToLower(corFormat) {
		case "", "md", "markdown":
			body = []byte(analysis.CorrMarkdown(m))
		case "json":
			body, err = utils.PrettyJSON(m)
		case "yaml", "yml":
			body, err = analysis.YAML(m)
		default:
			return fmt.Errorf("unsupported --format: %s (use md|json|yaml)", corFormat)
		}
		if err != nil {
			return err
		}
		return emit(cmd.OutOrStdout(), body, corOutput, "correlation matrix")
	},
}

func init() {
	rootCmd.AddCommand(correlateCmd)
	corInput.register(correlateCmd)
	correlateCmd.Flags().StringVar(&corFormat, "format", "md", "output format: md|json|yaml")
	correlateCmd.Flags().StringVarP(&corOutput, "output", "o", "", "optional path to write the matrix")
}
