package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/surveyloom-cli/internal/analysis"
	"github.com/KaramelBytes/surveyloom-cli/internal/summarize"
	"github.com/KaramelBytes/surveyloom-cli/internal/utils"
)

var (
	rspInput    surveyFlags
	rspQuestion string
	rspFormat   string
	rspOutput   string
)

var responsesCmd = &cobra.Command{
	Use:   "responses <file>",
	Short: "List the non-blank answers to one question after filtering",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(rspQuestion) == "" {
			return fmt.Errorf("--question is required")
		}
		s, err := rspInput.load(args[0])
		if err != nil {
			return err
		}
		responses, err := analysis.ExtractResponses(s.ds, s.filters.Rows, s.group, rspQuestion)
		if err != nil {
			return err
		}
		var body []byte
		switch strings.ToLower(rspFormat) {
		case "", "text", "txt":
			body = []byte(summarize.FormatResponses(responses))
		case "json":
			body, err = utils.PrettyJSON(responses)
		case "yaml", "yml":
			body, err = analysis.YAML(responses)
		default:
			return fmt.Errorf("unsupported --format: %s (use text|json|yaml)", rspFormat)
		}
		if err != nil {
			return err
		}
		return emit(cmd.OutOrStdout(), body, rspOutput, fmt.Sprintf("%d responses", len(responses)))
	},
}

func init() {
	rootCmd.AddCommand(responsesCmd)
	rspInput.register(responsesCmd)
	responsesCmd.Flags().StringVarP(&rspQuestion, "question", "q", "", "question column to extract (required)")
	responsesCmd.Flags().StringVar(&rspFormat, "format", "text", "output format: text|json|yaml")
	responsesCmd.Flags().StringVarP(&rspOutput, "output", "o", "", "optional path to write the responses")
}
