package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/surveyloom-cli/internal/analysis"
	"github.com/KaramelBytes/surveyloom-cli/internal/summarize"
	"github.com/KaramelBytes/surveyloom-cli/internal/utils"
)

var (
	sumInput       surveyFlags
	sumQuestion    string
	sumProvider    string
	sumModel       string
	sumMaxTokens   int
	sumTemp        float64
	sumPromptLimit int
	sumOllamaHost  string
	sumTimeoutSec  int
	sumDryRun      bool
	sumJSON        bool
	sumOutput      string
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <file>",
	Short: "Summarize the free-text answers to one question with an LLM",
	Example: `  surveyloom summarize survey.csv -q "What should we change?"
  surveyloom summarize survey.csv -q Comment --group "Q1:Low" --provider ollama --model llama3.1:8b
  surveyloom summarize survey.csv -q Comment --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(sumQuestion) == "" {
			return fmt.Errorf("--question is required")
		}
		s, err := sumInput.load(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if sumDryRun {
			responses, err := analysis.ExtractResponses(s.ds, s.filters.Rows, s.group, sumQuestion)
			if err != nil {
				return err
			}
			text := summarize.FormatResponses(responses)
			fmt.Fprintf(out, "Responses: %d (tokens≈%d)\n", len(responses), utils.CountTokens(text))
			fmt.Fprintln(out, "\n--dry-run: the following responses would be summarized --")
			fmt.Fprint(out, text)
			return nil
		}

		rt, provider, err := buildRuntime(cfg, runtimeOptions{ProviderFlag: sumProvider, OllamaHost: sumOllamaHost})
		if err != nil {
			return err
		}
		opt := summarizerOptions()
		if sumModel != "" {
			opt.Model = sumModel
		} else {
			opt.Model = cfg.Model(provider)
		}
		if cmd.Flags().Changed("max-tokens") {
			opt.MaxTokens = sumMaxTokens
		}
		if cmd.Flags().Changed("temperature") {
			opt.Temperature = sumTemp
		}
		if cmd.Flags().Changed("prompt-limit") {
			opt.PromptTokenLimit = sumPromptLimit
		}

		timeout := time.Duration(sumTimeoutSec) * time.Second
		if timeout <= 0 {
			timeout = 180 * time.Second
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		if !sumJSON {
			fmt.Fprintf(out, "⚙ Summarizing '%s' with %s model=%s ...\n", sumQuestion, provider, opt.Model)
		}
		svc := summarize.NewService(summarize.NewLLMSummarizer(rt, opt), logger)
		res, err := svc.SummarizeResponses(ctx, s.ds, s.filters.Rows, s.group, sumQuestion)
		if err != nil {
			var sErr *summarize.SummarizationError
			if errors.As(err, &sErr) {
				return explainRuntimeError(err, provider, opt.Model)
			}
			return err
		}

		var body []byte
		if sumJSON {
			body, err = utils.PrettyJSON(res)
			if err != nil {
				return err
			}
		} else {
			body = []byte(fmt.Sprintf("Responses: %d\n\n=== Summary ===\n%s\n", len(res.Responses), res.Summary))
		}
		return emit(out, body, sumOutput, "summary")
	},
}

// summarizerOptions maps config onto summarizer defaults.
func summarizerOptions() summarize.Options {
	if cfg == nil {
		return summarize.Options{MaxTokens: 1024, Temperature: 0.3}
	}
	return summarize.Options{
		MaxTokens:        cfg.MaxTokens,
		Temperature:      cfg.Temperature,
		PromptTokenLimit: cfg.SummaryPromptLimit,
	}
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
	sumInput.register(summarizeCmd)
	summarizeCmd.Flags().StringVarP(&sumQuestion, "question", "q", "", "question column to summarize (required)")
	summarizeCmd.Flags().StringVar(&sumProvider, "provider", "", "LLM provider: openrouter|openai|ollama (default from config)")
	summarizeCmd.Flags().StringVar(&sumModel, "model", "", "model name (default from config or provider)")
	summarizeCmd.Flags().IntVar(&sumMaxTokens, "max-tokens", 0, "max completion tokens (overrides config)")
	summarizeCmd.Flags().Float64Var(&sumTemp, "temperature", 0, "sampling temperature (overrides config)")
	summarizeCmd.Flags().IntVar(&sumPromptLimit, "prompt-limit", 0, "cap on response tokens sent to the model (0 = no cap)")
	summarizeCmd.Flags().StringVar(&sumOllamaHost, "ollama-host", "", "override Ollama host (e.g., http://127.0.0.1:11434)")
	summarizeCmd.Flags().IntVar(&sumTimeoutSec, "timeout-sec", 180, "request timeout in seconds")
	summarizeCmd.Flags().BoolVar(&sumDryRun, "dry-run", false, "print the responses that would be sent and exit")
	summarizeCmd.Flags().BoolVar(&sumJSON, "json", false, "emit question, responses and summary as JSON")
	summarizeCmd.Flags().StringVarP(&sumOutput, "output", "o", "", "optional path to write the summary")
}
