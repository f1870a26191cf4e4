package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/surveyloom-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/surveyloom-cli/internal/config"
	"github.com/KaramelBytes/surveyloom-cli/internal/dataset"
	"github.com/KaramelBytes/surveyloom-cli/internal/filter"
	"github.com/KaramelBytes/surveyloom-cli/internal/utils"
)

// surveyFlags are the input flags shared by the analytic commands.
type surveyFlags struct {
	filters   string
	group     string
	sheet     string
	delimiter string
}

func (f *surveyFlags) register(c *cobra.Command) {
	c.Flags().StringVarP(&f.filters, "filters", "f", "", "comma-separated 'column operator value' filters, e.g. 'Age >= 30, Gender = Female'")
	c.Flags().StringVarP(&f.group, "group", "g", "", "keep respondents in a bucket of one question, e.g. 'Q1:Low' (Low|Mod|High)")
	c.Flags().StringVar(&f.sheet, "sheet", "", "XLSX: sheet name (default first sheet)")
	c.Flags().StringVar(&f.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (default by extension)")
}

// survey is a loaded export plus its parsed filters.
type survey struct {
	ds      *dataset.Dataset
	filters filter.Set
	group   *filter.GroupFilter
}

// load parses the filter flags, then reads the export at path.
func (f *surveyFlags) load(path string) (*survey, error) {
	set, err := filter.ParseFilters(f.filters)
	if err != nil {
		return nil, err
	}
	group, err := filter.ParseGroupFilter(f.group)
	if err != nil {
		return nil, err
	}
	opt := loadOptions()
	opt.Sheet = f.sheet
	switch f.delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	default:
		return nil, fmt.Errorf("unsupported --delimiter: %s", f.delimiter)
	}
	ds, err := dataset.Load(path, opt)
	if err != nil {
		return nil, err
	}
	logger.Debug("survey loaded",
		zap.String("file", path),
		zap.Int("respondents", ds.Len()),
		zap.Int("questions", len(ds.Questions())),
		zap.Int("row_filters", len(set.Rows)),
		zap.Int("summary_filters", len(set.Summary)))
	return &survey{ds: ds, filters: set, group: group}, nil
}

func loadOptions() dataset.LoadOptions {
	if cfg == nil {
		return dataset.DefaultLoadOptions()
	}
	return cfg.LoadOptions()
}

// emit writes body to outputPath when set, otherwise to w.
func emit(w io.Writer, body []byte, outputPath, what string) error {
	if outputPath == "" {
		_, err := w.Write(body)
		if err == nil && len(body) > 0 && body[len(body)-1] != '\n' {
			_, err = io.WriteString(w, "\n")
		}
		return err
	}
	if err := utils.SafeWriteFile(outputPath, body); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(w, "✓ Wrote %s to %s\n", what, outputPath)
	return nil
}

type runtimeOptions struct {
	ProviderFlag string
	OllamaHost   string
}

// normalizeProvider maps user spellings onto registered provider names.
func normalizeProvider(name string) string {
	switch p := strings.ToLower(strings.TrimSpace(name)); p {
	case "local", "ollama":
		return ai.ProviderOllama
	case "":
		return ""
	default:
		return p
	}
}

func buildRuntime(cfg *cfgpkg.Global, opts runtimeOptions) (ai.Runtime, string, error) {
	if cfg == nil {
		cfg = &cfgpkg.Global{}
	}
	providerName := normalizeProvider(opts.ProviderFlag)
	if providerName == "" {
		providerName = normalizeProvider(cfg.DefaultProvider)
	}
	if providerName == "" {
		providerName = ai.ProviderOpenRouter
	}

	rc := cfg.RuntimeConfig(providerName)
	switch providerName {
	case ai.ProviderOpenRouter:
		if rc.APIKey == "" {
			rc.APIKey = os.Getenv("OPENROUTER_API_KEY")
		}
	case ai.ProviderOpenAI:
		if rc.APIKey == "" {
			rc.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	case ai.ProviderOllama:
		if h := strings.TrimSpace(opts.OllamaHost); h != "" {
			rc.Host = h
		}
		if rc.Host == "" {
			rc.Host = "http://127.0.0.1:11434"
		}
	}

	rt, err := ai.NewRuntime(providerName, rc)
	if err != nil {
		return nil, providerName, err
	}
	return rt, providerName, nil
}

// explainRuntimeError adds a user-facing hint to typed runtime errors.
func explainRuntimeError(err error, provider, model string) error {
	var (
		authErr *ai.AuthError
		rlErr   *ai.RateLimitError
		nfErr   *ai.ModelNotFoundError
		brErr   *ai.BadRequestError
		qErr    *ai.QuotaExceededError
		sErr    *ai.ServerError
		unreach *ai.UnreachableError
	)
	switch {
	case errors.As(err, &unreach):
		if provider == ai.ProviderOllama {
			return fmt.Errorf("Ollama not reachable at %s. Ensure Ollama is running and the host is correct. You can set SURVEYLOOM_OLLAMA_HOST or config 'ollama_host': %w", unreach.Host, err)
		}
		return fmt.Errorf("endpoint unreachable. Check your network and provider settings: %w", err)
	case errors.As(err, &authErr):
		return fmt.Errorf("authentication failed: set the provider API key or add it in config (~/.surveyloom/config.yaml): %w", err)
	case errors.As(err, &rlErr):
		if rlErr.RetryAfter > 0 {
			return fmt.Errorf("rate limited, try again in ~%ds: %w", int(rlErr.RetryAfter.Seconds()), err)
		}
		return fmt.Errorf("rate limited by provider, please retry: %w", err)
	case errors.As(err, &nfErr):
		if provider == ai.ProviderOllama {
			return fmt.Errorf("local model not available (%s). Install it with 'ollama pull %s' or choose another model: %w", model, model, err)
		}
		return fmt.Errorf("model not found (%s). Verify the model name: %w", model, err)
	case errors.As(err, &brErr):
		return fmt.Errorf("request invalid. Try a smaller --prompt-limit or --max-tokens: %w", err)
	case errors.As(err, &qErr):
		return fmt.Errorf("quota/billing issue. Check your provider account: %w", err)
	case errors.As(err, &sErr):
		return fmt.Errorf("provider appears unavailable (server error). Please retry later: %w", err)
	default:
		return err
	}
}
