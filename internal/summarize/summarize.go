package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/KaramelBytes/surveyloom-cli/internal/ai"
	"github.com/KaramelBytes/surveyloom-cli/internal/analysis"
	"github.com/KaramelBytes/surveyloom-cli/internal/dataset"
	"github.com/KaramelBytes/surveyloom-cli/internal/filter"
	"github.com/KaramelBytes/surveyloom-cli/internal/utils"
)

// Summarizer condenses free text. subject is the context the text belongs to,
// typically the question it answers.
type Summarizer interface {
	Summarize(ctx context.Context, text, subject string) (string, error)
}

// DefaultSystemPrompt instructs the model how to treat survey answers.
const DefaultSystemPrompt = "You summarize open-ended survey responses. " +
	"Identify the main themes, note how common each one is, and quote short representative phrases. " +
	"Do not invent responses that are not present."

// Options configures an LLMSummarizer.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
	// PromptTokenLimit caps the response text sent to the model; 0 means no cap.
	PromptTokenLimit int
	SystemPrompt     string
}

// LLMSummarizer is a Summarizer backed by an ai.Runtime.
type LLMSummarizer struct {
	rt  ai.Runtime
	opt Options
}

func NewLLMSummarizer(rt ai.Runtime, opt Options) *LLMSummarizer {
	if opt.SystemPrompt == "" {
		opt.SystemPrompt = DefaultSystemPrompt
	}
	return &LLMSummarizer{rt: rt, opt: opt}
}

func (s *LLMSummarizer) Summarize(ctx context.Context, text, subject string) (string, error) {
	if s.opt.PromptTokenLimit > 0 && utils.CountTokens(text) > s.opt.PromptTokenLimit {
		text = utils.TruncateToTokenLimit(text, s.opt.PromptTokenLimit)
	}
	var user strings.Builder
	if subject != "" {
		user.WriteString("[QUESTION]\n")
		user.WriteString(subject)
		user.WriteString("\n\n")
	}
	user.WriteString("[RESPONSES]\n")
	user.WriteString(text)

	resp, err := s.rt.Generate(ctx, ai.GenerateRequest{
		Model: s.opt.Model,
		Messages: []ai.Message{
			{Role: "system", Content: s.opt.SystemPrompt},
			{Role: "user", Content: user.String()},
		},
		MaxTokens:   s.opt.MaxTokens,
		Temperature: s.opt.Temperature,
	})
	if err != nil {
		return "", err
	}
	out := resp.Text()
	if out == "" {
		return "", errors.New("model returned an empty summary")
	}
	return out, nil
}

// SummarizationError wraps a failure of the summarization backend.
type SummarizationError struct {
	Question string
	Err      error
}

func (e *SummarizationError) Error() string {
	return fmt.Sprintf("summarize %q: %v", e.Question, e.Err)
}

func (e *SummarizationError) Unwrap() error { return e.Err }

// Result is the outcome of summarizing one question.
type Result struct {
	Question  string   `json:"question" yaml:"question"`
	Responses []string `json:"responses" yaml:"responses"`
	Summary   string   `json:"summary" yaml:"summary"`
}

// Service chains response extraction and summarization.
type Service struct {
	summarizer Summarizer
	log        *zap.Logger
}

func NewService(s Summarizer, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{summarizer: s, log: log}
}

// SummarizeResponses extracts the filtered answers to question and summarizes them.
// Extraction errors are returned as is; backend failures become SummarizationError.
func (s *Service) SummarizeResponses(ctx context.Context, ds *dataset.Dataset, preds []filter.Predicate, group *filter.GroupFilter, question string) (*Result, error) {
	responses, err := analysis.ExtractResponses(ds, preds, group, question)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	summary, err := s.summarizer.Summarize(ctx, FormatResponses(responses), question)
	if err != nil {
		s.log.Warn("summarization failed", zap.String("question", question), zap.Int("responses", len(responses)), zap.Error(err))
		return nil, &SummarizationError{Question: question, Err: err}
	}
	s.log.Debug("summarized responses",
		zap.String("question", question),
		zap.Int("responses", len(responses)),
		zap.Duration("elapsed", time.Since(start)))
	return &Result{Question: question, Responses: responses, Summary: summary}, nil
}

// FormatResponses renders answers as a bullet list, one per line.
func FormatResponses(responses []string) string {
	var b strings.Builder
	for _, r := range responses {
		b.WriteString("- ")
		b.WriteString(strings.Join(strings.Fields(r), " "))
		b.WriteString("\n")
	}
	return b.String()
}
