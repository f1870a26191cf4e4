package summarize

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/KaramelBytes/surveyloom-cli/internal/ai"
	"github.com/KaramelBytes/surveyloom-cli/internal/analysis"
	"github.com/KaramelBytes/surveyloom-cli/internal/dataset"
	"github.com/KaramelBytes/surveyloom-cli/internal/filter"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubRuntime struct {
	reply string
	err   error
	got   ai.GenerateRequest
}

func (s *stubRuntime) Generate(_ context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
	s.got = req
	if s.err != nil {
		return nil, s.err
	}
	return &ai.GenerateResponse{Choices: []ai.Choice{{Message: ai.Message{Role: "assistant", Content: s.reply}}}}, nil
}

type recordingSummarizer struct {
	text, subject string
	err           error
}

func (r *recordingSummarizer) Summarize(_ context.Context, text, subject string) (string, error) {
	r.text, r.subject = text, subject
	if r.err != nil {
		return "", r.err
	}
	return "two themes", nil
}

func load(t *testing.T) *dataset.Dataset {
	t.Helper()
	opt := dataset.DefaultLoadOptions()
	opt.MetadataColumns = []string{"Team"}
	ds, err := dataset.LoadCSV(strings.NewReader(
		"#,Team,Q1,Why?\n"+
			"r1,A,9,Great  people\n"+
			"r2,B,3,Too many meetings\n"+
			"r3,A,2,\n"), "s.csv", opt)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return ds
}

func TestLLMSummarizerBuildsPrompt(t *testing.T) {
	rt := &stubRuntime{reply: "  Mostly positive.  "}
	s := NewLLMSummarizer(rt, Options{Model: "m", MaxTokens: 100, Temperature: 0.1})
	out, err := s.Summarize(context.Background(), "- a\n- b\n", "Why?")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if out != "Mostly positive." {
		t.Fatalf("summary = %q", out)
	}
	if rt.got.Model != "m" || len(rt.got.Messages) != 2 || rt.got.Messages[0].Content != DefaultSystemPrompt {
		t.Fatalf("unexpected request: %+v", rt.got)
	}
	if !strings.Contains(rt.got.Messages[1].Content, "[QUESTION]\nWhy?") {
		t.Fatalf("question missing from prompt: %q", rt.got.Messages[1].Content)
	}
}

func TestLLMSummarizerTruncatesPrompt(t *testing.T) {
	rt := &stubRuntime{reply: "ok"}
	s := NewLLMSummarizer(rt, Options{Model: "m", PromptTokenLimit: 2})
	if _, err := s.Summarize(context.Background(), strings.Repeat("x", 100), ""); err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if got := rt.got.Messages[1].Content; got != "[RESPONSES]\nxxxxxxxx" {
		t.Fatalf("prompt not truncated: %q", got)
	}
}

func TestLLMSummarizerEmptyReply(t *testing.T) {
	s := NewLLMSummarizer(&stubRuntime{reply: "   "}, Options{Model: "m"})
	if _, err := s.Summarize(context.Background(), "- a", "Q"); err == nil {
		t.Fatalf("expected error for empty reply")
	}
}

func TestServiceSummarizeResponses(t *testing.T) {
	rec := &recordingSummarizer{}
	svc := NewService(rec, zaptest.NewLogger(t))
	preds := []filter.Predicate{{Column: "Team", Op: filter.OpEq, Value: filter.NewValue("A")}}
	res, err := svc.SummarizeResponses(context.Background(), load(t), preds, nil, "Why?")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if res.Summary != "two themes" || len(res.Responses) != 1 || res.Responses[0] != "Great  people" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if rec.text != "- Great people\n" || rec.subject != "Why?" {
		t.Fatalf("summarizer got text=%q subject=%q", rec.text, rec.subject)
	}
}

func TestServiceErrors(t *testing.T) {
	ds := load(t)

	svc := NewService(&recordingSummarizer{err: errors.New("upstream down")}, nil)
	_, err := svc.SummarizeResponses(context.Background(), ds, nil, nil, "Why?")
	var se *SummarizationError
	if !errors.As(err, &se) || !strings.Contains(err.Error(), "upstream down") {
		t.Fatalf("expected SummarizationError, got %v", err)
	}

	rec := &recordingSummarizer{}
	svc = NewService(rec, nil)
	_, err = svc.SummarizeResponses(context.Background(), ds, nil, &filter.GroupFilter{Question: "Q1", Bucket: filter.Low}, "Why?")
	// r2 answered; r3 is in Low but left the comment blank.
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = svc.SummarizeResponses(context.Background(), ds, nil, &filter.GroupFilter{Question: "Q1", Bucket: filter.Mod}, "Why?")
	var nr *analysis.NoResponsesError
	if !errors.As(err, &nr) {
		t.Fatalf("expected NoResponsesError, got %v", err)
	}
	if rec.subject != "Why?" || rec.text != "- Too many meetings\n" {
		t.Fatalf("summarizer should not run without responses, last call text=%q", rec.text)
	}
}
