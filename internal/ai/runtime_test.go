package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

type ipv4Server struct {
	URL string
	srv *http.Server
}

func newIPv4Server(t *testing.T, handler http.Handler) *ipv4Server {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
			t.Skipf("skipping test: cannot open local listener (%v)", err)
		}
		t.Fatalf("listen tcp4: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic(fmt.Sprintf("test server serve: %v", err))
		}
	}()
	s := &ipv4Server{URL: "http://" + ln.Addr().String(), srv: srv}
	t.Cleanup(s.Close)
	return s
}

func (s *ipv4Server) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = s.srv.Shutdown(ctx)
}

// sequenceServer answers chat completions with the given statuses in order,
// repeating the last one.
func sequenceServer(t *testing.T, statuses []int, headers []http.Header, okBody any) (*ipv4Server, *int32) {
	t.Helper()
	var calls int32
	return newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		i := int(atomic.AddInt32(&calls, 1)) - 1
		if i >= len(statuses) {
			i = len(statuses) - 1
		}
		if i < len(headers) {
			for k, vals := range headers[i] {
				for _, v := range vals {
					w.Header().Add(k, v)
				}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statuses[i])
		if statuses[i] < 300 {
			_ = json.NewEncoder(w).Encode(okBody)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "slow down", "code": "busy"}})
	})), &calls
}

var hello = GenerateRequest{Model: "test-model", Messages: []Message{{Role: "user", Content: "hi"}}, MaxTokens: 8}

func okCompletion(content string) map[string]any {
	return map[string]any{
		"id":      "cmpl-1",
		"object":  "chat.completion",
		"choices": []any{map[string]any{"index": 0, "message": map[string]any{"role": "assistant", "content": content}}},
		"usage":   map[string]any{"prompt_tokens": 3, "completion_tokens": 2, "total_tokens": 5},
	}
}

func TestOpenRouterRetriesOn429(t *testing.T) {
	srv, calls := sequenceServer(t, []int{429, 200}, []http.Header{{"Retry-After": {"0"}}}, okCompletion("ok"))
	c := NewClientWithBaseURL("test", 2*time.Second, 3, 10*time.Millisecond, 50*time.Millisecond, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := c.Generate(ctx, hello)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if resp.Text() != "ok" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if got := atomic.LoadInt32(calls); got != 2 {
		t.Fatalf("expected 2 calls, got %d", got)
	}
}

func TestOpenRouterRetryAfterHonored(t *testing.T) {
	srv, _ := sequenceServer(t, []int{429, 200}, []http.Header{{"Retry-After": {"1"}}}, okCompletion("ok"))
	c := NewClientWithBaseURL("test", 5*time.Second, 3, 0, 0, srv.URL)
	start := time.Now()
	if _, err := c.Generate(context.Background(), hello); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 900*time.Millisecond {
		t.Fatalf("expected ~1s delay due to Retry-After, got %v", elapsed)
	}
}

func TestOpenRouterGivesUpAfterAttempts(t *testing.T) {
	srv, calls := sequenceServer(t, []int{503}, nil, nil)
	c := NewClientWithBaseURL("test", 2*time.Second, 2, 5*time.Millisecond, 10*time.Millisecond, srv.URL)
	_, err := c.Generate(context.Background(), hello)
	var se *ServerError
	if !errors.As(err, &se) {
		t.Fatalf("expected ServerError, got %T %v", err, err)
	}
	if se.Code != "busy" {
		t.Fatalf("code not decoded: %+v", se.APIError)
	}
	if got := atomic.LoadInt32(calls); got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
}

func TestOpenRouterErrorClassification(t *testing.T) {
	cases := []struct {
		status int
		check  func(error) bool
	}{
		{401, func(err error) bool { var e *AuthError; return errors.As(err, &e) }},
		{400, func(err error) bool { var e *BadRequestError; return errors.As(err, &e) }},
		{402, func(err error) bool { var e *QuotaExceededError; return errors.As(err, &e) }},
	}
	for _, c := range cases {
		srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Request-Id", "req_test_123")
			w.WriteHeader(c.status)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "nope"}})
		}))
		cl := NewClientWithBaseURL("test", 2*time.Second, 3, time.Millisecond, time.Millisecond, srv.URL)
		_, err := cl.Generate(context.Background(), hello)
		if !c.check(err) {
			t.Fatalf("status %d: unexpected error %T %v", c.status, err, err)
		}
		if !strings.Contains(err.Error(), "req_test_123") {
			t.Fatalf("status %d: expected request id in error, got %v", c.status, err)
		}
	}
}

func TestOpenRouterMissingKey(t *testing.T) {
	if _, err := NewOpenRouterClient("").Generate(context.Background(), hello); err == nil {
		t.Fatalf("expected missing key error")
	}
}

func TestOllamaGenerate(t *testing.T) {
	var captured ollamaChatRequest
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message":           map[string]any{"role": "assistant", "content": "hello from ollama"},
			"done":              true,
			"prompt_eval_count": 4,
			"eval_count":        3,
		})
	}))
	c := NewOllamaClient(srv.URL, 2*time.Second, 1, 0, 0)
	req := GenerateRequest{Model: "llama3:latest", Messages: []Message{
		{Role: "system", Content: "You summarize survey answers"},
		{Role: "user", Content: "Hello"},
	}, MaxTokens: 16, Temperature: 0.2}
	resp, err := c.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Text() != "hello from ollama" || resp.Usage.TotalTokens != 7 || resp.RequestID == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" || captured.Stream {
		t.Fatalf("request not forwarded as expected: %+v", captured)
	}
	if captured.Options["num_predict"] != float64(16) {
		t.Fatalf("max tokens not mapped: %+v", captured.Options)
	}
}

func TestOllamaErrors(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "model 'nope' not found"})
	}))
	c := NewOllamaClient(srv.URL, 2*time.Second, 1, 0, 0)
	_, err := c.Generate(context.Background(), hello)
	var mnf *ModelNotFoundError
	if !errors.As(err, &mnf) {
		t.Fatalf("expected ModelNotFoundError, got %T %v", err, err)
	}

	if _, err := c.Generate(context.Background(), GenerateRequest{Model: "m"}); err == nil || err.Error() != "messages cannot be empty" {
		t.Fatalf("expected empty messages error, got %v", err)
	}

	down := NewOllamaClient("http://127.0.0.1:1", time.Second, 1, 0, 0)
	_, err = down.Generate(context.Background(), hello)
	var ue *UnreachableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnreachableError, got %T %v", err, err)
	}
}

func TestOpenAIGenerate(t *testing.T) {
	var gotAuth string
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(okCompletion("summary text"))
	}))
	c := NewOpenAIClient("sk-test", srv.URL, 2*time.Second, 1, 0, 0)
	resp, err := c.Generate(context.Background(), hello)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Text() != "summary text" || resp.Usage.TotalTokens != 5 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if gotAuth != "Bearer sk-test" {
		t.Fatalf("authorization header = %q", gotAuth)
	}
}

func TestOpenAIErrorMapping(t *testing.T) {
	srv, calls := sequenceServer(t, []int{401}, nil, nil)
	c := NewOpenAIClient("sk-bad", srv.URL, 2*time.Second, 3, time.Millisecond, time.Millisecond)
	_, err := c.Generate(context.Background(), hello)
	var ae *AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuthError, got %T %v", err, err)
	}
	if got := atomic.LoadInt32(calls); got != 1 {
		t.Fatalf("auth errors must not be retried, got %d calls", got)
	}
}

func TestRegistry(t *testing.T) {
	for _, p := range []string{ProviderOpenRouter, ProviderOpenAI, ProviderOllama} {
		rt, err := NewRuntime(p, RuntimeConfig{APIKey: "k"})
		if err != nil || rt == nil {
			t.Fatalf("provider %s: %v", p, err)
		}
		if DefaultModel(p) == "" {
			t.Fatalf("provider %s has no default model", p)
		}
	}
	if _, err := NewRuntime("nope", RuntimeConfig{}); err == nil {
		t.Fatalf("expected unknown provider error")
	}
}

func TestRetryPolicyStopsOnCancel(t *testing.T) {
	p := newRetryPolicy(5, time.Second, time.Second, 0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	var n int
	err := p.run(ctx, func() error {
		n++
		cancel()
		return &retryable{err: errors.New("boom")}
	})
	if !errors.Is(err, context.Canceled) || n != 1 {
		t.Fatalf("expected cancellation after 1 call, got n=%d err=%v", n, err)
	}
}
