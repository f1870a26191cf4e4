package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const surveyCSV = "#,Network ID,Gender,Q1,Q2,Comment\n" +
	"r1,n1,Female,3,5,too many meetings\n" +
	"r2,n2,Male,8,5,\n" +
	"r3,n3,Female,10,,great team\n"

// resetFlags restores every flag to its default so state does not leak
// between Execute calls in one test binary.
func resetFlags(c *cobra.Command) {
	reset := func(fl *pflag.Flag) {
		_ = fl.Value.Set(fl.DefValue)
		fl.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCmd executes the root command with args and returns its stdout.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCmd(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

// isolate points HOME at a temp dir and writes the sample survey there.
func isolate(t *testing.T) (home, survey string) {
	t.Helper()
	home = t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("SURVEYLOOM_METADATA_COLUMNS", "Gender")
	survey = filepath.Join(home, "survey.csv")
	if err := os.WriteFile(survey, []byte(surveyCSV), 0o644); err != nil {
		t.Fatalf("write survey: %v", err)
	}
	return home, survey
}

func TestCLI_CountsMarkdown(t *testing.T) {
	_, survey := isolate(t)
	out := mustRun(t, "counts", survey)
	if !strings.Contains(out, "[COUNTS TABLE]") || !strings.Contains(out, "| Q1 |") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if strings.Contains(out, "Network ID") || strings.Contains(out, "| Gender |") {
		t.Fatalf("non-question columns in counts:\n%s", out)
	}
}

func TestCLI_CountsJSONToFile(t *testing.T) {
	home, survey := isolate(t)
	target := filepath.Join(home, "counts.json")
	out := mustRun(t, "counts", survey, "--filters", "Gender = Female", "--format", "json", "-o", target)
	if !strings.Contains(out, "✓ Wrote counts table") {
		t.Fatalf("missing confirmation: %q", out)
	}
	b, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var rows []map[string]any
	if err := json.Unmarshal(b, &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 3 || rows[0]["Question"] != "Q1" {
		t.Fatalf("rows: %v", rows)
	}
	if avg := rows[0]["Avg"].(float64); avg != 6.5 {
		t.Fatalf("Avg for Female respondents = %v, want 6.5", avg)
	}
}

func TestCLI_CountsSummaryFilterAndCSV(t *testing.T) {
	_, survey := isolate(t)
	out := mustRun(t, "counts", survey, "--filters", "Avg >= 6", "--format", "csv")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + Q1 row, got:\n%s", out)
	}
	if !strings.HasPrefix(lines[0], "Question,0,1,") || !strings.HasPrefix(lines[1], "Q1,") {
		t.Fatalf("unexpected csv:\n%s", out)
	}
}

func TestCLI_CountsGroupFilter(t *testing.T) {
	_, survey := isolate(t)
	out := mustRun(t, "counts", survey, "--group", "Q1:Low", "--format", "json")
	var rows []map[string]any
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if rows[0]["3"].(float64) != 1 || rows[0]["8"].(float64) != 0 || rows[0]["Low"].(float64) != 1 {
		t.Fatalf("group Low should keep only r1: %v", rows[0])
	}
}

func TestCLI_Errors(t *testing.T) {
	_, survey := isolate(t)
	cases := []struct {
		args []string
		want string
	}{
		{[]string{"counts", survey, "--group", "Q1:Medium"}, "invalid group"},
		{[]string{"counts", survey, "--group", "Q9:Low"}, "unknown question"},
		{[]string{"counts", survey, "--filters", "Q1 ~ 3"}, "invalid operator"},
		{[]string{"counts", survey, "--format", "xml"}, "unsupported --format"},
		{[]string{"counts", filepath.Join(filepath.Dir(survey), "missing.csv")}, "load"},
		{[]string{"responses", survey}, "--question is required"},
		{[]string{"responses", survey, "-q", "Comment", "--filters", "Q1 = 8"}, "no responses"},
	}
	for _, tc := range cases {
		_, err := runCmd(t, tc.args...)
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%v: expected error containing %q, got %v", tc.args, tc.want, err)
		}
	}
}

func TestCLI_CorrelateJSON(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(home, "corr.csv")
	if err := os.WriteFile(path, []byte("#,Q1,Q2\nr1,1,2\nr2,2,4\nr3,3,6\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := mustRun(t, "correlate", path, "--format", "json")
	var m struct {
		Columns []string     `json:"columns"`
		Values  [][]*float64 `json:"values"`
	}
	if err := json.Unmarshal([]byte(out), &m); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(m.Columns) != 2 || m.Values[0][1] == nil || *m.Values[0][1] != 1 {
		t.Fatalf("unexpected matrix: %s", out)
	}
}

func TestCLI_Responses(t *testing.T) {
	_, survey := isolate(t)
	out := mustRun(t, "responses", survey, "-q", "Comment")
	if out != "- too many meetings\n- great team\n" {
		t.Fatalf("got %q", out)
	}
}

func TestCLI_SummarizeDryRun(t *testing.T) {
	_, survey := isolate(t)
	out := mustRun(t, "summarize", survey, "-q", "Comment", "--dry-run")
	if !strings.Contains(out, "Responses: 2") || !strings.Contains(out, "- great team") {
		t.Fatalf("unexpected dry-run output:\n%s", out)
	}
}

func TestCLI_SummarizeWithOllama(t *testing.T) {
	_, survey := isolate(t)
	var prompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if n := len(req.Messages); n > 0 {
			prompt = req.Messages[n-1].Content
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama3.1:8b","message":{"role":"assistant","content":"Meetings and team spirit."},"done":true}`))
	}))
	defer srv.Close()

	out := mustRun(t, "summarize", survey, "-q", "Comment", "--provider", "ollama", "--ollama-host", srv.URL, "--json")
	var res struct {
		Question  string   `json:"question"`
		Responses []string `json:"responses"`
		Summary   string   `json:"summary"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if res.Summary != "Meetings and team spirit." || len(res.Responses) != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !strings.Contains(prompt, "[QUESTION]\nComment") || !strings.Contains(prompt, "- too many meetings") {
		t.Fatalf("prompt missing content:\n%s", prompt)
	}
}

func TestCLI_DescribeBatchAvoidsOverwrite(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	d1 := filepath.Join(home, "d1")
	d2 := filepath.Join(home, "d2")
	for _, d := range []string{d1, d2} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(filepath.Join(d, "survey.csv"), []byte(surveyCSV), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	outDir := filepath.Join(home, "profiles")
	mustRun(t, "describe", filepath.Join(home, "d*", "survey.csv"), "--output-dir", outDir)

	first := filepath.Join(outDir, "survey.profile.md")
	second := filepath.Join(outDir, "survey__2.profile.md")
	for _, p := range []string{first, second} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("missing profile %s: %v", p, err)
		}
	}
	body, err := os.ReadFile(first)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(body), "[SCHEMA]") || !strings.Contains(string(body), "Gender") {
		t.Fatalf("unexpected profile:\n%s", body)
	}
}

func TestCLI_ConfigSetShow(t *testing.T) {
	isolate(t)
	mustRun(t, "config", "set", "id_column", "Respondent")
	mustRun(t, "config", "set", "server_api_key", "supersecret")
	mustRun(t, "config", "set", "drop_columns", "Network ID, Email")
	out := mustRun(t, "config", "show")
	for _, want := range []string{"id_column: Respondent", "server_api_key: sup****ret", "drop_columns: Network ID,Email"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if _, err := runCmd(t, "config", "set", "default_provider", "nope"); err == nil {
		t.Fatalf("expected invalid provider error")
	}
	if _, err := runCmd(t, "config", "set", "bogus", "1"); err == nil {
		t.Fatalf("expected unknown key error")
	}
}
