package analysis

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// CountsMarkdown renders a counts table for terminals or prompts.
func CountsMarkdown(name string, rows []QuestionSummary) string {
	var b strings.Builder
	b.WriteString("[COUNTS TABLE]\n")
	if name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", name))
	}
	b.WriteString(fmt.Sprintf("Questions: %d\n\n", len(rows)))
	if len(rows) == 0 {
		return b.String()
	}
	b.WriteString("| Question |")
	for v := 0; v <= ScaleMax; v++ {
		b.WriteString(fmt.Sprintf(" %d |", v))
	}
	b.WriteString(" Low | Mod | High | Avg | STD |\n|---|")
	for v := 0; v <= ScaleMax+5; v++ {
		b.WriteString("---|")
	}
	b.WriteString("\n")
	for _, s := range rows {
		b.WriteString("| " + safeVal(s.Question) + " |")
		for _, c := range s.Counts {
			b.WriteString(fmt.Sprintf(" %d |", c))
		}
		b.WriteString(fmt.Sprintf(" %.2f | %.2f | %.2f | %.2f | %.2f |\n", s.Low, s.Mod, s.High, s.Avg, s.STD))
	}
	return b.String()
}

// CorrMarkdown renders the matrix followed by the strongest pairs.
func CorrMarkdown(m *CorrMatrix) string {
	var b strings.Builder
	b.WriteString("[CORRELATIONS]\n")
	if m.Empty() {
		b.WriteString("(not enough paired numeric answers)\n")
		return b.String()
	}
	b.WriteString("| |")
	for _, c := range m.Columns {
		b.WriteString(" " + safeVal(c) + " |")
	}
	b.WriteString("\n|---|")
	for range m.Columns {
		b.WriteString("---|")
	}
	b.WriteString("\n")
	for i, c := range m.Columns {
		b.WriteString("| " + safeVal(c) + " |")
		for j := range m.Columns {
			if r, ok := m.At(i, j); ok {
				b.WriteString(fmt.Sprintf(" %.3f |", r))
			} else {
				b.WriteString(" - |")
			}
		}
		b.WriteString("\n")
	}

	pairs := m.TopPairs(10)
	if len(pairs) > 0 {
		b.WriteString("\n[TOP PAIRS]\n")
		for _, p := range pairs {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", p.A, p.B, p.R))
		}
	}
	return b.String()
}

// PairCorr is one off-diagonal coefficient.
type PairCorr struct {
	A, B string
	R    float64
}

// TopPairs lists defined off-diagonal pairs by descending |r|.
func (m *CorrMatrix) TopPairs(limit int) []PairCorr {
	var pairs []PairCorr
	for i := range m.Columns {
		for j := i + 1; j < len(m.Columns); j++ {
			if r, ok := m.At(i, j); ok {
				pairs = append(pairs, PairCorr{A: m.Columns[i], B: m.Columns[j], R: r})
			}
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return math.Abs(pairs[i].R) > math.Abs(pairs[j].R)
	})
	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}

// WriteCountsCSV writes the counts table with the same columns as the JSON form.
func WriteCountsCSV(w io.Writer, rows []QuestionSummary) error {
	cw := csv.NewWriter(w)
	header := []string{"Question"}
	for v := 0; v <= ScaleMax; v++ {
		header = append(header, strconv.Itoa(v))
	}
	header = append(header, "Low", "Mod", "High", "Avg", "STD")
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, s := range rows {
		rec := []string{s.Question}
		for _, c := range s.Counts {
			rec = append(rec, strconv.Itoa(c))
		}
		for _, x := range []float64{s.Low, s.Mod, s.High, s.Avg, s.STD} {
			rec = append(rec, strconv.FormatFloat(x, 'f', -1, 64))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// YAML marshals any result value with yaml.v3.
func YAML(v any) ([]byte, error) {
	b, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal yaml: %w", err)
	}
	return b, nil
}

// Markdown renders a compact column overview.
func (p *Profile) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if p.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", p.Name))
	}
	b.WriteString(fmt.Sprintf("Respondents: %d\n", p.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(p.Columns)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range p.Columns {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s (%s): %s (non-null %d, missing %.1f%%)", safeVal(c.Name), c.Role, c.Kind, c.NonNull, missPct))
		switch c.Kind {
		case "likert", "numeric":
			b.WriteString(fmt.Sprintf(" — min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std))
		case "categorical":
			b.WriteString(" — top: ")
			for i, kv := range c.TopValues {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
			}
			if c.Unique > len(c.TopValues) {
				b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
			}
		case "text":
			if len(c.ExampleTexts) > 0 {
				b.WriteString(" — e.g., ")
				for i, ex := range c.ExampleTexts {
					if i > 0 {
						b.WriteString(" | ")
					}
					b.WriteString(safeVal(ex))
				}
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
