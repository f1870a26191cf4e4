package analysis

import (
	"math"
	"sort"

	"github.com/KaramelBytes/surveyloom-cli/internal/dataset"
)

// Profile is a per-column overview of a loaded survey, used to pick filter columns.
type Profile struct {
	Name    string
	Rows    int
	Columns []ColumnProfile
}

// ColumnProfile captures inferred kind and statistics for one column.
type ColumnProfile struct {
	Name    string
	Role    string
	Kind    string // likert|numeric|categorical|text|empty
	NonNull int
	Missing int
	Numeric int
	Unique  int
	// Numeric stats
	Min  float64
	Max  float64
	Mean float64
	Std  float64
	// Top text values
	TopValues    []CategoryCount
	ExampleTexts []string
}

type CategoryCount struct {
	Value string
	Count int
}

const (
	maxTopValues = 8
	maxExamples  = 3
	maxCategory  = 64
)

// Describe profiles every column of ds.
func Describe(ds *dataset.Dataset) *Profile {
	p := &Profile{Name: ds.Name, Rows: ds.Len()}
	for j, col := range ds.Columns {
		p.Columns = append(p.Columns, describeColumn(ds, j, col))
	}
	return p
}

func describeColumn(ds *dataset.Dataset, j int, col dataset.Column) ColumnProfile {
	c := ColumnProfile{Name: col.Name, Role: col.Role.String(), Min: math.Inf(1), Max: math.Inf(-1)}
	var (
		mean, m2 float64
		onScale  = true
		cats     = map[string]int{}
		texts    int
	)
	for _, row := range ds.Rows {
		v := row[j]
		if dataset.Blank(v) {
			c.Missing++
			continue
		}
		c.NonNull++
		if x, ok := dataset.Number(v); ok {
			c.Numeric++
			// Welford update
			delta := x - mean
			mean += delta / float64(c.Numeric)
			m2 += delta * (x - mean)
			c.Min = math.Min(c.Min, x)
			c.Max = math.Max(c.Max, x)
			if x != math.Trunc(x) || !inRange(x) {
				onScale = false
			}
			continue
		}
		texts++
		if len(v) <= maxCategory {
			cats[v]++
		}
		if len(c.ExampleTexts) < maxExamples {
			c.ExampleTexts = append(c.ExampleTexts, v)
		}
	}

	switch {
	case c.NonNull == 0:
		c.Kind = "empty"
	case c.Numeric >= texts:
		c.Kind = "numeric"
		if onScale && col.Role == dataset.RoleQuestion {
			c.Kind = "likert"
		}
		c.Mean = mean
		if c.Numeric > 1 {
			c.Std = math.Sqrt(m2 / float64(c.Numeric-1))
		}
	case len(cats) > 0 && len(cats) < texts:
		c.Kind = "categorical"
		c.TopValues = topValues(cats)
		c.Unique = len(cats)
		c.ExampleTexts = nil
	default:
		c.Kind = "text"
		c.Unique = len(cats)
	}
	if c.Numeric == 0 {
		c.Min, c.Max = 0, 0
	}
	return c
}

func topValues(cats map[string]int) []CategoryCount {
	tops := make([]CategoryCount, 0, len(cats))
	for k, v := range cats {
		tops = append(tops, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > maxTopValues {
		tops = tops[:maxTopValues]
	}
	return tops
}
