package analysis

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// ScaleMax is the top of the answer scale; answers run 0..ScaleMax.
const ScaleMax = 10

// QuestionSummary is one row of the counts table.
type QuestionSummary struct {
	Question string            `yaml:"question"`
	Counts   [ScaleMax + 1]int `yaml:"counts,flow"`
	Low      float64           `yaml:"low"`
	Mod      float64           `yaml:"mod"`
	High     float64           `yaml:"high"`
	Avg      float64           `yaml:"avg"`
	STD      float64           `yaml:"std"`
}

// Total is the number of in-range answers.
func (s QuestionSummary) Total() int {
	var n int
	for _, c := range s.Counts {
		n += c
	}
	return n
}

// Metric returns a computed column by name (Low, Mod, High, Avg, STD).
func (s QuestionSummary) Metric(name string) (float64, bool) {
	switch name {
	case "Low":
		return s.Low, true
	case "Mod":
		return s.Mod, true
	case "High":
		return s.High, true
	case "Avg":
		return s.Avg, true
	case "STD":
		return s.STD, true
	}
	return 0, false
}

// MarshalJSON emits a flat record: Question, "0".."10", Low, Mod, High, Avg, STD.
func (s QuestionSummary) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteString(`{"Question":`)
	q, err := json.Marshal(s.Question)
	if err != nil {
		return nil, err
	}
	b.Write(q)
	for v, c := range s.Counts {
		b.WriteString(`,"` + strconv.Itoa(v) + `":` + strconv.Itoa(c))
	}
	for _, m := range []struct {
		k string
		v float64
	}{{"Low", s.Low}, {"Mod", s.Mod}, {"High", s.High}, {"Avg", s.Avg}, {"STD", s.STD}} {
		b.WriteString(`,"` + m.k + `":` + strconv.FormatFloat(m.v, 'f', -1, 64))
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// Aggregate builds one summary per distinct question of long, in first-seen order.
// Answers outside 0..10 are left out of the histogram.
func Aggregate(long []LongRecord) []QuestionSummary {
	var out []QuestionSummary
	pos := map[string]int{}
	for _, r := range long {
		i, ok := pos[r.Question]
		if !ok {
			i = len(out)
			pos[r.Question] = i
			out = append(out, QuestionSummary{Question: r.Question})
		}
		if r.HasAnswer && inRange(r.Answer) {
			out[i].Counts[int(r.Answer)]++
		}
	}
	for i := range out {
		finish(&out[i])
	}
	return out
}

// finish derives the bucket shares, mean and spread from the counts.
func finish(s *QuestionSummary) {
	total := s.Total()
	div := float64(total)
	if total == 0 {
		div = 1
	}
	var low, mod, high, weighted int
	for v, c := range s.Counts {
		switch {
		case v <= 6:
			low += c
		case v <= 8:
			mod += c
		default:
			high += c
		}
		weighted += v * c
	}
	s.Low = round2(float64(low) / div)
	s.Mod = round2(float64(mod) / div)
	s.High = round2(float64(high) / div)
	s.Avg = round2(float64(weighted) / div)
	s.STD = round2(countSpread(s.Counts[:]))
}

// countSpread is the sample standard deviation of the bucket counts themselves,
// not of the answers.
func countSpread(counts []int) float64 {
	n := len(counts)
	if n < 2 {
		return 0
	}
	var mean float64
	for _, c := range counts {
		mean += float64(c)
	}
	mean /= float64(n)
	var ss float64
	for _, c := range counts {
		d := float64(c) - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// round2 rounds to two decimals, sending exact ties to the even digit.
func round2(x float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(x, 'f', 2, 64), 64)
	return r
}
