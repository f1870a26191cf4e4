package analysis

import "math"

// CorrMatrix is a symmetric Pearson correlation matrix across questions.
// A nil cell means the coefficient is undefined for that pair.
type CorrMatrix struct {
	Columns []string     `json:"columns" yaml:"columns"`
	Values  [][]*float64 `json:"values" yaml:"values"`
}

// At returns the coefficient for (i, j).
func (m *CorrMatrix) At(i, j int) (float64, bool) {
	if v := m.Values[i][j]; v != nil {
		return *v, true
	}
	return 0, false
}

// Lookup returns the coefficient for two questions by name.
func (m *CorrMatrix) Lookup(a, b string) (float64, bool) {
	ia, ib := -1, -1
	for i, c := range m.Columns {
		if c == a {
			ia = i
		}
		if c == b {
			ib = i
		}
	}
	if ia < 0 || ib < 0 {
		return 0, false
	}
	return m.At(ia, ib)
}

// Empty reports whether the matrix has no columns.
func (m *CorrMatrix) Empty() bool { return m == nil || len(m.Columns) == 0 }

type pairAcc struct {
	n     float64
	sumX  float64
	sumY  float64
	sumXX float64
	sumYY float64
	sumXY float64
}

func (p *pairAcc) add(x, y float64) {
	p.n++
	p.sumX += x
	p.sumY += y
	p.sumXX += x * x
	p.sumYY += y * y
	p.sumXY += x * y
}

// r returns the Pearson coefficient, or false when fewer than two pairs were seen
// or either side has zero variance.
func (p *pairAcc) r() (float64, bool) {
	if p == nil || p.n < 2 {
		return 0, false
	}
	vx := p.n*p.sumXX - p.sumX*p.sumX
	vy := p.n*p.sumYY - p.sumY*p.sumY
	if vx <= 0 || vy <= 0 {
		return 0, false
	}
	r := (p.n*p.sumXY - p.sumX*p.sumY) / math.Sqrt(vx*vy)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r, true
}

// Correlate pivots numeric long records to respondent × question and computes
// pairwise-complete Pearson correlations. Columns follow first-seen question order.
// Answers outside 0..ScaleMax keep their question's column but never enter a
// sum. The diagonal is 1 for questions with at least two in-range answers.
// A repeated (respondent, question) key yields an empty matrix.
func Correlate(long []LongRecord) *CorrMatrix {
	var cols []string
	colIdx := map[string]int{}
	var order []string
	rows := map[string]map[int]float64{}
	for _, r := range long {
		if !r.HasAnswer {
			continue
		}
		j, ok := colIdx[r.Question]
		if !ok {
			j = len(cols)
			colIdx[r.Question] = j
			cols = append(cols, r.Question)
		}
		if !inRange(r.Answer) {
			continue
		}
		row, ok := rows[r.Respondent]
		if !ok {
			row = map[int]float64{}
			rows[r.Respondent] = row
			order = append(order, r.Respondent)
		}
		if _, dup := row[j]; dup {
			return &CorrMatrix{}
		}
		row[j] = r.Answer
	}

	n := len(cols)
	if n == 0 {
		return &CorrMatrix{}
	}
	answered := make([]int, n)
	pairs := make([]pairAcc, n*n)
	for _, id := range order {
		row := rows[id]
		for a, x := range row {
			answered[a]++
			for b, y := range row {
				if b < a {
					pairs[a*n+b].add(x, y)
				}
			}
		}
	}

	vals := make([][]*float64, n)
	for i := range vals {
		vals[i] = make([]*float64, n)
	}
	for a := 0; a < n; a++ {
		if answered[a] >= 2 {
			vals[a][a] = ptr(1)
		}
		for b := 0; b < a; b++ {
			if r, ok := pairs[a*n+b].r(); ok {
				vals[a][b] = ptr(r)
				vals[b][a] = ptr(r)
			}
		}
	}
	return &CorrMatrix{Columns: cols, Values: vals}
}

func ptr(f float64) *float64 { return &f }
