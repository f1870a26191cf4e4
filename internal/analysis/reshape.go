package analysis

import (
	"math"

	"github.com/KaramelBytes/surveyloom-cli/internal/dataset"
)

// LongRecord is one (respondent, question) answer of the long form.
type LongRecord struct {
	Respondent string
	Question   string
	// Answer is the numeric answer truncated toward zero. Only meaningful when HasAnswer.
	Answer    float64
	HasAnswer bool
}

// View pairs the retained rows in original form with their numeric long form.
type View struct {
	Original *dataset.Dataset
	Long     []LongRecord
}

// Melt emits one record per respondent and question column, respondent-major and
// column-minor. Missing or non-numeric cells produce records without an answer.
func Melt(ds *dataset.Dataset) []LongRecord {
	cols := questionIndexes(ds)
	out := make([]LongRecord, 0, ds.Len()*len(cols))
	for i, row := range ds.Rows {
		id := ds.RespondentID(i)
		for _, j := range cols {
			rec := LongRecord{Respondent: id, Question: ds.Columns[j].Name}
			if x, ok := dataset.Number(row[j]); ok {
				rec.Answer, rec.HasAnswer = truncate(x), true
			}
			out = append(out, rec)
		}
	}
	return out
}

// Numeric drops records without an answer, keeping order.
func Numeric(long []LongRecord) []LongRecord {
	out := make([]LongRecord, 0, len(long))
	for _, r := range long {
		if r.HasAnswer {
			out = append(out, r)
		}
	}
	return out
}

// Reshape keeps the rows of ds whose respondent is in ids (all rows for a nil set)
// and returns them alongside their numeric long form.
func Reshape(ds *dataset.Dataset, ids RespondentSet) View {
	kept := ds.Retain(ids)
	return View{Original: kept, Long: Numeric(Melt(kept))}
}

func questionIndexes(ds *dataset.Dataset) []int {
	var out []int
	for j, c := range ds.Columns {
		if c.Role == dataset.RoleQuestion {
			out = append(out, j)
		}
	}
	return out
}

// truncate maps a coerced answer onto the integer scale.
func truncate(x float64) float64 { return math.Trunc(x) }
