package analysis

import (
	"sort"

	"github.com/KaramelBytes/surveyloom-cli/internal/dataset"
	"github.com/KaramelBytes/surveyloom-cli/internal/filter"
)

// RespondentSet is a set of respondent ids. A nil set means "no restriction".
type RespondentSet map[string]struct{}

// Has reports membership.
func (s RespondentSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the ids in ascending order.
func (s RespondentSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ResolveGroup returns the respondents whose numeric answer to g.Question falls in
// g.Bucket. The bucket is validated before the question.
func ResolveGroup(ds *dataset.Dataset, g filter.GroupFilter) (RespondentSet, error) {
	if !g.Bucket.Valid() {
		return nil, &filter.InvalidBucketError{Bucket: string(g.Bucket)}
	}
	if !ds.HasColumn(g.Question) || g.Question == ds.IDColumn() {
		return nil, &UnknownQuestionError{Question: g.Question}
	}
	out := RespondentSet{}
	for _, rec := range Numeric(meltColumn(ds, g.Question)) {
		if inRange(rec.Answer) && g.Bucket.Contains(int(rec.Answer)) {
			out[rec.Respondent] = struct{}{}
		}
	}
	return out, nil
}

// meltColumn is Melt restricted to one column. Metadata columns are allowed so a
// group can be defined on any numeric column the caller names.
func meltColumn(ds *dataset.Dataset, column string) []LongRecord {
	out := make([]LongRecord, 0, ds.Len())
	for i := range ds.Rows {
		cell, _ := ds.Cell(i, column)
		rec := LongRecord{Respondent: ds.RespondentID(i), Question: column}
		if x, ok := dataset.Number(cell); ok {
			rec.Answer, rec.HasAnswer = truncate(x), true
		}
		out = append(out, rec)
	}
	return out
}

func inRange(x float64) bool { return x >= 0 && x <= 10 }
