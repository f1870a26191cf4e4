package analysis

import (
	"github.com/KaramelBytes/surveyloom-cli/internal/dataset"
	"github.com/KaramelBytes/surveyloom-cli/internal/filter"
)

// Prepare runs the shared front of every pipeline: predicate filter, optional
// group resolution, then reshape. ds is not modified.
func Prepare(ds *dataset.Dataset, preds []filter.Predicate, group *filter.GroupFilter) (View, error) {
	filtered, err := filter.Apply(ds, preds)
	if err != nil {
		return View{}, err
	}
	var ids RespondentSet
	if group != nil {
		ids, err = ResolveGroup(filtered, *group)
		if err != nil {
			return View{}, err
		}
	}
	return Reshape(filtered, ids), nil
}

// ComputeCounts returns one summary per question column of ds. Questions with no
// numeric answer after filtering get an all-zero row, appended in column order.
func ComputeCounts(ds *dataset.Dataset, preds []filter.Predicate, group *filter.GroupFilter) ([]QuestionSummary, error) {
	v, err := Prepare(ds, preds, group)
	if err != nil {
		return nil, err
	}
	out := Aggregate(v.Long)
	seen := make(map[string]bool, len(out))
	for _, s := range out {
		seen[s.Question] = true
	}
	for _, q := range ds.Questions() {
		if !seen[q] {
			out = append(out, QuestionSummary{Question: q})
		}
	}
	return out, nil
}

// ComputeCorrelation returns the pairwise-complete correlation matrix of the
// questions answered after filtering.
func ComputeCorrelation(ds *dataset.Dataset, preds []filter.Predicate, group *filter.GroupFilter) (*CorrMatrix, error) {
	v, err := Prepare(ds, preds, group)
	if err != nil {
		return nil, err
	}
	return Correlate(v.Long), nil
}

// ExtractResponses returns the non-blank raw answers to question from the
// filtered respondents.
func ExtractResponses(ds *dataset.Dataset, preds []filter.Predicate, group *filter.GroupFilter, question string) ([]string, error) {
	v, err := Prepare(ds, preds, group)
	if err != nil {
		return nil, err
	}
	return extractText(v, question)
}
