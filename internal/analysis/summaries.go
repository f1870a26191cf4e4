package analysis

import "github.com/KaramelBytes/surveyloom-cli/internal/filter"

// FilterSummaries keeps the rows whose computed metrics satisfy every predicate.
// Predicates on names that are not metrics are ignored.
func FilterSummaries(rows []QuestionSummary, preds []filter.Predicate) ([]QuestionSummary, error) {
	if len(preds) == 0 {
		return rows, nil
	}
	out := make([]QuestionSummary, 0, len(rows))
next:
	for _, s := range rows {
		for _, p := range preds {
			x, ok := s.Metric(p.Column)
			if !ok {
				continue
			}
			match, err := p.MatchNumber(x)
			if err != nil {
				return nil, err
			}
			if !match {
				continue next
			}
		}
		out = append(out, s)
	}
	return out, nil
}
