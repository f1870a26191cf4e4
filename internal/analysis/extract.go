package analysis

import "github.com/KaramelBytes/surveyloom-cli/internal/dataset"

// extractText returns the raw answers to question from the retained rows,
// dropping blanks and keeping source order.
func extractText(v View, question string) ([]string, error) {
	ds := v.Original
	if !ds.HasColumn(question) || question == ds.IDColumn() {
		return nil, &UnknownQuestionError{Question: question}
	}
	var out []string
	for i := range ds.Rows {
		cell, _ := ds.Cell(i, question)
		if dataset.Blank(cell) {
			continue
		}
		out = append(out, cell)
	}
	if len(out) == 0 {
		return nil, &NoResponsesError{Question: question}
	}
	return out, nil
}
