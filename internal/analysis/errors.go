package analysis

import "fmt"

// UnknownQuestionError indicates a question that is not a column of the dataset.
type UnknownQuestionError struct{ Question string }

func (e *UnknownQuestionError) Error() string {
	return fmt.Sprintf("unknown question %q", e.Question)
}

// NoResponsesError indicates that no respondent left after filtering answered the question.
type NoResponsesError struct{ Question string }

func (e *NoResponsesError) Error() string {
	return fmt.Sprintf("no responses for question %q", e.Question)
}
