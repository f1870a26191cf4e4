package filter

import "fmt"

// FilterTypeError indicates an operator/value combination that cannot be compared,
// such as an ordering operator against text.
type FilterTypeError struct {
	Column string
	Op     Operator
	Value  string
	Cell   string
}

func (e *FilterTypeError) Error() string {
	if e.Cell != "" {
		return fmt.Sprintf("filter %s %s %s: cannot compare non-numeric value %q", e.Column, e.Op, e.Value, e.Cell)
	}
	return fmt.Sprintf("filter %s %s %s: operator requires a numeric value", e.Column, e.Op, e.Value)
}

// InvalidBucketError indicates a group name other than Low, Mod or High.
type InvalidBucketError struct{ Bucket string }

func (e *InvalidBucketError) Error() string {
	return fmt.Sprintf("invalid group %q: must be 'Low', 'Mod', or 'High'", e.Bucket)
}

// SyntaxError indicates a malformed filter or group-filter string.
type SyntaxError struct {
	Input string
	Msg   string
}

func (e *SyntaxError) Error() string {
	if e.Input != "" {
		return fmt.Sprintf("invalid filter %q: %s", e.Input, e.Msg)
	}
	return fmt.Sprintf("invalid filter: %s", e.Msg)
}
