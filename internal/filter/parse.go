package filter

import (
	"strings"
)

// SummaryColumns are the computed metrics of a counts table. Predicates naming
// them filter summary rows rather than respondents.
var SummaryColumns = []string{"Low", "Mod", "High", "Avg", "STD"}

// Set is a parsed filter expression split by target.
type Set struct {
	Rows    []Predicate
	Summary []Predicate
}

// Empty reports whether the set holds no predicates at all.
func (s Set) Empty() bool { return len(s.Rows) == 0 && len(s.Summary) == 0 }

const filterUsage = "each filter must be in the format 'column operator value', e.g. 'Age >= 30, Gender = Female, Avg >= 4.5'"

// ParseFilters parses a comma-separated list of "column operator value" items.
// The operator is the first whitespace-separated token that is a valid operator,
// so column names may contain spaces. Values lose surrounding quotes.
func ParseFilters(s string) (Set, error) {
	var out Set
	if strings.TrimSpace(s) == "" {
		return out, nil
	}
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		p, err := parseItem(item)
		if err != nil {
			return Set{}, err
		}
		if isSummaryColumn(p.Column) {
			out.Summary = append(out.Summary, p)
		} else {
			out.Rows = append(out.Rows, p)
		}
	}
	return out, nil
}

func parseItem(item string) (Predicate, error) {
	fields := strings.Fields(item)
	if len(fields) < 3 {
		return Predicate{}, &SyntaxError{Input: item, Msg: filterUsage}
	}
	opAt := -1
	for i := 1; i < len(fields)-1; i++ {
		if _, err := ParseOperator(fields[i]); err == nil {
			opAt = i
			break
		}
	}
	if opAt < 0 {
		_, err := ParseOperator(fields[1])
		return Predicate{}, &SyntaxError{Input: item, Msg: err.Error()}
	}
	col := strings.Join(fields[:opAt], " ")
	val := strings.Trim(strings.Join(fields[opAt+1:], " "), `'"`)
	if col == "" || val == "" {
		return Predicate{}, &SyntaxError{Input: item, Msg: "filter keys and values cannot be empty"}
	}
	return New(col, fields[opAt], val)
}

func isSummaryColumn(name string) bool {
	for _, c := range SummaryColumns {
		if c == name {
			return true
		}
	}
	return false
}

// ParseGroupFilter parses "Question:Bucket", splitting on the last colon so the
// question text may itself contain colons.
func ParseGroupFilter(s string) (*GroupFilter, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return nil, &SyntaxError{Input: s, Msg: "group filter must be in the format 'Question:Group', e.g. 'I am excited to work most days.:Low'"}
	}
	q := strings.TrimSpace(s[:i])
	b, err := ParseBucket(strings.TrimSpace(s[i+1:]))
	if err != nil {
		return nil, err
	}
	if q == "" {
		return nil, &SyntaxError{Input: s, Msg: "group filter question cannot be empty"}
	}
	return &GroupFilter{Question: q, Bucket: b}, nil
}
