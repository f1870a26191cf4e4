package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/KaramelBytes/surveyloom-cli/internal/dataset"
)

// Operator is one of the six supported comparison operators.
type Operator string

const (
	OpEq Operator = "="
	OpNe Operator = "!="
	OpGe Operator = ">="
	OpLe Operator = "<="
	OpGt Operator = ">"
	OpLt Operator = "<"
)

// Operators lists the valid operators in display order.
var Operators = []Operator{OpEq, OpNe, OpGe, OpLe, OpGt, OpLt}

// ParseOperator validates an operator token.
func ParseOperator(s string) (Operator, error) {
	for _, op := range Operators {
		if string(op) == s {
			return op, nil
		}
	}
	return "", fmt.Errorf("invalid operator %q (allowed: %s)", s, joinOps())
}

func joinOps() string {
	parts := make([]string, len(Operators))
	for i, op := range Operators {
		parts[i] = string(op)
	}
	return strings.Join(parts, ", ")
}

// Ordering reports whether the operator needs an ordered (numeric) comparison.
func (o Operator) Ordering() bool {
	return o != OpEq && o != OpNe
}

var decimalToken = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)$`)

// Value is a predicate operand. Tokens that are plain integers or decimals are numeric.
type Value struct {
	Raw   string
	Num   float64
	IsNum bool
}

// NewValue classifies a raw operand.
func NewValue(raw string) Value {
	v := Value{Raw: raw}
	if n, ok := decimal(raw); ok {
		v.Num, v.IsNum = n, true
	}
	return v
}

// NumberValue builds a numeric operand.
func NumberValue(n float64) Value {
	return Value{Raw: strconv.FormatFloat(n, 'f', -1, 64), Num: n, IsNum: true}
}

func (v Value) String() string { return v.Raw }

func decimal(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if !decimalToken.MatchString(s) {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Predicate is a single "column operator value" row test.
type Predicate struct {
	Column string
	Op     Operator
	Value  Value
}

// New builds a predicate from raw parts, validating the operator.
func New(column, op, value string) (Predicate, error) {
	o, err := ParseOperator(op)
	if err != nil {
		return Predicate{}, err
	}
	return Predicate{Column: strings.TrimSpace(column), Op: o, Value: NewValue(value)}, nil
}

func (p Predicate) String() string {
	return fmt.Sprintf("%s %s %s", p.Column, p.Op, p.Value.Raw)
}

// Match tests a raw cell against the predicate.
//
// Numeric operands compare against the cell coerced the same way: a missing cell
// only satisfies "!=", a non-numeric cell satisfies "!=" and fails "=", and an
// ordering operator against non-numeric text is a FilterTypeError. Text operands
// support only "=" and "!=".
func (p Predicate) Match(cell string) (bool, error) {
	if p.Value.IsNum {
		if dataset.Blank(cell) {
			return p.Op == OpNe, nil
		}
		n, ok := dataset.Number(cell)
		if !ok {
			if p.Op.Ordering() {
				return false, &FilterTypeError{Column: p.Column, Op: p.Op, Value: p.Value.Raw, Cell: cell}
			}
			return p.Op == OpNe, nil
		}
		return compare(n, p.Op, p.Value.Num), nil
	}
	if p.Op.Ordering() {
		return false, &FilterTypeError{Column: p.Column, Op: p.Op, Value: p.Value.Raw}
	}
	eq := strings.TrimSpace(cell) == p.Value.Raw
	if p.Op == OpEq {
		return eq, nil
	}
	return !eq, nil
}

// MatchNumber tests an already numeric quantity (e.g. a computed metric).
func (p Predicate) MatchNumber(x float64) (bool, error) {
	if !p.Value.IsNum {
		return false, &FilterTypeError{Column: p.Column, Op: p.Op, Value: p.Value.Raw}
	}
	return compare(x, p.Op, p.Value.Num), nil
}

func compare(a float64, op Operator, b float64) bool {
	switch op {
	case OpEq:
		return a == b
	case OpNe:
		return a != b
	case OpGe:
		return a >= b
	case OpLe:
		return a <= b
	case OpGt:
		return a > b
	case OpLt:
		return a < b
	}
	return false
}

// Apply returns the rows of ds satisfying every predicate. Predicates naming a
// column the dataset does not have are ignored. ds is never modified.
func Apply(ds *dataset.Dataset, preds []Predicate) (*dataset.Dataset, error) {
	type bound struct {
		p   Predicate
		col int
	}
	var active []bound
	for _, p := range preds {
		if idx, ok := ds.ColumnIndex(p.Column); ok {
			active = append(active, bound{p: p, col: idx})
		}
	}
	if len(active) == 0 {
		return ds.Subset(allRows(ds.Len())), nil
	}
	keep := make([]int, 0, ds.Len())
rows:
	for i, row := range ds.Rows {
		for _, b := range active {
			ok, err := b.p.Match(row[b.col])
			if err != nil {
				return nil, err
			}
			if !ok {
				continue rows
			}
		}
		keep = append(keep, i)
	}
	return ds.Subset(keep), nil
}

func allRows(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
