package filter_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/surveyloom-cli/internal/dataset"
	"github.com/KaramelBytes/surveyloom-cli/internal/filter"
)

func load(t *testing.T, in string) *dataset.Dataset {
	t.Helper()
	opt := dataset.DefaultLoadOptions()
	opt.MetadataColumns = []string{"Age", "Gender"}
	ds, err := dataset.LoadCSV(strings.NewReader(in), "s.csv", opt)
	require.NoError(t, err)
	return ds
}

const people = "#,Age,Gender,Q1\n" +
	"r1,25,Female,3\n" +
	"r2,35,Male,8\n" +
	"r3,,Female,10\n" +
	"r4,n/a,Other,\n"

func ids(ds *dataset.Dataset) []string {
	out := make([]string, ds.Len())
	for i := range out {
		out[i] = ds.RespondentID(i)
	}
	return out
}

func mustPred(t *testing.T, col, op, val string) filter.Predicate {
	t.Helper()
	p, err := filter.New(col, op, val)
	require.NoError(t, err)
	return p
}

func TestApplyNumericAndText(t *testing.T) {
	ds := load(t, people)

	got, err := filter.Apply(ds, []filter.Predicate{mustPred(t, "Gender", "=", "Female")})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r3"}, ids(got))

	got, err = filter.Apply(ds, []filter.Predicate{
		mustPred(t, "Gender", "=", "Female"),
		mustPred(t, "Q1", ">=", "5"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"r3"}, ids(got))

	assert.Equal(t, 4, ds.Len(), "input must not be mutated")
}

func TestApplyMissingAndNonNumericCells(t *testing.T) {
	ds := load(t, people)

	// r3 has a missing Age and r4 a non-numeric one.
	got, err := filter.Apply(ds, []filter.Predicate{mustPred(t, "Age", "=", "25")})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, ids(got))

	got, err = filter.Apply(ds, []filter.Predicate{mustPred(t, "Age", "!=", "25")})
	require.NoError(t, err)
	assert.Equal(t, []string{"r2", "r3", "r4"}, ids(got))

	_, err = filter.Apply(ds, []filter.Predicate{mustPred(t, "Age", ">", "30")})
	var fte *filter.FilterTypeError
	require.ErrorAs(t, err, &fte)
	assert.Equal(t, "n/a", fte.Cell)
}

func TestApplyOrderingOnTextValue(t *testing.T) {
	ds := load(t, people)
	_, err := filter.Apply(ds, []filter.Predicate{mustPred(t, "Gender", ">", "Female")})
	var fte *filter.FilterTypeError
	require.ErrorAs(t, err, &fte)
	assert.Equal(t, "Gender", fte.Column)
}

func TestApplyUnknownColumnIsNoOp(t *testing.T) {
	ds := load(t, "#,Q1\nr1,3\nr2,8\n")
	got, err := filter.Apply(ds, []filter.Predicate{mustPred(t, "Gender", "=", "Female")})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, ids(got))
}

func TestOperators(t *testing.T) {
	cases := []struct {
		op   string
		cell string
		want bool
	}{
		{"=", "5", true},
		{"=", "5.0", true},
		{"!=", "5", false},
		{">=", "5", true},
		{">", "5", false},
		{"<=", "4", true},
		{"<", "6", false},
	}
	for _, c := range cases {
		p := mustPred(t, "Q", c.op, "5")
		got, err := p.Match(c.cell)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "%s %s 5", c.cell, c.op)
	}
	_, err := filter.ParseOperator("==")
	assert.Error(t, err)
}

func TestNewValueClassification(t *testing.T) {
	for _, s := range []string{"30", "4.5", "-1", ".5", "7."} {
		assert.True(t, filter.NewValue(s).IsNum, s)
	}
	for _, s := range []string{"Female", "1e3", "4.5.1", ""} {
		assert.False(t, filter.NewValue(s).IsNum, s)
	}
}

func TestParseFilters(t *testing.T) {
	set, err := filter.ParseFilters("Age >= 30, Gender = 'Female', Avg >= 4.5")
	require.NoError(t, err)
	require.Len(t, set.Rows, 2)
	require.Len(t, set.Summary, 1)

	assert.Equal(t, "Age", set.Rows[0].Column)
	assert.Equal(t, filter.OpGe, set.Rows[0].Op)
	assert.True(t, set.Rows[0].Value.IsNum)
	assert.Equal(t, "Female", set.Rows[1].Value.Raw)
	assert.Equal(t, "Avg", set.Summary[0].Column)
	assert.InDelta(t, 4.5, set.Summary[0].Value.Num, 1e-9)
}

func TestParseFiltersColumnWithSpaces(t *testing.T) {
	set, err := filter.ParseFilters("I am excited to work most days. >= 7")
	require.NoError(t, err)
	require.Len(t, set.Rows, 1)
	assert.Equal(t, "I am excited to work most days.", set.Rows[0].Column)
}

func TestParseFiltersErrors(t *testing.T) {
	for _, in := range []string{"Age>=30", "Age ~ 30", "Age >= ''"} {
		_, err := filter.ParseFilters(in)
		var se *filter.SyntaxError
		assert.ErrorAs(t, err, &se, in)
	}
	set, err := filter.ParseFilters("  ")
	require.NoError(t, err)
	assert.True(t, set.Empty())
}

func TestParseGroupFilter(t *testing.T) {
	g, err := filter.ParseGroupFilter("Rate this: overall:Low ")
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, "Rate this: overall", g.Question)
	assert.Equal(t, filter.Low, g.Bucket)

	_, err = filter.ParseGroupFilter("Q1:low")
	var ibe *filter.InvalidBucketError
	assert.ErrorAs(t, err, &ibe)

	_, err = filter.ParseGroupFilter("Q1")
	var se *filter.SyntaxError
	assert.ErrorAs(t, err, &se)

	g, err = filter.ParseGroupFilter("")
	require.NoError(t, err)
	assert.Nil(t, g)
}

func TestBuckets(t *testing.T) {
	for v := 0; v <= 6; v++ {
		b, ok := filter.BucketOf(v)
		assert.True(t, ok)
		assert.Equal(t, filter.Low, b)
	}
	assert.True(t, filter.Mod.Contains(7))
	assert.True(t, filter.Mod.Contains(8))
	assert.True(t, filter.High.Contains(9))
	assert.True(t, filter.High.Contains(10))
	_, ok := filter.BucketOf(11)
	assert.False(t, ok)
	_, ok = filter.BucketOf(-1)
	assert.False(t, ok)
	assert.False(t, filter.Bucket("Medium").Valid())
}
