package dataset

// Role classifies a column for downstream processing.
type Role int

const (
	// RoleQuestion columns are reshaped and aggregated.
	RoleQuestion Role = iota
	// RoleID marks the respondent key column.
	RoleID
	// RoleMetadata columns stay out of the reshape but remain filterable.
	RoleMetadata
)

func (r Role) String() string {
	switch r {
	case RoleID:
		return "id"
	case RoleMetadata:
		return "metadata"
	default:
		return "question"
	}
}

// Column is a named, typed column of a Dataset.
type Column struct {
	Name string
	Role Role
}

// Dataset is an in-memory survey table: one row per respondent, one cell per column.
// A cell is the raw text read from the source; the empty string means missing.
//
// Datasets are treated as immutable once loaded. Subset and Retain return new
// Datasets that share row storage with the parent.
type Dataset struct {
	Name    string
	Columns []Column
	Rows    [][]string

	idCol int
	index map[string]int
}

// newDataset builds the lookup index. Callers must have validated columns already.
func newDataset(name string, cols []Column, rows [][]string) *Dataset {
	d := &Dataset{Name: name, Columns: cols, Rows: rows, idCol: -1, index: make(map[string]int, len(cols))}
	for i, c := range cols {
		d.index[c.Name] = i
		if c.Role == RoleID {
			d.idCol = i
		}
	}
	return d
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.Rows) }

// ColumnIndex returns the position of a column by exact (trimmed) name.
func (d *Dataset) ColumnIndex(name string) (int, bool) {
	i, ok := d.index[name]
	return i, ok
}

// HasColumn reports whether the dataset has a column with this name.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// IDColumn returns the name of the respondent key column.
func (d *Dataset) IDColumn() string {
	if d.idCol < 0 {
		return ""
	}
	return d.Columns[d.idCol].Name
}

// RespondentID returns the respondent key of row i.
func (d *Dataset) RespondentID(i int) string {
	if d.idCol < 0 {
		return ""
	}
	return d.Rows[i][d.idCol]
}

// Questions lists question columns in source order.
func (d *Dataset) Questions() []string {
	var out []string
	for _, c := range d.Columns {
		if c.Role == RoleQuestion {
			out = append(out, c.Name)
		}
	}
	return out
}

// IsQuestion reports whether name is a question column.
func (d *Dataset) IsQuestion(name string) bool {
	i, ok := d.index[name]
	return ok && d.Columns[i].Role == RoleQuestion
}

// Cell returns the raw cell of row i for the named column.
func (d *Dataset) Cell(i int, column string) (string, bool) {
	j, ok := d.index[column]
	if !ok {
		return "", false
	}
	return d.Rows[i][j], true
}

// Subset returns a dataset holding only the given row positions, in the given order.
func (d *Dataset) Subset(rows []int) *Dataset {
	out := make([][]string, 0, len(rows))
	for _, i := range rows {
		out = append(out, d.Rows[i])
	}
	return d.derive(out)
}

// Retain keeps rows whose respondent id is in ids. A nil set keeps every row.
func (d *Dataset) Retain(ids map[string]struct{}) *Dataset {
	if ids == nil {
		return d.derive(d.Rows)
	}
	out := make([][]string, 0, len(ids))
	for i, row := range d.Rows {
		if _, ok := ids[d.RespondentID(i)]; ok {
			out = append(out, row)
		}
	}
	return d.derive(out)
}

func (d *Dataset) derive(rows [][]string) *Dataset {
	return &Dataset{Name: d.Name, Columns: d.Columns, Rows: rows, idCol: d.idCol, index: d.index}
}
