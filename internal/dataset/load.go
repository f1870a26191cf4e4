package dataset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DefaultIDColumn is the respondent key column of survey exports.
const DefaultIDColumn = "#"

// LoadOptions controls how a survey export is read and typed.
type LoadOptions struct {
	// IDColumn names the respondent key. Defaults to "#".
	IDColumn string
	// DropColumns are removed after header trimming (non-semantic identifiers).
	DropColumns []string
	// MetadataColumns are kept for filtering but excluded from the reshape.
	MetadataColumns []string
	// Delimiter for CSV. If 0, ',' or '\t' is chosen from the file extension.
	Delimiter rune
	// Sheet selects an XLSX sheet by name; empty means the first sheet.
	Sheet string
}

// DefaultLoadOptions returns the options used for survey platform exports.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		IDColumn:    DefaultIDColumn,
		DropColumns: []string{"Network ID"},
	}
}

// Reader turns a raw export into a header and rows of cells.
type Reader interface {
	CanRead(filename string) bool
	Read(r io.Reader, filename string, opt LoadOptions) (header []string, rows [][]string, err error)
}

var registry []Reader

// Register adds a reader implementation to the registry.
func Register(r Reader) {
	registry = append(registry, r)
}

// Supported reports whether some registered reader handles filename.
func Supported(filename string) bool {
	return readerFor(filename) != nil
}

func readerFor(filename string) Reader {
	for _, r := range registry {
		if r.CanRead(filename) {
			return r
		}
	}
	return nil
}

func init() {
	Register(csvReader{})
	Register(xlsxReader{})
}

// Load opens path, picks a reader by extension and returns the validated Dataset.
func Load(path string, opt LoadOptions) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Source: filepath.Base(path), Err: err}
	}
	defer f.Close()
	return LoadFrom(f, filepath.Base(path), opt)
}

// LoadFrom reads an export from r; filename selects the reader.
func LoadFrom(r io.Reader, filename string, opt LoadOptions) (*Dataset, error) {
	rd := readerFor(filename)
	if rd == nil {
		return nil, &LoadError{Source: filename, Err: fmt.Errorf("unsupported file type %q", filepath.Ext(filename))}
	}
	header, rows, err := rd.Read(r, filename, opt)
	if err != nil {
		return nil, &LoadError{Source: filename, Err: err}
	}
	return FromRecords(filename, header, rows, opt)
}

// LoadCSV reads CSV content regardless of the source name.
func LoadCSV(r io.Reader, name string, opt LoadOptions) (*Dataset, error) {
	header, rows, err := csvReader{}.Read(r, name, opt)
	if err != nil {
		return nil, &LoadError{Source: name, Err: err}
	}
	return FromRecords(name, header, rows, opt)
}

// FromRecords validates a header and raw rows and assigns column roles.
// Header names are trimmed; dropped columns are removed; rows shorter than the
// header are padded with missing cells.
func FromRecords(name string, header []string, rows [][]string, opt LoadOptions) (*Dataset, error) {
	if len(header) == 0 {
		return nil, &LoadError{Source: name, Err: ErrNoHeader}
	}
	idName := opt.IDColumn
	if idName == "" {
		idName = DefaultIDColumn
	}
	drop := toSet(opt.DropColumns)
	meta := toSet(opt.MetadataColumns)

	var (
		cols []Column
		keep []int
		seen = make(map[string]int, len(header))
	)
	for i, h := range header {
		n := strings.TrimSpace(h)
		if _, ok := drop[n]; ok {
			continue
		}
		if prev, dup := seen[n]; dup {
			return nil, &LoadError{Source: name, Err: fmt.Errorf("duplicate column %q (positions %d and %d)", n, prev+1, i+1)}
		}
		seen[n] = i
		role := RoleQuestion
		switch {
		case n == idName:
			role = RoleID
		case contains(meta, n):
			role = RoleMetadata
		}
		cols = append(cols, Column{Name: n, Role: role})
		keep = append(keep, i)
	}
	if _, ok := seen[idName]; !ok {
		return nil, &LoadError{Source: name, Err: fmt.Errorf("missing respondent id column %q", idName)}
	}

	out := make([][]string, 0, len(rows))
	ids := make(map[string]int, len(rows))
	for r, raw := range rows {
		for k := len(header); k < len(raw); k++ {
			if !Blank(raw[k]) {
				return nil, &LoadError{Source: name, Err: fmt.Errorf("row %d: expected %d fields, saw %d", r+1, len(header), len(raw))}
			}
		}
		row := make([]string, len(keep))
		for j, src := range keep {
			if src < len(raw) {
				row[j] = raw[src]
			}
		}
		out = append(out, row)
	}
	d := newDataset(name, cols, out)
	for i := range out {
		id := strings.TrimSpace(d.RespondentID(i))
		if id == "" {
			return nil, &LoadError{Source: name, Err: fmt.Errorf("row %d: empty respondent id", i+1)}
		}
		if prev, dup := ids[id]; dup {
			return nil, &LoadError{Source: name, Err: fmt.Errorf("duplicate respondent id %q (rows %d and %d)", id, prev+1, i+1)}
		}
		ids[id] = i
		out[i][d.idCol] = id
	}
	return d, nil
}

func contains(set map[string]struct{}, n string) bool {
	_, ok := set[n]
	return ok
}

func toSet(names []string) map[string]struct{} {
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[strings.TrimSpace(n)] = struct{}{}
	}
	return out
}

// IsLoadError reports whether err came from loading.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}
