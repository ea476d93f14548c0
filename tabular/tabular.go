// Package tabular reads the self-describing tab-separated data files produced
// by sweep measurements. A file consists of a comment-prefixed header block, a
// column-name/units line, tab-separated data rows, and (in recent format
// versions) a comment-prefixed footer holding the end timestamp and the row
// indices that snapshot diffs precede.
//
// Four historical dialects are supported. They are detected structurally from
// the header text, not from an explicit version flag, because only the newest
// dialect carries one.
package tabular

import (
	"fmt"
	"time"
)

// Dtype enumerates the storage types a column can have.
type Dtype int

// Column storage types. Timestamp columns are parsed from a recognized
// date-time pattern and stored as float seconds since the Unix epoch.
const (
	DtypeFloat Dtype = iota
	DtypeComplex
	DtypeString
	DtypeTimestamp
)

func (d Dtype) String() string {
	switch d {
	case DtypeFloat:
		return "float64"
	case DtypeComplex:
		return "complex128"
	case DtypeString:
		return "string"
	case DtypeTimestamp:
		return "timestamp"
	}
	return fmt.Sprintf("Dtype(%d)", int(d))
}

// Dialect enumerates the on-disk format dialects, newest first.
type Dialect int

// Known dialects. DialectV1 is any file declaring ondisk_format_version.
// The older three are recognized by the shape of their column header line.
const (
	DialectUnknown Dialect = iota
	DialectV1
	DialectPreV1
	DialectLegacyBare
	DialectQcodesLegacy
)

func (d Dialect) String() string {
	switch d {
	case DialectV1:
		return "v1.0.0+"
	case DialectPreV1:
		return "pre-v1"
	case DialectLegacyBare:
		return "legacy-bare-names"
	case DialectQcodesLegacy:
		return "qcodes-legacy"
	}
	return "unknown"
}

// Column describes one column of a tabular file: its identity (the name),
// the declared units (possibly empty) and the storage type.
type Column struct {
	Name  string
	Units string
	Dtype Dtype
}

// ColumnData holds the parsed values of one column. Exactly one of the three
// slices is in use, selected by Dtype (timestamps land in Floats).
type ColumnData struct {
	Dtype     Dtype
	Floats    []float64
	Complexes []complex128
	Strings   []string
}

// Len returns the number of rows stored.
func (c *ColumnData) Len() int {
	switch c.Dtype {
	case DtypeComplex:
		return len(c.Complexes)
	case DtypeString:
		return len(c.Strings)
	}
	return len(c.Floats)
}

// Slice returns a new ColumnData holding the values at the given row indices.
func (c *ColumnData) Slice(rows []int) ColumnData {
	out := ColumnData{Dtype: c.Dtype}
	switch c.Dtype {
	case DtypeComplex:
		out.Complexes = make([]complex128, len(rows))
		for i, r := range rows {
			out.Complexes[i] = c.Complexes[r]
		}
	case DtypeString:
		out.Strings = make([]string, len(rows))
		for i, r := range rows {
			out.Strings[i] = c.Strings[r]
		}
	default:
		out.Floats = make([]float64, len(rows))
		for i, r := range rows {
			out.Floats[i] = c.Floats[r]
		}
	}
	return out
}

// AppendAll appends every row of other, which must have the same Dtype.
func (c *ColumnData) AppendAll(other ColumnData) {
	c.Floats = append(c.Floats, other.Floats...)
	c.Complexes = append(c.Complexes, other.Complexes...)
	c.Strings = append(c.Strings, other.Strings...)
}

// Value returns row i as an untyped scalar, for display and for
// single-valued-parameter queries.
func (c *ColumnData) Value(i int) any {
	switch c.Dtype {
	case DtypeComplex:
		return c.Complexes[i]
	case DtypeString:
		return c.Strings[i]
	}
	return c.Floats[i]
}

// Header is the parsed preamble of a tabular file.
type Header struct {
	Preamble   []string // comment lines with the leading marker stripped, column line excluded
	ColumnLine string   // the column-name/units line, marker stripped
	Dialect    Dialect
}

// Footer is the parsed postamble of a tabular file. EndedAt is nil when the
// footer is absent or truncated (a live or crashed measurement).
type Footer struct {
	EndedAt  *time.Time
	DiffRows []int // 0-based row indices that snapshot diffs precede, in file order
}

// File is a fully parsed tabular data file.
type File struct {
	Path    string
	Columns []Column
	Data    []ColumnData // same order as Columns, all the same length
	Rows    int
	Header  Header
	Footer  Footer
}

// Dimension returns the data for the named column, or false if absent.
func (f *File) Dimension(name string) (ColumnData, bool) {
	for i, c := range f.Columns {
		if c.Name == name {
			return f.Data[i], true
		}
	}
	return ColumnData{}, false
}
