package tabular

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// ParserKind selects the row-parsing strategy. The default, ParserAuto,
// uses the fast parser when every column is plain numeric or complex and
// falls back to the generic parser otherwise. The choice never changes the
// parsed output, only the speed; tests exercise both paths on the same data.
type ParserKind int

const (
	ParserAuto ParserKind = iota
	ParserFast
	ParserGeneric
)

type rowParser interface {
	parse(body []byte, cols []Column, data []ColumnData) error
}

// selectParser implements the capability check for the opportunistic fast
// path: all columns must be numeric or complex, since the fast scanner never
// unescapes fields.
func selectParser(kind ParserKind, cols []Column) (rowParser, error) {
	numericOnly := true
	for _, c := range cols {
		if c.Dtype != DtypeFloat && c.Dtype != DtypeComplex {
			numericOnly = false
			break
		}
	}
	switch kind {
	case ParserAuto:
		if numericOnly {
			return fastParser{}, nil
		}
		return genericParser{}, nil
	case ParserFast:
		if !numericOnly {
			return nil, fmt.Errorf("tabular: fast parser requires numeric columns only")
		}
		return fastParser{}, nil
	case ParserGeneric:
		return genericParser{}, nil
	}
	return nil, fmt.Errorf("tabular: unknown parser kind %d", int(kind))
}

// ParseRows converts the data row body into typed columnar arrays, one per
// declared column. A truncated final row (a live file caught mid-append) is
// dropped silently; garbage anywhere else is an error.
func ParseRows(body []byte, cols []Column, kind ParserKind) ([]ColumnData, error) {
	data := make([]ColumnData, len(cols))
	for i, c := range cols {
		data[i].Dtype = c.Dtype
	}
	if len(body) == 0 {
		return data, nil
	}
	p, err := selectParser(kind, cols)
	if err != nil {
		return nil, err
	}
	if err := p.parse(body, cols, data); err != nil {
		return nil, err
	}
	return data, nil
}

// parseComplex accepts the written textual form `<real><sign><imag>j`,
// optionally parenthesized, converting the trailing imaginary marker to the
// form strconv understands.
func parseComplex(s string) (complex128, error) {
	t := s
	if len(t) >= 2 && t[0] == '(' && t[len(t)-1] == ')' {
		t = t[1 : len(t)-1]
	}
	if n := len(t); n > 0 && (t[n-1] == 'j' || t[n-1] == 'J') {
		t = t[:n-1] + "i"
	}
	return strconv.ParseComplex(t, 128)
}

// genericParser handles every dtype, line by line, field by field.
type genericParser struct{}

func (genericParser) parse(body []byte, cols []Column, data []ColumnData) error {
	lines := strings.Split(string(body), "\n")
	for lineno, ln := range lines {
		if err := appendRow(ln, cols, data); err != nil {
			if lineno == len(lines)-1 {
				truncateTo(data, lineno) // truncated final row of a live file
				return nil
			}
			return fmt.Errorf("tabular: row %d: %w", lineno, err)
		}
	}
	return nil
}

func appendRow(line string, cols []Column, data []ColumnData) error {
	fields := splitFields(line)
	if len(fields) != len(cols) {
		return fmt.Errorf("have %d fields, want %d", len(fields), len(cols))
	}
	for i, f := range fields {
		switch cols[i].Dtype {
		case DtypeFloat:
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return fmt.Errorf("column %q: %w", cols[i].Name, err)
			}
			data[i].Floats = append(data[i].Floats, v)
		case DtypeComplex:
			v, err := parseComplex(strings.TrimSpace(f))
			if err != nil {
				return fmt.Errorf("column %q: %w", cols[i].Name, err)
			}
			data[i].Complexes = append(data[i].Complexes, v)
		case DtypeTimestamp:
			t, ok := parseTimestamp(UnescapeField(f))
			if !ok {
				return fmt.Errorf("column %q: bad timestamp %q", cols[i].Name, f)
			}
			data[i].Floats = append(data[i].Floats, float64(t.UnixNano())/1e9)
		default:
			data[i].Strings = append(data[i].Strings, UnescapeField(f))
		}
	}
	return nil
}

// fastParser scans the body bytes directly, splitting on raw tabs and
// newlines without unescaping. Valid only when every column is numeric or
// complex, where escape sequences cannot occur.
type fastParser struct{}

func (fastParser) parse(body []byte, cols []Column, data []ColumnData) error {
	ncol := len(cols)
	lineno := 0
	for pos := 0; pos < len(body); {
		end := bytes.IndexByte(body[pos:], '\n')
		last := end < 0
		if last {
			end = len(body)
		} else {
			end += pos
		}
		line := body[pos:end]
		pos = end + 1

		col := 0
		ok := true
		for len(line) > 0 || col < ncol {
			var field []byte
			if t := bytes.IndexByte(line, '\t'); t >= 0 {
				field, line = line[:t], line[t+1:]
			} else {
				field, line = line, nil
			}
			if col >= ncol {
				ok = false
				break
			}
			if !appendNumeric(&data[col], cols[col].Dtype, field) {
				ok = false
				break
			}
			col++
			if len(line) == 0 && col == ncol {
				break
			}
		}
		if !ok || col != ncol {
			if last {
				truncateTo(data, lineno)
				return nil
			}
			return fmt.Errorf("tabular: row %d: malformed numeric row", lineno)
		}
		lineno++
	}
	return nil
}

func appendNumeric(d *ColumnData, dtype Dtype, field []byte) bool {
	s := string(bytes.TrimSpace(field))
	if dtype == DtypeComplex {
		v, err := parseComplex(s)
		if err != nil {
			return false
		}
		d.Complexes = append(d.Complexes, v)
		return true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return false
	}
	d.Floats = append(d.Floats, v)
	return true
}

// truncateTo rewinds all columns to n complete rows, discarding any fields
// appended from a partial final row.
func truncateTo(data []ColumnData, n int) {
	for i := range data {
		if len(data[i].Floats) > n {
			data[i].Floats = data[i].Floats[:n]
		}
		if len(data[i].Complexes) > n {
			data[i].Complexes = data[i].Complexes[:n]
		}
		if len(data[i].Strings) > n {
			data[i].Strings = data[i].Strings[:n]
		}
	}
}
