package tabular

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Markers that identify the structured parts of a v1.0.0+ file.
const (
	versionKey   = "ondisk_format_version"
	dtypesMarker = "Column dtypes:"
	endedMarker  = "Measurement ended at "
	diffsMarker  = "Snapshot diffs preceding rows (0-based index):"
)

// SplitDocument separates raw file content into the leading comment block,
// the data row body, and the trailing comment block. Comment lines are
// returned with the '#' marker (and one following space, if any) stripped.
// An empty file yields empty everything, which is a valid empty dataset.
func SplitDocument(data []byte) (preamble []string, body []byte, footer []string) {
	lines := strings.Split(string(data), "\n")
	// Drop a trailing empty element caused by a final newline, but keep a
	// truncated final line: the row parser decides whether it is usable.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	start := 0
	for start < len(lines) && isComment(lines[start]) {
		preamble = append(preamble, stripComment(lines[start]))
		start++
	}
	if start == len(lines) {
		// A completed file with zero data rows is all comment lines.
		// Peel footer marker lines off the tail so the column line stays
		// last in the preamble.
		cut := len(preamble)
		for cut > 0 && isFooterLine(preamble[cut-1]) {
			cut--
		}
		return preamble[:cut], nil, preamble[cut:]
	}
	end := len(lines)
	for end > start && isComment(lines[end-1]) {
		end--
	}
	for _, ln := range lines[end:] {
		footer = append(footer, stripComment(ln))
	}
	if start < end {
		body = []byte(strings.Join(lines[start:end], "\n"))
	}
	return preamble, body, footer
}

func isComment(line string) bool {
	return strings.HasPrefix(line, "#")
}

func stripComment(line string) string {
	line = strings.TrimPrefix(line, "#")
	return strings.TrimPrefix(line, " ")
}

// isFooterLine reports whether a stripped comment line is a footer marker.
func isFooterLine(line string) bool {
	return strings.Contains(line, strings.TrimSuffix(endedMarker, " ")) ||
		strings.Contains(line, diffsMarker)
}

// ExtractHeader builds a Header from the preamble comment block: the last
// preamble line is the column-name/units line, everything before it is
// metadata, and the dialect is sniffed structurally.
func ExtractHeader(preamble []string) Header {
	h := Header{}
	if len(preamble) == 0 {
		return h
	}
	h.ColumnLine = preamble[len(preamble)-1]
	h.Preamble = preamble[:len(preamble)-1]
	h.Dialect = SniffDialect(h.Preamble, h.ColumnLine)
	return h
}

// unitsRE matches a `name (units)` field, greedily so that the units are
// taken from the last parenthesized group.
var unitsRE = regexp.MustCompile(`^(.*) \(([^()]*)\)$`)

// SniffDialect detects the format dialect from the header text. The matchers
// run newest-first; the first match wins.
func SniffDialect(metaLines []string, columnLine string) Dialect {
	for _, ln := range metaLines {
		if strings.Contains(ln, versionKey) {
			return DialectV1
		}
	}
	fields := splitFields(columnLine)
	if len(fields) > 0 {
		quoted := true
		for _, f := range fields {
			if len(f) < 2 || f[0] != '"' || f[len(f)-1] != '"' {
				quoted = false
				break
			}
		}
		if quoted {
			return DialectQcodesLegacy
		}
	}
	withUnits := len(fields) > 0
	for _, f := range fields {
		if !unitsRE.MatchString(f) {
			withUnits = false
			break
		}
	}
	if withUnits {
		return DialectPreV1
	}
	return DialectLegacyBare
}

// ParseColumns recovers the column names and units from the column header
// line according to the dialect. Dtypes are filled in separately, from the
// explicit dtype line or by inference from data.
func ParseColumns(h Header) ([]Column, error) {
	fields := splitFields(h.ColumnLine)
	if h.ColumnLine == "" {
		return nil, fmt.Errorf("tabular: no column header line")
	}
	cols := make([]Column, 0, len(fields))
	for _, f := range fields {
		switch h.Dialect {
		case DialectQcodesLegacy:
			name := strings.TrimSuffix(strings.TrimPrefix(f, `"`), `"`)
			cols = append(cols, Column{Name: UnescapeField(name)})
		case DialectV1, DialectPreV1:
			m := unitsRE.FindStringSubmatch(f)
			if m == nil {
				// A v1 writer always emits `name (units)`, but tolerate a
				// bare name rather than reject the whole file.
				cols = append(cols, Column{Name: UnescapeField(f)})
				continue
			}
			cols = append(cols, Column{Name: UnescapeField(m[1]), Units: UnescapeField(m[2])})
		default:
			cols = append(cols, Column{Name: UnescapeField(f)})
		}
	}
	return cols, nil
}

// ParseDtypes finds the explicit `Column dtypes:` metadata line and maps its
// dotted type names onto storage types. ok is false when the line is absent
// (all dialects before v1.0.0), in which case the caller infers dtypes from
// the first data row.
func ParseDtypes(metaLines []string) (dtypes []Dtype, ok bool) {
	for _, ln := range metaLines {
		i := strings.Index(ln, dtypesMarker)
		if i < 0 {
			continue
		}
		rest := strings.TrimPrefix(ln[i+len(dtypesMarker):], " ")
		for _, name := range splitFields(rest) {
			dtypes = append(dtypes, dtypeFromName(name))
		}
		return dtypes, true
	}
	return nil, false
}

// dtypeFromName maps a dotted type name such as "numpy.float64" or
// "builtins.str" onto a storage type. Unrecognized names fall back to string,
// which can represent any cell verbatim.
func dtypeFromName(name string) Dtype {
	short := name
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		short = name[i+1:]
	}
	short = strings.ToLower(strings.TrimSpace(short))
	switch {
	case strings.HasPrefix(short, "float"), strings.HasPrefix(short, "int"),
		strings.HasPrefix(short, "uint"), short == "bool":
		return DtypeFloat
	case strings.HasPrefix(short, "complex"):
		return DtypeComplex
	case strings.HasPrefix(short, "datetime"):
		return DtypeTimestamp
	default:
		return DtypeString
	}
}

// Timestamp layouts recognized in data cells and in the footer.
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// InferDtypes guesses per-column storage types from the literal form of the
// first data row: parses as a float → float; has an imaginary marker and
// parses as a complex → complex; looks like a timestamp → timestamp (only
// when timestamp conversion is requested); anything else → string. With no
// data rows every column defaults to float, matching a zero-length numeric
// dataset.
func InferDtypes(firstRow string, ncol int, convertTimestamps bool) []Dtype {
	dtypes := make([]Dtype, ncol)
	if firstRow == "" {
		return dtypes
	}
	fields := splitFields(firstRow)
	for i := range dtypes {
		if i >= len(fields) {
			break
		}
		f := strings.TrimSpace(fields[i])
		if _, err := strconv.ParseFloat(f, 64); err == nil {
			dtypes[i] = DtypeFloat
			continue
		}
		if _, err := parseComplex(f); err == nil {
			dtypes[i] = DtypeComplex
			continue
		}
		if convertTimestamps {
			if _, ok := parseTimestamp(UnescapeField(f)); ok {
				dtypes[i] = DtypeTimestamp
				continue
			}
		}
		dtypes[i] = DtypeString
	}
	return dtypes
}

// ParseFooter parses the trailing comment block of a v1.0.0+ file. A missing
// or truncated footer (live file, or a writer that crashed mid-measurement)
// yields zero values, never an error: downstream falls back to the diff
// archive's own index metadata.
func ParseFooter(lines []string) Footer {
	var f Footer
	for _, ln := range lines {
		if i := strings.Index(ln, endedMarker); i >= 0 {
			if t, ok := parseTimestamp(strings.TrimSpace(ln[i+len(endedMarker):])); ok {
				f.EndedAt = &t
			}
			continue
		}
		if i := strings.Index(ln, diffsMarker); i >= 0 {
			rest := strings.TrimSpace(ln[i+len(diffsMarker):])
			if rest == "" {
				continue
			}
			for _, tok := range strings.Split(rest, ",") {
				n, err := strconv.Atoi(strings.TrimSpace(tok))
				if err != nil {
					// Truncated mid-list; keep what parsed so far.
					break
				}
				f.DiffRows = append(f.DiffRows, n)
			}
		}
	}
	return f
}
