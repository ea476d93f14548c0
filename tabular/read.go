package tabular

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

type config struct {
	parser            ParserKind
	convertTimestamps bool
}

// Option adjusts how a file is read.
type Option func(*config)

// WithParser overrides the row-parsing strategy (used by tests to check that
// the fast and generic parsers agree).
func WithParser(k ParserKind) Option {
	return func(c *config) { c.parser = k }
}

// WithTimestamps enables recognizing timestamp-like cells and converting them
// to float seconds since the Unix epoch when dtypes must be inferred.
func WithTimestamps() Option {
	return func(c *config) { c.convertTimestamps = true }
}

// ReadFile reads and parses a tabular data file. A ".gz" suffix selects
// transparent gzip decompression.
func ReadFile(path string, opts ...Option) (*File, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	var r io.Reader = fd
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(fd)
		if err != nil {
			return nil, fmt.Errorf("tabular: %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}
	f, err := Read(r, opts...)
	if err != nil {
		return nil, fmt.Errorf("tabular: %s: %w", path, err)
	}
	f.Path = path
	return f, nil
}

// Read parses a complete tabular document from r. The whole input is
// materialized in memory; datasets are bounded by what a single measurement
// writes, not by an external producer.
func Read(r io.Reader, opts ...Option) (*File, error) {
	cfg := config{}
	for _, o := range opts {
		o(&cfg)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	preamble, body, footerLines := SplitDocument(raw)
	f := &File{Header: ExtractHeader(preamble), Footer: ParseFooter(footerLines)}
	if len(preamble) == 0 && len(body) == 0 {
		// Empty (or not-yet-written) file: a valid dataset with no columns.
		return f, nil
	}

	cols, err := ParseColumns(f.Header)
	if err != nil {
		return nil, err
	}
	if dtypes, ok := ParseDtypes(f.Header.Preamble); ok {
		if len(dtypes) != len(cols) {
			return nil, fmt.Errorf("dtype line declares %d columns, header %d", len(dtypes), len(cols))
		}
		for i := range cols {
			cols[i].Dtype = dtypes[i]
		}
	} else {
		firstRow := ""
		if i := strings.IndexByte(string(body), '\n'); i >= 0 {
			firstRow = string(body)[:i]
		} else {
			firstRow = string(body)
		}
		for i, dt := range InferDtypes(firstRow, len(cols), cfg.convertTimestamps) {
			cols[i].Dtype = dt
		}
	}
	f.Columns = cols

	f.Data, err = ParseRows(body, cols, cfg.parser)
	if err != nil {
		return nil, err
	}
	if len(f.Data) > 0 {
		f.Rows = f.Data[0].Len()
	}
	return f, nil
}
