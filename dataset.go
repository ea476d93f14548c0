package sweepview

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/qphyslab/sweepview/snapshot"
	"github.com/qphyslab/sweepview/tabular"
)

// Canonical file names inside a dataset directory.
const (
	CanonicalDataName = "tabular_data.dat"
	BaselineName      = "snapshot.json"
	DiffArchiveName   = "snapshot_diffs.tar"
	LogName           = "log.txt"
)

// Dataset is one loaded measurement directory: typed column arrays, the
// baseline snapshot plus its ordered diffs, and metadata. A Dataset is
// immutable once constructed and safe to share by reference among Views;
// re-opening the directory after the writer appends more rows yields the
// updated row count.
type Dataset struct {
	path     string
	file     *tabular.File
	snaps    *snapshot.Store
	comments string
}

type openConfig struct {
	parseComments bool
	tabularOpts   []tabular.Option
}

// OpenOption adjusts how a dataset directory is opened.
type OpenOption func(*openConfig)

// WithComments also reads the free-text log file into the dataset comments.
func WithComments() OpenOption {
	return func(c *openConfig) { c.parseComments = true }
}

// WithTabularOptions passes options through to the tabular parser (parser
// strategy selection, timestamp conversion).
func WithTabularOptions(opts ...tabular.Option) OpenOption {
	return func(c *openConfig) { c.tabularOpts = append(c.tabularOpts, opts...) }
}

// Open reads a complete dataset from a directory. It fails with ErrNotFound
// when no tabular file exists under the canonical or a legacy name, and with
// ErrCorrupt when the file exists but its header cannot be parsed.
func Open(dir string, opts ...OpenOption) (*Dataset, error) {
	cfg := openConfig{}
	for _, o := range opts {
		o(&cfg)
	}

	dataPath, err := findDataFile(dir)
	if err != nil {
		return nil, err
	}
	f, err := tabular.ReadFile(dataPath, cfg.tabularOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, dataPath, err)
	}

	d := &Dataset{path: dir, file: f}

	baseline, err := loadOptional(dir, BaselineName, snapshot.LoadBaseline)
	if err != nil {
		return nil, err
	}
	diffs, err := loadOptional(dir, DiffArchiveName, func(p string) ([]snapshot.SnapDiff, error) {
		return snapshot.LoadDiffArchive(p, f.Footer.DiffRows)
	})
	if err != nil {
		return nil, err
	}
	d.snaps = snapshot.NewStore(baseline, diffs)

	if cfg.parseComments {
		if raw, err := os.ReadFile(filepath.Join(dir, LogName)); err == nil {
			d.comments = string(raw)
		}
	}
	return d, nil
}

// loadOptional loads dir/name or dir/name.gz with the given loader. A
// missing file is not an error; the zero value is returned.
func loadOptional[T any](dir, name string, load func(string) (T, error)) (T, error) {
	var zero T
	for _, n := range []string{name, name + ".gz"} {
		p := filepath.Join(dir, n)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		return load(p)
	}
	return zero, nil
}

// findDataFile locates the tabular file: the canonical name (plain or
// gzipped) first, then any other *.dat[.gz] left by older writers.
func findDataFile(dir string) (string, error) {
	for _, n := range []string{CanonicalDataName, CanonicalDataName + ".gz"} {
		p := filepath.Join(dir, n)
		if st, err := os.Stat(p); err == nil && st.Mode().IsRegular() {
			return p, nil
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNotFound, dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n := e.Name()
		if strings.HasSuffix(n, ".dat") || strings.HasSuffix(n, ".dat.gz") {
			return filepath.Join(dir, n), nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, dir)
}

// Name returns the dataset directory's base name.
func (d *Dataset) Name() string { return filepath.Base(d.path) }

// Path returns the dataset directory.
func (d *Dataset) Path() string { return d.path }

// Filename returns the path of the tabular data file that was parsed.
func (d *Dataset) Filename() string { return d.file.Path }

// Comments returns the free-text log contents, if requested at open time.
func (d *Dataset) Comments() string { return d.comments }

// NumRows returns the number of parsed data rows.
func (d *Dataset) NumRows() int { return d.file.Rows }

// DimensionNames returns the column names in file order.
func (d *Dataset) DimensionNames() []string {
	names := make([]string, len(d.file.Columns))
	for i, c := range d.file.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the raw data for the named column.
func (d *Dataset) Column(name string) (tabular.ColumnData, bool) {
	return d.file.Dimension(name)
}

// ColumnInfo returns the column descriptor for the named column.
func (d *Dataset) ColumnInfo(name string) (tabular.Column, bool) {
	for _, c := range d.file.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return tabular.Column{}, false
}

// Units returns the declared units of a column, "" if undeclared.
func (d *Dataset) Units(name string) string {
	c, _ := d.ColumnInfo(name)
	return c.Units
}

// SnapshotAt reconstructs the instrument snapshot valid at the given row.
func (d *Dataset) SnapshotAt(row int) snapshot.Tree {
	return d.snaps.Reconstruct(row)
}

// SnapshotSegments returns the row indices at which the reconstructed
// snapshot changes, starting with 0.
func (d *Dataset) SnapshotSegments() []int {
	return d.snaps.SegmentStarts()
}

// Footer returns the parsed tabular footer.
func (d *Dataset) Footer() tabular.Footer { return d.file.Footer }
