package sweepview

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/qphyslab/sweepview/snapshot"
	"github.com/qphyslab/sweepview/tabular"
)

func TestOpenPowerSweep(t *testing.T) {
	for _, gzipped := range []bool{false, true} {
		d := openPowerSweep(t, gzipped)
		if d.NumRows() != 123 {
			t.Errorf("gz=%v: rows = %d, want 123", gzipped, d.NumRows())
		}
		names := d.DimensionNames()
		if len(names) != 2 || names[0] != "frequency" || names[1] != "S21" {
			t.Errorf("gz=%v: dimensions = %v", gzipped, names)
		}
		if d.Units("frequency") != "Hz" {
			t.Errorf("gz=%v: frequency units = %q", gzipped, d.Units("frequency"))
		}
		if d.Units("S21") != "" {
			t.Errorf("gz=%v: S21 units = %q", gzipped, d.Units("S21"))
		}

		freqs, _ := d.Column("frequency")
		want := sweepFrequencies()
		if freqs.Floats[0] != want[0] || freqs.Floats[40] != want[40] || freqs.Floats[41] != want[0] {
			t.Errorf("gz=%v: ramp values wrong: %v %v %v",
				gzipped, freqs.Floats[0], freqs.Floats[40], freqs.Floats[41])
		}

		// Snapshot reconstruction at each sweep.
		for _, c := range []struct {
			row  int
			want float64
		}{{0, -30}, {40, -30}, {41, -20}, {82, -10}, {122, -10}} {
			v, ok := snapshot.Lookup(d.SnapshotAt(c.row), "instruments", "VNA1", "power")
			if !ok || v.(float64) != c.want {
				t.Errorf("gz=%v: power at row %d = %v, want %v", gzipped, c.row, v, c.want)
			}
		}
		// Untouched baseline keys survive every reconstruction.
		if v, ok := snapshot.Lookup(d.SnapshotAt(122), "instruments", "voltage_source1", "V"); !ok || v.(float64) != -1.234 {
			t.Errorf("gz=%v: baseline key lost: %v", gzipped, v)
		}
	}
}

func TestOpenNotFound(t *testing.T) {
	_, err := Open(t.TempDir())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Open(empty dir) = %v, want ErrNotFound", err)
	}
	// A NotFound in one directory must not be silently skipped at this
	// level; the caller receives it directly.
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestOpenLegacyFilename(t *testing.T) {
	base := t.TempDir()
	dir := writePowerSweepDataset(t, base, "legacy-name", false)
	if err := os.Rename(filepath.Join(dir, "tabular_data.dat"),
		filepath.Join(dir, "differently_named_data.dat")); err != nil {
		t.Fatal(err)
	}
	d, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if d.NumRows() != 123 {
		t.Errorf("rows = %d, want 123", d.NumRows())
	}
	if filepath.Base(d.Filename()) != "differently_named_data.dat" {
		t.Errorf("filename = %s", d.Filename())
	}
}

func TestOpenCorruptHeader(t *testing.T) {
	dir := t.TempDir()
	// Declared dtypes disagree with the column count.
	writeFile(t, dir, "tabular_data.dat",
		"# ondisk_format_version = 1.0.0\n"+
			"# Column dtypes: numpy.float64\n"+
			"# a (V)\tb (A)\n"+
			"1.0\t2.0\n")
	_, err := Open(dir)
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("Open = %v, want ErrCorrupt", err)
	}
}

func TestOpenZeroRowDataset(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "tabular_data.dat",
		"# ondisk_format_version = 1.0.0\n"+
			"# Column dtypes: numpy.float64\tnumpy.float64\n"+
			"# gate (V)\tcurrent (A)\n")
	writeFile(t, dir, "snapshot.json", `{"instruments":{}}`)
	d, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if d.NumRows() != 0 {
		t.Errorf("rows = %d, want 0", d.NumRows())
	}
	names := d.DimensionNames()
	if len(names) != 2 {
		t.Fatalf("dimensions = %v", names)
	}
	for _, n := range names {
		c, ok := d.Column(n)
		if !ok || c.Len() != 0 {
			t.Errorf("column %q: ok=%v len=%d, want zero-length array", n, ok, c.Len())
		}
	}
	// No sweep or masking operation raises on an empty view.
	v := NewView(d)
	sweeps, err := v.DivideIntoSweeps("gate", nil)
	if err != nil || len(sweeps) != 0 {
		t.Errorf("sweeps = %v, %v", sweeps, err)
	}
	v.MaskRange(RowRange{0, 10}, false)
	v.RemoveMaskedRowsPermanently()
}

func TestOpenZeroRowDatasetWithFooter(t *testing.T) {
	// A completed run that produced no rows still carries a full footer
	// and snapshot; the file is nothing but comment lines.
	dir := t.TempDir()
	writeFile(t, dir, "tabular_data.dat",
		"# ondisk_format_version = 1.0.0\n"+
			"# Column dtypes: numpy.float64\tnumpy.complex128\n"+
			"# frequency (Hz)\tS21 ()\n"+
			"# Measurement ended at 2021-04-01 12:00:00\n"+
			"# Snapshot diffs preceding rows (0-based index): 0\n")
	writeFile(t, dir, "snapshot.json", `{"instruments":{"VNA1":{"power":10}}}`)
	writeDiffTar(t, dir, map[string]string{
		"0000000000_000.json": `{"instruments":{"VNA1":{"power":-30}}}`,
	})
	d, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if d.NumRows() != 0 {
		t.Errorf("rows = %d, want 0", d.NumRows())
	}
	names := d.DimensionNames()
	if len(names) != 2 || names[0] != "frequency" || names[1] != "S21" {
		t.Fatalf("dimensions = %v", names)
	}
	if u := d.Units("frequency"); u != "Hz" {
		t.Errorf("frequency units = %q, want Hz", u)
	}
	f := d.Footer()
	if f.EndedAt == nil {
		t.Error("footer end time lost")
	}
	if len(f.DiffRows) != 1 || f.DiffRows[0] != 0 {
		t.Errorf("footer diff rows = %v, want [0]", f.DiffRows)
	}

	// Single column: the footer must not be mistaken for the column line.
	dir = t.TempDir()
	writeFile(t, dir, "tabular_data.dat",
		"# ondisk_format_version = 1.0.0\n"+
			"# Column dtypes: numpy.float64\n"+
			"# gate (V)\n"+
			"# Measurement ended at 2021-04-01 12:00:00\n"+
			"# Snapshot diffs preceding rows (0-based index): \n")
	d, err = Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	names = d.DimensionNames()
	if len(names) != 1 || names[0] != "gate" {
		t.Fatalf("dimensions = %v", names)
	}
	if d.Footer().EndedAt == nil {
		t.Error("footer end time lost")
	}
}

func TestOpenSingleRowDataset(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "tabular_data.dat",
		"# ondisk_format_version = 1.0.0\n"+
			"# Column dtypes: numpy.float64\tnumpy.float64\n"+
			"# gate (V)\tcurrent (A)\n"+
			"0.5\t1e-9\n")
	d, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if d.NumRows() != 1 {
		t.Fatalf("rows = %d, want 1", d.NumRows())
	}
	for _, n := range d.DimensionNames() {
		c, ok := d.Column(n)
		if !ok || c.Len() != 1 {
			t.Errorf("column %q: ok=%v len=%d, want one element", n, ok, c.Len())
		}
	}
	v := NewView(d)
	sweeps, err := v.DivideIntoSweeps("gate", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(sweeps) != 1 || sweeps[0] != (RowRange{0, 1}) {
		t.Errorf("sweeps = %v, want [{0 1}]", sweeps)
	}
	v.MaskRange(RowRange{0, 1}, false)
	v.RemoveMaskedRowsPermanently()
	if v.NumRows() != 0 {
		t.Errorf("rows after collapse = %d, want 0", v.NumRows())
	}
}

func TestOpenParseComments(t *testing.T) {
	dir := writePowerSweepDataset(t, t.TempDir(), "with-comments", false)
	d, err := Open(dir, WithComments())
	if err != nil {
		t.Fatal(err)
	}
	if d.Comments() != "power sweep test measurement\n" {
		t.Errorf("comments = %q", d.Comments())
	}
	// Without the option the log is not read.
	d, err = Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if d.Comments() != "" {
		t.Errorf("comments read without WithComments: %q", d.Comments())
	}
}

func TestReopenSeesAppendedRows(t *testing.T) {
	// The loader performs a single complete read; re-opening after the
	// writer appended more rows yields the updated count.
	dir := t.TempDir()
	header := "# ondisk_format_version = 1.0.0\n" +
		"# Column dtypes: numpy.float64\n" +
		"# gate (V)\n"
	writeFile(t, dir, "tabular_data.dat", header+"0.1\n")
	d, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if d.NumRows() != 1 {
		t.Fatalf("rows = %d, want 1", d.NumRows())
	}
	writeFile(t, dir, "tabular_data.dat", header+"0.1\n0.2\n0.3\n")
	d, err = Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if d.NumRows() != 3 {
		t.Errorf("rows after append = %d, want 3", d.NumRows())
	}
}

func TestOpenParserOverride(t *testing.T) {
	// Both parsers must recover bit-identical arrays, gzipped or not.
	for _, gzipped := range []bool{false, true} {
		dir := writePowerSweepDataset(t, t.TempDir(), "generic", gzipped)
		dFast, err := Open(dir, WithTabularOptions(tabular.WithParser(tabular.ParserFast)))
		if err != nil {
			t.Fatal(err)
		}
		dGen, err := Open(dir, WithTabularOptions(tabular.WithParser(tabular.ParserGeneric)))
		if err != nil {
			t.Fatal(err)
		}
		f1, _ := dFast.Column("S21")
		f2, _ := dGen.Column("S21")
		if f1.Len() != f2.Len() {
			t.Fatalf("gzipped=%v: lengths differ: %d vs %d", gzipped, f1.Len(), f2.Len())
		}
		for i := range f1.Complexes {
			if f1.Complexes[i] != f2.Complexes[i] {
				t.Errorf("gzipped=%v row %d: %v != %v", gzipped, i, f1.Complexes[i], f2.Complexes[i])
			}
		}
	}
}
