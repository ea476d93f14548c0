package sweepview

import (
	"archive/tar"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

// writeFile writes content to dir/name, gzipping when name ends in ".gz".
func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if strings.HasSuffix(name, ".gz") {
		gz := gzip.NewWriter(f)
		if _, err := gz.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
		if err := gz.Close(); err != nil {
			t.Fatal(err)
		}
		return
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatal(err)
	}
}

// writeDiffTar writes dir/snapshot_diffs.tar.gz with the given members.
func writeDiffTar(t *testing.T, dir string, members map[string]string) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, "snapshot_diffs.tar.gz"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	names := make([]string, 0, len(members))
	for n := range members {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		body := members[n]
		if err := tw.WriteHeader(&tar.Header{Name: n, Mode: 0644, Size: int64(len(body))}); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
}

// sweepFrequencies returns the 41-point frequency ramp used throughout the
// tests: 5.9 to 6.1 GHz.
func sweepFrequencies() []float64 {
	freqs := make([]float64, 41)
	for i := range freqs {
		freqs[i] = 5.9e9 + 5e6*float64(i)
	}
	return freqs
}

// writePowerSweepDataset writes a complete v1.0.0 dataset under base/name:
// three back-to-back 41-point frequency ramps, with the VNA power stepped
// -30, -20, -10 dBm through snapshot diffs preceding rows 0, 41 and 82.
func writePowerSweepDataset(t *testing.T, base, name string, gzipped bool) string {
	t.Helper()
	dir := filepath.Join(base, name)
	if err := os.MkdirAll(dir, 0775); err != nil {
		t.Fatal(err)
	}

	var b strings.Builder
	b.WriteString("# ondisk_format_version = 1.0.0\n")
	b.WriteString("# Column dtypes: numpy.float64\tnumpy.complex128\n")
	b.WriteString("# frequency (Hz)\tS21 ()\n")
	for sweep := 0; sweep < 3; sweep++ {
		for i, f := range sweepFrequencies() {
			fmt.Fprintf(&b, "%v\t%v%+gj\n", f, 0.01*float64(sweep+1), 0.001*float64(i))
		}
	}
	b.WriteString("# Measurement ended at 2021-04-01 12:00:00.123456\n")
	b.WriteString("# Snapshot diffs preceding rows (0-based index): 0, 41, 82\n")

	dataName := "tabular_data.dat"
	if gzipped {
		dataName += ".gz"
	}
	writeFile(t, dir, dataName, b.String())
	writeFile(t, dir, "snapshot.json",
		`{"instruments":{"VNA1":{"power":10,"RBW":10000},"voltage_source1":{"V":-1.234}}}`)
	writeDiffTar(t, dir, map[string]string{
		"0000000000_000.json": `{"instruments":{"VNA1":{"power":-30}}}`,
		"0000000041_001.json": `{"instruments":{"VNA1":{"power":-20}}}`,
		"0000000082_002.json": `{"instruments":{"VNA1":{"power":-10}}}`,
	})
	writeFile(t, dir, "log.txt", "power sweep test measurement\n")
	writeFile(t, dir, "README", "Data stored in sweepview on-disk format v1.\n")
	return dir
}

// writeSingleRampDataset writes a 41-row dataset with a fixed power in the
// baseline snapshot and no diffs at all.
func writeSingleRampDataset(t *testing.T, base, name string, power float64) string {
	t.Helper()
	dir := filepath.Join(base, name)
	if err := os.MkdirAll(dir, 0775); err != nil {
		t.Fatal(err)
	}
	var b strings.Builder
	b.WriteString("# ondisk_format_version = 1.0.0\n")
	b.WriteString("# Column dtypes: numpy.float64\tnumpy.complex128\n")
	b.WriteString("# frequency (Hz)\tS21 ()\n")
	for i, f := range sweepFrequencies() {
		fmt.Fprintf(&b, "%v\t%v%+gj\n", f, 0.5, 0.001*float64(i))
	}
	b.WriteString("# Measurement ended at 2021-04-01 13:00:00\n")
	b.WriteString("# Snapshot diffs preceding rows (0-based index): \n")
	writeFile(t, dir, "tabular_data.dat", b.String())
	writeFile(t, dir, "snapshot.json",
		fmt.Sprintf(`{"instruments":{"VNA1":{"power":%v,"RBW":10000}}}`, power))
	writeFile(t, dir, "log.txt", "single ramp\n")
	return dir
}

func openPowerSweep(t *testing.T, gzipped bool) *Dataset {
	t.Helper()
	dir := writePowerSweepDataset(t, t.TempDir(), "power-sweep", gzipped)
	d, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	return d
}
