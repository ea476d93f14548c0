package snapshot

import (
	"archive/tar"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// ProblemLogger logs recoverable inconsistencies, such as a diff archive
// that disagrees with the tabular footer. The main program points it at a
// rotating log file.
var ProblemLogger = log.New(os.Stderr, "", log.LstdFlags)

// SnapDiff is one recorded configuration change: the patch, plus the 0-based
// index of the data row it precedes.
type SnapDiff struct {
	PrecedingRow int
	Patch        Tree
}

// Store reconstructs the merged snapshot in effect at any data row from the
// baseline plus the ordered diff sequence. A Store is immutable once built
// and safe to share by reference.
type Store struct {
	baseline Tree
	diffs    []SnapDiff
}

// NewStore builds a Store. diffs must already be in recording order.
func NewStore(baseline Tree, diffs []SnapDiff) *Store {
	return &Store{baseline: baseline, diffs: diffs}
}

// Baseline returns the snapshot captured at measurement start.
func (s *Store) Baseline() Tree { return s.baseline }

// Diffs returns the recorded changes in order.
func (s *Store) Diffs() []SnapDiff { return s.diffs }

// Reconstruct returns the snapshot valid as of the given row: the baseline
// merged with every diff whose preceding-row index is <= row, applied in
// recording order. With zero diffs every row sees the baseline unmodified.
func (s *Store) Reconstruct(row int) Tree {
	out := DeepCopy(s.baseline)
	for _, d := range s.diffs {
		if d.PrecedingRow > row {
			break
		}
		out = ApplyPatch(out, d.Patch)
	}
	return out
}

// SegmentStarts returns the sorted distinct row indices at which the
// reconstruction changes, always including row 0. Broadcasting a snapshot
// value across rows needs one lookup per segment, not per row.
func (s *Store) SegmentStarts() []int {
	starts := []int{0}
	for _, d := range s.diffs {
		if d.PrecedingRow > starts[len(starts)-1] {
			starts = append(starts, d.PrecedingRow)
		}
	}
	return starts
}

// LoadBaseline reads a JSON snapshot file, gzip-compressed if the name ends
// in ".gz".
func LoadBaseline(path string) (Tree, error) {
	raw, err := readMaybeGzip(path)
	if err != nil {
		return nil, err
	}
	var t Tree
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("snapshot: %s: %w", path, err)
	}
	return t, nil
}

// LoadDiffArchive reads the ordered diff archive (tar, optionally gzipped).
// Member names begin with the zero-padded preceding-row index; members are
// applied in name order. footerRows is the row list declared by the tabular
// footer: when its length matches the archive it corroborates the indices,
// otherwise the mismatch is logged and the archive's own metadata wins.
func LoadDiffArchive(path string, footerRows []int) ([]SnapDiff, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	var r io.Reader = fd
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(fd)
		if err != nil {
			return nil, fmt.Errorf("snapshot: %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	type member struct {
		name string
		row  int
		data []byte
	}
	var members []member
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("snapshot: %s: %w", path, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("snapshot: %s: %s: %w", path, hdr.Name, err)
		}
		row, ok := rowFromMemberName(hdr.Name)
		if !ok {
			ProblemLogger.Printf("snapshot: %s: member %q has no row index, skipping", path, hdr.Name)
			continue
		}
		members = append(members, member{name: hdr.Name, row: row, data: data})
	}
	sort.SliceStable(members, func(i, j int) bool { return members[i].name < members[j].name })

	if footerRows != nil && len(footerRows) != len(members) {
		ProblemLogger.Printf("snapshot: %s: footer declares %d diffs, archive holds %d; using archive indices",
			path, len(footerRows), len(members))
		footerRows = nil
	}

	diffs := make([]SnapDiff, 0, len(members))
	for i, m := range members {
		var patch Tree
		if err := json.Unmarshal(m.data, &patch); err != nil {
			return nil, fmt.Errorf("snapshot: %s: %s: %w", path, m.name, err)
		}
		row := m.row
		if footerRows != nil {
			row = footerRows[i]
		}
		diffs = append(diffs, SnapDiff{PrecedingRow: row, Patch: patch})
	}
	return diffs, nil
}

// rowFromMemberName parses the leading decimal run of an archive member
// name, e.g. "0000000041_002.json" -> 41.
func rowFromMemberName(name string) (int, bool) {
	base := name
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	end := 0
	for end < len(base) && base[end] >= '0' && base[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(base[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

func readMaybeGzip(path string) ([]byte, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()
	var r io.Reader = fd
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(fd)
		if err != nil {
			return nil, fmt.Errorf("snapshot: %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}
	return io.ReadAll(r)
}
