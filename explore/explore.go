// Package explore discovers dataset directories under a base directory: the
// validity check, modification-time lookup and filtered listing that dataset
// selection and monitoring tools are built on.
package explore

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"
)

// Tabular file names that mark a directory as a valid dataset.
var dataNames = []string{"tabular_data.dat", "tabular_data.dat.gz"}

// minDataSize is the smallest tabular file considered non-trivial; anything
// smaller is an aborted write, not a dataset.
const minDataSize = 5

// IsValidDataDir reports whether base/dir holds a dataset: a tabular data
// file under the canonical plain or gzipped name, larger than a few bytes.
func IsValidDataDir(base, dir string) bool {
	for _, n := range dataNames {
		st, err := os.Stat(filepath.Join(base, dir, n))
		if err == nil && st.Mode().IsRegular() && st.Size() > minDataSize {
			return true
		}
	}
	return false
}

// DataMtime returns the last modification time of the dataset in base/dir.
// An invalid or missing dataset yields the zero time.
func DataMtime(base, dir string) time.Time {
	for _, n := range dataNames {
		st, err := os.Stat(filepath.Join(base, dir, n))
		if err == nil {
			return st.ModTime()
		}
	}
	return time.Time{}
}

// SortOrder selects how DataDirs sorts its result. Both orders are newest
// or alphabetically-last first, matching how a selector presents them.
type SortOrder int

const (
	Chronological SortOrder = iota
	Alphabetical
)

// ListOptions filters and orders a DataDirs listing.
type ListOptions struct {
	NameFilter *regexp.Regexp // nil matches everything
	MaxAge     time.Duration  // 0 means no age filter
	Order      SortOrder
}

// DataDirs lists the dataset directories directly under base whose names
// match the filter and whose data was modified within MaxAge, sorted in
// inverse chronological (default) or inverse alphabetical order.
func DataDirs(base string, opts ListOptions) ([]string, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	var dirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		n := e.Name()
		if opts.NameFilter != nil && !opts.NameFilter.MatchString(n) {
			continue
		}
		if !IsValidDataDir(base, n) {
			continue
		}
		if opts.MaxAge > 0 && now.Sub(DataMtime(base, n)) > opts.MaxAge {
			continue
		}
		dirs = append(dirs, n)
	}
	switch opts.Order {
	case Alphabetical:
		sort.Sort(sort.Reverse(sort.StringSlice(dirs)))
	default:
		sort.Slice(dirs, func(i, j int) bool {
			return DataMtime(base, dirs[i]).After(DataMtime(base, dirs[j]))
		})
	}
	return dirs, nil
}
