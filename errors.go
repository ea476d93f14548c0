package sweepview

import "errors"

// Error kinds surfaced by the loader and the query layer. Callers classify
// with errors.Is.
var (
	// ErrNotFound means a directory holds no recognizable tabular data file,
	// under the canonical or any legacy name.
	ErrNotFound = errors.New("no tabular data file in directory")

	// ErrCorrupt means the tabular header is structurally unparseable.
	ErrCorrupt = errors.New("corrupt tabular data file")

	// ErrDimensionNotFound means a requested column or virtual dimension does
	// not exist in the view.
	ErrDimensionNotFound = errors.New("dimension not found")

	// ErrAmbiguous means a parameter expected to be single-valued takes more
	// than one distinct value across the visible rows.
	ErrAmbiguous = errors.New("parameter is not single-valued")
)
