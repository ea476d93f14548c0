package sweepview

import (
	"fmt"

	"github.com/qphyslab/sweepview/tabular"
)

// DataSourceDimension is the synthetic string dimension identifying which
// underlying dataset each row came from.
const DataSourceDimension = "data_source"

// rowRef locates one concatenated row in its underlying dataset.
type rowRef struct {
	ds  int
	row int
}

// View is the query layer over one or more datasets. Rows are the virtual
// concatenation of the datasets in construction order, each in on-disk row
// order; that order is measurement order and is preserved by every operation
// except explicit sorting inside gridding. The mask and the dimension cache
// are private per-View state; the underlying datasets are shared immutable.
type View struct {
	datasets  []*Dataset
	rows      []rowRef
	mask      []bool // true = visible
	virtuals  map[string]*virtualDim
	virtOrder []string
	cache     map[string]tabular.ColumnData // full-length, unmasked
}

// NewView builds a View over the given datasets, all rows visible.
func NewView(datasets ...*Dataset) *View {
	v := &View{
		datasets: datasets,
		virtuals: make(map[string]*virtualDim),
		cache:    make(map[string]tabular.ColumnData),
	}
	for i, d := range datasets {
		for r := 0; r < d.NumRows(); r++ {
			v.rows = append(v.rows, rowRef{ds: i, row: r})
		}
	}
	v.mask = make([]bool, len(v.rows))
	for i := range v.mask {
		v.mask[i] = true
	}
	return v
}

// Copy returns an independent View sharing the underlying datasets and the
// already-materialized dimension cache, with its own mask.
func (v *View) Copy() *View {
	c := &View{
		datasets:  v.datasets,
		rows:      v.rows,
		mask:      append([]bool(nil), v.mask...),
		virtuals:  make(map[string]*virtualDim, len(v.virtuals)),
		virtOrder: append([]string(nil), v.virtOrder...),
		cache:     make(map[string]tabular.ColumnData, len(v.cache)),
	}
	for k, d := range v.virtuals {
		c.virtuals[k] = d
	}
	for k, d := range v.cache {
		c.cache[k] = d
	}
	return c
}

// NumRows returns the total number of underlying rows.
func (v *View) NumRows() int { return len(v.rows) }

// VisibleRows returns the number of rows the mask currently exposes.
func (v *View) VisibleRows() int {
	n := 0
	for _, m := range v.mask {
		if m {
			n++
		}
	}
	return n
}

// visibleIndices returns the underlying indices of visible rows, in order.
func (v *View) visibleIndices() []int {
	idx := make([]int, 0, len(v.rows))
	for i, m := range v.mask {
		if m {
			idx = append(idx, i)
		}
	}
	return idx
}

// Dimensions returns the queryable dimension names: columns present in every
// dataset (in first-dataset order), the synthetic data_source dimension, and
// any virtual dimensions in the order they were added.
func (v *View) Dimensions() []string {
	var names []string
	if len(v.datasets) > 0 {
		for _, name := range v.datasets[0].DimensionNames() {
			inAll := true
			for _, d := range v.datasets[1:] {
				if _, ok := d.Column(name); !ok {
					inAll = false
					break
				}
			}
			if inAll {
				names = append(names, name)
			}
		}
	}
	names = append(names, DataSourceDimension)
	names = append(names, v.virtOrder...)
	return names
}

// HasDimension reports whether name is queryable in this view.
func (v *View) HasDimension(name string) bool {
	for _, n := range v.Dimensions() {
		if n == name {
			return true
		}
	}
	return false
}

// Units returns the declared units of a dimension, "" if undeclared.
func (v *View) Units(name string) string {
	if vd, ok := v.virtuals[name]; ok {
		return vd.units
	}
	for _, d := range v.datasets {
		if u := d.Units(name); u != "" {
			return u
		}
	}
	return ""
}

// Column returns the named dimension restricted to the visible rows.
// Dimensions are materialized lazily and cached; narrowing the mask slices
// the cached array rather than recomputing it.
func (v *View) Column(name string) (tabular.ColumnData, error) {
	full, err := v.fullColumn(name)
	if err != nil {
		return tabular.ColumnData{}, err
	}
	return full.Slice(v.visibleIndices()), nil
}

// Floats returns the visible rows of a float-typed dimension.
func (v *View) Floats(name string) ([]float64, error) {
	c, err := v.Column(name)
	if err != nil {
		return nil, err
	}
	if c.Dtype != tabular.DtypeFloat && c.Dtype != tabular.DtypeTimestamp {
		return nil, fmt.Errorf("dimension %q has dtype %s, not float", name, c.Dtype)
	}
	return c.Floats, nil
}

// fullColumn materializes the named dimension across all underlying rows.
func (v *View) fullColumn(name string) (tabular.ColumnData, error) {
	if c, ok := v.cache[name]; ok {
		return c, nil
	}
	var c tabular.ColumnData
	var err error
	switch {
	case name == DataSourceDimension:
		c = v.dataSourceColumn()
	default:
		if vd, ok := v.virtuals[name]; ok {
			c, err = v.materializeVirtual(name, vd)
		} else {
			c, err = v.concatColumn(name)
		}
	}
	if err != nil {
		return tabular.ColumnData{}, err
	}
	v.cache[name] = c
	return c, nil
}

func (v *View) dataSourceColumn() tabular.ColumnData {
	c := tabular.ColumnData{Dtype: tabular.DtypeString, Strings: make([]string, len(v.rows))}
	for i, r := range v.rows {
		c.Strings[i] = v.datasets[r.ds].Name()
	}
	return c
}

// concatColumn concatenates one stored column across datasets, in dataset
// order. After a permanent mask collapse the surviving rows may interleave
// datasets, so the concatenation follows the row index, not dataset bounds.
func (v *View) concatColumn(name string) (tabular.ColumnData, error) {
	perDS := make([]tabular.ColumnData, len(v.datasets))
	dtype := tabular.DtypeFloat
	for i, d := range v.datasets {
		c, ok := d.Column(name)
		if !ok {
			return tabular.ColumnData{}, fmt.Errorf("%w: %q (dataset %s)", ErrDimensionNotFound, name, d.Name())
		}
		if i > 0 && c.Dtype != dtype {
			return tabular.ColumnData{}, fmt.Errorf("dimension %q: dtype %s in dataset %s, %s earlier",
				name, c.Dtype, d.Name(), dtype)
		}
		dtype = c.Dtype
		perDS[i] = c
	}
	out := tabular.ColumnData{Dtype: dtype}
	for _, r := range v.rows {
		c := &perDS[r.ds]
		switch dtype {
		case tabular.DtypeComplex:
			out.Complexes = append(out.Complexes, c.Complexes[r.row])
		case tabular.DtypeString:
			out.Strings = append(out.Strings, c.Strings[r.row])
		default:
			out.Floats = append(out.Floats, c.Floats[r.row])
		}
	}
	return out, nil
}

// SingleValuedParameter returns the sole distinct value the named dimension
// takes across visible rows. It fails with ErrAmbiguous when more than one
// distinct value is present.
func (v *View) SingleValuedParameter(name string) (any, error) {
	c, err := v.Column(name)
	if err != nil {
		return nil, err
	}
	if c.Len() == 0 {
		return nil, fmt.Errorf("dimension %q: no visible rows", name)
	}
	first := c.Value(0)
	for i := 1; i < c.Len(); i++ {
		if c.Value(i) != first {
			return nil, fmt.Errorf("%w: %q has at least values %v and %v",
				ErrAmbiguous, name, first, c.Value(i))
		}
	}
	return first, nil
}

// RowRange is a contiguous half-open range [Start, End) of visible rows.
type RowRange struct {
	Start, End int
}

// MaskRange applies the range as a mask. With unmaskInstead false the rows
// inside the range are hidden; with true, only they remain visible. Ranges
// are always in coordinates of the currently visible rows: masks compose by
// intersection, never reset.
func (v *View) MaskRange(r RowRange, unmaskInstead bool) {
	v.MaskRows(func(i int) bool { return i >= r.Start && i < r.End }, unmaskInstead)
}

// MaskRows applies a predicate over visible-row indices as a mask, with the
// same narrowing/restricting semantics as MaskRange.
func (v *View) MaskRows(selected func(i int) bool, unmaskInstead bool) {
	vis := 0
	for i, m := range v.mask {
		if !m {
			continue
		}
		sel := selected(vis)
		vis++
		if unmaskInstead {
			v.mask[i] = sel
		} else if sel {
			v.mask[i] = false
		}
	}
}

// UnmaskAll makes every underlying row visible again (rows removed
// permanently are gone).
func (v *View) UnmaskAll() {
	for i := range v.mask {
		v.mask[i] = true
	}
}

// RemoveMaskedRowsPermanently collapses the mask into the view's own storage:
// every currently hidden row is dropped irreversibly and the memory held by
// its copies is released. The underlying datasets are shared and remain
// untouched.
func (v *View) RemoveMaskedRowsPermanently() {
	// Materialize every dimension first, so that dropped rows cannot
	// reappear through a later lazy computation.
	for _, name := range v.Dimensions() {
		if _, err := v.fullColumn(name); err != nil {
			ProblemLogger.Printf("dimension %q not materialized during collapse: %v", name, err)
		}
	}
	vis := v.visibleIndices()
	for name, c := range v.cache {
		v.cache[name] = c.Slice(vis)
	}
	rows := make([]rowRef, len(vis))
	for i, idx := range vis {
		rows[i] = v.rows[idx]
	}
	v.rows = rows
	v.mask = make([]bool, len(rows))
	for i := range v.mask {
		v.mask[i] = true
	}
}

// SettingsAt reconstructs the instrument snapshot in effect at the given
// visible row.
func (v *View) SettingsAt(visibleRow int) (any, error) {
	vis := v.visibleIndices()
	if visibleRow < 0 || visibleRow >= len(vis) {
		return nil, fmt.Errorf("row %d out of range (%d visible)", visibleRow, len(vis))
	}
	r := v.rows[vis[visibleRow]]
	return v.datasets[r.ds].SnapshotAt(r.row), nil
}
