package sweepview

import (
	"fmt"

	"github.com/qphyslab/sweepview/snapshot"
	"github.com/qphyslab/sweepview/tabular"
)

// virtualDim is the derivation rule of a computed dimension: either a fixed
// path into the reconstructed snapshot (broadcast across the rows each
// reconstruction covers), or a row-wise function of other dimensions.
type virtualDim struct {
	units   string
	path    []string
	sources []string
	fn      func(vals []float64) float64
}

// AddVirtualDimension defines a dimension whose per-row value is the
// snapshot value at the given path, one lookup per snapshot segment of each
// dataset. Materialization is lazy; a dataset whose snapshot lacks the path
// surfaces as an error from the first read of the dimension.
func (v *View) AddVirtualDimension(name, units string, path ...string) error {
	if len(path) == 0 {
		return fmt.Errorf("virtual dimension %q: empty snapshot path", name)
	}
	return v.addVirtual(name, &virtualDim{units: units, path: path})
}

// AddVirtualDimensionFunc defines a dimension computed row-wise from other
// float dimensions. fn receives the source values of one row, in the order
// given by sources.
func (v *View) AddVirtualDimensionFunc(name, units string, sources []string, fn func(vals []float64) float64) error {
	if len(sources) == 0 || fn == nil {
		return fmt.Errorf("virtual dimension %q: need source dimensions and a function", name)
	}
	return v.addVirtual(name, &virtualDim{units: units, sources: sources, fn: fn})
}

func (v *View) addVirtual(name string, vd *virtualDim) error {
	if v.HasDimension(name) {
		return fmt.Errorf("dimension %q already exists", name)
	}
	v.virtuals[name] = vd
	v.virtOrder = append(v.virtOrder, name)
	return nil
}

func (v *View) materializeVirtual(name string, vd *virtualDim) (tabular.ColumnData, error) {
	if vd.fn != nil {
		return v.materializeFuncDim(name, vd)
	}
	return v.materializePathDim(name, vd)
}

// materializePathDim broadcasts snapshot lookups across rows. Lookups happen
// once per snapshot segment, not per row.
func (v *View) materializePathDim(name string, vd *virtualDim) (tabular.ColumnData, error) {
	// Per-dataset, per-segment values, resolved against the segment's
	// reconstruction.
	type segval struct {
		starts []int
		vals   []any
	}
	resolved := make([]segval, len(v.datasets))
	for i, d := range v.datasets {
		starts := d.SnapshotSegments()
		sv := segval{starts: starts}
		for _, s := range starts {
			val, ok := snapshot.Lookup(d.SnapshotAt(s), vd.path...)
			if !ok {
				return tabular.ColumnData{}, fmt.Errorf("%w: virtual dimension %q: path %v absent in snapshot of %s at row %d",
					ErrDimensionNotFound, name, vd.path, d.Name(), s)
			}
			sv.vals = append(sv.vals, val)
		}
		resolved[i] = sv
	}

	valueAt := func(r rowRef) any {
		sv := resolved[r.ds]
		val := sv.vals[0]
		for k := 1; k < len(sv.starts); k++ {
			if sv.starts[k] > r.row {
				break
			}
			val = sv.vals[k]
		}
		return val
	}

	// Dtype follows the snapshot value kind: JSON numbers and booleans
	// become floats, anything else a string.
	c := tabular.ColumnData{Dtype: tabular.DtypeFloat}
	if len(v.rows) > 0 {
		if _, isStr := valueAt(v.rows[0]).(string); isStr {
			c.Dtype = tabular.DtypeString
		}
	}
	for _, r := range v.rows {
		val := valueAt(r)
		switch c.Dtype {
		case tabular.DtypeString:
			s, ok := val.(string)
			if !ok {
				return tabular.ColumnData{}, fmt.Errorf("virtual dimension %q: mixed value types at path %v", name, vd.path)
			}
			c.Strings = append(c.Strings, s)
		default:
			switch n := val.(type) {
			case float64:
				c.Floats = append(c.Floats, n)
			case bool:
				if n {
					c.Floats = append(c.Floats, 1)
				} else {
					c.Floats = append(c.Floats, 0)
				}
			default:
				return tabular.ColumnData{}, fmt.Errorf("virtual dimension %q: non-numeric value %v at path %v",
					name, val, vd.path)
			}
		}
	}
	return c, nil
}

func (v *View) materializeFuncDim(name string, vd *virtualDim) (tabular.ColumnData, error) {
	srcs := make([][]float64, len(vd.sources))
	for i, s := range vd.sources {
		full, err := v.fullColumn(s)
		if err != nil {
			return tabular.ColumnData{}, fmt.Errorf("virtual dimension %q: %w", name, err)
		}
		if full.Dtype != tabular.DtypeFloat && full.Dtype != tabular.DtypeTimestamp {
			return tabular.ColumnData{}, fmt.Errorf("virtual dimension %q: source %q has dtype %s, not float",
				name, s, full.Dtype)
		}
		srcs[i] = full.Floats
	}
	c := tabular.ColumnData{Dtype: tabular.DtypeFloat, Floats: make([]float64, len(v.rows))}
	vals := make([]float64, len(srcs))
	for i := range v.rows {
		for j := range srcs {
			vals[j] = srcs[j][i]
		}
		c.Floats[i] = vd.fn(vals)
	}
	return c, nil
}
