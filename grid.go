package sweepview

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Axis is one named coordinate axis of a Grid, with ascending unique values.
type Axis struct {
	Name   string
	Values []float64
}

// Grid is a labeled N-dimensional array: the selected column's values
// gridded onto the Cartesian product of its coordinate axes, row-major in
// axis order. Cells no row maps to hold NaN, not zero. Source records the
// originating dataset path(s).
type Grid struct {
	Column string
	Axes   []Axis
	Values []float64
	Source string
}

// Shape returns the grid extent along each axis.
func (g *Grid) Shape() []int {
	shape := make([]int, len(g.Axes))
	for i, a := range g.Axes {
		shape[i] = len(a.Values)
	}
	return shape
}

// At returns the cell at the given per-axis indices.
func (g *Grid) At(idx ...int) float64 {
	if len(idx) != len(g.Axes) {
		panic(fmt.Sprintf("grid has %d axes, got %d indices", len(g.Axes), len(idx)))
	}
	flat := 0
	for i, a := range g.Axes {
		if idx[i] < 0 || idx[i] >= len(a.Values) {
			panic(fmt.Sprintf("axis %s index %d out of range [0,%d)", a.Name, idx[i], len(a.Values)))
		}
		flat = flat*len(a.Values) + idx[i]
	}
	return g.Values[flat]
}

// ToGrid grids the named column onto axes built from the unique sorted
// values of each coordinate dimension. coarse optionally gives a bin width
// per coordinate; values are then snapped to bin centers before the axis is
// built. When several visible rows land in the same cell the last one in
// measurement order wins.
func (v *View) ToGrid(column string, coords []string, coarse map[string]float64) (*Grid, error) {
	if len(coords) == 0 {
		return nil, fmt.Errorf("ToGrid needs at least one coordinate dimension")
	}
	zvals, err := v.Floats(column)
	if err != nil {
		return nil, err
	}

	g := &Grid{Column: column}
	coordVals := make([][]float64, len(coords))
	for i, name := range coords {
		cv, err := v.Floats(name)
		if err != nil {
			return nil, err
		}
		if w := coarse[name]; w > 0 {
			snapped := make([]float64, len(cv))
			for j, val := range cv {
				snapped[j] = w * (math.Floor(val/w) + 0.5)
			}
			cv = snapped
		}
		coordVals[i] = cv
		g.Axes = append(g.Axes, Axis{Name: name, Values: uniqueSorted(cv)})
	}

	total := 1
	for _, a := range g.Axes {
		total *= len(a.Values)
	}
	g.Values = make([]float64, total)
	for i := range g.Values {
		g.Values[i] = math.NaN()
	}

	for row := range zvals {
		flat := 0
		for i, a := range g.Axes {
			k := sort.SearchFloat64s(a.Values, coordVals[i][row])
			flat = flat*len(a.Values) + k
		}
		g.Values[flat] = zvals[row]
	}

	paths := make([]string, len(v.datasets))
	for i, d := range v.datasets {
		paths[i] = d.Path()
	}
	g.Source = strings.Join(paths, "; ")
	return g, nil
}

func uniqueSorted(vals []float64) []float64 {
	out := append([]float64(nil), vals...)
	sort.Float64s(out)
	n := 0
	for i, val := range out {
		if i == 0 || val != out[n-1] {
			out[n] = val
			n++
		}
	}
	return out[:n]
}
