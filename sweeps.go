package sweepview

import (
	"fmt"

	"github.com/qphyslab/sweepview/tabular"
	"gonum.org/v1/gonum/stat"
)

// DivideIntoSweeps splits the visible rows into contiguous ranges, one per
// sweep of the named dimension. With useDirection nil the mode is
// auto-detected: when consecutive values mostly differ (a ramped dimension)
// the split happens at each reversal of the scan direction; otherwise the
// dimension is a stepped slow parameter and the split happens at each change
// of value. Exactly-equal consecutive values never count as a reversal. A
// dimension that is constant across all visible rows yields a single sweep.
func (v *View) DivideIntoSweeps(dimension string, useDirection *bool) ([]RowRange, error) {
	c, err := v.Column(dimension)
	if err != nil {
		return nil, err
	}
	n := c.Len()
	if n == 0 {
		return nil, nil
	}
	if n == 1 {
		return []RowRange{{0, 1}}, nil
	}

	if c.Dtype != tabular.DtypeFloat && c.Dtype != tabular.DtypeTimestamp {
		// Non-numeric dimensions have no direction: group runs of equal value.
		if useDirection != nil && *useDirection {
			return nil, fmt.Errorf("dimension %q has dtype %s, cannot segment by sweep direction", dimension, c.Dtype)
		}
		return splitOnValueChange(n, func(i int) bool { return c.Value(i) != c.Value(i-1) }), nil
	}

	x := c.Floats
	dir := false
	if useDirection != nil {
		dir = *useDirection
	} else {
		// A ramp has mostly nonzero consecutive differences; a stepped slow
		// parameter is mostly constant.
		signs := make([]float64, n-1)
		for i := range signs {
			signs[i] = absSign(x[i+1] - x[i])
		}
		dir = stat.Mean(signs, nil) > 0.5
	}
	if dir {
		return splitOnReversals(x), nil
	}
	return splitOnValueChange(n, func(i int) bool { return x[i] != x[i-1] }), nil
}

func absSign(d float64) float64 {
	if d != 0 {
		return 1
	}
	return 0
}

// splitOnReversals splits at each sign reversal of the consecutive
// differences, i.e. at each local extremum of the ramp. Zero differences are
// ties and carry the previous direction. A reversal boundary immediately
// following another candidate boundary is the second edge of a reset jump,
// not a one-point sweep, and is dropped.
func splitOnReversals(x []float64) []RowRange {
	var candidates []int
	lastSign := 0.0
	for i := 0; i+1 < len(x); i++ {
		d := x[i+1] - x[i]
		if d == 0 {
			continue
		}
		s := 1.0
		if d < 0 {
			s = -1.0
		}
		if lastSign != 0 && s != lastSign {
			candidates = append(candidates, i+1)
		}
		lastSign = s
	}
	var bounds []int
	for i, c := range candidates {
		if i > 0 && c-candidates[i-1] <= 1 {
			continue
		}
		bounds = append(bounds, c)
	}
	return boundsToRanges(bounds, len(x))
}

func splitOnValueChange(n int, changed func(i int) bool) []RowRange {
	var bounds []int
	for i := 1; i < n; i++ {
		if changed(i) {
			bounds = append(bounds, i)
		}
	}
	return boundsToRanges(bounds, n)
}

func boundsToRanges(bounds []int, n int) []RowRange {
	ranges := make([]RowRange, 0, len(bounds)+1)
	start := 0
	for _, b := range bounds {
		ranges = append(ranges, RowRange{start, b})
		start = b
	}
	return append(ranges, RowRange{start, n})
}
