// Package npyexport writes view columns as NumPy .npy files, the exchange
// format downstream analysis environments read natively.
package npyexport

import (
	"fmt"
	"os"

	"github.com/sbinet/npyio"

	"github.com/qphyslab/sweepview/tabular"
)

// WriteColumn writes one column to path as a 1-D .npy array. String columns
// have no stable NumPy dtype on this path and are rejected.
func WriteColumn(path string, c tabular.ColumnData) error {
	if c.Dtype == tabular.DtypeString {
		return fmt.Errorf("npyexport: string column cannot be written as .npy")
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if c.Dtype == tabular.DtypeComplex {
		err = npyio.Write(f, c.Complexes)
	} else {
		err = npyio.Write(f, c.Floats)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("npyexport: %s: %w", path, err)
	}
	return f.Close()
}

// ReadFloats reads back a 1-D float64 .npy file, used by round-trip tests.
func ReadFloats(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var vals []float64
	if err := npyio.Read(f, &vals); err != nil {
		return nil, fmt.Errorf("npyexport: %s: %w", path, err)
	}
	return vals, nil
}
