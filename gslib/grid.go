/*
Copyright © 2024 the homog authors.
This file is part of homog.

homog is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

homog is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with homog.  If not, see <http://www.gnu.org/licenses/>.
*/

package gslib

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/spatialmodel/homog/internal/errkind"
)

// GridHeaderLines is the number of header lines in a GSLIB grid file
// written by the simulator: title, variable count and variable name.
const GridHeaderLines = 3

// GridSpec describes a regular 3-D lattice. Min values are the
// coordinates of the centre of the first node. The z axis is time.
type GridSpec struct {
	XNodes, YNodes, ZNodes int
	XMin, YMin, ZMin       float64
	XSize, YSize, ZSize    float64

	// ND is the missing-data sentinel of grid values.
	ND float64
}

// Cells returns the total number of cells.
func (g GridSpec) Cells() int { return g.XNodes * g.YNodes * g.ZNodes }

// Plane returns the number of cells in one horizontal slice.
func (g GridSpec) Plane() int { return g.XNodes * g.YNodes }

// Index returns the file offset of node (i, j, k), with x varying fastest.
func (g GridSpec) Index(i, j, k int) int {
	return i + g.XNodes*j + g.XNodes*g.YNodes*k
}

// Coord returns the coordinates of the centre of node (i, j, k).
func (g GridSpec) Coord(i, j, k int) (x, y, z float64) {
	return g.XMin + float64(i)*g.XSize, g.YMin + float64(j)*g.YSize, g.ZMin + float64(k)*g.ZSize
}

// Node returns the horizontal node closest to (x, y).
func (g GridSpec) Node(x, y float64) (i, j int, err error) {
	i = int(math.Floor((x-g.XMin)/g.XSize + 0.5))
	j = int(math.Floor((y-g.YMin)/g.YSize + 0.5))
	if i < 0 || i >= g.XNodes || j < 0 || j >= g.YNodes {
		return i, j, fmt.Errorf("gslib: location (%g, %g) is outside the %dx%d grid: %w",
			x, y, g.XNodes, g.YNodes, errkind.GeometryMismatch)
	}
	return i, j, nil
}

// TimeAxis returns the first time, the step and the end (exclusive) of
// the time axis represented by the z nodes.
func (g GridSpec) TimeAxis() (t0, step, t1 int) {
	t0 = int(math.Round(g.ZMin))
	step = int(math.Round(g.ZSize))
	if step < 1 {
		step = 1
	}
	return t0, step, t0 + g.ZNodes*step
}

// Validate checks that the lattice is not degenerate.
func (g GridSpec) Validate() error {
	for _, n := range []struct {
		name string
		v    int
	}{{"xnodes", g.XNodes}, {"ynodes", g.YNodes}, {"znodes", g.ZNodes}} {
		if n.v <= 0 {
			return fmt.Errorf("gslib: grid %s=%d but should be >0: %w", n.name, n.v, errkind.MissingParameter)
		}
	}
	for _, s := range []struct {
		name string
		v    float64
	}{{"xsize", g.XSize}, {"ysize", g.YSize}, {"zsize", g.ZSize}} {
		if !(s.v > 0) {
			return fmt.Errorf("gslib: grid %s=%g but should be >0: %w", s.name, s.v, errkind.MissingParameter)
		}
	}
	return nil
}

// Equal reports whether both specs describe the same lattice.
func (g GridSpec) Equal(o GridSpec) bool {
	const tol = 1e-9
	eq := func(a, b float64) bool { return math.Abs(a-b) <= tol*math.Max(1, math.Abs(a)) }
	return g.XNodes == o.XNodes && g.YNodes == o.YNodes && g.ZNodes == o.ZNodes &&
		eq(g.XMin, o.XMin) && eq(g.YMin, o.YMin) && eq(g.ZMin, o.ZMin) &&
		eq(g.XSize, o.XSize) && eq(g.YSize, o.YSize) && eq(g.ZSize, o.ZSize)
}

func (g GridSpec) String() string {
	return fmt.Sprintf("x(%d, %g, %g) y(%d, %g, %g) z(%d, %g, %g)",
		g.XNodes, g.XMin, g.XSize, g.YNodes, g.YMin, g.YSize, g.ZNodes, g.ZMin, g.ZSize)
}

// GridWriter streams the values of one grid to a GSLIB grid file,
// one value per line in x-fastest order.
type GridWriter struct {
	f     *os.File
	b     *bufio.Writer
	n     int
	cells int
}

// CreateGrid creates a grid file at path and writes its header.
func CreateGrid(path, title, variable string, spec GridSpec) (*GridWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("gslib: creating grid file: %v", err)
	}
	w := &GridWriter{f: f, b: bufio.NewWriter(f), cells: spec.Cells()}
	fmt.Fprintln(w.b, title)
	fmt.Fprintln(w.b, 1)
	fmt.Fprintln(w.b, variable)
	return w, nil
}

// Write writes the value of the next cell.
func (w *GridWriter) Write(v float64) error {
	if w.n >= w.cells {
		return fmt.Errorf("gslib: grid file already holds %d cells", w.cells)
	}
	w.n++
	w.b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	return w.b.WriteByte('\n')
}

// Close flushes and closes the file. It fails if fewer values than
// cells were written.
func (w *GridWriter) Close() error {
	if err := w.b.Flush(); err != nil {
		w.f.Close()
		return fmt.Errorf("gslib: writing grid file: %v", err)
	}
	if err := w.f.Close(); err != nil {
		return err
	}
	if w.n != w.cells {
		return fmt.Errorf("gslib: grid file %s has %d of %d cells: %w", w.f.Name(), w.n, w.cells, errkind.BadInput)
	}
	return nil
}

// Name returns the path of the file being written.
func (w *GridWriter) Name() string { return w.f.Name() }
