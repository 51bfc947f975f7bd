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

// Package ensemble streams a set of simulated grids in lock-step and
// computes statistics of the ensemble of values at each grid location.
package ensemble

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spatialmodel/homog/gslib"
	"github.com/spatialmodel/homog/internal/errkind"
)

// Bundle reads N grid files with identical geometry one cell at a time.
// All files advance together; a bundle never holds more than one value
// per file. Reset is the only way to move backwards.
type Bundle struct {
	// Spec is the geometry shared by all of the grids.
	Spec gslib.GridSpec

	paths   []string
	files   []*os.File
	readers []*bufio.Reader
	header  int
	cursor  int
	open    bool
}

// Paths returns the names of the files in a bundle of n grids whose
// first file is first: the others are <base><k><ext> for k in [2, n].
func Paths(first string, n int) []string {
	ext := filepath.Ext(first)
	base := strings.TrimSuffix(first, ext)
	p := make([]string, n)
	p[0] = first
	for k := 2; k <= n; k++ {
		p[k-1] = fmt.Sprintf("%s%d%s", base, k, ext)
	}
	return p
}

// Open opens the n grid files of an ensemble and skips headerLines
// lines at the top of each. A missing file is an error.
func Open(first string, n int, spec gslib.GridSpec, headerLines int) (*Bundle, error) {
	if n < 1 {
		return nil, fmt.Errorf("ensemble: bundle size must be >0, got %d: %w", n, errkind.MissingParameter)
	}
	b := &Bundle{Spec: spec, paths: Paths(first, n), header: headerLines}
	for _, p := range b.paths {
		f, err := os.Open(p)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("ensemble: opening simulated grid: %v", err)
		}
		b.files = append(b.files, f)
		b.readers = append(b.readers, bufio.NewReader(f))
	}
	b.open = true
	if err := b.skipHeader(); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

// Len returns the number of grids in the bundle.
func (b *Bundle) Len() int { return len(b.paths) }

// Path returns the name of grid file k (0-indexed).
func (b *Bundle) Path(k int) string { return b.paths[k] }

// Cursor returns the offset of the next cell to be read.
func (b *Bundle) Cursor() int { return b.cursor }

// IsOpen reports whether the bundle can still be read.
func (b *Bundle) IsOpen() bool { return b.open }

// skipHeader skips the header of every grid. The second header line
// holds the number of variables, which must be 1.
func (b *Bundle) skipHeader() error {
	for k, r := range b.readers {
		for i := 0; i < b.header; i++ {
			s, err := r.ReadString('\n')
			if err != nil {
				return fmt.Errorf("ensemble: reading grid header of %s: %v: %w", b.paths[k], err, errkind.BadInput)
			}
			if i != 1 {
				continue
			}
			f := strings.Fields(s)
			if len(f) == 0 || f[0] != "1" {
				return fmt.Errorf("ensemble: %s holds %q variables, want 1: %w", b.paths[k], strings.TrimSpace(s), errkind.GeometryMismatch)
			}
		}
	}
	return nil
}

// ended returns the error for grids that have run out of values at the
// cursor: io.EOF at the end of the lattice and a geometry mismatch
// before it.
func (b *Bundle) ended() error {
	b.open = false
	if b.cursor < b.Spec.Cells() {
		return fmt.Errorf("ensemble: grids end at cell %d of %d: %w", b.cursor, b.Spec.Cells(), errkind.GeometryMismatch)
	}
	return io.EOF
}

// line reads the next non-empty line of reader k.
func (b *Bundle) line(k int) (string, error) {
	for {
		s, err := b.readers[k].ReadString('\n')
		s = strings.TrimSpace(s)
		if s != "" {
			return s, nil
		}
		if err != nil {
			return "", err
		}
	}
}

// ReadCell returns the values of the next cell in every grid. It
// returns io.EOF, and closes the bundle for reading, once the end of
// the grids has been reached. Grids holding fewer cells than Spec
// give an error wrapping errkind.GeometryMismatch instead.
func (b *Bundle) ReadCell() ([]float64, error) {
	if !b.open {
		return nil, io.EOF
	}
	vals := make([]float64, len(b.readers))
	var ended int
	for k := range b.readers {
		s, err := b.line(k)
		if err == io.EOF {
			ended++
			continue
		} else if err != nil {
			return nil, fmt.Errorf("ensemble: reading %s: %v", b.paths[k], err)
		}
		v, err := strconv.ParseFloat(strings.Fields(s)[0], 64)
		if err != nil {
			return nil, fmt.Errorf("ensemble: cell %d of %s: %v: %w", b.cursor, b.paths[k], err, errkind.BadInput)
		}
		vals[k] = v
	}
	if ended == len(b.readers) {
		return nil, b.ended()
	} else if ended > 0 {
		b.open = false
		return nil, fmt.Errorf("ensemble: %d of %d grids ended at cell %d: %w", ended, len(b.readers), b.cursor, errkind.BadInput)
	}
	b.cursor++
	return vals, nil
}

// Skip advances every grid by m cells.
func (b *Bundle) Skip(m int) error {
	for i := 0; i < m; i++ {
		if !b.open {
			return io.EOF
		}
		for k := range b.readers {
			if _, err := b.line(k); err == io.EOF {
				return b.ended()
			} else if err != nil {
				return fmt.Errorf("ensemble: reading %s: %v", b.paths[k], err)
			}
		}
		b.cursor++
	}
	return nil
}

// ReadAt skips forward to cell idx and reads it. Cells before the
// cursor cannot be read without a Reset.
func (b *Bundle) ReadAt(idx int) ([]float64, error) {
	if idx < b.cursor {
		return nil, fmt.Errorf("ensemble: cell %d is behind the cursor (%d); reset the bundle first", idx, b.cursor)
	}
	if idx >= b.Spec.Cells() {
		return nil, fmt.Errorf("ensemble: cell %d is outside the %d-cell grid: %w", idx, b.Spec.Cells(), errkind.GeometryMismatch)
	}
	if err := b.Skip(idx - b.cursor); err != nil {
		return nil, err
	}
	return b.ReadCell()
}

// ReadColumn reads the vertical column at node (i, j). The result is
// indexed [z][grid].
func (b *Bundle) ReadColumn(i, j int) ([][]float64, error) {
	o := make([][]float64, b.Spec.ZNodes)
	for k := range o {
		v, err := b.ReadAt(b.Spec.Index(i, j, k))
		if err != nil {
			return nil, err
		}
		o[k] = v
	}
	return o, nil
}

// RegionNodes returns, in ascending order, the horizontal offsets of
// the nodes whose centres lie within radius of (x, y). If no node is
// that close, the node nearest to (x, y) is returned.
func RegionNodes(spec gslib.GridSpec, x, y, radius float64) ([]int, error) {
	var o []int
	for j := 0; j < spec.YNodes; j++ {
		for i := 0; i < spec.XNodes; i++ {
			nx, ny, _ := spec.Coord(i, j, 0)
			if math.Hypot(nx-x, ny-y) <= radius {
				o = append(o, spec.Index(i, j, 0))
			}
		}
	}
	if len(o) == 0 {
		i, j, err := spec.Node(x, y)
		if err != nil {
			return nil, err
		}
		o = append(o, spec.Index(i, j, 0))
	}
	return o, nil
}

// ReadRegion reads, for every z slice, the cells within radius of
// (x, y). The result is indexed [z][node][grid].
func (b *Bundle) ReadRegion(x, y, radius float64) ([][][]float64, error) {
	nodes, err := RegionNodes(b.Spec, x, y, radius)
	if err != nil {
		return nil, err
	}
	o := make([][][]float64, b.Spec.ZNodes)
	plane := b.Spec.Plane()
	for k := range o {
		o[k] = make([][]float64, len(nodes))
		for m, n := range nodes {
			v, err := b.ReadAt(n + plane*k)
			if err != nil {
				return nil, err
			}
			o[k][m] = v
		}
	}
	return o, nil
}

// Reset rewinds every grid to its first cell.
func (b *Bundle) Reset() error {
	for k, f := range b.files {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("ensemble: rewinding %s: %v", b.paths[k], err)
		}
		b.readers[k].Reset(f)
	}
	b.cursor = 0
	b.open = true
	return b.skipHeader()
}

// Close closes every grid file.
func (b *Bundle) Close() error {
	var err error
	for _, f := range b.files {
		if e := f.Close(); e != nil && err == nil {
			err = e
		}
	}
	b.files = nil
	b.readers = nil
	b.open = false
	return err
}

// Purge closes the bundle and deletes its files.
func (b *Bundle) Purge() error {
	b.Close()
	for _, p := range b.paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("ensemble: deleting simulated grid: %v", err)
		}
	}
	return nil
}
