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

package ensemble

import (
	"context"
	"errors"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spatialmodel/homog/gslib"
	"github.com/spatialmodel/homog/internal/errkind"
	"github.com/spatialmodel/homog/internal/simtest"
)

func spec(nx, ny, nz int) gslib.GridSpec {
	return gslib.GridSpec{
		XNodes: nx, YNodes: ny, ZNodes: nz,
		XSize: 1, YSize: 1, ZSize: 1, ZMin: 1,
		ND: -999.9,
	}
}

// cellValue gives each cell of each realisation a distinct value.
func cellValue(c, k int) float64 { return float64(c*10 + k) }

func openBundle(t *testing.T, s gslib.GridSpec, n int, value func(c, k int) float64) *Bundle {
	first, err := simtest.WriteEnsemble(t.TempDir(), "sim", s, n, value)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Open(first, n, s, gslib.GridHeaderLines)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestPaths(t *testing.T) {
	have := Paths(filepath.Join("a", "sim.out"), 3)
	want := []string{filepath.Join("a", "sim.out"), filepath.Join("a", "sim2.out"), filepath.Join("a", "sim3.out")}
	if !reflect.DeepEqual(have, want) {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestBundleRead(t *testing.T) {
	b := openBundle(t, spec(2, 2, 3), 3, cellValue)
	defer b.Close()

	v, err := b.ReadCell()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(v, []float64{0, 1, 2}) {
		t.Errorf("first cell: %v", v)
	}
	v, err = b.ReadAt(5)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(v, []float64{50, 51, 52}) {
		t.Errorf("cell 5: %v", v)
	}
	if b.Cursor() != 6 {
		t.Errorf("cursor: %d", b.Cursor())
	}
	if _, err := b.ReadAt(1); err == nil {
		t.Error("reading behind the cursor should fail")
	}

	if err := b.Reset(); err != nil {
		t.Fatal(err)
	}
	col, err := b.ReadColumn(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	want := [][]float64{{30, 31, 32}, {70, 71, 72}, {110, 111, 112}}
	if !reflect.DeepEqual(col, want) {
		t.Errorf("column: have %v, want %v", col, want)
	}

	if _, err := b.ReadCell(); err != io.EOF {
		t.Errorf("past the end: %v", err)
	}
	if b.IsOpen() {
		t.Error("bundle should be closed for reading at the end")
	}
}

func TestBundleSkip(t *testing.T) {
	b := openBundle(t, spec(2, 1, 1), 2, cellValue)
	defer b.Close()
	if err := b.Skip(1); err != nil {
		t.Fatal(err)
	}
	if err := b.Skip(5); err != io.EOF {
		t.Errorf("skip past the end: %v", err)
	}
	if b.IsOpen() {
		t.Error("should not be open")
	}
}

func TestBundleShortGrids(t *testing.T) {
	written, want := spec(2, 1, 2), spec(2, 1, 3)
	first, err := simtest.WriteEnsemble(t.TempDir(), "sim", written, 2, cellValue)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Open(first, 2, want, gslib.GridHeaderLines)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	if _, err := b.ReadAt(3); err != nil {
		t.Fatal(err)
	}
	if _, err := b.ReadCell(); !errors.Is(err, errkind.GeometryMismatch) {
		t.Errorf("read past a short grid: %v", err)
	}
	if err := b.Reset(); err != nil {
		t.Fatal(err)
	}
	if err := b.Skip(6); !errors.Is(err, errkind.GeometryMismatch) {
		t.Errorf("skip past a short grid: %v", err)
	}
	if err := b.Reset(); err != nil {
		t.Fatal(err)
	}
	if _, err := Column(context.Background(), b, 0, 0, Request{Stats: Mean}); !errors.Is(err, errkind.GeometryMismatch) {
		t.Errorf("column of a short grid: %v", err)
	}
}

func TestBundleVariableCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.out")
	if err := ioutil.WriteFile(path, []byte("sim\n2\nclim\nflag\n1 0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path, 1, spec(1, 1, 1), gslib.GridHeaderLines); !errors.Is(err, errkind.GeometryMismatch) {
		t.Errorf("have %v", err)
	}
}

func TestBundleMissingFile(t *testing.T) {
	s := spec(2, 2, 1)
	first, err := simtest.WriteEnsemble(t.TempDir(), "sim", s, 2, cellValue)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Open(first, 3, s, gslib.GridHeaderLines); err == nil {
		t.Error("opening a bundle with a missing file should fail")
	}
}

func TestRegionNodes(t *testing.T) {
	s := spec(3, 3, 2)
	nodes, err := RegionNodes(s, 1, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{1, 3, 4, 5, 7}; !reflect.DeepEqual(nodes, want) {
		t.Errorf("have %v, want %v", nodes, want)
	}
	nodes, err = RegionNodes(s, 1.4, 1, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{4}; !reflect.DeepEqual(nodes, want) {
		t.Errorf("nearest fallback: have %v, want %v", nodes, want)
	}
}

func TestReadRegion(t *testing.T) {
	b := openBundle(t, spec(3, 3, 2), 2, cellValue)
	defer b.Close()
	r, err := b.ReadRegion(1, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(r) != 2 || len(r[0]) != 5 || len(r[0][0]) != 2 {
		t.Fatalf("shape: %d x %d x %d", len(r), len(r[0]), len(r[0][0]))
	}
	if !reflect.DeepEqual(r[1][2], []float64{130, 131}) {
		t.Errorf("slice 1, node 4: %v", r[1][2])
	}
}

func TestPurge(t *testing.T) {
	b := openBundle(t, spec(1, 1, 1), 3, cellValue)
	if err := b.Purge(); err != nil {
		t.Fatal(err)
	}
	for k := 0; k < b.Len(); k++ {
		if _, err := os.Stat(b.Path(k)); !os.IsNotExist(err) {
			t.Errorf("%s still exists", b.Path(k))
		}
	}
}
