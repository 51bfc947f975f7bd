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
	"errors"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/spatialmodel/homog/internal/errkind"
)

func testSpec() GridSpec {
	return GridSpec{
		XNodes: 4, YNodes: 3, ZNodes: 2,
		XMin: 0.5, YMin: 10, ZMin: 1990,
		XSize: 1, YSize: 2, ZSize: 1,
		ND: nd,
	}
}

func TestIndex(t *testing.T) {
	g := testSpec()
	if g.Cells() != 24 {
		t.Errorf("cells: %d", g.Cells())
	}
	for _, c := range []struct{ i, j, k, want int }{
		{0, 0, 0, 0}, {1, 0, 0, 1}, {0, 1, 0, 4}, {0, 0, 1, 12}, {3, 2, 1, 23},
	} {
		if have := g.Index(c.i, c.j, c.k); have != c.want {
			t.Errorf("Index(%d,%d,%d) = %d, want %d", c.i, c.j, c.k, have, c.want)
		}
	}
}

func TestNode(t *testing.T) {
	g := testSpec()
	i, j, err := g.Node(2.4, 13.1)
	if err != nil {
		t.Fatal(err)
	}
	if i != 2 || j != 2 {
		t.Errorf("have (%d, %d)", i, j)
	}
	if _, _, err := g.Node(100, 10); !errors.Is(err, errkind.GeometryMismatch) {
		t.Errorf("outside: %v", err)
	}
	t0, step, t1 := g.TimeAxis()
	if t0 != 1990 || step != 1 || t1 != 1992 {
		t.Errorf("time axis: %d %d %d", t0, step, t1)
	}
}

func TestValidateEqual(t *testing.T) {
	g := testSpec()
	if err := g.Validate(); err != nil {
		t.Error(err)
	}
	g2 := g
	g2.ZNodes = 0
	if err := g2.Validate(); !errors.Is(err, errkind.MissingParameter) {
		t.Errorf("validate: %v", err)
	}
	if g.Equal(g2) || !g.Equal(testSpec()) {
		t.Error("Equal")
	}
}

func TestGridWriter(t *testing.T) {
	g := testSpec()
	path := filepath.Join(t.TempDir(), "grid.out")
	w, err := CreateGrid(path, "test", "value", g)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < g.Cells()-1; i++ {
		if err := w.Write(float64(i)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); !errors.Is(err, errkind.BadInput) {
		t.Errorf("short grid: %v", err)
	}
	b, err := ioutil.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b[:17]) != "test\n1\nvalue\n0\n1\n" {
		t.Errorf("header: %q", b[:17])
	}
}
