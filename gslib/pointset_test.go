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
	"bytes"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/kr/pretty"
	"github.com/spatialmodel/homog/internal/errkind"
)

const nd = -999.9

// network returns three stations at times 1..3.
func network() *PointSet {
	p := New("test network", nd, X, Y, Time, Station, Clim)
	for s := 1; s <= 3; s++ {
		for t := 1; t <= 3; t++ {
			p.Rows = append(p.Rows, []float64{float64(s), float64(s), float64(t), float64(s), float64(10*s + t)})
		}
	}
	return p
}

func TestRoundTrip(t *testing.T) {
	p := network()
	p.Rows[4][4] = 1.0 / 3
	p.Rows[5][4] = nd
	for _, header := range []bool{true, false} {
		path := filepath.Join(t.TempDir(), "net.prn")
		if err := p.Save(path, header); err != nil {
			t.Fatal(err)
		}
		p2, err := Load(path, nd, header)
		if err != nil {
			t.Fatal(err)
		}
		if header {
			if diff := pretty.Diff(p2, p); len(diff) > 0 {
				t.Errorf("header=%v: %v", header, diff)
			}
			continue
		}
		if !reflect.DeepEqual(p2.Rows, p.Rows) {
			t.Errorf("rows: have %v, want %v", p2.Rows, p.Rows)
		}
		want := []string{"var1", "var2", "var3", "var4", "var5"}
		if !reflect.DeepEqual(p2.Vars, want) {
			t.Errorf("vars: have %v, want %v", p2.Vars, want)
		}
		if p2.Name != "net" {
			t.Errorf("name: have %q", p2.Name)
		}
	}
}

func TestReadBadInput(t *testing.T) {
	for name, s := range map[string]string{
		"short row":   "title\n2\nx\ny\n1 2\n3\n",
		"not numeric": "title\n2\nx\ny\n1 a\n",
		"bad count":   "title\nn\nx\n",
		"few names":   "title\n3\nx\ny\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Read(strings.NewReader(s), nd, true)
			if !errors.Is(err, errkind.BadInput) {
				t.Errorf("want bad input error, have %v", err)
			}
		})
	}
}

func TestSplit(t *testing.T) {
	p := network()
	p.AddVar(Flag, nd)
	cand, refs, err := p.Split(2)
	if err != nil {
		t.Fatal(err)
	}
	if cand.HasFlag() {
		t.Error("candidate should not have a Flag column")
	}
	if !refs.HasFlag() {
		t.Error("references should keep the Flag column")
	}
	if cand.Len() != 3 || refs.Len() != 6 {
		t.Errorf("have %d candidate and %d reference rows", cand.Len(), refs.Len())
	}
	if !reflect.DeepEqual(refs.Stations(), []int{1, 3}) {
		t.Errorf("reference stations: %v", refs.Stations())
	}
	if _, _, err := p.Split(9); !errors.Is(err, errkind.BadInput) {
		t.Errorf("unknown station: %v", err)
	}
}

func TestAppend(t *testing.T) {
	p := network()
	cand, refs, err := p.Split(1)
	if err != nil {
		t.Fatal(err)
	}
	cand.AddVar(Flag, nd)
	cand.Rows[0][cand.Col(Flag)] = 11
	o, err := refs.Append(cand)
	if err != nil {
		t.Fatal(err)
	}
	if o.Len() != p.Len() {
		t.Errorf("have %d rows, want %d", o.Len(), p.Len())
	}
	if !o.HasFlag() {
		t.Fatal("appended set should have a Flag column")
	}
	fc := o.Col(Flag)
	var flagged int
	for _, r := range o.Rows {
		if r[fc] != nd {
			flagged++
		}
	}
	if flagged != 1 {
		t.Errorf("have %d flagged rows, want 1", flagged)
	}
	if refs.HasFlag() {
		t.Error("Append should not modify its receiver")
	}

	bad := New("bad", nd, X, Y, Time, Station, "other")
	bad.Rows = [][]float64{{0, 0, 1, 9, 1}}
	if _, err := refs.Append(bad); !errors.Is(err, errkind.BadInput) {
		t.Errorf("mismatched columns: %v", err)
	}
}

func TestFillTimeAxis(t *testing.T) {
	p := New("st", nd, X, Y, Time, Station, Clim, Flag)
	p.Rows = [][]float64{
		{5, 6, 1, 7, 1.5, nd},
		{5, 6, 3, 7, 3.5, 3},
	}
	n, err := p.FillTimeAxis(1, 5, 1, []float64{10, 20, 30, 40})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("added %d rows, want 2", n)
	}
	want := [][]float64{
		{5, 6, 1, 7, 1.5, nd},
		{5, 6, 2, 7, 20, nd},
		{5, 6, 3, 7, 3.5, 3},
		{5, 6, 4, 7, 40, nd},
	}
	if !reflect.DeepEqual(p.Rows, want) {
		t.Errorf("have %v, want %v", p.Rows, want)
	}
	if _, err := p.FillTimeAxis(1, 10, 1, []float64{1}); !errors.Is(err, errkind.BadInput) {
		t.Errorf("short defaults: %v", err)
	}
}

func TestReplaceMissing(t *testing.T) {
	p := network()
	p.Rows[1][4] = nd
	p.Rows[7][4] = nd
	if p.Missing() != 2 {
		t.Fatalf("missing: %d", p.Missing())
	}
	vals := make([]float64, p.Len())
	for i := range vals {
		vals[i] = -float64(i)
	}
	n, err := p.ReplaceMissing(vals, false)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 || p.Rows[1][4] != -1 || p.Rows[7][4] != -7 || p.Rows[0][4] != 11 {
		t.Errorf("n=%d rows=%v", n, p.Rows)
	}
	n, _ = p.ReplaceMissing(vals, true)
	if n != p.Len() || p.Rows[0][4] != 0 {
		t.Errorf("overwrite: n=%d", n)
	}
}

func TestFilterAndStations(t *testing.T) {
	p := network()
	tc := p.Col(Time)
	f := p.Filter(func(r []float64) bool { return r[tc] == 2 })
	if f.Len() != 3 {
		t.Errorf("have %d rows", f.Len())
	}
	if !reflect.DeepEqual(f.Stations(), []int{1, 2, 3}) {
		t.Errorf("stations: %v", f.Stations())
	}
	f.Rows[0][0] = 100
	if p.Rows[1][0] == 100 {
		t.Error("Filter should copy rows")
	}
}

func TestColCaseInsensitive(t *testing.T) {
	p := New("", nd, "X", "Y", "Time", "Station", "Clim")
	if p.Col(Time) != 2 || p.Col(Station) != 3 {
		t.Errorf("Col: %d %d", p.Col(Time), p.Col(Station))
	}
}

func TestWriteFormat(t *testing.T) {
	p := New("t", nd, X, Clim)
	p.Rows = [][]float64{{1990, -999.9}}
	var b bytes.Buffer
	if err := p.Write(&b, true); err != nil {
		t.Fatal(err)
	}
	want := "t\n2\nx\nclim\n1990 -999.9\n"
	if b.String() != want {
		t.Errorf("have %q, want %q", b.String(), want)
	}
}
