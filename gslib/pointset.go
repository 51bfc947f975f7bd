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

// Package gslib reads and writes the GSLIB point-set and grid formats
// and holds the station data manipulated during homogenisation.
package gslib

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spatialmodel/homog/internal/errkind"
)

// Names of the variables that have a role in homogenisation.
const (
	X       = "x"
	Y       = "y"
	Time    = "time"
	Station = "station"
	Clim    = "clim"
	Flag    = "Flag"
)

// PointSet is a named table of samples in GSLIB point-set layout.
// Every row holds one value per variable in Vars.
type PointSet struct {
	Name string
	ND   float64 // missing-data sentinel
	Vars []string
	Rows [][]float64
}

// New returns an empty point-set with the given variables.
func New(name string, nd float64, vars ...string) *PointSet {
	v := make([]string, len(vars))
	copy(v, vars)
	return &PointSet{Name: name, ND: nd, Vars: v}
}

// Len returns the number of rows.
func (p *PointSet) Len() int { return len(p.Rows) }

// Col returns the index of the named variable, or -1 if it is absent.
// Names are matched without regard to case.
func (p *PointSet) Col(name string) int {
	for i, v := range p.Vars {
		if strings.EqualFold(v, name) {
			return i
		}
	}
	return -1
}

// HasFlag reports whether the point-set carries a Flag column.
func (p *PointSet) HasFlag() bool { return p.Col(Flag) >= 0 }

// mustCol returns the index of a variable that has to be present.
func (p *PointSet) mustCol(name string) (int, error) {
	i := p.Col(name)
	if i < 0 {
		return -1, fmt.Errorf("gslib: point-set %q has no %q variable: %w", p.Name, name, errkind.BadInput)
	}
	return i, nil
}

// Copy returns a deep copy of p.
func (p *PointSet) Copy() *PointSet {
	o := New(p.Name, p.ND, p.Vars...)
	o.Rows = make([][]float64, len(p.Rows))
	for i, r := range p.Rows {
		o.Rows[i] = append([]float64(nil), r...)
	}
	return o
}

// IsMissing reports whether v equals the missing-data sentinel.
func (p *PointSet) IsMissing(v float64) bool { return v == p.ND }

// Load reads a point-set file. If header is false the file holds rows
// only and the variables are named var1..varK.
func Load(path string, nd float64, header bool) (*PointSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gslib: opening point-set: %v", err)
	}
	defer f.Close()
	p, err := Read(f, nd, header)
	if err != nil {
		return nil, fmt.Errorf("%w (file %s)", err, path)
	}
	if !header {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return p, nil
}

// Read reads a point-set from r.
func Read(r io.Reader, nd float64, header bool) (*PointSet, error) {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), 16*1024*1024)
	p := &PointSet{ND: nd}
	line := 0
	next := func() (string, bool) {
		for s.Scan() {
			line++
			t := strings.TrimSpace(s.Text())
			if t != "" {
				return t, true
			}
		}
		return "", false
	}
	nvars := -1
	if header {
		name, ok := next()
		if !ok {
			return nil, fmt.Errorf("gslib: empty point-set: %w", errkind.BadInput)
		}
		p.Name = name
		cnt, ok := next()
		if !ok {
			return nil, fmt.Errorf("gslib: missing variable count: %w", errkind.BadInput)
		}
		n, err := strconv.Atoi(strings.Fields(cnt)[0])
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("gslib: line %d: invalid variable count %q: %w", line, cnt, errkind.BadInput)
		}
		nvars = n
		for i := 0; i < n; i++ {
			v, ok := next()
			if !ok {
				return nil, fmt.Errorf("gslib: expected %d variable names, found %d: %w", n, i, errkind.BadInput)
			}
			p.Vars = append(p.Vars, v)
		}
	}
	for {
		t, ok := next()
		if !ok {
			break
		}
		fields := strings.Fields(t)
		if nvars < 0 {
			nvars = len(fields)
			for i := 1; i <= nvars; i++ {
				p.Vars = append(p.Vars, fmt.Sprintf("var%d", i))
			}
		}
		if len(fields) != nvars {
			return nil, fmt.Errorf("gslib: line %d: %d values for %d variables: %w",
				line, len(fields), nvars, errkind.BadInput)
		}
		row := make([]float64, nvars)
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("gslib: line %d: %v: %w", line, err, errkind.BadInput)
			}
			row[i] = v
		}
		p.Rows = append(p.Rows, row)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("gslib: reading point-set: %v", err)
	}
	return p, nil
}

// Save writes the point-set to a file.
func (p *PointSet) Save(path string, header bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("gslib: creating point-set file: %v", err)
	}
	if err := p.Write(f, header); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write writes the point-set to w using the shortest representation
// that reads back to the same values.
func (p *PointSet) Write(w io.Writer, header bool) error {
	b := bufio.NewWriter(w)
	if header {
		fmt.Fprintln(b, p.Name)
		fmt.Fprintln(b, len(p.Vars))
		for _, v := range p.Vars {
			fmt.Fprintln(b, v)
		}
	}
	for _, r := range p.Rows {
		for i, v := range r {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
		b.WriteByte('\n')
	}
	if err := b.Flush(); err != nil {
		return fmt.Errorf("gslib: writing point-set: %v", err)
	}
	return nil
}

// Filter returns a new point-set holding copies of the rows for which keep is true.
func (p *PointSet) Filter(keep func(row []float64) bool) *PointSet {
	o := New(p.Name, p.ND, p.Vars...)
	for _, r := range p.Rows {
		if keep(r) {
			o.Rows = append(o.Rows, append([]float64(nil), r...))
		}
	}
	return o
}

// Split separates the rows of station id from the rest. The candidate
// has no Flag column so that it can be homogenised again.
func (p *PointSet) Split(id int) (candidate, references *PointSet, err error) {
	sc, err := p.mustCol(Station)
	if err != nil {
		return nil, nil, err
	}
	candidate = p.Filter(func(r []float64) bool { return int(r[sc]) == id })
	if candidate.Len() == 0 {
		return nil, nil, fmt.Errorf("gslib: station %d not found in %q: %w", id, p.Name, errkind.BadInput)
	}
	candidate = candidate.DropVar(Flag)
	references = p.Filter(func(r []float64) bool { return int(r[sc]) != id })
	return candidate, references, nil
}

// DropVar returns a copy of p without the named variable.
func (p *PointSet) DropVar(name string) *PointSet {
	c := p.Col(name)
	if c < 0 {
		return p.Copy()
	}
	o := New(p.Name, p.ND)
	o.Vars = append(append(o.Vars, p.Vars[:c]...), p.Vars[c+1:]...)
	o.Rows = make([][]float64, len(p.Rows))
	for i, r := range p.Rows {
		nr := make([]float64, 0, len(r)-1)
		o.Rows[i] = append(append(nr, r[:c]...), r[c+1:]...)
	}
	return o
}

// AddVar appends a variable holding fill in every row. Nothing is
// done if the variable already exists.
func (p *PointSet) AddVar(name string, fill float64) {
	if p.Col(name) >= 0 {
		return
	}
	p.Vars = append(p.Vars, name)
	for i := range p.Rows {
		p.Rows[i] = append(p.Rows[i], fill)
	}
}

// Append returns a new point-set with the rows of st added after the
// rows of p. A Flag column initialised to the missing-data value is
// added to either side that lacks one.
func (p *PointSet) Append(st *PointSet) (*PointSet, error) {
	o := p.Copy()
	o.AddVar(Flag, o.ND)
	s := st.Copy()
	s.AddVar(Flag, s.ND)
	if len(s.Vars) != len(o.Vars) {
		return nil, fmt.Errorf("gslib: appending %d variables to %d: %w", len(s.Vars), len(o.Vars), errkind.BadInput)
	}
	idx := make([]int, len(o.Vars))
	for i, v := range o.Vars {
		if idx[i] = s.Col(v); idx[i] < 0 {
			return nil, fmt.Errorf("gslib: appended rows lack variable %q: %w", v, errkind.BadInput)
		}
	}
	for _, r := range s.Rows {
		if len(r) != len(s.Vars) {
			return nil, fmt.Errorf("gslib: row with %d values for %d variables: %w", len(r), len(s.Vars), errkind.BadInput)
		}
		nr := make([]float64, len(o.Vars))
		for i, j := range idx {
			nr[i] = r[j]
		}
		o.Rows = append(o.Rows, nr)
	}
	return o, nil
}

// Stations returns the station ids in order of first appearance.
func (p *PointSet) Stations() []int {
	sc := p.Col(Station)
	if sc < 0 {
		return nil
	}
	seen := make(map[int]bool)
	var o []int
	for _, r := range p.Rows {
		id := int(r[sc])
		if !seen[id] {
			seen[id] = true
			o = append(o, id)
		}
	}
	return o
}

// Values returns a copy of the named column, or nil if it is absent.
func (p *PointSet) Values(name string) []float64 {
	c := p.Col(name)
	if c < 0 {
		return nil
	}
	o := make([]float64, len(p.Rows))
	for i, r := range p.Rows {
		o[i] = r[c]
	}
	return o
}

// Missing returns the number of rows whose clim value is missing.
func (p *PointSet) Missing() int {
	c := p.Col(Clim)
	if c < 0 {
		return 0
	}
	var n int
	for _, r := range p.Rows {
		if p.IsMissing(r[c]) {
			n++
		}
	}
	return n
}

// ReplaceMissing sets the clim value of row i to values[i] wherever it is
// missing, or everywhere if overwrite is true. It returns the number of
// values replaced.
func (p *PointSet) ReplaceMissing(values []float64, overwrite bool) (int, error) {
	c, err := p.mustCol(Clim)
	if err != nil {
		return 0, err
	}
	if len(values) < len(p.Rows) {
		return 0, fmt.Errorf("gslib: %d replacement values for %d rows: %w", len(values), len(p.Rows), errkind.BadInput)
	}
	var n int
	for i, r := range p.Rows {
		if overwrite || p.IsMissing(r[c]) {
			r[c] = values[i]
			n++
		}
	}
	return n, nil
}

// FillTimeAxis adds a row for every time t in [t0, t1) with the given
// step that is not already present. The new rows copy the other
// variables from the first row, take clim from defaults at the index
// of t on the axis and have a missing Flag. Rows are sorted by time
// afterwards. It returns the number of rows added.
func (p *PointSet) FillTimeAxis(t0, t1, step int, defaults []float64) (int, error) {
	if step <= 0 {
		return 0, fmt.Errorf("gslib: time step must be >0, got %d: %w", step, errkind.BadInput)
	}
	tc, err := p.mustCol(Time)
	if err != nil {
		return 0, err
	}
	cc, err := p.mustCol(Clim)
	if err != nil {
		return 0, err
	}
	if len(p.Rows) == 0 {
		return 0, fmt.Errorf("gslib: cannot fill the time axis of an empty point-set: %w", errkind.BadInput)
	}
	if n := (t1 - t0 + step - 1) / step; len(defaults) < n {
		return 0, fmt.Errorf("gslib: %d default values for %d time steps: %w", len(defaults), n, errkind.BadInput)
	}
	present := make(map[int]bool, len(p.Rows))
	for _, r := range p.Rows {
		present[int(r[tc])] = true
	}
	fc := p.Col(Flag)
	first := p.Rows[0]
	var added int
	for t := t0; t < t1; t += step {
		if present[t] {
			continue
		}
		r := append([]float64(nil), first...)
		r[tc] = float64(t)
		r[cc] = defaults[(t-t0)/step]
		if fc >= 0 {
			r[fc] = p.ND
		}
		p.Rows = append(p.Rows, r)
		added++
	}
	p.SortBy(Time)
	return added, nil
}

// SortBy stably sorts the rows by the named variables, in order of priority.
// Unknown names are ignored.
func (p *PointSet) SortBy(names ...string) {
	var cols []int
	for _, n := range names {
		if c := p.Col(n); c >= 0 {
			cols = append(cols, c)
		}
	}
	sort.SliceStable(p.Rows, func(i, j int) bool {
		for _, c := range cols {
			if p.Rows[i][c] != p.Rows[j][c] {
				return p.Rows[i][c] < p.Rows[j][c]
			}
		}
		return false
	})
}
