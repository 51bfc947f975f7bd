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

package dss

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spatialmodel/homog/internal/errkind"
)

const parStart = "START OF PARAMETERS:"

// noFile stands for an empty file name.
const noFile = "nofile"

// parLine is one line of a parameter file: a fixed number of values
// followed by a description.
type parLine struct {
	fields  []interface{}
	comment string
}

// layout returns the fixed part of the parameter file, in order, with
// pointers into p.
func (p *Params) layout() []parLine {
	d, tr, g, s, k := &p.Data, &p.Transform, &p.Grid, &p.Search, &p.Kriging
	c := &d.Columns
	return []parLine{
		{[]interface{}{&d.Path}, "file with data"},
		{[]interface{}{&d.NCols}, "number of columns"},
		{[]interface{}{&c.X, &c.Y, &c.Z, &c.Var, &c.Weight, &c.Secondary}, "columns for X,Y,Z,vr,wt,sec.var."},
		{[]interface{}{&d.TrimMin, &d.TrimMax}, "trimming limits"},
		{[]interface{}{&tr.Enabled}, "transform the data (0=no, 1=yes)"},
		{[]interface{}{&tr.File}, "file for output trans table"},
		{[]interface{}{&tr.Smooth}, "consider ref. dist (0=no, 1=yes)"},
		{[]interface{}{&tr.SmoothFile}, "file with ref. dist distribution"},
		{[]interface{}{&tr.SmoothVar, &tr.SmoothWt}, "columns for vr and wt"},
		{[]interface{}{&tr.ZMin, &tr.ZMax}, "zmin,zmax(tail extrapolation)"},
		{[]interface{}{&tr.LowerTail.Type, &tr.LowerTail.Value}, "lower tail option, parameter"},
		{[]interface{}{&tr.UpperTail.Type, &tr.UpperTail.Value}, "upper tail option, parameter"},
		{[]interface{}{&p.Debug.Level}, "debugging level: 0,1,2,3"},
		{[]interface{}{&p.Debug.File}, "file for debugging output"},
		{[]interface{}{&p.Output}, "file for simulation output"},
		{[]interface{}{&p.NSim}, "number of realizations to generate"},
		{[]interface{}{&p.Bias.Correction, &p.Bias.Mean, &p.Bias.Variance}, "bias correction (0=no, 1=yes), mean, variance"},
		{[]interface{}{&g.XNodes, &g.XMin, &g.XSize}, "nx,xmn,xsiz"},
		{[]interface{}{&g.YNodes, &g.YMin, &g.YSize}, "ny,ymn,ysiz"},
		{[]interface{}{&g.ZNodes, &g.ZMin, &g.ZSize}, "nz,zmn,zsiz"},
		{[]interface{}{&g.ND}, "missing data value"},
		{[]interface{}{&p.IMask}, "use the mask (0=no, 1=yes)"},
		{[]interface{}{&p.Seed}, "random number seed"},
		{[]interface{}{&s.MinData, &s.MaxData}, "min and max original data for sim"},
		{[]interface{}{&s.MaxSimNodes}, "number of simulated nodes to use"},
		{[]interface{}{&s.Strategy}, "search strategy"},
		{[]interface{}{&s.MultiGrid, &s.MultiGridLevels}, "multiple grid search (0=no, 1=yes),num"},
		{[]interface{}{&s.Octant}, "maximum data per octant (0=not used)"},
		{[]interface{}{&s.Radius1, &s.Radius2, &s.Radius3}, "maximum search radii (hmax,hmin,vert)"},
		{[]interface{}{&s.Ang1, &s.Ang2, &s.Ang3}, "angles for search ellipsoid"},
		{[]interface{}{&k.Type, &k.Correlation, &k.VarReduction}, "ktype: 0=SK,1=OK,2=LVM,3=EXDR,4=COLC; corr; varred"},
		{[]interface{}{&k.CorrFile}, "file with local correlation"},
		{[]interface{}{&k.SecondaryFile}, "file with LVM, EXDR, or COLC variable"},
		{[]interface{}{&k.SecondaryCol}, "column for secondary variable"},
	}
}

// structureLayout returns the two lines describing structure st.
func structureLayout(st *Structure) []parLine {
	return []parLine{
		{[]interface{}{&st.Model, &st.Sill, &st.Ang1, &st.Ang2, &st.Ang3}, "it,cc,ang1,ang2,ang3"},
		{[]interface{}{&st.Range1, &st.Range2, &st.Range3}, "a_hmax, a_hmin, a_vert"},
	}
}

func formatField(f interface{}) string {
	switch v := f.(type) {
	case *string:
		if *v == "" {
			return noFile
		}
		return *v
	case *int:
		return strconv.Itoa(*v)
	case *int64:
		return strconv.FormatInt(*v, 10)
	case *float64:
		return strconv.FormatFloat(*v, 'g', -1, 64)
	case *bool:
		if *v {
			return "1"
		}
		return "0"
	case *Model:
		return strconv.Itoa(int(*v))
	}
	panic(fmt.Errorf("dss: unsupported parameter type %T", f))
}

func parseField(f interface{}, s string) error {
	var err error
	switch v := f.(type) {
	case *string:
		if s == noFile {
			s = ""
		}
		*v = s
	case *int:
		*v, err = strconv.Atoi(s)
	case *int64:
		*v, err = strconv.ParseInt(s, 10, 64)
	case *float64:
		*v, err = strconv.ParseFloat(s, 64)
	case *bool:
		var n int
		n, err = strconv.Atoi(s)
		*v = n != 0
	case *Model:
		var n int
		n, err = strconv.Atoi(s)
		*v = Model(n)
	default:
		panic(fmt.Errorf("dss: unsupported parameter type %T", f))
	}
	return err
}

func (l parLine) write(w io.Writer) error {
	vals := make([]string, len(l.fields))
	for i, f := range l.fields {
		vals[i] = formatField(f)
	}
	_, err := fmt.Fprintf(w, "%-39s -%s\n", strings.Join(vals, "  "), l.comment)
	return err
}

// WriteTo writes p in the layout of the simulator's parameter file.
func (p *Params) WriteTo(w io.Writer) (int64, error) {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%20sParameters for DSSIM\n%20s********************\n\n%s\n", "", "", parStart)
	lines := p.layout()
	lines = append(lines, parLine{[]interface{}{intPtr(len(p.Variogram.Structures)), &p.Variogram.Nugget}, "nst, nugget effect"})
	for i := range p.Variogram.Structures {
		lines = append(lines, structureLayout(&p.Variogram.Structures[i])...)
	}
	for _, l := range lines {
		if err := l.write(&b); err != nil {
			return 0, err
		}
	}
	return b.WriteTo(w)
}

func intPtr(i int) *int { return &i }

// WriteParFile writes p to a parameter file at path.
func (p *Params) WriteParFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dss: creating parameter file: %v", err)
	}
	if _, err := p.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("dss: writing parameter file: %v", err)
	}
	return f.Close()
}

// ReadParams reads parameters written in the simulator's layout.
func ReadParams(r io.Reader) (*Params, error) {
	s := bufio.NewScanner(r)
	lineNo := 0
	next := func() ([]string, error) {
		for s.Scan() {
			lineNo++
			if f := strings.Fields(s.Text()); len(f) > 0 {
				return f, nil
			}
		}
		if err := s.Err(); err != nil {
			return nil, fmt.Errorf("dss: reading parameters: %v", err)
		}
		return nil, fmt.Errorf("dss: parameter file ends at line %d: %w", lineNo, errkind.BadInput)
	}
	for {
		f, err := next()
		if err != nil {
			return nil, fmt.Errorf("dss: no %q line: %w", parStart, errkind.BadInput)
		}
		if strings.EqualFold(strings.Join(f, " "), parStart) {
			break
		}
	}
	read := func(l parLine) error {
		f, err := next()
		if err != nil {
			return err
		}
		if len(f) < len(l.fields) {
			return fmt.Errorf("dss: line %d (%s) has %d values, want %d: %w", lineNo, l.comment, len(f), len(l.fields), errkind.BadInput)
		}
		for i, fld := range l.fields {
			if err := parseField(fld, f[i]); err != nil {
				return fmt.Errorf("dss: line %d (%s): %v: %w", lineNo, l.comment, err, errkind.BadInput)
			}
		}
		return nil
	}
	p := new(Params)
	for _, l := range p.layout() {
		if err := read(l); err != nil {
			return nil, err
		}
	}
	var nst int
	if err := read(parLine{[]interface{}{&nst, &p.Variogram.Nugget}, "nst, nugget effect"}); err != nil {
		return nil, err
	}
	if nst < 0 {
		return nil, fmt.Errorf("dss: %d variogram structures: %w", nst, errkind.BadInput)
	}
	p.Variogram.Structures = make([]Structure, nst)
	for i := range p.Variogram.Structures {
		for _, l := range structureLayout(&p.Variogram.Structures[i]) {
			if err := read(l); err != nil {
				return nil, err
			}
		}
	}
	return p, nil
}

// ReadParFile reads a parameter file.
func ReadParFile(path string) (*Params, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dss: opening parameter file: %v", err)
	}
	defer f.Close()
	p, err := ReadParams(f)
	if err != nil {
		return nil, fmt.Errorf("%w (file %s)", err, path)
	}
	return p, nil
}
