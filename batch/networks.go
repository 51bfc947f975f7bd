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

package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spatialmodel/homog"
	"github.com/spatialmodel/homog/gslib"
	"github.com/spatialmodel/homog/internal/errkind"
)

// ReadGridCSV reads the grid geometry of a network from the first row
// of a CSV file with columns xnodes, xmin, xsize, ynodes, ymin and
// ysize, and optionally znodes, zmin and zsize. Values not in the file
// are taken from defaults.
func ReadGridCSV(path string, defaults gslib.GridSpec) (gslib.GridSpec, error) {
	g := defaults
	h, rows, err := readCSV(path)
	if err != nil {
		return g, err
	}
	if len(rows) == 0 {
		return g, fmt.Errorf("batch: %s has no grid row: %w", path, errkind.BadInput)
	}
	r := rows[0]
	ints := []struct {
		name     string
		dst      *int
		required bool
	}{
		{"xnodes", &g.XNodes, true}, {"ynodes", &g.YNodes, true}, {"znodes", &g.ZNodes, false},
	}
	floats := []struct {
		name     string
		dst      *float64
		required bool
	}{
		{"xmin", &g.XMin, true}, {"xsize", &g.XSize, true},
		{"ymin", &g.YMin, true}, {"ysize", &g.YSize, true},
		{"zmin", &g.ZMin, false}, {"zsize", &g.ZSize, false},
	}
	for _, c := range ints {
		i, ok := h.col(c.name)
		if !ok {
			if c.required {
				return g, fmt.Errorf("batch: %s has no %s column: %w", path, c.name, errkind.BadInput)
			}
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(r[i]), 64)
		if err != nil {
			return g, fmt.Errorf("batch: %s %s: %v: %w", path, c.name, err, errkind.BadInput)
		}
		*c.dst = int(v)
	}
	for _, c := range floats {
		i, ok := h.col(c.name)
		if !ok {
			if c.required {
				return g, fmt.Errorf("batch: %s has no %s column: %w", path, c.name, errkind.BadInput)
			}
			continue
		}
		if *c.dst, err = strconv.ParseFloat(strings.TrimSpace(r[i]), 64); err != nil {
			return g, fmt.Errorf("batch: %s %s: %v: %w", path, c.name, err, errkind.BadInput)
		}
	}
	return g, g.Validate()
}

// findOne returns the single file in dir matching pattern.
func findOne(dir, pattern string) (string, error) {
	m, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return "", fmt.Errorf("batch: %v", err)
	}
	if len(m) != 1 {
		return "", fmt.Errorf("batch: %d files match %s in %s, want 1: %w", len(m), pattern, dir, errkind.BadInput)
	}
	return m[0], nil
}

// NetworkResult is the outcome of one network.
type NetworkResult struct {
	Dir string
	Grid gslib.GridSpec

	// Decades is set when the network was run by decade and Outcome
	// when it was run in one go.
	Decades *DecadesResult
	Outcome *homog.Outcome
	Err     error

	// Cancelled is true if the batch was cancelled before the network
	// was finished. Networks reached after cancellation are not run.
	Cancelled bool
}

// Networks homogenises each network directory in dirs. Each directory
// holds a *grid*.csv file with the geometry of the network. If byDecade
// is true, the network is run as a decades batch using the *variog*.csv
// file in the directory, and the merged spreadsheet is written to the
// output directory; otherwise the *.prn file in the directory is
// homogenised in one run. Failures of a network are recorded in its
// result; errors for which homog.Fatal is true stop the batch.
func Networks(ctx context.Context, cfg *Config, dirs []string, byDecade bool) ([]NetworkResult, error) {
	var o []NetworkResult
	for _, dir := range dirs {
		if ctx.Err() != nil {
			o = append(o, NetworkResult{Dir: dir, Cancelled: true})
			continue
		}
		name := filepath.Base(dir)
		nr := NetworkResult{Dir: dir}
		err := func() error {
			gridFile, err := findOne(dir, "*grid*.csv")
			if err != nil {
				return err
			}
			if nr.Grid, err = ReadGridCSV(gridFile, cfg.Template.Grid); err != nil {
				return err
			}
			nc := *cfg
			nc.Template = cfg.Template.Copy()
			nc.Template.Grid = nr.Grid
			nc.OutDir = filepath.Join(cfg.OutDir, name)
			nc.Log = cfg.log().WithField("network", name)
			if !byDecade {
				data, err := findOne(dir, "*.prn")
				if err != nil {
					return err
				}
				nr.Outcome, err = Single(ctx, &nc, data)
				return err
			}
			vfile, err := findOne(dir, "*variog*.csv")
			if err != nil {
				return err
			}
			if nr.Decades, err = Decades(ctx, &nc, dir, vfile); err != nil {
				return err
			}
			return WriteSpreadsheet(filepath.Join(nc.OutDir, name+".xlsx"), nr.Decades, nc.ND)
		}()
		if ctx.Err() != nil {
			nr.Cancelled = true
		}
		if err != nil {
			nr.Err = err
			if homog.Fatal(err) {
				return append(o, nr), err
			}
			cfg.log().WithField("network", name).WithError(err).Error("batch: network failed")
		}
		o = append(o, nr)
	}
	return o, nil
}
