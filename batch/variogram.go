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

// Package batch runs the homogenisation of several decades or
// networks and merges their results.
package batch

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/spatialmodel/homog/dss"
	"github.com/spatialmodel/homog/internal/errkind"
)

// DecadeVariogram holds the variogram of one decade.
type DecadeVariogram struct {
	// Decade is the label of the decade, such as "1950-1959".
	Decade    string
	FirstYear int
	Model     dss.Model

	Nugget, PartialSill float64
	Range               float64

	// Normalised is true if the nugget and sill are already divided by
	// the variance of the data.
	Normalised bool
}

var yearRE = regexp.MustCompile(`\d{3,4}`)

// header maps lower-case column names to their positions.
type header map[string]int

func newHeader(rec []string) header {
	h := make(header, len(rec))
	for i, n := range rec {
		h[strings.ToLower(strings.TrimSpace(n))] = i
	}
	return h
}

// col returns the position of the first of names present.
func (h header) col(names ...string) (int, bool) {
	for _, n := range names {
		if i, ok := h[n]; ok {
			return i, true
		}
	}
	return 0, false
}

func readCSV(path string) (header, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("batch: %v", err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	rec, err := r.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("batch: %s is empty: %w", path, errkind.BadInput)
	} else if err != nil {
		return nil, nil, fmt.Errorf("batch: reading %s: %v: %w", path, err, errkind.BadInput)
	}
	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("batch: reading %s: %v: %w", path, err, errkind.BadInput)
	}
	return newHeader(rec), rows, nil
}

// ReadVariogramCSV reads per-decade variogram parameters. The columns
// Decade, Model, Nugget, Partial Sill and Range are required; if the
// columns nugget_norm and psill_norm are present they are used instead
// of Nugget and Partial Sill.
func ReadVariogramCSV(path string) ([]DecadeVariogram, error) {
	h, rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	cols := make(map[string]int)
	for _, c := range []struct {
		key   string
		names []string
	}{
		{"decade", []string{"decade"}},
		{"model", []string{"model"}},
		{"range", []string{"range"}},
	} {
		i, ok := h.col(c.names...)
		if !ok {
			return nil, fmt.Errorf("batch: %s has no %s column: %w", path, c.key, errkind.BadInput)
		}
		cols[c.key] = i
	}
	ni, nok := h.col("nugget_norm")
	si, sok := h.col("psill_norm")
	normalised := nok && sok
	if !normalised {
		var ok bool
		if ni, ok = h.col("nugget"); !ok {
			return nil, fmt.Errorf("batch: %s has no nugget column: %w", path, errkind.BadInput)
		}
		if si, ok = h.col("partial sill", "partial_sill", "psill"); !ok {
			return nil, fmt.Errorf("batch: %s has no partial sill column: %w", path, errkind.BadInput)
		}
	}

	var o []DecadeVariogram
	for line, r := range rows {
		v := DecadeVariogram{Decade: strings.TrimSpace(r[cols["decade"]]), Normalised: normalised}
		year := yearRE.FindString(v.Decade)
		if year == "" {
			return nil, fmt.Errorf("batch: %s line %d: decade %q has no year: %w", path, line+2, v.Decade, errkind.BadInput)
		}
		v.FirstYear, _ = strconv.Atoi(year)
		if v.Model, err = dss.ParseModel(r[cols["model"]]); err != nil {
			return nil, fmt.Errorf("batch: %s line %d: %w", path, line+2, err)
		}
		for _, f := range []struct {
			dst *float64
			i   int
		}{{&v.Nugget, ni}, {&v.PartialSill, si}, {&v.Range, cols["range"]}} {
			if *f.dst, err = strconv.ParseFloat(strings.TrimSpace(r[f.i]), 64); err != nil {
				return nil, fmt.Errorf("batch: %s line %d: %v: %w", path, line+2, err, errkind.BadInput)
			}
		}
		o = append(o, v)
	}
	if len(o) == 0 {
		return nil, fmt.Errorf("batch: %s lists no decades: %w", path, errkind.BadInput)
	}
	return o, nil
}

// FindDecadeFile returns the data file for the decade starting in
// firstYear: the file under a dec* directory of dir whose name
// contains the year.
func FindDecadeFile(dir string, firstYear int) (string, error) {
	m, err := filepath.Glob(filepath.Join(dir, "dec*", fmt.Sprintf("*%d*", firstYear)))
	if err != nil {
		return "", fmt.Errorf("batch: %v", err)
	}
	var files []string
	for _, f := range m {
		if fi, err := os.Stat(f); err == nil && !fi.IsDir() {
			files = append(files, f)
		}
	}
	sort.Strings(files)
	switch len(files) {
	case 0:
		return "", fmt.Errorf("batch: no data file for %d in %s: %w", firstYear, dir, errkind.BadInput)
	case 1:
		return files[0], nil
	default:
		return "", fmt.Errorf("batch: %d data files for %d in %s (%s): %w",
			len(files), firstYear, dir, strings.Join(files, ", "), errkind.BadInput)
	}
}
