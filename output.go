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

package homog

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"

	"github.com/spatialmodel/homog/gslib"
)

// Table is a station-wise view of a point-set: one row per time step,
// and for every station one column of values and one of flags.
type Table struct {
	Header []string

	// Rows hold the time in the first column. Missing cells hold the
	// missing-data value.
	Rows [][]float64
}

// StationTable arranges ps into a table with columns year,
// <station>_<variable> and <station>_FLAG for every station, in
// ascending order of station id.
func StationTable(ps *gslib.PointSet) (*Table, error) {
	tc, sc, cc := ps.Col(gslib.Time), ps.Col(gslib.Station), ps.Col(gslib.Clim)
	if tc < 0 || sc < 0 || cc < 0 {
		return nil, fmt.Errorf("homog: point-set %q needs time, station and clim variables: %w", ps.Name, ErrBadInput)
	}
	fc := ps.Col(gslib.Flag)
	ids := ps.Stations()
	sort.Ints(ids)
	col := make(map[int]int, len(ids))
	t := &Table{Header: []string{"year"}}
	for i, id := range ids {
		col[id] = 1 + 2*i
		t.Header = append(t.Header, fmt.Sprintf("%d_%s", id, ps.Vars[cc]), fmt.Sprintf("%d_FLAG", id))
	}
	rows := make(map[float64][]float64)
	var times []float64
	for _, r := range ps.Rows {
		row, ok := rows[r[tc]]
		if !ok {
			row = make([]float64, len(t.Header))
			for i := range row {
				row[i] = ps.ND
			}
			row[0] = r[tc]
			rows[r[tc]] = row
			times = append(times, r[tc])
		}
		c := col[int(r[sc])]
		row[c] = r[cc]
		if fc >= 0 {
			row[c+1] = r[fc]
		}
	}
	sort.Float64s(times)
	for _, tm := range times {
		t.Rows = append(t.Rows, rows[tm])
	}
	return t, nil
}

// WriteCSV writes the table as comma-separated values.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	rec := make([]string, len(t.Header))
	for _, r := range t.Rows {
		for i, v := range r {
			if i == 0 && v == math.Trunc(v) {
				rec[i] = strconv.FormatInt(int64(v), 10)
			} else {
				rec[i] = strconv.FormatFloat(v, 'g', -1, 64)
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the table to a CSV file at path.
func (t *Table) SaveCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("homog: creating station table: %v", err)
	}
	if err := t.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("homog: writing station table: %v", err)
	}
	return f.Close()
}
