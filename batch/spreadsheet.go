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
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spatialmodel/homog"
	"github.com/tealeg/xlsx"
)

// Names of the merged sheets.
const (
	AllStationsSheet = "All stations"
	SummarySheet     = "Summary"
)

// maxSheetName is the longest sheet name spreadsheets accept.
const maxSheetName = 31

func addTable(f *xlsx.File, name string, t *homog.Table) error {
	sh, err := f.AddSheet(name)
	if err != nil {
		return fmt.Errorf("batch: adding sheet %q: %v", name, err)
	}
	row := sh.AddRow()
	for _, h := range t.Header {
		row.AddCell().SetString(h)
	}
	for _, r := range t.Rows {
		row := sh.AddRow()
		for i, v := range r {
			if i == 0 {
				row.AddCell().SetInt(int(v))
			} else {
				row.AddCell().SetFloat(v)
			}
		}
	}
	return nil
}

// mergeTables stacks the rows of tables. Columns are matched by name;
// cells of columns a table lacks hold nd.
func mergeTables(tables []*homog.Table, nd float64) *homog.Table {
	seen := map[string]bool{"year": true}
	var cols []string
	for _, t := range tables {
		for _, h := range t.Header[1:] {
			if !seen[h] {
				seen[h] = true
				cols = append(cols, h)
			}
		}
	}
	station := func(h string) int {
		id, _ := strconv.Atoi(h[:strings.Index(h+"_", "_")])
		return id
	}
	sort.SliceStable(cols, func(i, j int) bool { return station(cols[i]) < station(cols[j]) })
	o := &homog.Table{Header: append([]string{"year"}, cols...)}
	idx := make(map[string]int, len(o.Header))
	for i, h := range o.Header {
		idx[h] = i
	}
	for _, t := range tables {
		for _, r := range t.Rows {
			row := make([]float64, len(o.Header))
			for i := range row {
				row[i] = nd
			}
			for i, v := range r {
				row[idx[t.Header[i]]] = v
			}
			o.Rows = append(o.Rows, row)
		}
	}
	return o
}

// sheetName returns label cut to the longest sheet name spreadsheets
// accept, with a numeric suffix if the name is already used.
func sheetName(label string, used map[string]bool) string {
	name := label
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	for k := 2; used[name]; k++ {
		suffix := fmt.Sprintf("~%d", k)
		base := label
		if len(base)+len(suffix) > maxSheetName {
			base = base[:maxSheetName-len(suffix)]
		}
		name = base + suffix
	}
	used[name] = true
	return name
}

// Labels of the rows of each decade in the summary sheet.
const (
	OrderRow      = "station order"
	DetectionsRow = "detections"
	FilledRow     = "filled"
)

// WriteSpreadsheet writes the results of a decades batch to an xlsx
// file with one sheet per decade, a sheet with the rows of all decades
// and a summary sheet. The summary has three rows per decade, labelled
// OrderRow, DetectionsRow and FilledRow, with one column per position in
// the station order, so the counts of a station sit below its id.
func WriteSpreadsheet(path string, res *DecadesResult, nd float64) error {
	f := xlsx.NewFile()
	used := map[string]bool{AllStationsSheet: true, SummarySheet: true}
	var tables []*homog.Table
	for _, d := range res.Decades {
		if d.Outcome == nil {
			continue
		}
		t, err := homog.StationTable(d.Outcome.Working)
		if err != nil {
			return err
		}
		if err := addTable(f, sheetName(decadeName(d.Variogram), used), t); err != nil {
			return err
		}
		tables = append(tables, t)
	}
	if err := addTable(f, AllStationsSheet, mergeTables(tables, nd)); err != nil {
		return err
	}
	if err := addSummary(f, res); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("batch: %v", err)
	}
	if err := f.Save(path); err != nil {
		return fmt.Errorf("batch: saving spreadsheet: %v", err)
	}
	return nil
}

func addSummary(f *xlsx.File, res *DecadesResult) error {
	sh, err := f.AddSheet(SummarySheet)
	if err != nil {
		return fmt.Errorf("batch: adding sheet %q: %v", SummarySheet, err)
	}
	var width int
	for _, d := range res.Decades {
		if d.Outcome != nil && len(d.Outcome.Order) > width {
			width = len(d.Outcome.Order)
		}
	}
	row := sh.AddRow()
	row.AddCell().SetString("Decade")
	row.AddCell()
	for i := 1; i <= width; i++ {
		row.AddCell().SetInt(i)
	}
	row.AddCell().SetString("Failed stations")
	row.AddCell().SetString("Error")

	for _, d := range res.Decades {
		order := make([]int, width)
		detected, filled := make([]int, width), make([]int, width)
		done := make([]bool, width)
		var failed []string
		if d.Outcome != nil {
			copy(order, d.Outcome.Order)
			for _, it := range d.Outcome.Iterations {
				if it.Index < 1 || it.Index > width {
					continue
				}
				detected[it.Index-1], filled[it.Index-1] = it.Detected, it.Filled
				done[it.Index-1] = true
			}
			for _, it := range d.Outcome.Failed() {
				failed = append(failed, strconv.Itoa(it.Station))
			}
		}
		for _, r := range []struct {
			label string
			vals  []int
		}{{OrderRow, order}, {DetectionsRow, detected}, {FilledRow, filled}} {
			row := sh.AddRow()
			row.AddCell().SetString(d.Variogram.Decade)
			row.AddCell().SetString(r.label)
			for i, v := range r.vals {
				c := row.AddCell()
				if d.Outcome == nil || i >= len(d.Outcome.Order) || (r.label != OrderRow && !done[i]) {
					continue
				}
				c.SetInt(v)
			}
			if r.label != OrderRow {
				continue
			}
			row.AddCell().SetString(strings.Join(failed, " "))
			var msg string
			if d.Err != nil {
				msg = d.Err.Error()
			}
			row.AddCell().SetString(msg)
		}
	}
	return nil
}
