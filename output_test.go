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
	"bytes"
	"testing"
)

func TestStationTable(t *testing.T) {
	ps := network(map[int][]float64{2: {10, 10, 100}})
	ps = ps.Filter(func(r []float64) bool { return !(r[3] == 3 && r[2] == 2) })
	ps.AddVar("Flag", nd)
	ps.Rows[5][5] = 7
	tab, err := StationTable(ps)
	if err != nil {
		t.Fatal(err)
	}
	var b bytes.Buffer
	if err := tab.WriteCSV(&b); err != nil {
		t.Fatal(err)
	}
	want := `year,1_clim,1_FLAG,2_clim,2_FLAG,3_clim,3_FLAG
1,10,-999.9,10,-999.9,10,-999.9
2,10,-999.9,10,-999.9,-999.9,-999.9
3,10,-999.9,100,7,10,-999.9
`
	if b.String() != want {
		t.Errorf("have\n%s\nwant\n%s", b.String(), want)
	}
}
