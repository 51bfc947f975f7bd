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

	"github.com/spatialmodel/homog/gslib"
)

// bytesPerValue is the size of one value in a simulated grid file.
const bytesPerValue = 14

// EstimateSpace returns the number of bytes of simulated grids written
// by a batch of the given number of decades and stations, each run
// producing n grids with geometry spec. If purge is true the grids of a
// station are deleted before the next station is simulated, so only one
// station's grids exist at a time.
func EstimateSpace(spec gslib.GridSpec, n, decades, stations int, purge bool) int64 {
	if decades < 1 {
		decades = 1
	}
	if purge {
		stations = 1
	}
	return int64(spec.Cells()) * int64(n) * int64(decades) * int64(stations) * bytesPerValue
}

// FormatBytes formats a byte count using binary prefixes.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
