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

package ensemble

import (
	"fmt"

	"github.com/spatialmodel/homog/gslib"
)

// SampleVar is the name of the variable holding ensemble values in a
// saved sample file.
const SampleVar = "value"

// SamplePointSet returns the retained ensemble values as a point-set
// with variables x, y, time, sample and value; sample is the position
// of the value within its z slice.
func (r *Result) SamplePointSet(name string) (*gslib.PointSet, error) {
	if r.Samples == nil {
		return nil, fmt.Errorf("ensemble: samples were not kept for %s", name)
	}
	ps := gslib.New(name, r.Spec.ND, gslib.X, gslib.Y, gslib.Time, "sample", SampleVar)
	for k, vals := range r.Samples {
		_, _, z := r.Spec.Coord(0, 0, k)
		for i, v := range vals {
			ps.Rows = append(ps.Rows, []float64{r.X, r.Y, z, float64(i + 1), v})
		}
	}
	return ps, nil
}

// SaveSamples writes the retained ensemble values to path as a GSLIB
// point-set file.
func (r *Result) SaveSamples(path, name string) error {
	ps, err := r.SamplePointSet(name)
	if err != nil {
		return err
	}
	return ps.Save(path, true)
}
