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
	"context"

	"github.com/spatialmodel/homog/ensemble"
	"github.com/spatialmodel/homog/gslib"
)

// Job describes one simulation request.
type Job struct {
	// Iteration is the 1-based index of the iteration.
	Iteration int

	// Station is the id of the candidate station.
	Station int

	// Dir is the directory the simulator should write its files to.
	Dir string

	// Progress, if not nil, receives an event for every realisation.
	Progress chan<- Event
}

// Simulator creates an ensemble of simulated grids conditioned on a set
// of reference stations.
type Simulator interface {
	Simulate(ctx context.Context, refs *gslib.PointSet, job Job) (*ensemble.Bundle, error)
}

// ParamSaver is implemented by simulators that can save the parameters
// they would use for a job.
type ParamSaver interface {
	SaveParams(path string, job Job) error
}
