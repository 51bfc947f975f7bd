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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/homog/gslib"
)

// Iteration records the homogenisation of one station.
type Iteration struct {
	// Index is the 1-based position of the station in the order.
	Index    int
	Station  int
	Detected int
	Filled   int
	Skipped  bool
	Duration time.Duration

	// Err holds the reason the station could not be homogenised. The
	// station is left unchanged in that case.
	Err error
}

// Recorder receives the record of every iteration.
type Recorder interface {
	RecordIteration(it Iteration)
}

// Outcome is the result of a driver run.
type Outcome struct {
	// Working is the homogenised point-set.
	Working *gslib.PointSet

	// Order is the order stations were processed in.
	Order      []int
	Iterations []Iteration

	// Cancelled is true if the run stopped before every station was
	// processed.
	Cancelled bool
}

// Detected returns the total number of detected inhomogeneities.
func (o *Outcome) Detected() int {
	var n int
	for _, it := range o.Iterations {
		n += it.Detected
	}
	return n
}

// Filled returns the total number of completed missing values.
func (o *Outcome) Filled() int {
	var n int
	for _, it := range o.Iterations {
		n += it.Filled
	}
	return n
}

// Failed returns the iterations that ended in an error.
func (o *Outcome) Failed() []Iteration {
	var f []Iteration
	for _, it := range o.Iterations {
		if it.Err != nil {
			f = append(f, it)
		}
	}
	return f
}

// Driver homogenises the stations of a network one after another.
// Each homogenised station is a reference for the stations after it.
type Driver struct {
	*Homogeniser

	// OutDir holds intermediate files.
	OutDir string

	Recorder Recorder
}

// Run homogenises the stations of initial in the given order. Errors
// that affect only one station are recorded in its Iteration and the
// run continues; errors for which Fatal is true stop the run and are
// returned along with the partial outcome. If ctx is cancelled, the
// outcome holds the working point-set as of the last completed
// iteration.
func (d *Driver) Run(ctx context.Context, initial *gslib.PointSet, order []int) (*Outcome, error) {
	if err := ValidateOrder(initial, order); err != nil {
		return nil, err
	}
	if err := d.Settings.Validate(); err != nil {
		return nil, err
	}
	if d.Settings.SaveIntermediates {
		if err := os.MkdirAll(d.OutDir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("homog: creating output directory: %v", err)
		}
	}
	working := initial.Copy()
	if !working.HasFlag() {
		working.AddVar(gslib.Flag, working.ND)
	}
	out := &Outcome{Working: working, Order: append([]int(nil), order...)}
	log := d.log()

	for i, id := range order {
		if ctx.Err() != nil {
			out.Cancelled = true
			log.WithField("iteration", i+1).Warn("homog: run cancelled")
			break
		}
		it := Iteration{Index: i + 1, Station: id}
		start := time.Now()
		res, err := d.Homogenise(ctx, working, id, it.Index)
		if err == nil {
			err = d.saveIntermediates(res, it.Index, id)
		}
		var next *gslib.PointSet
		if err == nil {
			next, err = res.References.Append(res.Station)
		}
		it.Duration = time.Since(start)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				out.Cancelled = true
				log.WithField("iteration", it.Index).Warn("homog: run cancelled")
				break
			}
			if Fatal(err) {
				return out, err
			}
			it.Err = err
			log.WithFields(logrus.Fields{"iteration": it.Index, "station": id}).WithError(err).
				Error("homog: station left unchanged")
		} else {
			working = next
			out.Working = working
			it.Detected, it.Filled, it.Skipped = res.Detected, res.Filled, res.Skipped
		}
		out.Iterations = append(out.Iterations, it)
		if d.Recorder != nil {
			d.Recorder.RecordIteration(it)
		}
	}
	return out, nil
}

// saveIntermediates writes the inputs and outputs of iteration i to
// the output directory.
func (d *Driver) saveIntermediates(res *Result, i, id int) error {
	if !d.Settings.SaveIntermediates {
		return nil
	}
	name := func(s string) string { return filepath.Join(d.OutDir, fmt.Sprintf("iter%d_%s", i, s)) }
	for _, f := range []struct {
		ps   *gslib.PointSet
		name string
	}{
		{res.Candidate, "candidate.prn"},
		{res.References, "references.prn"},
		{res.Station, "homogenised.prn"},
	} {
		if err := f.ps.Save(name(f.name), true); err != nil {
			return err
		}
	}
	if ps, ok := d.Sim.(ParamSaver); ok && !res.Skipped {
		return ps.SaveParams(name("dss.par"), Job{Iteration: i, Station: id, Dir: d.Dir})
	}
	return nil
}
