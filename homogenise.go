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
	"fmt"
	"io/ioutil"
	"math"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/homog/ensemble"
	"github.com/spatialmodel/homog/gslib"
)

// Result is the outcome of homogenising one station.
type Result struct {
	// Station holds the homogenised rows of the candidate, with a Flag
	// column holding the original value of every corrected row.
	Station *gslib.PointSet

	// Candidate and References are the inputs the station was split into.
	Candidate, References *gslib.PointSet

	// Detected is the number of inhomogeneous observations and Filled
	// the number of missing values that were completed.
	Detected, Filled int

	// Skipped is true if the station could not be compared with any
	// reference and was passed through unchanged.
	Skipped bool
}

// Homogeniser homogenises one candidate station at a time.
type Homogeniser struct {
	Sim      Simulator
	Settings Settings

	// Grid is the geometry the simulator is expected to produce.
	Grid gslib.GridSpec

	// Dir holds the simulator files.
	Dir string

	Log      logrus.FieldLogger
	Progress chan<- Event
}

func (h *Homogeniser) log() logrus.FieldLogger {
	if h.Log == nil {
		l := logrus.New()
		l.Out = ioutil.Discard
		return l
	}
	return h.Log
}

// Homogenise detects and corrects the inhomogeneities of station id of
// the working point-set. it is the 1-based iteration index. The working
// point-set is not modified.
func (h *Homogeniser) Homogenise(ctx context.Context, working *gslib.PointSet, id, it int) (*Result, error) {
	log := h.log().WithFields(logrus.Fields{"iteration": it, "station": id})
	Emit(ctx, h.Progress, Event{Phase: PhaseStart, Iteration: it, Station: id})

	cand, refs, err := working.Split(id)
	if err != nil {
		return nil, fmt.Errorf("homog: splitting station %d: %w", id, err)
	}
	res := &Result{Candidate: cand.Copy(), References: refs}
	cols := make(map[string]int)
	for _, n := range []string{gslib.X, gslib.Y, gslib.Time, gslib.Clim} {
		if cols[n] = cand.Col(n); cols[n] < 0 {
			return nil, fmt.Errorf("homog: point-set %q has no %q variable: %w", working.Name, n, ErrBadInput)
		}
	}
	log.WithField("missing", cand.Missing()).Debug("prepared candidate")

	if len(refs.Stations()) == 0 {
		log.Warn("homog: no reference stations; leaving the candidate unchanged")
		st := cand.Copy()
		st.AddVar(gslib.Flag, st.ND)
		res.Station = st
		res.Skipped = true
		Emit(ctx, h.Progress, Event{Phase: PhaseDone, Iteration: it, Station: id, Message: "skipped"})
		return res, nil
	}

	Emit(ctx, h.Progress, Event{Phase: PhaseSimulate, Iteration: it, Station: id})
	b, err := h.Sim.Simulate(ctx, refs, Job{Iteration: it, Station: id, Dir: h.Dir, Progress: h.Progress})
	if err != nil {
		return nil, fmt.Errorf("homog: simulating station %d: %w", id, err)
	}
	defer func() {
		cleanup := b.Close
		if h.Settings.Purge {
			cleanup = b.Purge
		}
		if err := cleanup(); err != nil {
			log.WithError(err).Warn("homog: cleaning up simulated grids")
		}
	}()
	if !b.Spec.Equal(h.Grid) {
		return nil, fmt.Errorf("homog: simulated grid %v does not match %v: %w", b.Spec, h.Grid, ErrGeometryMismatch)
	}

	Emit(ctx, h.Progress, Event{Phase: PhaseStatistics, Iteration: it, Station: id})
	x, y := cand.Rows[0][cols[gslib.X]], cand.Rows[0][cols[gslib.Y]]
	req := ensemble.Request{Stats: ensemble.Mean | ensemble.Interval, Prob: h.Settings.Prob, KeepSamples: h.Settings.SaveEnsemble}
	if h.Settings.Method == MethodMedian || h.Settings.Method == MethodSkewness {
		req.Stats |= ensemble.Median | ensemble.Skewness
	}
	local, err := h.localStats(ctx, b, x, y, req)
	if err != nil {
		return nil, err
	}
	if h.Settings.SaveEnsemble {
		path := filepath.Join(h.Dir, fmt.Sprintf("ensemble_st%d.prn", id))
		if err := local.SaveSamples(path, fmt.Sprintf("ensemble values at station %d", id)); err != nil {
			return nil, err
		}
	}
	mean := local.Mean()

	st := cand.Copy()
	t0, step, t1 := b.Spec.TimeAxis()
	added, err := st.FillTimeAxis(t0, t1, step, mean)
	if err != nil {
		return nil, err
	}
	res.Filled = added
	index := func(t float64) int {
		d := int(math.Round(t)) - t0
		if d < 0 || d/step >= len(mean) {
			return -1
		}
		return d / step
	}
	tc, cc := cols[gslib.Time], cols[gslib.Clim]
	observed := make(map[float64]bool)
	for _, r := range cand.Rows {
		if !cand.IsMissing(r[cc]) {
			observed[r[tc]] = true
		}
	}
	for _, r := range st.Rows {
		if k := index(r[tc]); k >= 0 && st.IsMissing(r[cc]) {
			r[cc] = mean[k]
			res.Filled++
		}
	}

	Emit(ctx, h.Progress, Event{Phase: PhaseCorrect, Iteration: it, Station: id})
	lower, upper := local.Lower(), local.Upper()
	var detected []int
	// Completed values are not tested for inhomogeneities.
	for i, r := range st.Rows {
		k := index(r[tc])
		if !observed[r[tc]] || k < 0 {
			continue
		}
		if r[cc] < lower[k] || r[cc] > upper[k] {
			detected = append(detected, i)
		}
	}
	res.Detected = len(detected)

	var repl func(i, k int) float64
	switch h.Settings.Method {
	case MethodMean:
		repl = func(_, k int) float64 { return mean[k] }
	case MethodMedian:
		median := local.Median()
		repl = func(_, k int) float64 { return median[k] }
	case MethodSkewness:
		median, skew := local.Median(), local.Skew()
		repl = func(_, k int) float64 {
			if math.Abs(skew[k]) > h.Settings.SkewThreshold {
				return median[k]
			}
			return mean[k]
		}
	case MethodPercentile:
		pl, pu := lower, upper
		if p := h.Settings.correctionProb(); p != h.Settings.Prob && len(detected) > 0 {
			if err := b.Reset(); err != nil {
				return nil, err
			}
			second, err := h.localStats(ctx, b, x, y, ensemble.Request{Stats: ensemble.Interval, Prob: p})
			if err != nil {
				return nil, err
			}
			pl, pu = second.Lower(), second.Upper()
		}
		repl = func(i, k int) float64 {
			if st.Rows[i][cc] > upper[k] {
				return pu[k]
			}
			return pl[k]
		}
	default:
		return nil, fmt.Errorf("homog: invalid correction method %d: %w", int(h.Settings.Method), ErrConfig)
	}

	st.AddVar(gslib.Flag, st.ND)
	fc := st.Col(gslib.Flag)
	for _, i := range detected {
		k := index(st.Rows[i][tc])
		v := repl(i, k)
		st.Rows[i][fc] = st.Rows[i][cc]
		st.Rows[i][cc] = v
	}
	res.Station = st
	log.WithFields(logrus.Fields{"detected": res.Detected, "filled": res.Filled}).Info("homog: homogenised station")
	Emit(ctx, h.Progress, Event{Phase: PhaseDone, Iteration: it, Station: id,
		Message: fmt.Sprintf("%d detected, %d filled", res.Detected, res.Filled)})
	return res, nil
}

// localStats computes the statistics of the ensemble at the candidate
// location or the region around it.
func (h *Homogeniser) localStats(ctx context.Context, b *ensemble.Bundle, x, y float64, req ensemble.Request) (*ensemble.Result, error) {
	if h.Settings.Radius > 0 {
		return ensemble.Region(ctx, b, x, y, h.Settings.Radius, req)
	}
	return ensemble.Column(ctx, b, x, y, req)
}
