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
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strconv"

	"github.com/spatialmodel/homog/gslib"
	"gonum.org/v1/gonum/stat"
)

// Stat is a set of ensemble statistics.
type Stat uint

// These are the statistics that can be computed.
const (
	Mean Stat = 1 << iota
	Median
	Variance
	StdDev
	Skewness
	CoefVar
	// Interval is the central interval holding a given fraction of the values.
	Interval
)

const moments = Mean | Variance | StdDev | Skewness | CoefVar

// Request specifies which statistics to compute.
type Request struct {
	Stats Stat

	// Prob is the fraction of values inside the central interval.
	Prob float64

	// Percentiles are extra quantiles to compute, each in [0, 1].
	Percentiles []float64

	// KeepSamples retains the ensemble values of each location in the
	// result so that they can be saved.
	KeepSamples bool
}

// Names returns the names of the requested statistics in the order
// they are reported.
func (req Request) Names() []string {
	var o []string
	for _, s := range []struct {
		s    Stat
		name string
	}{{Mean, "mean"}, {Median, "median"}, {Variance, "variance"}, {StdDev, "stdev"},
		{Skewness, "skewness"}, {CoefVar, "cv"}} {
		if req.Stats&s.s != 0 {
			o = append(o, s.name)
		}
	}
	if req.Stats&Interval != 0 {
		o = append(o, "lower", "upper")
	}
	for _, p := range req.Percentiles {
		o = append(o, "p"+strconv.FormatFloat(p, 'g', -1, 64))
	}
	return o
}

// Values holds the statistics of one ensemble of values. Statistics
// that were not requested or are undefined are NaN.
type Values struct {
	Mean, Median, Variance, StdDev, Skew, CoefVar float64
	Lower, Upper                                  float64
	Percentiles                                   []float64
}

// list returns the requested statistics in the order of req.Names.
func (v Values) list(req Request) []float64 {
	var o []float64
	for _, s := range []struct {
		s Stat
		v float64
	}{{Mean, v.Mean}, {Median, v.Median}, {Variance, v.Variance}, {StdDev, v.StdDev},
		{Skewness, v.Skew}, {CoefVar, v.CoefVar}} {
		if req.Stats&s.s != 0 {
			o = append(o, s.v)
		}
	}
	if req.Stats&Interval != 0 {
		o = append(o, v.Lower, v.Upper)
	}
	return append(o, v.Percentiles...)
}

// Compute calculates the requested statistics of x. The variance is
// the sample variance. The skewness of fewer than three values or of
// constant values is 0.
func Compute(x []float64, req Request) Values {
	nan := math.NaN()
	v := Values{Mean: nan, Median: nan, Variance: nan, StdDev: nan, Skew: nan, CoefVar: nan, Lower: nan, Upper: nan}
	v.Percentiles = make([]float64, len(req.Percentiles))
	for i := range v.Percentiles {
		v.Percentiles[i] = nan
	}
	n := len(x)
	if n == 0 {
		return v
	}
	if req.Stats&moments != 0 {
		mean := stat.Mean(x, nil)
		variance := 0.
		if n > 1 {
			variance = stat.Variance(x, nil)
		}
		std := math.Sqrt(variance)
		if req.Stats&Mean != 0 {
			v.Mean = mean
		}
		if req.Stats&Variance != 0 {
			v.Variance = variance
		}
		if req.Stats&StdDev != 0 {
			v.StdDev = std
		}
		if req.Stats&Skewness != 0 {
			v.Skew = 0
			if n > 2 && std > 0 {
				if s := stat.Skew(x, nil); !math.IsNaN(s) {
					v.Skew = s
				}
			}
		}
		if req.Stats&CoefVar != 0 {
			v.CoefVar = std / mean * 100
		}
	}
	if req.Stats&(Median|Interval) != 0 || len(req.Percentiles) > 0 {
		s := sorted(x)
		if req.Stats&Median != 0 {
			v.Median = Quantile(0.5, s)
		}
		if req.Stats&Interval != 0 {
			v.Lower, v.Upper = CentralInterval(req.Prob, s)
		}
		for i, p := range req.Percentiles {
			v.Percentiles[i] = Quantile(p, s)
		}
	}
	return v
}

// Result holds the statistics of every z slice of a column or region.
type Result struct {
	Request Request

	// X and Y are the coordinates of the location the statistics
	// were computed for.
	X, Y float64

	// Spec is the geometry of the ensemble.
	Spec gslib.GridSpec

	// Slices holds the statistics of each z slice.
	Slices []Values

	// Samples holds the ensemble values of each z slice when
	// Request.KeepSamples is set.
	Samples [][]float64
}

func (r *Result) series(f func(Values) float64) []float64 {
	o := make([]float64, len(r.Slices))
	for i, v := range r.Slices {
		o[i] = f(v)
	}
	return o
}

// Mean returns the mean of each z slice.
func (r *Result) Mean() []float64 { return r.series(func(v Values) float64 { return v.Mean }) }

// Median returns the median of each z slice.
func (r *Result) Median() []float64 { return r.series(func(v Values) float64 { return v.Median }) }

// Skew returns the skewness of each z slice.
func (r *Result) Skew() []float64 { return r.series(func(v Values) float64 { return v.Skew }) }

// Lower returns the lower bound of the central interval of each z slice.
func (r *Result) Lower() []float64 { return r.series(func(v Values) float64 { return v.Lower }) }

// Upper returns the upper bound of the central interval of each z slice.
func (r *Result) Upper() []float64 { return r.series(func(v Values) float64 { return v.Upper }) }

// Percentile returns the i'th requested percentile of each z slice.
func (r *Result) Percentile(i int) []float64 {
	return r.series(func(v Values) float64 { return v.Percentiles[i] })
}

// PointSet returns the statistics as a point-set with variables x, y,
// time and one variable per statistic. Undefined values are written as
// the missing-data value of the grid.
func (r *Result) PointSet(name string) *gslib.PointSet {
	ps := gslib.New(name, r.Spec.ND, append([]string{gslib.X, gslib.Y, gslib.Time}, r.Request.Names()...)...)
	for k, v := range r.Slices {
		_, _, z := r.Spec.Coord(0, 0, k)
		row := append([]float64{r.X, r.Y, z}, v.list(r.Request)...)
		for i, x := range row {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				row[i] = r.Spec.ND
			}
		}
		ps.Rows = append(ps.Rows, row)
	}
	return ps
}

// collect computes the statistics of the values of all of the given
// horizontal nodes, slice by slice.
func collect(ctx context.Context, b *Bundle, x, y float64, nodes []int, req Request) (*Result, error) {
	r := &Result{Request: req, X: x, Y: y, Spec: b.Spec, Slices: make([]Values, b.Spec.ZNodes)}
	if req.KeepSamples {
		r.Samples = make([][]float64, b.Spec.ZNodes)
	}
	plane := b.Spec.Plane()
	for k := 0; k < b.Spec.ZNodes; k++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vals := make([]float64, 0, len(nodes)*b.Len())
		for _, n := range nodes {
			cell, err := b.ReadAt(n + plane*k)
			if err != nil {
				return nil, fmt.Errorf("ensemble: reading slice %d: %w", k, err)
			}
			vals = append(vals, cell...)
		}
		r.Slices[k] = Compute(vals, req)
		if req.KeepSamples {
			r.Samples[k] = vals
		}
	}
	return r, nil
}

// Column computes the statistics of the vertical column at the node
// nearest to (x, y). The bundle must not have been read past the top
// of the column.
func Column(ctx context.Context, b *Bundle, x, y float64, req Request) (*Result, error) {
	i, j, err := b.Spec.Node(x, y)
	if err != nil {
		return nil, err
	}
	return collect(ctx, b, x, y, []int{b.Spec.Index(i, j, 0)}, req)
}

// Region computes, for each z slice, the statistics of the values of
// all realisations at all nodes within radius of (x, y).
func Region(ctx context.Context, b *Bundle, x, y, radius float64, req Request) (*Result, error) {
	nodes, err := RegionNodes(b.Spec, x, y, radius)
	if err != nil {
		return nil, err
	}
	return collect(ctx, b, x, y, nodes, req)
}

// Full computes the statistics of every cell of the bundle and writes
// one grid file per statistic to dir, named <prefix><statistic>.out.
// It returns the paths of the files by statistic name.
func Full(ctx context.Context, b *Bundle, req Request, dir, prefix string) (map[string]string, error) {
	if b.Cursor() != 0 || !b.IsOpen() {
		if err := b.Reset(); err != nil {
			return nil, err
		}
	}
	names := req.Names()
	paths := make(map[string]string, len(names))
	writers := make([]*gslib.GridWriter, len(names))
	closeAll := func() {
		for _, w := range writers {
			if w != nil {
				w.Close()
			}
		}
	}
	for i, n := range names {
		p := filepath.Join(dir, prefix+n+".out")
		w, err := gslib.CreateGrid(p, prefix+n, n, b.Spec)
		if err != nil {
			closeAll()
			return nil, err
		}
		writers[i] = w
		paths[n] = p
	}
	plane := b.Spec.Plane()
	for c := 0; c < b.Spec.Cells(); c++ {
		if c%plane == 0 {
			if err := ctx.Err(); err != nil {
				closeAll()
				return nil, err
			}
		}
		cell, err := b.ReadCell()
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("ensemble: reading cell %d: %w", c, err)
		}
		for i, v := range Compute(cell, req).list(req) {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				v = b.Spec.ND
			}
			if err := writers[i].Write(v); err != nil {
				closeAll()
				return nil, err
			}
		}
	}
	for i, w := range writers {
		writers[i] = nil
		if err := w.Close(); err != nil {
			closeAll()
			return nil, err
		}
	}
	return paths, nil
}
