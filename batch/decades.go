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
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/homog"
	"github.com/spatialmodel/homog/dss"
	"github.com/spatialmodel/homog/gslib"
	"github.com/spatialmodel/homog/internal/hash"
	"github.com/spatialmodel/homog/internal/metrics"
	"gonum.org/v1/gonum/stat"
)

// Config holds what every batch run needs.
type Config struct {
	// Template holds the simulation parameters that are not set per
	// decade or network.
	Template dss.Params

	// Exe is the simulation program.
	Exe string

	Settings homog.Settings
	Ordering homog.Ordering

	// ND is the missing-data value of the input point-sets and Header
	// tells whether they have a GSLIB header.
	ND     float64
	Header bool

	OutDir string

	// NewSimulator creates the simulator for a parameter set. If nil, the
	// simulation program Exe is run.
	NewSimulator func(p dss.Params) homog.Simulator

	Log      logrus.FieldLogger
	Progress chan<- homog.Event
	Metrics  *metrics.Collector

	loader *loader
}

func (c *Config) log() logrus.FieldLogger {
	if c.Log == nil {
		l := logrus.New()
		l.Out = ioutil.Discard
		c.Log = l
	}
	return c.Log
}

func (c *Config) load(ctx context.Context, path string) (*gslib.PointSet, error) {
	if c.loader == nil {
		c.loader = newLoader()
	}
	return c.loader.load(ctx, path, c.ND, c.Header)
}

func (c *Config) simulator(p dss.Params) homog.Simulator {
	if c.NewSimulator != nil {
		return c.NewSimulator(p)
	}
	return &dss.Simulator{Exe: c.Exe, Params: p, Log: c.log()}
}

// run homogenises ps with simulation parameters p, writing its files to
// dir, and saves the homogenised point-set to dir and the station table
// of the result to csvPath.
func (c *Config) run(ctx context.Context, ps *gslib.PointSet, p dss.Params, dir, name, csvPath string) (*homog.Outcome, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("batch: %v", err)
	}
	order, err := homog.Order(ps, c.Ordering)
	if err != nil {
		return nil, err
	}
	log := c.log().WithField("batch", name)
	log.WithFields(logrus.Fields{"order": order, "params": hash.Hash(p)}).Info("batch: homogenising")
	d := &homog.Driver{
		Homogeniser: &homog.Homogeniser{
			Sim:      c.simulator(p),
			Settings: c.Settings,
			Grid:     p.Grid,
			Dir:      dir,
			Log:      log,
			Progress: c.Progress,
		},
		OutDir: dir,
	}
	if c.Metrics != nil {
		d.Recorder = c.Metrics.For(name)
	}
	out, err := d.Run(ctx, ps, order)
	if err != nil {
		return out, err
	}
	if err := out.Working.Save(filepath.Join(dir, name+"_homogenised.prn"), true); err != nil {
		return out, err
	}
	t, err := homog.StationTable(out.Working)
	if err != nil {
		return out, err
	}
	if err := t.SaveCSV(csvPath); err != nil {
		return out, err
	}
	log.WithFields(logrus.Fields{"detected": out.Detected(), "filled": out.Filled(),
		"failed": len(out.Failed())}).Info("batch: done")
	return out, nil
}

// DecadeResult is the outcome of one decade.
type DecadeResult struct {
	Variogram DecadeVariogram

	// Input is the data file of the decade.
	Input  string
	Params dss.Params

	// Outcome is nil if the decade could not be run.
	Outcome *homog.Outcome
	Err     error
}

// DecadesResult is the outcome of a decades batch.
type DecadesResult struct {
	Decades   []DecadeResult
	Cancelled bool
}

// DecadeParams derives the simulation parameters of a decade from the
// template. Unless the variogram is already normalised, the nugget and
// sill are divided by the variance of the decade's values.
func DecadeParams(tmpl dss.Params, v DecadeVariogram, ps *gslib.PointSet, path string) (dss.Params, error) {
	p := tmpl.Copy()
	nugget, sill := v.Nugget, v.PartialSill
	if !v.Normalised {
		var vals []float64
		for _, x := range ps.Values(gslib.Clim) {
			if !ps.IsMissing(x) {
				vals = append(vals, x)
			}
		}
		if len(vals) < 2 {
			return p, fmt.Errorf("batch: decade %s has %d values; cannot normalise its variogram: %w",
				v.Decade, len(vals), homog.ErrBadInput)
		}
		variance := stat.Variance(vals, nil)
		if variance == 0 {
			return p, fmt.Errorf("batch: decade %s has constant values; cannot normalise its variogram: %w",
				v.Decade, homog.ErrBadInput)
		}
		nugget /= variance
		sill /= variance
	}
	p.Variogram = dss.Variogram{
		Nugget: nugget,
		Structures: []dss.Structure{{
			Model: v.Model, Sill: sill,
			Range1: v.Range, Range2: v.Range, Range3: 1,
		}},
	}
	p.Grid.ZMin = float64(v.FirstYear)
	p.Data.Path = path
	return p, p.Validate()
}

// decadeName returns a label for the decade usable in file names.
func decadeName(v DecadeVariogram) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ' ' || r == ':' {
			return '_'
		}
		return r
	}, v.Decade)
}

// Decades homogenises the data of every decade listed in variogramFile.
// The data of each decade is found in dataDir with FindDecadeFile.
// Failures of a decade are recorded in its result; errors for which
// homog.Fatal is true stop the batch.
func Decades(ctx context.Context, cfg *Config, dataDir, variogramFile string) (*DecadesResult, error) {
	vars, err := ReadVariogramCSV(variogramFile)
	if err != nil {
		return nil, err
	}
	res := new(DecadesResult)
	for _, v := range vars {
		if ctx.Err() != nil {
			res.Cancelled = true
			break
		}
		log := cfg.log().WithField("decade", v.Decade)
		dr := DecadeResult{Variogram: v}
		err := func() error {
			path, err := FindDecadeFile(dataDir, v.FirstYear)
			if err != nil {
				return err
			}
			dr.Input = path
			ps, err := cfg.load(ctx, path)
			if err != nil {
				return err
			}
			if dr.Params, err = DecadeParams(cfg.Template, v, ps, path); err != nil {
				return err
			}
			name := decadeName(v)
			dr.Outcome, err = cfg.run(ctx, ps, dr.Params, filepath.Join(cfg.OutDir, "dec"+name), name,
				filepath.Join(cfg.OutDir, name+".csv"))
			if dr.Outcome != nil && dr.Outcome.Cancelled {
				res.Cancelled = true
			}
			return err
		}()
		if err != nil {
			dr.Err = err
			if homog.Fatal(err) {
				res.Decades = append(res.Decades, dr)
				return res, err
			}
			log.WithError(err).Error("batch: decade failed")
		}
		res.Decades = append(res.Decades, dr)
	}
	return res, nil
}

// Single homogenises the point-set in dataPath in one run.
func Single(ctx context.Context, cfg *Config, dataPath string) (*homog.Outcome, error) {
	ps, err := cfg.load(ctx, dataPath)
	if err != nil {
		return nil, err
	}
	p := cfg.Template.Copy()
	p.Data.Path = dataPath
	if err := p.Validate(); err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(dataPath), filepath.Ext(dataPath))
	return cfg.run(ctx, ps, p, cfg.OutDir, name, filepath.Join(cfg.OutDir, name+".csv"))
}
