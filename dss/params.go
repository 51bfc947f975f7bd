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

// Package dss runs direct sequential simulation as an external program
// to produce the ensembles that stations are compared against.
package dss

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spatialmodel/homog/gslib"
	"github.com/spatialmodel/homog/internal/errkind"
)

// Model is a variogram model type, numbered as the simulator expects.
type Model int

// These are the variogram models.
const (
	Spherical   Model = 1
	Exponential Model = 2
	Gaussian    Model = 3
	Power       Model = 4
	HoleEffect  Model = 5
)

func (m Model) String() string {
	switch m {
	case Spherical:
		return "spherical"
	case Exponential:
		return "exponential"
	case Gaussian:
		return "gaussian"
	case Power:
		return "power"
	case HoleEffect:
		return "hole effect"
	default:
		return fmt.Sprintf("model(%d)", int(m))
	}
}

// ParseModel returns the model named by s. Only the first letter is
// significant, so "S", "sph" and "Spherical" are all spherical models.
// Model numbers are also accepted.
func ParseModel(s string) (Model, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("dss: empty variogram model: %w", errkind.BadInput)
	}
	if n, err := strconv.Atoi(s); err == nil {
		if m := Model(n); m >= Spherical && m <= HoleEffect {
			return m, nil
		}
		return 0, fmt.Errorf("dss: unknown variogram model %d: %w", n, errkind.BadInput)
	}
	switch strings.ToUpper(s[:1]) {
	case "S":
		return Spherical, nil
	case "E":
		return Exponential, nil
	case "G":
		return Gaussian, nil
	case "P":
		return Power, nil
	case "H", "C":
		return HoleEffect, nil
	}
	return 0, fmt.Errorf("dss: unknown variogram model %q: %w", s, errkind.BadInput)
}

// UnmarshalText allows models to be given by name in configuration files.
func (m *Model) UnmarshalText(b []byte) error {
	v, err := ParseModel(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Columns are the 1-based columns of the conditioning data file that
// hold each role. Zero means not present.
type Columns struct {
	X, Y, Z, Var, Weight, Secondary int
}

// Data describes the conditioning data file.
type Data struct {
	Path    string
	NCols   int `toml:"ncols"`
	Columns Columns
	TrimMin float64 `toml:"trim_min"`
	TrimMax float64 `toml:"trim_max"`
}

// Tail is an extrapolation option for one tail of the distribution.
type Tail struct {
	Type  int
	Value float64
}

// Transform holds the options for the normal-score style transformation
// of the data.
type Transform struct {
	Enabled    bool
	File       string
	Smooth     bool
	SmoothFile string `toml:"smooth_file"`
	SmoothVar  int    `toml:"smooth_var"`
	SmoothWt   int    `toml:"smooth_wt"`
	ZMin       float64
	ZMax       float64
	LowerTail  Tail `toml:"lower_tail"`
	UpperTail  Tail `toml:"upper_tail"`
}

// Debug holds the debugging options of the simulator.
type Debug struct {
	Level int
	File  string
}

// Bias holds the bias correction flags.
type Bias struct {
	Correction, Mean, Variance int
}

// Search holds the neighbourhood search options.
type Search struct {
	MinData         int `toml:"min_data"`
	MaxData         int `toml:"max_data"`
	MaxSimNodes     int `toml:"max_sim_nodes"`
	Strategy        int
	MultiGrid       bool `toml:"multi_grid"`
	MultiGridLevels int  `toml:"multi_grid_levels"`
	Octant          int
	Radius1         float64
	Radius2         float64
	Radius3         float64
	Ang1, Ang2      float64
	Ang3            float64
}

// Kriging holds the kriging options.
type Kriging struct {
	// Type is 0 for simple kriging and 1 for ordinary kriging; higher
	// values use secondary information.
	Type          int
	Correlation   float64
	VarReduction  float64 `toml:"var_reduction"`
	CorrFile      string  `toml:"corr_file"`
	SecondaryFile string  `toml:"secondary_file"`
	SecondaryCol  int     `toml:"secondary_col"`
}

// Structure is one nested structure of a variogram.
type Structure struct {
	Model                  Model
	Sill                   float64
	Ang1, Ang2, Ang3       float64
	Range1, Range2, Range3 float64
}

// Variogram is a nugget effect plus nested structures.
type Variogram struct {
	Nugget     float64
	Structures []Structure
}

// Params holds every parameter of a simulation. The grid missing-data
// value is written to the parameter file as the simulator's missing-data
// sentinel.
type Params struct {
	Data      Data
	Transform Transform
	Debug     Debug
	Output    string
	NSim      int `toml:"nsim"`
	Bias      Bias
	Grid      gslib.GridSpec
	IMask     bool `toml:"imask"`
	Seed      int64
	Search    Search
	Kriging   Kriging
	Variogram Variogram
}

// DefaultParams returns a parameter set with the usual options of the
// simulator, one spherical structure and no grid.
func DefaultParams() Params {
	return Params{
		Data: Data{
			NCols:   4,
			Columns: Columns{X: 1, Y: 2, Z: 3, Var: 4},
			TrimMin: -1e21, TrimMax: 1e21,
		},
		Transform: Transform{
			Enabled: true, File: "dss.trn", SmoothFile: "histsmth.out",
			SmoothVar: 1, SmoothWt: 2,
			LowerTail: Tail{Type: 1}, UpperTail: Tail{Type: 1},
		},
		Debug:  Debug{Level: 1, File: "dss.dbg"},
		Output: "dss.out",
		NSim:   10,
		Grid:   gslib.GridSpec{ND: -999.9},
		Seed:   69069,
		Search: Search{
			MinData: 1, MaxData: 32, MaxSimNodes: 12, Strategy: 1,
			MultiGrid: false, MultiGridLevels: 3,
			Radius1: 1e4, Radius2: 1e4, Radius3: 1,
		},
		Kriging: Kriging{Correlation: 0.6, VarReduction: 1, CorrFile: "corr.out",
			SecondaryFile: "sec.out", SecondaryCol: 4},
		Variogram: Variogram{Nugget: 0, Structures: []Structure{{Model: Spherical, Sill: 1, Range1: 1, Range2: 1, Range3: 1}}},
	}
}

// Copy returns a deep copy of p.
func (p Params) Copy() Params {
	p.Variogram.Structures = append([]Structure(nil), p.Variogram.Structures...)
	return p
}

// Validate checks that p can be used for a simulation.
func (p *Params) Validate() error {
	if p.NSim < 1 {
		return fmt.Errorf("dss: number of simulations must be >0, got %d: %w", p.NSim, errkind.MissingParameter)
	}
	if err := p.Grid.Validate(); err != nil {
		return fmt.Errorf("dss: simulation grid: %w", err)
	}
	if len(p.Variogram.Structures) == 0 {
		return fmt.Errorf("dss: the variogram has no structures: %w", errkind.MissingParameter)
	}
	for i, s := range p.Variogram.Structures {
		if s.Model < Spherical || s.Model > HoleEffect {
			return fmt.Errorf("dss: variogram structure %d has invalid model %d: %w", i+1, int(s.Model), errkind.Config)
		}
		if s.Range1 <= 0 {
			return fmt.Errorf("dss: variogram structure %d has range %g: %w", i+1, s.Range1, errkind.Config)
		}
	}
	if p.Search.MaxData < p.Search.MinData {
		return fmt.Errorf("dss: maximum search data %d is less than the minimum %d: %w",
			p.Search.MaxData, p.Search.MinData, errkind.Config)
	}
	return nil
}
