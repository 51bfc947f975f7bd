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

package homogutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/homog"
	"github.com/spatialmodel/homog/dss"
	"github.com/spatialmodel/homog/ensemble"
	"github.com/spatialmodel/homog/gslib"
	"github.com/spatialmodel/homog/internal/simtest"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

// defaultCfg returns a configuration holding the default value of every
// option.
func defaultCfg() *viper.Viper {
	v := viper.New()
	for _, o := range options {
		v.Set(o.name, o.defaultVal)
	}
	return v
}

const template = `nsim = 5
seed = 123

[Grid]
XNodes = 3
YNodes = 1
ZNodes = 3
XMin = 1.0
YMin = 1.0
ZMin = 1950.0
XSize = 1.0
YSize = 1.0
ZSize = 1.0
ND = -999.9

[Search]
max_data = 16

[Variogram]
Nugget = 0.1

[[Variogram.Structures]]
Model = "exponential"
Sill = 0.9
Range1 = 2.0
Range2 = 2.0
Range3 = 1.0
`

func writeFile(t *testing.T, path, s string) {
	t.Helper()
	if err := ioutil.WriteFile(path, []byte(s), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadTemplate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "template.toml")
	writeFile(t, path, template)
	p, err := loadTemplate(path)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 5, p.NSim)
	assert.Equal(t, int64(123), p.Seed)
	assert.Equal(t, 16, p.Search.MaxData)
	assert.Equal(t, 1, p.Search.MinData, "defaults should be kept")
	assert.Equal(t, 9, p.Grid.Cells())
	assert.Equal(t, []dss.Structure{{Model: dss.Exponential, Sill: 0.9, Range1: 2, Range2: 2, Range3: 1}},
		p.Variogram.Structures)
	if err := p.Validate(); err != nil {
		t.Error(err)
	}

	t.Run("par", func(t *testing.T) {
		par := filepath.Join(dir, "template.par")
		if err := p.WriteParFile(par); err != nil {
			t.Fatal(err)
		}
		p2, err := loadTemplate(par)
		if err != nil {
			t.Fatal(err)
		}
		assert.Equal(t, p.NSim, p2.NSim)
		assert.True(t, p.Grid.Equal(p2.Grid))
	})
	t.Run("unknown", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.toml")
		writeFile(t, bad, template+"\n[Other]\nbogus = 1\n")
		if _, err := loadTemplate(bad); !errors.Is(err, homog.ErrConfig) {
			t.Errorf("want a configuration error, have %v", err)
		}
	})
	t.Run("empty", func(t *testing.T) {
		p, err := loadTemplate("")
		if err != nil {
			t.Fatal(err)
		}
		assert.Equal(t, dss.DefaultParams().NSim, p.NSim)
	})
}

func TestCheckSettings(t *testing.T) {
	cfg := defaultCfg()
	s, err := checkSettings(cfg)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, homog.DefaultSettings(), s)

	for name, c := range map[string]struct {
		key string
		val interface{}
	}{
		"method":     {"Method", "mode"},
		"prob":       {"Prob", 1.5},
		"radius":     {"Radius", -1.0},
		"percentile": {"PercentileProb", 2.0},
	} {
		t.Run(name, func(t *testing.T) {
			cfg := defaultCfg()
			cfg.Set("Method", "percentile")
			cfg.Set(c.key, c.val)
			if _, err := checkSettings(cfg); !errors.Is(err, homog.ErrConfig) {
				t.Errorf("want a configuration error, have %v", err)
			}
		})
	}
}

func TestCheckOrdering(t *testing.T) {
	cfg := defaultCfg()
	o, err := checkOrdering(cfg)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, homog.Random, o.Kind)
	assert.Nil(t, o.Seed)

	cfg.Set("Order.Kind", "network-deviation")
	cfg.Set("Order.Seed", 7)
	if o, err = checkOrdering(cfg); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, homog.ByNetworkDeviation, o.Kind)
	assert.Equal(t, int64(7), *o.Seed)

	cfg.Set("Order.Kind", "user")
	if _, err := checkOrdering(cfg); !errors.Is(err, homog.ErrMissingParameter) {
		t.Errorf("empty user order: %v", err)
	}
	cfg.Set("Order.User", []int{3, 1, 2})
	if o, err = checkOrdering(cfg); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, []int{3, 1, 2}, o.User)

	cfg.Set("Order.Kind", "alphabetical")
	if _, err := checkOrdering(cfg); !errors.Is(err, homog.ErrConfig) {
		t.Errorf("unknown order: %v", err)
	}
}

func TestCheckLogFile(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "homog.log"), checkLogFile("", "out"))
	os.Setenv("HOMOG_TEST_DIR", "logs")
	defer os.Unsetenv("HOMOG_TEST_DIR")
	assert.Equal(t, "logs/run.log", checkLogFile("$HOMOG_TEST_DIR/run.log", "out"))
}

type fakeSim struct {
	spec gslib.GridSpec
	n    int
}

func (s *fakeSim) Simulate(ctx context.Context, refs *gslib.PointSet, job homog.Job) (*ensemble.Bundle, error) {
	for k := 1; k <= s.n; k++ {
		homog.Emit(ctx, job.Progress, homog.Event{Phase: homog.PhaseSimulate, Iteration: job.Iteration,
			Station: job.Station, Simulation: k})
	}
	first, err := simtest.WriteEnsemble(job.Dir, fmt.Sprintf("sim_st%d", job.Station), s.spec, s.n,
		simtest.Constant(9, 10, 11, 10, 10))
	if err != nil {
		return nil, err
	}
	return ensemble.Open(first, s.n, s.spec, gslib.GridHeaderLines)
}

// writeNetwork writes three stations with one spike.
func writeNetwork(t *testing.T, path string) {
	t.Helper()
	ps := gslib.New("net", -999.9, gslib.X, gslib.Y, gslib.Time, gslib.Station, gslib.Clim)
	for s := 1; s <= 3; s++ {
		for y := 1950; y < 1953; y++ {
			v := 10.0
			if s == 2 && y == 1951 {
				v = 30
			}
			ps.Rows = append(ps.Rows, []float64{float64(s), 1, float64(y), float64(s), v})
		}
	}
	if err := ps.Save(path, true); err != nil {
		t.Fatal(err)
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	tpath := filepath.Join(dir, "template.toml")
	writeFile(t, tpath, template)
	data := filepath.Join(dir, "net.prn")
	writeNetwork(t, data)

	cfg := defaultCfg()
	cfg.Set("Simulator.Template", tpath)
	cfg.Set("OutputDir", filepath.Join(dir, "out"))
	cfg.Set("Order.Kind", "sorted")
	bc, err := batchConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	bc.NewSimulator = func(p dss.Params) homog.Simulator { return &fakeSim{spec: p.Grid, n: p.NSim} }

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOutput(&buf)
	metricsFile := filepath.Join(dir, "homog.prom")
	if err := Run(cmd, bc, data, checkLogFile("", bc.OutDir), metricsFile); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "detected=1") {
		t.Errorf("log does not report the detection:\n%s", buf.String())
	}
	logged, err := ioutil.ReadFile(filepath.Join(dir, "out", "homog.log"))
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, buf.String(), string(logged))
	m, err := ioutil.ReadFile(metricsFile)
	if err != nil {
		t.Fatal(err)
	}
	assert.Contains(t, string(m), `homog_detected_total{batch="net"} 1`)
	for _, f := range []string{"net.csv", "net_homogenised.prn"} {
		if _, err := os.Stat(filepath.Join(dir, "out", f)); err != nil {
			t.Error(err)
		}
	}
}

func TestSpaceCommand(t *testing.T) {
	dir := t.TempDir()
	tpath := filepath.Join(dir, "template.toml")
	writeFile(t, tpath, template)
	p, err := loadTemplate(tpath)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOutput(&buf)
	if err := Space(cmd, p, 2, 4, false); err != nil {
		t.Fatal(err)
	}
	assert.Contains(t, buf.String(), fmt.Sprintf("(%d bytes)", 9*5*2*4*14))

	if err := Space(cmd, dss.DefaultParams(), 1, 1, true); !errors.Is(err, homog.ErrMissingParameter) {
		t.Errorf("no grid: %v", err)
	}
}

func TestPrintOrder(t *testing.T) {
	data := filepath.Join(t.TempDir(), "net.prn")
	writeNetwork(t, data)
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOutput(&buf)
	if err := PrintOrder(cmd, data, -999.9, true, homog.Ordering{Kind: homog.Sorted}); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "sorted order (3 stations): 3 2 1\n", buf.String())
}

func TestVersion(t *testing.T) {
	var buf bytes.Buffer
	Root.SetOutput(&buf)
	Root.SetArgs([]string{"version"})
	defer Root.SetOutput(nil)
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "homog v"+homog.Version+"\n", buf.String())
}

func TestRadiusUsage(t *testing.T) {
	f := runCmd.Flags().Lookup("Radius")
	if f == nil {
		t.Fatal("no Radius flag")
	}
	assert.Contains(t, f.Usage, "units of the station coordinates")
	assert.NotContains(t, f.Usage, "grid units")
}
