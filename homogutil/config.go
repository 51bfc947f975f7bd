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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/lnashier/viper"
	"github.com/spatialmodel/homog"
	"github.com/spatialmodel/homog/batch"
	"github.com/spatialmodel/homog/dss"
	"github.com/spf13/cast"
)

// loadTemplate reads the simulation parameter template in path. Files
// ending in .par are read as simulator parameter files; anything else is
// read as TOML over the default parameters. An empty path returns the
// default parameters.
func loadTemplate(path string) (dss.Params, error) {
	p := dss.DefaultParams()
	if path == "" {
		return p, nil
	}
	if strings.EqualFold(filepath.Ext(path), ".par") {
		pp, err := dss.ReadParFile(path)
		if err != nil {
			return p, err
		}
		return *pp, nil
	}
	md, err := toml.DecodeFile(path, &p)
	if err != nil {
		return p, fmt.Errorf("homog: reading simulation template %s: %v: %w", path, err, homog.ErrConfig)
	}
	if un := md.Undecoded(); len(un) > 0 {
		return p, fmt.Errorf("homog: unknown options in simulation template %s: %v: %w", path, un, homog.ErrConfig)
	}
	p.Data.Path = os.ExpandEnv(p.Data.Path)
	return p, nil
}

// checkSettings reads and validates the homogenisation settings.
func checkSettings(cfg *viper.Viper) (homog.Settings, error) {
	m, err := homog.ParseMethod(os.ExpandEnv(cfg.GetString("Method")))
	if err != nil {
		return homog.Settings{}, err
	}
	s := homog.Settings{
		Prob:              cfg.GetFloat64("Prob"),
		Method:            m,
		SkewThreshold:     cfg.GetFloat64("SkewThreshold"),
		PercentileProb:    cfg.GetFloat64("PercentileProb"),
		Radius:            cfg.GetFloat64("Radius"),
		SaveIntermediates: cfg.GetBool("SaveIntermediates"),
		Purge:             cfg.GetBool("Purge"),
		SaveEnsemble:      cfg.GetBool("SaveEnsemble"),
	}
	return s, s.Validate()
}

// checkOrdering reads the station ordering options.
func checkOrdering(cfg *viper.Viper) (homog.Ordering, error) {
	k, err := homog.ParseOrderKind(cfg.GetString("Order.Kind"))
	if err != nil {
		return homog.Ordering{}, err
	}
	o := homog.Ordering{
		Kind:        k,
		Ascending:   cfg.GetBool("Order.Ascending"),
		MissingLast: cfg.GetBool("Order.MissingLast"),
	}
	if seed := int64(cfg.GetInt("Order.Seed")); seed >= 0 {
		o.Seed = &seed
	}
	if o.User, err = cast.ToIntSliceE(cfg.Get("Order.User")); err != nil {
		return o, fmt.Errorf("homog: reading Order.User: %v: %w", err, homog.ErrConfig)
	}
	if k == homog.UserOrder && len(o.User) == 0 {
		return o, fmt.Errorf("homog: the user order needs Order.User: %w", homog.ErrMissingParameter)
	}
	return o, nil
}

// batchConfig reads the options shared by every kind of run.
func batchConfig(cfg *viper.Viper) (*batch.Config, error) {
	s, err := checkSettings(cfg)
	if err != nil {
		return nil, err
	}
	o, err := checkOrdering(cfg)
	if err != nil {
		return nil, err
	}
	tmpl, err := loadTemplate(os.ExpandEnv(cfg.GetString("Simulator.Template")))
	if err != nil {
		return nil, err
	}
	out := os.ExpandEnv(cfg.GetString("OutputDir"))
	if out == "" {
		return nil, fmt.Errorf("homog: the OutputDir option is not set: %w", homog.ErrMissingParameter)
	}
	return &batch.Config{
		Template: tmpl,
		Exe:      os.ExpandEnv(cfg.GetString("Simulator.Exe")),
		Settings: s,
		Ordering: o,
		ND:       cfg.GetFloat64("ND"),
		Header:   cfg.GetBool("Header"),
		OutDir:   out,
	}, nil
}

// checkLogFile fills in a default value for the log file path if one isn't
// specified.
func checkLogFile(logFile, outDir string) string {
	if logFile == "" {
		return filepath.Join(outDir, "homog.log")
	}
	return os.ExpandEnv(logFile)
}

// expandStringSlice expands the environment variables in a slice of strings.
func expandStringSlice(s []string) []string {
	for i := 0; i < len(s); i++ {
		s[i] = os.ExpandEnv(s[i])
	}
	return s
}
