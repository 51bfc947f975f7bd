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

package dss

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/homog"
	"github.com/spatialmodel/homog/ensemble"
	"github.com/spatialmodel/homog/gslib"
	"github.com/spatialmodel/homog/internal/errkind"
)

var realisationRE = regexp.MustCompile(`(?i)realization\s+number\s+(\d+)`)

// Simulator runs the simulation program once per job. It implements
// homog.Simulator and homog.ParamSaver.
type Simulator struct {
	// Exe is the path of the simulation program.
	Exe string

	// Params is the template for the parameters of every job. The data,
	// output and debugging files are set per job.
	Params Params

	// Keep retains the conditioning data, parameter and debugging files
	// of each job.
	Keep bool

	Log logrus.FieldLogger
}

func (s *Simulator) log() logrus.FieldLogger {
	if s.Log == nil {
		l := logrus.New()
		l.Out = ioutil.Discard
		return l
	}
	return s.Log
}

// jobFile returns the path of a file of the given kind for job.
func jobFile(job homog.Job, kind, ext string) string {
	return filepath.Join(job.Dir, fmt.Sprintf("%s_st%d%s", kind, job.Station, ext))
}

// JobParams returns the parameters for a job whose conditioning data
// has the variables vars.
func (s *Simulator) JobParams(job homog.Job, vars []string) (Params, error) {
	p := s.Params.Copy()
	p.Data.Path = jobFile(job, "refs", ".prn")
	p.Output = jobFile(job, "sim", ".out")
	p.Debug.File = jobFile(job, "dss", ".dbg")
	p.Data.NCols = len(vars)
	col := func(name string) (int, error) {
		for i, v := range vars {
			if strings.EqualFold(v, name) {
				return i + 1, nil
			}
		}
		return 0, fmt.Errorf("dss: conditioning data lack a %q variable: %w", name, errkind.BadInput)
	}
	var err error
	c := &p.Data.Columns
	for _, r := range []struct {
		dst  *int
		name string
	}{{&c.X, gslib.X}, {&c.Y, gslib.Y}, {&c.Z, gslib.Time}, {&c.Var, gslib.Clim}} {
		if *r.dst, err = col(r.name); err != nil {
			return p, err
		}
	}
	return p, p.Validate()
}

// SaveParams writes the parameters of job to path. The variables of the
// conditioning data are assumed to be x, y, time, station, clim and Flag.
func (s *Simulator) SaveParams(path string, job homog.Job) error {
	p, err := s.JobParams(job, []string{gslib.X, gslib.Y, gslib.Time, gslib.Station, gslib.Clim, gslib.Flag})
	if err != nil {
		return err
	}
	return p.WriteParFile(path)
}

// Simulate writes the conditioning data and parameter file for job,
// runs the simulation program and opens the realisations it writes.
// Rows of refs with missing values are not used for conditioning.
func (s *Simulator) Simulate(ctx context.Context, refs *gslib.PointSet, job homog.Job) (*ensemble.Bundle, error) {
	log := s.log().WithFields(logrus.Fields{"iteration": job.Iteration, "station": job.Station})
	p, err := s.JobParams(job, refs.Vars)
	if err != nil {
		return nil, err
	}
	cc := refs.Col(gslib.Clim)
	data := refs.Filter(func(r []float64) bool { return !refs.IsMissing(r[cc]) })
	if err := data.Save(p.Data.Path, true); err != nil {
		return nil, err
	}
	parPath := jobFile(job, "dss", ".par")
	if err := p.WriteParFile(parPath); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, s.Exe, parPath)
	cmd.Dir = job.Dir
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("dss: %v", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	log.WithField("par", parPath).Debug("dss: starting simulation")
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("dss: starting %s: %v: %w", s.Exe, err, errkind.SimulatorFailure)
	}
	var problems []string
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lower := strings.ToLower(line)
		switch {
		case realisationRE.MatchString(line):
			n, _ := strconv.Atoi(realisationRE.FindStringSubmatch(line)[1])
			homog.Emit(ctx, job.Progress, homog.Event{Phase: homog.PhaseSimulate,
				Iteration: job.Iteration, Station: job.Station, Simulation: n})
		case strings.Contains(lower, "error"):
			problems = append(problems, line)
			log.Error("dss: " + line)
		case strings.Contains(lower, "elapsed time"):
			log.Info("dss: " + line)
		}
	}
	if err := scanner.Err(); err != nil {
		log.WithError(err).Warn("dss: reading simulation output")
		io.Copy(ioutil.Discard, stdout)
	}
	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := strings.TrimSpace(strings.Join(append(problems, stderr.String()), "; "))
		return nil, fmt.Errorf("dss: %s %s: %v: %s: %w", s.Exe, parPath, err, msg, errkind.SimulatorFailure)
	}
	if !s.Keep {
		if err := s.cleanup(job); err != nil {
			log.WithError(err).Warn("dss: deleting job files")
		}
	}
	b, err := ensemble.Open(p.Output, p.NSim, p.Grid, gslib.GridHeaderLines)
	if err != nil {
		return nil, fmt.Errorf("dss: reading realisations: %w: %w", err, errkind.SimulatorFailure)
	}
	return b, nil
}

// cleanup deletes the files written for job other than the realisations.
func (s *Simulator) cleanup(job homog.Job) error {
	for _, f := range []string{jobFile(job, "refs", ".prn"), jobFile(job, "dss", ".par"), jobFile(job, "dss", ".dbg")} {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
