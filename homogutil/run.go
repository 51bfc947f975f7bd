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
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/homog"
	"github.com/spatialmodel/homog/batch"
	"github.com/spatialmodel/homog/dss"
	"github.com/spatialmodel/homog/gslib"
	"github.com/spatialmodel/homog/internal/metrics"
	"github.com/spf13/cobra"
)

// elapsedInterval is how often the elapsed time of a run is logged.
var elapsedInterval = time.Minute

// session holds the logging, progress reporting and cancellation of
// one command.
type session struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    *logrus.Entry

	start       time.Time
	logfile     *os.File
	progress    chan homog.Event
	done        chan struct{}
	wg          sync.WaitGroup
	metrics     *metrics.Collector
	metricsFile string
}

// startSession creates the log file and output directory, starts the
// progress and elapsed-time loggers and wires them into cfg. The
// session is cancelled by an interrupt signal.
func startSession(cmd *cobra.Command, cfg *batch.Config, logFile, metricsFile string) (*session, error) {
	if err := os.MkdirAll(cfg.OutDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("homog: problem creating output directory: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(logFile), os.ModePerm); err != nil {
		return nil, fmt.Errorf("homog: problem creating log file: %v", err)
	}
	logfile, err := os.Create(logFile)
	if err != nil {
		return nil, fmt.Errorf("homog: problem creating log file: %v", err)
	}
	l := logrus.New()
	l.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	l.Out = io.MultiWriter(cmd.OutOrStdout(), logfile)

	s := &session{
		start:       time.Now(),
		logfile:     logfile,
		log:         l.WithField("run", uuid.New().String()),
		progress:    make(chan homog.Event),
		done:        make(chan struct{}),
		metrics:     metrics.NewCollector("homog"),
		metricsFile: metricsFile,
	}
	s.ctx, s.cancel = signal.NotifyContext(context.Background(), os.Interrupt)

	s.wg.Add(2)
	go func() {
		// Realisation events are only logged every few seconds.
		tick := time.NewTicker(2 * time.Second)
		defer tick.Stop()
		defer s.wg.Done()
		for e := range s.progress {
			if e.Phase == homog.PhaseSimulate && e.Simulation > 0 {
				select {
				case <-tick.C:
				default:
					continue
				}
			}
			s.log.WithFields(logrus.Fields{"iteration": e.Iteration, "station": e.Station}).Info(e.String())
		}
	}()
	go func() {
		tick := time.NewTicker(elapsedInterval)
		defer tick.Stop()
		defer s.wg.Done()
		for {
			select {
			case <-tick.C:
				s.log.WithField("elapsed", time.Since(s.start).Round(time.Second)).Info("homog: running")
			case <-s.done:
				return
			}
		}
	}()

	cfg.Log = s.log
	cfg.Progress = s.progress
	cfg.Metrics = s.metrics
	s.log.WithFields(logrus.Fields{
		"version": homog.Version,
		"method":  cfg.Settings.Method,
		"prob":    cfg.Settings.Prob,
		"order":   cfg.Ordering.Kind,
	}).Info("homog: starting")
	return s, nil
}

// finish stops the loggers, writes the metrics and closes the log file.
// It returns err, or the first error in finishing.
func (s *session) finish(err error) error {
	s.cancel()
	close(s.progress)
	close(s.done)
	s.wg.Wait()
	if s.metricsFile != "" {
		if merr := s.metrics.WriteTextfile(s.metricsFile); merr != nil && err == nil {
			err = merr
		}
	}
	entry := s.log.WithField("elapsed", time.Since(s.start).Round(time.Millisecond))
	if err != nil {
		entry.WithError(err).Error("homog: failed")
	} else {
		entry.Info("homog: finished")
	}
	if cerr := s.logfile.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func (s *session) logOutcome(name string, o *homog.Outcome) {
	if o == nil {
		return
	}
	entry := s.log.WithFields(logrus.Fields{
		"batch":    name,
		"detected": o.Detected(),
		"filled":   o.Filled(),
		"failed":   len(o.Failed()),
	})
	if o.Cancelled {
		entry.Warn("homog: cancelled; results are partial")
		return
	}
	entry.Info("homog: homogenised")
}

// Run homogenises the point-set in dataPath.
//
// LogFile is the path to the desired log file location, and MetricsFile,
// if not empty, is where the run's metrics are written.
func Run(cmd *cobra.Command, cfg *batch.Config, dataPath, logFile, metricsFile string) error {
	s, err := startSession(cmd, cfg, logFile, metricsFile)
	if err != nil {
		return err
	}
	out, err := batch.Single(s.ctx, cfg, dataPath)
	s.logOutcome(filepath.Base(dataPath), out)
	return s.finish(err)
}

// Decades homogenises each decade listed in variogramFile with data from
// dataDir and writes the merged results to the spreadsheet file.
func Decades(cmd *cobra.Command, cfg *batch.Config, dataDir, variogramFile, spreadsheet, logFile, metricsFile string) error {
	s, err := startSession(cmd, cfg, logFile, metricsFile)
	if err != nil {
		return err
	}
	res, err := batch.Decades(s.ctx, cfg, dataDir, variogramFile)
	if res != nil {
		for _, d := range res.Decades {
			s.logOutcome(d.Variogram.Decade, d.Outcome)
		}
		if werr := batch.WriteSpreadsheet(spreadsheet, res, cfg.ND); werr != nil && err == nil {
			err = werr
		}
	}
	return s.finish(err)
}

// Networks homogenises each network directory in dirs.
func Networks(cmd *cobra.Command, cfg *batch.Config, dirs []string, byDecade bool, logFile, metricsFile string) error {
	s, err := startSession(cmd, cfg, logFile, metricsFile)
	if err != nil {
		return err
	}
	res, err := batch.Networks(s.ctx, cfg, dirs, byDecade)
	for _, n := range res {
		if n.Cancelled && n.Outcome == nil && n.Decades == nil {
			s.log.WithField("network", n.Dir).Warn("homog: cancelled before the network was run")
			continue
		}
		if n.Err != nil {
			s.log.WithField("network", n.Dir).WithError(n.Err).Warn("homog: network failed")
			continue
		}
		if n.Decades != nil {
			for _, d := range n.Decades.Decades {
				s.logOutcome(filepath.Base(n.Dir)+" "+d.Variogram.Decade, d.Outcome)
			}
		}
		s.logOutcome(filepath.Base(n.Dir), n.Outcome)
	}
	return s.finish(err)
}

// Space prints an estimate of the disk space used by the simulated grids
// of a batch.
func Space(cmd *cobra.Command, tmpl dss.Params, decades, stations int, purge bool) error {
	if err := tmpl.Grid.Validate(); err != nil {
		return fmt.Errorf("homog: simulation grid: %w", err)
	}
	b := batch.EstimateSpace(tmpl.Grid, tmpl.NSim, decades, stations, purge)
	cmd.Printf("%d grids of %d cells per station; about %s of simulated grids (%d bytes)\n",
		tmpl.NSim, tmpl.Grid.Cells(), batch.FormatBytes(b), b)
	return nil
}

// PrintOrder prints the order in which the stations of the point-set in
// dataPath would be homogenised.
func PrintOrder(cmd *cobra.Command, dataPath string, nd float64, header bool, o homog.Ordering) error {
	ps, err := gslib.Load(dataPath, nd, header)
	if err != nil {
		return err
	}
	order, err := homog.Order(ps, o)
	if err != nil {
		return err
	}
	cmd.Printf("%s order (%d stations):", o.Kind, len(order))
	for _, id := range order {
		cmd.Printf(" %d", id)
	}
	cmd.Println()
	return nil
}
