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
)

// Phase is a stage of the homogenisation of one station.
type Phase int

// These are the phases that progress events are reported for.
const (
	PhaseStart Phase = iota
	PhaseSimulate
	PhaseStatistics
	PhaseCorrect
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseStart:
		return "start"
	case PhaseSimulate:
		return "simulate"
	case PhaseStatistics:
		return "statistics"
	case PhaseCorrect:
		return "correct"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Event reports progress. Simulation is the 1-based index of the
// realisation being simulated, or 0 if not applicable.
type Event struct {
	Phase      Phase
	Iteration  int
	Station    int
	Simulation int
	Message    string
}

func (e Event) String() string {
	s := fmt.Sprintf("iteration %d station %d: %s", e.Iteration, e.Station, e.Phase)
	if e.Simulation > 0 {
		s += fmt.Sprintf(" (realisation %d)", e.Simulation)
	}
	if e.Message != "" {
		s += ": " + e.Message
	}
	return s
}

// Emit sends e to ch unless ch is nil or ctx is done first.
func Emit(ctx context.Context, ch chan<- Event, e Event) {
	if ch == nil {
		return
	}
	select {
	case ch <- e:
	case <-ctx.Done():
	}
}
