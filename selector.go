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
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/GaryBoone/GoStats/stats"
	"github.com/spatialmodel/homog/gslib"
	"gonum.org/v1/gonum/stat"
)

// OrderKind is a strategy for ordering candidate stations.
type OrderKind int

// These are the ordering strategies.
const (
	// Random shuffles the stations.
	Random OrderKind = iota
	// Sorted orders stations by id.
	Sorted
	// ByVariance orders stations by the sample variance of their values.
	ByVariance
	// ByNetworkDeviation orders stations by the distance of their mean
	// from the mean of the network.
	ByNetworkDeviation
	// UserOrder uses a given list of stations.
	UserOrder
)

var orderNames = []string{"random", "sorted", "variance", "network deviation", "user"}

func (k OrderKind) String() string {
	if k < 0 || int(k) >= len(orderNames) {
		return fmt.Sprintf("order(%d)", int(k))
	}
	return orderNames[k]
}

// ParseOrderKind returns the ordering strategy with the given name.
// Dashes and underscores are accepted in place of spaces.
func ParseOrderKind(s string) (OrderKind, error) {
	s = strings.NewReplacer("-", " ", "_", " ").Replace(strings.TrimSpace(s))
	for i, n := range orderNames {
		if strings.EqualFold(s, n) {
			return OrderKind(i), nil
		}
	}
	return 0, fmt.Errorf("homog: invalid station order %q; options are %v: %w", s, orderNames, ErrConfig)
}

// Ordering specifies how candidate stations are ordered.
type Ordering struct {
	Kind      OrderKind
	Ascending bool

	// MissingLast places stations whose statistic is undefined at the
	// end rather than the beginning.
	MissingLast bool

	// Seed makes Random orderings reproducible. A nil seed uses the
	// current time.
	Seed *int64

	// User is the order for UserOrder.
	User []int
}

// Order returns the station ids of ps in the order candidates are to be
// homogenised.
func Order(ps *gslib.PointSet, o Ordering) ([]int, error) {
	ids := ps.Stations()
	if len(ids) == 0 {
		return nil, fmt.Errorf("homog: point-set %q holds no stations: %w", ps.Name, ErrBadInput)
	}
	switch o.Kind {
	case Random:
		seed := time.Now().UnixNano()
		if o.Seed != nil {
			seed = *o.Seed
		}
		sort.Ints(ids)
		r := rand.New(rand.NewSource(seed))
		r.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
		return ids, nil
	case Sorted:
		sort.Ints(ids)
		if !o.Ascending {
			sort.Sort(sort.Reverse(sort.IntSlice(ids)))
		}
		return ids, nil
	case ByVariance:
		return byStatistic(ids, stationVariance(ps), o), nil
	case ByNetworkDeviation:
		return byStatistic(ids, networkDeviation(ps), o), nil
	case UserOrder:
		if err := ValidateOrder(ps, o.User); err != nil {
			return nil, err
		}
		return append([]int(nil), o.User...), nil
	default:
		return nil, fmt.Errorf("homog: invalid station order %d: %w", int(o.Kind), ErrConfig)
	}
}

// ValidateOrder checks that every id in order is a station of ps and
// appears only once.
func ValidateOrder(ps *gslib.PointSet, order []int) error {
	if len(order) == 0 {
		return fmt.Errorf("homog: empty station order: %w", ErrConfig)
	}
	present := make(map[int]bool)
	for _, id := range ps.Stations() {
		present[id] = true
	}
	seen := make(map[int]bool)
	for _, id := range order {
		if !present[id] {
			return fmt.Errorf("homog: station %d in the station order is not in %q: %w", id, ps.Name, ErrConfig)
		}
		if seen[id] {
			return fmt.Errorf("homog: station %d appears more than once in the station order: %w", id, ErrConfig)
		}
		seen[id] = true
	}
	return nil
}

// stationValues returns the non-missing values of each station.
func stationValues(ps *gslib.PointSet) map[int][]float64 {
	sc, cc := ps.Col(gslib.Station), ps.Col(gslib.Clim)
	o := make(map[int][]float64)
	if sc < 0 || cc < 0 {
		return o
	}
	for _, r := range ps.Rows {
		if !ps.IsMissing(r[cc]) {
			o[int(r[sc])] = append(o[int(r[sc])], r[cc])
		}
	}
	return o
}

// stationVariance returns the sample variance of each station with at
// least two values.
func stationVariance(ps *gslib.PointSet) map[int]float64 {
	o := make(map[int]float64)
	for id, vals := range stationValues(ps) {
		if len(vals) < 2 {
			continue
		}
		var s stats.Stats
		s.UpdateArray(vals)
		o[id] = s.SampleVariance()
	}
	return o
}

// networkDeviation returns the absolute difference between the mean of
// each station and the mean of all values in the network.
func networkDeviation(ps *gslib.PointSet) map[int]float64 {
	vals := stationValues(ps)
	var all []float64
	for _, v := range vals {
		all = append(all, v...)
	}
	o := make(map[int]float64)
	if len(all) == 0 {
		return o
	}
	net := stat.Mean(all, nil)
	for id, v := range vals {
		o[id] = math.Abs(stat.Mean(v, nil) - net)
	}
	return o
}

// byStatistic sorts ids by s; ties are broken by id. Stations without
// a value go first or last according to o.MissingLast.
func byStatistic(ids []int, s map[int]float64, o Ordering) []int {
	var defined, undefined []int
	for _, id := range ids {
		if v, ok := s[id]; ok && !math.IsNaN(v) {
			defined = append(defined, id)
		} else {
			undefined = append(undefined, id)
		}
	}
	sort.Slice(defined, func(i, j int) bool {
		a, b := s[defined[i]], s[defined[j]]
		if a == b {
			return defined[i] < defined[j]
		}
		if o.Ascending {
			return a < b
		}
		return a > b
	})
	sort.Ints(undefined)
	if o.MissingLast {
		return append(defined, undefined...)
	}
	return append(undefined, defined...)
}
