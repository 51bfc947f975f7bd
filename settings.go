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
	"strings"
)

// Method is the way inhomogeneous observations are corrected.
type Method int

// These are the correction methods.
const (
	// MethodMean replaces observations with the local ensemble mean.
	MethodMean Method = iota
	// MethodMedian replaces observations with the local ensemble median.
	MethodMedian
	// MethodSkewness uses the median where the absolute skewness of the
	// local ensemble exceeds a threshold and the mean elsewhere.
	MethodSkewness
	// MethodPercentile replaces observations above the interval with its
	// upper bound and observations below with its lower bound.
	MethodPercentile
)

var methodNames = []string{"mean", "median", "skewness", "percentile"}

func (m Method) String() string {
	if m < 0 || int(m) >= len(methodNames) {
		return fmt.Sprintf("method(%d)", int(m))
	}
	return methodNames[m]
}

// ParseMethod returns the method with the given name.
func ParseMethod(s string) (Method, error) {
	for i, n := range methodNames {
		if strings.EqualFold(strings.TrimSpace(s), n) {
			return Method(i), nil
		}
	}
	return 0, fmt.Errorf("homog: invalid correction method %q; options are %v: %w", s, methodNames, ErrConfig)
}

// Settings control the homogenisation of each station.
type Settings struct {
	// Prob is the fraction of the local ensemble inside the detection
	// interval.
	Prob float64

	Method Method

	// SkewThreshold is the absolute skewness above which MethodSkewness
	// uses the median.
	SkewThreshold float64

	// PercentileProb is the interval fraction used for MethodPercentile
	// replacements. Zero means Prob.
	PercentileProb float64

	// Radius is the horizontal radius of the region the local statistics
	// are computed over. Zero means the node nearest to the station.
	Radius float64

	// SaveIntermediates saves the inputs and outputs of every iteration.
	SaveIntermediates bool

	// Purge deletes the simulated grids after each iteration.
	Purge bool

	// SaveEnsemble saves the local ensemble values of every iteration.
	SaveEnsemble bool
}

// DefaultSettings returns the settings used when none are given.
func DefaultSettings() Settings {
	return Settings{Prob: 0.95, Method: MethodMean, SkewThreshold: 1.5, Purge: true}
}

// correctionProb returns the interval fraction used for percentile
// replacements.
func (s Settings) correctionProb() float64 {
	if s.PercentileProb == 0 {
		return s.Prob
	}
	return s.PercentileProb
}

// Validate checks that the settings are usable.
func (s Settings) Validate() error {
	if !(s.Prob > 0 && s.Prob <= 1) {
		return fmt.Errorf("homog: detection probability %g is not in (0, 1]: %w", s.Prob, ErrConfig)
	}
	if s.Method < MethodMean || s.Method > MethodPercentile {
		return fmt.Errorf("homog: invalid correction method %d: %w", int(s.Method), ErrConfig)
	}
	if s.Method == MethodPercentile && !(s.PercentileProb >= 0 && s.PercentileProb <= 1) {
		return fmt.Errorf("homog: percentile probability %g is not in [0, 1]: %w", s.PercentileProb, ErrConfig)
	}
	if s.Method == MethodSkewness && !(s.SkewThreshold >= 0) {
		return fmt.Errorf("homog: skewness threshold %g should be >=0: %w", s.SkewThreshold, ErrConfig)
	}
	if !(s.Radius >= 0) {
		return fmt.Errorf("homog: local radius %g should be >=0: %w", s.Radius, ErrConfig)
	}
	return nil
}
