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
	"math"
	"sort"
)

// Quantile returns the p quantile of the sorted values x, interpolating
// linearly between the two order statistics surrounding (len(x)-1)*p.
// It returns NaN for an empty sample.
func Quantile(p float64, x []float64) float64 {
	n := len(x)
	if n == 0 {
		return math.NaN()
	}
	if p <= 0 {
		return x[0]
	} else if p >= 1 {
		return x[n-1]
	}
	h := float64(n-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= n {
		return x[n-1]
	}
	return x[i] + (h-lo)*(x[i+1]-x[i])
}

// CentralInterval returns the bounds of the central interval that holds the
// fraction prob of the sorted values x.
func CentralInterval(prob float64, x []float64) (lower, upper float64) {
	tail := (1 - prob) / 2
	return Quantile(tail, x), Quantile(1-tail, x)
}

// sorted returns a sorted copy of x.
func sorted(x []float64) []float64 {
	s := append([]float64(nil), x...)
	sort.Float64s(s)
	return s
}
