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

// Package simtest writes synthetic simulation output for tests.
package simtest

import (
	"fmt"
	"path/filepath"

	"github.com/spatialmodel/homog/gslib"
)

// WriteEnsemble writes n grid files with geometry spec to dir, named the
// way a simulator names its realisations, and returns the path of the
// first. value gives the value of cell c in realisation k (0-indexed).
func WriteEnsemble(dir, base string, spec gslib.GridSpec, n int, value func(c, k int) float64) (string, error) {
	first := filepath.Join(dir, base+".out")
	for k, p := range paths(first, n) {
		w, err := gslib.CreateGrid(p, fmt.Sprintf("realisation %d", k+1), "clim", spec)
		if err != nil {
			return "", err
		}
		for c := 0; c < spec.Cells(); c++ {
			if err := w.Write(value(c, k)); err != nil {
				w.Close()
				return "", err
			}
		}
		if err := w.Close(); err != nil {
			return "", err
		}
	}
	return first, nil
}

// Constant returns a value function where every cell of realisation k
// holds vals[k].
func Constant(vals ...float64) func(c, k int) float64 {
	return func(_, k int) float64 { return vals[k] }
}

func paths(first string, n int) []string {
	ext := filepath.Ext(first)
	base := first[:len(first)-len(ext)]
	o := []string{first}
	for k := 2; k <= n; k++ {
		o = append(o, fmt.Sprintf("%s%d%s", base, k, ext))
	}
	return o
}
