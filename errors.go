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

import "github.com/spatialmodel/homog/internal/errkind"

// Classes of error returned by this package. Use errors.Is to test
// for them.
var (
	ErrBadInput         = errkind.BadInput
	ErrSimulatorFailure = errkind.SimulatorFailure
	ErrGeometryMismatch = errkind.GeometryMismatch
	ErrMissingParameter = errkind.MissingParameter
	ErrConfig           = errkind.Config
)

// Fatal reports whether err should abort a whole run rather than a
// single iteration.
func Fatal(err error) bool { return errkind.Fatal(err) }
