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

// Package errkind holds the classes of fatal errors shared by all homog packages.
// Errors are wrapped with %w so that callers can classify them with errors.Is.
package errkind

import "errors"

var (
	// BadInput marks malformed point-sets, grids or CSV files.
	BadInput = errors.New("bad input")

	// SimulatorFailure marks a simulator that exited with a non-zero status.
	SimulatorFailure = errors.New("simulator failure")

	// GeometryMismatch marks a grid that does not match the expected geometry.
	GeometryMismatch = errors.New("geometry mismatch")

	// MissingParameter marks a mandatory parameter that was not given.
	MissingParameter = errors.New("missing parameter")

	// Config marks an inconsistent or malformed configuration.
	Config = errors.New("configuration error")
)

// Fatal reports whether err should abort a whole batch rather than
// a single iteration.
func Fatal(err error) bool {
	return errors.Is(err, Config) || errors.Is(err, MissingParameter) ||
		errors.Is(err, GeometryMismatch)
}
