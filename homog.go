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

// Package homog detects and corrects inhomogeneities in networks of
// climate station time series. Each candidate station is compared with
// an ensemble of geostatistical simulations conditioned on the other
// stations of the network; observations outside the central interval
// of the local ensemble distribution are replaced.
package homog

// Version gives the version of this software.
const Version = "1.0.0"
