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

package metrics

import (
	"errors"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spatialmodel/homog"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	c := NewCollector("homog")
	r := c.For("1950")
	r.RecordIteration(homog.Iteration{Station: 1, Detected: 2, Filled: 1, Duration: time.Second})
	r.RecordIteration(homog.Iteration{Station: 2, Err: errors.New("failed")})
	r.RecordIteration(homog.Iteration{Station: 3, Skipped: true})

	assert.Equal(t, 1., testutil.ToFloat64(c.Iterations.WithLabelValues("1950", "homogenised")))
	assert.Equal(t, 1., testutil.ToFloat64(c.Iterations.WithLabelValues("1950", "failed")))
	assert.Equal(t, 1., testutil.ToFloat64(c.Iterations.WithLabelValues("1950", "skipped")))
	assert.Equal(t, 2., testutil.ToFloat64(c.Detected.WithLabelValues("1950")))
	assert.Equal(t, 1., testutil.ToFloat64(c.Filled.WithLabelValues("1950")))

	path := filepath.Join(t.TempDir(), "homog.prom")
	if err := c.WriteTextfile(path); err != nil {
		t.Fatal(err)
	}
	b, err := ioutil.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `homog_detected_total{batch="1950"} 2`) {
		t.Errorf("textfile:\n%s", b)
	}
}
