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

package batch

import (
	"context"
	"runtime"

	"github.com/ctessum/requestcache"
	"github.com/spatialmodel/homog/gslib"
	"github.com/spatialmodel/homog/internal/hash"
)

type loadRequest struct {
	Path   string
	ND     float64
	Header bool
}

// loader reads point-set files, reading each file only once.
type loader struct {
	cache *requestcache.Cache
}

func newLoader() *loader {
	return &loader{
		cache: requestcache.NewCache(func(ctx context.Context, req interface{}) (interface{}, error) {
			r := req.(loadRequest)
			return gslib.Load(r.Path, r.ND, r.Header)
		}, runtime.GOMAXPROCS(-1), requestcache.Deduplicate(), requestcache.Memory(100)),
	}
}

// load returns a copy of the point-set in path.
func (l *loader) load(ctx context.Context, path string, nd float64, header bool) (*gslib.PointSet, error) {
	req := loadRequest{Path: path, ND: nd, Header: header}
	r := l.cache.NewRequest(ctx, req, hash.Hash(req))
	ps, err := r.Result()
	if err != nil {
		return nil, err
	}
	return ps.(*gslib.PointSet).Copy(), nil
}
