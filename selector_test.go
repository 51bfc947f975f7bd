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
	"errors"
	"reflect"
	"sort"
	"testing"
)

func TestOrderSorted(t *testing.T) {
	ps := network(nil)
	for _, c := range []struct {
		asc  bool
		want []int
	}{{true, []int{1, 2, 3}}, {false, []int{3, 2, 1}}} {
		have, err := Order(ps, Ordering{Kind: Sorted, Ascending: c.asc})
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(have, c.want) {
			t.Errorf("ascending=%v: have %v, want %v", c.asc, have, c.want)
		}
	}
}

func TestOrderRandom(t *testing.T) {
	ps := network(nil)
	seed := int64(42)
	a, err := Order(ps, Ordering{Kind: Random, Seed: &seed})
	if err != nil {
		t.Fatal(err)
	}
	b, _ := Order(ps, Ordering{Kind: Random, Seed: &seed})
	if !reflect.DeepEqual(a, b) {
		t.Errorf("same seed gave %v and %v", a, b)
	}
	sort.Ints(a)
	if !reflect.DeepEqual(a, []int{1, 2, 3}) {
		t.Errorf("not a permutation: %v", a)
	}
}

func TestOrderVariance(t *testing.T) {
	ps := network(map[int][]float64{
		1: {1, 2, 3},
		2: {nd, nd, nd},
		3: {0, 10, 20},
	})
	for _, c := range []struct {
		o    Ordering
		want []int
	}{
		{Ordering{Kind: ByVariance, Ascending: true, MissingLast: true}, []int{1, 3, 2}},
		{Ordering{Kind: ByVariance, Ascending: false, MissingLast: true}, []int{3, 1, 2}},
		{Ordering{Kind: ByVariance, Ascending: true, MissingLast: false}, []int{2, 1, 3}},
	} {
		have, err := Order(ps, c.o)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(have, c.want) {
			t.Errorf("%+v: have %v, want %v", c.o, have, c.want)
		}
	}
}

func TestOrderNetworkDeviation(t *testing.T) {
	// The network mean is 10.
	ps := network(map[int][]float64{
		1: {12, 12, 12},
		2: {3, 3, 3},
		3: {15, 15, 15},
	})
	have, err := Order(ps, Ordering{Kind: ByNetworkDeviation, Ascending: true})
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{1, 3, 2}; !reflect.DeepEqual(have, want) {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestOrderUser(t *testing.T) {
	ps := network(nil)
	have, err := Order(ps, Ordering{Kind: UserOrder, User: []int{2, 3, 1}})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(have, []int{2, 3, 1}) {
		t.Errorf("have %v", have)
	}
	if _, err := Order(ps, Ordering{Kind: UserOrder, User: []int{2, 4}}); !errors.Is(err, ErrConfig) {
		t.Errorf("unknown station: %v", err)
	}
}

func TestParseOrderKind(t *testing.T) {
	for s, want := range map[string]OrderKind{
		"random": Random, "Sorted": Sorted, "variance": ByVariance,
		"network-deviation": ByNetworkDeviation, "user": UserOrder,
	} {
		have, err := ParseOrderKind(s)
		if err != nil || have != want {
			t.Errorf("%s: have %v, %v", s, have, err)
		}
	}
	if _, err := ParseOrderKind("alphabetical"); !errors.Is(err, ErrConfig) {
		t.Errorf("have %v", err)
	}
}
