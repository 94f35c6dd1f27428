// Licensed to NASA JPL under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. NASA JPL licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package quantum

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/pixlise/pixelrender/core/errorwithstatus"
)

func Example_quantize() {
	lin := ChannelConfig{Family: Linear, Coefficient: 1, InputStart: 0, InputEnd: 1000}

	q, err := Quantize(500, lin, 8)
	fmt.Printf("%v|%v\n", q, err)

	// Out of range samples clamp rather than fail
	q, err = Quantize(-20, lin, 8)
	fmt.Printf("%v|%v\n", q, err)
	q, err = Quantize(5000, lin, 8)
	fmt.Printf("%v|%v\n", q, err)

	// Lower bit depth shrinks the output range
	q, err = Quantize(1000, lin, 3)
	fmt.Printf("%v|%v\n", q, err)

	// Degenerate interval, no divide by zero
	degenerate := ChannelConfig{Family: Linear, Coefficient: 1, InputStart: 500, InputEnd: 500}
	for _, s := range []float64{0, 500, 1e9} {
		q, err = Quantize(s, degenerate, 8)
		fmt.Printf("%v|%v\n", q, err)
	}

	// Output:
	// 128|<nil>
	// 0|<nil>
	// 255|<nil>
	// 7|<nil>
	// 0|<nil>
	// 0|<nil>
	// 0|<nil>
}

func Example_quantize_families() {
	for _, f := range []Family{Linear, Logarithmic, Exponential, Polynomial} {
		cfg := ChannelConfig{Family: f, Coefficient: 2, InputStart: 0, InputEnd: 100}
		q0, _ := Quantize(0, cfg, 8)
		q25, _ := Quantize(25, cfg, 8)
		q100, _ := Quantize(100, cfg, 8)
		fmt.Printf("%v: %v %v %v\n", f, q0, q25, q100)
	}

	// Output:
	// LINEAR: 0 64 255
	// LOGARITHMIC: 0 133 255
	// EXPONENTIAL: 0 0 255
	// POLYNOMIAL: 0 16 255
}

func Example_quantize_errors() {
	_, err := Quantize(1, ChannelConfig{Family: Linear, InputStart: 10, InputEnd: 5}, 8)
	fmt.Printf("%v|%v\n", errorwithstatus.KindOf(err), err)

	_, err = Quantize(1, ChannelConfig{Family: Linear, InputStart: 0, InputEnd: 5}, 9)
	fmt.Printf("%v|%v\n", errorwithstatus.KindOf(err), err)

	_, err = Quantize(1, ChannelConfig{Family: Linear, InputStart: 0, InputEnd: 5}, 0)
	fmt.Printf("%v\n", errorwithstatus.KindOf(err))

	_, err = Quantize(1, ChannelConfig{Family: Polynomial, Coefficient: 5, InputStart: 0, InputEnd: 5}, 8)
	fmt.Printf("%v|%v\n", errorwithstatus.KindOf(err), err)

	// Linear ignores the coefficient entirely
	_, err = Quantize(1, ChannelConfig{Family: Linear, Coefficient: 0, InputStart: 0, InputEnd: 5}, 8)
	fmt.Printf("%v\n", err)

	// Output:
	// InvalidConfiguration|invalid configuration: input interval [10,5] has end before start
	// InvalidConfiguration|invalid configuration: output bit depth 9 outside [1,8]
	// InvalidConfiguration
	// InvalidConfiguration|invalid configuration: coefficient 5 outside [0.1,4]
	// <nil>
}

func Example_familyJSON() {
	b, err := json.Marshal(struct{ F Family }{Exponential})
	fmt.Printf("%v|%v\n", string(b), err)

	var read struct{ F Family }
	err = json.Unmarshal([]byte(`{"F":"POLYNOMIAL"}`), &read)
	fmt.Printf("%v|%v\n", read.F, err)

	err = json.Unmarshal([]byte(`{"F":"SIGMOID"}`), &read)
	fmt.Printf("%v\n", err)

	fmt.Println(Linear.UsesCoefficient(), Logarithmic.UsesCoefficient(), Polynomial.UsesCoefficient())

	// Output:
	// {"F":"EXPONENTIAL"}|<nil>
	// POLYNOMIAL|<nil>
	// invalid configuration: unknown curve family "SIGMOID"
	// false false true
}

func TestQuantizeRangeAndMonotonic(t *testing.T) {
	families := []Family{Linear, Logarithmic, Exponential, Polynomial}
	coefficients := []float64{MinCoefficient, 0.5, 1, 2.2, MaxCoefficient}
	intervals := [][2]float64{{0, 255}, {100, 4095}, {-1000, 1000}, {0.25, 0.75}}

	for _, fam := range families {
		for _, coeff := range coefficients {
			for _, iv := range intervals {
				for bits := MinBitDepth; bits <= MaxBitDepth; bits++ {
					cfg := ChannelConfig{Family: fam, Coefficient: coeff, InputStart: iv[0], InputEnd: iv[1]}
					q, err := NewQuantizer(cfg, bits)
					if err != nil {
						t.Fatalf("unexpected error for %+v bits=%v: %v", cfg, bits, err)
					}

					maxQ := 1<<bits - 1
					if q.MaxValue() != maxQ {
						t.Errorf("MaxValue %v, expected %v", q.MaxValue(), maxQ)
					}

					prev := -1
					steps := 200
					for i := 0; i <= steps; i++ {
						// Go a bit beyond the interval on both sides
						s := iv[0] - 10 + (iv[1]-iv[0]+20)*float64(i)/float64(steps)
						v := q.Quantize(s)
						if v < 0 || v > maxQ {
							t.Fatalf("%+v bits=%v sample=%v gave %v outside [0,%v]", cfg, bits, s, v, maxQ)
						}
						if v < prev {
							t.Fatalf("%+v bits=%v not monotonic at sample %v: %v < %v", cfg, bits, s, v, prev)
						}
						prev = v
					}
				}
			}
		}
	}
}

func Example_quantize_exponentialCoefficient() {
	for _, k := range []float64{0.5, 1, 3} {
		q, err := Quantize(500, ChannelConfig{Family: Exponential, Coefficient: k, InputStart: 0, InputEnd: 1000}, 8)
		fmt.Printf("%v: %v|%v\n", k, q, err)
	}

	// Output:
	// 0.5: 14|<nil>
	// 1: 2|<nil>
	// 3: 0|<nil>
}

func Example_quantize_codomain() {
	lin := ChannelConfig{Family: Linear, Coefficient: 1, InputStart: 0, InputEnd: 1000}
	q, err := NewCodomainQuantizer(lin, 8, Codomain{Start: 50, End: 150})
	fmt.Printf("%v\n", err)
	out := []int{}
	for _, s := range []float64{-5, 0, 500, 1000, 2000} {
		out = append(out, q.Quantize(s))
	}
	fmt.Println(out)

	fmt.Println(FullCodomain(8), FullCodomain(1), FullCodomain(-1))

	_, err = NewCodomainQuantizer(lin, 8, Codomain{Start: 10, End: 5})
	fmt.Printf("%v\n", err)
	_, err = NewCodomainQuantizer(lin, 4, FullCodomain(8))
	fmt.Printf("%v\n", err)
	_, err = NewCodomainQuantizer(lin, 9, FullCodomain(8))
	fmt.Printf("%v\n", err)

	// Output:
	// <nil>
	// [50 50 100 150 150]
	// {0 255} {0 1} {0 0}
	// invalid configuration: codomain [10,5] not within [0,255] for bit depth 8
	// invalid configuration: codomain [0,255] not within [0,15] for bit depth 4
	// invalid configuration: output bit depth 9 outside [1,8]
}

func TestCodomainQuantizeStaysInside(t *testing.T) {
	cd := Codomain{Start: 3, End: 12}
	for _, fam := range []Family{Linear, Logarithmic, Exponential, Polynomial} {
		q, err := NewCodomainQuantizer(ChannelConfig{Family: fam, Coefficient: 2, InputStart: 0, InputEnd: 100}, 4, cd)
		if err != nil {
			t.Fatal(err)
		}
		if q.Quantize(0) != cd.Start || q.Quantize(100) != cd.End {
			t.Errorf("%v: ends map to %v, %v", fam, q.Quantize(0), q.Quantize(100))
		}
		prev := cd.Start
		for s := -10.0; s <= 110; s++ {
			v := q.Quantize(s)
			if v < cd.Start || v > cd.End || v < prev {
				t.Fatalf("%v: sample %v gave %v (previous %v)", fam, s, v, prev)
			}
			prev = v
		}
	}
}
