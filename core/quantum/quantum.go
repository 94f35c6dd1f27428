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

// Package quantum maps raw channel samples to display intensities. A channel's input interval
// is normalised to [0,1], bent by a curve family and scaled into the codomain, a sub-interval of
// the values the output bit depth allows.
// Everything here is pure: no I/O, no shared state.
package quantum

import (
	"fmt"
	"math"

	"github.com/pixlise/pixelrender/core/errorwithstatus"
)

// Family - the curve applied to a normalised sample
type Family int

const (
	Linear Family = iota
	Logarithmic
	Exponential
	Polynomial
)

const (
	MinCoefficient     = 0.1
	MaxCoefficient     = 4.0
	DefaultCoefficient = 1.0

	MinBitDepth     = 1
	MaxBitDepth     = 8
	DefaultBitDepth = 8

	// k in log(1+k.x)/log(1+k) and (exp(k.x^c)-1)/(exp(k)-1)
	CurveConstant = 10.0
)

var familyNames = []string{"LINEAR", "LOGARITHMIC", "EXPONENTIAL", "POLYNOMIAL"}

func (f Family) String() string {
	if f.IsValid() {
		return familyNames[f]
	}
	return fmt.Sprintf("Family(%v)", int(f))
}

func (f Family) IsValid() bool {
	return f >= Linear && f <= Polynomial
}

// UsesCoefficient - LINEAR and LOGARITHMIC ignore the coefficient, so UIs should disable editing it
func (f Family) UsesCoefficient() bool {
	return f == Exponential || f == Polynomial
}

func ParseFamily(name string) (Family, error) {
	for i, n := range familyNames {
		if n == name {
			return Family(i), nil
		}
	}
	return Linear, errorwithstatus.MakeInvalidConfigurationError("unknown curve family %q", name)
}

func (f Family) MarshalText() ([]byte, error) {
	if !f.IsValid() {
		return nil, fmt.Errorf("cannot marshal %v", f)
	}
	return []byte(f.String()), nil
}

func (f *Family) UnmarshalText(text []byte) error {
	parsed, err := ParseFamily(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ChannelConfig - the per-channel part of rendering settings that quantization needs
type ChannelConfig struct {
	Family      Family
	Coefficient float64
	InputStart  float64
	InputEnd    float64
}

// Codomain - output interval. Quantized values land in [Start, End], which must lie within
// [0, 2^bitDepth-1]
type Codomain struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// FullCodomain - every value the bit depth allows
func FullCodomain(bitDepth int) Codomain {
	if bitDepth < 0 || bitDepth > MaxBitDepth {
		return Codomain{}
	}
	return Codomain{Start: 0, End: int(1)<<bitDepth - 1}
}

func (c Codomain) Validate(bitDepth int) error {
	if err := ValidateBitDepth(bitDepth); err != nil {
		return err
	}
	maxValue := int(1)<<bitDepth - 1
	if c.Start < 0 || c.End > maxValue || c.End < c.Start {
		return errorwithstatus.MakeInvalidConfigurationError("codomain [%v,%v] not within [0,%v] for bit depth %v", c.Start, c.End, maxValue, bitDepth)
	}
	return nil
}

func ValidateBitDepth(bitDepth int) error {
	if bitDepth < MinBitDepth || bitDepth > MaxBitDepth {
		return errorwithstatus.MakeInvalidConfigurationError("output bit depth %v outside [%v,%v]", bitDepth, MinBitDepth, MaxBitDepth)
	}
	return nil
}

// Validate checks the interval and family. Coefficient limits are enforced only where the
// family reads the coefficient
func (c ChannelConfig) Validate() error {
	if !c.Family.IsValid() {
		return errorwithstatus.MakeInvalidConfigurationError("unknown curve family %v", int(c.Family))
	}
	if math.IsNaN(c.InputStart) || math.IsNaN(c.InputEnd) {
		return errorwithstatus.MakeInvalidConfigurationError("input interval contains NaN")
	}
	if c.InputEnd < c.InputStart {
		return errorwithstatus.MakeInvalidConfigurationError("input interval [%v,%v] has end before start", c.InputStart, c.InputEnd)
	}
	if c.Family.UsesCoefficient() && (c.Coefficient < MinCoefficient || c.Coefficient > MaxCoefficient) {
		return errorwithstatus.MakeInvalidConfigurationError("coefficient %v outside [%v,%v]", c.Coefficient, MinCoefficient, MaxCoefficient)
	}
	return nil
}

// Quantizer - a validated ChannelConfig + bit depth, ready to be applied to every sample of a plane
type Quantizer struct {
	cfg      ChannelConfig
	maxValue float64
	span     float64
	cdStart  float64
	cdEnd    float64
}

// NewQuantizer - output over the full range of the bit depth
func NewQuantizer(cfg ChannelConfig, bitDepth int) (*Quantizer, error) {
	return NewCodomainQuantizer(cfg, bitDepth, FullCodomain(bitDepth))
}

func NewCodomainQuantizer(cfg ChannelConfig, bitDepth int, cd Codomain) (*Quantizer, error) {
	if err := cd.Validate(bitDepth); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Quantizer{
		cfg:      cfg,
		maxValue: float64(int(1)<<bitDepth - 1),
		span:     cfg.InputEnd - cfg.InputStart,
		cdStart:  float64(cd.Start),
		cdEnd:    float64(cd.End),
	}, nil
}

// MaxValue - largest value Quantize can return, 2^bitDepth-1
func (q *Quantizer) MaxValue() int {
	return int(q.maxValue)
}

// Normalise - clamps sample into the input interval and maps it to [0,1]. A zero-width interval
// maps everything to 0
func (q *Quantizer) Normalise(sample float64) float64 {
	if q.span <= 0 || math.IsNaN(sample) {
		return 0
	}

	if sample < q.cfg.InputStart {
		sample = q.cfg.InputStart
	} else if sample > q.cfg.InputEnd {
		sample = q.cfg.InputEnd
	}

	return (sample - q.cfg.InputStart) / q.span
}

func (q *Quantizer) curve(x float64) float64 {
	switch q.cfg.Family {
	case Logarithmic:
		return math.Log1p(CurveConstant*x) / math.Log1p(CurveConstant)
	case Exponential:
		return math.Expm1(CurveConstant*math.Pow(x, q.cfg.Coefficient)) / math.Expm1(CurveConstant)
	case Polynomial:
		return math.Pow(x, q.cfg.Coefficient)
	}
	return x
}

// Quantize - returns a value in the codomain, so within [0, 2^bitDepth-1]. Never fails: out of
// range samples are clamped
func (q *Quantizer) Quantize(sample float64) int {
	v := q.cdStart + math.Round(q.curve(q.Normalise(sample))*(q.cdEnd-q.cdStart))

	if math.IsNaN(v) || v < q.cdStart {
		return int(q.cdStart)
	}
	if v > q.cdEnd {
		return int(q.cdEnd)
	}
	return int(v)
}

// Quantize - one-off convenience, validates cfg and bit depth on every call
func Quantize(sample float64, cfg ChannelConfig, bitDepth int) (int, error) {
	q, err := NewQuantizer(cfg, bitDepth)
	if err != nil {
		return 0, err
	}
	return q.Quantize(sample), nil
}
