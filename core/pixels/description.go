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

// Package pixels describes raw pixel sets: 5-D arrays of samples (X, Y, Z, T, channel) which are
// immutable once ingested. The engine only ever reads them, through a Description (metadata) and
// a PlaneSource (2-D planes of samples, per resolution level).
package pixels

import (
	"fmt"

	"github.com/pixlise/pixelrender/core/errorwithstatus"
)

type PixelType string

const (
	Int8    PixelType = "int8"
	Uint8   PixelType = "uint8"
	Int16   PixelType = "int16"
	Uint16  PixelType = "uint16"
	Int32   PixelType = "int32"
	Uint32  PixelType = "uint32"
	Float32 PixelType = "float32"
	Float64 PixelType = "float64"
)

func (p PixelType) BytesPerSample() int {
	switch p {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Float64:
		return 8
	}
	return 0
}

// PyramidStatus - whether the lower resolution levels of a pixel set are available
type PyramidStatus int

const (
	PyramidNone PyramidStatus = iota
	PyramidPending
	PyramidReady
)

var pyramidStatusNames = []string{"NONE", "PENDING", "READY"}

func (s PyramidStatus) String() string {
	if s >= PyramidNone && s <= PyramidReady {
		return pyramidStatusNames[s]
	}
	return fmt.Sprintf("PyramidStatus(%v)", int(s))
}

func (s PyramidStatus) MarshalText() ([]byte, error) {
	if s < PyramidNone || s > PyramidReady {
		return nil, fmt.Errorf("cannot marshal %v", s)
	}
	return []byte(s.String()), nil
}

func (s *PyramidStatus) UnmarshalText(text []byte) error {
	for i, n := range pyramidStatusNames {
		if n == string(text) {
			*s = PyramidStatus(i)
			return nil
		}
	}
	return fmt.Errorf("unknown pyramid status: %v", string(text))
}

// ChannelStats - computed once per channel, stored alongside the pixel set
type ChannelStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
}

type Channel struct {
	Label                string        `json:"label,omitempty"`
	EmissionWavelengthNm float64       `json:"emissionWavelengthNm,omitempty"`
	NativeMin            float64       `json:"nativeMin"`
	NativeMax            float64       `json:"nativeMax"`
	Stats                *ChannelStats `json:"stats,omitempty"`
}

// Name - label if there is one, otherwise the wavelength, otherwise the index
func (c Channel) Name(index int) string {
	if len(c.Label) > 0 {
		return c.Label
	}
	if c.EmissionWavelengthNm > 0 {
		return fmt.Sprintf("%vnm", c.EmissionWavelengthNm)
	}
	return fmt.Sprintf("channel %v", index)
}

// ResolutionLevel - one tier of the pyramid. Index 0 is the lowest resolution
type ResolutionLevel struct {
	Index    int `json:"index"`
	Width    int `json:"width"`
	Height   int `json:"height"`
	TileSize int `json:"tileSize,omitempty"`
}

// Fits - true if this level is at least w x h
func (l ResolutionLevel) Fits(w int, h int) bool {
	return l.Width >= w && l.Height >= h
}

type Description struct {
	ID            int64             `bson:"_id" json:"id"`
	Name          string            `json:"name,omitempty"`
	SizeX         int               `json:"sizeX"`
	SizeY         int               `json:"sizeY"`
	SizeZ         int               `json:"sizeZ"`
	SizeT         int               `json:"sizeT"`
	PixelType     PixelType         `json:"pixelType"`
	BigEndian     bool              `json:"bigEndian"`
	Channels      []Channel         `json:"channels"`
	Levels        []ResolutionLevel `json:"levels,omitempty"`
	PyramidStatus PyramidStatus     `json:"pyramidStatus"`
}

func (d *Description) SizeC() int {
	return len(d.Channels)
}

// AllLevels - pyramid levels, lowest resolution first. Without a pyramid the only level is the
// native one at index 0
func (d *Description) AllLevels() []ResolutionLevel {
	if len(d.Levels) > 0 {
		return d.Levels
	}
	return []ResolutionLevel{{Index: 0, Width: d.SizeX, Height: d.SizeY}}
}

func (d *Description) NativeLevel() ResolutionLevel {
	levels := d.AllLevels()
	return levels[len(levels)-1]
}

func (d *Description) Level(index int) (ResolutionLevel, error) {
	levels := d.AllLevels()
	if index < 0 || index >= len(levels) {
		return ResolutionLevel{}, errorwithstatus.MakeInvalidCoordinateError("resolution level %v outside [0,%v]", index, len(levels)-1)
	}
	return levels[index], nil
}

func (d *Description) CheckCoordinate(z int, t int) error {
	if z < 0 || z >= d.SizeZ {
		return errorwithstatus.MakeInvalidCoordinateError("z=%v outside [0,%v) for pixel set %v", z, d.SizeZ, d.ID)
	}
	if t < 0 || t >= d.SizeT {
		return errorwithstatus.MakeInvalidCoordinateError("t=%v outside [0,%v) for pixel set %v", t, d.SizeT, d.ID)
	}
	return nil
}

func (d *Description) CheckChannel(c int) error {
	if c < 0 || c >= len(d.Channels) {
		return errorwithstatus.MakeInvalidCoordinateError("channel %v outside [0,%v) for pixel set %v", c, len(d.Channels), d.ID)
	}
	return nil
}

// StatsReady - true once every channel has its statistics computed
func (d *Description) StatsReady() bool {
	if len(d.Channels) <= 0 {
		return false
	}
	for _, ch := range d.Channels {
		if ch.Stats == nil {
			return false
		}
	}
	return true
}

// EffectiveStatus - ingestion writes channel stats as its last step, so a PENDING pyramid whose
// stats are all present is treated as READY
func (d *Description) EffectiveStatus() PyramidStatus {
	if d.PyramidStatus == PyramidPending && d.StatsReady() {
		return PyramidReady
	}
	return d.PyramidStatus
}

func (d *Description) Validate() error {
	if d.SizeX <= 0 || d.SizeY <= 0 || d.SizeZ <= 0 || d.SizeT <= 0 {
		return fmt.Errorf("pixel set %v has invalid dimensions %vx%vx%vx%v", d.ID, d.SizeX, d.SizeY, d.SizeZ, d.SizeT)
	}
	if len(d.Channels) <= 0 {
		return fmt.Errorf("pixel set %v has no channels", d.ID)
	}
	if d.PixelType.BytesPerSample() <= 0 {
		return fmt.Errorf("pixel set %v has unknown pixel type: %v", d.ID, d.PixelType)
	}
	for c, ch := range d.Channels {
		if ch.NativeMax < ch.NativeMin {
			return fmt.Errorf("pixel set %v channel %v native range [%v,%v] is inverted", d.ID, c, ch.NativeMin, ch.NativeMax)
		}
	}

	if len(d.Levels) > 0 {
		for i, l := range d.Levels {
			if l.Index != i {
				return fmt.Errorf("pixel set %v level %v has index %v", d.ID, i, l.Index)
			}
			if i > 0 {
				prev := d.Levels[i-1]
				if l.Width <= prev.Width || l.Height <= prev.Height {
					return fmt.Errorf("pixel set %v level %v (%vx%v) is not larger than level %v (%vx%v)", d.ID, i, l.Width, l.Height, i-1, prev.Width, prev.Height)
				}
			}
		}

		native := d.Levels[len(d.Levels)-1]
		if native.Width != d.SizeX || native.Height != d.SizeY {
			return fmt.Errorf("pixel set %v highest level is %vx%v, expected native %vx%v", d.ID, native.Width, native.Height, d.SizeX, d.SizeY)
		}
	}

	return nil
}

func (d *Description) Clone() *Description {
	result := *d
	result.Channels = make([]Channel, len(d.Channels))
	for c, ch := range d.Channels {
		result.Channels[c] = ch
		if ch.Stats != nil {
			stats := *ch.Stats
			result.Channels[c].Stats = &stats
		}
	}
	result.Levels = append([]ResolutionLevel{}, d.Levels...)
	if len(d.Levels) == 0 {
		result.Levels = nil
	}
	return &result
}
