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

// Package rendersettings holds the per-user, per-pixel-set rendering configuration. Settings are
// versioned: every successful mutation produces a new version, persisted through a Store which
// rejects writes based on a stale version.
package rendersettings

import (
	"fmt"

	"github.com/pixlise/pixelrender/core/errorwithstatus"
	"github.com/pixlise/pixelrender/core/pixels"
	"github.com/pixlise/pixelrender/core/quantum"
	"github.com/samber/lo"
)

type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

var (
	White   = RGB{255, 255, 255}
	Red     = RGB{255, 0, 0}
	Green   = RGB{0, 255, 0}
	Blue    = RGB{0, 0, 255}
	Cyan    = RGB{0, 255, 255}
	Magenta = RGB{255, 0, 255}
	Yellow  = RGB{255, 255, 0}
)

var indexPalette = []RGB{Red, Green, Blue, Cyan, Magenta, Yellow}

// ColorModel - how active channels are combined into an output pixel
type ColorModel string

const (
	// RGBModel - every active channel is blended in its own colour
	RGBModel ColorModel = "rgb"
	// GreyscaleModel - only the first active channel is rendered, in white
	GreyscaleModel ColorModel = "greyscale"
)

// IsValid - empty is accepted and means RGBModel
func (m ColorModel) IsValid() bool {
	return m == "" || m == RGBModel || m == GreyscaleModel
}

type ChannelBinding struct {
	Active      bool           `json:"active"`
	Color       RGB            `json:"color"`
	Family      quantum.Family `json:"family"`
	Coefficient float64        `json:"coefficient"`
	InputStart  float64        `json:"inputStart"`
	InputEnd    float64        `json:"inputEnd"`
}

func (b ChannelBinding) QuantumConfig() quantum.ChannelConfig {
	return quantum.ChannelConfig{
		Family:      b.Family,
		Coefficient: b.Coefficient,
		InputStart:  b.InputStart,
		InputEnd:    b.InputEnd,
	}
}

// Settings - owned by exactly one (pixel set, user) pair
type Settings struct {
	ID              string           `bson:"_id" json:"id"`
	PixelSetID      int64            `json:"pixelSetId"`
	UserID          int64            `json:"userId"`
	Version         int64            `json:"version"`
	Channels        []ChannelBinding `json:"channels"`
	BitDepth        int              `json:"bitDepth"`
	Codomain        quantum.Codomain `json:"codomain"`
	ColorModel      ColorModel       `json:"colorModel"`
	NoiseReduction  bool             `json:"noiseReduction"`
	DefaultZ        int              `json:"defaultZ"`
	DefaultT        int              `json:"defaultT"`
	ModifiedUnixSec int64            `json:"modifiedUnixSec"`
}

// IsGreyscale - true if only the first active channel contributes
func (s *Settings) IsGreyscale() bool {
	return s.ColorModel == GreyscaleModel
}

func MakeID(pixelSetID int64, userID int64) string {
	return fmt.Sprintf("%v_%v", pixelSetID, userID)
}

func (s *Settings) Clone() *Settings {
	result := *s
	result.Channels = append([]ChannelBinding{}, s.Channels...)
	return &result
}

// ActiveChannels - indexes of channels that contribute to a render
func (s *Settings) ActiveChannels() []int {
	return lo.Filter(lo.Range(len(s.Channels)), func(c int, _ int) bool {
		return s.Channels[c].Active
	})
}

func defaultColor(desc *pixels.Description, c int) RGB {
	if len(desc.Channels) == 1 {
		return White
	}

	nm := desc.Channels[c].EmissionWavelengthNm
	switch {
	case nm <= 0:
		return indexPalette[c%len(indexPalette)]
	case nm < 500:
		return Blue
	case nm < 565:
		return Green
	}
	return Red
}

// DefaultBindings - all channels active if there are up to 3, otherwise the first 3. Linear over the
// channel's native range
func DefaultBindings(desc *pixels.Description) []ChannelBinding {
	result := make([]ChannelBinding, len(desc.Channels))
	for c, ch := range desc.Channels {
		result[c] = ChannelBinding{
			Active:      c < 3,
			Color:       defaultColor(desc, c),
			Family:      quantum.Linear,
			Coefficient: quantum.DefaultCoefficient,
			InputStart:  ch.NativeMin,
			InputEnd:    ch.NativeMax,
		}
	}
	return result
}

// Defaults - unversioned (version 0) settings for a pixel set, not yet persisted anywhere
func Defaults(desc *pixels.Description, userID int64) *Settings {
	return &Settings{
		ID:         MakeID(desc.ID, userID),
		PixelSetID: desc.ID,
		UserID:     userID,
		Channels:   DefaultBindings(desc),
		BitDepth:   quantum.DefaultBitDepth,
		Codomain:   quantum.FullCodomain(quantum.DefaultBitDepth),
		ColorModel: RGBModel,
		DefaultZ:   desc.SizeZ / 2,
		DefaultT:   0,
	}
}

// Validate checks the settings invariants against the pixel set they're for
func (s *Settings) Validate(desc *pixels.Description) error {
	if s.PixelSetID != desc.ID {
		return errorwithstatus.MakeInvalidConfigurationError("settings are for pixel set %v, not %v", s.PixelSetID, desc.ID)
	}
	if len(s.Channels) != len(desc.Channels) {
		return errorwithstatus.MakeInvalidConfigurationError("settings have %v channels, pixel set %v has %v", len(s.Channels), desc.ID, len(desc.Channels))
	}
	if err := s.Codomain.Validate(s.BitDepth); err != nil {
		return err
	}
	if !s.ColorModel.IsValid() {
		return errorwithstatus.MakeInvalidConfigurationError("unknown colour model %q", s.ColorModel)
	}
	if s.DefaultZ < 0 || s.DefaultZ >= desc.SizeZ || s.DefaultT < 0 || s.DefaultT >= desc.SizeT {
		return errorwithstatus.MakeInvalidConfigurationError("default plane z=%v t=%v outside pixel set %v (%v z, %v t)", s.DefaultZ, s.DefaultT, desc.ID, desc.SizeZ, desc.SizeT)
	}

	for c, b := range s.Channels {
		if err := b.QuantumConfig().Validate(); err != nil {
			return fmt.Errorf("channel %v: %w", c, err)
		}
		// The stored coefficient must be in range even for families that ignore it
		if b.Coefficient < quantum.MinCoefficient || b.Coefficient > quantum.MaxCoefficient {
			return errorwithstatus.MakeInvalidConfigurationError("channel %v coefficient %v outside [%v,%v]", c, b.Coefficient, quantum.MinCoefficient, quantum.MaxCoefficient)
		}
		if nativeMax := desc.Channels[c].NativeMax; b.InputEnd > nativeMax {
			return errorwithstatus.MakeInvalidConfigurationError("channel %v input end %v above native max %v", c, b.InputEnd, nativeMax)
		}
	}

	return nil
}
