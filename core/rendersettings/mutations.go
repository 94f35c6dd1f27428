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

package rendersettings

import (
	"sort"

	"github.com/pixlise/pixelrender/core/errorwithstatus"
	"github.com/pixlise/pixelrender/core/pixels"
	"github.com/pixlise/pixelrender/core/quantum"
	"github.com/samber/lo"
)

// Mutation - a single field change applied to a copy of the settings. Invariants are checked once
// all mutations of an update have been applied
type Mutation func(s *Settings, desc *pixels.Description) error

func withChannel(c int, apply func(b *ChannelBinding)) Mutation {
	return func(s *Settings, desc *pixels.Description) error {
		if c < 0 || c >= len(s.Channels) {
			return errorwithstatus.MakeInvalidConfigurationError("channel %v outside [0,%v)", c, len(s.Channels))
		}
		apply(&s.Channels[c])
		return nil
	}
}

func SetFamily(c int, family quantum.Family) Mutation {
	return withChannel(c, func(b *ChannelBinding) { b.Family = family })
}

func SetCoefficient(c int, coefficient float64) Mutation {
	return withChannel(c, func(b *ChannelBinding) { b.Coefficient = coefficient })
}

func SetInputInterval(c int, start float64, end float64) Mutation {
	return withChannel(c, func(b *ChannelBinding) {
		b.InputStart = start
		b.InputEnd = end
	})
}

func SetActive(c int, active bool) Mutation {
	return withChannel(c, func(b *ChannelBinding) { b.Active = active })
}

func SetColor(c int, color RGB) Mutation {
	return withChannel(c, func(b *ChannelBinding) { b.Color = color })
}

// SetActiveChannels - exactly the listed channels become active, an empty list is allowed (renders black)
func SetActiveChannels(channels []int) Mutation {
	return func(s *Settings, desc *pixels.Description) error {
		wanted := lo.Uniq(channels)
		bad := lo.Filter(wanted, func(c int, _ int) bool { return c < 0 || c >= len(s.Channels) })
		if len(bad) > 0 {
			sort.Ints(bad)
			return errorwithstatus.MakeInvalidConfigurationError("channels %v outside [0,%v)", bad, len(s.Channels))
		}

		for c := range s.Channels {
			s.Channels[c].Active = lo.Contains(wanted, c)
		}
		return nil
	}
}

// SetBitDepth - also resets the codomain to the full range of the new depth
func SetBitDepth(bitDepth int) Mutation {
	return func(s *Settings, desc *pixels.Description) error {
		s.BitDepth = bitDepth
		s.Codomain = quantum.FullCodomain(bitDepth)
		return nil
	}
}

func SetCodomain(start int, end int) Mutation {
	return func(s *Settings, desc *pixels.Description) error {
		s.Codomain = quantum.Codomain{Start: start, End: end}
		return nil
	}
}

func SetColorModel(model ColorModel) Mutation {
	return func(s *Settings, desc *pixels.Description) error {
		s.ColorModel = model
		return nil
	}
}

func SetNoiseReduction(on bool) Mutation {
	return func(s *Settings, desc *pixels.Description) error {
		s.NoiseReduction = on
		return nil
	}
}

func SetDefaultPlane(z int, t int) Mutation {
	return func(s *Settings, desc *pixels.Description) error {
		s.DefaultZ = z
		s.DefaultT = t
		return nil
	}
}

// ResetToDefaults - everything except identity and version back to defaults
func ResetToDefaults() Mutation {
	return func(s *Settings, desc *pixels.Description) error {
		def := Defaults(desc, s.UserID)
		s.Channels = def.Channels
		s.BitDepth = def.BitDepth
		s.Codomain = def.Codomain
		s.ColorModel = def.ColorModel
		s.NoiseReduction = def.NoiseReduction
		s.DefaultZ = def.DefaultZ
		s.DefaultT = def.DefaultT
		return nil
	}
}

// ChannelChange - JSON form of per-channel mutations, nil fields are left unchanged
type ChannelChange struct {
	Channel     int             `json:"channel"`
	Active      *bool           `json:"active,omitempty"`
	Color       *RGB            `json:"color,omitempty"`
	Family      *quantum.Family `json:"family,omitempty"`
	Coefficient *float64        `json:"coefficient,omitempty"`
	InputStart  *float64        `json:"inputStart,omitempty"`
	InputEnd    *float64        `json:"inputEnd,omitempty"`
}

// ChangeRequest - JSON form of an update. Version is the version the caller last read, nil fields
// are left unchanged
type ChangeRequest struct {
	Version        int64             `json:"version"`
	BitDepth       *int              `json:"bitDepth,omitempty"`
	Codomain       *quantum.Codomain `json:"codomain,omitempty"`
	ColorModel     *ColorModel       `json:"colorModel,omitempty"`
	NoiseReduction *bool             `json:"noiseReduction,omitempty"`
	ActiveChannels *[]int            `json:"activeChannels,omitempty"`
	DefaultZ       *int              `json:"defaultZ,omitempty"`
	DefaultT       *int              `json:"defaultT,omitempty"`
	Channels       []ChannelChange   `json:"channels,omitempty"`
}

func (r ChangeRequest) Mutations() []Mutation {
	result := []Mutation{}

	if r.BitDepth != nil {
		result = append(result, SetBitDepth(*r.BitDepth))
	}
	// After the bit depth, which resets it
	if r.Codomain != nil {
		result = append(result, SetCodomain(r.Codomain.Start, r.Codomain.End))
	}
	if r.ColorModel != nil {
		result = append(result, SetColorModel(*r.ColorModel))
	}
	if r.NoiseReduction != nil {
		result = append(result, SetNoiseReduction(*r.NoiseReduction))
	}
	if r.ActiveChannels != nil {
		result = append(result, SetActiveChannels(*r.ActiveChannels))
	}
	if r.DefaultZ != nil || r.DefaultT != nil {
		zt := r
		result = append(result, func(s *Settings, desc *pixels.Description) error {
			z, t := s.DefaultZ, s.DefaultT
			if zt.DefaultZ != nil {
				z = *zt.DefaultZ
			}
			if zt.DefaultT != nil {
				t = *zt.DefaultT
			}
			return SetDefaultPlane(z, t)(s, desc)
		})
	}

	for _, ch := range r.Channels {
		ch := ch
		result = append(result, withChannel(ch.Channel, func(b *ChannelBinding) {
			if ch.Active != nil {
				b.Active = *ch.Active
			}
			if ch.Color != nil {
				b.Color = *ch.Color
			}
			if ch.Family != nil {
				b.Family = *ch.Family
			}
			if ch.Coefficient != nil {
				b.Coefficient = *ch.Coefficient
			}
			if ch.InputStart != nil {
				b.InputStart = *ch.InputStart
			}
			if ch.InputEnd != nil {
				b.InputEnd = *ch.InputEnd
			}
		}))
	}

	return result
}
