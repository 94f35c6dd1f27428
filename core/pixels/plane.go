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

package pixels

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pixlise/pixelrender/core/errorwithstatus"
)

// ErrNoPlane - returned by a PlaneSource that doesn't have the requested plane
var ErrNoPlane = errors.New("plane not found")

// Plane - one 2-D array of samples, row-major
type Plane struct {
	Width   int
	Height  int
	Samples []float64
}

func NewPlane(width int, height int) *Plane {
	return &Plane{Width: width, Height: height, Samples: make([]float64, width*height)}
}

func (p *Plane) At(x int, y int) float64 {
	return p.Samples[y*p.Width+x]
}

func (p *Plane) Set(x int, y int, v float64) {
	p.Samples[y*p.Width+x] = v
}

// PlaneSource - reads planes of a single pixel set
type PlaneSource interface {
	ReadPlane(level int, z int, t int, c int) (*Plane, error)
}

// PixelSet - read-only view the renderer works against
type PixelSet struct {
	Description
	Planes PlaneSource
}

// Plane - validates coordinates against the description, reads the plane and checks it has the
// dimensions of its level
func (ps *PixelSet) Plane(level int, z int, t int, c int) (*Plane, error) {
	lvl, err := ps.Level(level)
	if err != nil {
		return nil, err
	}
	if err := ps.CheckCoordinate(z, t); err != nil {
		return nil, err
	}
	if err := ps.CheckChannel(c); err != nil {
		return nil, err
	}

	if ps.Planes == nil {
		return nil, errorwithstatus.MakeMissingPlaneError(ps.ID, level, z, t, c)
	}

	plane, err := ps.Planes.ReadPlane(level, z, t, c)
	if err != nil {
		if errors.Is(err, ErrNoPlane) {
			return nil, errorwithstatus.MakeMissingPlaneError(ps.ID, level, z, t, c)
		}
		return nil, fmt.Errorf("failed to read plane level=%v z=%v t=%v c=%v of pixel set %v: %w", level, z, t, c, ps.ID, err)
	}

	if plane.Width != lvl.Width || plane.Height != lvl.Height || len(plane.Samples) != lvl.Width*lvl.Height {
		return nil, fmt.Errorf("plane level=%v z=%v t=%v c=%v of pixel set %v is %vx%v (%v samples), expected %vx%v", level, z, t, c, ps.ID, plane.Width, plane.Height, len(plane.Samples), lvl.Width, lvl.Height)
	}

	return plane, nil
}

type PlaneKey struct {
	Level int
	Z     int
	T     int
	C     int
}

// MemoryPlanes - planes held in memory. Safe for concurrent use so a pyramid can be generated
// into it while it's being read
type MemoryPlanes struct {
	mutex  sync.RWMutex
	planes map[PlaneKey]*Plane
}

func NewMemoryPlanes() *MemoryPlanes {
	return &MemoryPlanes{planes: map[PlaneKey]*Plane{}}
}

func (m *MemoryPlanes) ReadPlane(level int, z int, t int, c int) (*Plane, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	p, ok := m.planes[PlaneKey{level, z, t, c}]
	if !ok {
		return nil, ErrNoPlane
	}
	return p, nil
}

func (m *MemoryPlanes) WritePlane(level int, z int, t int, c int, plane *Plane) error {
	if len(plane.Samples) != plane.Width*plane.Height {
		return fmt.Errorf("plane %vx%v has %v samples", plane.Width, plane.Height, len(plane.Samples))
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.planes[PlaneKey{level, z, t, c}] = plane
	return nil
}

func (m *MemoryPlanes) Delete(level int, z int, t int, c int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	delete(m.planes, PlaneKey{level, z, t, c})
}

func (m *MemoryPlanes) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.planes)
}
