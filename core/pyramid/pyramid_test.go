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

package pyramid

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pixlise/pixelrender/core/errorwithstatus"
	"github.com/pixlise/pixelrender/core/logger"
	"github.com/pixlise/pixelrender/core/pixels"
)

func makeDescription(status pixels.PyramidStatus) *pixels.Description {
	return &pixels.Description{
		ID:        12,
		SizeX:     4096,
		SizeY:     4096,
		SizeZ:     1,
		SizeT:     1,
		PixelType: pixels.Uint16,
		Channels:  []pixels.Channel{{Label: "DAPI", NativeMax: 65535}},
		Levels: []pixels.ResolutionLevel{
			{Index: 0, Width: 256, Height: 256},
			{Index: 1, Width: 1024, Height: 1024},
			{Index: 2, Width: 4096, Height: 4096},
		},
		PyramidStatus: status,
	}
}

func Example_resolveLevel() {
	desc := makeDescription(pixels.PyramidReady)

	fmt.Println(ResolveLevel(desc, 300))
	fmt.Println(ResolveLevel(desc, 96))
	fmt.Println(ResolveLevel(desc, 256))
	fmt.Println(ResolveLevel(desc, 5000))
	fmt.Println(ResolveLevelFor(desc, 100, 2000))

	// Not usable until ready
	desc.PyramidStatus = pixels.PyramidPending
	fmt.Println(ResolveLevel(desc, 96))

	// Output:
	// {1 1024 1024 0}
	// {0 256 256 0}
	// {0 256 256 0}
	// {2 4096 4096 0}
	// {2 4096 4096 0}
	// {2 4096 4096 0}
}

func Example_defaultLevels() {
	fmt.Println(DefaultLevels(1000, 600, 256))
	fmt.Println(DefaultLevels(200, 100, 256))
	fmt.Println(DefaultLevels(4000, 1, 256))

	// Output:
	// [{0 250 150 256} {1 500 300 256} {2 1000 600 256}]
	// [{0 200 100 256}]
	// [{0 4000 1 256}]
}

func Example_downsample() {
	src := pixels.NewPlane(4, 2)
	for i := range src.Samples {
		src.Samples[i] = float64(i)
	}

	fmt.Println(Downsample(src, 2, 1).Samples)
	fmt.Println(Downsample(src, 4, 2).Samples)

	// Output:
	// [2.5 4.5]
	// [0 1 2 3 4 5 6 7]
}

// Status source that reports PENDING a set number of times, then serves finished
type countingStatus struct {
	pendingFor int
	calls      int
	finished   *pixels.Description
}

func (s *countingStatus) GetDescription(ctx context.Context, pixelSetID int64) (*pixels.Description, error) {
	if s.finished == nil || s.finished.ID != pixelSetID {
		return nil, errorwithstatus.MakeNotFoundError(fmt.Sprintf("%v", pixelSetID))
	}
	return s.finished.Clone(), nil
}

func (s *countingStatus) PyramidStatus(ctx context.Context, pixelSetID int64) (pixels.PyramidStatus, error) {
	s.calls++
	if s.calls <= s.pendingFor {
		return pixels.PyramidPending, nil
	}
	return pixels.PyramidReady, nil
}

func Example_waitForReady() {
	status := &countingStatus{pendingFor: 2}
	r := NewResolver(status, 2048, PollOptions{MaxAttempts: 3, Interval: time.Millisecond}, &logger.NullLogger{})

	ok, err := r.WaitForReady(context.Background(), 12, PollOptions{MaxAttempts: 5, Interval: time.Millisecond})
	fmt.Printf("%v|%v|%v\n", ok, err, status.calls)

	status = &countingStatus{pendingFor: 100}
	r = NewResolver(status, 2048, PollOptions{MaxAttempts: 3, Interval: time.Millisecond}, &logger.NullLogger{})
	ok, err = r.WaitForReady(context.Background(), 12, PollOptions{MaxAttempts: 4, Interval: time.Millisecond})
	fmt.Printf("%v|%v|%v\n", ok, err, status.calls)

	// Output:
	// true|<nil>|3
	// false|<nil>|4
}

func TestAwaitDescriptionTimesOut(t *testing.T) {
	status := &countingStatus{pendingFor: 1000}
	r := NewResolver(status, 2048, PollOptions{MaxAttempts: 3, Interval: time.Millisecond}, &logger.NullLogger{})

	_, err := r.AwaitDescription(context.Background(), makeDescription(pixels.PyramidPending))
	if !errorwithstatus.IsKind(err, errorwithstatus.GenerationTimeout) {
		t.Fatalf("expected generation timeout, got: %v", err)
	}
	if status.calls != 3 {
		t.Errorf("expected 3 polls, got %v", status.calls)
	}
}

func TestAwaitDescriptionBecomesReady(t *testing.T) {
	// The generator wrote stats and an extra level along with READY
	finished := makeDescription(pixels.PyramidReady)
	finished.Levels = append([]pixels.ResolutionLevel{{Index: 0, Width: 64, Height: 64}}, finished.Levels...)
	for i := range finished.Levels {
		finished.Levels[i].Index = i
	}
	finished.Channels[0].Stats = &pixels.ChannelStats{Min: 3, Max: 900}

	status := &countingStatus{pendingFor: 1, finished: finished}
	r := NewResolver(status, 2048, PollOptions{MaxAttempts: 3, Interval: time.Millisecond}, &logger.NullLogger{})

	desc := makeDescription(pixels.PyramidPending)
	got, err := r.AwaitDescription(context.Background(), desc)
	if err != nil {
		t.Fatal(err)
	}
	if got.PyramidStatus != pixels.PyramidReady {
		t.Errorf("expected READY, got %v", got.PyramidStatus)
	}
	if len(got.Levels) != 4 || got.Channels[0].Stats == nil || got.Channels[0].Stats.Max != 900 {
		t.Errorf("expected the finished description, got levels %v channels %v", got.Levels, got.Channels)
	}
	if l := ResolveLevel(got, 50); l.Width != 64 {
		t.Errorf("expected the new smallest level, got %v", l)
	}
	if desc.PyramidStatus != pixels.PyramidPending {
		t.Errorf("input description was modified")
	}

	// Ready ones don't poll at all
	status.calls = 0
	if _, err := r.AwaitDescription(context.Background(), makeDescription(pixels.PyramidReady)); err != nil || status.calls != 0 {
		t.Errorf("unexpected poll of ready pyramid: %v, %v calls", err, status.calls)
	}
}

func TestWaitForReadyCancelled(t *testing.T) {
	status := &countingStatus{pendingFor: 1000}
	r := NewResolver(status, 2048, PollOptions{}, &logger.NullLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok, err := r.WaitForReady(ctx, 12, PollOptions{MaxAttempts: 1000, Interval: time.Hour})
	if ok || !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancellation, got %v, %v", ok, err)
	}
}

func TestNeedsPyramid(t *testing.T) {
	r := NewResolver(&countingStatus{}, 2048, PollOptions{}, &logger.NullLogger{})
	desc := makeDescription(pixels.PyramidNone)
	if !r.NeedsPyramid(desc) {
		t.Error("4096 square should need a pyramid")
	}
	desc.SizeX, desc.SizeY = 2048, 100
	if r.NeedsPyramid(desc) {
		t.Error("2048x100 should not need a pyramid")
	}
}

func TestBuild(t *testing.T) {
	desc := pixels.Description{
		ID:        5,
		SizeX:     8,
		SizeY:     4,
		SizeZ:     2,
		SizeT:     1,
		PixelType: pixels.Uint8,
		Channels:  []pixels.Channel{{Label: "a", NativeMax: 255}, {Label: "b", NativeMax: 255}},
		Levels:    DefaultLevels(8, 4, 2),
	}

	planes := pixels.NewMemoryPlanes()
	native := desc.NativeLevel().Index
	for z := 0; z < 2; z++ {
		for c := 0; c < 2; c++ {
			p := pixels.NewPlane(8, 4)
			for i := range p.Samples {
				p.Samples[i] = float64(i + z + c)
			}
			if err := planes.WritePlane(native, z, 0, c, p); err != nil {
				t.Fatal(err)
			}
		}
	}

	descs := pixels.NewMemoryDescriptionStore()
	if err := descs.PutDescription(context.Background(), &desc); err != nil {
		t.Fatal(err)
	}

	ps := &pixels.PixelSet{Description: desc, Planes: planes}
	if err := Build(context.Background(), ps, planes, descs, 2, &logger.NullLogger{}); err != nil {
		t.Fatal(err)
	}

	// 8x4 -> 4x2 -> 2x1, 3 levels, 2 generated per z/c
	if len(desc.Levels) != 3 {
		t.Fatalf("unexpected levels: %v", desc.Levels)
	}
	if planes.Count() != 3*2*2 {
		t.Errorf("expected 12 planes, got %v", planes.Count())
	}

	lowest, err := ps.Plane(0, 0, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	// Left half of rows 0-3 of 0..31: mean of x 0-3 over all rows = 1.5 + 8*1.5
	if lowest.At(0, 0) != 13.5 {
		t.Errorf("unexpected lowest level value: %v", lowest.At(0, 0))
	}

	status, err := descs.PyramidStatus(context.Background(), 5)
	if err != nil || status != pixels.PyramidReady {
		t.Errorf("expected READY, got %v, %v", status, err)
	}

	got, _ := descs.GetDescription(context.Background(), 5)
	if !got.StatsReady() || got.Channels[1].Stats.Min != 1 || got.Channels[1].Stats.Max != 33 {
		t.Errorf("unexpected stats: %+v", got.Channels[1].Stats)
	}
}
