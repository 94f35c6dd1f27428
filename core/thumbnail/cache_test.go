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

package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pixlise/pixelrender/core/bitmap"
	"github.com/pixlise/pixelrender/core/errorwithstatus"
	"github.com/pixlise/pixelrender/core/fileaccess"
	"github.com/pixlise/pixelrender/core/logger"
	"github.com/pixlise/pixelrender/core/pixels"
	"github.com/pixlise/pixelrender/core/pyramid"
	"github.com/pixlise/pixelrender/core/quantum"
	"github.com/pixlise/pixelrender/core/renderer"
	"github.com/pixlise/pixelrender/core/rendersettings"
	"github.com/pixlise/pixelrender/core/timestamper"
)

type countingRenderer struct {
	renderer *renderer.Renderer
	calls    int32
	delay    time.Duration
}

func (r *countingRenderer) Render(ps *pixels.PixelSet, settings *rendersettings.Settings, z int, t int, level int) (*bitmap.Bitmap, error) {
	atomic.AddInt32(&r.calls, 1)
	time.Sleep(r.delay)
	return r.renderer.Render(ps, settings, z, t, level)
}

func (r *countingRenderer) count() int {
	return int(atomic.LoadInt32(&r.calls))
}

type failingStore struct {
	puts int32
}

func (s *failingStore) Get(ctx context.Context, key Key) (*bitmap.Bitmap, bool, error) {
	return nil, false, nil
}

func (s *failingStore) Put(ctx context.Context, key Key, bmp *bitmap.Bitmap) error {
	atomic.AddInt32(&s.puts, 1)
	return errors.New("disk full")
}

type testEnv struct {
	descs    *pixels.MemoryDescriptionStore
	planes   *pixels.MemoryPlanes
	settings *rendersettings.Service
	resolver *pyramid.Resolver
	renderer *countingRenderer
}

func makeEnv(t *testing.T, status pixels.PyramidStatus) *testEnv {
	desc := &pixels.Description{
		ID:            7,
		SizeX:         8,
		SizeY:         4,
		SizeZ:         1,
		SizeT:         1,
		PixelType:     pixels.Uint16,
		Channels:      []pixels.Channel{{Label: "DAPI", NativeMax: 1000}},
		PyramidStatus: status,
	}

	planes := pixels.NewMemoryPlanes()
	p := pixels.NewPlane(8, 4)
	for i := range p.Samples {
		p.Samples[i] = float64(i * 30)
	}
	if err := planes.WritePlane(0, 0, 0, 0, p); err != nil {
		t.Fatal(err)
	}

	descs := pixels.NewMemoryDescriptionStore()
	if err := descs.PutDescription(context.Background(), desc); err != nil {
		t.Fatal(err)
	}

	log := &logger.NullLogger{}
	return &testEnv{
		descs:    descs,
		planes:   planes,
		settings: rendersettings.NewService(rendersettings.NewMemoryStore(), descs, &timestamper.MockTimeNowStamper{QueuedTimeStamps: []int64{100}}, log),
		resolver: pyramid.NewResolver(descs, 2048, pyramid.PollOptions{MaxAttempts: 2, Interval: time.Millisecond}, log),
		renderer: &countingRenderer{renderer: renderer.NewRenderer(log, 2)},
	}
}

func (e *testEnv) cache(store Store, opts Options) *Cache {
	planes := func(desc *pixels.Description) pixels.PlaneSource { return e.planes }
	return NewCache(e.settings, e.descs, planes, e.resolver, e.renderer, store, opts, &logger.NullLogger{})
}

func TestThumbnailIdempotent(t *testing.T) {
	env := makeEnv(t, pixels.PyramidNone)
	c := env.cache(nil, Options{})

	first, err := c.GetThumbnail(context.Background(), 7, 1, 4, 2)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.GetThumbnail(context.Background(), 7, 1, 4, 2)
	if err != nil {
		t.Fatal(err)
	}

	if first.Width != 4 || first.Height != 2 {
		t.Errorf("unexpected size %vx%v", first.Width, first.Height)
	}
	if !first.Equal(second) {
		t.Error("second thumbnail differs")
	}
	if env.renderer.count() != 1 {
		t.Errorf("expected 1 render, got %v", env.renderer.count())
	}

	// Callers get their own copy
	first.Pix[0] = 99
	third, _ := c.GetThumbnail(context.Background(), 7, 1, 4, 2)
	if !third.Equal(second) {
		t.Error("cached thumbnail was modified through a returned copy")
	}

	// Different size, different key
	if _, err := c.GetThumbnail(context.Background(), 7, 1, 2, 1); err != nil {
		t.Fatal(err)
	}
	if env.renderer.count() != 2 {
		t.Errorf("expected 2 renders, got %v", env.renderer.count())
	}
}

func TestThumbnailInvalidatedBySettingsUpdate(t *testing.T) {
	env := makeEnv(t, pixels.PyramidNone)
	c := env.cache(nil, Options{})
	ctx := context.Background()

	before, err := c.GetThumbnail(ctx, 7, 1, 4, 2)
	if err != nil {
		t.Fatal(err)
	}

	current, ok, err := env.settings.Load(ctx, 7, 1)
	if err != nil || !ok || current.Version != 1 {
		t.Fatalf("unexpected settings after first thumbnail: %v %v %v", current, ok, err)
	}

	updated, err := env.settings.Update(ctx, current, rendersettings.SetFamily(0, quantum.Logarithmic))
	if err != nil {
		t.Fatal(err)
	}
	if updated.Version != 2 {
		t.Fatalf("expected version 2, got %v", updated.Version)
	}

	after, err := c.GetThumbnail(ctx, 7, 1, 4, 2)
	if err != nil {
		t.Fatal(err)
	}
	if env.renderer.count() != 2 {
		t.Errorf("expected a fresh render after update, got %v renders", env.renderer.count())
	}
	if after.Equal(before) {
		t.Error("expected logarithmic thumbnail to differ from linear one")
	}

	// Another user has their own settings & versions
	if _, err := c.GetThumbnail(ctx, 7, 2, 4, 2); err != nil {
		t.Fatal(err)
	}
	if env.renderer.count() != 3 {
		t.Errorf("expected other user's thumbnail to render, got %v renders", env.renderer.count())
	}
}

func TestConcurrentCallersRenderOnce(t *testing.T) {
	env := makeEnv(t, pixels.PyramidNone)
	env.renderer.delay = 20 * time.Millisecond
	c := env.cache(nil, Options{})

	// Settings exist up front so every caller computes the same key
	if _, err := env.settings.Create(context.Background(), 7, 1); err != nil {
		t.Fatal(err)
	}

	const callers = 50
	results := make([]*bitmap.Bitmap, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetThumbnail(context.Background(), 7, 1, 4, 2)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %v failed: %v", i, errs[i])
		}
		if !results[i].Equal(results[0]) {
			t.Errorf("caller %v got a different bitmap", i)
		}
	}

	if env.renderer.count() != 1 {
		t.Errorf("expected 1 render, got %v", env.renderer.count())
	}
}

func TestWaitingCallerCanCancel(t *testing.T) {
	env := makeEnv(t, pixels.PyramidNone)
	env.renderer.delay = 50 * time.Millisecond
	c := env.cache(nil, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	_, err := c.GetThumbnail(ctx, 7, 1, 4, 2)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	// The render carried on and was cached
	bmp, err := c.GetThumbnail(context.Background(), 7, 1, 4, 2)
	if err != nil || bmp == nil {
		t.Fatal(err)
	}
	if env.renderer.count() != 1 {
		t.Errorf("expected 1 render, got %v", env.renderer.count())
	}
}

func TestStoreErrorStillReturnsBitmap(t *testing.T) {
	env := makeEnv(t, pixels.PyramidNone)
	store := &failingStore{}
	c := env.cache(store, Options{})

	bmp, err := c.GetThumbnail(context.Background(), 7, 1, 4, 2)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if bmp == nil || bmp.Width != 4 || bmp.Height != 2 {
		t.Fatalf("unexpected bitmap %v", bmp)
	}
	if atomic.LoadInt32(&store.puts) != 1 {
		t.Errorf("expected 1 put, got %v", store.puts)
	}
}

func TestThumbnailSurvivesRestart(t *testing.T) {
	env := makeEnv(t, pixels.PyramidNone)
	fs := fileaccess.NewMemoryAccess()
	store := NewFileStore(fs, "cache", "thumbnails", &timestamper.MockTimeNowStamper{QueuedTimeStamps: []int64{500}}, &logger.NullLogger{})

	first, err := env.cache(store, Options{}).GetThumbnail(context.Background(), 7, 1, 4, 2)
	if err != nil {
		t.Fatal(err)
	}

	// New cache, empty memory, same backing store
	second, err := env.cache(store, Options{}).GetThumbnail(context.Background(), 7, 1, 4, 2)
	if err != nil {
		t.Fatal(err)
	}

	if !first.Equal(second) {
		t.Error("stored thumbnail differs")
	}
	if env.renderer.count() != 1 {
		t.Errorf("expected 1 render, got %v", env.renderer.count())
	}
}

func TestGetThumbnailByLongestSide(t *testing.T) {
	env := makeEnv(t, pixels.PyramidNone)
	c := env.cache(nil, Options{DefaultLongestSide: 4})

	bmp, err := c.GetThumbnailByLongestSide(context.Background(), 7, 1, 6)
	if err != nil {
		t.Fatal(err)
	}
	if bmp.Width != 6 || bmp.Height != 3 {
		t.Errorf("expected 6x3, got %vx%v", bmp.Width, bmp.Height)
	}

	bmp, err = c.GetThumbnailByLongestSide(context.Background(), 7, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if bmp.Width != 4 || bmp.Height != 2 {
		t.Errorf("expected 4x2, got %vx%v", bmp.Width, bmp.Height)
	}
}

func TestGetThumbnailWithoutDefault(t *testing.T) {
	env := makeEnv(t, pixels.PyramidNone)
	c := env.cache(nil, Options{})
	ctx := context.Background()

	bmp, err := c.GetThumbnailWithoutDefault(ctx, 7, 1, 4, 2)
	if err != nil || bmp == nil {
		t.Fatal(err)
	}

	if _, ok, _ := env.settings.Load(ctx, 7, 1); ok {
		t.Error("settings were stored")
	}

	// Same pixels as version 1 defaults, but a different key
	withDefault, err := c.GetThumbnail(ctx, 7, 1, 4, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !withDefault.Equal(bmp) {
		t.Error("default settings rendered differently")
	}
	if env.renderer.count() != 2 {
		t.Errorf("expected 2 renders, got %v", env.renderer.count())
	}
}

func TestThumbnailErrors(t *testing.T) {
	env := makeEnv(t, pixels.PyramidNone)
	c := env.cache(nil, Options{})
	ctx := context.Background()

	_, err := c.GetThumbnail(ctx, 7, 1, 0, 2)
	if !errorwithstatus.IsKind(err, errorwithstatus.InvalidConfiguration) {
		t.Errorf("expected invalid configuration, got %v", err)
	}

	_, err = c.GetThumbnail(ctx, 70, 1, 4, 2)
	if !errorwithstatus.IsKind(err, errorwithstatus.NotFound) {
		t.Errorf("expected not found, got %v", err)
	}

	env.planes.Delete(0, 0, 0, 0)
	_, err = c.GetThumbnail(ctx, 7, 1, 4, 2)
	if !errorwithstatus.IsKind(err, errorwithstatus.MissingPlane) {
		t.Errorf("expected missing plane, got %v", err)
	}
}

func TestPendingPyramidTimesOut(t *testing.T) {
	env := makeEnv(t, pixels.PyramidPending)
	c := env.cache(nil, Options{})

	_, err := c.GetThumbnail(context.Background(), 7, 1, 4, 2)
	if !errorwithstatus.IsKind(err, errorwithstatus.GenerationTimeout) {
		t.Fatalf("expected generation timeout, got %v", err)
	}
	if env.renderer.count() != 0 {
		t.Errorf("expected no render, got %v", env.renderer.count())
	}

	// Ingestion finishing makes it READY
	desc, err := env.descs.GetDescription(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	stats, err := pixels.ComputeChannelStats(&pixels.PixelSet{Description: *desc, Planes: env.planes}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := env.descs.SetChannelStats(context.Background(), 7, stats); err != nil {
		t.Fatal(err)
	}

	if _, err := c.GetThumbnail(context.Background(), 7, 1, 4, 2); err != nil {
		t.Fatal(err)
	}
}

func Example_lruCache() {
	c := newLRUCache(30)
	k := func(v int64) Key { return Key{PixelSetID: 1, UserID: 1, Version: v, Width: 2, Height: 2} }

	fmt.Println(c.add(k(1), bitmap.New(2, 2)))
	fmt.Println(c.add(k(2), bitmap.New(2, 2)))
	// Touch 1 so 2 is the oldest
	_, ok := c.get(k(1))
	fmt.Println(ok)
	fmt.Println(c.add(k(3), bitmap.New(2, 2)))

	_, ok1 := c.get(k(1))
	_, ok2 := c.get(k(2))
	_, ok3 := c.get(k(3))
	fmt.Println(ok1, ok2, ok3)
	fmt.Println(c.stats())

	// Too big to ever fit
	fmt.Println(c.add(k(4), bitmap.New(4, 4)))
	fmt.Println(c.stats())

	// Output:
	// 0
	// 0
	// true
	// 1
	// true false true
	// 2 24
	// 0
	// 2 24
}

func Example_key() {
	fmt.Println(Key{PixelSetID: 7, UserID: 3, Version: 12, Width: 96, Height: 48})

	// Output:
	// 7_3_v12_96x48
}

type panickingRenderer struct{}

func (r *panickingRenderer) Render(ps *pixels.PixelSet, settings *rendersettings.Settings, z int, t int, level int) (*bitmap.Bitmap, error) {
	panic("out of memory")
}

func TestOversizedThumbnailRejected(t *testing.T) {
	env := makeEnv(t, pixels.PyramidNone)
	c := env.cache(nil, Options{MaxSide: 16})
	ctx := context.Background()

	sizes := [][2]int{{1 << 31, 1 << 31}, {17, 2}, {2, 17}, {math.MaxInt32, 1}}
	for _, sz := range sizes {
		_, err := c.GetThumbnail(ctx, 7, 1, sz[0], sz[1])
		if !errorwithstatus.IsKind(err, errorwithstatus.InvalidConfiguration) {
			t.Errorf("%vx%v: expected InvalidConfiguration, got %v", sz[0], sz[1], err)
		}
		_, err = c.GetThumbnailWithoutDefault(ctx, 7, 1, sz[0], sz[1])
		if !errorwithstatus.IsKind(err, errorwithstatus.InvalidConfiguration) {
			t.Errorf("%vx%v without default: expected InvalidConfiguration, got %v", sz[0], sz[1], err)
		}
	}

	_, err := c.GetThumbnailByLongestSide(ctx, 7, 1, 1<<31)
	if !errorwithstatus.IsKind(err, errorwithstatus.InvalidConfiguration) {
		t.Errorf("expected InvalidConfiguration for longest side, got %v", err)
	}

	if env.renderer.count() != 0 {
		t.Errorf("rejected sizes shouldn't render, got %v renders", env.renderer.count())
	}

	bmp, err := c.GetThumbnail(ctx, 7, 1, 16, 16)
	if err != nil || bmp.Width != 16 || bmp.Height != 16 {
		t.Errorf("maximum size should render: %v", err)
	}

	// Default maximum applies when none is configured
	c = env.cache(nil, Options{})
	_, err = c.GetThumbnail(ctx, 7, 1, DefaultMaxSide+1, 1)
	if !errorwithstatus.IsKind(err, errorwithstatus.InvalidConfiguration) {
		t.Errorf("expected default maximum to apply, got %v", err)
	}
}

func TestRenderPanicBecomesError(t *testing.T) {
	env := makeEnv(t, pixels.PyramidNone)
	planes := func(desc *pixels.Description) pixels.PlaneSource { return env.planes }
	c := NewCache(env.settings, env.descs, planes, env.resolver, &panickingRenderer{}, nil, Options{}, &logger.NullLogger{})

	bmp, err := c.GetThumbnail(context.Background(), 7, 1, 4, 2)
	if bmp != nil || err == nil {
		t.Fatalf("expected error, got %v, %v", bmp, err)
	}
	if err.Error() != "thumbnail render for 7_1_v1_4x2 failed: out of memory" {
		t.Errorf("unexpected error: %v", err)
	}

	// Nothing half-made was cached
	if n, _ := c.Stats(); n != 0 {
		t.Errorf("expected empty cache, got %v entries", n)
	}
}
