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

// Package thumbnail caches rendered, downscaled bitmaps of pixel sets per user and per version of
// that user's rendering settings. Entries live in memory (LRU within a byte budget) and optionally in
// a backing Store. At most one render runs per key, concurrent callers share its result.
package thumbnail

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/pixlise/pixelrender/core/bitmap"
	"github.com/pixlise/pixelrender/core/errorwithstatus"
	"github.com/pixlise/pixelrender/core/imageedit"
	"github.com/pixlise/pixelrender/core/logger"
	"github.com/pixlise/pixelrender/core/pixels"
	"github.com/pixlise/pixelrender/core/pyramid"
	"github.com/pixlise/pixelrender/core/rendersettings"
	"golang.org/x/sync/singleflight"
)

const DefaultLongestSide = 96
const DefaultBudgetBytes = 64 * 1024 * 1024
const DefaultMaxSide = 4096

// BitmapRenderer - renderer.Renderer, or anything counting calls to it
type BitmapRenderer interface {
	Render(ps *pixels.PixelSet, settings *rendersettings.Settings, z int, t int, level int) (*bitmap.Bitmap, error)
}

// PlaneSourceFunc - gives plane access for a pixel set
type PlaneSourceFunc func(desc *pixels.Description) pixels.PlaneSource

type Options struct {
	BudgetBytes        int
	DefaultLongestSide int

	// Largest width or height a thumbnail may be requested at
	MaxSide int
}

type Cache struct {
	settings *rendersettings.Service
	descs    pixels.DescriptionStore
	planes   PlaneSourceFunc
	resolver *pyramid.Resolver
	renderer BitmapRenderer
	store    Store
	opts     Options
	log      logger.ILogger

	memory *lruCache
	group  singleflight.Group
}

// NewCache - store can be nil, then thumbnails only live in memory
func NewCache(settings *rendersettings.Service, descs pixels.DescriptionStore, planes PlaneSourceFunc, resolver *pyramid.Resolver, renderer BitmapRenderer, store Store, opts Options, log logger.ILogger) *Cache {
	if opts.BudgetBytes <= 0 {
		opts.BudgetBytes = DefaultBudgetBytes
	}
	if opts.DefaultLongestSide <= 0 {
		opts.DefaultLongestSide = DefaultLongestSide
	}
	if opts.MaxSide <= 0 {
		opts.MaxSide = DefaultMaxSide
	}

	return &Cache{
		settings: settings,
		descs:    descs,
		planes:   planes,
		resolver: resolver,
		renderer: renderer,
		store:    store,
		opts:     opts,
		log:      log,
		memory:   newLRUCache(opts.BudgetBytes),
	}
}

func (c *Cache) checkSize(width int, height int) error {
	if width <= 0 || height <= 0 {
		return errorwithstatus.MakeInvalidConfigurationError("thumbnail size %vx%v must be positive", width, height)
	}
	if width > c.opts.MaxSide || height > c.opts.MaxSide {
		return errorwithstatus.MakeInvalidConfigurationError("thumbnail size %vx%v exceeds maximum side %v", width, height, c.opts.MaxSide)
	}
	if int64(width)*int64(height) > math.MaxInt32/3 {
		return errorwithstatus.MakeInvalidConfigurationError("thumbnail size %vx%v is too large", width, height)
	}
	return nil
}

// GetThumbnail - width x height thumbnail of the pixel set using the user's current settings,
// creating default settings if the user has none yet
func (c *Cache) GetThumbnail(ctx context.Context, pixelSetID int64, userID int64, width int, height int) (*bitmap.Bitmap, error) {
	if err := c.checkSize(width, height); err != nil {
		return nil, err
	}

	desc, err := c.descs.GetDescription(ctx, pixelSetID)
	if err != nil {
		return nil, err
	}

	settings, err := c.settings.LoadOrCreate(ctx, pixelSetID, userID)
	if err != nil {
		return nil, err
	}

	return c.get(ctx, desc, settings, width, height)
}

// GetThumbnailByLongestSide - keeps the pixel set's aspect ratio. size <= 0 uses the configured
// default
func (c *Cache) GetThumbnailByLongestSide(ctx context.Context, pixelSetID int64, userID int64, size int) (*bitmap.Bitmap, error) {
	if size <= 0 {
		size = c.opts.DefaultLongestSide
	}

	desc, err := c.descs.GetDescription(ctx, pixelSetID)
	if err != nil {
		return nil, err
	}

	width, height := imageedit.FitLongestSide(desc.SizeX, desc.SizeY, size)
	if err := c.checkSize(width, height); err != nil {
		return nil, err
	}

	settings, err := c.settings.LoadOrCreate(ctx, pixelSetID, userID)
	if err != nil {
		return nil, err
	}

	return c.get(ctx, desc, settings, width, height)
}

// GetThumbnailWithoutDefault - like GetThumbnail but if the user has no settings, renders with
// defaults (cached as version 0) and doesn't store any settings for them
func (c *Cache) GetThumbnailWithoutDefault(ctx context.Context, pixelSetID int64, userID int64, width int, height int) (*bitmap.Bitmap, error) {
	if err := c.checkSize(width, height); err != nil {
		return nil, err
	}

	desc, err := c.descs.GetDescription(ctx, pixelSetID)
	if err != nil {
		return nil, err
	}

	settings, ok, err := c.settings.Load(ctx, pixelSetID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		settings = rendersettings.Defaults(desc, userID)
	}

	return c.get(ctx, desc, settings, width, height)
}

// Stats - entries held in memory & their total size
func (c *Cache) Stats() (int, int) {
	return c.memory.stats()
}

func (c *Cache) get(ctx context.Context, desc *pixels.Description, settings *rendersettings.Settings, width int, height int) (*bitmap.Bitmap, error) {
	key := Key{PixelSetID: desc.ID, UserID: settings.UserID, Version: settings.Version, Width: width, Height: height}

	if bmp, ok := c.memory.get(key); ok {
		cacheHits.WithLabelValues("memory").Inc()
		c.log.Debugf("Thumbnail cache hit: %v", key)
		return bmp.Clone(), nil
	}

	// The render isn't tied to any one caller, those who stop waiting don't stop it for the others
	ch := c.group.DoChan(key.String(), func() (bmp interface{}, err error) {
		// Runs on singleflight's own goroutine, a panic here would take the process down
		defer func() {
			if r := recover(); r != nil {
				c.log.Errorf("Thumbnail render for %v panicked: %v", key, r)
				bmp, err = nil, fmt.Errorf("thumbnail render for %v failed: %v", key, r)
			}
		}()
		return c.fill(context.WithoutCancel(ctx), key, desc, settings)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*bitmap.Bitmap).Clone(), nil
	}
}

func (c *Cache) fill(ctx context.Context, key Key, desc *pixels.Description, settings *rendersettings.Settings) (*bitmap.Bitmap, error) {
	// May have been filled by a flight that finished just before ours started
	if bmp, ok := c.memory.get(key); ok {
		cacheHits.WithLabelValues("memory").Inc()
		return bmp, nil
	}

	if c.store != nil {
		bmp, ok, err := c.store.Get(ctx, key)
		if err != nil {
			storeErrors.Inc()
			c.log.Errorf("Failed to read stored thumbnail %v: %v", key, err)
		} else if ok && bmp.Width == key.Width && bmp.Height == key.Height {
			cacheHits.WithLabelValues("store").Inc()
			c.log.Debugf("Thumbnail read from store: %v", key)
			c.remember(key, bmp)
			return bmp, nil
		}
	}

	cacheMisses.Inc()
	c.log.Debugf("Thumbnail cache miss: %v", key)

	start := time.Now()
	bmp, err := c.render(ctx, desc, settings, key.Width, key.Height)
	if err != nil {
		return nil, err
	}
	renderDuration.Observe(time.Since(start).Seconds())

	c.remember(key, bmp)

	if c.store != nil {
		if err := c.store.Put(ctx, key, bmp); err != nil {
			// Still usable, it just won't survive a restart
			storeErrors.Inc()
			c.log.Errorf("%v", errorwithstatus.MakeCacheStoreError(key.String(), err))
		}
	}

	return bmp, nil
}

func (c *Cache) remember(key Key, bmp *bitmap.Bitmap) {
	if n := c.memory.add(key, bmp); n > 0 {
		evictions.Add(float64(n))
		c.log.Debugf("Evicted %v thumbnails from memory", n)
	}
}

func (c *Cache) render(ctx context.Context, desc *pixels.Description, settings *rendersettings.Settings, width int, height int) (*bitmap.Bitmap, error) {
	desc, err := c.resolver.AwaitDescription(ctx, desc)
	if err != nil {
		return nil, err
	}

	level := pyramid.ResolveLevelFor(desc, width, height)
	ps := &pixels.PixelSet{Description: *desc, Planes: c.planes(desc)}

	full, err := c.renderer.Render(ps, settings, settings.DefaultZ, settings.DefaultT, level.Index)
	if err != nil {
		return nil, err
	}

	return imageedit.ScaleBitmap(full, width, height), nil
}
