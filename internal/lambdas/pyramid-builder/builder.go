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

package main

import (
	"context"
	"fmt"

	"github.com/pixlise/pixelrender/core/fileaccess"
	"github.com/pixlise/pixelrender/core/logger"
	"github.com/pixlise/pixelrender/core/pixels"
	"github.com/pixlise/pixelrender/core/pyramid"
)

type builder struct {
	fs          fileaccess.FileAccess
	planesRoot  string
	descs       pixels.DescriptionStore
	resolver    *pyramid.Resolver
	tileSize    int
	concurrency int
	log         logger.ILogger
}

// nativePlanesComplete - true once every z/t/c plane of the native level has been uploaded
func (b *builder) nativePlanesComplete(bucket string, desc *pixels.Description) (bool, error) {
	native := desc.NativeLevel().Index
	for z := 0; z < desc.SizeZ; z++ {
		for t := 0; t < desc.SizeT; t++ {
			for c := 0; c < desc.SizeC(); c++ {
				exists, err := b.fs.ObjectExists(bucket, pixels.PlanePath(b.planesRoot, desc.ID, native, z, t, c))
				if err != nil || !exists {
					return false, err
				}
			}
		}
	}
	return true, nil
}

// processUpload - called for each uploaded object. An uploaded description is stored. When an
// upload completes a pixel set's native planes, lower resolution levels are generated (if the
// description lists any, or the pixel set is large enough to need them) and channel stats are
// computed. Returns true if the pixel set was processed
func (b *builder) processUpload(ctx context.Context, bucket string, key string) (bool, error) {
	if pixelSetID, err := pixels.ParseDescriptionPath(b.planesRoot, key); err == nil {
		desc, err := b.importDescription(ctx, bucket, key, pixelSetID)
		if err != nil {
			return false, err
		}
		// Planes may have arrived before their description
		return b.processPixelSet(ctx, bucket, desc)
	}

	pixelSetID, level, _, _, _, err := pixels.ParsePlanePath(b.planesRoot, key)
	if err != nil {
		b.log.Infof("Ignoring non-plane upload: s3://%v/%v", bucket, key)
		return false, nil
	}

	desc, err := b.descs.GetDescription(ctx, pixelSetID)
	if err != nil {
		return false, fmt.Errorf("failed to read description for pixel set %v: %w", pixelSetID, err)
	}

	if level != desc.NativeLevel().Index {
		// One of ours, written while generating a pyramid
		return false, nil
	}

	return b.processPixelSet(ctx, bucket, desc)
}

func (b *builder) importDescription(ctx context.Context, bucket string, key string, pixelSetID int64) (*pixels.Description, error) {
	desc := &pixels.Description{}
	if err := b.fs.ReadJSON(bucket, key, desc, false); err != nil {
		return nil, fmt.Errorf("failed to read s3://%v/%v: %w", bucket, key, err)
	}
	if desc.ID != pixelSetID {
		return nil, fmt.Errorf("description s3://%v/%v is for pixel set %v", bucket, key, desc.ID)
	}
	if err := b.descs.PutDescription(ctx, desc); err != nil {
		return nil, err
	}

	b.log.Infof("Stored description of pixel set %v (%vx%v, %v channels)", desc.ID, desc.SizeX, desc.SizeY, desc.SizeC())
	return desc, nil
}

func (b *builder) processPixelSet(ctx context.Context, bucket string, desc *pixels.Description) (bool, error) {
	if desc.EffectiveStatus() == pixels.PyramidReady {
		b.log.Debugf("Pyramid for pixel set %v already ready", desc.ID)
		return false, nil
	}

	complete, err := b.nativePlanesComplete(bucket, desc)
	if err != nil {
		return false, err
	}
	if !complete {
		b.log.Debugf("Pixel set %v still waiting for native planes", desc.ID)
		return false, nil
	}

	if len(desc.Levels) <= 1 && b.resolver.NeedsPyramid(desc) {
		if desc, err = b.addLevels(ctx, bucket, desc); err != nil {
			return false, err
		}
	}

	planes := pixels.NewFilePlaneSource(b.fs, bucket, b.planesRoot, desc)
	ps := &pixels.PixelSet{Description: *desc, Planes: planes}

	if len(desc.Levels) > 1 {
		err = pyramid.Build(ctx, ps, planes, b.descs, b.concurrency, b.log)
	} else {
		var stats []pixels.ChannelStats
		stats, err = pixels.ComputeChannelStats(ps, desc.NativeLevel().Index)
		if err == nil {
			b.log.Infof("Computed channel stats for pixel set %v", desc.ID)
			err = b.descs.SetChannelStats(ctx, desc.ID, stats)
		}
	}
	if err != nil {
		return false, err
	}

	return true, b.publishDescription(ctx, bucket, desc.ID)
}

// addLevels - a large pixel set uploaded without levels gets the default pyramid. Its planes are
// copied up to the new native index, Build then writes the lower levels over the old ones
func (b *builder) addLevels(ctx context.Context, bucket string, desc *pixels.Description) (*pixels.Description, error) {
	levels := pyramid.DefaultLevels(desc.SizeX, desc.SizeY, b.tileSize)
	if len(levels) <= 1 {
		return desc, nil
	}

	from := desc.NativeLevel().Index
	to := levels[len(levels)-1].Index
	for z := 0; z < desc.SizeZ; z++ {
		for t := 0; t < desc.SizeT; t++ {
			for c := 0; c < desc.SizeC(); c++ {
				src := pixels.PlanePath(b.planesRoot, desc.ID, from, z, t, c)
				dst := pixels.PlanePath(b.planesRoot, desc.ID, to, z, t, c)
				if err := b.fs.CopyObject(bucket, src, bucket, dst); err != nil {
					return nil, fmt.Errorf("failed to copy native plane %v to %v: %w", src, dst, err)
				}
			}
		}
	}

	result := desc.Clone()
	result.Levels = levels
	result.PyramidStatus = pixels.PyramidPending
	if err := b.descs.PutDescription(ctx, result); err != nil {
		return nil, err
	}

	b.log.Infof("Pixel set %v is %vx%v, added %v pyramid levels", desc.ID, desc.SizeX, desc.SizeY, len(levels)-1)
	return result, nil
}

// publishDescription - writes the finished description next to the planes for readers without
// database access
func (b *builder) publishDescription(ctx context.Context, bucket string, pixelSetID int64) error {
	desc, err := b.descs.GetDescription(ctx, pixelSetID)
	if err != nil {
		return err
	}
	return b.fs.WriteJSON(bucket, pixels.ReadyDescriptionPath(b.planesRoot, pixelSetID), desc)
}
