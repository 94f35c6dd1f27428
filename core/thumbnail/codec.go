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
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pixlise/pixelrender/core/bitmap"
	"google.golang.org/protobuf/encoding/protowire"
)

// Persisted entry layout, protobuf wire format with the pixels zstd compressed
const (
	fieldPixelSetID protowire.Number = 1
	fieldUserID     protowire.Number = 2
	fieldVersion    protowire.Number = 3
	fieldWidth      protowire.Number = 4
	fieldHeight     protowire.Number = 5
	fieldMemoTime   protowire.Number = 6
	fieldPix        protowire.Number = 7
)

func mustNewZstdEncoder() *zstd.Encoder {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1), zstd.WithLowerEncoderMem(true))
	if err != nil {
		panic(err)
	}
	return enc
}

func mustNewZstdDecoder() *zstd.Decoder {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1), zstd.WithDecoderLowmem(true))
	if err != nil {
		panic(err)
	}
	return dec
}

var zstdEncPool = sync.Pool{
	New: func() any {
		return mustNewZstdEncoder()
	},
}

var zstdDecPool = sync.Pool{
	New: func() any {
		return mustNewZstdDecoder()
	},
}

func compressPix(pix []byte) []byte {
	enc := zstdEncPool.Get().(*zstd.Encoder)
	defer zstdEncPool.Put(enc)
	return enc.EncodeAll(pix, nil)
}

func decompressPix(data []byte) ([]byte, error) {
	dec := zstdDecPool.Get().(*zstd.Decoder)
	defer zstdDecPool.Put(dec)
	return dec.DecodeAll(data, nil)
}

// EncodeEntry - the bytes a backing store keeps for one thumbnail
func EncodeEntry(key Key, bmp *bitmap.Bitmap, memoTimeUnixSec int64) []byte {
	b := []byte{}
	b = protowire.AppendTag(b, fieldPixelSetID, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(key.PixelSetID))
	b = protowire.AppendTag(b, fieldUserID, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(key.UserID))
	b = protowire.AppendTag(b, fieldVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(key.Version))
	b = protowire.AppendTag(b, fieldWidth, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(bmp.Width))
	b = protowire.AppendTag(b, fieldHeight, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(bmp.Height))
	b = protowire.AppendTag(b, fieldMemoTime, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(memoTimeUnixSec))
	b = protowire.AppendTag(b, fieldPix, protowire.BytesType)
	b = protowire.AppendBytes(b, compressPix(bmp.Pix))
	return b
}

// DecodeEntry - reverses EncodeEntry, unknown fields are skipped
func DecodeEntry(data []byte) (Key, *bitmap.Bitmap, int64, error) {
	key := Key{}
	bmp := &bitmap.Bitmap{}
	memoTime := int64(0)
	var pix []byte

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return key, nil, 0, fmt.Errorf("failed to read thumbnail entry tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		if typ == protowire.BytesType && num == fieldPix {
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return key, nil, 0, fmt.Errorf("failed to read thumbnail pixels: %w", protowire.ParseError(n))
			}
			pix = v
			data = data[n:]
			continue
		}

		if typ != protowire.VarintType {
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return key, nil, 0, fmt.Errorf("failed to skip thumbnail field %v: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
			continue
		}

		v, n := protowire.ConsumeVarint(data)
		if n < 0 {
			return key, nil, 0, fmt.Errorf("failed to read thumbnail field %v: %w", num, protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case fieldPixelSetID:
			key.PixelSetID = int64(v)
		case fieldUserID:
			key.UserID = int64(v)
		case fieldVersion:
			key.Version = int64(v)
		case fieldWidth:
			bmp.Width = int(v)
		case fieldHeight:
			bmp.Height = int(v)
		case fieldMemoTime:
			memoTime = int64(v)
		}
	}

	key.Width = bmp.Width
	key.Height = bmp.Height

	var err error
	bmp.Pix, err = decompressPix(pix)
	if err != nil {
		return key, nil, 0, fmt.Errorf("failed to decompress thumbnail %v: %w", key, err)
	}
	if len(bmp.Pix) == 0 {
		// zstd gives nil for empty frames
		bmp.Pix = []byte{}
	}

	if err := bmp.Validate(); err != nil {
		return key, nil, 0, fmt.Errorf("thumbnail %v: %w", key, err)
	}
	return key, bmp, memoTime, nil
}
