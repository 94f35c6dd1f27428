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
	"encoding/binary"
	"fmt"
	"math"
	"path"
	"strconv"
	"strings"

	"github.com/pixlise/pixelrender/core/fileaccess"
	"github.com/pixlise/pixelrender/core/utils"
)

// Raw planes are stored one object per (level, z, t, c), samples packed in the pixel set's type and
// byte order with no header. Dimensions come from the description's level

func PlanePath(root string, pixelSetID int64, level int, z int, t int, c int) string {
	return path.Join(root, strconv.FormatInt(pixelSetID, 10), fmt.Sprintf("L%v", level), fmt.Sprintf("z%v-t%v-c%v.raw", z, t, c))
}

const (
	descriptionFile      = "description.json"
	readyDescriptionFile = "ready.json"
)

// DescriptionPath - where ingestion uploads a pixel set's description, next to its planes
func DescriptionPath(root string, pixelSetID int64) string {
	return path.Join(root, strconv.FormatInt(pixelSetID, 10), descriptionFile)
}

// ReadyDescriptionPath - the description as it stands once levels and stats have been generated
func ReadyDescriptionPath(root string, pixelSetID int64) string {
	return path.Join(root, strconv.FormatInt(pixelSetID, 10), readyDescriptionFile)
}

// ParseDescriptionPath - inverse of DescriptionPath
func ParseDescriptionPath(root string, descPath string) (int64, error) {
	rel := descPath
	if len(root) > 0 {
		prefix := strings.TrimSuffix(root, "/") + "/"
		if !strings.HasPrefix(rel, prefix) {
			return 0, fmt.Errorf("not a description path: %v", descPath)
		}
		rel = rel[len(prefix):]
	}

	id, file, ok := strings.Cut(rel, "/")
	if !ok || file != descriptionFile {
		return 0, fmt.Errorf("not a description path: %v", descPath)
	}

	pixelSetID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("not a description path: %v", descPath)
	}
	return pixelSetID, nil
}

// ParsePlanePath - inverse of PlanePath, so an upload notification can be traced back to its plane
func ParsePlanePath(root string, planePath string) (pixelSetID int64, level int, z int, t int, c int, err error) {
	rel := planePath
	if len(root) > 0 {
		prefix := strings.TrimSuffix(root, "/") + "/"
		if !strings.HasPrefix(rel, prefix) {
			return 0, 0, 0, 0, 0, fmt.Errorf("not a plane path: %v", planePath)
		}
		rel = rel[len(prefix):]
	}

	parts := strings.Split(rel, "/")
	if len(parts) != 3 {
		return 0, 0, 0, 0, 0, fmt.Errorf("not a plane path: %v", planePath)
	}

	pixelSetID, err = strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, 0, 0, 0, fmt.Errorf("not a plane path: %v", planePath)
	}

	if _, err = fmt.Sscanf(parts[1], "L%d", &level); err != nil {
		return 0, 0, 0, 0, 0, fmt.Errorf("not a plane path: %v", planePath)
	}

	if _, err = fmt.Sscanf(parts[2], "z%d-t%d-c%d.raw", &z, &t, &c); err != nil || !strings.HasSuffix(parts[2], ".raw") {
		return 0, 0, 0, 0, 0, fmt.Errorf("not a plane path: %v", planePath)
	}

	return pixelSetID, level, z, t, c, nil
}

func byteOrder(bigEndian bool) binary.ByteOrder {
	if bigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// DecodeSamples - raw bytes to samples. Expects exactly count samples
func DecodeSamples(data []byte, pixelType PixelType, bigEndian bool, count int) ([]float64, error) {
	bps := pixelType.BytesPerSample()
	if bps <= 0 {
		return nil, fmt.Errorf("unknown pixel type: %v", pixelType)
	}
	if len(data) != count*bps {
		return nil, fmt.Errorf("expected %v bytes for %v %v samples, got %v", count*bps, count, pixelType, len(data))
	}

	order := byteOrder(bigEndian)
	result := make([]float64, count)

	for i := range result {
		b := data[i*bps:]
		switch pixelType {
		case Int8:
			result[i] = float64(int8(b[0]))
		case Uint8:
			result[i] = float64(b[0])
		case Int16:
			result[i] = float64(int16(order.Uint16(b)))
		case Uint16:
			result[i] = float64(order.Uint16(b))
		case Int32:
			result[i] = float64(int32(order.Uint32(b)))
		case Uint32:
			result[i] = float64(order.Uint32(b))
		case Float32:
			result[i] = float64(math.Float32frombits(order.Uint32(b)))
		case Float64:
			result[i] = math.Float64frombits(order.Uint64(b))
		}
	}

	return result, nil
}

// EncodeSamples - samples to raw bytes. Integer types are rounded and saturated to their range
func EncodeSamples(samples []float64, pixelType PixelType, bigEndian bool) ([]byte, error) {
	bps := pixelType.BytesPerSample()
	if bps <= 0 {
		return nil, fmt.Errorf("unknown pixel type: %v", pixelType)
	}

	order := byteOrder(bigEndian)
	result := make([]byte, len(samples)*bps)

	for i, s := range samples {
		b := result[i*bps:]
		switch pixelType {
		case Int8:
			b[0] = byte(int8(saturate(s, math.MinInt8, math.MaxInt8)))
		case Uint8:
			b[0] = byte(saturate(s, 0, math.MaxUint8))
		case Int16:
			order.PutUint16(b, uint16(int16(saturate(s, math.MinInt16, math.MaxInt16))))
		case Uint16:
			order.PutUint16(b, uint16(saturate(s, 0, math.MaxUint16)))
		case Int32:
			order.PutUint32(b, uint32(int32(saturate(s, math.MinInt32, math.MaxInt32))))
		case Uint32:
			order.PutUint32(b, uint32(saturate(s, 0, math.MaxUint32)))
		case Float32:
			order.PutUint32(b, math.Float32bits(float32(s)))
		case Float64:
			order.PutUint64(b, math.Float64bits(s))
		}
	}

	return result, nil
}

func saturate(v float64, lo float64, hi float64) int64 {
	if math.IsNaN(v) {
		return 0
	}
	return int64(utils.Clamp(math.Round(v), lo, hi))
}

// FilePlaneSource - planes of one pixel set stored through FileAccess (S3 or local disk)
type FilePlaneSource struct {
	fs     fileaccess.FileAccess
	bucket string
	root   string
	desc   *Description
}

func NewFilePlaneSource(fs fileaccess.FileAccess, bucket string, root string, desc *Description) *FilePlaneSource {
	return &FilePlaneSource{fs: fs, bucket: bucket, root: root, desc: desc}
}

func (s *FilePlaneSource) ReadPlane(level int, z int, t int, c int) (*Plane, error) {
	lvl, err := s.desc.Level(level)
	if err != nil {
		return nil, err
	}

	data, err := s.fs.ReadObject(s.bucket, PlanePath(s.root, s.desc.ID, level, z, t, c))
	if err != nil {
		if s.fs.IsNotFoundError(err) {
			return nil, ErrNoPlane
		}
		return nil, err
	}

	samples, err := DecodeSamples(data, s.desc.PixelType, s.desc.BigEndian, lvl.Width*lvl.Height)
	if err != nil {
		return nil, err
	}

	return &Plane{Width: lvl.Width, Height: lvl.Height, Samples: samples}, nil
}

func (s *FilePlaneSource) WritePlane(level int, z int, t int, c int, plane *Plane) error {
	data, err := EncodeSamples(plane.Samples, s.desc.PixelType, s.desc.BigEndian)
	if err != nil {
		return err
	}
	return s.fs.WriteObject(s.bucket, PlanePath(s.root, s.desc.ID, level, z, t, c), data)
}
