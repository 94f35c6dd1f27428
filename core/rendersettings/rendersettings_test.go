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
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/pixlise/pixelrender/core/errorwithstatus"
	"github.com/pixlise/pixelrender/core/logger"
	"github.com/pixlise/pixelrender/core/pixels"
	"github.com/pixlise/pixelrender/core/quantum"
	"github.com/pixlise/pixelrender/core/timestamper"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func makeDescription(channels int) *pixels.Description {
	d := &pixels.Description{ID: 7, SizeX: 8, SizeY: 8, SizeZ: 5, SizeT: 2, PixelType: pixels.Uint16}
	for c := 0; c < channels; c++ {
		d.Channels = append(d.Channels, pixels.Channel{NativeMin: 10, NativeMax: 1000})
	}
	return d
}

func makeService(channels int) (*Service, *MemoryStore) {
	descs := pixels.NewMemoryDescriptionStore()
	descs.PutDescription(context.Background(), makeDescription(channels))
	store := NewMemoryStore()
	ts := &timestamper.MockTimeNowStamper{QueuedTimeStamps: []int64{1000, 1001, 1002, 1003}}
	return NewService(store, descs, ts, &logger.NullLogger{}), store
}

func Example_defaults() {
	for _, n := range []int{1, 3, 5} {
		s := Defaults(makeDescription(n), 99)
		fmt.Println(s.ID, s.Version, s.BitDepth, s.DefaultZ, s.DefaultT, s.ActiveChannels())
		fmt.Printf("%+v\n", s.Channels[0])
	}

	// Colours follow emission wavelength when there is one
	d := makeDescription(3)
	d.Channels[0].EmissionWavelengthNm = 461
	d.Channels[1].EmissionWavelengthNm = 520
	d.Channels[2].EmissionWavelengthNm = 647
	for _, b := range DefaultBindings(d) {
		fmt.Println(b.Color)
	}

	// Output:
	// 7_99 0 8 2 0 [0]
	// {Active:true Color:{R:255 G:255 B:255} Family:LINEAR Coefficient:1 InputStart:10 InputEnd:1000}
	// 7_99 0 8 2 0 [0 1 2]
	// {Active:true Color:{R:255 G:0 B:0} Family:LINEAR Coefficient:1 InputStart:10 InputEnd:1000}
	// 7_99 0 8 2 0 [0 1 2]
	// {Active:true Color:{R:255 G:0 B:0} Family:LINEAR Coefficient:1 InputStart:10 InputEnd:1000}
	// {0 0 255}
	// {0 255 0}
	// {255 0 0}
}

func Example_validate() {
	d := makeDescription(2)
	s := Defaults(d, 1)
	fmt.Println(s.Validate(d))

	bad := s.Clone()
	bad.Channels[1].InputEnd = 1001
	fmt.Println(bad.Validate(d))

	bad = s.Clone()
	bad.Channels[0].InputStart = 500
	bad.Channels[0].InputEnd = 400
	fmt.Println(bad.Validate(d))

	bad = s.Clone()
	bad.Channels[0].Coefficient = 4.5
	fmt.Println(bad.Validate(d))

	bad = s.Clone()
	bad.BitDepth = 0
	fmt.Println(bad.Validate(d))

	bad = s.Clone()
	bad.DefaultT = 2
	fmt.Println(bad.Validate(d))

	bad = s.Clone()
	bad.Channels = bad.Channels[:1]
	fmt.Println(bad.Validate(d))

	// The clones never touched the original
	fmt.Println(s.Validate(d))

	// Output:
	// <nil>
	// invalid configuration: channel 1 input end 1001 above native max 1000
	// channel 0: invalid configuration: input interval [500,400] has end before start
	// invalid configuration: channel 0 coefficient 4.5 outside [0.1,4]
	// invalid configuration: output bit depth 0 outside [1,8]
	// invalid configuration: default plane z=2 t=2 outside pixel set 7 (5 z, 2 t)
	// invalid configuration: settings have 1 channels, pixel set 7 has 2
	// <nil>
}

func Example_service() {
	ctx := context.Background()
	svc, _ := makeService(4)

	_, ok, err := svc.Load(ctx, 7, 1)
	fmt.Println(ok, err)

	s, err := svc.Create(ctx, 7, 1)
	fmt.Println(s.Version, s.ModifiedUnixSec, s.ActiveChannels(), err)

	_, err = svc.Create(ctx, 7, 1)
	fmt.Println(errorwithstatus.KindOf(err))

	s2, err := svc.Update(ctx, s, SetFamily(1, quantum.Polynomial), SetCoefficient(1, 2.2), SetActiveChannels([]int{3, 1, 3}))
	fmt.Println(s2.Version, s2.ModifiedUnixSec, s2.ActiveChannels(), s2.Channels[1].Family, s2.Channels[1].Coefficient, err)

	// The version we started from is untouched
	fmt.Println(s.Version, s.ActiveChannels(), s.Channels[1].Family)

	// Updating from the old version again is stale
	_, err = svc.Update(ctx, s, SetBitDepth(4))
	fmt.Println(errorwithstatus.KindOf(err), err)

	// Invalid mutation leaves the stored version alone
	_, err = svc.Update(ctx, s2, SetInputInterval(0, 10, 2000))
	fmt.Println(errorwithstatus.KindOf(err))
	_, err = svc.Update(ctx, s2, SetColor(9, White))
	fmt.Println(err)

	loaded, ok, err := svc.Load(ctx, 7, 1)
	fmt.Println(loaded.Version, ok, err)

	s3, err := svc.ResetDefaults(ctx, loaded)
	fmt.Println(s3.Version, s3.ActiveChannels(), s3.Channels[1].Family, err)

	// Another user is independent
	other, err := svc.LoadOrCreate(ctx, 7, 2)
	fmt.Println(other.ID, other.Version, err)

	_, err = svc.LoadOrCreate(ctx, 8, 2)
	fmt.Println(err)

	// Output:
	// false <nil>
	// 1 1000 [0 1 2] <nil>
	// StaleSettingsVersion
	// 2 1002 [1 3] POLYNOMIAL 2.2 <nil>
	// 1 [0 1 2] LINEAR
	// StaleSettingsVersion rendering settings for pixel set 7 user 1: version 1 is stale, reload and retry
	// InvalidConfiguration
	// invalid configuration: channel 9 outside [0,4)
	// 2 true <nil>
	// 3 [0 1 2] LINEAR <nil>
	// 7_2 1 <nil>
	// pixel set 8 not found
}

func Example_changeRequest() {
	ctx := context.Background()
	svc, _ := makeService(2)

	var req ChangeRequest
	err := json.Unmarshal([]byte(`{
		"version": 1,
		"bitDepth": 6,
		"noiseReduction": true,
		"defaultT": 1,
		"channels": [{"channel": 1, "family": "EXPONENTIAL", "coefficient": 0.5, "color": {"r": 1, "g": 2, "b": 3}, "inputEnd": 800}]
	}`), &req)
	fmt.Println(err, len(req.Mutations()))

	s, err := svc.Apply(ctx, 7, 5, req)
	fmt.Println(err, s.Version, s.BitDepth, s.NoiseReduction, s.DefaultZ, s.DefaultT)
	fmt.Printf("%+v\n", s.Channels[1])

	// Still says version 1, which is now stale
	_, err = svc.Apply(ctx, 7, 5, req)
	fmt.Println(errorwithstatus.KindOf(err))

	none := []int{}
	s, err = svc.Apply(ctx, 7, 5, ChangeRequest{Version: 2, ActiveChannels: &none})
	fmt.Println(err, s.Version, s.ActiveChannels())

	// Output:
	// <nil> 4
	// <nil> 2 6 true 2 1
	// {Active:true Color:{R:1 G:2 B:3} Family:EXPONENTIAL Coefficient:0.5 InputStart:10 InputEnd:800}
	// StaleSettingsVersion
	// <nil> 3 []
}

func Example_codomainAndColorModel() {
	ctx := context.Background()
	svc, _ := makeService(2)
	d := makeDescription(2)

	s, err := svc.Create(ctx, 7, 1)
	fmt.Println(err, s.Codomain, s.ColorModel, s.IsGreyscale())

	s, err = svc.Update(ctx, s, SetCodomain(20, 200), SetColorModel(GreyscaleModel))
	fmt.Println(err, s.Version, s.Codomain, s.ColorModel, s.IsGreyscale())

	// Changing the bit depth resets the codomain to the new full range
	s, err = svc.Update(ctx, s, SetBitDepth(4))
	fmt.Println(err, s.Version, s.Codomain)

	_, err = svc.Update(ctx, s, SetCodomain(0, 16))
	fmt.Println(err)
	_, err = svc.Update(ctx, s, SetCodomain(9, 3))
	fmt.Println(err)
	_, err = svc.Update(ctx, s, SetColorModel("cmyk"))
	fmt.Println(err)

	// A codomain in the same request as a bit depth applies to the new depth
	var req ChangeRequest
	err = json.Unmarshal([]byte(`{"version": 3, "codomain": {"start": 1, "end": 2}, "bitDepth": 2, "colorModel": "rgb"}`), &req)
	fmt.Println(err, len(req.Mutations()))
	s, err = svc.Apply(ctx, 7, 1, req)
	fmt.Println(err, s.Version, s.BitDepth, s.Codomain, s.ColorModel)

	s, err = svc.ResetDefaults(ctx, s)
	fmt.Println(err, s.Version, s.BitDepth, s.Codomain, s.ColorModel)

	// Settings saved before the colour model existed count as RGB
	old := Defaults(d, 1)
	old.ColorModel = ""
	fmt.Println(old.Validate(d), old.IsGreyscale())

	// Output:
	// <nil> {0 255} rgb false
	// <nil> 2 {20 200} greyscale true
	// <nil> 3 {0 15}
	// invalid configuration: codomain [0,16] not within [0,15] for bit depth 4
	// invalid configuration: codomain [9,3] not within [0,15] for bit depth 4
	// invalid configuration: unknown colour model "cmyk"
	// <nil> 3
	// <nil> 4 2 {1 2} rgb
	// <nil> 5 8 {0 255} rgb
	// <nil> false
}

// Concurrent updates based on the same version: exactly one wins, the rest must reload
func TestConcurrentUpdatesOneWins(t *testing.T) {
	ctx := context.Background()
	svc, _ := makeService(3)

	base, err := svc.Create(ctx, 7, 1)
	if err != nil {
		t.Fatal(err)
	}

	const callers = 20
	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(bits int) {
			defer wg.Done()
			_, err := svc.Update(ctx, base, SetBitDepth(bits))
			results <- err
		}(i%8 + 1)
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
		} else if !errorwithstatus.IsKind(err, errorwithstatus.StaleSettingsVersion) {
			t.Errorf("unexpected error: %v", err)
		}
	}

	if wins != 1 {
		t.Errorf("expected exactly 1 successful update, got %v", wins)
	}

	latest, _, _ := svc.Load(ctx, 7, 1)
	if latest.Version != 2 {
		t.Errorf("expected version 2, got %v", latest.Version)
	}
}

func Test_MongoStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("load missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "pixelrender-unit_test.renderingSettings", mtest.FirstBatch))

		store := NewMongoStore(mt.DB)
		s, ok, err := store.Load(context.TODO(), 7, 1)
		if s != nil || ok || err != nil {
			t.Errorf("expected nothing, got %v %v %v", s, ok, err)
		}
	})

	mt.Run("load", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(
			0,
			"pixelrender-unit_test.renderingSettings",
			mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: "7_1"},
				{Key: "pixelsetid", Value: int64(7)},
				{Key: "userid", Value: int64(1)},
				{Key: "version", Value: int64(3)},
				{Key: "bitdepth", Value: 8},
				{Key: "channels", Value: bson.A{
					bson.D{{Key: "active", Value: true}, {Key: "color", Value: bson.D{{Key: "r", Value: 255}, {Key: "g", Value: 0}, {Key: "b", Value: 0}}}, {Key: "family", Value: int32(quantum.Logarithmic)}, {Key: "coefficient", Value: 1.0}, {Key: "inputstart", Value: 0.0}, {Key: "inputend", Value: 100.0}},
				}},
			},
		))

		store := NewMongoStore(mt.DB)
		s, ok, err := store.Load(context.TODO(), 7, 1)
		if err != nil || !ok {
			t.Fatalf("load failed: %v %v", ok, err)
		}
		if s.Version != 3 || s.Channels[0].Family != quantum.Logarithmic || s.Channels[0].Color != Red {
			t.Errorf("unexpected settings: %+v", s)
		}
	})

	mt.Run("create clash", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		store := NewMongoStore(mt.DB)
		err := store.Save(context.TODO(), Defaults(makeDescription(1), 1), 0)
		if !errorwithstatus.IsKind(err, errorwithstatus.StaleSettingsVersion) {
			t.Errorf("expected stale, got %v", err)
		}
	})

	mt.Run("update stale", func(mt *mtest.T) {
		mt.AddMockResponses(
			bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}, {Key: "nModified", Value: 1}},
			bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}, {Key: "nModified", Value: 0}},
		)

		store := NewMongoStore(mt.DB)
		s := Defaults(makeDescription(1), 1)
		s.Version = 4
		if err := store.Save(context.TODO(), s, 3); err != nil {
			t.Errorf("unexpected error: %v", err)
		}

		s.Version = 5
		err := store.Save(context.TODO(), s, 3)
		if !errorwithstatus.IsKind(err, errorwithstatus.StaleSettingsVersion) {
			t.Errorf("expected stale, got %v", err)
		}
	})
}
