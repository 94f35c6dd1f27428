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

import "fmt"

// Key - identifies one cached thumbnail. Settings versions count per (pixel set, user) so the user
// is part of the key too
type Key struct {
	PixelSetID int64 `json:"pixelSetId"`
	UserID     int64 `json:"userId"`
	Version    int64 `json:"version"`
	Width      int   `json:"width"`
	Height     int   `json:"height"`
}

func (k Key) String() string {
	return fmt.Sprintf("%v_%v_v%v_%vx%v", k.PixelSetID, k.UserID, k.Version, k.Width, k.Height)
}

