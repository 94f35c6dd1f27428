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

package utils

import "fmt"

func Example_clamp() {
	fmt.Println(Clamp(5, 0, 3), Clamp(-1.5, 0, 1), Clamp(uint8(7), 2, 9))
	fmt.Println(ItemInSlice(4, []int{1, 4, 9}), ItemInSlice("z", []string{"a"}))
	fmt.Println(GetSortedMapKeys(map[int64]bool{30: true, 10: false, 20: true}))

	// Output:
	// 3 0 7
	// true false
	// [10 20 30]
}
