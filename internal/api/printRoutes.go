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
	"fmt"
	"sort"
	"strings"
)

// printRoutes - routes come in as METHOD/path
func printRoutes(routes []string) {
	paths := []string{}
	longestPath := 0
	for _, k := range routes {
		pathStart := strings.Index(k, "/")
		if pathStart < 0 {
			continue
		}
		method := k[0:pathStart]
		path := k[pathStart:]

		// Store it so it's sortable by path but we can split it later
		paths = append(paths, fmt.Sprintf("%v|%v", path, method))

		if len(path) > longestPath {
			longestPath = len(path)
		}
	}
	sort.Strings(paths)

	fmt.Println("Routes:")
	fmtString := fmt.Sprintf("%%-7v%%-%vv\n", longestPath)

	for _, path := range paths {
		bits := strings.Split(path, "|")
		fmt.Printf(fmtString, bits[1], bits[0])
	}
}
