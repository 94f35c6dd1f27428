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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "thumbnail_cache_hits_total",
		Help: "Thumbnails returned without rendering.",
	}, []string{"source"})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "thumbnail_cache_misses_total",
		Help: "Thumbnails that had to be rendered.",
	})
	storeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "thumbnail_store_errors_total",
		Help: "Failures reading or writing the thumbnail backing store.",
	})
	evictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "thumbnail_cache_evictions_total",
		Help: "Thumbnails dropped from memory to stay within the byte budget.",
	})
	renderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "thumbnail_render_time_seconds",
		Help: "Duration of thumbnail renders including scaling.",
	})
)
