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
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gorilla/handlers"
	"github.com/pixlise/pixelrender/api/config"
	"github.com/pixlise/pixelrender/api/endpoints"
	"github.com/pixlise/pixelrender/api/services"
	"github.com/pixlise/pixelrender/api/thumbnailgc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// This is for prometheus
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		http.ListenAndServe(":2112", nil)
	}()

	cfg := loadConfig()
	svcs := services.InitAPIServices(cfg)
	defer sentry.Flush(2 * time.Second)

	if svcs.ThumbnailGCStore != nil && cfg.ThumbnailGCIntervalSec > 0 {
		go thumbnailgc.RunThumbnailGarbageCollector(cfg.ThumbnailGCIntervalSec, cfg.MaxUnreadThumbnailAgeSec, svcs.ThumbnailGCStore, svcs.TimeStamper, svcs.Log)
	}

	router := endpoints.MakeRouter(&svcs)
	printRoutes(router.Routes())

	logware := endpoints.LoggerMiddleware{Log: svcs.Log}
	router.Router.Use(logware.Middleware, endpoints.PrometheusMiddleware)

	// Now also log this to the world...
	svcs.Log.Infof("API version \"%v\" started on port %v...", services.ApiVersion, cfg.Port)

	log.Fatal(
		http.ListenAndServe(fmt.Sprintf(":%v", cfg.Port),
			handlers.CORS(
				handlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type", "Authorization", "X-User-Id"}),
				handlers.AllowedMethods([]string{"GET", "POST", "PUT", "HEAD", "OPTIONS"}),
				handlers.AllowedOrigins([]string{"*"}))(router.Router)))
}

func loadConfig() config.RenderConfig {
	cfg, err := config.Init()
	if err != nil {
		log.Fatalf("Something went wrong with API config. Error: %v\n", err)
	}

	// Show the config
	cfgJSON, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		log.Fatalf("Error trying to display config\n")
	}

	log.Println(string(cfgJSON))
	return cfg
}
