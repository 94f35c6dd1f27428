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

// Renderer API configuration as read from JSON/YAML files and PIXELRENDER_CONFIG_ environment
// variables, with defaults for anything left unset
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/pixlise/pixelrender/core/logger"
	"gopkg.in/yaml.v3"
)

const envPrefix = "PIXELRENDER_CONFIG_"

// RenderConfig combines env vars and config file values
type RenderConfig struct {
	EnvironmentName string `yaml:"EnvironmentName"`
	Port            int    `yaml:"Port"`

	LogLevel       string `yaml:"LogLevel"` // DEBUG, INFO or ERROR
	SentryEndpoint string `yaml:"SentryEndpoint"`

	// Mongo connection. No secret means a local DB without auth
	MongoSecret     string `yaml:"MongoSecret"`
	MongoCAFilePath string `yaml:"MongoCAFilePath"`
	DatabaseName    string `yaml:"DatabaseName"`

	// Raw planes. If LocalStorageRoot is set, buckets are directories under it instead of S3
	LocalStorageRoot string `yaml:"LocalStorageRoot"`
	PlanesBucket     string `yaml:"PlanesBucket"`
	PlanesRoot       string `yaml:"PlanesRoot"`

	// Thumbnail backing store: "mongo", "file" or "none"
	ThumbnailStore       string `yaml:"ThumbnailStore"`
	ThumbnailBucket      string `yaml:"ThumbnailBucket"`
	ThumbnailRoot        string `yaml:"ThumbnailRoot"`
	ThumbnailFormat      string `yaml:"ThumbnailFormat"` // png or jpeg
	DefaultThumbnailSize int    `yaml:"DefaultThumbnailSize"`
	MaxThumbnailSize     int    `yaml:"MaxThumbnailSize"`
	CacheBudgetBytes     int    `yaml:"CacheBudgetBytes"`

	RenderWorkers int `yaml:"RenderWorkers"`

	PyramidSizeThreshold   int  `yaml:"PyramidSizeThreshold"`
	PyramidTileSize        int  `yaml:"PyramidTileSize"`
	PyramidPollMaxAttempts int  `yaml:"PyramidPollMaxAttempts"`
	PyramidPollIntervalMs  uint `yaml:"PyramidPollIntervalMs"`

	ThumbnailGCIntervalSec   uint32 `yaml:"ThumbnailGCIntervalSec"`
	MaxUnreadThumbnailAgeSec uint32 `yaml:"MaxUnreadThumbnailAgeSec"`
}

// Level - LogLevel as a logger.LogLevel
func (c RenderConfig) Level() (logger.LogLevel, error) {
	return logger.ParseLogLevel(c.LogLevel)
}

func NewConfigFromFile(configFilePath string) (RenderConfig, error) {
	fmt.Printf("Loading custom config from: %s\n", configFilePath)
	customConfig, err := os.ReadFile(configFilePath)
	if err != nil {
		return RenderConfig{}, fmt.Errorf("could not read config file at %s", configFilePath)
	}

	isYAML := strings.HasSuffix(configFilePath, ".yaml") || strings.HasSuffix(configFilePath, ".yml")
	return buildConfig(customConfig, isYAML)
}

func buildConfig(configData []byte, isYAML bool) (RenderConfig, error) {
	var cfg RenderConfig

	var err error
	if isYAML {
		err = yaml.Unmarshal(configData, &cfg)
	} else {
		err = json.Unmarshal(configData, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to parse custom config: %v", err)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)
	return cfg, nil
}

// Override Config with any values explicitly set in Env Vars (PIXELRENDER_CONFIG_*)
// NOTE: For []string slices, pass in a comma-separated string
func applyEnvOverrides(cfg *RenderConfig) {
	reflection := reflect.ValueOf(cfg).Elem()
	for i := 0; i < reflection.NumField(); i++ {
		fieldName := reflection.Type().Field(i).Name
		field := reflection.Field(i)
		val, present := os.LookupEnv(envPrefix + fieldName)
		if !present {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(val)
		case reflect.Bool:
			b, err := strconv.ParseBool(val)
			if err != nil {
				fmt.Printf("Could not cast value %s%s=%s to bool\n", envPrefix, fieldName, val)
				continue
			}
			field.SetBool(b)
		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				field.Set(reflect.ValueOf(strings.Split(val, ",")))
			}
		case reflect.Int, reflect.Int32, reflect.Int64:
			i, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				fmt.Printf("Could not cast value %s%s=%s to Int\n", envPrefix, fieldName, val)
				continue
			}
			field.SetInt(i)
		case reflect.Uint, reflect.Uint32, reflect.Uint64:
			u, err := strconv.ParseUint(val, 10, 64)
			if err != nil {
				fmt.Printf("Could not cast value %s%s=%s to Uint\n", envPrefix, fieldName, val)
				continue
			}
			field.SetUint(u)
		case reflect.Float32, reflect.Float64:
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				fmt.Printf("Could not cast value %s%s=%s to Float\n", envPrefix, fieldName, val)
				continue
			}
			field.SetFloat(f)
		}
	}
}

func applyDefaults(cfg *RenderConfig) {
	if cfg.Port <= 0 {
		cfg.Port = 8080
	}
	if len(cfg.LogLevel) <= 0 {
		cfg.LogLevel = logger.LogInfo.String()
	}
	if len(cfg.DatabaseName) <= 0 {
		cfg.DatabaseName = "pixelrender"
	}
	if len(cfg.MongoCAFilePath) <= 0 {
		cfg.MongoCAFilePath = "./rds-combined-ca-bundle.pem"
	}
	if len(cfg.PlanesRoot) <= 0 {
		cfg.PlanesRoot = "planes"
	}
	if len(cfg.ThumbnailStore) <= 0 {
		cfg.ThumbnailStore = "mongo"
	}
	if len(cfg.ThumbnailRoot) <= 0 {
		cfg.ThumbnailRoot = "thumbnails"
	}
	if len(cfg.ThumbnailFormat) <= 0 {
		cfg.ThumbnailFormat = "png"
	}
	if cfg.DefaultThumbnailSize <= 0 {
		cfg.DefaultThumbnailSize = 96
	}
	if cfg.MaxThumbnailSize <= 0 {
		cfg.MaxThumbnailSize = 4096
	}
	if cfg.CacheBudgetBytes <= 0 {
		cfg.CacheBudgetBytes = 64 * 1024 * 1024
	}
	if cfg.PyramidSizeThreshold <= 0 {
		cfg.PyramidSizeThreshold = 3000
	}
	if cfg.PyramidTileSize <= 0 {
		cfg.PyramidTileSize = 256
	}
	if cfg.PyramidPollMaxAttempts <= 0 {
		cfg.PyramidPollMaxAttempts = 10
	}
	if cfg.PyramidPollIntervalMs <= 0 {
		cfg.PyramidPollIntervalMs = 500
	}
	if cfg.ThumbnailGCIntervalSec <= 0 {
		cfg.ThumbnailGCIntervalSec = 60 * 60
	}
	if cfg.MaxUnreadThumbnailAgeSec <= 0 {
		cfg.MaxUnreadThumbnailAgeSec = 7 * 24 * 60 * 60
	}
}

// Validate - checks values defaults can't fix
func (c RenderConfig) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	switch c.ThumbnailStore {
	case "mongo", "none":
	case "file":
		if len(c.ThumbnailBucket) <= 0 {
			return errors.New("ThumbnailBucket must be set for file thumbnail store")
		}
	default:
		return fmt.Errorf("unknown ThumbnailStore: %v", c.ThumbnailStore)
	}
	if c.ThumbnailFormat != "png" && c.ThumbnailFormat != "jpeg" {
		return fmt.Errorf("unknown ThumbnailFormat: %v", c.ThumbnailFormat)
	}
	if len(c.PlanesBucket) <= 0 {
		return errors.New("PlanesBucket must be set")
	}
	return nil
}

// Init config, loads config params
func Init() (RenderConfig, error) {
	configFilePath := flag.String("customConfigPath", "", "Path to the json or yaml file holding config for the pixel renderer")
	flag.Parse()

	if configFilePath == nil || *configFilePath == "" {
		return RenderConfig{}, errors.New("no configuration provided")
	}

	cfg, err := NewConfigFromFile(*configFilePath)
	if err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}
