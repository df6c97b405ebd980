package main

// config module
//
// Copyright (c) 2023 - Valentin Kuznetsov <vkuznet@gmail.com>
//

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

// envPrefix defines prefix of environment variables which override configuration
const envPrefix = "MUSHROOM_"

// Configuration stores tool configuration parameters
type Configuration struct {
	Verbose int    `koanf:"verbose"`  // verbose output
	LogFile string `koanf:"log_file"` // log file name, rotated daily
	WorkDir string `koanf:"work_dir"` // directory holding dataset and runs area

	// external executables
	Python string `koanf:"python"` // python interpreter hosting detection library
	Pip    string `koanf:"pip"`    // python package manager
	Yolo   string `koanf:"yolo"`   // detection library command line
	Smi    string `koanf:"smi"`    // nvidia-smi executable

	// validator and resource guard tunables
	MinPython    string  `koanf:"min_python"`     // minimal python version
	MinFreeVRAM  float64 `koanf:"min_free_vram"`  // free GiB required before training
	MinVRAM      float64 `koanf:"min_vram"`       // GiB of VRAM considered suitable for training
	GPUHint      string  `koanf:"gpu_hint"`       // GPU name considered suitable for training
	MinDiskSpace float64 `koanf:"min_disk_space"` // free GiB of disk space required for training
	AllocSplitMB int     `koanf:"alloc_split_mb"` // allocator max split size

	// inference parts
	Confidence   float64 `koanf:"confidence"`    // confidence threshold
	SampleImages int     `koanf:"sample_images"` // number of images used by automatic test

	// setup parts
	TorchIndexURL string `koanf:"torch_index_url"` // CUDA enabled torch wheels index

	// MetaData parts
	DBURI  string `koanf:"db_uri"`  // meta-data server URI
	DBName string `koanf:"db_name"` // meta-data database name
	DBColl string `koanf:"db_coll"` // meta-data database collection
}

// Config variable represents configuration object
var Config = defaultConfig()

// helper function to return default configuration
func defaultConfig() Configuration {
	return Configuration{
		Python:        "python3",
		Pip:           "pip",
		Yolo:          "yolo",
		Smi:           "nvidia-smi",
		MinPython:     "3.8",
		MinFreeVRAM:   2.0,
		MinVRAM:       6.0,
		GPUHint:       "4050",
		MinDiskSpace:  10,
		AllocSplitMB:  128,
		Confidence:    0.25,
		SampleImages:  5,
		TorchIndexURL: "https://download.pytorch.org/whl/cu118",
		DBName:        "mushroom",
		DBColl:        "runs",
	}
}

// helper function to parse configuration file, an empty name yields
// default configuration with environment overrides
func parseConfig(configFile string) error {
	var provider koanf.Provider
	if configFile != "" {
		provider = file.Provider(filepath.Clean(configFile))
	}
	cfg, err := readConfig(provider)
	if err != nil {
		log.Println("Unable to parse", err)
		return err
	}
	Config = cfg
	return nil
}

// helper function to read configuration from given provider
func readConfig(provider koanf.Provider) (Configuration, error) {
	var cfg Configuration
	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return cfg, errors.Wrap(err, "unable to load defaults")
	}
	if provider != nil {
		if err := k.Load(provider, yaml.Parser()); err != nil {
			return cfg, errors.Wrap(err, "unable to read config")
		}
	}
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)
	if err != nil {
		return cfg, errors.Wrap(err, "unable to load environment")
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, errors.Wrap(err, "unable to unmarshal config")
	}

	// default values
	if cfg.WorkDir == "" {
		cdir, err := os.Getwd()
		if err == nil {
			cfg.WorkDir = cdir
		} else {
			cfg.WorkDir = "."
		}
	}
	if cfg.SampleImages <= 0 {
		cfg.SampleImages = 5
	}
	if cfg.AllocSplitMB <= 0 {
		cfg.AllocSplitMB = 128
	}
	return cfg, nil
}
