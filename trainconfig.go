package main

// training configuration module
//
// Copyright (c) 2024 - mushroom authors
//

import (
	"fmt"
	"strconv"
)

// TrainingConfig represents parameters of the external training routine.
// The profile fits a 6GB VRAM consumer GPU. Values are passed through
// as is, the detection library owns their semantics.
type TrainingConfig struct {
	Data        string // dataset descriptor
	Model       string // pretrained weights identifier
	Epochs      int
	ImgSize     int
	Batch       int
	Patience    int // early stopping
	Save        bool
	Device      string
	Workers     int
	AMP         bool // mixed precision
	Cache       bool // keep images in RAM
	CloseMosaic int  // disable mosaic during last epochs
	Name        string
	Project     string
	ExistOK     bool
	Pretrained  bool

	// optimizer
	Optimizer    string
	LR0          float64
	WeightDecay  float64
	WarmupEpochs int

	// loss gains
	Box float64
	Cls float64
	DFL float64

	// augmentation
	HSVH        float64
	HSVS        float64
	HSVV        float64
	Degrees     float64
	Translate   float64
	Scale       float64
	Shear       float64
	Perspective float64
	FlipUD      float64
	FlipLR      float64
	Mosaic      float64
	Mixup       float64
	CopyPaste   float64
}

// DefaultTrainingConfig returns fixed training profile
func DefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{
		Data:        DataDescriptor,
		Model:       BaseWeights,
		Epochs:      100,
		ImgSize:     480,
		Batch:       4,
		Patience:    15,
		Save:        true,
		Device:      "0",
		Workers:     2,
		AMP:         true,
		Cache:       false,
		CloseMosaic: 15,
		Name:        RunName,
		Project:     RunsProject,
		ExistOK:     true,
		Pretrained:  true,

		Optimizer:    "AdamW",
		LR0:          0.001,
		WeightDecay:  0.0005,
		WarmupEpochs: 3,

		Box: 7.5,
		Cls: 0.5,
		DFL: 1.5,

		HSVH:        0.015,
		HSVS:        0.7,
		HSVV:        0.4,
		Degrees:     0.0,
		Translate:   0.1,
		Scale:       0.5,
		Shear:       0.0,
		Perspective: 0.0,
		FlipUD:      0.0,
		FlipLR:      0.5,
		Mosaic:      1.0,
		Mixup:       0.0,
		CopyPaste:   0.0,
	}
}

// configParam represents single key=value training parameter
type configParam struct {
	Key   string
	Value string
}

// helper function to format float parameter
func ff(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// helper function to list parameters in the order of the training profile
func (c TrainingConfig) params() []configParam {
	return []configParam{
		{"data", c.Data},
		{"model", c.Model},
		{"epochs", strconv.Itoa(c.Epochs)},
		{"imgsz", strconv.Itoa(c.ImgSize)},
		{"batch", strconv.Itoa(c.Batch)},
		{"patience", strconv.Itoa(c.Patience)},
		{"save", strconv.FormatBool(c.Save)},
		{"device", c.Device},
		{"workers", strconv.Itoa(c.Workers)},
		{"amp", strconv.FormatBool(c.AMP)},
		{"cache", strconv.FormatBool(c.Cache)},
		{"close_mosaic", strconv.Itoa(c.CloseMosaic)},
		{"name", c.Name},
		{"project", c.Project},
		{"exist_ok", strconv.FormatBool(c.ExistOK)},
		{"pretrained", strconv.FormatBool(c.Pretrained)},
		{"optimizer", c.Optimizer},
		{"lr0", ff(c.LR0)},
		{"weight_decay", ff(c.WeightDecay)},
		{"warmup_epochs", strconv.Itoa(c.WarmupEpochs)},
		{"box", ff(c.Box)},
		{"cls", ff(c.Cls)},
		{"dfl", ff(c.DFL)},
		{"hsv_h", ff(c.HSVH)},
		{"hsv_s", ff(c.HSVS)},
		{"hsv_v", ff(c.HSVV)},
		{"degrees", ff(c.Degrees)},
		{"translate", ff(c.Translate)},
		{"scale", ff(c.Scale)},
		{"shear", ff(c.Shear)},
		{"perspective", ff(c.Perspective)},
		{"flipud", ff(c.FlipUD)},
		{"fliplr", ff(c.FlipLR)},
		{"mosaic", ff(c.Mosaic)},
		{"mixup", ff(c.Mixup)},
		{"copy_paste", ff(c.CopyPaste)},
	}
}

// Args renders configuration as key=value arguments of the yolo command line
func (c TrainingConfig) Args() []string {
	var args []string
	for _, p := range c.params() {
		args = append(args, fmt.Sprintf("%s=%s", p.Key, p.Value))
	}
	return args
}

// Map returns configuration as key value map
func (c TrainingConfig) Map() map[string]interface{} {
	out := make(map[string]interface{})
	for _, p := range c.params() {
		out[p.Key] = p.Value
	}
	return out
}
