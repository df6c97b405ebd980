package main

// data module holds all data representations used in our package
//
// Copyright (c) 2023 - Valentin Kuznetsov <vkuznet@gmail.com>
//

import (
	"fmt"
	"path/filepath"
)

// conventional file system layout shared by all sub-commands
const (
	DataDescriptor = "data.yaml"                 // dataset descriptor file
	BaseWeights    = "yolo11n.pt"                // pretrained weights identifier
	RunName        = "mushroom_detector_rtx4050" // training run name
	RunsProject    = "runs/detect"               // training runs area
	TestImagesDir  = "test/images"               // images used by automatic test
	PredictRunName = "predict"                   // prediction run name
)

// DatasetFolders lists required dataset folders
var DatasetFolders = []string{
	"train/images", "train/labels",
	"valid/images", "valid/labels",
	"test/images", "test/labels",
}

// DatasetClasses lists class names which should be defined in data.yaml
var DatasetClasses = []string{"chanterelle", "death-cap", "field-mushroom"}

// RunDir returns directory of training run
func RunDir() string {
	return filepath.Join(RunsProject, RunName)
}

// WeightsPath returns conventional path of the trained model artifact
func WeightsPath() string {
	return filepath.Join(RunDir(), "weights", "best.pt")
}

// MemorySnapshot represents accelerator memory state, all values are in GiB
type MemorySnapshot struct {
	Device    string  `json:"device"`    // device name
	Total     float64 `json:"total"`     // total device memory
	Allocated float64 `json:"allocated"` // memory occupied by tensors
	Reserved  float64 `json:"reserved"`  // memory held by allocator cache
}

// Free returns free memory of the snapshot
func (m MemorySnapshot) Free() float64 {
	return m.Total - m.Reserved
}

// Metrics represents summary validation metrics of trained model
type Metrics struct {
	MAP50     float64 `json:"map50"`     // mAP at IoU 0.5
	MAP50_95  float64 `json:"map50_95"`  // mAP averaged over IoU 0.5-0.95
	Precision float64 `json:"precision"` // mean precision
	Recall    float64 `json:"recall"`    // mean recall
}

// String provides string representation of Metrics
func (m Metrics) String() string {
	return fmt.Sprintf("mAP50=%.3f mAP50-95=%.3f P=%.3f R=%.3f", m.MAP50, m.MAP50_95, m.Precision, m.Recall)
}

// Detection represents single detected box
type Detection struct {
	ClassID    int     `json:"class_id"`
	Confidence float64 `json:"confidence"`
}

// Prediction represents inference result for a single image
type Prediction struct {
	Source     string      `json:"source"`
	Detections []Detection `json:"detections"`
}

// TrainingResult represents outcome of successful training run
type TrainingResult struct {
	RunID   string  `json:"run_id"`  // training run identifier
	RunDir  string  `json:"run_dir"` // training run directory
	Weights string  `json:"weights"` // trained weights file
	Metrics Metrics `json:"metrics"` // final validation metrics
	Output  string  `json:"-"`       // raw output of training routine
}
