package main

// tester module runs inference of the trained model with safety annotations
//
// Copyright (c) 2024 - mushroom authors
//

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// test modes, numeric values match original menu choices
const (
	ModeAuto   = "auto"
	ModeSingle = "single"
)

// helper function to normalize test mode given as menu choice or name
func testMode(mode string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "1", ModeAuto:
		return ModeAuto, nil
	case "2", ModeSingle:
		return ModeSingle, nil
	}
	return "", NewError(InvalidInput, fmt.Sprintf("invalid test mode %q", mode), nil)
}

// Tester runs inference of trained model over images
type Tester struct {
	Accelerator Accelerator // used to pick inference device
	Detector    Detector    // external detection library
	Out         io.Writer   // report output
	Dir         string      // working directory
	Weights     string      // trained model artifact
	Confidence  float64     // confidence threshold
	Samples     int         // number of images used by automatic test
}

// NewTester creates tester from current configuration
func NewTester(runner CommandRunner, out io.Writer) *Tester {
	return &Tester{
		Accelerator: newAccelerator(runner),
		Detector:    &YoloClient{Runner: runner, Yolo: Config.Yolo, Dir: Config.WorkDir},
		Out:         out,
		Dir:         Config.WorkDir,
		Weights:     WeightsPath(),
		Confidence:  Config.Confidence,
		Samples:     Config.SampleImages,
	}
}

// helper function to check presence of trained model
func (t *Tester) checkModel() error {
	if pathExists(workPath(t.Dir, t.Weights)) {
		return nil
	}
	fmt.Fprintln(t.Out, failStyle.Render("❌ Trained model not found!"))
	fmt.Fprintf(t.Out, "🔍 Looked in: %s\n", t.Weights)
	fmt.Fprintln(t.Out, "💡 Run training first: mushroom train")
	return NewError(PrerequisiteMissing, "model not found: "+t.Weights, nil)
}

// helper function to pick inference device
func (t *Tester) device() string {
	if t.Accelerator != nil && t.Accelerator.Available() {
		return "0"
	}
	return "cpu"
}

// helper function to list first n jpg images of test set
func sampleImages(dir string, n int) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.jpg"))
	if err != nil {
		return nil, errors.Wrapf(err, "unable to list %s", dir)
	}
	sort.Strings(files)
	if len(files) > n {
		files = files[:n]
	}
	return files, nil
}

// RunAuto tests trained model on sample images of the test set
func (t *Tester) RunAuto(ctx context.Context) error {
	if err := t.checkModel(); err != nil {
		return err
	}
	w := t.Out
	fmt.Fprintln(w, "📥 Loading trained model...")
	images, err := sampleImages(workPath(t.Dir, TestImagesDir), t.Samples)
	if err != nil {
		return NewError(PrerequisiteMissing, "unable to read test images", err)
	}
	fmt.Fprintf(w, "🧪 Testing on %d images...\n", len(images))
	device := t.device()
	for _, img := range images {
		// detector runs within working directory, relative paths would be resolved twice
		if abs, err := filepath.Abs(img); err == nil {
			img = abs
		}
		fmt.Fprintf(w, "\n📸 Processing: %s\n", filepath.Base(img))
		preds, err := t.Detector.Predict(ctx, t.Weights, img, t.Confidence, device)
		if err != nil {
			fmt.Fprintln(w, failStyle.Render(fmt.Sprintf("❌ Error: %v", err)))
			return err
		}
		for _, pred := range preds {
			reportBrief(w, pred)
		}
	}
	fmt.Fprintf(w, "\n✅ Test complete! Results saved in: %s/\n", filepath.Join(RunsProject, PredictRunName))
	return nil
}

// RunSingle tests trained model on given image
func (t *Tester) RunSingle(ctx context.Context, image string) error {
	if err := t.checkModel(); err != nil {
		return err
	}
	w := t.Out
	image = strings.TrimSpace(image)
	if image == "" || !pathExists(workPath(t.Dir, image)) {
		fmt.Fprintln(w, failStyle.Render("❌ Image does not exist!"))
		return NewError(InvalidInput, fmt.Sprintf("image %q does not exist", image), nil)
	}
	if !filepath.IsAbs(image) {
		if abs, err := filepath.Abs(workPath(t.Dir, image)); err == nil {
			image = abs
		}
	}
	fmt.Fprintln(w, "🔍 Analyzing image...")
	preds, err := t.Detector.Predict(ctx, t.Weights, image, t.Confidence, t.device())
	if err != nil {
		fmt.Fprintln(w, failStyle.Render(fmt.Sprintf("❌ Error: %v", err)))
		return err
	}
	for _, pred := range preds {
		reportDetailed(w, pred)
	}
	return nil
}

// helper function to report detections of single image in short form
func reportBrief(w io.Writer, pred Prediction) {
	if len(pred.Detections) == 0 {
		fmt.Fprintln(w, "   ❓ No mushrooms detected")
		return
	}
	for _, det := range pred.Detections {
		label := LookupClass(det.ClassID)
		fmt.Fprintf(w, "   🍄 Detected: %s %s\n", label.Name, label.Verdict)
		fmt.Fprintf(w, "   📊 Confidence: %.2f%%\n", det.Confidence*100)
		if label.Toxic {
			fmt.Fprintln(w, failStyle.Render("   ⚠️  WARNING: TOXIC MUSHROOM!"))
		}
	}
}

// helper function to report numbered detections with safety verdicts
func reportDetailed(w io.Writer, pred Prediction) {
	if len(pred.Detections) == 0 {
		fmt.Fprintln(w, "❓ No mushrooms detected in the image")
		return
	}
	fmt.Fprintf(w, "\n🍄 Found %d mushrooms:\n", len(pred.Detections))
	for i, det := range pred.Detections {
		label := LookupClass(det.ClassID)
		fmt.Fprintf(w, "   %d. %s %s\n", i+1, label.Marker, label.Name)
		fmt.Fprintf(w, "      Safety: %s\n", label.Verdict)
		fmt.Fprintf(w, "      Confidence: %.2f%%\n", det.Confidence*100)
		if label.Toxic {
			fmt.Fprintln(w, failStyle.Render("      🚨 DO NOT EAT! Contact a specialist!"))
		}
	}
}

// helper function to check presence of trained weights file
func hasWeights(dir string) bool {
	info, err := os.Stat(workPath(dir, WeightsPath()))
	return err == nil && !info.IsDir()
}
