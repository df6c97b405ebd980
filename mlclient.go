package main

// client functions for the detection library command line
//
// Copyright (c) 2023 - Valentin Kuznetsov <vkuznet@gmail.com>
//

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Detector represents external object-detection library
type Detector interface {
	// Train runs training routine with given configuration and extra environment
	Train(ctx context.Context, cfg TrainingConfig, env []string) (string, error)
	// Validate runs validation pass of given weights over dataset descriptor
	Validate(ctx context.Context, weights, data string) (Metrics, error)
	// Predict runs single image inference
	Predict(ctx context.Context, weights, source string, conf float64, device string) ([]Prediction, error)
}

// YoloClient implements Detector on top of ultralytics yolo command line
type YoloClient struct {
	Runner CommandRunner // command runner
	Yolo   string        // yolo executable
	Dir    string        // working directory holding dataset and runs area
	Stream io.Writer     // receives training output while it runs
}

// helper function to check if output of external routine reports out of memory condition
func isOutOfMemory(output string) bool {
	return strings.Contains(strings.ToLower(output), "out of memory")
}

// helper function to extract last non-empty line of the output
func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

// helper function to convert command failure into typed error
func routineError(res CommandResult, err error) error {
	out := res.Output()
	if isOutOfMemory(out) {
		return NewError(ResourceExhausted, "CUDA out of memory", err)
	}
	reason := lastLine(out)
	if reason == "" {
		reason = "external routine failed"
	}
	return NewError(ExternalRoutineFailure, reason, err)
}

// Train runs yolo detect train with given configuration
func (y *YoloClient) Train(ctx context.Context, cfg TrainingConfig, env []string) (string, error) {
	args := append([]string{"detect", "train"}, cfg.Args()...)
	if Config.Verbose > 0 {
		log.Printf("train with %s %s env=%v", y.Yolo, strings.Join(args, " "), env)
	}
	cmd := Command{Name: y.Yolo, Args: args, Dir: y.Dir, Env: env, Stream: y.Stream}
	res, err := y.Runner.Run(ctx, cmd)
	if err != nil {
		return res.Output(), routineError(res, err)
	}
	return res.Output(), nil
}

// Validate runs yolo detect val and parses summary metrics
func (y *YoloClient) Validate(ctx context.Context, weights, data string) (Metrics, error) {
	args := []string{"detect", "val", "model=" + weights, "data=" + data}
	res, err := y.Runner.Run(ctx, Command{Name: y.Yolo, Args: args, Dir: y.Dir})
	if err != nil {
		return Metrics{}, routineError(res, err)
	}
	metrics, err := parseValMetrics(res.Output())
	if err != nil {
		return metrics, NewError(ExternalRoutineFailure, "unable to read validation metrics", err)
	}
	return metrics, nil
}

// Predict runs yolo detect predict for single image and reads saved labels
func (y *YoloClient) Predict(ctx context.Context, weights, source string, conf float64, device string) ([]Prediction, error) {
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	labels := workPath(y.Dir, filepath.Join(RunsProject, PredictRunName, "labels", stem+".txt"))
	// labels of previous runs are kept by exist_ok
	if err := os.Remove(labels); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "unable to remove %s", labels)
	}
	args := []string{
		"detect", "predict",
		"model=" + weights,
		"source=" + source,
		"conf=" + ff(conf),
		"device=" + device,
		"save=True",
		"save_txt=True",
		"save_conf=True",
		"project=" + RunsProject,
		"name=" + PredictRunName,
		"exist_ok=True",
	}
	res, err := y.Runner.Run(ctx, Command{Name: y.Yolo, Args: args, Dir: y.Dir})
	if err != nil {
		return nil, routineError(res, err)
	}
	pred := Prediction{Source: source}
	file, err := os.Open(labels)
	if err != nil {
		if os.IsNotExist(err) {
			// nothing detected, yolo does not write empty label files
			return []Prediction{pred}, nil
		}
		return nil, errors.Wrapf(err, "unable to open %s", labels)
	}
	defer file.Close()
	pred.Detections, err = parseLabels(file)
	if err != nil {
		return nil, NewError(ExternalRoutineFailure, "unable to read predictions", err)
	}
	return []Prediction{pred}, nil
}

// helper function to parse prediction label file lines
// "class x_center y_center width height confidence"
func parseLabels(r io.Reader) ([]Detection, error) {
	var out []Detection
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 6 {
			return out, errors.Errorf("malformed label line %q", scanner.Text())
		}
		cls, err := strconv.Atoi(fields[0])
		if err != nil {
			return out, errors.Wrapf(err, "bad class id in %q", scanner.Text())
		}
		conf, err := strconv.ParseFloat(fields[len(fields)-1], 64)
		if err != nil {
			return out, errors.Wrapf(err, "bad confidence in %q", scanner.Text())
		}
		out = append(out, Detection{ClassID: cls, Confidence: conf})
	}
	return out, scanner.Err()
}

// helper function to parse summary row of yolo val output
// "all  <images> <instances> <P> <R> <mAP50> <mAP50-95>"
func parseValMetrics(output string) (Metrics, error) {
	var metrics Metrics
	var row []string
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 7 && fields[0] == "all" {
			row = fields
		}
	}
	if row == nil {
		return metrics, errors.New("summary row not found in validation output")
	}
	var vals [4]float64
	for i := range vals {
		v, err := strconv.ParseFloat(row[3+i], 64)
		if err != nil {
			return metrics, errors.Wrap(err, fmt.Sprintf("bad metric value %q", row[3+i]))
		}
		vals[i] = v
	}
	metrics.Precision = vals[0]
	metrics.Recall = vals[1]
	metrics.MAP50 = vals[2]
	metrics.MAP50_95 = vals[3]
	return metrics, nil
}
