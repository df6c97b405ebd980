package main

// trainer module runs training of the mushroom detector
//
// Copyright (c) 2024 - mushroom authors
//

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Trainer runs resource guarded training of the detector
type Trainer struct {
	Accelerator  Accelerator // accelerator used by training routine
	Detector     Detector    // external detection library
	Store        RunStore    // optional training runs store
	Reclaim      func()      // general memory reclamation
	Out          io.Writer   // report output
	Dir          string      // working directory
	MinFreeVRAM  float64     // free GiB required to start training
	AllocSplitMB int         // allocator max split size
}

// NewTrainer creates trainer from current configuration
func NewTrainer(runner CommandRunner, out io.Writer) *Trainer {
	t := &Trainer{
		Accelerator:  newAccelerator(runner),
		Detector:     &YoloClient{Runner: runner, Yolo: Config.Yolo, Dir: Config.WorkDir, Stream: out},
		Reclaim:      reclaimMemory,
		Out:          out,
		Dir:          Config.WorkDir,
		MinFreeVRAM:  Config.MinFreeVRAM,
		AllocSplitMB: Config.AllocSplitMB,
	}
	// a nil *MetaData must not become a non-nil RunStore
	if md := NewMetaData(); md != nil {
		t.Store = md
	}
	return t
}

// Run checks accelerator memory, trains the detector with fixed profile
// and validates trained weights. Any failure yields nil result.
func (t *Trainer) Run(ctx context.Context) (*TrainingResult, error) {
	w := t.Out
	ok, _ := CheckGPUMemory(t.Accelerator, t.MinFreeVRAM, w)
	if !ok {
		fmt.Fprintln(w, warnStyle.Render("⚠️  Insufficient GPU memory!"))
		reason := fmt.Sprintf("GPU is not available or has less than %.1f GiB free", t.MinFreeVRAM)
		return nil, NewError(ResourceExhausted, reason, nil)
	}
	env := OptimizeMemory(t.Accelerator, t.Reclaim, t.AllocSplitMB, w)

	cfg := DefaultTrainingConfig()
	fmt.Fprintf(w, "📥 Loading model %s...\n", cfg.Model)
	fmt.Fprintln(w, "🚀 Starting training with optimized parameters...")
	fmt.Fprintln(w, "📋 Key parameters:")
	fmt.Fprintf(w, "   • Batch size: %d\n", cfg.Batch)
	fmt.Fprintf(w, "   • Image size: %d\n", cfg.ImgSize)
	fmt.Fprintf(w, "   • Mixed precision: %v\n", cfg.AMP)
	fmt.Fprintf(w, "   • Workers: %d\n", cfg.Workers)
	fmt.Fprintln(w, strings.Repeat("-", 40))
	return t.train(ctx, cfg, env)
}

// helper function to release accelerator memory after training
func (t *Trainer) cleanup() {
	if t.Accelerator != nil {
		t.Accelerator.ClearCache()
	}
	if t.Reclaim != nil {
		t.Reclaim()
	}
}

// helper function to run training and validation, cleanup runs on every return
// path including panics of external collaborators
func (t *Trainer) train(ctx context.Context, cfg TrainingConfig, env []string) (result *TrainingResult, err error) {
	defer t.cleanup()
	w := t.Out

	runID := uuid.New().String()
	start := time.Now()
	t.recordStart(Record{
		RunID:   runID,
		Model:   cfg.Name,
		Type:    "PyTorch",
		Dataset: cfg.Data,
		Config:  cfg.Map(),
		Weights: WeightsPath(),
		Started: start,
	})
	defer func() {
		t.recordFinish(runID, result, err)
	}()

	output, err := t.Detector.Train(ctx, cfg, env)
	if err != nil {
		if KindOf(err) == ResourceExhausted {
			fmt.Fprintln(w, failStyle.Render("❌ CUDA out of memory!"))
			fmt.Fprintln(w, "💡 Try to reduce batch size to 2 or 1")
			fmt.Fprintln(w, "💡 Or reduce imgsz to 416")
			return nil, err
		}
		fmt.Fprintln(w, failStyle.Render(fmt.Sprintf("❌ Error: %v", err)))
		if KindOf(err) != ExternalRoutineFailure {
			err = NewError(ExternalRoutineFailure, "training failed", err)
		}
		return nil, err
	}
	fmt.Fprintln(w, passStyle.Render("✅ Training complete!"))
	fmt.Fprintf(w, "📁 Model saved in: %s/\n", RunDir())

	fmt.Fprintln(w, "🧪 Running final validation...")
	metrics, err := t.Detector.Validate(ctx, WeightsPath(), cfg.Data)
	if err != nil {
		fmt.Fprintln(w, failStyle.Render(fmt.Sprintf("❌ Error: %v", err)))
		if KindOf(err) == GenericError {
			err = NewError(ExternalRoutineFailure, "validation failed", err)
		}
		return nil, err
	}
	fmt.Fprintln(w, "📊 Final results:")
	fmt.Fprintf(w, "   • mAP50: %.3f\n", metrics.MAP50)
	fmt.Fprintf(w, "   • mAP50-95: %.3f\n", metrics.MAP50_95)
	fmt.Fprintf(w, "   • Precision: %.3f\n", metrics.Precision)
	fmt.Fprintf(w, "   • Recall: %.3f\n", metrics.Recall)

	result = &TrainingResult{
		RunID:   runID,
		RunDir:  RunDir(),
		Weights: WeightsPath(),
		Metrics: metrics,
		Output:  output,
	}
	md := trainingMarkdown(*result, cfg, start, time.Now())
	if fname, rerr := writeReport(workPath(t.Dir, RunDir()), md); rerr != nil {
		log.Println("unable to write training report", rerr)
	} else {
		fmt.Fprintf(w, "📝 Report written to %s\n", fname)
	}
	return result, nil
}

// helper function to record start of the training run
func (t *Trainer) recordStart(rec Record) {
	if t.Store == nil {
		return
	}
	if err := t.Store.Start(rec); err != nil {
		log.Println("unable to record training run", err)
	}
}

// helper function to record final status of the training run
func (t *Trainer) recordFinish(runID string, result *TrainingResult, err error) {
	if t.Store == nil {
		return
	}
	status, reason := RunSucceeded, ""
	var metrics Metrics
	if result != nil {
		metrics = result.Metrics
	}
	if err != nil {
		status, reason = RunFailed, err.Error()
	} else if result == nil {
		status, reason = RunFailed, "interrupted"
	}
	if err := t.Store.Finish(runID, status, reason, metrics); err != nil {
		log.Println("unable to update training run", err)
	}
}
