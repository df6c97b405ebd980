package main

// validator module verifies environment before training
//
// Copyright (c) 2024 - mushroom authors
//

import (
	"context"
	"fmt"
	"io"
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/klauspost/cpuid/v2"
	"github.com/pkg/errors"
)

// PythonModule represents python package and module name used to import it
type PythonModule struct {
	Package string
	Module  string
}

// RequiredModules lists python packages required by training and testing
var RequiredModules = []PythonModule{
	{"torch", "torch"},
	{"torchvision", "torchvision"},
	{"ultralytics", "ultralytics"},
	{"opencv-python", "cv2"},
	{"matplotlib", "matplotlib"},
	{"pillow", "PIL"},
	{"pyyaml", "yaml"},
	{"pandas", "pandas"},
}

// Check represents single named environment check
type Check struct {
	Name string
	Run  func(ctx context.Context) bool
}

// CheckResult represents outcome of environment check
type CheckResult struct {
	Name   string
	Passed bool
}

// Validator verifies python runtime, accelerator, dependencies, dataset and disk space
type Validator struct {
	Runner       CommandRunner
	Accelerator  Accelerator
	Out          io.Writer
	Dir          string
	Python       string
	Pip          string
	Yolo         string
	MinPython    string
	MinVRAM      float64
	GPUHint      string
	MinDiskSpace float64
	IndexURL     string
	DiskSpace    func(path string) (float64, error)
}

// NewValidator creates validator from current configuration
func NewValidator(runner CommandRunner, out io.Writer) *Validator {
	return &Validator{
		Runner:       runner,
		Accelerator:  newAccelerator(runner),
		Out:          out,
		Dir:          Config.WorkDir,
		Python:       Config.Python,
		Pip:          Config.Pip,
		Yolo:         Config.Yolo,
		MinPython:    Config.MinPython,
		MinVRAM:      Config.MinVRAM,
		GPUHint:      Config.GPUHint,
		MinDiskSpace: Config.MinDiskSpace,
		IndexURL:     Config.TorchIndexURL,
		DiskSpace:    freeDiskSpace,
	}
}

// Checks returns list of checks in the order they are run
func (v *Validator) Checks() []Check {
	return []Check{
		{"Python Version", v.CheckPython},
		{"GPU & CUDA", v.CheckGPU},
		{"Dependencies", v.CheckDependencies},
		{"Dataset", v.CheckDataset},
		{"Disk Space", v.CheckDiskSpace},
		{"Host CPU", v.CheckCPU},
	}
}

// Run runs all checks, prints summary and returns error if any check failed
func (v *Validator) Run(ctx context.Context) error {
	w := v.Out
	fmt.Fprintln(w, titleStyle.Render("🍄 PRE-TRAINING SETUP CHECK for Mushroom Detection"))
	fmt.Fprintln(w, "🎯 Optimized for 6GB VRAM GPUs")
	fmt.Fprintln(w, separator(60))

	var results []CheckResult
	for _, check := range v.Checks() {
		results = append(results, CheckResult{Name: check.Name, Passed: check.Run(ctx)})
	}
	failed := v.Summary(results)
	fmt.Fprintln(w, "\n💡 For training run:")
	fmt.Fprintln(w, "   mushroom train")
	fmt.Fprintln(w, "\n🧪 For testing after training:")
	fmt.Fprintln(w, "   mushroom test")
	if len(failed) > 0 {
		return NewError(PrerequisiteMissing, "failed checks: "+strings.Join(failed, ", "), nil)
	}
	return nil
}

// Summary prints check results and returns names of failed checks
func (v *Validator) Summary(results []CheckResult) []string {
	w := v.Out
	fmt.Fprintln(w, "\n"+separator(60))
	fmt.Fprintln(w, titleStyle.Render("📋 CHECK SUMMARY:"))
	var failed []string
	for _, r := range results {
		fmt.Fprintf(w, "   %s %s\n", badge(r.Passed), r.Name)
		if !r.Passed {
			failed = append(failed, r.Name)
		}
	}
	fmt.Fprintln(w, "\n"+separator(60))
	if len(failed) == 0 {
		fmt.Fprintln(w, passStyle.Render("🎉 EVERYTHING IS READY FOR TRAINING!"))
		fmt.Fprintln(w, "🚀 You can run: mushroom train")
		v.estimateTrainingTime()
	} else {
		fmt.Fprintln(w, failStyle.Render("⚠️  THERE ARE PROBLEMS - they must be fixed before training!"))
		v.installCommands()
	}
	return failed
}

var pythonVersionPattern = regexp.MustCompile(`Python (\d+)\.(\d+)(?:\.(\d+))?`)

// helper function to parse "Python X.Y.Z" output
func parsePythonVersion(output string) ([3]int, error) {
	var version [3]int
	m := pythonVersionPattern.FindStringSubmatch(output)
	if m == nil {
		return version, errors.Errorf("unable to find python version in %q", strings.TrimSpace(output))
	}
	for i := 1; i < len(m); i++ {
		if m[i] == "" {
			continue
		}
		version[i-1], _ = strconv.Atoi(m[i])
	}
	return version, nil
}

// helper function to check that version is at least major.minor given as string
func versionAtLeast(version [3]int, min string) bool {
	parts := strings.SplitN(min, ".", 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			log.Printf("bad version component %q in %q", p, min)
			return false
		}
		if version[i] != n {
			return version[i] > n
		}
	}
	return true
}

// CheckPython verifies version of python interpreter hosting detection library
func (v *Validator) CheckPython(ctx context.Context) bool {
	w := v.Out
	fmt.Fprintln(w, "🐍 Checking Python version...")
	res, err := v.Runner.Run(ctx, Command{Name: v.Python, Args: []string{"--version"}})
	if err != nil {
		fmt.Fprintf(w, "   ❌ Python interpreter %s is not available!\n", v.Python)
		return false
	}
	version, err := parsePythonVersion(res.Output())
	if err != nil {
		fmt.Fprintf(w, "   ❌ %v\n", err)
		return false
	}
	fmt.Fprintf(w, "   Python %d.%d.%d\n", version[0], version[1], version[2])
	if versionAtLeast(version, v.MinPython) {
		fmt.Fprintf(w, "   ✅ Python version is OK (%s+)\n", v.MinPython)
		return true
	}
	fmt.Fprintf(w, "   ❌ Python %s or newer is required!\n", v.MinPython)
	return false
}

// CheckGPU verifies accelerator presence and its memory
func (v *Validator) CheckGPU(ctx context.Context) bool {
	w := v.Out
	fmt.Fprintln(w, "\n🖥️  Checking GPU and CUDA...")
	if v.Accelerator == nil || !v.Accelerator.Available() {
		fmt.Fprintln(w, "   ❌ CUDA is not available!")
		return false
	}
	snap, err := v.Accelerator.Memory()
	if err != nil {
		fmt.Fprintf(w, "   ❌ Unable to query GPU: %v\n", err)
		return false
	}
	fmt.Fprintln(w, "   ✅ CUDA detected!")
	fmt.Fprintf(w, "   📱 GPU: %s\n", snap.Device)
	fmt.Fprintf(w, "   💾 VRAM: %s\n", gib(snap.Total))
	if (v.GPUHint != "" && strings.Contains(snap.Device, v.GPUHint)) || snap.Total >= v.MinVRAM {
		fmt.Fprintln(w, "   ✅ GPU is suitable for training!")
		return true
	}
	// training may still work with smaller batches
	fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("   ⚠️  GPU may be too weak (VRAM < %.0fGB)", v.MinVRAM)))
	return true
}

// CheckDependencies verifies that required python packages can be imported
// and detection library command line is available
func (v *Validator) CheckDependencies(ctx context.Context) bool {
	w := v.Out
	fmt.Fprintln(w, "\n📦 Checking dependencies...")
	var missing []string
	for _, m := range RequiredModules {
		_, err := v.Runner.Run(ctx, Command{Name: v.Python, Args: []string{"-c", "import " + m.Module}})
		if err != nil {
			fmt.Fprintf(w, "   ❌ %s - MISSING!\n", m.Package)
			missing = append(missing, m.Package)
			continue
		}
		if m.Package != m.Module {
			fmt.Fprintf(w, "   ✅ %s (%s)\n", m.Package, m.Module)
		} else {
			fmt.Fprintf(w, "   ✅ %s\n", m.Package)
		}
	}
	if path, err := v.Runner.LookPath(v.Yolo); err != nil {
		fmt.Fprintf(w, "   ❌ %s command - MISSING!\n", v.Yolo)
		missing = append(missing, v.Yolo)
	} else {
		fmt.Fprintf(w, "   ✅ %s command (%s)\n", v.Yolo, path)
	}
	if len(missing) > 0 {
		fmt.Fprintf(w, "\n⚠️  Missing packages: %s\n", strings.Join(missing, ", "))
		fmt.Fprintln(w, "💡 Run the install commands listed below")
		return false
	}
	fmt.Fprintln(w, "   ✅ All dependencies are installed!")
	return true
}

// CheckDataset verifies dataset layout within working directory
func (v *Validator) CheckDataset(ctx context.Context) bool {
	fmt.Fprintln(v.Out, "\n📊 Checking dataset...")
	return CheckDataset(v.Dir, v.Out)
}

// CheckDiskSpace verifies free disk space, unknown free space does not fail the check
func (v *Validator) CheckDiskSpace(ctx context.Context) bool {
	w := v.Out
	fmt.Fprintln(w, "\n💾 Checking disk space...")
	free, err := v.DiskSpace(v.Dir)
	if err != nil {
		log.Println(err)
		fmt.Fprintln(w, "   ❓ Unable to check disk space")
		return true
	}
	fmt.Fprintf(w, "   📁 Free space: %s\n", gib(free))
	if free >= v.MinDiskSpace {
		fmt.Fprintln(w, "   ✅ Enough space for training!")
		return true
	}
	fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("   ⚠️  Limited space (< %.0fGB) - may be problematic!", v.MinDiskSpace)))
	return false
}

// CheckCPU reports host CPU used for data loading and CPU fallback
func (v *Validator) CheckCPU(ctx context.Context) bool {
	w := v.Out
	fmt.Fprintln(w, "\n🧮 Checking host CPU...")
	fmt.Fprintf(w, "   %s\n", cpuid.CPU.BrandName)
	fmt.Fprintf(w, "   cores: %d physical, %d logical\n", cpuid.CPU.PhysicalCores, cpuid.CPU.LogicalCores)
	if cpuid.CPU.Supports(cpuid.AVX2) {
		fmt.Fprintln(w, "   ✅ AVX2 supported")
	} else {
		fmt.Fprintln(w, warnStyle.Render("   ⚠️  AVX2 not supported, CPU inference will be slow"))
	}
	return true
}

// helper function to print training time estimate
func (v *Validator) estimateTrainingTime() {
	w := v.Out
	cfg := DefaultTrainingConfig()
	fmt.Fprintln(w, "\n⏱️  Training time estimate for 6GB VRAM GPU...")
	fmt.Fprintf(w, "   📊 %d epochs with batch size %d:\n", cfg.Epochs, cfg.Batch)
	fmt.Fprintln(w, "   ⏰ Estimated time: 6-8 hours")
	fmt.Fprintf(w, "   🔄 Early stopping after %d epochs without improvement may end it sooner\n", cfg.Patience)
	fmt.Fprintln(w, "   💡 Recommendation: run it overnight")
}

// helper function to print install commands
func (v *Validator) installCommands() {
	w := v.Out
	fmt.Fprintln(w, "\n🔧 Commands to install dependencies:")
	fmt.Fprintln(w, separator(50))
	fmt.Fprintln(w, "# 1. Install PyTorch with CUDA:")
	fmt.Fprintf(w, "%s\n\n", torchInstall(v.Pip, v.IndexURL))
	fmt.Fprintln(w, "# 2. Install Ultralytics and other dependencies:")
	fmt.Fprintf(w, "%s\n\n", depsInstall(v.Pip))
	fmt.Fprintln(w, "# 3. Verify installation:")
	fmt.Fprintln(w, "mushroom check")
	fmt.Fprintln(w, separator(50))
}
