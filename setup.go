package main

// setup module installs dependencies and runs other sub-commands
//
// Copyright (c) 2024 - mushroom authors
//

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// setup choices, they match original menu options
const (
	ChoiceTrain = "1" // train model now
	ChoiceSetup = "2" // setup only, train later
	ChoiceTest  = "3" // quick test of existing model
)

// SetupChoices lists valid setup choices
var SetupChoices = []string{ChoiceTrain, ChoiceSetup, ChoiceTest}

// helper function to build CUDA enabled torch install command
func torchInstall(pip, indexURL string) Command {
	return Command{Name: pip, Args: []string{"install", "torch", "torchvision", "torchaudio", "--index-url", indexURL}}
}

// helper function to build CPU only torch install command
func torchCPUInstall(pip string) Command {
	return Command{Name: pip, Args: []string{"install", "torch", "torchvision", "torchaudio"}}
}

// helper function to build detection library install command
func depsInstall(pip string) Command {
	return Command{Name: pip, Args: []string{"install", "ultralytics", "opencv-python", "pyyaml", "pandas", "seaborn", "matplotlib"}}
}

// SetupOptions represents choices which used to be asked interactively
type SetupOptions struct {
	Choice  string // one of SetupChoices
	Confirm bool   // confirmation to start training
}

// Setup installs dependencies, verifies environment and optionally
// trains or tests the model in child processes
type Setup struct {
	Runner      CommandRunner
	Accelerator Accelerator
	Validator   *Validator // used for python version gate
	Out         io.Writer
	Dir         string
	Pip         string
	IndexURL    string
	Self        string   // mushroom executable
	SelfArgs    []string // global flags passed to child sub-commands
}

// NewSetup creates setup from current configuration
func NewSetup(runner CommandRunner, out io.Writer, self string, selfArgs []string) *Setup {
	return &Setup{
		Runner:      runner,
		Accelerator: newAccelerator(runner),
		Validator:   NewValidator(runner, out),
		Out:         out,
		Dir:         Config.WorkDir,
		Pip:         Config.Pip,
		IndexURL:    Config.TorchIndexURL,
		Self:        self,
		SelfArgs:    selfArgs,
	}
}

// helper function to run command step and report its outcome
func (s *Setup) runStep(ctx context.Context, cmd Command, description string) error {
	w := s.Out
	fmt.Fprintf(w, "\n🔄 %s...\n", description)
	fmt.Fprintf(w, "Command: %s\n", cmd)
	if cmd.Dir == "" {
		cmd.Dir = s.Dir
	}
	res, err := s.Runner.Run(ctx, cmd)
	if err != nil {
		fmt.Fprintln(w, failStyle.Render(fmt.Sprintf("❌ %s - Failed!", description)))
		if res.Stderr != "" && cmd.Stream == nil {
			fmt.Fprintf(w, "Error: %s\n", res.Stderr)
		}
		return NewError(ExternalRoutineFailure, description+" failed", err)
	}
	fmt.Fprintln(w, passStyle.Render(fmt.Sprintf("✅ %s - Success!", description)))
	if res.Stdout != "" && cmd.Stream == nil {
		fmt.Fprintf(w, "Output: %s\n", truncate(res.Stdout, 500))
	}
	return nil
}

// helper function to build command which runs mushroom sub-command
func (s *Setup) selfCommand(args ...string) Command {
	return Command{
		Name:   s.Self,
		Args:   append(append([]string{}, s.SelfArgs...), args...),
		Dir:    s.Dir,
		Stream: s.Out,
	}
}

// Run performs setup steps and the chosen follow-up action
func (s *Setup) Run(ctx context.Context, opts SetupOptions) error {
	w := s.Out
	choice := strings.TrimSpace(opts.Choice)
	if !InList(choice, SetupChoices) {
		fmt.Fprintln(w, failStyle.Render(fmt.Sprintf("❌ Invalid option %q, expected one of %s", opts.Choice, strings.Join(SetupChoices, ", "))))
		return NewError(InvalidInput, fmt.Sprintf("invalid setup choice %q", opts.Choice), nil)
	}

	fmt.Fprintln(w, titleStyle.Render("🍄 MUSHROOM IDENTIFIER - AUTOMATIC SETUP"))
	fmt.Fprintln(w, separator(50))

	if !s.Validator.CheckPython(ctx) {
		return NewError(PrerequisiteMissing, "python "+s.Validator.MinPython+" or newer is required", nil)
	}

	// steps report and continue, first failure defines the outcome
	var failure error
	keep := func(err error) {
		if failure == nil {
			failure = err
		}
	}

	fmt.Fprintln(w, "\n📦 STEP 1: Install PyTorch with CUDA")
	if err := s.runStep(ctx, torchInstall(s.Pip, s.IndexURL), "Install PyTorch with CUDA"); err != nil {
		fmt.Fprintln(w, warnStyle.Render("⚠️  Trying CPU only install..."))
		// CPU only torch still allows slow training
		keep(s.runStep(ctx, torchCPUInstall(s.Pip), "Install PyTorch CPU"))
	}

	fmt.Fprintln(w, "\n📦 STEP 2: Install YOLO and dependencies")
	keep(s.runStep(ctx, depsInstall(s.Pip), "Install dependencies"))

	fmt.Fprintln(w, "\n🔍 STEP 3: Verify configuration")
	keep(s.runStep(ctx, s.selfCommand("check"), "Complete setup check"))

	gpu := s.Accelerator != nil && s.Accelerator.Available()
	if gpu {
		if snap, err := s.Accelerator.Memory(); err == nil {
			fmt.Fprintf(w, "✅ GPU detected: %s\n", snap.Device)
		} else {
			fmt.Fprintln(w, "✅ GPU detected")
		}
	} else {
		fmt.Fprintln(w, warnStyle.Render("⚠️  No CUDA GPU detected - training will be slow"))
	}

	fmt.Fprintln(w, "\n🚀 STEP 4: Next steps")
	var err error
	switch choice {
	case ChoiceTrain:
		err = s.train(ctx, gpu, opts.Confirm)
	case ChoiceSetup:
		fmt.Fprintln(w, "✅ Setup complete! To train run:")
		fmt.Fprintln(w, "   mushroom train")
	case ChoiceTest:
		err = s.quickTest(ctx)
	}

	fmt.Fprintln(w, "\n🎉 Setup finished!")
	fmt.Fprintln(w, "\n📖 For more information:")
	fmt.Fprintln(w, "   - mushroom check  - environment check")
	fmt.Fprintln(w, "   - mushroom train  - model training")
	fmt.Fprintln(w, "   - mushroom test   - model testing")
	keep(err)
	if failure != nil {
		fmt.Fprintln(w, failStyle.Render("⚠️  Some setup steps failed, see messages above"))
	}
	return failure
}

// helper function to start training in child process
func (s *Setup) train(ctx context.Context, gpu, confirm bool) error {
	w := s.Out
	fmt.Fprintln(w, "\n🎯 Starting training...")
	if gpu {
		fmt.Fprintln(w, "⚡ Training on GPU - estimated 45-60 minutes")
	} else {
		fmt.Fprintln(w, "🐌 Training on CPU - estimated 3-5 hours")
	}
	if !confirm {
		fmt.Fprintln(w, "⏸️  Training not confirmed, rerun with --yes to start it")
		return nil
	}
	return s.runStep(ctx, s.selfCommand("train"), "Train mushroom model")
}

// helper function to run quick test in child process
func (s *Setup) quickTest(ctx context.Context) error {
	w := s.Out
	fmt.Fprintln(w, "🧪 Quick test...")
	if !hasWeights(s.Dir) {
		fmt.Fprintln(w, failStyle.Render("❌ There is no trained model. Run training first."))
		return NewError(PrerequisiteMissing, "model not found: "+WeightsPath(), nil)
	}
	return s.runStep(ctx, s.selfCommand("test", "--mode", ModeAuto), "Test on images")
}
