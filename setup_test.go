package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSelf = "/usr/local/bin/mushroom"

// helper function to create setup with fake collaborators
func testSetup(t *testing.T, runner *fakeRunner, acc Accelerator) (*Setup, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	v, _ := testValidator(runner, acc)
	v.Out = &buf
	return &Setup{
		Runner:      runner,
		Accelerator: acc,
		Validator:   v,
		Out:         &buf,
		Dir:         t.TempDir(),
		Pip:         "pip",
		IndexURL:    "https://download.pytorch.org/whl/cu118",
		Self:        testSelf,
		SelfArgs:    []string{"--config", "mushroom.yaml"},
	}, &buf
}

// TestSetupInvalidChoice
func TestSetupInvalidChoice(t *testing.T) {
	runner := &fakeRunner{handler: pythonHandler("Python 3.11.4")}
	s, buf := testSetup(t, runner, nil)
	for _, choice := range []string{"4", "", "train"} {
		err := s.Run(context.Background(), SetupOptions{Choice: choice})
		assert.Equal(t, InvalidInput, KindOf(err), "choice %q", choice)
	}
	assert.Empty(t, runner.calls, "nothing is installed for invalid choice")
	assert.Contains(t, buf.String(), "Invalid option")
}

// TestSetupOnly
func TestSetupOnly(t *testing.T) {
	runner := &fakeRunner{handler: pythonHandler("Python 3.11.4")}
	s, buf := testSetup(t, runner, &fakeAccelerator{})
	require.NoError(t, s.Run(context.Background(), SetupOptions{Choice: ChoiceSetup}))

	assert.Equal(t, []string{
		"python3 --version",
		"pip install torch torchvision torchaudio --index-url https://download.pytorch.org/whl/cu118",
		"pip install ultralytics opencv-python pyyaml pandas seaborn matplotlib",
		testSelf + " --config mushroom.yaml check",
	}, runner.commands())
	out := buf.String()
	assert.Contains(t, out, "No CUDA GPU detected")
	assert.Contains(t, out, "Setup complete!")
	assert.Contains(t, out, "Setup finished!")
}

// TestSetupCPUFallback
func TestSetupCPUFallback(t *testing.T) {
	python := pythonHandler("Python 3.11.4")
	runner := &fakeRunner{handler: func(cmd Command) (CommandResult, error) {
		if InList("--index-url", cmd.Args) {
			return CommandResult{Stderr: "No matching distribution found for torch"}, errors.New("exit status 1")
		}
		return python(cmd)
	}}
	s, buf := testSetup(t, runner, rtx4050(0))
	require.NoError(t, s.Run(context.Background(), SetupOptions{Choice: ChoiceSetup}))

	cmds := runner.commands()
	require.Len(t, cmds, 5)
	assert.Equal(t, "pip install torch torchvision torchaudio", cmds[2])
	out := buf.String()
	assert.Contains(t, out, "Install PyTorch with CUDA - Failed!")
	assert.Contains(t, out, "No matching distribution found")
	assert.Contains(t, out, "Trying CPU only install")
	assert.Contains(t, out, "GPU detected: NVIDIA GeForce RTX 4050")
}

// TestSetupOldPython
func TestSetupOldPython(t *testing.T) {
	runner := &fakeRunner{handler: pythonHandler("Python 3.6.15")}
	s, _ := testSetup(t, runner, nil)
	err := s.Run(context.Background(), SetupOptions{Choice: ChoiceTrain, Confirm: true})
	assert.Equal(t, PrerequisiteMissing, KindOf(err))
	assert.Equal(t, []string{"python3 --version"}, runner.commands())
}

// TestSetupTrain
func TestSetupTrain(t *testing.T) {
	runner := &fakeRunner{handler: pythonHandler("Python 3.11.4")}
	s, buf := testSetup(t, runner, rtx4050(0))

	// training needs confirmation
	require.NoError(t, s.Run(context.Background(), SetupOptions{Choice: ChoiceTrain}))
	assert.Contains(t, buf.String(), "rerun with --yes")
	for _, cmd := range runner.commands() {
		assert.False(t, strings.HasSuffix(cmd, " train"), cmd)
	}

	runner.calls = nil
	buf.Reset()
	require.NoError(t, s.Run(context.Background(), SetupOptions{Choice: ChoiceTrain, Confirm: true}))
	cmds := runner.commands()
	assert.Equal(t, testSelf+" --config mushroom.yaml train", cmds[len(cmds)-1])
	assert.NotNil(t, runner.calls[len(runner.calls)-1].Stream, "child output is streamed")
	assert.Contains(t, buf.String(), "Training on GPU")
}

// TestSetupTrainFailure
func TestSetupTrainFailure(t *testing.T) {
	python := pythonHandler("Python 3.11.4")
	runner := &fakeRunner{handler: func(cmd Command) (CommandResult, error) {
		if cmd.Name == testSelf && InList("train", cmd.Args) {
			return CommandResult{ExitCode: 3}, errors.New("exit status 3")
		}
		return python(cmd)
	}}
	s, _ := testSetup(t, runner, nil)
	err := s.Run(context.Background(), SetupOptions{Choice: ChoiceTrain, Confirm: true})
	assert.Equal(t, ExternalRoutineFailure, KindOf(err))
}

// TestSetupQuickTest
func TestSetupQuickTest(t *testing.T) {
	runner := &fakeRunner{handler: pythonHandler("Python 3.11.4")}
	s, buf := testSetup(t, runner, nil)

	err := s.Run(context.Background(), SetupOptions{Choice: ChoiceTest})
	assert.Equal(t, PrerequisiteMissing, KindOf(err))
	assert.Contains(t, buf.String(), "There is no trained model")
	assert.NotContains(t, runner.commands(), testSelf+" --config mushroom.yaml test --mode auto")

	writeFile(t, filepath.Join(s.Dir, WeightsPath()), "weights")
	runner.calls = nil
	require.NoError(t, s.Run(context.Background(), SetupOptions{Choice: ChoiceTest}))
	assert.Contains(t, runner.commands(), testSelf+" --config mushroom.yaml test --mode auto")
}

// TestSetupStepFailures
func TestSetupStepFailures(t *testing.T) {
	python := pythonHandler("Python 3.11.4")
	runner := &fakeRunner{handler: func(cmd Command) (CommandResult, error) {
		if InList("ultralytics", cmd.Args) {
			return CommandResult{Stderr: "Could not find a version that satisfies the requirement ultralytics"}, errors.New("exit status 1")
		}
		if cmd.Name == testSelf && InList("check", cmd.Args) {
			return CommandResult{ExitCode: 2}, errors.New("exit status 2")
		}
		return python(cmd)
	}}
	s, buf := testSetup(t, runner, nil)
	err := s.Run(context.Background(), SetupOptions{Choice: ChoiceSetup})
	require.Error(t, err)
	assert.Equal(t, ExternalRoutineFailure, KindOf(err))
	assert.Contains(t, err.Error(), "Install dependencies")
	assert.NotEqual(t, 0, ExitCode(err))

	// remaining steps still run and report
	out := buf.String()
	assert.Contains(t, out, "Install dependencies - Failed!")
	assert.Contains(t, out, "Complete setup check - Failed!")
	assert.Contains(t, out, "Setup complete!")
	assert.Contains(t, out, "Some setup steps failed")
}

// TestSetupTorchInstallFailure
func TestSetupTorchInstallFailure(t *testing.T) {
	python := pythonHandler("Python 3.11.4")
	runner := &fakeRunner{handler: func(cmd Command) (CommandResult, error) {
		if InList("torch", cmd.Args) {
			return CommandResult{Stderr: "No space left on device"}, errors.New("exit status 1")
		}
		return python(cmd)
	}}
	s, _ := testSetup(t, runner, nil)
	err := s.Run(context.Background(), SetupOptions{Choice: ChoiceSetup})
	assert.Equal(t, ExternalRoutineFailure, KindOf(err))
	assert.Contains(t, err.Error(), "Install PyTorch CPU")
	assert.Contains(t, runner.commands(), testSelf+" --config mushroom.yaml check")
}
