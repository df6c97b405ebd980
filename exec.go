package main

// exec module runs external commands: python, pip, yolo, nvidia-smi and
// the mushroom executable itself
//
// Copyright (c) 2024 - mushroom authors
//

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Command represents external command to execute
type Command struct {
	Name   string    // executable name or path
	Args   []string  // command arguments
	Dir    string    // working directory
	Env    []string  // extra environment entries in KEY=VALUE form
	Stream io.Writer // optional writer which receives command output while it runs
}

// String provides shell-like representation of the command
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// CommandResult represents captured output of executed command
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Output returns combined stdout and stderr
func (r CommandResult) Output() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}

// lockedWriter serializes writes of concurrent command output copiers
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(data []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(data)
}

// CommandRunner executes external commands
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) (CommandResult, error)
	LookPath(name string) (string, error)
}

// ExecRunner implements CommandRunner with os/exec
type ExecRunner struct{}

// Run executes given command and captures its output
func (ExecRunner) Run(ctx context.Context, c Command) (CommandResult, error) {
	var res CommandResult
	start := time.Now()
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if c.Stream != nil {
		// stdout and stderr are copied by separate goroutines
		stream := &lockedWriter{w: c.Stream}
		cmd.Stdout = io.MultiWriter(&stdout, stream)
		cmd.Stderr = io.MultiWriter(&stderr, stream)
	}
	err := cmd.Run()
	logCommand(c.Name, c.Args, c.Dir, start, err)
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
		}
		return res, errors.Wrapf(err, "command %q failed", c.String())
	}
	return res, nil
}

// LookPath searches for executable in PATH
func (ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
