//go:build !cuda

package main

// nvidia-smi based accelerator, used by default builds which do not link
// against CUDA driver
//
// Copyright (c) 2024 - mushroom authors
//

import (
	"context"
	"log"
	"strings"
	"time"
)

// SmiAccelerator queries device 0 through nvidia-smi
type SmiAccelerator struct {
	Runner CommandRunner
	Smi    string
}

// newAccelerator returns accelerator of the current build
func newAccelerator(runner CommandRunner) Accelerator {
	return &SmiAccelerator{Runner: runner, Smi: Config.Smi}
}

// Available reports if nvidia-smi lists any GPU
func (a *SmiAccelerator) Available() bool {
	if _, err := a.Runner.LookPath(a.Smi); err != nil {
		if Config.Verbose > 0 {
			log.Printf("%s not found: %v", a.Smi, err)
		}
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res, err := a.Runner.Run(ctx, Command{Name: a.Smi, Args: []string{"-L"}})
	if err != nil {
		return false
	}
	return strings.Contains(res.Stdout, "GPU ")
}

// Memory returns memory snapshot of device 0
func (a *SmiAccelerator) Memory() (MemorySnapshot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	args := []string{
		"--id=0",
		"--query-gpu=name,memory.total,memory.used",
		"--format=csv,noheader,nounits",
	}
	res, err := a.Runner.Run(ctx, Command{Name: a.Smi, Args: args})
	if err != nil {
		return MemorySnapshot{}, err
	}
	return parseSmiMemory(res.Stdout)
}

// ClearCache is no-op, device memory is owned by external runtime processes
// and released when they exit
func (a *SmiAccelerator) ClearCache() {
	if Config.Verbose > 0 {
		log.Println("clear accelerator cache")
	}
}
