//go:build cuda

package main

// CUDA driver based accelerator, enabled with -tags cuda
//
// Copyright (c) 2024 - mushroom authors
//

import (
	"log"

	"github.com/pkg/errors"
	"gorgonia.org/cu"
)

// CudaAccelerator queries device 0 through CUDA driver API
type CudaAccelerator struct {
	ctx *cu.CUContext // context created for memory queries, it holds device memory
}

// newAccelerator returns accelerator of the current build
func newAccelerator(runner CommandRunner) Accelerator {
	return &CudaAccelerator{}
}

// Available reports if CUDA driver sees any device
func (a *CudaAccelerator) Available() bool {
	devices, err := cu.NumDevices()
	if err != nil {
		if Config.Verbose > 0 {
			log.Println("CUDA is not available", err)
		}
		return false
	}
	return devices > 0
}

// Memory returns memory snapshot of device 0
func (a *CudaAccelerator) Memory() (MemorySnapshot, error) {
	var snap MemorySnapshot
	device, err := cu.GetDevice(0)
	if err != nil {
		return snap, errors.Wrap(err, "unable to get device")
	}
	name, err := device.Name()
	if err != nil {
		return snap, errors.Wrap(err, "unable to get device name")
	}
	if a.ctx == nil {
		ctx, err := device.MakeContext(cu.SchedAuto)
		if err != nil {
			return snap, errors.Wrap(err, "unable to create context")
		}
		a.ctx = &ctx
	}
	if err := a.ctx.Lock(); err != nil {
		return snap, errors.Wrap(err, "unable to lock context")
	}
	defer a.ctx.Unlock()
	free, total, err := cu.MemInfo()
	if err != nil {
		return snap, errors.Wrap(err, "unable to get memory info")
	}
	snap.Device = name
	snap.Total = float64(total) / (1 << 30)
	snap.Reserved = float64(total-free) / (1 << 30)
	snap.Allocated = snap.Reserved
	return snap, nil
}

// ClearCache destroys query context and releases device memory it holds
func (a *CudaAccelerator) ClearCache() {
	if a.ctx == nil {
		return
	}
	if err := cu.DestroyContext(a.ctx); err != nil {
		log.Println("unable to destroy CUDA context", err)
	}
	a.ctx = nil
}
