package main

// gpu module provides accelerator memory checks
//
// Copyright (c) 2024 - mushroom authors
//

import (
	"fmt"
	"io"
	"log"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

// allocator tuning variable understood by the tensor runtime
const allocConfEnv = "PYTORCH_CUDA_ALLOC_CONF"

// Accelerator represents GPU device used by external training routine
type Accelerator interface {
	Available() bool                 // reports if accelerator is present
	Memory() (MemorySnapshot, error) // queries current memory state of device 0
	ClearCache()                     // releases cached but unused device memory
}

// helper function to format GiB value
func gib(v float64) string {
	if v < 0 {
		return "-" + humanize.IBytes(uint64(-v*(1<<30)))
	}
	return humanize.IBytes(uint64(v * (1 << 30)))
}

// HasFreeMemory checks that free memory of the snapshot exceeds threshold
func HasFreeMemory(snap MemorySnapshot, threshold float64) bool {
	return snap.Free() > threshold
}

// CheckGPUMemory queries accelerator memory, prints it to given writer and
// reports if there is more than threshold GiB of free memory. No accelerator
// means no query and false result.
func CheckGPUMemory(acc Accelerator, threshold float64, w io.Writer) (bool, MemorySnapshot) {
	var snap MemorySnapshot
	if acc == nil || !acc.Available() {
		return false, snap
	}
	snap, err := acc.Memory()
	if err != nil {
		log.Println("unable to query accelerator memory", err)
		fmt.Fprintf(w, "❌ Unable to query GPU memory: %v\n", err)
		return false, snap
	}
	fmt.Fprintf(w, "🖥️  GPU: %s\n", snap.Device)
	fmt.Fprintf(w, "📊 Total VRAM: %s\n", gib(snap.Total))
	fmt.Fprintf(w, "🔄 Allocated: %s\n", gib(snap.Allocated))
	fmt.Fprintf(w, "💾 Cached: %s\n", gib(snap.Reserved))
	fmt.Fprintf(w, "✅ Free: %s\n", gib(snap.Free()))
	fmt.Fprintln(w, strings.Repeat("-", 40))
	return HasFreeMemory(snap, threshold), snap
}

// AllocatorEnv returns allocator tuning entry which limits maximum split size
func AllocatorEnv(splitMB int) string {
	return fmt.Sprintf("%s=max_split_size_mb:%d", allocConfEnv, splitMB)
}

// helper function to run general memory reclamation
func reclaimMemory() {
	runtime.GC()
	debug.FreeOSMemory()
}

// OptimizeMemory releases cached accelerator memory, runs reclamation and
// returns environment of the external runtime with allocator tuning.
// It is safe to call it multiple times.
func OptimizeMemory(acc Accelerator, reclaim func(), splitMB int, w io.Writer) []string {
	if acc != nil {
		acc.ClearCache()
	}
	if reclaim != nil {
		reclaim()
	}
	env := []string{AllocatorEnv(splitMB)}
	fmt.Fprintf(w, "🔧 Memory optimizations applied (%s)\n", env[0])
	return env
}

// helper function to parse nvidia-smi csv line
// "name, memory.total [MiB], memory.used [MiB]" into memory snapshot
func parseSmiMemory(line string) (MemorySnapshot, error) {
	var snap MemorySnapshot
	line = strings.TrimSpace(line)
	if idx := strings.Index(line, "\n"); idx >= 0 {
		line = strings.TrimSpace(line[:idx])
	}
	parts := strings.Split(line, ",")
	if len(parts) != 3 {
		return snap, errors.Errorf("unexpected nvidia-smi output %q", line)
	}
	total, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return snap, errors.Wrap(err, "unable to parse total memory")
	}
	used, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil {
		return snap, errors.Wrap(err, "unable to parse used memory")
	}
	snap.Device = strings.TrimSpace(parts[0])
	snap.Total = total / 1024
	snap.Reserved = used / 1024
	snap.Allocated = used / 1024
	return snap, nil
}
