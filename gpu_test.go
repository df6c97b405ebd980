package main

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHasFreeMemory
func TestHasFreeMemory(t *testing.T) {
	tests := []struct {
		reserved float64
		ok       bool
	}{
		{0.5, true},
		{3.9, true},
		{4.0, false}, // exactly 2 GiB free is not enough
		{5.5, false},
	}
	for _, tt := range tests {
		snap := MemorySnapshot{Total: 6.0, Reserved: tt.reserved}
		assert.Equal(t, tt.ok, HasFreeMemory(snap, 2.0), "reserved %v", tt.reserved)
	}
}

// TestCheckGPUMemory
func TestCheckGPUMemory(t *testing.T) {
	var buf bytes.Buffer
	acc := rtx4050(1.0)
	ok, snap := CheckGPUMemory(acc, 2.0, &buf)
	assert.True(t, ok)
	assert.Equal(t, 1, acc.memoryCalls)
	assert.Equal(t, 5.0, snap.Free())
	out := buf.String()
	assert.Contains(t, out, "RTX 4050")
	assert.Contains(t, out, "Total VRAM: 6.0 GiB")
	assert.Contains(t, out, "Free: 5.0 GiB")
}

// TestCheckGPUMemoryUnavailable
func TestCheckGPUMemoryUnavailable(t *testing.T) {
	var buf bytes.Buffer
	acc := &fakeAccelerator{available: false}
	ok, _ := CheckGPUMemory(acc, 2.0, &buf)
	assert.False(t, ok)
	assert.Equal(t, 0, acc.memoryCalls, "no memory query without accelerator")
	assert.Empty(t, buf.String())

	ok, _ = CheckGPUMemory(nil, 2.0, &buf)
	assert.False(t, ok)
}

// TestCheckGPUMemoryQueryError
func TestCheckGPUMemoryQueryError(t *testing.T) {
	var buf bytes.Buffer
	acc := &fakeAccelerator{available: true, err: errors.New("driver mismatch")}
	ok, _ := CheckGPUMemory(acc, 2.0, &buf)
	assert.False(t, ok)
	assert.Contains(t, buf.String(), "driver mismatch")
}

// TestOptimizeMemory
func TestOptimizeMemory(t *testing.T) {
	var buf bytes.Buffer
	acc := rtx4050(1.0)
	reclaims := 0
	env := OptimizeMemory(acc, func() { reclaims++ }, 128, &buf)
	assert.Equal(t, []string{"PYTORCH_CUDA_ALLOC_CONF=max_split_size_mb:128"}, env)
	assert.Equal(t, 1, acc.clearCalls)
	assert.Equal(t, 1, reclaims)

	// idempotent
	env2 := OptimizeMemory(acc, func() { reclaims++ }, 128, &buf)
	assert.Equal(t, env, env2)
	assert.Equal(t, 2, acc.clearCalls)

	// without accelerator only allocator tuning is returned
	assert.Equal(t, env, OptimizeMemory(nil, nil, 128, &buf))
}

// TestParseSmiMemory
func TestParseSmiMemory(t *testing.T) {
	snap, err := parseSmiMemory("NVIDIA GeForce RTX 4050 Laptop GPU, 6141, 1024\n")
	require.NoError(t, err)
	assert.Equal(t, "NVIDIA GeForce RTX 4050 Laptop GPU", snap.Device)
	assert.InDelta(t, 5.997, snap.Total, 0.001)
	assert.InDelta(t, 1.0, snap.Reserved, 1e-9)
	assert.InDelta(t, 4.997, snap.Free(), 0.001)

	// only first device line is used
	snap, err = parseSmiMemory("GPU A, 8192, 0\nGPU B, 4096, 0\n")
	require.NoError(t, err)
	assert.Equal(t, "GPU A", snap.Device)

	_, err = parseSmiMemory("No devices were found")
	assert.Error(t, err)
	_, err = parseSmiMemory("GPU, N/A, 0")
	assert.Error(t, err)
}

// TestGib
func TestGib(t *testing.T) {
	assert.Equal(t, "6.0 GiB", gib(6))
	assert.Equal(t, "512 MiB", gib(0.5))
	assert.Equal(t, "-1.0 GiB", gib(-1))
}
