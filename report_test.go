package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTrainingMarkdown
func TestTrainingMarkdown(t *testing.T) {
	res := TrainingResult{
		RunID:   "2b1c7a6e",
		Weights: WeightsPath(),
		Metrics: Metrics{MAP50: 0.801, MAP50_95: 0.552, Precision: 0.812, Recall: 0.745},
	}
	start := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)
	md := trainingMarkdown(res, DefaultTrainingConfig(), start, start.Add(7*time.Hour))
	assert.Contains(t, md, "- run: `2b1c7a6e`")
	assert.Contains(t, md, "- duration: 7h0m0s")
	assert.Contains(t, md, "| mAP50 | 0.801 |")
	assert.Contains(t, md, "| mAP50-95 | 0.552 |")
	assert.Contains(t, md, "1. 🔴 Death-cap (⚠️ EXTREMELY TOXIC!)")
	assert.Contains(t, md, "| epochs | 100 |")
	assert.Contains(t, md, "| optimizer | AdamW |")
}

// TestWriteReport
func TestWriteReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "runs", "detect", RunName)
	fname, err := writeReport(dir, "# Results\n\n| metric | value |\n|---|---|\n| mAP50 | 0.801 |\n")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ReportMarkdown), fname)

	data, err := os.ReadFile(filepath.Join(dir, ReportHTML))
	require.NoError(t, err)
	html := string(data)
	assert.Contains(t, html, "<title>Mushroom detector training results</title>")
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<td>0.801</td>")
}
