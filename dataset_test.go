package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDataYaml = `path: .
train: train/images
val: valid/images
test: test/images
nc: 3
names: ['chanterelle', 'death-cap', 'field-mushroom']
`

// helper function to create complete dataset layout
func makeDataset(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, folder := range DatasetFolders {
		writeFile(t, filepath.Join(dir, folder, "0001.txt"), "0 0.5 0.5 0.1 0.1\n")
	}
	writeFile(t, filepath.Join(dir, DataDescriptor), testDataYaml)
	return dir
}

// TestCheckDataset
func TestCheckDataset(t *testing.T) {
	dir := makeDataset(t)
	var buf bytes.Buffer
	assert.True(t, CheckDataset(dir, &buf))
	out := buf.String()
	assert.Contains(t, out, "train/images: 1 files")
	assert.Contains(t, out, "Classes are defined correctly")
	assert.Contains(t, out, "Classes: chanterelle, death-cap, field-mushroom")
}

// TestCheckDatasetMissingFolder
func TestCheckDatasetMissingFolder(t *testing.T) {
	dir := makeDataset(t)
	require.NoError(t, os.RemoveAll(filepath.Join(dir, "test", "labels")))
	var buf bytes.Buffer
	assert.False(t, CheckDataset(dir, &buf))
	assert.Contains(t, buf.String(), "test/labels: MISSING")
	assert.NotContains(t, buf.String(), DataDescriptor)

	// the first missing folder stops the check
	require.NoError(t, os.RemoveAll(filepath.Join(dir, "train")))
	buf.Reset()
	assert.False(t, CheckDataset(dir, &buf))
	assert.Contains(t, buf.String(), "train/images: MISSING")
	assert.NotContains(t, buf.String(), "test/labels")
}

// TestCheckDatasetMissingDescriptor
func TestCheckDatasetMissingDescriptor(t *testing.T) {
	dir := makeDataset(t)
	require.NoError(t, os.Remove(filepath.Join(dir, DataDescriptor)))
	var buf bytes.Buffer
	assert.False(t, CheckDataset(dir, &buf))
	assert.Contains(t, buf.String(), "data.yaml: MISSING")
}

// TestCheckDatasetClassNames
func TestCheckDatasetClassNames(t *testing.T) {
	dir := makeDataset(t)
	writeFile(t, filepath.Join(dir, DataDescriptor), "nc: 2\nnames: ['porcini', 'morel']\n")
	var buf bytes.Buffer
	assert.True(t, CheckDataset(dir, &buf), "class names mismatch is a warning")
	assert.Contains(t, buf.String(), "Check class names")
}

// TestDescriptorClassNames
func TestDescriptorClassNames(t *testing.T) {
	desc, err := parseDescriptor([]byte(testDataYaml))
	require.NoError(t, err)
	assert.Equal(t, 3, desc.NC)
	assert.Equal(t, []string{"chanterelle", "death-cap", "field-mushroom"}, desc.ClassNames())

	var names = "names:\n  10: k\n  2: c\n  0: a\n  1: b\n"
	desc, err = parseDescriptor([]byte(names))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "k"}, desc.ClassNames())

	_, err = parseDescriptor([]byte("names: [unterminated"))
	assert.Error(t, err)
}
