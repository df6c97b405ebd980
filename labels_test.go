package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestLookupClass
func TestLookupClass(t *testing.T) {
	tests := []struct {
		id    int
		name  string
		toxic bool
	}{
		{0, "Chanterelle", false},
		{1, "Death-cap", true},
		{2, "Field Mushroom", false},
		{3, "Unknown", false},
		{-1, "Unknown", false},
	}
	for _, tt := range tests {
		label := LookupClass(tt.id)
		assert.Equal(t, tt.name, label.Name, "class %d", tt.id)
		assert.Equal(t, tt.toxic, label.Toxic, "class %d", tt.id)
	}
	assert.Equal(t, "⚠️ EXTREMELY TOXIC!", LookupClass(1).Verdict)
	assert.Equal(t, "✅ EDIBLE", LookupClass(2).Verdict)
	assert.Equal(t, "❓ UNIDENTIFIED", LookupClass(99).Verdict)
}
