package main

// labels module maps detector class ids to mushroom safety labels
//
// Copyright (c) 2024 - mushroom authors
//

// ClassLabel represents human readable class designation
type ClassLabel struct {
	Name    string // display name
	Verdict string // edibility verdict
	Marker  string // severity marker
	Toxic   bool
}

// classLabels holds class ids in the order of data.yaml names
var classLabels = map[int]ClassLabel{
	0: {Name: "Chanterelle", Verdict: "✅ EDIBLE", Marker: "🟢"},
	1: {Name: "Death-cap", Verdict: "⚠️ EXTREMELY TOXIC!", Marker: "🔴", Toxic: true},
	2: {Name: "Field Mushroom", Verdict: "✅ EDIBLE", Marker: "🟢"},
}

// unknownLabel is returned for class ids outside of the label map
var unknownLabel = ClassLabel{Name: "Unknown", Verdict: "❓ UNIDENTIFIED", Marker: "⚪"}

// LookupClass returns label of given class id
func LookupClass(id int) ClassLabel {
	if label, ok := classLabels[id]; ok {
		return label
	}
	return unknownLabel
}
