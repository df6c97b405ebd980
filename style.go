package main

// console styles used by reports
//
// Copyright (c) 2024 - mushroom authors
//

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	passStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	failStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// helper function to render separator line
func separator(n int) string {
	return strings.Repeat("=", n)
}

// helper function to render PASS/FAIL badge
func badge(ok bool) string {
	if ok {
		return passStyle.Render("✅ PASS")
	}
	return failStyle.Render("❌ FAIL")
}
