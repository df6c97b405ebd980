package main

// report module writes training results in markdown and HTML forms
//
// Copyright (c) 2024 - mushroom authors
//

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gomarkdown/markdown"
	mhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/pkg/errors"
)

// report file names within training run directory
const (
	ReportMarkdown = "TRAINING_RESULTS.md"
	ReportHTML     = "TRAINING_RESULTS.html"
)

// helper function to produce markdown report of training run
func trainingMarkdown(res TrainingResult, cfg TrainingConfig, start, end time.Time) string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# Mushroom detector training results\n\n")
	fmt.Fprintf(&b, "- run: `%s`\n", res.RunID)
	fmt.Fprintf(&b, "- started: %s\n", start.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- finished: %s\n", end.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- duration: %s\n", end.Sub(start).Round(time.Second))
	fmt.Fprintf(&b, "- weights: `%s`\n\n", res.Weights)

	fmt.Fprintf(&b, "## Metrics\n\n")
	fmt.Fprintf(&b, "| metric | value |\n|---|---|\n")
	fmt.Fprintf(&b, "| mAP50 | %.3f |\n", res.Metrics.MAP50)
	fmt.Fprintf(&b, "| mAP50-95 | %.3f |\n", res.Metrics.MAP50_95)
	fmt.Fprintf(&b, "| Precision | %.3f |\n", res.Metrics.Precision)
	fmt.Fprintf(&b, "| Recall | %.3f |\n\n", res.Metrics.Recall)

	fmt.Fprintf(&b, "## Classes\n\n")
	for id := 0; id < len(classLabels); id++ {
		label := LookupClass(id)
		fmt.Fprintf(&b, "%d. %s %s (%s)\n", id, label.Marker, label.Name, label.Verdict)
	}

	fmt.Fprintf(&b, "\n## Parameters\n\n")
	fmt.Fprintf(&b, "| parameter | value |\n|---|---|\n")
	for _, p := range cfg.params() {
		fmt.Fprintf(&b, "| %s | %s |\n", p.Key, p.Value)
	}
	return b.String()
}

// helper function to convert markdown content to HTML
func mdToHTML(md []byte) string {
	// create markdown parser with extensions
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse(md)

	// create HTML renderer with extensions
	htmlFlags := mhtml.CommonFlags | mhtml.HrefTargetBlank | mhtml.CompletePage
	opts := mhtml.RendererOptions{Flags: htmlFlags, Title: "Mushroom detector training results"}
	renderer := mhtml.NewRenderer(opts)
	return string(markdown.Render(doc, renderer))
}

// helper function to parse given markdown file and return HTML content
func mdFileToHTML(fname string) (string, error) {
	file, err := os.Open(filepath.Clean(fname))
	if err != nil {
		return "", err
	}
	defer file.Close()
	md, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	return mdToHTML(md), nil
}

// helper function to write markdown report and its HTML rendering into given directory
func writeReport(dir, md string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrapf(err, "unable to create %s", dir)
	}
	mdFile := filepath.Join(dir, ReportMarkdown)
	if err := os.WriteFile(mdFile, []byte(md), 0644); err != nil {
		return "", errors.Wrapf(err, "unable to write %s", mdFile)
	}
	html, err := mdFileToHTML(mdFile)
	if err != nil {
		return mdFile, errors.Wrapf(err, "unable to render %s", mdFile)
	}
	htmlFile := filepath.Join(dir, ReportHTML)
	if err := os.WriteFile(htmlFile, []byte(html), 0644); err != nil {
		return mdFile, errors.Wrapf(err, "unable to write %s", htmlFile)
	}
	return mdFile, nil
}
