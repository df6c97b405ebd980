package main

// dataset module validates dataset layout and descriptor
//
// Copyright (c) 2024 - mushroom authors
//

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// DatasetDescriptor represents data.yaml content we care about
type DatasetDescriptor struct {
	Path  string      `yaml:"path"`
	Train string      `yaml:"train"`
	Val   string      `yaml:"val"`
	Test  string      `yaml:"test"`
	NC    int         `yaml:"nc"`
	Names interface{} `yaml:"names"` // either list or id to name mapping
}

// ClassNames returns class names ordered by class id
func (d DatasetDescriptor) ClassNames() []string {
	var names []string
	switch v := d.Names.(type) {
	case []interface{}:
		for _, n := range v {
			names = append(names, fmt.Sprintf("%v", n))
		}
	case map[interface{}]interface{}:
		var ids []int
		byID := make(map[int]string)
		for k, n := range v {
			id, err := strconv.Atoi(fmt.Sprintf("%v", k))
			if err != nil {
				log.Printf("skip class with non numeric id %v", k)
				continue
			}
			ids = append(ids, id)
			byID[id] = fmt.Sprintf("%v", n)
		}
		sort.Ints(ids)
		for _, id := range ids {
			names = append(names, byID[id])
		}
	}
	return names
}

// helper function to parse dataset descriptor
func parseDescriptor(data []byte) (DatasetDescriptor, error) {
	var desc DatasetDescriptor
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return desc, errors.Wrap(err, "unable to parse dataset descriptor")
	}
	return desc, nil
}

// helper function to count entries of given directory
func fileCount(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// CheckDataset checks presence of dataset folders and descriptor within
// given directory. It stops at first missing folder and names it.
func CheckDataset(dir string, w io.Writer) bool {
	for _, folder := range DatasetFolders {
		path := filepath.Join(dir, folder)
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			fmt.Fprintf(w, "   ❌ %s: MISSING!\n", folder)
			return false
		}
		count, err := fileCount(path)
		if err != nil {
			fmt.Fprintf(w, "   ❌ %s: %v\n", folder, err)
			return false
		}
		fmt.Fprintf(w, "   ✅ %s: %d files\n", folder, count)
	}

	fname := filepath.Join(dir, DataDescriptor)
	data, err := os.ReadFile(fname)
	if err != nil {
		fmt.Fprintf(w, "   ❌ %s: MISSING!\n", DataDescriptor)
		return false
	}
	fmt.Fprintf(w, "   ✅ %s: present\n", DataDescriptor)

	content := string(data)
	defined := true
	for _, name := range DatasetClasses {
		if !strings.Contains(content, name) {
			defined = false
		}
	}
	if defined {
		fmt.Fprintln(w, "   ✅ Classes are defined correctly")
	} else {
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("   ⚠️  Check class names in %s", DataDescriptor)))
	}
	if desc, err := parseDescriptor(data); err != nil {
		log.Println(err)
	} else if names := desc.ClassNames(); len(names) > 0 {
		fmt.Fprintf(w, "   📋 Classes: %s\n", strings.Join(names, ", "))
	}
	return true
}
