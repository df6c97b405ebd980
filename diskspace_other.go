//go:build !unix

package main

// disk space module
//
// Copyright (c) 2024 - mushroom authors
//

import "github.com/pkg/errors"

// freeDiskSpace is not supported on this platform
func freeDiskSpace(path string) (float64, error) {
	return 0, errors.New("disk space check is not supported on this platform")
}
