//go:build unix

package main

// disk space module
//
// Copyright (c) 2024 - mushroom authors
//

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// freeDiskSpace returns free disk space in GiB available to unprivileged user
func freeDiskSpace(path string) (float64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, errors.Wrapf(err, "unable to stat file system of %s", path)
	}
	return float64(st.Bavail) * float64(st.Bsize) / (1 << 30), nil
}
