package main

// utils module
//
// Copyright (c) 2023 - Valentin Kuznetsov <vkuznet@gmail.com>
//

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// LogName return proper log name based on given log file and either
// hostname or pod name (used in k8s environment).
func LogName(logFile string) string {
	hostname, err := os.Hostname()
	if err != nil {
		log.Println("unable to get hostname", err)
	}
	if os.Getenv("MY_POD_NAME") != "" {
		hostname = os.Getenv("MY_POD_NAME")
	}
	logName := logFile + "_%Y%m%d"
	if hostname != "" {
		logName = fmt.Sprintf("%s_%s", logFile, hostname) + "_%Y%m%d"
	}
	return logName
}

// ListEntry identifies types used by list's generics function
type ListEntry interface {
	int | int64 | float64 | string
}

// InList checks item in a list
func InList[T ListEntry](a T, list []T) bool {
	for _, b := range list {
		if b == a {
			return true
		}
	}
	return false
}

// helper function to check if given path exists
func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// helper function to resolve relative path against working directory
func workPath(dir, path string) string {
	if filepath.IsAbs(path) || dir == "" {
		return path
	}
	return filepath.Join(dir, path)
}

// helper function to cut long command output
func truncate(s string, size int) string {
	if len(s) <= size {
		return s
	}
	return s[:size] + "..."
}
