package main

// logging module provides various logging methods
//
// Copyright (c) 2023 - Valentin Kuznetsov <vkuznet@gmail.com>
//

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
)

// helper function to produce UTC time prefixed output
func utcMsg(data []byte) string {
	return fmt.Sprintf("[%s] %s", time.Now().UTC().Format(time.RFC3339), string(data))
}

// custom rotate logger
type rotateLogWriter struct {
	RotateLogs *rotatelogs.RotateLogs
}

func (w rotateLogWriter) Write(data []byte) (int, error) {
	return w.RotateLogs.Write([]byte(utcMsg(data)))
}

// custom logger, report output goes to stdout so log lines go to stderr
type logWriter struct {
}

func (writer logWriter) Write(data []byte) (int, error) {
	return fmt.Fprint(os.Stderr, utcMsg(data))
}

// helper function to configure logger with verbosity level and optional log file
func setupLogger(verbose int, logFile string) error {
	log.SetFlags(0)
	if verbose > 0 {
		log.SetFlags(log.Lshortfile)
	}
	if logFile == "" {
		log.SetOutput(logWriter{})
		return nil
	}
	rl, err := rotatelogs.New(LogName(logFile), rotatelogs.WithRotationTime(24*time.Hour))
	if err != nil {
		return err
	}
	log.SetOutput(rotateLogWriter{RotateLogs: rl})
	return nil
}

// helper function to log every external command we execute
func logCommand(name string, args []string, dir string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = err.Error()
	}
	if dir == "" {
		dir = "."
	}
	log.Printf("exec %s %s [dir: %s] [time: %v] [status: %s]\n",
		name, strings.Join(args, " "), dir, time.Since(start), status)
}
