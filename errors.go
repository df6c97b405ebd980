package main

// errors module
//
// Copyright (c) 2023 - Valentin Kuznetsov <vkuznet@gmail.com>
//

import (
	"errors"
	"fmt"
)

// Kind defines category of mushroom errors
type Kind int

const (
	GenericError           Kind = iota + 100 // generic error
	PrerequisiteMissing                      // 101 interpreter, accelerator, library, dataset or model is missing
	ResourceExhausted                        // 102 not enough accelerator memory
	ExternalRoutineFailure                   // 103 external training or inference routine failed
	InvalidInput                             // 104 bad menu choice or image path
)

// helper function to return human error message for given error code
func errorMessage(code Kind) string {
	if code == 0 {
		return ""
	} else if code == GenericError {
		return "generic error"
	} else if code == PrerequisiteMissing {
		return "prerequisite missing"
	} else if code == ResourceExhausted {
		return "resource exhausted"
	} else if code == ExternalRoutineFailure {
		return "external routine failure"
	} else if code == InvalidInput {
		return "invalid input"
	}
	return fmt.Sprintf("Not Implemented error for code %d", code)
}

// String returns human representation of error kind
func (k Kind) String() string {
	return errorMessage(k)
}

// Error represents typed error returned by mushroom workflows
type Error struct {
	Kind   Kind   // error category
	Reason string // human readable reason
	Err    error  // underlying error, if any
}

// Error implements error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// Unwrap returns underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates new typed error
func NewError(kind Kind, reason string, err error) error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

// KindOf returns kind of given error, GenericError for untyped errors and 0 for nil
func KindOf(err error) Kind {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return GenericError
}

// ExitCode maps error to process exit code
func ExitCode(err error) int {
	switch KindOf(err) {
	case 0:
		return 0
	case PrerequisiteMissing:
		return 2
	case ResourceExhausted:
		return 3
	case ExternalRoutineFailure:
		return 4
	case InvalidInput:
		return 5
	}
	return 1
}
