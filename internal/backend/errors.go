// Copyright 2024 The ossfs Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import "errors"

// Code is the portable error taxonomy every backend reports through. The
// filesystem facade maps each Code to the kernel bridge's numeric error,
// never leaking backend-specific error types past this package boundary.
type Code int

const (
	CodeOther Code = iota
	CodeNotFound
	CodeOutOfRange
	CodeAlreadyExists
	CodePermissionDenied
	CodeBackendUnavailable
	CodeUnsupported
	CodeIO
)

func (c Code) String() string {
	switch c {
	case CodeNotFound:
		return "not-found"
	case CodeOutOfRange:
		return "out-of-range"
	case CodeAlreadyExists:
		return "already-exists"
	case CodePermissionDenied:
		return "permission-denied"
	case CodeBackendUnavailable:
		return "backend-unavailable"
	case CodeUnsupported:
		return "unsupported"
	case CodeIO:
		return "io-error"
	default:
		return "other"
	}
}

// Error is the error type every Backend method returns. It wraps an
// underlying cause (which may be nil) with a portable Code that survives
// crossing the backend/core boundary.
type Error struct {
	Code  Code
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Msg + ": " + e.Cause.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, ErrNotFound) style matching against a Code
// sentinel produced by New.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New constructs a backend Error with the given code and message,
// optionally wrapping cause.
func New(code Code, msg string, cause error) *Error {
	return &Error{Code: code, Msg: msg, Cause: cause}
}

// Sentinels for errors.Is comparisons; only Code is compared.
var (
	ErrNotFound          = &Error{Code: CodeNotFound, Msg: "not found"}
	ErrOutOfRange        = &Error{Code: CodeOutOfRange, Msg: "out of range"}
	ErrAlreadyExists     = &Error{Code: CodeAlreadyExists, Msg: "already exists"}
	ErrPermissionDenied  = &Error{Code: CodePermissionDenied, Msg: "permission denied"}
	ErrBackendUnavailable = &Error{Code: CodeBackendUnavailable, Msg: "backend unavailable"}
	ErrUnsupported       = &Error{Code: CodeUnsupported, Msg: "unsupported"}
	ErrIO                = &Error{Code: CodeIO, Msg: "i/o error"}
)

// CodeOf extracts the Code from err if it is (or wraps) a *Error,
// otherwise returns CodeOther.
func CodeOf(err error) Code {
	var be *Error
	if errors.As(err, &be) {
		return be.Code
	}
	return CodeOther
}
