// Copyright 2025 AxonFlow
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

// Package errs declares the collector's error taxonomy as typed, wrapped
// values instead of exceptions, plus FieldError and a generic BatchResult
// for collecting record-level failures (no component in this module uses
// BatchResult).
package errs

import (
	"errors"
	"fmt"
)

// Kind is the top-level error taxonomy shared by the mediator, source
// adapters, deduplicator, and pipeline supervisor.
type Kind string

const (
	RateLimited         Kind = "rate_limited"
	CostLimitExceeded   Kind = "cost_limit_exceeded"
	NetworkError        Kind = "network_error"
	Timeout             Kind = "timeout"
	APIError            Kind = "api_error"
	AuthError           Kind = "auth_error"
	ValidationFailed    Kind = "validation_failed"
	DuplicateRejected   Kind = "duplicate_rejected"
	Cancelled           Kind = "cancelled"
	InsufficientContent Kind = "insufficient_content"
	NoResults           Kind = "no_results"
	Internal            Kind = "internal_error"
)

// Recoverable reports whether a failure of this kind may be retried or
// should merely degrade a pipeline gracefully, as opposed to being terminal
// for the current cycle.
func (k Kind) Recoverable() bool {
	switch k {
	case RateLimited, CostLimitExceeded, NetworkError, Timeout, APIError,
		ValidationFailed, DuplicateRejected, InsufficientContent, NoResults:
		return true
	case AuthError, Cancelled, Internal:
		return false
	default:
		return false
	}
}

// RecordLevel reports whether this kind is localized to a single record
// (never fails the owning pipeline) per spec.md §7's propagation policy.
func (k Kind) RecordLevel() bool {
	switch k {
	case ValidationFailed, DuplicateRejected, InsufficientContent, NoResults:
		return true
	default:
		return false
	}
}

// Error is a typed, context-carrying error. Source and Op identify where the
// failure happened (e.g. Source="arxiv", Op="fetch") for logging and for the
// cache's negative-entry bookkeeping.
type Error struct {
	Kind    Kind
	Source  string
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%s/%s): %v", e.Kind, e.Message, e.Source, e.Op, e.Cause)
	}
	return fmt.Sprintf("%s: %s (%s/%s)", e.Kind, e.Message, e.Source, e.Op)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is supports errors.Is(err, SomeKindSentinel)-style matching against a Kind
// wrapped as an *Error, and also against another *Error with the same Kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// New constructs an *Error.
func New(kind Kind, source, op, message string, cause error) *Error {
	return &Error{Kind: kind, Source: source, Op: op, Message: message, Cause: cause}
}

// KindOf extracts the Kind from err, defaulting to Internal for untyped
// errors so callers can always switch on a Kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// FieldError is a single record-level (or backfill-field-level) failure
// collected into a BatchResult rather than propagated up the call stack.
type FieldError struct {
	Field   string
	Kind    Kind
	Message string
}

func (f FieldError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", f.Kind, f.Message, f.Field)
}

// BatchResult aggregates record-level outcomes for one adapter fetch, one
// dedup pass, or one backfill job, without ever panicking past the loop that
// produced it.
type BatchResult[T any] struct {
	Succeeded []T
	Failed    []FieldError
}

// Add appends a successful item.
func (b *BatchResult[T]) Add(item T) {
	b.Succeeded = append(b.Succeeded, item)
}

// Fail appends a record-level failure.
func (b *BatchResult[T]) Fail(field string, kind Kind, message string) {
	b.Failed = append(b.Failed, FieldError{Field: field, Kind: kind, Message: message})
}
