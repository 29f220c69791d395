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

package model

import "time"

// NegativeReason enumerates why an upstream call produced a negative cache
// entry instead of a payload, each carrying its own TTL (spec.md §4.1).
type NegativeReason string

const (
	ReasonRateLimited        NegativeReason = "rate_limited"
	ReasonAPIError           NegativeReason = "api_error"
	ReasonInsufficientContent NegativeReason = "insufficient_content"
	ReasonNetworkError       NegativeReason = "network_error"
	ReasonNoResults          NegativeReason = "no_results"
	ReasonValidationFailed   NegativeReason = "validation_failed"
)

// CacheEntry is one two-tier cache slot: key is source + canonicalized-param
// hash; either Value holds a serialized payload, or Negative is set. No entry
// is ever returned past TTLDeadline (spec.md §3).
type CacheEntry struct {
	Key string

	Value    []byte
	Negative *NegativeMarker

	CachedAt    time.Time
	TTLDeadline time.Time
}

// NegativeMarker records that an upstream call failed in a specific,
// cacheable way, so repeated calls short-circuit instead of re-dialing.
type NegativeMarker struct {
	Reason   NegativeReason
	CachedAt time.Time
}

// Expired reports whether the entry is past its TTLDeadline as of now.
func (e CacheEntry) Expired(now time.Time) bool {
	return !e.TTLDeadline.IsZero() && now.After(e.TTLDeadline)
}

// IsNegative reports whether this entry represents a cached failure rather
// than a usable payload.
func (e CacheEntry) IsNegative() bool {
	return e.Negative != nil
}
