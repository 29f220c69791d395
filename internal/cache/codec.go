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

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/africa-ai-collector/collector/internal/model"
)

func unixToTime(u int64) time.Time {
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0).UTC()
}

// wireEntry is the durable-tier JSON encoding of a model.CacheEntry.
type wireEntry struct {
	Key         string               `json:"key"`
	Value       []byte               `json:"value,omitempty"`
	Negative    *model.NegativeMarker `json:"negative,omitempty"`
	CachedAtUnix int64               `json:"cached_at"`
	TTLUnix      int64               `json:"ttl_deadline"`
}

func encodeEntry(e model.CacheEntry) ([]byte, error) {
	w := wireEntry{
		Key:          e.Key,
		Value:        e.Value,
		Negative:     e.Negative,
		CachedAtUnix: e.CachedAt.Unix(),
		TTLUnix:      e.TTLDeadline.Unix(),
	}
	return json.Marshal(w)
}

func decodeEntry(raw []byte) (model.CacheEntry, error) {
	var w wireEntry
	if err := json.Unmarshal(raw, &w); err != nil {
		return model.CacheEntry{}, fmt.Errorf("cache: decoding entry: %w", err)
	}
	return model.CacheEntry{
		Key:         w.Key,
		Value:       w.Value,
		Negative:    w.Negative,
		CachedAt:    unixToTime(w.CachedAtUnix),
		TTLDeadline: unixToTime(w.TTLUnix),
	}, nil
}

// CanonicalKey builds the "source + canonicalized-params hash" cache key
// shape from spec.md §3: params are sorted by name so equivalent queries in
// any argument order hash identically.
func CanonicalKey(source string, params map[string]string) string {
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, k := range names {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}

	sum := sha256.Sum256([]byte(b.String()))
	return source + ":" + hex.EncodeToString(sum[:])
}
