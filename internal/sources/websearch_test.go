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

package sources

import (
	"context"
	"testing"
	"time"

	"github.com/africa-ai-collector/collector/internal/clock"
	"github.com/africa-ai-collector/collector/internal/mediator"
)

func newTestMediator() *mediator.Mediator {
	return mediator.New(mediator.Config{
		DefaultRateQPS: 1000, DefaultBurst: 1000,
		Clock: clock.NewFrozen(time.Now()),
	})
}

func TestWebSearchAdapterFetchParsesResponse(t *testing.T) {
	a := NewWebSearchAdapter("https://search.example.com", "key", 0.01, newTestMediator())
	a.httpGet = func(ctx context.Context, url string) ([]byte, error) {
		return []byte(`{"results":[
			{"title":"Solar Irrigation Startup","url":"https://example.com/a","snippet":"raised funding"},
			{"title":"AI Lab Opens","url":"https://example.com/b","snippet":"new lab in Rwanda"}
		]}`), nil
	}

	seq, err := a.Fetch(context.Background(), QuerySpec{Keywords: []string{"solar", "irrigation"}})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	records := Collect(seq)
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	result, reason, ok := a.Parse(records[0])
	if !ok {
		t.Fatalf("Parse rejected a well-formed record: %v", reason)
	}
	if result.Title != "Solar Irrigation Startup" || result.URL != "https://example.com/a" {
		t.Errorf("got %+v", result)
	}
	if result.Rank != 0 {
		t.Errorf("Rank = %d, want 0 for the first result", result.Rank)
	}

	_, _, ok = a.Parse(records[1])
	if !ok || records[1].Payload["rank"] != 1 {
		t.Errorf("second record rank = %v, want 1", records[1].Payload["rank"])
	}
}

func TestWebSearchAdapterParseDiscardsMissingURL(t *testing.T) {
	a := NewWebSearchAdapter("https://search.example.com", "key", 0.01, newTestMediator())
	_, reason, ok := a.Parse(RawRecord{Payload: map[string]interface{}{"title": "no url here"}})
	if ok {
		t.Error("expected Parse to discard a record with no URL")
	}
	if reason != DiscardMissingFields {
		t.Errorf("reason = %v, want %v", reason, DiscardMissingFields)
	}
}

func TestWebSearchAdapterFetchPropagatesHTTPError(t *testing.T) {
	a := NewWebSearchAdapter("https://search.example.com", "key", 0.01, newTestMediator())
	a.httpGet = func(ctx context.Context, url string) ([]byte, error) {
		return nil, context.DeadlineExceeded
	}
	if _, err := a.Fetch(context.Background(), QuerySpec{Keywords: []string{"x"}}); err == nil {
		t.Error("expected Fetch to propagate the underlying HTTP error")
	}
}

func TestWebSearchAdapterName(t *testing.T) {
	a := NewWebSearchAdapter("", "", 0, nil)
	if a.Name() != "web_search" {
		t.Errorf("Name() = %q, want %q", a.Name(), "web_search")
	}
}
