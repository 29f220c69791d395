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

package llm

import (
	"context"
	"fmt"
	"testing"
)

type fakeProvider struct {
	name    string
	fail    bool
	calls   int
}

func (f *fakeProvider) Name() string { return f.name }
func (f *fakeProvider) Type() string { return "fake" }

func (f *fakeProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	f.calls++
	if f.fail {
		return CompletionResponse{}, fmt.Errorf("%s: simulated failure", f.name)
	}
	return CompletionResponse{Text: "reply from " + f.name, Model: f.name}, nil
}

func (f *fakeProvider) HealthCheck(ctx context.Context) error { return nil }
func (f *fakeProvider) Capabilities() Capabilities            { return Capabilities{} }
func (f *fakeProvider) EstimateCost(req CompletionRequest) float64 { return 0 }

func TestRegistryRegisterGetAll(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&fakeProvider{name: "anthropic"})
	reg.Register(&fakeProvider{name: "openai"})

	p, err := reg.Get("anthropic")
	if err != nil || p.Name() != "anthropic" {
		t.Fatalf("Get(anthropic) = %v, %v", p, err)
	}
	if _, err := reg.Get("missing"); err == nil {
		t.Error("expected an error for an unregistered provider")
	}
	if len(reg.All()) != 2 {
		t.Errorf("All() returned %d providers, want 2", len(reg.All()))
	}
	if len(reg.Names()) != 2 {
		t.Errorf("Names() returned %d names, want 2", len(reg.Names()))
	}
}

func TestRouterCompleteUsesFirstHealthyProvider(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&fakeProvider{name: "anthropic"})
	reg.Register(&fakeProvider{name: "openai"})

	router := NewRouter(reg, WithPreferenceOrder("openai", "anthropic"))
	resp, provider, err := router.Complete(context.Background(), CompletionRequest{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if provider != "openai" {
		t.Errorf("provider = %q, want %q (first in preference order)", provider, "openai")
	}
	if resp.Text != "reply from openai" {
		t.Errorf("Text = %q", resp.Text)
	}
}

func TestRouterFallsBackOnFailure(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&fakeProvider{name: "anthropic", fail: true})
	reg.Register(&fakeProvider{name: "openai"})

	router := NewRouter(reg, WithPreferenceOrder("anthropic", "openai"))
	resp, provider, err := router.Complete(context.Background(), CompletionRequest{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if provider != "openai" {
		t.Errorf("provider = %q, want fallback %q", provider, "openai")
	}
	if resp.Text != "reply from openai" {
		t.Errorf("Text = %q", resp.Text)
	}

	snap := router.HealthSnapshot()
	if snap["anthropic"][1] != 1 {
		t.Errorf("anthropic failures = %d, want 1", snap["anthropic"][1])
	}
	if snap["openai"][0] != 1 {
		t.Errorf("openai successes = %d, want 1", snap["openai"][0])
	}
}

func TestRouterAllProvidersFailingReturnsLastError(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&fakeProvider{name: "anthropic", fail: true})
	reg.Register(&fakeProvider{name: "openai", fail: true})

	router := NewRouter(reg)
	if _, _, err := router.Complete(context.Background(), CompletionRequest{Prompt: "hi"}); err == nil {
		t.Error("expected an error when every registered provider fails")
	}
}

func TestRouterNoProvidersRegistered(t *testing.T) {
	router := NewRouter(NewRegistry())
	if _, _, err := router.Complete(context.Background(), CompletionRequest{Prompt: "hi"}); err == nil {
		t.Error("expected an error when no providers are registered")
	}
}

func TestRouterOrderedNamesPlacesUnlistedProvidersLastSorted(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&fakeProvider{name: "zeta"})
	reg.Register(&fakeProvider{name: "alpha"})
	reg.Register(&fakeProvider{name: "preferred"})

	router := NewRouter(reg, WithPreferenceOrder("preferred"))
	got := router.orderedNames()
	want := []string{"preferred", "alpha", "zeta"}
	if len(got) != len(want) {
		t.Fatalf("orderedNames() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("orderedNames()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
