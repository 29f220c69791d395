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

package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/africa-ai-collector/collector/internal/model"
)

type fakeIdentity struct {
	byExactID     map[string]string
	byFingerprint map[string]string
	byTitle       map[string]string
}

func (f fakeIdentity) ByExactID(ctx context.Context, key string) (string, bool, error) {
	id, ok := f.byExactID[key]
	return id, ok, nil
}

func (f fakeIdentity) ByFingerprint(ctx context.Context, fp string) (string, bool, error) {
	id, ok := f.byFingerprint[fp]
	return id, ok, nil
}

func (f fakeIdentity) TitleByID(ctx context.Context, id string) (string, bool, error) {
	title, ok := f.byTitle[id]
	return title, ok, nil
}

type fakeVectorIndex struct {
	id    string
	sim   float64
	found bool
}

func (f fakeVectorIndex) TopMatch(ctx context.Context, text string) (string, float64, bool, error) {
	return f.id, f.sim, f.found, nil
}

func TestResolveExactIdentity(t *testing.T) {
	d := New(fakeIdentity{byExactID: map[string]string{"10.1/abc": "pub-1"}}, nil, Thresholds{})

	out, err := d.Resolve(context.Background(), Candidate{ExactID: "10.1/abc", Title: "A Paper"}, PolicyUpdate)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if out.MatchedStage != "exact_identity" || out.CanonicalID != "pub-1" || out.Policy != PolicyUpdate {
		t.Errorf("got %+v", out)
	}
}

func TestResolveCanonicalFingerprint(t *testing.T) {
	fp := Fingerprint(Candidate{Title: "Solar Powered Irrigation"})
	d := New(fakeIdentity{byFingerprint: map[string]string{fp: "inno-7"}}, nil, Thresholds{})

	out, err := d.Resolve(context.Background(), Candidate{Title: "Solar Powered Irrigation"}, PolicyReject)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if out.MatchedStage != "canonical_fingerprint" || out.CanonicalID != "inno-7" {
		t.Errorf("got %+v", out)
	}
}

func TestResolveFuzzyTitleHighVsLowSimilarity(t *testing.T) {
	thresholds := Thresholds{SemanticHigh: 0.9, SemanticLow: 0.6, FuzzyTitleMin: 0.5}
	identity := fakeIdentity{byTitle: map[string]string{"match-1": "Unseen Title"}}

	tests := []struct {
		name       string
		sim        float64
		wantPolicy Policy
	}{
		{name: "above high threshold keeps ingestion policy", sim: 0.95, wantPolicy: PolicyReject},
		{name: "between low and high is always a merge", sim: 0.7, wantPolicy: PolicyMerge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(identity, fakeVectorIndex{id: "match-1", sim: tt.sim, found: true}, thresholds)
			out, err := d.Resolve(context.Background(), Candidate{Title: "Unseen Title"}, PolicyReject)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if out.Policy != tt.wantPolicy || out.CanonicalID != "match-1" {
				t.Errorf("got %+v, want policy %v", out, tt.wantPolicy)
			}
		})
	}
}

func TestResolveBelowLowThresholdIsNoMatch(t *testing.T) {
	thresholds := Thresholds{SemanticHigh: 0.9, SemanticLow: 0.6, FuzzyTitleMin: 0.5}
	identity := fakeIdentity{byTitle: map[string]string{"match-1": "Unseen Title"}}
	d := New(identity, fakeVectorIndex{id: "match-1", sim: 0.3, found: true}, thresholds)

	out, err := d.Resolve(context.Background(), Candidate{Title: "Unseen Title"}, PolicyReject)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if out.MatchedStage != "none" || out.CanonicalID != "" {
		t.Errorf("got %+v, want no match", out)
	}
}

func TestResolveVectorMatchRejectedWhenTitleDissimilar(t *testing.T) {
	thresholds := Thresholds{SemanticHigh: 0.9, SemanticLow: 0.6, FuzzyTitleMin: 0.8}
	identity := fakeIdentity{byTitle: map[string]string{"match-1": "Completely Unrelated Subject Matter"}}
	d := New(identity, fakeVectorIndex{id: "match-1", sim: 0.95, found: true}, thresholds)

	out, err := d.Resolve(context.Background(), Candidate{Title: "Solar Powered Irrigation"}, PolicyReject)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if out.MatchedStage != "none" {
		t.Errorf("got %+v, want no match since the matched title fails the fuzzy-title gate", out)
	}
}

func TestFuzzyTitleSimilarityIdentical(t *testing.T) {
	if got := FuzzyTitleSimilarity("Mobile Money for Farmers", "Mobile Money for Farmers"); got != 1.0 {
		t.Errorf("identical titles similarity = %v, want 1.0", got)
	}
}

func TestFuzzyTitleSimilarityIgnoresStopWordsAndCaseatAndPunctuation(t *testing.T) {
	a := "The Mobile Money Platform for Farmers"
	b := "Mobile money platform, for farmers!"
	if got := FuzzyTitleSimilarity(a, b); got < 0.95 {
		t.Errorf("normalized titles similarity = %v, want near 1.0", got)
	}
}

func TestFingerprintIncludesAuthorAndYear(t *testing.T) {
	fp1 := Fingerprint(Candidate{Title: "A Study", FirstAuthor: "Jane Doe", Year: 2024})
	fp2 := Fingerprint(Candidate{Title: "A Study", FirstAuthor: "John Smith", Year: 2024})
	if fp1 == fp2 {
		t.Error("fingerprints for different authors should differ")
	}
}

func TestMergeInnovationNeverDowngradesVerificationStatus(t *testing.T) {
	canonical := model.Innovation{
		VerificationStatus: model.StatusVerified,
		Description:        "original",
		UpdatedAt:           time.Now().Add(-time.Hour),
	}
	incoming := model.Innovation{
		VerificationStatus: model.StatusPending,
		Description:        "incoming, less reliable",
		UpdatedAt:           time.Now(),
	}

	merged := MergeInnovation(canonical, incoming, 0.9, 0.9)
	if merged.VerificationStatus != model.StatusVerified {
		t.Errorf("VerificationStatus = %v, want unchanged %v", merged.VerificationStatus, model.StatusVerified)
	}
}

func TestMergeInnovationUnionsTags(t *testing.T) {
	canonical := model.Innovation{Tags: []string{"fintech", "kenya"}}
	incoming := model.Innovation{Tags: []string{"kenya", "agritech"}}

	merged := MergeInnovation(canonical, incoming, 0.5, 0.5)
	want := map[string]bool{"fintech": true, "kenya": true, "agritech": true}
	if len(merged.Tags) != len(want) {
		t.Fatalf("merged tags = %v, want 3 unique entries", merged.Tags)
	}
	for _, tag := range merged.Tags {
		if !want[tag] {
			t.Errorf("unexpected tag %q in merged result", tag)
		}
	}
}
