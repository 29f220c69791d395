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

package citation

import (
	"strings"
	"testing"

	"github.com/africa-ai-collector/collector/internal/model"
)

func TestExtractSummaryPicksLeadingSentences(t *testing.T) {
	text := "This is the first sentence of the report. This is the second sentence here. " +
		"This is a third one too. A fourth sentence follows after that."
	ex := Extract(text)
	if !strings.HasPrefix(ex.Summary, "This is the first sentence") {
		t.Errorf("Summary = %q, want it to start with the first sentence", ex.Summary)
	}
}

func TestExtractKeyFindingsFromEnumeration(t *testing.T) {
	text := "Report body.\n1. Solar startups raised $4M in Kenya.\n2. A new AI lab opened in Rwanda.\n"
	ex := Extract(text)
	if len(ex.KeyFindings) != 2 {
		t.Fatalf("KeyFindings = %v, want 2 entries", ex.KeyFindings)
	}
	if !strings.Contains(ex.KeyFindings[0], "Solar startups") {
		t.Errorf("KeyFindings[0] = %q", ex.KeyFindings[0])
	}
}

func TestExtractKeyFindingsFallsBackToKeywordSentences(t *testing.T) {
	text := "Nothing enumerated here. But this innovation raised new funding last quarter. Unrelated filler text follows."
	ex := Extract(text)
	if len(ex.KeyFindings) == 0 {
		t.Fatal("expected a fallback key finding from keyword matching")
	}
}

func TestExtractStructuredFindingsTagsEntities(t *testing.T) {
	text := "Paragraph one is plain text with nothing notable in it at all.\n\n" +
		"AgriTech Labs startup raised $2 million to expand operations across Kenya and Nigeria."
	ex := Extract(text)
	if len(ex.StructuredFindings) != 1 {
		t.Fatalf("StructuredFindings = %+v, want 1 tagged paragraph", ex.StructuredFindings)
	}
	f := ex.StructuredFindings[0]
	if len(f.Companies) == 0 {
		t.Error("expected a detected company")
	}
	if len(f.Locations) != 2 {
		t.Errorf("Locations = %v, want 2", f.Locations)
	}
	if len(f.FundingAmounts) == 0 {
		t.Error("expected a detected funding amount")
	}
	if f.EntityTypeCount != 3 {
		t.Errorf("EntityTypeCount = %d, want 3", f.EntityTypeCount)
	}
}

func TestExtractSourcesDeduplicatesAndStripsTrailingPunctuation(t *testing.T) {
	text := "See https://example.com/report. Also https://example.com/report, and https://other.com/x)"
	ex := Extract(text)
	if len(ex.Sources) != 2 {
		t.Fatalf("Sources = %v, want 2 unique URLs", ex.Sources)
	}
	for _, s := range ex.Sources {
		if strings.HasSuffix(s, ".") || strings.HasSuffix(s, ")") {
			t.Errorf("source %q retained trailing punctuation", s)
		}
	}
}

func TestExtractCitationsCaptureContextWindow(t *testing.T) {
	text := "Background text before the link. See https://example.com/paper for details on the study."
	ex := Extract(text)
	if len(ex.Citations) != 1 {
		t.Fatalf("Citations = %+v, want 1", ex.Citations)
	}
	c := ex.Citations[0]
	if c.RawText != "https://example.com/paper" {
		t.Errorf("RawText = %q", c.RawText)
	}
	if c.ResolutionState != model.ResolutionUnresolved {
		t.Errorf("ResolutionState = %v, want %v", c.ResolutionState, model.ResolutionUnresolved)
	}
	if !strings.Contains(c.CitationContext, "Background text") {
		t.Errorf("CitationContext = %q, want it to include surrounding text", c.CitationContext)
	}
}

func TestScoreConfidenceRewardsRicherExtractions(t *testing.T) {
	sparse := Extract("Short text.")
	rich := Extract(strings.Repeat("A detailed paragraph about AgriTech startup raising $5 million in Kenya and Nigeria. ", 20) +
		"\n\nSee https://example.com/source for more.")

	if rich.ConfidenceScore <= sparse.ConfidenceScore {
		t.Errorf("rich ConfidenceScore = %v should exceed sparse ConfidenceScore = %v", rich.ConfidenceScore, sparse.ConfidenceScore)
	}
	if rich.ConfidenceScore > 1.0 {
		t.Errorf("ConfidenceScore = %v must be clamped to 1.0", rich.ConfidenceScore)
	}
}
