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
	"testing"

	"github.com/africa-ai-collector/collector/internal/model"
)

func TestDetectDevelopmentStagePicksHighestScoringStage(t *testing.T) {
	if got := DetectDevelopmentStage("A Pilot Study", "We ran a field test and trial to validate the approach"); got != model.StagePilot {
		t.Errorf("DevelopmentStage = %v, want %v", got, model.StagePilot)
	}
}

func TestDetectDevelopmentStageCollapsesScalingAndCommercialToProduction(t *testing.T) {
	scaling := DetectDevelopmentStage("Scaling deployment across the region", "rollout and expansion to new markets")
	commercial := DetectDevelopmentStage("A new startup", "revenue from paying customers at commercial launch")
	if scaling != model.StageProduction {
		t.Errorf("scaling-stage text classified as %v, want %v", scaling, model.StageProduction)
	}
	if commercial != model.StageProduction {
		t.Errorf("commercial-stage text classified as %v, want %v", commercial, model.StageProduction)
	}
}

func TestDetectDevelopmentStageUnknownWithNoIndicators(t *testing.T) {
	if got := DetectDevelopmentStage("Untitled", ""); got != model.StageUnknown {
		t.Errorf("DevelopmentStage = %v, want StageUnknown", got)
	}
}

func TestExtractBusinessModelPicksHighestScoringCategory(t *testing.T) {
	if got := ExtractBusinessModel("A government policy tool", "built for public sector administration and regulation"); got != "B2G" {
		t.Errorf("BusinessModel = %q, want B2G", got)
	}
}

func TestExtractBusinessModelEmptyWithNoIndicators(t *testing.T) {
	if got := ExtractBusinessModel("Untitled", ""); got != "" {
		t.Errorf("BusinessModel = %q, want empty", got)
	}
}

func TestExtractTechnologiesReturnsEveryMatchedCategory(t *testing.T) {
	got := ExtractTechnologies("A deep learning approach", "using blockchain smart contracts for verification")
	want := map[string]bool{"machine_learning": true, "blockchain": true}
	if len(got) != len(want) {
		t.Fatalf("ExtractTechnologies = %v, want 2 categories", got)
	}
	for _, c := range got {
		if !want[c] {
			t.Errorf("unexpected category %q in %v", c, got)
		}
	}
}

func TestExtractTechnologiesNilWithNoMatches(t *testing.T) {
	if got := ExtractTechnologies("Untitled", "a generic abstract"); got != nil {
		t.Errorf("ExtractTechnologies = %v, want nil", got)
	}
}
