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
	"strings"

	"github.com/africa-ai-collector/collector/internal/model"
)

// stageIndicators scores a publication's maturity by keyword co-occurrence
// in its title+abstract. The model collapses "scaling" and "commercial"
// into model.StageProduction since Publication only distinguishes four
// stages, not five.
var stageIndicators = map[model.DevelopmentStage][]string{
	model.StageConcept: {
		"theoretical", "simulation", "analysis", "survey", "literature review",
		"framework", "algorithm", "approach",
	},
	model.StagePrototype: {
		"prototype", "proof of concept", "poc", "demo", "implementation",
		"system design", "architecture", "development", "build",
	},
	model.StagePilot: {
		"pilot study", "field test", "trial", "validation", "evaluation",
		"testing", "experiment", "case study", "real-world",
	},
	model.StageProduction: {
		"deployment", "scaling", "production", "rollout", "expansion",
		"commercialization", "market launch", "scale-up",
		"product", "service", "startup", "revenue", "customers", "commercial",
	},
}

// DetectDevelopmentStage scores title+abstract against stageIndicators and
// returns the highest-scoring stage, or model.StageUnknown if nothing
// matched.
func DetectDevelopmentStage(title, abstract string) model.DevelopmentStage {
	text := strings.ToLower(title + " " + abstract)

	var best model.DevelopmentStage
	bestScore := 0
	for stage, indicators := range stageIndicators {
		score := 0
		for _, ind := range indicators {
			score += strings.Count(text, ind)
		}
		if score > bestScore {
			best, bestScore = stage, score
		}
	}
	return best
}

// businessModelIndicators scores a publication's target customer by keyword
// co-occurrence, the same four categories the teacher's enrichment pipeline
// tagged funding events with.
var businessModelIndicators = map[string][]string{
	"B2B": {"enterprise", "business-to-business", "b2b", "corporate", "organizations", "institutional"},
	"B2C": {"consumer", "business-to-consumer", "b2c", "individual", "personal", "retail", "end-user", "customer"},
	"B2G": {"government", "public sector", "municipal", "policy", "regulation", "administration", "civic", "public service"},
	"NGO": {"non-profit", "ngo", "humanitarian", "social impact", "community", "charitable", "foundation"},
}

// ExtractBusinessModel scores title+abstract against businessModelIndicators
// and returns the highest-scoring label, or "" if nothing matched.
func ExtractBusinessModel(title, abstract string) string {
	text := strings.ToLower(title + " " + abstract)

	var best string
	bestScore := 0
	for modelType, indicators := range businessModelIndicators {
		score := 0
		for _, ind := range indicators {
			score += strings.Count(text, ind)
		}
		if score > bestScore {
			best, bestScore = modelType, score
		}
	}
	return best
}

// techCategoryIndicators maps a technology keyword to the category it
// belongs to; ExtractTechnologies reports the categories present, not every
// matched keyword, since Publication.ExtractedTechnologies is a tag list
// rather than a scored breakdown.
var techCategoryIndicators = map[string][]string{
	"machine_learning": {
		"machine learning", "deep learning", "neural network", "cnn", "rnn",
		"transformer", "bert", "gpt", "random forest", "gradient boosting",
	},
	"nlp": {
		"natural language processing", "nlp", "text mining", "sentiment analysis",
		"named entity recognition", "language model", "text classification",
	},
	"computer_vision": {
		"computer vision", "image processing", "object detection",
		"face recognition", "image classification", "opencv", "yolo", "resnet",
	},
	"blockchain": {
		"blockchain", "cryptocurrency", "bitcoin", "ethereum", "smart contract",
		"decentralized", "distributed ledger",
	},
	"iot": {
		"internet of things", "iot", "sensor", "embedded system", "wireless",
		"mqtt", "zigbee", "lora",
	},
	"data_science": {
		"data science", "big data", "analytics", "visualization", "pandas",
		"numpy", "scikit-learn", "tensorflow", "pytorch",
	},
}

// ExtractTechnologies returns the technology categories detected in
// title+abstract, in techCategoryOrder order to keep output deterministic.
func ExtractTechnologies(title, abstract string) []string {
	text := strings.ToLower(title + " " + abstract)

	var out []string
	for _, category := range techCategoryOrder {
		for _, ind := range techCategoryIndicators[category] {
			if strings.Contains(text, ind) {
				out = append(out, category)
				break
			}
		}
	}
	return out
}

// techCategoryOrder fixes iteration order over techCategoryIndicators (maps
// don't guarantee one) so ExtractTechnologies is deterministic.
var techCategoryOrder = []string{
	"machine_learning", "nlp", "computer_vision", "blockchain", "iot", "data_science",
}
