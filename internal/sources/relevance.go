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

import "strings"

// africanCountries is the fixed African-country list used by the relevance
// scorer and, together with africanInstitutions, as buildBooleanQuery's
// default geographic clause. The citation extractor keeps its own shorter
// list.
var africanCountries = []string{
	"nigeria", "kenya", "south africa", "egypt", "ghana", "ethiopia", "morocco",
	"tunisia", "rwanda", "uganda", "tanzania", "senegal", "ivory coast",
	"cote d'ivoire", "cameroon", "zambia", "zimbabwe", "botswana", "namibia",
	"algeria", "angola", "mozambique", "mali", "burkina faso", "benin",
	"togo", "malawi", "somalia", "sudan", "libya", "madagascar",
}

// africanInstitutions carries a higher weight than a bare country mention,
// reflecting direct institutional provenance.
var africanInstitutions = []string{
	"university of cape town", "university of nairobi", "university of lagos",
	"makerere university", "university of ghana", "wits university",
	"stellenbosch university", "cairo university", "ashesi university",
	"african institute for mathematical sciences", "aims",
}

// aiHighValueTerms are weighted above generic AI vocabulary.
var aiHighValueTerms = []string{
	"machine learning", "deep learning", "neural network", "large language model",
	"generative ai", "computer vision", "natural language processing", "llm",
	"reinforcement learning", "transformer model",
}

var aiGeneralTerms = []string{
	"artificial intelligence", "ai-powered", "ai-driven", "algorithm",
	"predictive model", "data science", "automation", "chatbot",
}

// aiCategoryWhitelist matches academic taxonomy categories (e.g. arXiv's
// cs.AI, cs.LG) to treat as AI-relevant regardless of term occurrence.
var aiCategoryWhitelist = map[string]bool{
	"cs.ai": true, "cs.lg": true, "cs.cl": true, "cs.cv": true, "cs.ne": true,
	"stat.ml": true,
}

// ScoreAfricanRelevance implements a weighted-occurrence scheme, highest
// weight first: an institution named in title+abstract (0.4 each), a country
// in title+abstract (0.25), a country in an affiliation (0.15), and a
// country in an author string (0.05), summed and capped at 1.0. There is no
// separate region term: a regional name such as "East Africa" adds nothing.
func ScoreAfricanRelevance(title, abstract string, authors []string, affiliations []string) float64 {
	text := strings.ToLower(title + " " + abstract)

	var score float64
	for _, inst := range africanInstitutions {
		if strings.Contains(text, inst) {
			score += 0.4
		}
	}
	for _, c := range africanCountries {
		if strings.Contains(text, c) {
			score += 0.25
		}
	}
	affText := strings.ToLower(strings.Join(affiliations, " "))
	for _, c := range africanCountries {
		if strings.Contains(affText, c) {
			score += 0.15
		}
	}
	authorText := strings.ToLower(strings.Join(authors, " "))
	for _, c := range africanCountries {
		if strings.Contains(authorText, c) {
			score += 0.05
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// ScoreAIRelevance implements the AI-term-occurrence scheme from spec.md
// §4.3: high-value terms weighted higher than general terms, plus a
// category-whitelist bonus.
func ScoreAIRelevance(title, abstract string, categories []string) float64 {
	text := strings.ToLower(title + " " + abstract)

	var score float64
	for _, t := range aiHighValueTerms {
		if strings.Contains(text, t) {
			score += 0.3
		}
	}
	for _, t := range aiGeneralTerms {
		if strings.Contains(text, t) {
			score += 0.12
		}
	}
	for _, cat := range categories {
		if aiCategoryWhitelist[strings.ToLower(cat)] {
			score += 0.35
			break
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}
