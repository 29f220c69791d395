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

// Package citation implements the citation extractor (C8): it parses the
// free-form prose an LLM-intelligence call returns into a summary,
// key-findings list, structured findings, a deduplicated sources list, and
// extracted citations with context windows, per spec.md §4.4.
package citation

import (
	"regexp"
	"strings"

	"github.com/africa-ai-collector/collector/internal/model"
)

var (
	sentenceSplit  = regexp.MustCompile(`(?s)([^.!?]+[.!?])`)
	enumMarker     = regexp.MustCompile(`(?m)^\s*(?:\d+[.)]|[-*•])\s+(.+)$`)
	urlPattern     = regexp.MustCompile(`https?://[^\s)\]}"']+`)
	fundingPattern = regexp.MustCompile(`(?i)\$?\s?\d+(?:\.\d+)?\s?(million|billion|M|B|k|thousand)\b`)
	companyPattern = regexp.MustCompile(`\b([A-Z][a-zA-Z0-9]+(?:\s[A-Z][a-zA-Z0-9]+){0,3})\s+(?:startup|founded|launched)`)
)

var keyFindingFallbackTerms = []string{"ai", "innovation", "startup", "funding", "research"}

// africanLocations is a 20-country subset of the country list used for
// African-relevance scoring in the sources package, kept here to tag
// structured findings.
var africanLocations = []string{
	"nigeria", "kenya", "south africa", "egypt", "ghana", "ethiopia", "morocco",
	"tunisia", "rwanda", "uganda", "tanzania", "senegal", "cameroon", "zambia",
	"zimbabwe", "botswana", "namibia", "algeria", "angola", "mozambique",
}

// StructuredFinding is a per-paragraph object tagged with detected entities.
type StructuredFinding struct {
	Paragraph    string
	Companies    []string
	Locations    []string
	FundingAmounts []string
	EntityTypeCount int
}

// Extraction is the full result of processing one raw LLM response.
type Extraction struct {
	Summary           string
	KeyFindings       []string
	StructuredFindings []StructuredFinding
	Sources           []string
	Citations         []model.ExtractedCitation
	ConfidenceScore   float64
}

// Extract processes rawText (the free-form prose of an intelligence-report
// provider response) into an Extraction.
func Extract(rawText string) Extraction {
	summary := extractSummary(rawText, 3)
	keyFindings := extractKeyFindings(rawText)
	structured := extractStructuredFindings(rawText)
	sourceURLs := extractSources(rawText)
	citations := extractCitations(rawText, sourceURLs)

	confidence := scoreConfidence(rawText, structured, sourceURLs)

	return Extraction{
		Summary:            summary,
		KeyFindings:        keyFindings,
		StructuredFindings: structured,
		Sources:            sourceURLs,
		Citations:          citations,
		ConfidenceScore:    confidence,
	}
}

// extractSummary takes the first n salient sentences — non-empty after
// trimming, longer than a trivial fragment.
func extractSummary(text string, n int) string {
	matches := sentenceSplit.FindAllString(text, -1)
	var picked []string
	for _, m := range matches {
		s := strings.TrimSpace(m)
		if len(s) < 20 {
			continue
		}
		picked = append(picked, s)
		if len(picked) >= n {
			break
		}
	}
	return strings.Join(picked, " ")
}

// extractKeyFindings detects enumeration markers (leading digits/bullets);
// falls back to sentences containing any key-finding term.
func extractKeyFindings(text string) []string {
	var findings []string
	for _, m := range enumMarker.FindAllStringSubmatch(text, -1) {
		f := strings.TrimSpace(m[1])
		if f != "" {
			findings = append(findings, f)
		}
	}
	if len(findings) > 0 {
		return findings
	}

	for _, m := range sentenceSplit.FindAllString(text, -1) {
		s := strings.TrimSpace(m)
		lower := strings.ToLower(s)
		for _, term := range keyFindingFallbackTerms {
			if strings.Contains(lower, term) {
				findings = append(findings, s)
				break
			}
		}
	}
	return findings
}

// extractStructuredFindings tags each paragraph with detected entities:
// company names, African locations, and funding amounts.
func extractStructuredFindings(text string) []StructuredFinding {
	paragraphs := strings.Split(text, "\n\n")
	var out []StructuredFinding

	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		var companies []string
		for _, m := range companyPattern.FindAllStringSubmatch(p, -1) {
			companies = append(companies, m[1])
		}

		var locations []string
		lower := strings.ToLower(p)
		for _, loc := range africanLocations {
			if strings.Contains(lower, loc) {
				locations = append(locations, loc)
			}
		}

		funding := fundingPattern.FindAllString(p, -1)

		entityTypes := 0
		if len(companies) > 0 {
			entityTypes++
		}
		if len(locations) > 0 {
			entityTypes++
		}
		if len(funding) > 0 {
			entityTypes++
		}
		if entityTypes == 0 {
			continue
		}

		out = append(out, StructuredFinding{
			Paragraph:       p,
			Companies:       companies,
			Locations:       locations,
			FundingAmounts:  funding,
			EntityTypeCount: entityTypes,
		})
	}
	return out
}

// extractSources collects all URL-like substrings, deduplicated with
// trailing punctuation stripped.
func extractSources(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, u := range urlPattern.FindAllString(text, -1) {
		u = strings.TrimRight(u, ".,;:)]}\"'")
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// extractCitations builds an ExtractedCitation per source URL, with a
// surrounding-text context window for later resolution.
func extractCitations(text string, sources []string) []model.ExtractedCitation {
	citations := make([]model.ExtractedCitation, 0, len(sources))
	for _, url := range sources {
		idx := strings.Index(text, url)
		context := ""
		if idx >= 0 {
			start := idx - 120
			if start < 0 {
				start = 0
			}
			end := idx + len(url) + 120
			if end > len(text) {
				end = len(text)
			}
			context = text[start:end]
		}
		citations = append(citations, model.ExtractedCitation{
			RawText:         url,
			CitationContext: context,
			ResolutionState: model.ResolutionUnresolved,
			Confidence:      0.5,
		})
	}
	return citations
}

// scoreConfidence is a weighted sum over content length, structured-finding
// count, distinct entity types mentioned, and presence of URL sources,
// clamped to [0,1] (spec.md §4.4).
func scoreConfidence(text string, findings []StructuredFinding, sources []string) float64 {
	var score float64

	lengthScore := float64(len(text)) / 4000.0
	if lengthScore > 0.3 {
		lengthScore = 0.3
	}
	score += lengthScore

	findingScore := float64(len(findings)) * 0.05
	if findingScore > 0.3 {
		findingScore = 0.3
	}
	score += findingScore

	entityTypes := map[string]bool{}
	for _, f := range findings {
		if len(f.Companies) > 0 {
			entityTypes["company"] = true
		}
		if len(f.Locations) > 0 {
			entityTypes["location"] = true
		}
		if len(f.FundingAmounts) > 0 {
			entityTypes["funding"] = true
		}
	}
	score += float64(len(entityTypes)) * 0.1

	if len(sources) > 0 {
		score += 0.15
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}
