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

package orchestrator

import (
	"net/url"
	"strings"

	"github.com/africa-ai-collector/collector/internal/model"
	"github.com/africa-ai-collector/collector/internal/sources"
)

// contentType is the URL-host-derived classification phase 2 uses to pick an
// extraction schema (spec.md §4.7 phase 2).
type contentType string

const (
	contentStartupProfile contentType = "startup_profile"
	contentRepository     contentType = "repository"
	contentPaper          contentType = "paper"
	contentNewsArticle    contentType = "news_article"
	contentGeneric        contentType = "generic"
)

// classifyContentType inspects a target URL's host to pick an extraction
// schema, the way a crawler routes by domain rather than by sniffing body
// content.
func classifyContentType(target string) contentType {
	u, err := url.Parse(target)
	if err != nil {
		return contentGeneric
	}
	host := strings.ToLower(u.Host)
	switch {
	case strings.Contains(host, "github.com") || strings.Contains(host, "gitlab.com"):
		return contentRepository
	case strings.Contains(host, "arxiv.org") || strings.Contains(host, "ncbi.nlm.nih.gov"):
		return contentPaper
	case strings.Contains(host, "techcrunch.com") || strings.Contains(host, "news") || strings.Contains(host, "blog"):
		return contentNewsArticle
	default:
		return contentStartupProfile
	}
}

// extractTarget converts one web-search result into a candidate Innovation,
// applying a content-type-specific extraction schema. Paper- and repository-
// typed URLs are treated as supporting evidence rather than primary
// innovation records (they feed Publication ingestion via their own
// adapters), so only startup-profile, news-article and generic targets
// produce a candidate here.
func extractTarget(hit sources.SearchResult) (model.Innovation, bool) {
	ct := classifyContentType(hit.URL)
	if ct == contentRepository || ct == contentPaper {
		return model.Innovation{}, false
	}

	in := model.Innovation{
		Title:       hit.Title,
		Description: hit.Snippet,
		Type:        inferInnovationType(ct),
		VerificationStatus: model.StatusPending,
		Visibility:         model.VisibilityHidden,
		URLs:               model.ExternalURLs{Website: hit.URL},
	}
	if in.Title == "" {
		return model.Innovation{}, false
	}
	return in, true
}

func inferInnovationType(ct contentType) model.InnovationType {
	switch ct {
	case contentNewsArticle:
		return model.TypeOther
	default:
		return model.TypeStartup
	}
}

// completeness reports the fraction of required fields already present,
// admission gate input (spec.md §4.7 phase 3: completeness ≥ 0.3).
func completeness(in model.Innovation) float64 {
	total := len(model.InnovationRequiredFields)
	if total == 0 {
		return 1.0
	}
	missing := len(in.MissingFields())
	return float64(total-missing) / float64(total)
}

// confidenceScore is a simple heuristic over how much supporting text the
// target extraction recovered: description length plus presence of a website
// and of a title, admission gate input (spec.md §4.7 phase 3: confidence ≥
// 0.5).
func confidenceScore(in model.Innovation) float64 {
	score := 0.0
	if len(in.Description) > 40 {
		score += 0.4
	} else if len(in.Description) > 0 {
		score += 0.2
	}
	if in.URLs.Website != "" {
		score += 0.3
	}
	if in.Title != "" {
		score += 0.3
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
