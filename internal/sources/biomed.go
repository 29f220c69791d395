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
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/africa-ai-collector/collector/internal/config"
	"github.com/africa-ai-collector/collector/internal/mediator"
	"github.com/africa-ai-collector/collector/internal/model"
)

const biomedBatchSize = 20

// BiomedAdapter queries a biomedical citation index with the canonical
// two-phase pattern: an ID-search call followed by batched detail fetches
// (spec.md §4.3).
type BiomedAdapter struct {
	searchURL string
	fetchURL  string
	httpGet   func(ctx context.Context, url string) ([]byte, error)
	mediator  *mediator.Mediator
	thresholds config.RelevanceThreshold
	cacheBinding
}

// NewBiomedAdapter builds a BiomedAdapter (PubMed E-utilities endpoint
// shape: esearch then efetch).
func NewBiomedAdapter(searchURL, fetchURL string, m *mediator.Mediator, thresholds config.RelevanceThreshold) *BiomedAdapter {
	return &BiomedAdapter{searchURL: searchURL, fetchURL: fetchURL, mediator: m, thresholds: thresholds, httpGet: defaultHTTPGet}
}

func (a *BiomedAdapter) Name() string { return "pubmed" }

type esearchResult struct {
	IDList []string `xml:"IdList>Id"`
}

type pubmedArticleSet struct {
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	PMID     string   `xml:"MedlineCitation>PMID"`
	Title    string   `xml:"MedlineCitation>Article>ArticleTitle"`
	Abstract string   `xml:"MedlineCitation>Article>Abstract>AbstractText"`
	DOI      string   `xml:"PubmedData>ArticleIdList>ArticleId"`
	Authors  []pubmedAuthor `xml:"MedlineCitation>Article>AuthorList>Author"`
	MeSH     []pubmedMeSH   `xml:"MedlineCitation>MeshHeadingList>MeshHeading"`
}

type pubmedAuthor struct {
	LastName string `xml:"LastName"`
	ForeName string `xml:"ForeName"`
}

type pubmedMeSH struct {
	DescriptorName string `xml:"DescriptorName"`
}

// Fetch implements Adapter: esearch for matching PMIDs, then batched efetch
// calls of biomedBatchSize at a time.
func (a *BiomedAdapter) Fetch(ctx context.Context, spec QuerySpec) (RecordSeq, error) {
	query := buildBooleanQuery(spec.Keywords, spec.GeographicFocus)
	searchURL := fmt.Sprintf("%s?term=%s&retmax=500", a.searchURL, query)

	raw, hit, err := cachedFetch(ctx, a.cacheBinding, cacheKey("pubmed", "esearch", query), a.mediator, mediator.Call[[]byte]{
		Source: "pubmed",
		Fn: func(ctx context.Context) ([]byte, error) {
			return a.httpGet(ctx, searchURL)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sources: pubmed esearch: %w", err)
	}
	if !hit {
		return func(yield func(RawRecord) bool) {}, nil
	}

	var ids esearchResult
	if err := xml.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("sources: pubmed esearch decode: %w", err)
	}

	return func(yield func(RawRecord) bool) {
		for batchStart := 0; batchStart < len(ids.IDList); batchStart += biomedBatchSize {
			end := batchStart + biomedBatchSize
			if end > len(ids.IDList) {
				end = len(ids.IDList)
			}
			batch := ids.IDList[batchStart:end]

			fetchURL := fmt.Sprintf("%s?id=%s", a.fetchURL, strings.Join(batch, ","))
			detailRaw, hit, err := cachedFetch(ctx, a.cacheBinding, cacheKey("pubmed", "efetch", strings.Join(batch, ",")), a.mediator, mediator.Call[[]byte]{
				Source: "pubmed",
				Fn: func(ctx context.Context) ([]byte, error) {
					return a.httpGet(ctx, fetchURL)
				},
			})
			if err != nil || !hit {
				continue
			}

			var set pubmedArticleSet
			if err := xml.Unmarshal(detailRaw, &set); err != nil {
				continue
			}

			for _, art := range set.Articles {
				if !yield(articleToRawRecord(art)) {
					return
				}
			}
		}
	}, nil
}

func articleToRawRecord(art pubmedArticle) RawRecord {
	authors := make([]string, 0, len(art.Authors))
	for _, au := range art.Authors {
		authors = append(authors, strings.TrimSpace(au.ForeName+" "+au.LastName))
	}
	mesh := make([]string, 0, len(art.MeSH))
	for _, m := range art.MeSH {
		mesh = append(mesh, m.DescriptorName)
	}
	return RawRecord{
		Source: "pubmed",
		Payload: map[string]interface{}{
			"pmid":     art.PMID,
			"title":    strings.TrimSpace(art.Title),
			"abstract": strings.TrimSpace(art.Abstract),
			"doi":      art.DOI,
			"authors":  authors,
			"mesh":     mesh,
		},
	}
}

// Parse converts a RawRecord into a Publication tagged with MeSH keywords.
func (a *BiomedAdapter) Parse(r RawRecord) (model.Publication, DiscardReason, bool) {
	title, _ := r.Payload["title"].(string)
	abstract, _ := r.Payload["abstract"].(string)
	authors, _ := r.Payload["authors"].([]string)
	mesh, _ := r.Payload["mesh"].([]string)
	pmid, _ := r.Payload["pmid"].(string)
	doi, _ := r.Payload["doi"].(string)

	africanScore := ScoreAfricanRelevance(title, abstract, authors, nil)
	aiScore := ScoreAIRelevance(title, abstract, nil)

	pub := model.Publication{
		Title:                 title,
		Abstract:              abstract,
		Authors:               authors,
		DOI:                   doi,
		Source:                model.SourcePubMed,
		SourceID:              pmid,
		Keywords:              mesh,
		AfricanRelevanceScore: africanScore,
		AIRelevanceScore:      aiScore,
		CreatedAt:             time.Now().UTC(),
	}

	if !pub.MeetsThreshold(a.thresholds.African, a.thresholds.AI) {
		return pub, DiscardBelowThreshold, false
	}
	pub.DevelopmentStage = DetectDevelopmentStage(title, abstract)
	pub.BusinessModel = ExtractBusinessModel(title, abstract)
	pub.ExtractedTechnologies = ExtractTechnologies(title, abstract)
	return pub, "", true
}
