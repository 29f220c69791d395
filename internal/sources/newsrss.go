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
	"time"

	"github.com/africa-ai-collector/collector/internal/config"
	"github.com/africa-ai-collector/collector/internal/mediator"
)

// NewsArticle is the typed record yielded by NewsRSSAdapter.Parse.
type NewsArticle struct {
	Title                 string
	Link                  string
	PublishedAt           time.Time
	Summary               string
	AfricanRelevanceScore float64
	AIRelevanceScore      float64
}

// NewsRSSAdapter polls a configured set of RSS feed URLs and emits items
// published within the last WindowHours (spec.md §4.3).
type NewsRSSAdapter struct {
	feedURLs    []string
	windowHours int
	httpGet     func(ctx context.Context, url string) ([]byte, error)
	mediator    *mediator.Mediator
	thresholds  config.RelevanceThreshold
	now         func() time.Time
	cacheBinding
}

// NewNewsRSSAdapter builds a NewsRSSAdapter over the given feed URLs.
func NewNewsRSSAdapter(feedURLs []string, windowHours int, m *mediator.Mediator, thresholds config.RelevanceThreshold) *NewsRSSAdapter {
	if windowHours <= 0 {
		windowHours = 24
	}
	return &NewsRSSAdapter{
		feedURLs:    feedURLs,
		windowHours: windowHours,
		mediator:    m,
		thresholds:  thresholds,
		httpGet:     defaultHTTPGet,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (a *NewsRSSAdapter) Name() string { return "news_rss" }

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
}

// Fetch implements Adapter, polling every configured feed URL.
func (a *NewsRSSAdapter) Fetch(ctx context.Context, _ QuerySpec) (RecordSeq, error) {
	cutoff := a.now().Add(-time.Duration(a.windowHours) * time.Hour)

	return func(yield func(RawRecord) bool) {
		for _, feedURL := range a.feedURLs {
			url := feedURL
			raw, hit, err := cachedFetch(ctx, a.cacheBinding, cacheKey("news_rss", url), a.mediator, mediator.Call[[]byte]{
				Source: "news_rss",
				Fn: func(ctx context.Context) ([]byte, error) {
					return a.httpGet(ctx, url)
				},
			})
			if err != nil || !hit {
				continue
			}

			var feed rssFeed
			if err := xml.Unmarshal(raw, &feed); err != nil {
				continue
			}

			for _, item := range feed.Channel.Items {
				published, err := time.Parse(time.RFC1123Z, item.PubDate)
				if err != nil {
					published = a.now()
				}
				if published.Before(cutoff) {
					continue
				}
				if !yield(RawRecord{
					Source: "news_rss",
					Payload: map[string]interface{}{
						"title":       item.Title,
						"link":        item.Link,
						"summary":     item.Description,
						"published":   published,
						"feed_url":    feedURL,
					},
				}) {
					return
				}
			}
		}
	}, nil
}

// Parse converts a RawRecord into a NewsArticle, rejecting items below the
// configured relevance thresholds.
func (a *NewsRSSAdapter) Parse(r RawRecord) (NewsArticle, DiscardReason, bool) {
	title, _ := r.Payload["title"].(string)
	link, _ := r.Payload["link"].(string)
	summary, _ := r.Payload["summary"].(string)
	published, _ := r.Payload["published"].(time.Time)

	article := NewsArticle{
		Title:                 title,
		Link:                  link,
		PublishedAt:           published,
		Summary:               summary,
		AfricanRelevanceScore: ScoreAfricanRelevance(title, summary, nil, nil),
		AIRelevanceScore:      ScoreAIRelevance(title, summary, nil),
	}

	if article.AfricanRelevanceScore < a.thresholds.African || article.AIRelevanceScore < a.thresholds.AI {
		return article, DiscardBelowThreshold, false
	}
	return article, "", true
}
