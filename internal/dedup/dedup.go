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

// Package dedup implements the Deduplicator (C9): a layered fingerprint
// strategy (exact identity, canonical fingerprint, fuzzy title via semantic
// search, optional complex-relationship analysis) that decides whether a
// candidate record should be rejected, merged, updated, or linked against an
// existing canonical record (spec.md §4.5).
package dedup

import (
	"context"
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/africa-ai-collector/collector/internal/model"
)

// Policy is the action taken when a duplicate candidate is found.
type Policy string

const (
	PolicyReject Policy = "reject"
	PolicyMerge  Policy = "merge"
	PolicyUpdate Policy = "update"
	PolicyLink   Policy = "link"
)

// VectorIndex is the subset of the semantic-search gateway the deduplicator
// needs: top-1 nearest neighbor by cosine similarity over title embeddings.
type VectorIndex interface {
	TopMatch(ctx context.Context, text string) (id string, similarity float64, found bool, err error)
}

// IdentityLookup resolves an exact-identity key (DOI, upstream source ID) to
// an existing canonical record ID.
type IdentityLookup interface {
	ByExactID(ctx context.Context, key string) (id string, found bool, err error)
	ByFingerprint(ctx context.Context, fingerprint string) (id string, found bool, err error)
	// TitleByID fetches the title of an already-persisted canonical record,
	// the stage-3 fuzzy-title confirmation gate needs it to confirm a vector
	// match before trusting it.
	TitleByID(ctx context.Context, id string) (title string, found bool, err error)
}

// Thresholds are τ_hi / τ_lo / fuzzy-title-min from spec.md §4.1 config.
type Thresholds struct {
	SemanticHigh  float64
	SemanticLow   float64
	FuzzyTitleMin float64
}

// Outcome is the deduplicator's verdict for one candidate.
type Outcome struct {
	Policy       Policy
	CanonicalID  string
	Similarity   float64
	MatchedStage string // "exact_identity" | "canonical_fingerprint" | "fuzzy_title" | "none"
}

// Deduplicator holds the lookups needed to run the layered fingerprint
// strategy.
type Deduplicator struct {
	identity   IdentityLookup
	vector     VectorIndex
	thresholds Thresholds
}

// New builds a Deduplicator.
func New(identity IdentityLookup, vector VectorIndex, thresholds Thresholds) *Deduplicator {
	return &Deduplicator{identity: identity, vector: vector, thresholds: thresholds}
}

// Candidate is the minimal shape the deduplicator needs from either an
// Innovation or a Publication.
type Candidate struct {
	ExactID     string // DOI or upstream-source-id; empty if unknown
	Title       string
	FirstAuthor string // publications only; empty for innovations
	Year        int    // publications only; zero for innovations
}

// Fingerprint builds the canonical-fingerprint stage-2 key: lowercase title
// with stop-words removed and non-word characters stripped, plus
// first-author surname and year when present.
func Fingerprint(c Candidate) string {
	norm := normalizeTitle(c.Title)
	if c.FirstAuthor != "" {
		norm += "|" + strings.ToLower(lastWord(c.FirstAuthor))
	}
	if c.Year != 0 {
		norm += "|" + itoa(c.Year)
	}
	return norm
}

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "for": true, "and": true,
	"in": true, "on": true, "to": true, "with": true, "using": true,
}

var nonWord = regexp.MustCompile(`[^a-z0-9\s]`)

func normalizeTitle(title string) string {
	lower := strings.ToLower(title)
	stripped := nonWord.ReplaceAllString(lower, "")
	words := strings.Fields(stripped)
	var kept []string
	for _, w := range words {
		if !stopWords[w] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

func lastWord(s string) string {
	parts := strings.Fields(s)
	if len(parts) == 0 {
		return s
	}
	return parts[len(parts)-1]
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}

// FuzzyTitleSimilarity returns a normalized [0,1] similarity between two
// titles using Levenshtein edit distance, as a cheap pre-filter ahead of the
// (costlier) semantic vector-index comparison.
func FuzzyTitleSimilarity(a, b string) float64 {
	na, nb := normalizeTitle(a), normalizeTitle(b)
	if na == "" && nb == "" {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(na, nb)
	maxLen := len(na)
	if len(nb) > maxLen {
		maxLen = len(nb)
	}
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(dist)/float64(maxLen)
}

// Resolve runs the layered fingerprint strategy for one candidate and
// returns the recommended Outcome. policy is the ingestion-path default
// applied when a duplicate is found (spec.md §4.5: "configurable policy per
// ingestion path").
func (d *Deduplicator) Resolve(ctx context.Context, c Candidate, policy Policy) (Outcome, error) {
	// Stage 1: exact identity.
	if c.ExactID != "" {
		if id, found, err := d.identity.ByExactID(ctx, c.ExactID); err != nil {
			return Outcome{}, err
		} else if found {
			return Outcome{Policy: policy, CanonicalID: id, Similarity: 1.0, MatchedStage: "exact_identity"}, nil
		}
	}

	// Stage 2: canonical fingerprint.
	fp := Fingerprint(c)
	if id, found, err := d.identity.ByFingerprint(ctx, fp); err != nil {
		return Outcome{}, err
	} else if found {
		return Outcome{Policy: policy, CanonicalID: id, Similarity: 1.0, MatchedStage: "canonical_fingerprint"}, nil
	}

	// Stage 3: fuzzy title via semantic search. A vector hit is only trusted
	// once its title also clears the fuzzy-title-min threshold, so an
	// embedding near-neighbor from an unrelated record (same domain
	// vocabulary, different subject) can't masquerade as a duplicate.
	if d.vector != nil {
		id, sim, found, err := d.vector.TopMatch(ctx, c.Title)
		if err != nil {
			return Outcome{}, err
		}
		if found {
			title, titleFound, err := d.identity.TitleByID(ctx, id)
			if err != nil {
				return Outcome{}, err
			}
			fuzzy := 0.0
			if titleFound {
				fuzzy = FuzzyTitleSimilarity(c.Title, title)
			}
			if fuzzy >= d.thresholds.FuzzyTitleMin {
				if sim >= d.thresholds.SemanticHigh {
					return Outcome{Policy: policy, CanonicalID: id, Similarity: sim, MatchedStage: "fuzzy_title"}, nil
				}
				if sim >= d.thresholds.SemanticLow {
					return Outcome{Policy: PolicyMerge, CanonicalID: id, Similarity: sim, MatchedStage: "fuzzy_title"}, nil
				}
			}
		}
	}

	return Outcome{Policy: "", MatchedStage: "none"}, nil
}

// MergeInnovation applies PolicyMerge semantics to an Innovation pair:
// union of attribute sets, scalar conflicts resolved by source reliability
// then recency, and verification_status never downgraded (spec.md §4.5).
func MergeInnovation(canonical, incoming model.Innovation, incomingReliability, canonicalReliability float64) model.Innovation {
	merged := canonical

	if preferIncoming(incomingReliability, canonicalReliability, incoming.UpdatedAt.After(canonical.UpdatedAt)) {
		if incoming.Description != "" {
			merged.Description = incoming.Description
		}
		if incoming.Country != "" {
			merged.Country = incoming.Country
		}
	}

	merged.Tags = unionStrings(canonical.Tags, incoming.Tags)
	merged.OrgIDs = unionStrings(canonical.OrgIDs, incoming.OrgIDs)
	merged.IndividualIDs = unionStrings(canonical.IndividualIDs, incoming.IndividualIDs)
	merged.Fundings = append(append([]model.FundingEvent{}, canonical.Fundings...), incoming.Fundings...)

	// Verification_status is never downgraded by a merge.
	if statusRank(incoming.VerificationStatus) > statusRank(canonical.VerificationStatus) {
		merged.VerificationStatus = incoming.VerificationStatus
	}

	return merged
}

func statusRank(s model.VerificationStatus) int {
	switch s {
	case model.StatusVerified:
		return 2
	case model.StatusCommunity:
		return 1
	case model.StatusPending:
		return 0
	default:
		return -1
	}
}

// preferIncoming implements "prefer the value with higher source
// reliability, breaking ties by recency" (spec.md §4.5).
func preferIncoming(incomingReliability, canonicalReliability float64, incomingIsNewer bool) bool {
	if incomingReliability != canonicalReliability {
		return incomingReliability > canonicalReliability
	}
	return incomingIsNewer
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, s := range append(append([]string{}, a...), b...) {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
