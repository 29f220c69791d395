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

// Package model defines the collector's canonical data model: Innovation,
// Publication, IntelligenceReport, ExtractedCitation, PipelineRun,
// CacheEntry, BackfillJob, and the supporting entity types. Records hold
// opaque IDs and reference other records by ID rather than by pointer, per
// the arena-store Design Note (spec.md §9) — this keeps the graph of
// innovations/organizations/individuals free of cycles in memory and lets
// the Persistence gateway own the authoritative copies.
package model

import "time"

// InnovationType enumerates the kind of effort an Innovation represents.
type InnovationType string

const (
	TypeStartup  InnovationType = "startup"
	TypeResearch InnovationType = "research"
	TypePlatform InnovationType = "platform"
	TypeService  InnovationType = "service"
	TypeOther    InnovationType = "other"
)

// VerificationStatus tracks how confident the system is in a record.
// Transitions are monotonic: pending → community → verified, or any state →
// rejected. See (VerificationStatus).CanTransitionTo.
type VerificationStatus string

const (
	StatusPending   VerificationStatus = "pending"
	StatusCommunity VerificationStatus = "community"
	StatusVerified  VerificationStatus = "verified"
	StatusRejected  VerificationStatus = "rejected"
)

var statusRank = map[VerificationStatus]int{
	StatusPending:   0,
	StatusCommunity: 1,
	StatusVerified:  2,
}

// CanTransitionTo reports whether moving from s to next is a legal,
// monotonic verification-status transition (spec.md §3 invariant).
func (s VerificationStatus) CanTransitionTo(next VerificationStatus) bool {
	if next == StatusRejected {
		return true
	}
	fromRank, fromOK := statusRank[s]
	toRank, toOK := statusRank[next]
	if !fromOK || !toOK {
		return false
	}
	return toRank >= fromRank
}

// Visibility controls whether an Innovation is surfaced publicly.
type Visibility string

const (
	VisibilityPublic Visibility = "public"
	VisibilityHidden Visibility = "hidden"
)

// AllowsPublic reports whether status permits VisibilityPublic (spec.md §3:
// "visibility=public only if verification_status ∈ {community, verified}").
func (s VerificationStatus) AllowsPublic() bool {
	return s == StatusCommunity || s == StatusVerified
}

// FundingRound enumerates the stage of a FundingEvent.
type FundingRound string

const (
	RoundSeed        FundingRound = "seed"
	RoundSeriesA     FundingRound = "series_a"
	RoundSeriesB     FundingRound = "series_b"
	RoundSeriesCPlus FundingRound = "series_c_plus"
	RoundGrant       FundingRound = "grant"
	RoundDebt        FundingRound = "debt"
	RoundUndisclosed FundingRound = "undisclosed"
)

// FundingEvent is one recorded funding round for an Innovation.
type FundingEvent struct {
	AmountUSD        float64
	Currency         string
	Round            FundingRound
	InvestorOrgIDs   []string
	AnnouncedDate    time.Time
	SourceReliability float64
}

// ExternalURLs groups the outbound links an Innovation may carry.
type ExternalURLs struct {
	Website string
	Source  string
	GitHub  string
	Demo    string
}

// BackfillMetadata tracks which fields were last enriched and how.
type BackfillMetadata struct {
	LastBackfilledAt time.Time
	FieldsFilled     []string
	Provenance       map[string]string // field -> provider/source name
}

// Innovation is the canonical record of an African AI effort (spec.md §3).
type Innovation struct {
	ID          string
	Fingerprint string // dedup.Fingerprint of the title alone: the normalized title, not hashed

	Title       string
	Description string
	Type        InnovationType
	Country     string // ISO-like string; empty means unknown
	CreationDate time.Time

	VerificationStatus VerificationStatus
	Visibility         Visibility

	Fundings      []FundingEvent
	OrgIDs        []string // Organization references
	IndividualIDs []string // Individual references

	URLs ExternalURLs
	Tags []string

	ImpactMetrics map[string]interface{}
	Backfill      BackfillMetadata

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RequiredFieldSchema enumerates the fields the Backfill engine (C13) checks
// for completeness, each tagged with the priority used to sort BackfillJobs.
type RequiredFieldSchema struct {
	Field    string
	Priority FieldPriority
}

// FieldPriority ranks how urgently a missing field should be backfilled.
type FieldPriority string

const (
	PriorityCritical FieldPriority = "critical"
	PriorityHigh     FieldPriority = "high"
	PriorityMedium   FieldPriority = "medium"
	PriorityLow      FieldPriority = "low"
)

// InnovationRequiredFields is the schema the backfill engine checks an
// Innovation against. Order is significant only for readability; priority
// drives scheduling.
var InnovationRequiredFields = []RequiredFieldSchema{
	{Field: "description", Priority: PriorityCritical},
	{Field: "country", Priority: PriorityHigh},
	{Field: "urls.website", Priority: PriorityHigh},
	{Field: "founding_date", Priority: PriorityMedium},
	{Field: "funding", Priority: PriorityMedium},
	{Field: "tags", Priority: PriorityLow},
	{Field: "urls.github", Priority: PriorityLow},
}

// MissingFields reports which required fields are absent on this record.
func (i Innovation) MissingFields() []RequiredFieldSchema {
	var missing []RequiredFieldSchema
	for _, f := range InnovationRequiredFields {
		if i.fieldEmpty(f.Field) {
			missing = append(missing, f)
		}
	}
	return missing
}

func (i Innovation) fieldEmpty(field string) bool {
	switch field {
	case "description":
		return i.Description == ""
	case "country":
		return i.Country == ""
	case "urls.website":
		return i.URLs.Website == ""
	case "urls.github":
		return i.URLs.GitHub == ""
	case "founding_date":
		return i.CreationDate.IsZero()
	case "funding":
		return len(i.Fundings) == 0
	case "tags":
		return len(i.Tags) == 0
	default:
		return false
	}
}
