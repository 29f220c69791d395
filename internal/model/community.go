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

package model

import "time"

// SubmissionStatus is the review state of a CommunitySubmission.
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionAccepted SubmissionStatus = "accepted"
	SubmissionRejected SubmissionStatus = "rejected"
)

// CommunitySubmission is a human-submitted correction or addition to an
// Innovation record, stored in the secondary community store (MySQL) rather
// than the canonical Postgres store, mirroring how the submitter's identity
// and moderation state are kept separate from verified data.
type CommunitySubmission struct {
	ID               string
	TargetInnovationID string

	SubmitterHandle string
	Field           string
	ProposedValue   string
	Justification   string

	Status SubmissionStatus

	CreatedAt time.Time
	ReviewedAt time.Time
}

// CommunityVote is an up/down signal on a CommunitySubmission, used to
// promote a VerificationStatus from pending to community once a submission
// accumulates enough corroborating votes.
type CommunityVote struct {
	ID           string
	SubmissionID string
	VoterHandle  string
	Upvote       bool
	CreatedAt    time.Time
}
