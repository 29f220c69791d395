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

package persistence

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/africa-ai-collector/collector/internal/clock"
	"github.com/africa-ai-collector/collector/internal/model"
)

// CommunityStore persists CommunitySubmission and CommunityVote records in
// a separate MySQL database from the canonical Postgres store, keeping
// unmoderated human input out of the authoritative tables until accepted.
type CommunityStore struct {
	db    *sql.DB
	clock clock.Clock
}

// NewCommunityStore opens a MySQL connection pool against dsn.
func NewCommunityStore(dsn string, clk clock.Clock) (*CommunityStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("persistence: opening mysql: %w", err)
	}
	if clk == nil {
		clk = clock.New()
	}
	return &CommunityStore{db: db, clock: clk}, nil
}

// SubmitCorrection records a pending CommunitySubmission.
func (s *CommunityStore) SubmitCorrection(ctx context.Context, sub model.CommunitySubmission) (string, error) {
	if sub.ID == "" {
		sub.ID = clock.NewID()
	}
	sub.CreatedAt = s.clock.Now()
	sub.Status = model.SubmissionPending

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO community_submissions
			(id, target_innovation_id, submitter_handle, field, proposed_value, justification, status, created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		sub.ID, sub.TargetInnovationID, sub.SubmitterHandle, sub.Field, sub.ProposedValue,
		sub.Justification, sub.Status, sub.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("persistence: submitting correction: %w", err)
	}
	return sub.ID, nil
}

// CastVote records an up/down vote on a submission.
func (s *CommunityStore) CastVote(ctx context.Context, v model.CommunityVote) error {
	if v.ID == "" {
		v.ID = clock.NewID()
	}
	v.CreatedAt = s.clock.Now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO community_votes (id, submission_id, voter_handle, upvote, created_at)
		VALUES (?,?,?,?,?)`,
		v.ID, v.SubmissionID, v.VoterHandle, v.Upvote, v.CreatedAt)
	if err != nil {
		return fmt.Errorf("persistence: casting vote: %w", err)
	}
	return nil
}

// TallyVotes returns the (up, down) vote counts for a submission. Nothing in
// this module acts on the tally; ReviewSubmission only sets the submission's
// status and leaves the target innovation's verification status unchanged.
func (s *CommunityStore) TallyVotes(ctx context.Context, submissionID string) (up, down int, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN upvote THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN upvote THEN 0 ELSE 1 END), 0)
		FROM community_votes WHERE submission_id = ?`, submissionID)
	if scanErr := row.Scan(&up, &down); scanErr != nil {
		return 0, 0, fmt.Errorf("persistence: tallying votes: %w", scanErr)
	}
	return up, down, nil
}

// ReviewSubmission transitions a submission to accepted or rejected.
func (s *CommunityStore) ReviewSubmission(ctx context.Context, id string, accept bool) error {
	status := model.SubmissionRejected
	if accept {
		status = model.SubmissionAccepted
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE community_submissions SET status = ?, reviewed_at = ? WHERE id = ?`,
		status, s.clock.Now(), id)
	if err != nil {
		return fmt.Errorf("persistence: reviewing submission: %w", err)
	}
	return nil
}
