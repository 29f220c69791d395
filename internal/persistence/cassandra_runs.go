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
	"fmt"

	"github.com/gocql/gocql"

	"github.com/africa-ai-collector/collector/internal/model"
)

// RunHistoryStore persists PipelineRun records to Cassandra as an
// append-only log, partitioned by pipeline_name — a natural fit for
// high-write, rarely-updated history that the canonical Postgres store
// doesn't need to carry.
type RunHistoryStore struct {
	session *gocql.Session
}

// NewRunHistoryStore connects to the given Cassandra cluster and keyspace.
func NewRunHistoryStore(hosts []string, keyspace string) (*RunHistoryStore, error) {
	cluster := gocql.NewCluster(hosts...)
	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.Quorum

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("persistence: connecting to cassandra: %w", err)
	}
	return &RunHistoryStore{session: session}, nil
}

// Close releases the Cassandra session.
func (s *RunHistoryStore) Close() {
	s.session.Close()
}

// AppendRun inserts a completed or in-flight PipelineRun record.
func (s *RunHistoryStore) AppendRun(run model.PipelineRun) error {
	return s.session.Query(`
		INSERT INTO pipeline_runs
			(pipeline_name, run_id, started_at, ended_at, status, items_processed, items_failed,
			 duplicates_removed, error, batch_size, success_rate, processing_time_ms)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		run.PipelineName, run.RunID, run.StartedAt, run.EndedAt, string(run.Status),
		run.ItemsProcessed, run.ItemsFailed, run.DuplicatesRemoved, run.Error,
		run.Metrics.BatchSize, run.Metrics.SuccessRate, run.Metrics.ProcessingTimeMS,
	).Exec()
}

// RecentRuns returns the most recent limit runs for a pipeline, newest
// first. No component in this module calls it.
func (s *RunHistoryStore) RecentRuns(pipelineName string, limit int) ([]model.PipelineRun, error) {
	iter := s.session.Query(`
		SELECT pipeline_name, run_id, started_at, ended_at, status, items_processed, items_failed,
			duplicates_removed, error, batch_size, success_rate, processing_time_ms
		FROM pipeline_runs WHERE pipeline_name = ? ORDER BY started_at DESC LIMIT ?`,
		pipelineName, limit).Iter()

	var out []model.PipelineRun
	var r model.PipelineRun
	var status string
	for iter.Scan(&r.PipelineName, &r.RunID, &r.StartedAt, &r.EndedAt, &status, &r.ItemsProcessed,
		&r.ItemsFailed, &r.DuplicatesRemoved, &r.Error, &r.Metrics.BatchSize, &r.Metrics.SuccessRate,
		&r.Metrics.ProcessingTimeMS) {
		r.Status = model.PipelineState(status)
		out = append(out, r)
		r = model.PipelineRun{}
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("persistence: reading run history: %w", err)
	}
	return out, nil
}
