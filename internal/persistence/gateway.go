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

// Package persistence implements the Persistence gateway (C3): an opaque
// upsert/query surface over the relational store, fronting Postgres for
// canonical Innovation/Publication/IntelligenceReport records, MySQL for
// community submissions and votes, and Cassandra for append-only
// PipelineRun history — polyglot persistence mirroring how the teacher
// pairs a dedicated connector per backend rather than one do-everything
// client.
package persistence

import (
	"context"

	"github.com/africa-ai-collector/collector/internal/model"
)

// Gateway is the opaque upsert/query interface the orchestrator and
// backfill engine depend on; callers never see SQL or driver types.
type Gateway interface {
	UpsertInnovation(ctx context.Context, in model.Innovation) (id string, created bool, err error)
	GetInnovation(ctx context.Context, id string) (model.Innovation, bool, error)
	FindInnovationByFingerprint(ctx context.Context, fingerprint string) (id string, found bool, err error)
	ListInnovationsMissingFields(ctx context.Context, limit int) ([]model.Innovation, error)

	UpsertPublication(ctx context.Context, p model.Publication) (id string, created bool, err error)
	FindPublicationByDOI(ctx context.Context, doi string) (id string, found bool, err error)
	FindPublicationByFingerprint(ctx context.Context, fingerprint string) (id string, found bool, err error)
	GetPublication(ctx context.Context, id string) (model.Publication, bool, error)

	SaveIntelligenceReport(ctx context.Context, r model.IntelligenceReport) error
	ResolveCitation(ctx context.Context, c model.ExtractedCitation) (model.ExtractedCitation, error)
}
