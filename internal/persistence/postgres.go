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
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/africa-ai-collector/collector/internal/clock"
	"github.com/africa-ai-collector/collector/internal/logger"
	"github.com/africa-ai-collector/collector/internal/model"
)

// PostgresGateway implements Gateway against a Postgres database holding the
// canonical Innovation, Publication, and IntelligenceReport tables. Upserts
// are idempotent on fingerprint, matching the "at-least-once with idempotent
// upsert" non-goal carve-out.
type PostgresGateway struct {
	db    *sql.DB
	clock clock.Clock
	log   *logger.Logger
}

// NewPostgresGateway opens a connection pool against dsn.
func NewPostgresGateway(dsn string, clk clock.Clock) (*PostgresGateway, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("persistence: opening postgres: %w", err)
	}
	if clk == nil {
		clk = clock.New()
	}
	return &PostgresGateway{db: db, clock: clk, log: logger.New("persistence.postgres")}, nil
}

// NewPostgresGatewayFromDB wraps an already-open *sql.DB, letting tests
// inject a go-sqlmock-backed connection.
func NewPostgresGatewayFromDB(db *sql.DB, clk clock.Clock) *PostgresGateway {
	if clk == nil {
		clk = clock.New()
	}
	return &PostgresGateway{db: db, clock: clk, log: logger.New("persistence.postgres")}
}

// UpsertInnovation implements Gateway.
func (g *PostgresGateway) UpsertInnovation(ctx context.Context, in model.Innovation) (string, bool, error) {
	if in.ID == "" {
		in.ID = clock.NewID()
	}
	now := g.clock.Now()
	if in.CreatedAt.IsZero() {
		in.CreatedAt = now
	}
	in.UpdatedAt = now

	impact, err := json.Marshal(in.ImpactMetrics)
	if err != nil {
		return "", false, fmt.Errorf("persistence: encoding impact metrics: %w", err)
	}

	res, err := g.db.ExecContext(ctx, `
		INSERT INTO innovations (id, fingerprint, title, description, type, country, creation_date,
			verification_status, visibility, impact_metrics, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (fingerprint) DO UPDATE SET
			title = EXCLUDED.title, description = EXCLUDED.description,
			country = EXCLUDED.country, impact_metrics = EXCLUDED.impact_metrics,
			updated_at = EXCLUDED.updated_at
	`, in.ID, in.Fingerprint, in.Title, in.Description, in.Type, in.Country, in.CreationDate,
		in.VerificationStatus, in.Visibility, impact, in.CreatedAt, in.UpdatedAt)
	if err != nil {
		return "", false, fmt.Errorf("persistence: upserting innovation: %w", err)
	}

	rows, _ := res.RowsAffected()
	return in.ID, rows == 1, nil
}

// GetInnovation implements Gateway.
func (g *PostgresGateway) GetInnovation(ctx context.Context, id string) (model.Innovation, bool, error) {
	row := g.db.QueryRowContext(ctx, `
		SELECT id, fingerprint, title, description, type, country, creation_date,
			verification_status, visibility, impact_metrics, created_at, updated_at
		FROM innovations WHERE id = $1`, id)

	var in model.Innovation
	var impact []byte
	err := row.Scan(&in.ID, &in.Fingerprint, &in.Title, &in.Description, &in.Type, &in.Country,
		&in.CreationDate, &in.VerificationStatus, &in.Visibility, &impact, &in.CreatedAt, &in.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Innovation{}, false, nil
	}
	if err != nil {
		return model.Innovation{}, false, fmt.Errorf("persistence: getting innovation %s: %w", id, err)
	}
	if len(impact) > 0 {
		_ = json.Unmarshal(impact, &in.ImpactMetrics)
	}
	return in, true, nil
}

// FindInnovationByFingerprint implements Gateway.
func (g *PostgresGateway) FindInnovationByFingerprint(ctx context.Context, fingerprint string) (string, bool, error) {
	var id string
	err := g.db.QueryRowContext(ctx, `SELECT id FROM innovations WHERE fingerprint = $1`, fingerprint).Scan(&id)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("persistence: finding innovation by fingerprint: %w", err)
	}
	return id, true, nil
}

// ListInnovationsMissingFields implements Gateway, returning candidates for
// the Backfill engine (§4.9). Completeness filtering happens in the caller
// via model.Innovation.MissingFields; this query just bounds the scan.
func (g *PostgresGateway) ListInnovationsMissingFields(ctx context.Context, limit int) ([]model.Innovation, error) {
	rows, err := g.db.QueryContext(ctx, `
		SELECT id, fingerprint, title, description, type, country, creation_date,
			verification_status, visibility, impact_metrics, created_at, updated_at
		FROM innovations ORDER BY updated_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("persistence: listing innovations: %w", err)
	}
	defer rows.Close()

	var out []model.Innovation
	for rows.Next() {
		var in model.Innovation
		var impact []byte
		if err := rows.Scan(&in.ID, &in.Fingerprint, &in.Title, &in.Description, &in.Type, &in.Country,
			&in.CreationDate, &in.VerificationStatus, &in.Visibility, &impact, &in.CreatedAt, &in.UpdatedAt); err != nil {
			return nil, fmt.Errorf("persistence: scanning innovation row: %w", err)
		}
		if len(impact) > 0 {
			_ = json.Unmarshal(impact, &in.ImpactMetrics)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// UpsertPublication implements Gateway.
func (g *PostgresGateway) UpsertPublication(ctx context.Context, p model.Publication) (string, bool, error) {
	if p.ID == "" {
		p.ID = clock.NewID()
	}
	now := g.clock.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	res, err := g.db.ExecContext(ctx, `
		INSERT INTO publications (id, fingerprint, title, abstract, doi, source, source_id,
			african_relevance_score, ai_relevance_score, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (fingerprint) DO UPDATE SET
			abstract = EXCLUDED.abstract, updated_at = EXCLUDED.updated_at
	`, p.ID, p.Fingerprint, p.Title, p.Abstract, p.DOI, p.Source, p.SourceID,
		p.AfricanRelevanceScore, p.AIRelevanceScore, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return "", false, fmt.Errorf("persistence: upserting publication: %w", err)
	}
	rows, _ := res.RowsAffected()
	return p.ID, rows == 1, nil
}

// GetPublication implements Gateway.
func (g *PostgresGateway) GetPublication(ctx context.Context, id string) (model.Publication, bool, error) {
	row := g.db.QueryRowContext(ctx, `
		SELECT id, fingerprint, title, abstract, doi, source, source_id,
			african_relevance_score, ai_relevance_score, created_at, updated_at
		FROM publications WHERE id = $1`, id)

	var p model.Publication
	err := row.Scan(&p.ID, &p.Fingerprint, &p.Title, &p.Abstract, &p.DOI, &p.Source, &p.SourceID,
		&p.AfricanRelevanceScore, &p.AIRelevanceScore, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Publication{}, false, nil
	}
	if err != nil {
		return model.Publication{}, false, fmt.Errorf("persistence: getting publication %s: %w", id, err)
	}
	return p, true, nil
}

// FindPublicationByDOI implements Gateway.
func (g *PostgresGateway) FindPublicationByDOI(ctx context.Context, doi string) (string, bool, error) {
	var id string
	err := g.db.QueryRowContext(ctx, `SELECT id FROM publications WHERE doi = $1`, doi).Scan(&id)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("persistence: finding publication by doi: %w", err)
	}
	return id, true, nil
}

// FindPublicationByFingerprint implements Gateway.
func (g *PostgresGateway) FindPublicationByFingerprint(ctx context.Context, fingerprint string) (string, bool, error) {
	var id string
	err := g.db.QueryRowContext(ctx, `SELECT id FROM publications WHERE fingerprint = $1`, fingerprint).Scan(&id)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("persistence: finding publication by fingerprint: %w", err)
	}
	return id, true, nil
}

// intelligenceReportDetail is the JSON blob holding the report fields that
// don't warrant their own columns (findings lists, citations, flags).
type intelligenceReportDetail struct {
	Title                string                     `json:"title"`
	KeyFindings          []string                   `json:"key_findings"`
	InnovationsMentioned []string                   `json:"innovations_mentioned"`
	FundingUpdates       []string                   `json:"funding_updates"`
	PolicyDevelopments   []string                   `json:"policy_developments"`
	Sources              []string                   `json:"sources"`
	ExtractedCitations   []model.ExtractedCitation  `json:"extracted_citations"`
	GeographicFocus      []string                   `json:"geographic_focus"`
	TimePeriodAnalyzed   string                     `json:"time_period_analyzed"`
	ValidationFlags      []string                   `json:"validation_flags"`
	Provider             string                     `json:"provider"`
	Model                string                     `json:"model"`
	CostUSD              float64                    `json:"cost_usd"`
	TokensUsed           int                        `json:"tokens_used"`
}

// SaveIntelligenceReport implements Gateway.
func (g *PostgresGateway) SaveIntelligenceReport(ctx context.Context, r model.IntelligenceReport) error {
	detail, err := json.Marshal(intelligenceReportDetail{
		Title:                r.Title,
		KeyFindings:          r.KeyFindings,
		InnovationsMentioned: r.InnovationsMentioned,
		FundingUpdates:       r.FundingUpdates,
		PolicyDevelopments:   r.PolicyDevelopments,
		Sources:              r.Sources,
		ExtractedCitations:   r.ExtractedCitations,
		GeographicFocus:      r.GeographicFocus,
		TimePeriodAnalyzed:   r.TimePeriodAnalyzed,
		ValidationFlags:      r.ValidationFlags,
		Provider:             r.Provider,
		Model:                r.Model,
		CostUSD:              r.CostUSD,
		TokensUsed:           r.TokensUsed,
	})
	if err != nil {
		return fmt.Errorf("persistence: encoding report detail: %w", err)
	}
	_, err = g.db.ExecContext(ctx, `
		INSERT INTO intelligence_reports (report_id, type, summary, detail, confidence_score, generation_timestamp)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (report_id) DO NOTHING
	`, r.ReportID, r.Type, r.Summary, detail, r.ConfidenceScore, r.GenerationTimestamp)
	if err != nil {
		return fmt.Errorf("persistence: saving intelligence report: %w", err)
	}
	return nil
}

// ResolveCitation implements Gateway: looks up a publication whose DOI or
// source ID equals the citation's raw text and returns the citation with its
// resolution state (and resolved publication ID) set accordingly; nothing is
// written back.
func (g *PostgresGateway) ResolveCitation(ctx context.Context, c model.ExtractedCitation) (model.ExtractedCitation, error) {
	var id string
	err := g.db.QueryRowContext(ctx,
		`SELECT id FROM publications WHERE doi = $1 OR source_id = $1`, c.RawText).Scan(&id)
	if err == sql.ErrNoRows {
		c.ResolutionState = model.ResolutionUnresolved
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("persistence: resolving citation: %w", err)
	}
	c.ResolutionState = model.ResolutionResolved
	c.ResolvedPublicationID = id
	return c, nil
}
