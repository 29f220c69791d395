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
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/africa-ai-collector/collector/internal/clock"
	"github.com/africa-ai-collector/collector/internal/model"
)

func TestUpsertInnovation(t *testing.T) {
	tests := []struct {
		name         string
		rowsAffected int64
		wantCreated  bool
	}{
		{name: "new row inserted", rowsAffected: 1, wantCreated: true},
		{name: "existing row updated via ON CONFLICT", rowsAffected: 0, wantCreated: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("sqlmock.New: %v", err)
			}
			defer db.Close()

			clk := clock.NewFrozen(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
			gw := NewPostgresGatewayFromDB(db, clk)

			mock.ExpectExec("INSERT INTO innovations").
				WillReturnResult(sqlmock.NewResult(1, tt.rowsAffected))

			in := model.Innovation{
				Fingerprint: "fp-1",
				Title:       "Test Innovation",
				Type:        model.TypeStartup,
				Country:     "KE",
			}
			id, created, err := gw.UpsertInnovation(context.Background(), in)
			if err != nil {
				t.Fatalf("UpsertInnovation: %v", err)
			}
			if id == "" {
				t.Error("expected a generated ID")
			}
			if created != tt.wantCreated {
				t.Errorf("created = %v, want %v", created, tt.wantCreated)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestGetInnovationNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	gw := NewPostgresGatewayFromDB(db, nil)

	mock.ExpectQuery("SELECT (.+) FROM innovations WHERE id = \\$1").
		WithArgs("missing-id").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "fingerprint", "title", "description", "type", "country", "creation_date",
			"verification_status", "visibility", "impact_metrics", "created_at", "updated_at",
		}))

	_, ok, err := gw.GetInnovation(context.Background(), "missing-id")
	if err != nil {
		t.Fatalf("GetInnovation: %v", err)
	}
	if ok {
		t.Error("expected ok=false for a missing row")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestFindInnovationByFingerprint(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	gw := NewPostgresGatewayFromDB(db, nil)

	mock.ExpectQuery("SELECT id FROM innovations WHERE fingerprint = \\$1").
		WithArgs("fp-42").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("inno-42"))

	id, ok, err := gw.FindInnovationByFingerprint(context.Background(), "fp-42")
	if err != nil {
		t.Fatalf("FindInnovationByFingerprint: %v", err)
	}
	if !ok || id != "inno-42" {
		t.Errorf("got (%q, %v), want (%q, true)", id, ok, "inno-42")
	}
}

func TestResolveCitationUnresolved(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	gw := NewPostgresGatewayFromDB(db, nil)

	mock.ExpectQuery("SELECT id FROM publications WHERE doi = \\$1 OR source_id = \\$1").
		WithArgs("10.1234/unknown").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	c := model.ExtractedCitation{RawText: "10.1234/unknown"}
	got, err := gw.ResolveCitation(context.Background(), c)
	if err != nil {
		t.Fatalf("ResolveCitation: %v", err)
	}
	if got.ResolutionState != model.ResolutionUnresolved {
		t.Errorf("ResolutionState = %v, want %v", got.ResolutionState, model.ResolutionUnresolved)
	}
}

func TestSaveIntelligenceReport(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	gw := NewPostgresGatewayFromDB(db, nil)

	mock.ExpectExec("INSERT INTO intelligence_reports").
		WillReturnResult(sqlmock.NewResult(1, 1))

	r := model.IntelligenceReport{
		ReportID:    "report-1",
		Type:        "innovation_landscape",
		Summary:     "summary",
		KeyFindings: []string{"finding one"},
	}
	if err := gw.SaveIntelligenceReport(context.Background(), r); err != nil {
		t.Fatalf("SaveIntelligenceReport: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
