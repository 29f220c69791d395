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

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsAreSelfConsistent(t *testing.T) {
	reg := Defaults()
	if reg.Dedup.SemanticHigh <= reg.Dedup.SemanticLow {
		t.Errorf("SemanticHigh (%v) must exceed SemanticLow (%v)", reg.Dedup.SemanticHigh, reg.Dedup.SemanticLow)
	}
	if reg.MaxETLBatchSize <= 0 {
		t.Error("MaxETLBatchSize must default to a positive value")
	}
	if len(reg.Cache.TTL) == 0 || len(reg.Cache.NegativeTTL) == 0 {
		t.Error("cache TTL and negative TTL tables should both have default entries")
	}
}

func TestThresholdConfigForFallsBackToDefault(t *testing.T) {
	tc := Defaults().Thresholds
	if got := tc.For("arxiv"); got.African != 0.25 {
		t.Errorf("arxiv African threshold = %v, want 0.25", got.African)
	}
	if got := tc.For("some_unconfigured_source"); got != tc.Default {
		t.Errorf("unconfigured source should fall back to Default, got %+v", got)
	}
}

func TestLoadWithNoPathReturnsDefaults(t *testing.T) {
	reg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reg.MaxETLBatchSize != Defaults().MaxETLBatchSize {
		t.Errorf("Load(\"\") should equal Defaults()")
	}
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	reg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load of a missing file should not error, got %v", err)
	}
	if reg.MaxAICallsPerMinute != Defaults().MaxAICallsPerMinute {
		t.Error("a missing config file should leave defaults untouched")
	}
}

func TestLoadLayersYAMLOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlBody := "max_etl_batch_size: 200\ndebug: true\nthresholds:\n  default:\n    african: 0.5\n    ai: 0.5\n"
	if err := os.WriteFile(path, []byte(yamlBody), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reg.MaxETLBatchSize != 200 {
		t.Errorf("MaxETLBatchSize = %d, want 200 (from YAML)", reg.MaxETLBatchSize)
	}
	if !reg.Debug {
		t.Error("Debug = false, want true (from YAML)")
	}
	if reg.Thresholds.Default.African != 0.5 {
		t.Errorf("Thresholds.Default.African = %v, want 0.5 (from YAML)", reg.Thresholds.Default.African)
	}
	// Fields the YAML didn't mention should keep their defaults.
	if reg.Dedup.SemanticHigh != Defaults().Dedup.SemanticHigh {
		t.Error("unset YAML fields should retain their Defaults() value")
	}
}

func TestLoadAppliesEnvOverridesOnTopOfYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("max_etl_batch_size: 200\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	t.Setenv("MAX_ETL_BATCH_SIZE", "77")
	t.Setenv("DEBUG", "true")
	t.Setenv("DAILY_COST_LIMIT_USD", "12.5")

	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reg.MaxETLBatchSize != 77 {
		t.Errorf("MaxETLBatchSize = %d, want 77 (env should win over YAML)", reg.MaxETLBatchSize)
	}
	if !reg.Debug {
		t.Error("Debug = false, want true (from env)")
	}
	if reg.DailyCostLimitUSD != 12.5 {
		t.Errorf("DailyCostLimitUSD = %v, want 12.5 (from env)", reg.DailyCostLimitUSD)
	}
}

func TestEnvOverrideIgnoresUnparsableValues(t *testing.T) {
	reg := Defaults()
	want := reg.MaxETLBatchSize

	t.Setenv("MAX_ETL_BATCH_SIZE", "not-a-number")
	applyEnvOverrides(reg)

	if reg.MaxETLBatchSize != want {
		t.Errorf("MaxETLBatchSize = %d, want unchanged %d when the env var doesn't parse", reg.MaxETLBatchSize, want)
	}
}
