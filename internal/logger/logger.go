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

// Package logger provides structured JSON logging for collector components.
//
// Every log entry is a single line of JSON on stdout, making it consumable
// by CloudWatch, ELK, or any other log aggregator without a custom parser.
// Each entry carries a timestamp, level, component name, and an optional
// pipeline/run correlation pair so a single collection cycle's log lines
// can be grepped back together.
package logger

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"time"
)

// Level is the severity of a log entry.
type Level string

const (
	Debug Level = "DEBUG"
	Info  Level = "INFO"
	Warn  Level = "WARN"
	Error Level = "ERROR"
)

var debugEnabled atomic.Bool

// SetDebug toggles whether Debug-level entries are emitted. It is process-wide,
// driven by the config registry's `debug` feature flag.
func SetDebug(enabled bool) {
	debugEnabled.Store(enabled)
}

// Logger emits structured log entries scoped to one component (e.g. "cache",
// "supervisor:academic", "orchestrator").
type Logger struct {
	component  string
	instanceID string
}

// Entry is the JSON shape written to stdout.
type Entry struct {
	Timestamp string                 `json:"timestamp"`
	Level     Level                  `json:"level"`
	Component string                 `json:"component"`
	Instance  string                 `json:"instance_id"`
	Pipeline  string                 `json:"pipeline,omitempty"`
	RunID     string                 `json:"run_id,omitempty"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// New creates a Logger for the given component name.
func New(component string) *Logger {
	instanceID := os.Getenv("INSTANCE_ID")
	if instanceID == "" {
		if host, err := os.Hostname(); err == nil {
			instanceID = host
		} else {
			instanceID = "unknown"
		}
	}
	return &Logger{component: component, instanceID: instanceID}
}

// With returns a child logger scoped to a sub-component, e.g.
// base.With("academic") turns "supervisor" into "supervisor:academic".
func (l *Logger) With(sub string) *Logger {
	return &Logger{component: l.component + ":" + sub, instanceID: l.instanceID}
}

func (l *Logger) write(level Level, pipeline, runID, message string, fields map[string]interface{}) {
	if level == Debug && !debugEnabled.Load() {
		return
	}
	entry := Entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Component: l.component,
		Instance:  l.instanceID,
		Pipeline:  pipeline,
		RunID:     runID,
		Message:   message,
		Fields:    fields,
	}
	b, err := json.Marshal(entry)
	if err != nil {
		log.Printf("logger: failed to marshal entry: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, string(b))
}

// Info logs an informational message.
func (l *Logger) Info(message string, fields map[string]interface{}) {
	l.write(Info, "", "", message, fields)
}

// Warn logs a warning message.
func (l *Logger) Warn(message string, fields map[string]interface{}) {
	l.write(Warn, "", "", message, fields)
}

// Debug logs a debug message, suppressed unless SetDebug(true) was called.
func (l *Logger) Debug(message string, fields map[string]interface{}) {
	l.write(Debug, "", "", message, fields)
}

// ErrorLog logs an error message with the causing error attached.
func (l *Logger) ErrorLog(message string, err error, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	l.write(Error, "", "", message, fields)
}

// ForRun logs a message tagged with a pipeline name and run ID, for
// correlating every log line emitted during a single PipelineRun.
func (l *Logger) ForRun(level Level, pipeline, runID, message string, fields map[string]interface{}) {
	l.write(level, pipeline, runID, message, fields)
}
