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

package mediator

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/africa-ai-collector/collector/internal/errs"
)

// RetryConfig bounds RetryWithBackoff's exponential-backoff-with-jitter loop.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryConfig matches the teacher's default upstream-call retry
// policy: three attempts, starting at 500ms, capped at 10s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
	}
}

// RetryWithBackoff invokes fn up to cfg.MaxAttempts times, waiting an
// exponentially increasing, jittered delay between attempts, and gives up
// immediately on an error classified non-recoverable.
func RetryWithBackoff[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(cfg, attempt)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}

		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if !errs.KindOf(err).Recoverable() {
			return zero, err
		}
		var kindErr *errs.Error
		if errors.As(err, &kindErr) && !kindErr.Kind.Recoverable() {
			return zero, err
		}
	}
	return zero, lastErr
}

func backoffDelay(cfg RetryConfig, attempt int) time.Duration {
	base := float64(cfg.BaseDelay) * math.Pow(2, float64(attempt-1))
	jittered := base * (0.5 + rand.Float64()*0.5)
	d := time.Duration(jittered)
	if d > cfg.MaxDelay {
		d = cfg.MaxDelay
	}
	return d
}
