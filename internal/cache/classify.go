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

package cache

import (
	"github.com/africa-ai-collector/collector/internal/errs"
	"github.com/africa-ai-collector/collector/internal/model"
)

// ClassifyMediatorError maps the errs.Kind carried by a mediated call's
// error to the negative-cache reason GetOrLoad should record it under, so
// every adapter shares one classification instead of each hand-rolling its
// own switch over the mediator's error taxonomy.
func ClassifyMediatorError(err error) (model.NegativeReason, bool) {
	switch errs.KindOf(err) {
	case errs.RateLimited:
		return model.ReasonRateLimited, true
	case errs.APIError:
		return model.ReasonAPIError, true
	case errs.NetworkError, errs.Timeout:
		return model.ReasonNetworkError, true
	case errs.InsufficientContent:
		return model.ReasonInsufficientContent, true
	case errs.NoResults:
		return model.ReasonNoResults, true
	case errs.ValidationFailed:
		return model.ReasonValidationFailed, true
	default:
		return "", false
	}
}
