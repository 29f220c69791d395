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

package orchestrator

import (
	"context"

	"github.com/africa-ai-collector/collector/internal/persistence"
)

// innovationIdentity adapts persistence.Gateway to dedup.IdentityLookup for
// Innovation records: ByExactID has no notion of an exact identity key for
// innovations (no DOI-equivalent), so it always reports not-found and the
// deduplicator falls through to the fingerprint stage.
type innovationIdentity struct {
	gateway persistence.Gateway
}

func (l innovationIdentity) ByExactID(ctx context.Context, key string) (string, bool, error) {
	return "", false, nil
}

func (l innovationIdentity) ByFingerprint(ctx context.Context, fingerprint string) (string, bool, error) {
	return l.gateway.FindInnovationByFingerprint(ctx, fingerprint)
}

func (l innovationIdentity) TitleByID(ctx context.Context, id string) (string, bool, error) {
	in, found, err := l.gateway.GetInnovation(ctx, id)
	if err != nil || !found {
		return "", found, err
	}
	return in.Title, true, nil
}

// publicationIdentity adapts persistence.Gateway to dedup.IdentityLookup for
// Publication records: the exact-identity key is the DOI.
type publicationIdentity struct {
	gateway persistence.Gateway
}

func (l publicationIdentity) ByExactID(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, nil
	}
	return l.gateway.FindPublicationByDOI(ctx, key)
}

func (l publicationIdentity) ByFingerprint(ctx context.Context, fingerprint string) (string, bool, error) {
	return l.gateway.FindPublicationByFingerprint(ctx, fingerprint)
}

func (l publicationIdentity) TitleByID(ctx context.Context, id string) (string, bool, error) {
	pub, found, err := l.gateway.GetPublication(ctx, id)
	if err != nil || !found {
		return "", found, err
	}
	return pub.Title, true, nil
}
