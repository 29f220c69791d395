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
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/africa-ai-collector/collector/internal/logger"
)

// Archiver offloads payloads larger than a configured threshold to S3,
// storing only a pointer in the durable cache tier. Large raw report bodies
// (e.g. multi-report LLM-intelligence responses) would otherwise bloat
// Redis; this keeps the hot tiers small.
type Archiver struct {
	client *s3.Client
	bucket string
	log    *logger.Logger
}

// NewArchiver builds an Archiver against the given bucket over a
// caller-configured S3 client; credentials are whatever that client holds.
func NewArchiver(client *s3.Client, bucket string) *Archiver {
	return &Archiver{client: client, bucket: bucket, log: logger.New("cache.archive")}
}

// Put uploads payload under key and returns the object key used (callers
// store this as the cached value in place of the raw payload).
func (a *Archiver) Put(ctx context.Context, key string, payload []byte) (string, error) {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(payload),
	})
	if err != nil {
		return "", fmt.Errorf("cache: archiving %s: %w", key, err)
	}
	return key, nil
}

// Get retrieves a previously archived payload by object key.
func (a *Archiver) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("cache: fetching archived %s: %w", key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("cache: reading archived %s: %w", key, err)
	}
	return data, nil
}

// ShouldArchive reports whether a payload exceeds the compression/archival
// threshold and should be offloaded rather than stored inline.
func ShouldArchive(payload []byte, thresholdBytes int) bool {
	return thresholdBytes > 0 && len(payload) > thresholdBytes
}
