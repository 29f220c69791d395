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

// Package vectorindex implements the Vector index gateway (C4): embed-and-
// upsert plus semantic search over title/abstract embeddings, backed by
// MongoDB's $vectorSearch aggregation stage. The Deduplicator's fuzzy-title
// stage depends on TopMatch to find the closest prior record.
package vectorindex

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Embedder turns text into a fixed-length vector. Production wiring uses an
// embeddings endpoint on one of the configured LLM providers; tests inject a
// deterministic fake.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index is the vector-index gateway.
type Index struct {
	collection *mongo.Collection
	embedder   Embedder
	indexName  string
}

// Config configures an Index.
type Config struct {
	Database   string
	Collection string
	IndexName  string // the Atlas Search vector index name
}

// New builds an Index over an already-connected mongo.Client.
func New(client *mongo.Client, embedder Embedder, cfg Config) *Index {
	if cfg.IndexName == "" {
		cfg.IndexName = "vector_index"
	}
	return &Index{
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		embedder:   embedder,
		indexName:  cfg.IndexName,
	}
}

type indexDoc struct {
	RecordID string    `bson:"record_id"`
	Kind     string    `bson:"kind"` // "innovation" | "publication"
	Text     string    `bson:"text"`
	Vector   []float32 `bson:"vector"`
}

// Upsert embeds text and stores it against recordID, replacing any prior
// entry for the same ID.
func (idx *Index) Upsert(ctx context.Context, recordID, kind, text string) error {
	vec, err := idx.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("vectorindex: embedding %s: %w", recordID, err)
	}

	_, err = idx.collection.UpdateOne(ctx,
		bson.M{"record_id": recordID},
		bson.M{"$set": indexDoc{RecordID: recordID, Kind: kind, Text: text, Vector: vec}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("vectorindex: upserting %s: %w", recordID, err)
	}
	return nil
}

// TopMatch implements dedup.VectorIndex: embeds text and runs a
// $vectorSearch aggregation to find the single nearest neighbor.
func (idx *Index) TopMatch(ctx context.Context, text string) (string, float64, bool, error) {
	vec, err := idx.embedder.Embed(ctx, text)
	if err != nil {
		return "", 0, false, fmt.Errorf("vectorindex: embedding query: %w", err)
	}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$vectorSearch", Value: bson.M{
			"index":         idx.indexName,
			"path":          "vector",
			"queryVector":   vec,
			"numCandidates": 100,
			"limit":         1,
		}}},
		bson.D{{Key: "$project", Value: bson.M{
			"record_id": 1,
			"score":     bson.M{"$meta": "vectorSearchScore"},
		}}},
	}

	cursor, err := idx.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return "", 0, false, fmt.Errorf("vectorindex: vector search: %w", err)
	}
	defer cursor.Close(ctx)

	if !cursor.Next(ctx) {
		return "", 0, false, nil
	}

	var result struct {
		RecordID string  `bson:"record_id"`
		Score    float64 `bson:"score"`
	}
	if err := cursor.Decode(&result); err != nil {
		return "", 0, false, fmt.Errorf("vectorindex: decoding match: %w", err)
	}
	return result.RecordID, result.Score, true, nil
}

// Delete removes a record's embedding. No component in this module calls
// it.
func (idx *Index) Delete(ctx context.Context, recordID string) error {
	_, err := idx.collection.DeleteOne(ctx, bson.M{"record_id": recordID})
	if err != nil {
		return fmt.Errorf("vectorindex: deleting %s: %w", recordID, err)
	}
	return nil
}
