// Package redis implements a FlowStore on Redis. Flow payloads are stored
// msgpack-encoded under zstd; each project keeps a ZSET index of its flow
// ids (scored by last save time) and a hash of listing summaries so
// ListFlows never has to decode full payloads.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
	"github.com/aretw0/espalier/pkg/serialization"
)

// Store implements ports.FlowStore using Redis.
type Store struct {
	client *backend.Client
	codec  serialization.Codec
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets an expiration on stored flows.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix overrides the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithCodec overrides the payload codec.
func WithCodec(codec serialization.Codec) Option {
	return func(s *Store) {
		s.codec = codec
	}
}

// New creates a Redis store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		codec:  serialization.Default(),
		prefix: "espalier:flow:",
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) flowKey(projectID, flowID string) string {
	return s.prefix + projectID + ":" + flowID
}

func (s *Store) indexKey(projectID string) string {
	return s.prefix + projectID + ":index"
}

func (s *Store) summaryKey(projectID string) string {
	return s.prefix + projectID + ":summaries"
}

// SaveFlow writes the payload, index entry and listing summary in one
// pipeline.
func (s *Store) SaveFlow(ctx context.Context, projectID string, flow *domain.Flow) error {
	if flow == nil || flow.ID == "" {
		return fmt.Errorf("redis store: flow id is required")
	}
	payload, err := s.codec.Marshal(flow)
	if err != nil {
		return fmt.Errorf("redis store: marshal flow: %w", err)
	}
	summary, err := json.Marshal(ports.FlowSummary{
		ID:          flow.ID,
		Name:        flow.Name,
		Description: flow.Description,
	})
	if err != nil {
		return fmt.Errorf("redis store: marshal summary: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.flowKey(projectID, flow.ID), payload, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(projectID), backend.Z{
		Score:  float64(time.Now().Unix()),
		Member: flow.ID,
	})
	pipe.HSet(ctx, s.summaryKey(projectID), flow.ID, summary)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis store: save flow: %w", err)
	}
	return nil
}

// LoadFlow retrieves and decodes a payload.
func (s *Store) LoadFlow(ctx context.Context, projectID, flowID string) (*domain.Flow, error) {
	val, err := s.client.Get(ctx, s.flowKey(projectID, flowID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrFlowNotFound
		}
		return nil, fmt.Errorf("redis store: get flow: %w", err)
	}
	var flow domain.Flow
	if err := s.codec.Unmarshal(val, &flow); err != nil {
		return nil, fmt.Errorf("redis store: unmarshal flow %s: %w", flowID, err)
	}
	return &flow, nil
}

// DeleteFlow removes the payload and its index entries. Absent flows are
// not an error.
func (s *Store) DeleteFlow(ctx context.Context, projectID, flowID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.flowKey(projectID, flowID))
	pipe.ZRem(ctx, s.indexKey(projectID), flowID)
	pipe.HDel(ctx, s.summaryKey(projectID), flowID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis store: delete flow: %w", err)
	}
	return nil
}

// ListFlows returns summaries in index order (oldest save first). Index
// entries whose payload has expired are pruned lazily.
func (s *Store) ListFlows(ctx context.Context, projectID string) ([]ports.FlowSummary, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(projectID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis store: list flows: %w", err)
	}

	summaries := make([]ports.FlowSummary, 0, len(ids))
	for _, id := range ids {
		exists, err := s.client.Exists(ctx, s.flowKey(projectID, id)).Result()
		if err != nil {
			return nil, fmt.Errorf("redis store: check flow %s: %w", id, err)
		}
		if exists == 0 {
			// Payload expired; drop the stale index entries.
			s.client.ZRem(ctx, s.indexKey(projectID), id)
			s.client.HDel(ctx, s.summaryKey(projectID), id)
			continue
		}
		raw, err := s.client.HGet(ctx, s.summaryKey(projectID), id).Result()
		summary := ports.FlowSummary{ID: id, Name: id}
		if err == nil {
			_ = json.Unmarshal([]byte(raw), &summary)
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
