package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"geolearn-service/internal/domain"
	"geolearn-service/internal/progress"
)

// updateAttempts caps the optimistic retry loop in Update. Contention on a
// single user's documents is short-lived, so a handful of retries is plenty.
const updateAttempts = 16

// DocStore implements progress.Store on Redis. Each document is a JSON
// string at doc:{collection}:{id}. Update runs a WATCH/MULTI optimistic
// transaction, so concurrent writers retry instead of losing updates.
// Collections registered with IndexField keep a sorted-set index
// idx:{collection}:{field} that backs TopN without scanning.
type DocStore struct {
	client  *redis.Client
	indexes map[string]string // collection -> indexed numeric field
}

func NewDocStore(client *redis.Client) *DocStore {
	return &DocStore{
		client:  client,
		indexes: make(map[string]string),
	}
}

// IndexField registers a numeric field of the collection to keep ranked in
// a sorted set. Call before the store is used; not safe concurrently with
// operations.
func (s *DocStore) IndexField(collection, field string) {
	s.indexes[collection] = field
}

func (s *DocStore) Get(ctx context.Context, collection, id string, out any) error {
	raw, err := s.client.Get(ctx, s.docKey(collection, id)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("redis get %s/%s: %w", collection, id, err)
	}
	return json.Unmarshal([]byte(raw), out)
}

func (s *DocStore) Set(ctx context.Context, collection, id string, doc any) error {
	fields, raw, err := encodeDoc(doc)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.docKey(collection, id), raw, 0)
	s.indexDoc(ctx, pipe, collection, id, fields)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *DocStore) Create(ctx context.Context, collection, id string, doc any) error {
	fields, raw, err := encodeDoc(doc)
	if err != nil {
		return err
	}

	key := s.docKey(collection, id)
	created, err := s.client.SetNX(ctx, key, raw, 0).Result()
	if err != nil {
		return fmt.Errorf("redis create %s/%s: %w", collection, id, err)
	}
	if !created {
		return domain.ErrConflict
	}
	pipe := s.client.TxPipeline()
	s.indexDoc(ctx, pipe, collection, id, fields)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis index %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *DocStore) Update(ctx context.Context, collection, id string, ops ...progress.FieldOp) error {
	key := s.docKey(collection, id)

	txn := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		fields := make(map[string]any)
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			return err
		}
		if err := progress.ApplyOps(fields, ops); err != nil {
			return err
		}
		updated, err := json.Marshal(fields)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			s.indexDoc(ctx, pipe, collection, id, fields)
			return nil
		})
		return err
	}

	for i := 0; i < updateAttempts; i++ {
		err := s.client.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue // another writer got in first, re-read and retry
		}
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("redis update %s/%s: %w", collection, id, err)
		}
		return err
	}
	return fmt.Errorf("redis update %s/%s: too much contention", collection, id)
}

func (s *DocStore) TopN(ctx context.Context, collection, orderBy string, limit int, out any) error {
	field, ok := s.indexes[collection]
	if !ok || field != orderBy {
		return fmt.Errorf("redis topN %s: no index on %q", collection, orderBy)
	}
	if limit <= 0 {
		return json.Unmarshal([]byte("[]"), out)
	}

	ids, err := s.client.ZRevRange(ctx, s.indexKey(collection, field), 0, int64(limit-1)).Result()
	if err != nil {
		return fmt.Errorf("redis topN %s: %w", collection, err)
	}

	docs := make([]json.RawMessage, 0, len(ids))
	if len(ids) > 0 {
		keys := make([]string, len(ids))
		for i, id := range ids {
			keys[i] = s.docKey(collection, id)
		}
		raws, err := s.client.MGet(ctx, keys...).Result()
		if err != nil {
			return fmt.Errorf("redis topN %s: %w", collection, err)
		}
		for _, raw := range raws {
			str, ok := raw.(string)
			if !ok {
				continue // index member without a document, skip
			}
			docs = append(docs, json.RawMessage(str))
		}
	}

	merged, err := json.Marshal(docs)
	if err != nil {
		return err
	}
	return json.Unmarshal(merged, out)
}

// indexDoc queues the sorted-set index refresh for the document, when the
// collection has one.
func (s *DocStore) indexDoc(ctx context.Context, pipe redis.Pipeliner, collection, id string, fields map[string]any) {
	field, ok := s.indexes[collection]
	if !ok {
		return
	}
	pipe.ZAdd(ctx, s.indexKey(collection, field), redis.Z{
		Score:  progress.FieldNumber(fields, field),
		Member: id,
	})
}

func (s *DocStore) docKey(collection, id string) string {
	return "doc:" + collection + ":" + id
}

func (s *DocStore) indexKey(collection, field string) string {
	return "idx:" + collection + ":" + field
}

func encodeDoc(doc any) (map[string]any, []byte, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, nil, err
	}
	fields := make(map[string]any)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, nil, err
	}
	return fields, raw, nil
}
