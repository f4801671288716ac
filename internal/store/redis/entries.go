package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/mindhaven/internal/domain"
)

// entryDoc is the stored JSON, using the same field names as the document
// store backends.
type entryDoc struct {
	Date  string `json:"date"`
	Entry string `json:"entry"`
}

// EntryStore keeps entries as JSON strings plus a sorted set ordering ids by
// creation time. Ties are returned in reverse member order.
type EntryStore struct {
	client redis.UniversalClient
	keys   Keys
	now    func() time.Time
}

var _ domain.EntryStore = (*EntryStore)(nil)

func NewEntryStore(client redis.UniversalClient, collection string) *EntryStore {
	return &EntryStore{
		client: client,
		keys:   NewKeys(collection),
		now:    time.Now,
	}
}

func (s *EntryStore) Create(ctx context.Context, text string) (domain.Entry, error) {
	date := domain.FormatDate(s.now())
	created, err := domain.ParseDate(date)
	if err != nil {
		return domain.Entry{}, domain.NewStorageError("create", err)
	}

	data, err := json.Marshal(entryDoc{Date: date, Entry: text})
	if err != nil {
		return domain.Entry{}, domain.NewStorageError("create", err)
	}

	id := uuid.NewString()
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.keys.Entry(id), data, 0)
		pipe.ZAdd(ctx, s.keys.ByDate(), redis.Z{
			Score:  float64(created.UnixMicro()),
			Member: id,
		})
		return nil
	})
	if err != nil {
		return domain.Entry{}, domain.NewStorageError("create", err)
	}

	return domain.Entry{ID: id, CreatedAt: created, Text: text}, nil
}

func (s *EntryStore) List(ctx context.Context) ([]domain.Entry, error) {
	ids, err := s.client.ZRevRange(ctx, s.keys.ByDate(), 0, -1).Result()
	if err != nil {
		return nil, domain.NewStorageError("list", err)
	}
	entries := make([]domain.Entry, 0, len(ids))
	if len(ids) == 0 {
		return entries, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.keys.Entry(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, domain.NewStorageError("list", err)
	}

	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Index points at a deleted document; skip it.
			continue
		}
		e, err := decodeEntry(ids[i], []byte(raw))
		if err != nil {
			return nil, domain.NewStorageError("list", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *EntryStore) Update(ctx context.Context, id, text string) error {
	key := s.keys.Entry(id)
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.NotFound(id)
	}
	if err != nil {
		return domain.NewStorageError("update", err)
	}

	var doc entryDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.NewStorageError("update", fmt.Errorf("decode entry %s: %w", id, err))
	}
	doc.Entry = text

	updated, err := json.Marshal(doc)
	if err != nil {
		return domain.NewStorageError("update", err)
	}
	// XX: a concurrent delete wins over this update.
	ok, err := s.client.SetXX(ctx, key, updated, redis.KeepTTL).Result()
	if err != nil {
		return domain.NewStorageError("update", err)
	}
	if !ok {
		return domain.NotFound(id)
	}
	return nil
}

func (s *EntryStore) Delete(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.keys.Entry(id))
		pipe.ZRem(ctx, s.keys.ByDate(), id)
		return nil
	})
	if err != nil {
		return domain.NewStorageError("delete", err)
	}
	if del.Val() == 0 {
		return domain.NotFound(id)
	}
	return nil
}

func (s *EntryStore) Ping(ctx context.Context) error {
	return domain.NewStorageError("ping", s.client.Ping(ctx).Err())
}

func decodeEntry(id string, data []byte) (domain.Entry, error) {
	var doc entryDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.Entry{}, fmt.Errorf("decode entry %s: %w", id, err)
	}
	created, err := domain.ParseDate(doc.Date)
	if err != nil {
		return domain.Entry{}, err
	}
	return domain.Entry{ID: id, CreatedAt: created, Text: doc.Entry}, nil
}
