// Package redisstore implements the document store on Redis using
// WATCH/MULTI optimistic transactions.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rpggio/rolecall/internal/repository"
)

const defaultPrefix = "rolecall"

// Store implements repository.Store for Redis.
//
// Each document is a hash with version, body and indexes fields. Index
// entries are sets of ids keyed by collection, field and value.
type Store struct {
	client redis.UniversalClient
	prefix string
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix namespaces every key the store touches.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// New creates a Store on an existing client.
func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, prefix: defaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to reach redis: %w", err)
	}
	return nil
}

func (s *Store) docKey(collection, id string) string {
	return s.prefix + ":doc:" + collection + ":" + id
}

func (s *Store) indexKey(collection, field, value string) string {
	return s.prefix + ":idx:" + collection + ":" + field + ":" + value
}

// Get returns a document by collection and id.
func (s *Store) Get(ctx context.Context, collection, id string) (repository.Document, error) {
	fields, err := s.client.HGetAll(ctx, s.docKey(collection, id)).Result()
	if err != nil {
		return repository.Document{}, fmt.Errorf("failed to get document: %w", err)
	}
	if len(fields) == 0 {
		return repository.Document{}, repository.ErrNotFound
	}
	return toDocument(collection, id, fields)
}

// List returns the documents of a collection whose index field equals value.
func (s *Store) List(ctx context.Context, collection, field, value string) ([]repository.Document, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey(collection, field, value)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list index: %w", err)
	}
	sort.Strings(ids)

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, s.docKey(collection, id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}

	docs := make([]repository.Document, 0, len(ids))
	for i, id := range ids {
		fields := cmds[i].Val()
		if len(fields) == 0 {
			continue
		}
		doc, err := toDocument(collection, id, fields)
		if err != nil {
			return nil, err
		}
		// The set can briefly lag a concurrent reindex.
		if doc.Indexes[field] != value {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// RunTransaction runs fn, then watches every touched document and applies
// the buffered writes in one MULTI/EXEC block.
func (s *Store) RunTransaction(ctx context.Context, fn repository.TxFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &storeTx{store: s, tracker: repository.NewTracker()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	return s.commit(ctx, tx.tracker)
}

func (s *Store) commit(ctx context.Context, tracker *repository.Tracker) error {
	exp, err := tracker.Expectations()
	if err != nil {
		return err
	}
	if len(exp) == 0 {
		return nil
	}

	keys := make([]string, 0, len(exp))
	for k := range exp {
		keys = append(keys, s.docKey(k.Collection, k.ID))
	}

	err = s.client.Watch(ctx, func(rtx *redis.Tx) error {
		current := make(map[repository.Key]map[string]string, len(exp))
		for k, want := range exp {
			fields, err := rtx.HGetAll(ctx, s.docKey(k.Collection, k.ID)).Result()
			if err != nil {
				return fmt.Errorf("failed to check version: %w", err)
			}
			have, err := versionOf(fields)
			if err != nil {
				return err
			}
			if have != want {
				return repository.ErrConflict
			}
			current[k] = fields
		}

		_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, doc := range tracker.Writes() {
				k := repository.KeyOf(doc)
				old, err := indexesOf(current[k])
				if err != nil {
					return err
				}
				if err := s.writeDocument(ctx, pipe, doc, old); err != nil {
					return err
				}
			}
			for _, k := range tracker.Deletes() {
				old, err := indexesOf(current[k])
				if err != nil {
					return err
				}
				pipe.Del(ctx, s.docKey(k.Collection, k.ID))
				for field, value := range old {
					pipe.SRem(ctx, s.indexKey(k.Collection, field, value), k.ID)
				}
			}
			return nil
		})
		return err
	}, keys...)

	if errors.Is(err, redis.TxFailedErr) {
		return repository.ErrConflict
	}
	if err != nil && !errors.Is(err, repository.ErrConflict) {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return err
}

func (s *Store) writeDocument(ctx context.Context, pipe redis.Pipeliner, doc repository.Document, old map[string]string) error {
	indexes, err := json.Marshal(indexesOrEmpty(doc.Indexes))
	if err != nil {
		return fmt.Errorf("failed to encode indexes: %w", err)
	}
	pipe.HSet(ctx, s.docKey(doc.Collection, doc.ID),
		"version", doc.Version+1,
		"indexes", string(indexes),
		"body", string(doc.Body),
	)
	for field, value := range old {
		if doc.Indexes[field] != value {
			pipe.SRem(ctx, s.indexKey(doc.Collection, field, value), doc.ID)
		}
	}
	for field, value := range doc.Indexes {
		pipe.SAdd(ctx, s.indexKey(doc.Collection, field, value), doc.ID)
	}
	return nil
}

type storeTx struct {
	store   *Store
	tracker *repository.Tracker
}

func (t *storeTx) Get(ctx context.Context, collection, id string) (repository.Document, error) {
	if doc, ok, deleted := t.tracker.Buffered(collection, id); ok {
		return doc, nil
	} else if deleted {
		return repository.Document{}, repository.ErrNotFound
	}
	doc, err := t.store.Get(ctx, collection, id)
	if errors.Is(err, repository.ErrNotFound) {
		t.tracker.ObserveMissing(collection, id)
		return repository.Document{}, err
	}
	if err != nil {
		return repository.Document{}, err
	}
	t.tracker.ObserveRead(doc)
	return doc, nil
}

func (t *storeTx) List(ctx context.Context, collection, field, value string) ([]repository.Document, error) {
	docs, err := t.store.List(ctx, collection, field, value)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		t.tracker.ObserveRead(doc)
	}
	return t.tracker.Overlay(collection, field, value, docs), nil
}

func (t *storeTx) Put(_ context.Context, doc repository.Document) error {
	return t.tracker.Put(doc)
}

func (t *storeTx) Delete(_ context.Context, collection, id string) error {
	return t.tracker.Delete(collection, id)
}

func versionOf(fields map[string]string) (int64, error) {
	raw, ok := fields["version"]
	if !ok {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse version %q: %w", raw, err)
	}
	return v, nil
}

func indexesOf(fields map[string]string) (map[string]string, error) {
	raw, ok := fields["indexes"]
	if !ok || raw == "" {
		return nil, nil
	}
	var idx map[string]string
	if err := json.Unmarshal([]byte(raw), &idx); err != nil {
		return nil, fmt.Errorf("failed to decode indexes: %w", err)
	}
	return idx, nil
}

func toDocument(collection, id string, fields map[string]string) (repository.Document, error) {
	version, err := versionOf(fields)
	if err != nil {
		return repository.Document{}, err
	}
	idx, err := indexesOf(fields)
	if err != nil {
		return repository.Document{}, fmt.Errorf("document %s/%s: %w", collection, id, err)
	}
	if idx == nil {
		idx = map[string]string{}
	}
	return repository.Document{
		Collection: collection,
		ID:         id,
		Version:    version,
		Indexes:    idx,
		Body:       []byte(fields["body"]),
	}, nil
}

func indexesOrEmpty(in map[string]string) map[string]string {
	if in == nil {
		return map[string]string{}
	}
	return in
}
