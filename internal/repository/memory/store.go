// Package memory provides an in-process document store with the same
// optimistic version checks as the durable backends.
package memory

import (
	"context"
	"sync"

	"github.com/rpggio/rolecall/internal/repository"
)

type entry struct {
	version int64
	indexes map[string]string
	body    []byte
}

// Store implements repository.Store in memory.
type Store struct {
	mu   sync.RWMutex
	docs map[repository.Key]entry
}

// New creates an empty store.
func New() *Store {
	return &Store{docs: make(map[repository.Key]entry)}
}

// Get returns a document by collection and id.
func (s *Store) Get(_ context.Context, collection, id string) (repository.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.docs[repository.Key{Collection: collection, ID: id}]
	if !ok {
		return repository.Document{}, repository.ErrNotFound
	}
	return toDocument(collection, id, e), nil
}

// List returns the documents of a collection whose index field equals value.
func (s *Store) List(_ context.Context, collection, field, value string) ([]repository.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []repository.Document
	for k, e := range s.docs {
		if k.Collection != collection || e.indexes[field] != value {
			continue
		}
		out = append(out, toDocument(k.Collection, k.ID, e))
	}
	return out, nil
}

// RunTransaction runs fn and commits its writes if no tracked version moved.
func (s *Store) RunTransaction(ctx context.Context, fn repository.TxFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &storeTx{store: s, tracker: repository.NewTracker()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	return s.commit(tx.tracker)
}

func (s *Store) commit(tracker *repository.Tracker) error {
	exp, err := tracker.Expectations()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, want := range exp {
		if s.docs[k].version != want {
			return repository.ErrConflict
		}
	}
	for _, doc := range tracker.Writes() {
		s.docs[repository.KeyOf(doc)] = entry{
			version: doc.Version + 1,
			indexes: doc.Indexes,
			body:    doc.Body,
		}
	}
	for _, k := range tracker.Deletes() {
		delete(s.docs, k)
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
	if err == repository.ErrNotFound {
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

func toDocument(collection, id string, e entry) repository.Document {
	indexes := make(map[string]string, len(e.indexes))
	for k, v := range e.indexes {
		indexes[k] = v
	}
	return repository.Document{
		Collection: collection,
		ID:         id,
		Version:    e.version,
		Indexes:    indexes,
		Body:       append([]byte(nil), e.body...),
	}
}
