package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// Entity is implemented by types persisted as documents.
type Entity interface {
	DocumentID() string
	DocumentVersion() int64
	SetDocumentVersion(version int64)
	DocumentIndexes() map[string]string
}

// entityPtr constrains a pointer type *T that implements Entity.
type entityPtr[T any] interface {
	*T
	Entity
}

// Load reads and decodes one document.
func Load[T any, P entityPtr[T]](ctx context.Context, r Reader, collection, id string) (P, error) {
	doc, err := r.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	return decode[T, P](doc)
}

// LoadAll reads and decodes every document whose index field equals value,
// ordered by id.
func LoadAll[T any, P entityPtr[T]](ctx context.Context, r Reader, collection, field, value string) ([]P, error) {
	docs, err := r.List(ctx, collection, field, value)
	if err != nil {
		return nil, err
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })

	out := make([]P, 0, len(docs))
	for _, doc := range docs {
		entity, err := decode[T, P](doc)
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}

// Save encodes an entity and buffers it in tx.
func Save(ctx context.Context, tx Tx, collection string, entity Entity) error {
	body, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("encoding %s/%s: %w", collection, entity.DocumentID(), err)
	}
	return tx.Put(ctx, Document{
		Collection: collection,
		ID:         entity.DocumentID(),
		Version:    entity.DocumentVersion(),
		Indexes:    entity.DocumentIndexes(),
		Body:       body,
	})
}

func decode[T any, P entityPtr[T]](doc Document) (P, error) {
	var v T
	if err := json.Unmarshal(doc.Body, &v); err != nil {
		return nil, fmt.Errorf("decoding %s/%s: %w", doc.Collection, doc.ID, err)
	}
	p := P(&v)
	p.SetDocumentVersion(doc.Version)
	return p, nil
}

// Validate checks the addressing fields of a document.
func Validate(doc Document) error {
	if doc.Collection == "" || doc.ID == "" {
		return ErrInvalidInput
	}
	if doc.Version < 0 {
		return ErrInvalidInput
	}
	return nil
}
