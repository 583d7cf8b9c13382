package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/rolecall/internal/repository"
)

// DocumentStore implements repository.Store for SQLite.
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// Get returns a document by collection and id
func (s *DocumentStore) Get(ctx context.Context, collection, id string) (repository.Document, error) {
	query := `SELECT version, indexes, body FROM documents WHERE collection = ? AND id = ?`

	var version int64
	var indexes string
	var body []byte
	err := s.db.QueryRowContext(ctx, query, collection, id).Scan(&version, &indexes, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return repository.Document{}, repository.ErrNotFound
	}
	if err != nil {
		return repository.Document{}, fmt.Errorf("failed to get document: %w", err)
	}
	return toDocument(collection, id, version, indexes, body)
}

// List returns the documents of a collection whose index field equals value
func (s *DocumentStore) List(ctx context.Context, collection, field, value string) ([]repository.Document, error) {
	query := `
		SELECT d.id, d.version, d.indexes, d.body
		FROM documents d
		JOIN document_indexes i ON i.collection = d.collection AND i.id = d.id
		WHERE i.collection = ? AND i.field = ? AND i.value = ?
		ORDER BY d.id
	`

	rows, err := s.db.QueryContext(ctx, query, collection, field, value)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []repository.Document
	for rows.Next() {
		var id, indexes string
		var version int64
		var body []byte
		if err := rows.Scan(&id, &version, &indexes, &body); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc, err := toDocument(collection, id, version, indexes, body)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document rows: %w", err)
	}
	return docs, nil
}

// RunTransaction runs fn, then re-checks every tracked version and applies the
// buffered writes inside one SQL transaction.
func (s *DocumentStore) RunTransaction(ctx context.Context, fn repository.TxFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &documentTx{store: s, tracker: repository.NewTracker()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	return s.commit(ctx, tx.tracker)
}

func (s *DocumentStore) commit(ctx context.Context, tracker *repository.Tracker) error {
	exp, err := tracker.Expectations()
	if err != nil {
		return err
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for k, want := range exp {
		var have int64
		err := sqlTx.QueryRowContext(ctx,
			`SELECT version FROM documents WHERE collection = ? AND id = ?`, k.Collection, k.ID,
		).Scan(&have)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to check version: %w", err)
		}
		if have != want {
			return repository.ErrConflict
		}
	}

	now := time.Now().UTC()
	for _, doc := range tracker.Writes() {
		if err := writeDocument(ctx, sqlTx, doc, now); err != nil {
			return err
		}
	}
	for _, k := range tracker.Deletes() {
		if _, err := sqlTx.ExecContext(ctx,
			`DELETE FROM documents WHERE collection = ? AND id = ?`, k.Collection, k.ID,
		); err != nil {
			return fmt.Errorf("failed to delete document: %w", err)
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func writeDocument(ctx context.Context, tx *sql.Tx, doc repository.Document, now time.Time) error {
	indexes, err := json.Marshal(indexesOrEmpty(doc.Indexes))
	if err != nil {
		return fmt.Errorf("failed to encode indexes: %w", err)
	}

	if doc.Version == 0 {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO documents (collection, id, version, indexes, body, updated_at)
			VALUES (?, ?, 1, ?, ?, ?)
		`, doc.Collection, doc.ID, string(indexes), doc.Body, now)
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		if err != nil {
			return fmt.Errorf("failed to insert document: %w", err)
		}
	} else {
		result, err := tx.ExecContext(ctx, `
			UPDATE documents
			SET version = version + 1, indexes = ?, body = ?, updated_at = ?
			WHERE collection = ? AND id = ? AND version = ?
		`, string(indexes), doc.Body, now, doc.Collection, doc.ID, doc.Version)
		if err != nil {
			return fmt.Errorf("failed to update document: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check update: %w", err)
		}
		if rows == 0 {
			return repository.ErrConflict
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM document_indexes WHERE collection = ? AND id = ?`, doc.Collection, doc.ID,
	); err != nil {
		return fmt.Errorf("failed to clear indexes: %w", err)
	}
	for field, value := range doc.Indexes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO document_indexes (collection, id, field, value) VALUES (?, ?, ?, ?)`,
			doc.Collection, doc.ID, field, value,
		); err != nil {
			return fmt.Errorf("failed to write index: %w", err)
		}
	}
	return nil
}

type documentTx struct {
	store   *DocumentStore
	tracker *repository.Tracker
}

func (t *documentTx) Get(ctx context.Context, collection, id string) (repository.Document, error) {
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

func (t *documentTx) List(ctx context.Context, collection, field, value string) ([]repository.Document, error) {
	docs, err := t.store.List(ctx, collection, field, value)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		t.tracker.ObserveRead(doc)
	}
	return t.tracker.Overlay(collection, field, value, docs), nil
}

func (t *documentTx) Put(_ context.Context, doc repository.Document) error {
	return t.tracker.Put(doc)
}

func (t *documentTx) Delete(_ context.Context, collection, id string) error {
	return t.tracker.Delete(collection, id)
}

func toDocument(collection, id string, version int64, indexes string, body []byte) (repository.Document, error) {
	var idx map[string]string
	if err := json.Unmarshal([]byte(indexes), &idx); err != nil {
		return repository.Document{}, fmt.Errorf("failed to decode indexes of %s/%s: %w", collection, id, err)
	}
	return repository.Document{
		Collection: collection,
		ID:         id,
		Version:    version,
		Indexes:    idx,
		Body:       body,
	}, nil
}

func indexesOrEmpty(in map[string]string) map[string]string {
	if in == nil {
		return map[string]string{}
	}
	return in
}
