// Package storetest holds behaviour checks every repository.Store backend must pass.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/rpggio/rolecall/internal/repository"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty store.
type Factory func(t *testing.T) repository.Store

func put(ctx context.Context, t *testing.T, store repository.Store, doc repository.Document) {
	t.Helper()
	err := store.RunTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.Put(ctx, doc)
	})
	require.NoError(t, err)
}

// Run exercises the store contract against newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("PutAndGet", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		put(ctx, t, store, repository.Document{
			Collection: "roles", ID: "r1",
			Indexes: map[string]string{"collaboration_id": "c1"},
			Body:    []byte(`{"title":"Designer"}`),
		})

		doc, err := store.Get(ctx, "roles", "r1")
		require.NoError(t, err)
		require.Equal(t, int64(1), doc.Version)
		require.JSONEq(t, `{"title":"Designer"}`, string(doc.Body))
		require.Equal(t, "c1", doc.Indexes["collaboration_id"])
	})

	t.Run("GetMissing", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Get(context.Background(), "roles", "missing")
		require.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("UpdateIncrementsVersion", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		put(ctx, t, store, repository.Document{Collection: "roles", ID: "r1", Body: []byte(`{"v":1}`)})
		put(ctx, t, store, repository.Document{Collection: "roles", ID: "r1", Version: 1, Body: []byte(`{"v":2}`)})

		doc, err := store.Get(ctx, "roles", "r1")
		require.NoError(t, err)
		require.Equal(t, int64(2), doc.Version)
		require.JSONEq(t, `{"v":2}`, string(doc.Body))
	})

	t.Run("StaleWriteConflicts", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		put(ctx, t, store, repository.Document{Collection: "roles", ID: "r1", Body: []byte(`{}`)})

		err := store.RunTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
			return tx.Put(ctx, repository.Document{Collection: "roles", ID: "r1", Body: []byte(`{"stale":true}`)})
		})
		require.ErrorIs(t, err, repository.ErrConflict)

		doc, err := store.Get(ctx, "roles", "r1")
		require.NoError(t, err)
		require.JSONEq(t, `{}`, string(doc.Body))
	})

	t.Run("ReadSetConflict", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		put(ctx, t, store, repository.Document{Collection: "collaborations", ID: "c1", Body: []byte(`{"n":0}`)})

		err := store.RunTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
			if _, err := tx.Get(ctx, "collaborations", "c1"); err != nil {
				return err
			}
			// A competing writer commits between our read and our commit.
			put(ctx, t, store, repository.Document{Collection: "collaborations", ID: "c1", Version: 1, Body: []byte(`{"n":1}`)})
			return tx.Put(ctx, repository.Document{Collection: "roles", ID: "r9", Body: []byte(`{}`)})
		})
		require.ErrorIs(t, err, repository.ErrConflict)

		_, err = store.Get(ctx, "roles", "r9")
		require.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("ListByIndex", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		put(ctx, t, store, repository.Document{Collection: "applications", ID: "a1", Indexes: map[string]string{"role_id": "r1"}, Body: []byte(`{}`)})
		put(ctx, t, store, repository.Document{Collection: "applications", ID: "a2", Indexes: map[string]string{"role_id": "r1"}, Body: []byte(`{}`)})
		put(ctx, t, store, repository.Document{Collection: "applications", ID: "a3", Indexes: map[string]string{"role_id": "r2"}, Body: []byte(`{}`)})

		docs, err := store.List(ctx, "applications", "role_id", "r1")
		require.NoError(t, err)
		require.ElementsMatch(t, []string{"a1", "a2"}, ids(docs))

		// Moving a document to another index value removes it from the old list.
		put(ctx, t, store, repository.Document{Collection: "applications", ID: "a2", Version: 1, Indexes: map[string]string{"role_id": "r2"}, Body: []byte(`{}`)})
		docs, err = store.List(ctx, "applications", "role_id", "r1")
		require.NoError(t, err)
		require.Equal(t, []string{"a1"}, ids(docs))
	})

	t.Run("FunctionErrorAborts", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		boom := errors.New("boom")

		err := store.RunTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
			if err := tx.Put(ctx, repository.Document{Collection: "roles", ID: "r1", Body: []byte(`{}`)}); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		_, err = store.Get(ctx, "roles", "r1")
		require.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("ReadOwnWrites", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		err := store.RunTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
			require.NoError(t, tx.Put(ctx, repository.Document{Collection: "roles", ID: "r1", Indexes: map[string]string{"collaboration_id": "c1"}, Body: []byte(`{"a":1}`)}))

			doc, err := tx.Get(ctx, "roles", "r1")
			require.NoError(t, err)
			require.JSONEq(t, `{"a":1}`, string(doc.Body))

			docs, err := tx.List(ctx, "roles", "collaboration_id", "c1")
			require.NoError(t, err)
			require.Equal(t, []string{"r1"}, ids(docs))
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("Delete", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		put(ctx, t, store, repository.Document{Collection: "roles", ID: "r1", Indexes: map[string]string{"collaboration_id": "c1"}, Body: []byte(`{}`)})

		err := store.RunTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
			if _, err := tx.Get(ctx, "roles", "r1"); err != nil {
				return err
			}
			return tx.Delete(ctx, "roles", "r1")
		})
		require.NoError(t, err)

		_, err = store.Get(ctx, "roles", "r1")
		require.ErrorIs(t, err, repository.ErrNotFound)
		docs, err := store.List(ctx, "roles", "collaboration_id", "c1")
		require.NoError(t, err)
		require.Empty(t, docs)
	})
}

func ids(docs []repository.Document) []string {
	out := make([]string, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.ID)
	}
	return out
}
