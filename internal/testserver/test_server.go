// Package testserver runs a full rolecall HTTP stack for black-box tests.
package testserver

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rpggio/rolecall/internal/app"
	"github.com/rpggio/rolecall/internal/config"
	"github.com/rpggio/rolecall/internal/sqlite"
	"github.com/stretchr/testify/require"
)

type TestServer struct {
	Server *httptest.Server
	App    *app.App
	DB     *sqlite.DB
	// Tokens maps actor IDs to their bearer tokens.
	Tokens map[string]string
}

// New starts a server with bearer auth and one API key per actor.
func New(t *testing.T, actors ...string) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	cfg := config.Default()
	cfg.Auth.Enabled = true
	cfg.DB.Path = dsn

	a, err := app.New(context.Background(), cfg, db, nil)
	require.NoError(t, err)

	server := httptest.NewServer(a.HTTPHandler())

	ts := &TestServer{
		Server: server,
		App:    a,
		DB:     db,
		Tokens: map[string]string{},
	}
	for _, actor := range actors {
		require.NoError(t, ts.AddAPIKey(actor))
	}

	t.Cleanup(func() {
		server.Close()
		_ = a.Close()
		_ = db.Close()
	})

	return ts
}

// AddAPIKey issues a token for actorID.
func (ts *TestServer) AddAPIKey(actorID string) error {
	token := "token-" + actorID
	if err := ts.App.Keys.Create(context.Background(), token, actorID, "test key"); err != nil {
		return err
	}
	ts.Tokens[actorID] = token
	return nil
}
