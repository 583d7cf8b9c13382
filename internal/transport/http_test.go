package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type codedErr struct {
	code      string
	retryable bool
}

func (e codedErr) Error() string             { return e.code + ": failed" }
func (e codedErr) CodeValue() string         { return e.code }
func (e codedErr) MessageValue() string      { return "failed" }
func (e codedErr) RecoveryHintValue() string { return "try again" }
func (e codedErr) RetryableValue() bool      { return e.retryable }

type testHandler struct {
	method string
	actor  string
	err    error
}

func (h *testHandler) Handle(_ context.Context, actorID, method string, params json.RawMessage) (any, error) {
	h.method = method
	h.actor = actorID
	if h.err != nil {
		return nil, h.err
	}
	return map[string]string{"actor": actorID}, nil
}

func postRPC(t *testing.T, url, body string, header map[string]string) Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url+"/rpc", bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHTTPServer_RPCWithAuth(t *testing.T) {
	handler := &testHandler{}
	resolver := &testResolver{tokenToActor: map[string]string{"token": "alice"}}
	server := httptest.NewServer(NewServer(handler, Options{Auth: AuthMiddleware(resolver)}))
	t.Cleanup(server.Close)

	resp := postRPC(t, server.URL, `{"jsonrpc":"2.0","method":"list_roles","id":1}`, map[string]string{
		"Authorization": "Bearer token",
		ActorHeader:     "mallory",
	})
	require.Nil(t, resp.Error)
	require.Equal(t, "list_roles", handler.method)
	require.Equal(t, "alice", handler.actor)

	req, err := http.NewRequest(http.MethodPost, server.URL+"/rpc", bytes.NewBufferString(`{"jsonrpc":"2.0","method":"list_roles","id":2}`))
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestHTTPServer_RPCDeclaredActor(t *testing.T) {
	handler := &testHandler{}
	server := httptest.NewServer(NewServer(handler, Options{}))
	t.Cleanup(server.Close)

	resp := postRPC(t, server.URL, `{"jsonrpc":"2.0","method":"get_role","params":{"id":"r1"},"id":"a"}`, map[string]string{ActorHeader: "bob"})
	require.Nil(t, resp.Error)
	require.Equal(t, "a", resp.ID)
	require.Equal(t, "bob", handler.actor)
}

func TestHTTPServer_RPCErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		data string
	}{
		{"application", codedErr{code: "CONCURRENT_ACCEPTANCE", retryable: true}, ErrApplication, "CONCURRENT_ACCEPTANCE"},
		{"method", codedErr{code: "METHOD_NOT_FOUND"}, ErrMethodNotFound, "METHOD_NOT_FOUND"},
		{"validation", codedErr{code: "VALIDATION_ERROR"}, ErrInvalidParams, "VALIDATION_ERROR"},
		{"plain", errors.New("boom"), ErrInternal, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := &testHandler{err: tt.err}
			server := httptest.NewServer(NewServer(handler, Options{}))
			t.Cleanup(server.Close)

			resp := postRPC(t, server.URL, `{"jsonrpc":"2.0","method":"review_application","id":7}`, nil)
			require.NotNil(t, resp.Error)
			require.Equal(t, tt.code, resp.Error.Code)
			if tt.data == "" {
				require.Nil(t, resp.Error.Data)
				return
			}
			data, ok := resp.Error.Data.(map[string]any)
			require.True(t, ok)
			require.Equal(t, tt.data, data["code"])
			require.Equal(t, "try again", data["recovery_hint"])
		})
	}
}

func TestHTTPServer_RPCMalformed(t *testing.T) {
	server := httptest.NewServer(NewServer(&testHandler{}, Options{}))
	t.Cleanup(server.Close)

	resp := postRPC(t, server.URL, `{"jsonrpc":`, nil)
	require.Equal(t, ErrParseCode, resp.Error.Code)

	resp = postRPC(t, server.URL, `{"jsonrpc":"1.0","method":"x"}`, nil)
	require.Equal(t, ErrInvalidReq, resp.Error.Code)
}

func TestHTTPServer_HealthMetricsAndMCP(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("rolecall_up 1\n"))
	})
	mcpHits := 0
	mcp := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mcpHits++
		w.WriteHeader(http.StatusAccepted)
	})
	resolver := &testResolver{tokenToActor: map[string]string{}}
	server := httptest.NewServer(NewServer(&testHandler{}, Options{
		Auth:    AuthMiddleware(resolver),
		MCP:     mcp,
		Metrics: metrics,
	}))
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, "rolecall_up 1\n", string(body))

	resp, err = http.Post(server.URL+"/mcp", "application/json", bytes.NewBufferString(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Equal(t, 1, mcpHits)
}
