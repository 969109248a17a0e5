package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/ssargent/kvdb/pkg/codec"
	"github.com/ssargent/kvdb/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-key"

type testResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func setupTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()

	kvStore, err := store.NewKVStore(store.KVStoreConfig{Path: filepath.Join(t.TempDir(), "api.kvdb")})
	require.NoError(t, err)
	_, err = kvStore.Open()
	require.NoError(t, err)
	t.Cleanup(func() { _ = kvStore.Close() })

	return newTestServer(kvStore)
}

func newTestServer(kvStore IKVStore) (*Server, http.Handler) {
	registry := prometheus.NewRegistry()
	server := NewServer(kvStore, ServerConfig{APIKey: testAPIKey}, NewMetrics(registry), zerolog.Nop())
	return server, NewRouter(server, registry)
}

func doRequest(h http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("X-API-Key", testAPIKey)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, data interface{}) testResponse {
	t.Helper()

	var resp testResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	if data != nil && len(resp.Data) > 0 {
		require.NoError(t, json.Unmarshal(resp.Data, data))
	}
	return resp
}

func TestServer_handleHealth(t *testing.T) {
	_, router := setupTestServer(t)

	w := doRequest(router, "GET", "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var data map[string]string
	resp := decodeResponse(t, w, &data)
	assert.True(t, resp.Success)
	assert.Equal(t, "healthy", data["status"])
}

func TestServer_PutAndGet(t *testing.T) {
	_, router := setupTestServer(t)

	value := []byte{0x00, 0x01, 0xFE, 0xFF}
	w := doRequest(router, "PUT", "/api/v1/kv/binary", value)
	require.Equal(t, http.StatusOK, w.Code)

	var set SetResponse
	resp := decodeResponse(t, w, &set)
	assert.True(t, resp.Success)
	assert.True(t, set.Changed)

	w = doRequest(router, "GET", "/api/v1/kv/binary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, value, w.Body.Bytes())

	// Same value again is a no-op
	w = doRequest(router, "PUT", "/api/v1/kv/binary", value)
	require.Equal(t, http.StatusOK, w.Code)
	decodeResponse(t, w, &set)
	assert.False(t, set.Changed)
}

func TestServer_PutModes(t *testing.T) {
	server, router := setupTestServer(t)

	testCases := []struct {
		name        string
		target      string
		body        string
		wantStatus  int
		wantChanged bool
	}{
		{"update absent", "/api/v1/kv/k?mode=update", "v1", http.StatusOK, false},
		{"insert absent", "/api/v1/kv/k?mode=insert", "v1", http.StatusOK, true},
		{"insert present", "/api/v1/kv/k?mode=insert", "v2", http.StatusOK, false},
		{"update present", "/api/v1/kv/k?mode=update", "v2", http.StatusOK, true},
		{"upsert", "/api/v1/kv/k?mode=upsert", "v3", http.StatusOK, true},
		{"unknown mode", "/api/v1/kv/k?mode=merge", "v4", http.StatusBadRequest, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(router, "PUT", tc.target, []byte(tc.body))
			require.Equal(t, tc.wantStatus, w.Code)

			var set SetResponse
			resp := decodeResponse(t, w, &set)
			assert.Equal(t, tc.wantStatus == http.StatusOK, resp.Success)
			assert.Equal(t, tc.wantChanged, set.Changed)
		})
	}

	value, ok := server.store.Get([]byte("k"))
	assert.True(t, ok)
	assert.Equal(t, "v3", string(value))
}

func TestServer_PutTooLarge(t *testing.T) {
	_, router := setupTestServer(t)

	w := doRequest(router, "PUT", "/api/v1/kv/big", make([]byte, codec.MaxValueSize+1))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = doRequest(router, "PUT", "/api/v1/kv/"+strings.Repeat("k", codec.MaxKeySize+1), []byte("v"))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = doRequest(router, "GET", "/api/v1/kv/big", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_EscapedKey(t *testing.T) {
	server, router := setupTestServer(t)

	w := doRequest(router, "PUT", "/api/v1/kv/users%2F42", []byte("alice"))
	require.Equal(t, http.StatusOK, w.Code)

	value, ok := server.store.Get([]byte("users/42"))
	assert.True(t, ok)
	assert.Equal(t, "alice", string(value))

	w = doRequest(router, "GET", "/api/v1/kv/users%2F42", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", w.Body.String())
}

func TestServer_KeysContainingPercent(t *testing.T) {
	testCases := []struct {
		name   string
		target string
		key    string
	}{
		{"escaped percent before hex digits", "/api/v1/kv/a%2541", "a%41"},
		{"trailing percent", "/api/v1/kv/50%25", "50%"},
		{"percent and slash", "/api/v1/kv/a%25%2Fb", "a%/b"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server, router := setupTestServer(t)

			w := doRequest(router, "PUT", tc.target, []byte("v"))
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, []string{tc.key}, server.store.Keys())

			w = doRequest(router, "GET", tc.target, nil)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "v", w.Body.String())
		})
	}
}

func TestServer_GetMissing(t *testing.T) {
	_, router := setupTestServer(t)

	w := doRequest(router, "GET", "/api/v1/kv/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	resp := decodeResponse(t, w, nil)
	assert.False(t, resp.Success)
	assert.Equal(t, "Key not found", resp.Error)
}

func TestServer_Delete(t *testing.T) {
	_, router := setupTestServer(t)

	doRequest(router, "PUT", "/api/v1/kv/k", []byte("v"))

	var del DeleteResponse
	w := doRequest(router, "DELETE", "/api/v1/kv/k", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeResponse(t, w, &del)
	assert.True(t, del.Existed)

	w = doRequest(router, "DELETE", "/api/v1/kv/k", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeResponse(t, w, &del)
	assert.False(t, del.Existed)

	w = doRequest(router, "GET", "/api/v1/kv/k", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_ListKeysAndStats(t *testing.T) {
	_, router := setupTestServer(t)

	for _, k := range []string{"charlie", "alpha", "bravo"} {
		doRequest(router, "PUT", "/api/v1/kv/"+k, []byte("v"))
	}

	var keys KeysResponse
	w := doRequest(router, "GET", "/api/v1/kv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeResponse(t, w, &keys)
	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, keys.Keys)
	assert.Equal(t, 3, keys.Count)

	var stats StatsResponse
	w = doRequest(router, "GET", "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeResponse(t, w, &stats)
	assert.Equal(t, 3, stats.Keys)
	assert.Greater(t, stats.DataSize, int64(store.FileHeaderSize))
	assert.True(t, strings.HasSuffix(stats.Path, "api.kvdb"))
}

func TestServer_EmptyKey(t *testing.T) {
	server, _ := setupTestServer(t)

	handlers := map[string]http.HandlerFunc{
		"GET":    server.handleGet,
		"PUT":    server.handlePut,
		"DELETE": server.handleDelete,
	}

	for method, handler := range handlers {
		t.Run(method, func(t *testing.T) {
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("key", "")

			req := httptest.NewRequest(method, "/kv/", nil)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
			w := httptest.NewRecorder()

			handler(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

// failingStore fails every write
type failingStore struct {
	err error
}

func (f *failingStore) Get(key []byte) ([]byte, bool) { return nil, false }
func (f *failingStore) Set(key, value []byte, mode store.SetMode) (bool, error) {
	return false, f.err
}
func (f *failingStore) Delete(key []byte) (bool, error) { return false, f.err }
func (f *failingStore) Keys() []string                  { return nil }
func (f *failingStore) Stats() *store.StoreStats        { return &store.StoreStats{} }
func (f *failingStore) Path() string                    { return "failing" }

func TestServer_StoreErrors(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"io error", errors.New("disk on fire"), http.StatusInternalServerError},
		{"closed", store.ErrStoreClosed, http.StatusServiceUnavailable},
		{"too large", codec.ErrValueTooLarge, http.StatusRequestEntityTooLarge},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, router := newTestServer(&failingStore{err: tc.err})

			w := doRequest(router, "PUT", "/api/v1/kv/k", []byte("v"))
			assert.Equal(t, tc.wantStatus, w.Code)

			w = doRequest(router, "DELETE", "/api/v1/kv/k", nil)
			assert.Equal(t, tc.wantStatus, w.Code)

			resp := decodeResponse(t, w, nil)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func newRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}
