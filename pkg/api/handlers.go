package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/ssargent/kvdb/pkg/codec"
	"github.com/ssargent/kvdb/pkg/store"
)

// Server holds the API server state. The store is not safe for concurrent
// use, so every handler holds mu while it touches it.
type Server struct {
	store   IKVStore
	mu      sync.Mutex
	config  ServerConfig
	metrics *Metrics
	logger  zerolog.Logger
}

// NewServer creates a new API server
func NewServer(kvStore IKVStore, config ServerConfig, metrics *Metrics, logger zerolog.Logger) *Server {
	return &Server{
		store:   kvStore,
		config:  config,
		metrics: metrics,
		logger:  logger,
	}
}

// handleHealth godoc
//
//	@Summary		Health check
//	@Description	Get the health status of the API
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	APIResponse
//	@Router			/health [get]
//	@Security		ApiKeyAuth
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handlePut godoc
//
//	@Summary		Set a key
//	@Description	Store the request body under key. mode is upsert (default), insert or update.
//	@Tags			kv
//	@Accept			octet-stream
//	@Produce		json
//	@Param			key		path		string	true	"Key"
//	@Param			mode	query		string	false	"Set mode"
//	@Param			body	body		[]byte	true	"Value"
//	@Success		200		{object}	SetResponse
//	@Failure		400		{object}	APIResponse
//	@Failure		413		{object}	APIResponse
//	@Failure		500		{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/kv/{key} [put]
func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	key, ok := keyParam(w, r)
	if !ok {
		return
	}

	mode, err := store.ParseSetMode(r.URL.Query().Get("mode"))
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// One byte over the limit is enough for the store to reject it
	body, err := io.ReadAll(io.LimitReader(r.Body, codec.MaxValueSize+1))
	if err != nil {
		sendError(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	changed, err := s.store.Set(key, body, mode)
	s.mu.Unlock()

	s.metrics.RecordDBOperation("set", err, changed, time.Since(start))
	if err != nil {
		s.sendStoreError(w, "set", err)
		return
	}

	sendSuccess(w, SetResponse{Changed: changed})
}

// handleGet godoc
//
//	@Summary		Get a value by key
//	@Description	Retrieve the raw value stored under key
//	@Tags			kv
//	@Produce		octet-stream
//	@Param			key	path		string	true	"Key"
//	@Success		200	{string}	byte
//	@Failure		400	{object}	APIResponse
//	@Failure		404	{object}	APIResponse
//	@Router			/kv/{key} [get]
//	@Security		ApiKeyAuth
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	key, ok := keyParam(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	value, found := s.store.Get(key)
	s.mu.Unlock()

	s.metrics.RecordDBOperation("get", nil, true, time.Since(start))
	if !found {
		sendError(w, "Key not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(value)
}

// handleDelete godoc
//
//	@Summary		Delete a key
//	@Description	Delete key, reporting whether it existed
//	@Tags			kv
//	@Produce		json
//	@Param			key	path		string	true	"Key"
//	@Success		200	{object}	DeleteResponse
//	@Failure		400	{object}	APIResponse
//	@Failure		500	{object}	APIResponse
//	@Router			/kv/{key} [delete]
//	@Security		ApiKeyAuth
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	key, ok := keyParam(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	existed, err := s.store.Delete(key)
	s.mu.Unlock()

	s.metrics.RecordDBOperation("delete", err, existed, time.Since(start))
	if err != nil {
		s.sendStoreError(w, "delete", err)
		return
	}

	sendSuccess(w, DeleteResponse{Existed: existed})
}

// handleListKeys godoc
//
//	@Summary		List keys
//	@Description	List all live keys in sorted order
//	@Tags			kv
//	@Produce		json
//	@Success		200	{object}	KeysResponse
//	@Router			/kv [get]
//	@Security		ApiKeyAuth
func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	keys := s.store.Keys()
	s.mu.Unlock()

	sendSuccess(w, KeysResponse{Keys: keys, Count: len(keys)})
}

// handleStats godoc
//
//	@Summary		Get store statistics
//	@Description	Get the live key count and log file size
//	@Tags			diagnostics
//	@Produce		json
//	@Success		200	{object}	StatsResponse
//	@Router			/stats [get]
//	@Security		ApiKeyAuth
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.updateStats()
	sendSuccess(w, StatsResponse{
		Keys:     stats.Keys,
		DataSize: stats.DataSize,
		Path:     s.store.Path(),
	})
}

func (s *Server) updateStats() *store.StoreStats {
	s.mu.Lock()
	stats := s.store.Stats()
	s.mu.Unlock()

	s.metrics.UpdateDBStats(stats.Keys, stats.DataSize)
	return stats
}

// startMetricsUpdater periodically updates store metrics until done is closed
func (s *Server) startMetricsUpdater(done <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.updateStats()
		}
	}
}

func (s *Server) sendStoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, codec.ErrKeyTooLarge), errors.Is(err, codec.ErrValueTooLarge):
		sendError(w, err.Error(), http.StatusRequestEntityTooLarge)
	case errors.Is(err, store.ErrInvalidMode):
		sendError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, store.ErrStoreClosed):
		sendError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		s.logger.Error().Err(err).Str("operation", op).Msg("store operation failed")
		sendError(w, fmt.Sprintf("Failed to %s key: %v", op, err), http.StatusInternalServerError)
	}
}

func keyParam(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	raw := chi.URLParam(r, "key")
	if raw == "" {
		sendError(w, "Key is required", http.StatusBadRequest)
		return nil, false
	}
	// chi routes on RawPath when it is set and the param is still escaped;
	// otherwise it comes from the already decoded Path
	if r.URL.RawPath == "" {
		return []byte(raw), true
	}
	key, err := url.PathUnescape(raw)
	if err != nil {
		sendError(w, "Invalid key encoding", http.StatusBadRequest)
		return nil, false
	}
	return []byte(key), true
}
