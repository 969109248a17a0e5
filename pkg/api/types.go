package api

import (
	"context"

	"github.com/ssargent/kvdb/pkg/store"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// SetResponse is returned by PUT /kv/{key}
type SetResponse struct {
	Changed bool `json:"changed"`
}

// DeleteResponse is returned by DELETE /kv/{key}
type DeleteResponse struct {
	Existed bool `json:"existed"`
}

// KeysResponse is returned by GET /kv
type KeysResponse struct {
	Keys  []string `json:"keys"`
	Count int      `json:"count"`
}

// StatsResponse is returned by GET /stats
type StatsResponse struct {
	Keys     int    `json:"keys"`
	DataSize int64  `json:"data_size"`
	Path     string `json:"path,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Bind   string
	Port   int
	APIKey string // Empty disables authentication
}

// IKVStore defines the store operations the API serves
type IKVStore interface {
	Get(key []byte) ([]byte, bool)
	Set(key, value []byte, mode store.SetMode) (bool, error)
	Delete(key []byte) (bool, error)
	Keys() []string
	Stats() *store.StoreStats
	Path() string
}

var _ IKVStore = (*store.KVStore)(nil)

// ServerStarter starts the API server and blocks until ctx is done
type ServerStarter interface {
	StartServer(ctx context.Context, kvStore IKVStore, config ServerConfig) error
}

// ServerFactory creates server instances
type ServerFactory interface {
	CreateServerStarter() ServerStarter
}
