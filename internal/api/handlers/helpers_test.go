package handlers_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/vinq/vinq-crm/internal/api"
	"github.com/vinq/vinq-crm/internal/cache"
	"github.com/vinq/vinq-crm/internal/storage"
	"github.com/vinq/vinq-crm/internal/testutil"
)

type serverOptions struct {
	cache cache.Store
	store storage.ObjectStore
}

// setupTestRouter builds the full API router over a fresh database. The
// default test user is an admin.
func setupTestRouter(t *testing.T, opts ...func(*serverOptions)) (http.Handler, *testutil.TestSetup) {
	t.Helper()
	tc := testutil.NewTestContext(t)

	var o serverOptions
	for _, opt := range opts {
		opt(&o)
	}

	router := api.NewRouter(api.RouterConfig{
		DB:          tc.DB,
		Logger:      testutil.Logger(),
		JWTService:  tc.JWTService,
		AuthService: tc.AuthService,
		Cache:       o.cache,
		CacheTTL:    time.Minute,
		Store:       o.store,
		Verbose:     true,
	})
	return router, tc
}

func withCache(c cache.Store) func(*serverOptions) {
	return func(o *serverOptions) { o.cache = c }
}

func withStore(s storage.ObjectStore) func(*serverOptions) {
	return func(o *serverOptions) { o.store = s }
}

func do(t *testing.T, router http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.AuthenticatedRequest(t, method, path, body, token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// memoryStore is an in-process ObjectStore.
type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte)}
}

func (m *memoryStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return "https://files.test/" + key, nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

// memoryCache is a cache.Store that records hits.
type memoryCache struct {
	mu     sync.Mutex
	values map[string]interface{}
	hits   int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: make(map[string]interface{})}
}

func (m *memoryCache) Get(_ context.Context, key string, dst any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return cache.ErrMiss
	}
	m.hits++
	return copyJSON(v, dst)
}

func (m *memoryCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memoryCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func copyJSON(src, dst any) error {
	data, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}
