package frappe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/mmcdole/shopsync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPrefix = "ecommerce_integrations.shopify.page.shopify_import_products.shopify_import_products"

// fakeSite is a minimal Frappe site: a map of method name -> handler
type fakeSite struct {
	mu      sync.Mutex
	calls   []string
	methods map[string]http.HandlerFunc
}

func newFakeSite(t *testing.T) (*fakeSite, *httptest.Server) {
	site := &fakeSite{methods: make(map[string]http.HandlerFunc)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		site.mu.Lock()
		site.calls = append(site.calls, r.URL.Path)
		h, ok := site.methods[r.URL.Path]
		site.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return site, srv
}

func (s *fakeSite) handle(path string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.methods[path] = h
}

func writeMessage(w http.ResponseWriter, message any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"message": message})
}

func newTestClient(url string) *Client {
	return NewClient(url, "key", "secret", Options{MethodPrefix: testPrefix}, nil)
}

func TestClient_GetProductCount(t *testing.T) {
	site, srv := newFakeSite(t)
	site.handle("/api/method/"+testPrefix+".get_product_count", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "token key:secret", r.Header.Get("Authorization"))
		writeMessage(w, map[string]int{"shopifyCount": 12, "erpnextCount": 9, "syncedCount": 7})
	})

	counts, err := newTestClient(srv.URL).GetProductCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.SyncCounts{Remote: 12, Local: 9, Synced: 7}, counts)
}

func TestClient_GetProductCount_MissingCounter(t *testing.T) {
	site, srv := newFakeSite(t)
	site.handle("/api/method/"+testPrefix+".get_product_count", func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, map[string]int{"shopifyCount": 12})
	})

	_, err := newTestClient(srv.URL).GetProductCount(context.Background())
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestClient_ListProducts_PassesCursor(t *testing.T) {
	site, srv := newFakeSite(t)
	var gotFrom string
	site.handle("/api/method/"+testPrefix+".get_shopify_products", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotFrom = r.PostForm.Get("from_")
		w.Write([]byte(`{"message": {
			"products": [
				{"id": 7001, "title": "Tee", "variants": [{"id": 1, "sku": "TEE-S"}, {"id": 2, "sku": null}], "synced": false},
				{"id": "7002", "title": "Mug", "variants": [], "synced": true}
			],
			"nextUrl": "https://shop/products.json?page_info=abc",
			"prevUrl": null
		}}`))
	})

	page, err := newTestClient(srv.URL).ListProducts(context.Background(), "https://shop/products.json?page_info=xyz")
	require.NoError(t, err)

	assert.Equal(t, "https://shop/products.json?page_info=xyz", gotFrom)
	require.Len(t, page.Products, 2)
	assert.Equal(t, "7001", page.Products[0].ID)
	assert.Equal(t, []string{"TEE-S", ""}, page.Products[0].SKUs())
	assert.True(t, page.Products[1].Synced)
	assert.Equal(t, domain.Cursor("https://shop/products.json?page_info=abc"), page.Next)
	assert.False(t, page.HasPrev())
}

func TestClient_ListProducts_FirstPageSendsNoCursor(t *testing.T) {
	site, srv := newFakeSite(t)
	site.handle("/api/method/"+testPrefix+".get_shopify_products", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		_, present := r.PostForm["from_"]
		assert.False(t, present)
		writeMessage(w, map[string]any{"products": []any{}})
	})

	page, err := newTestClient(srv.URL).ListProducts(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, page.Products)
}

func TestClient_SyncProduct(t *testing.T) {
	site, srv := newFakeSite(t)
	site.handle("/api/method/"+testPrefix+".sync_product", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		writeMessage(w, r.PostForm.Get("product") == "42")
	})
	client := newTestClient(srv.URL)

	ok, err := client.SyncProduct(context.Background(), "42")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.SyncProduct(context.Background(), "43")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_ResyncProduct_NullIsMalformed(t *testing.T) {
	site, srv := newFakeSite(t)
	site.handle("/api/method/"+testPrefix+".resync_product", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message": null}`))
	})

	_, err := newTestClient(srv.URL).ResyncProduct(context.Background(), "1")
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestClient_StartBulkSync(t *testing.T) {
	site, srv := newFakeSite(t)
	site.handle("/api/method/"+testPrefix+".import_all_products", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	require.NoError(t, newTestClient(srv.URL).StartBulkSync(context.Background()))
	assert.Equal(t, []string{"/api/method/" + testPrefix + ".import_all_products"}, site.calls)
}

func TestClient_ListActiveJobs(t *testing.T) {
	site, srv := newFakeSite(t)
	site.handle("/api/resource/RQ Job", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Contains(t, r.URL.Query().Get("filters"), `"queued"`)
		w.Write([]byte(`{"data": [{"name": "j1", "job_name": "shopify.job.sync.all.products", "status": "started"}]}`))
	})

	jobs, err := newTestClient(srv.URL).ListActiveJobs(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "shopify.job.sync.all.products", jobs[0].JobName)
	assert.True(t, jobs[0].Active())
}

func TestClient_RemoteError(t *testing.T) {
	site, srv := newFakeSite(t)
	site.handle("/api/method/"+testPrefix+".get_product_count", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusExpectationFailed)
		w.Write([]byte(`{"exc_type": "ValidationError", "_server_messages": "[\"{\\\"message\\\": \\\"Shopify setting is disabled<br>\\\"}\"]"}`))
	})

	_, err := newTestClient(srv.URL).GetProductCount(context.Background())
	require.Error(t, err)
	assert.True(t, IsRemoteError(err))
	assert.Equal(t, "ValidationError: Shopify setting is disabled", err.Error())
}

func TestClient_AuthFailed(t *testing.T) {
	site, srv := newFakeSite(t)
	site.handle("/api/method/"+testPrefix+".get_product_count", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := newTestClient(srv.URL).GetProductCount(context.Background())
	assert.ErrorIs(t, err, domain.ErrAuthFailed)
}

func TestClient_ServerOffline(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url).GetProductCount(context.Background())
	assert.ErrorIs(t, err, domain.ErrServerOffline)
}

func TestClient_PingAndLoggedUser(t *testing.T) {
	site, srv := newFakeSite(t)
	site.handle("/api/method/frappe.ping", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeMessage(w, "pong")
	})
	site.handle("/api/method/frappe.auth.get_logged_user", func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, "ops@example.com")
	})

	anon := NewClient(srv.URL, "", "", Options{}, nil)
	require.NoError(t, anon.Ping(context.Background()))

	user, err := newTestClient(srv.URL).LoggedUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", user)
}

func TestClient_RateLimitHonoursContext(t *testing.T) {
	_, srv := newFakeSite(t)
	client := NewClient(srv.URL, "k", "s", Options{MethodPrefix: testPrefix, RequestsPerSecond: 0.001, Burst: 1}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	// first request consumes the only token
	client.limiter.Allow()
	cancel()

	_, err := client.GetProductCount(ctx)
	assert.Error(t, err)
}
