package repository

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/inventory-sync/models"
)

// fakeERP 模拟远端ERP，可控制令牌失效
type fakeERP struct {
	token      string
	loginCount int
	itemCalls  int
}

func (f *fakeERP) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		f.loginCount++
		f.token = "token-" + time.Now().Format("150405.000000000")
		json.NewEncoder(w).Encode(map[string]string{"token": f.token})
	})
	mux.HandleFunc("/api/inventory/items", func(w http.ResponseWriter, r *http.Request) {
		f.itemCalls++
		if r.Header.Get("Authorization") != "Bearer "+f.token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"items": []models.InventoryItem{
				{ItemCode: "A", Warehouse: r.URL.Query().Get("warehouse")},
			},
		})
	})
	return mux
}

func TestERPSourceLoginAndFetch(t *testing.T) {
	erp := &fakeERP{}
	server := httptest.NewServer(erp.handler())
	defer server.Close()

	source := NewERPSource(server.URL, "sync", "secret", 5*time.Second)
	items, err := source.FetchItems(context.Background(), "MAIN")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "MAIN", items[0].Warehouse)
	assert.Equal(t, 1, erp.loginCount)
}

func TestERPSourceReauthOnceOn401(t *testing.T) {
	erp := &fakeERP{}
	server := httptest.NewServer(erp.handler())
	defer server.Close()

	source := NewERPSource(server.URL, "sync", "secret", 5*time.Second)
	_, err := source.FetchItems(context.Background(), models.ScopeAll)
	require.NoError(t, err)

	// 远端令牌失效后，下一次请求应重新认证并原样重试一次
	erp.token = "revoked"
	items, err := source.FetchItems(context.Background(), models.ScopeAll)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 2, erp.loginCount)
}

func TestERPSourceUnavailableOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/login" {
			json.NewEncoder(w).Encode(map[string]string{"token": "t"})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	source := NewERPSource(server.URL, "sync", "secret", 5*time.Second)
	_, err := source.FetchItems(context.Background(), models.ScopeAll)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
}

func TestERPSourceUnavailableWhenUnreachable(t *testing.T) {
	// 无人监听的端口
	source := NewERPSource("http://127.0.0.1:1", "sync", "secret", time.Second)
	_, err := source.FetchItems(context.Background(), models.ScopeAll)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
}
