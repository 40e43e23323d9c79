package blockscout

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tokens", r.URL.Path)
		assert.Equal(t, "ERC-20", r.URL.Query().Get("type"))
		assert.Equal(t, "pepe", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"items":[{"address":"0x25d887Ce7a35172C62FeBFD67a1856F20FaEbB00","name":"Pepe","symbol":"PEPE","decimals":18,"type":"ERC-20","holders":25977,"price":{"value":0.00001,"currency":"USD"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	items, err := c.Search(context.Background(), " pepe ")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "PEPE", items[0].Symbol)
	assert.Equal(t, 18, items[0].Decimals)
	assert.Equal(t, int64(25977), items[0].Holders)
	require.NotNil(t, items[0].Price)
	assert.Equal(t, "USD", items[0].Price.Currency)
}

func TestClient_PopularCapsAtTen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "by_volume", r.URL.Query().Get("filter"))
		var items []string
		for i := 0; i < 25; i++ {
			items = append(items, fmt.Sprintf(`{"address":"0x%040d","symbol":"T%d","decimals":18}`, i, i))
		}
		_, _ = w.Write([]byte(`{"items":[` + strings.Join(items, ",") + `]}`))
	}))
	defer srv.Close()

	items, err := NewClient(srv.URL).Popular(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 10)
	assert.Equal(t, "T0", items[0].Symbol)
}

func TestClient_EmptyItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	items, err := NewClient(srv.URL).Tokens(context.Background(), TokenQuery{})
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Search(context.Background(), "x")
	var herr *HTTPError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, http.StatusServiceUnavailable, herr.StatusCode)
	assert.Equal(t, "blockscout http 503", herr.Error())
}
