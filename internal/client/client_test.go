package client

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"memberdesk/internal/cache"
	"memberdesk/internal/domain"
	jwttoken "memberdesk/internal/jwt_token"
	"memberdesk/internal/store"
	httptransport "memberdesk/internal/transport/http"
	dErrors "memberdesk/pkg/domain-errors"
)

func newTestServer(t *testing.T, opts ...httptransport.Option) (*httptest.Server, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	require.NoError(t, store.Seed(context.Background(), st, "letmein"))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := jwttoken.NewJWTService("test-signing-key", "memberdesk-test")
	h := httptransport.NewHandler(st, tokens, logger, opts...)
	srv := httptest.NewServer(httptransport.NewRouter(h))
	t.Cleanup(srv.Close)
	return srv, st
}

func raw(values ...string) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(values))
	for _, v := range values {
		out = append(out, json.RawMessage(v))
	}
	return out
}

func TestClientRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)
	c := New(srv.URL)
	ctx := context.Background()

	require.NoError(t, c.Health(ctx))

	require.NoError(t, c.Put(ctx, domain.Members, raw(`{"id":"m1"}`, `{"id":"m2"}`)))
	members, err := c.Get(ctx, domain.Members)
	require.NoError(t, err)
	require.Len(t, members, 2)

	all, err := c.Bootstrap(ctx)
	require.NoError(t, err)
	require.Len(t, all, len(domain.AllCollections()))
	require.Len(t, all[domain.Members], 2)
	require.Len(t, all[domain.Accounts], 1)

	require.NoError(t, c.Clear(ctx, domain.Members))
	members, err = c.Get(ctx, domain.Members)
	require.NoError(t, err)
	require.Empty(t, members)
}

func TestClientImportBulk(t *testing.T) {
	srv, st := newTestServer(t)
	c := New(srv.URL)
	ctx := context.Background()

	require.NoError(t, c.ImportBulk(ctx, map[domain.CollectionName][]json.RawMessage{
		domain.Members:   raw(`{"id":"m1"}`),
		domain.Recharges: raw(`{"id":"r1"}`, `{"id":"r2"}`),
	}))

	recharges, err := st.Get(ctx, domain.Recharges)
	require.NoError(t, err)
	require.Len(t, recharges, 2)
}

func TestClientMapsServerErrorsToConnectivity(t *testing.T) {
	srv, _ := newTestServer(t)
	c := New(srv.URL)

	_, err := c.Get(context.Background(), "sessions")
	require.Error(t, err)
	require.True(t, dErrors.Is(err, dErrors.CodeConnectivity), "got %v", err)
}

func TestClientUnreachableServer(t *testing.T) {
	srv, _ := newTestServer(t)
	baseURL := srv.URL
	srv.Close()

	c := New(baseURL, WithTimeout(time.Second))
	err := c.Health(context.Background())
	require.Error(t, err)
	require.True(t, dErrors.Is(err, dErrors.CodeConnectivity), "got %v", err)

	_, err = c.Bootstrap(context.Background())
	require.True(t, dErrors.Is(err, dErrors.CodeConnectivity), "got %v", err)
}

func TestClientSendsBearerToken(t *testing.T) {
	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, WithToken("abc123"))
	require.NoError(t, c.Health(context.Background()))
	require.Equal(t, "Bearer abc123", seen)
}

// End to end: the cache connected through the HTTP client, backed by the
// real router and store.
func TestCacheOverHTTP(t *testing.T) {
	srv, st := newTestServer(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := cache.New(New(srv.URL), logger, cache.WithRetry(2, 10*time.Millisecond))
	ctx := context.Background()

	require.NoError(t, c.Connect(ctx, false))
	require.Equal(t, cache.Connected, c.State())

	accounts, err := c.Read(domain.Accounts)
	require.NoError(t, err)
	require.Len(t, accounts, 1)

	require.NoError(t, c.Write(domain.Members, raw(`{"id":"m1","name":"Ada"}`)))
	require.NoError(t, c.Drain(ctx))

	stored, err := st.Get(ctx, domain.Members)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.JSONEq(t, `{"id":"m1","name":"Ada"}`, string(stored[0]))
}
