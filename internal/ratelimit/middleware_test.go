package ratelimit_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/boxcart/internal/ratelimit"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func sessionRequest(session string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/basket/items", nil)
	if session != "" {
		req.Header.Set("X-Basket-Session", session)
	}
	return req
}

func TestMiddlewareEnforcesLimitPerSession(t *testing.T) {
	store, err := ratelimit.NewStore(nil, "test")
	require.NoError(t, err)

	handler := ratelimit.Handler{
		Store:  store,
		Config: ratelimit.Config{Key: ratelimit.KeyBySession("X-Basket-Session"), Window: time.Minute, Max: 1},
	}.Middleware(okHandler())

	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, sessionRequest("a"))
	require.Equal(t, http.StatusOK, rr1.Code)
	require.Equal(t, "1", rr1.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "0", rr1.Header().Get("X-RateLimit-Remaining"))

	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, sessionRequest("a"))
	require.Equal(t, http.StatusTooManyRequests, rr2.Code)
	require.NotEmpty(t, rr2.Header().Get("Retry-After"))
	require.Contains(t, rr2.Body.String(), "RATE_LIMITED")

	rr3 := httptest.NewRecorder()
	handler.ServeHTTP(rr3, sessionRequest("b"))
	require.Equal(t, http.StatusOK, rr3.Code)
}

func TestMiddlewareRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	store, err := ratelimit.NewStore(client, "")
	require.NoError(t, err)
	handler := ratelimit.Handler{
		Store:  store,
		Config: ratelimit.Config{Key: func(*http.Request) string { return "static" }, Window: time.Minute, Max: 2},
	}.Middleware(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, sessionRequest(""))
		codes = append(codes, rr.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

type brokenStore struct{ limiter.Store }

func (brokenStore) Get(context.Context, string, limiter.Rate) (limiter.Context, error) {
	return limiter.Context{}, errors.New("store down")
}

func TestMiddlewareFailsOpen(t *testing.T) {
	called := false
	handler := ratelimit.Handler{
		Store:   brokenStore{},
		Config:  ratelimit.Config{Key: func(*http.Request) string { return "k" }, Window: time.Second, Max: 1},
		OnError: func(error) { called = true },
	}.Middleware(okHandler())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, sessionRequest(""))
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, called)
}

func TestMiddlewareDisabled(t *testing.T) {
	next := okHandler()
	handler := ratelimit.Handler{Config: ratelimit.Config{Max: 0}}.Middleware(next)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, sessionRequest(""))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestKeyBySessionFallsBackToAddress(t *testing.T) {
	key := ratelimit.KeyBySession("X-Basket-Session")
	req := sessionRequest("")
	req.RemoteAddr = "203.0.113.7:5555"
	require.Equal(t, "ip:203.0.113.7", key(req))
	require.Equal(t, "session:tab", key(sessionRequest("tab")))
}
