package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nodecurio/curator/internal/config"
	curatorerrors "github.com/nodecurio/curator/internal/errors"
)

func TestLimiter_AllowsWithinBurstThenBlocks(t *testing.T) {
	l := newLimiter(1, 2)
	assert.True(t, l.Allow("client-a"))
	assert.True(t, l.Allow("client-a"))
	assert.False(t, l.Allow("client-a"))
}

func TestLimiter_TracksClientsIndependently(t *testing.T) {
	l := newLimiter(1, 1)
	assert.True(t, l.Allow("client-a"))
	assert.True(t, l.Allow("client-b"))
	assert.False(t, l.Allow("client-a"))
}

func TestManager_ImportScopeAlsoConsumesGlobalBucket(t *testing.T) {
	m := New(config.RateLimitConfig{GlobalRPS: 1, GlobalBurst: 1, ImportRPS: 100, ImportBurst: 100, SettingsRPS: 1, SettingsBurst: 1})
	assert.True(t, m.Allow(ScopeImport, "client-a"))
	assert.False(t, m.Allow(ScopeImport, "client-a"))
}

func TestManager_SeparateScopesHaveSeparateBudgets(t *testing.T) {
	m := New(config.RateLimitConfig{GlobalRPS: 100, GlobalBurst: 100, ImportRPS: 1, ImportBurst: 1, SettingsRPS: 1, SettingsBurst: 1})
	assert.True(t, m.Allow(ScopeImport, "client-a"))
	assert.False(t, m.Allow(ScopeImport, "client-a"))
	assert.True(t, m.Allow(ScopeSettings, "client-a"))
}

func TestMiddleware_RejectsOverLimitWithRateLimitExceeded(t *testing.T) {
	m := New(config.RateLimitConfig{GlobalRPS: 100, GlobalBurst: 100, ImportRPS: 1, ImportBurst: 1, SettingsRPS: 1, SettingsBurst: 1})
	var gotErr error
	errWriter := func(w http.ResponseWriter, err error) {
		gotErr = err
		w.WriteHeader(http.StatusTooManyRequests)
	}
	handler := m.Middleware(ScopeImport, errWriter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/import", nil)
	req.RemoteAddr = "10.0.0.1:5555"

	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, req)
	assert.Equal(t, http.StatusOK, rec1.Code)

	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusTooManyRequests, rec2.Code)
	assert.Equal(t, curatorerrors.KindRateLimitExceeded, curatorerrors.KindOf(gotErr))
}

func TestClientID_PrefersAuthenticatedSubject(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Curator-Subject", "user-42")
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "user-42", ClientID(req))
}

func TestClientID_FallsBackToForwardedForThenRemoteAddr(t *testing.T) {
	fwd := httptest.NewRequest(http.MethodGet, "/", nil)
	fwd.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	assert.Equal(t, "203.0.113.5", ClientID(fwd))

	plain := httptest.NewRequest(http.MethodGet, "/", nil)
	plain.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", ClientID(plain))
}
