package panel

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/najahiiii/marzban-exporter/internal/config"
	"github.com/najahiiii/marzban-exporter/internal/panel/paneltest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestClientFetchesAllResources(t *testing.T) {
	srv := paneltest.New(t)
	client := NewClient(srv.Config(), testLogger())
	ctx := testContext(t)

	nodes, err := client.Nodes(ctx)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "nl-1", nodes[0].Name)
	assert.Equal(t, 62051, nodes[0].APIPort)
	assert.Equal(t, "1.8.4", nodes[0].XrayVersion)

	usages, err := client.NodeUsages(ctx)
	require.NoError(t, err)
	require.Len(t, usages, 2)
	assert.Equal(t, "Master", usages[0].NodeName)
	assert.EqualValues(t, 400, usages[1].Downlink)

	sys, err := client.System(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1000, sys.MemTotal)
	assert.Equal(t, 12.5, sys.CPUUsage)

	core, err := client.Core(ctx)
	require.NoError(t, err)
	assert.True(t, core.Started)
	assert.Equal(t, "1.8.4", core.Version)

	users, err := client.Users(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "limited", users[1].Status)

	assert.Equal(t, 1, srv.Logins(), "token should be cached between fetches")
	assert.Equal(t, 5, srv.Gets(""))
}

func TestClientReauthenticatesOnceOn401(t *testing.T) {
	srv := paneltest.New(t)
	srv.RejectTokens(func(token string) bool { return token == "token-1" })
	client := NewClient(srv.Config(), testLogger())

	nodes, err := client.Nodes(testContext(t))
	require.NoError(t, err)
	assert.Len(t, nodes, 1)

	assert.Equal(t, 2, srv.Gets("/api/nodes"))
	assert.Equal(t, 2, srv.Logins(), "initial login plus one re-authentication")

	tok, ok := client.token.Get()
	require.True(t, ok)
	assert.Equal(t, "token-2", tok)
}

func TestClientExpiredCachedToken(t *testing.T) {
	srv := paneltest.New(t)
	client := NewClient(srv.Config(), testLogger())
	ctx := testContext(t)

	_, err := client.Core(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, srv.Logins())

	// token-1 expires upstream.
	srv.RejectTokens(func(token string) bool { return token == "token-1" })

	_, err = client.Core(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, srv.Logins())
	assert.Equal(t, 3, srv.Gets("/api/core"))

	_, err = client.Core(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, srv.Logins(), "refreshed token is reused")
}

func TestClientDoesNotRetryTwice(t *testing.T) {
	srv := paneltest.New(t)
	srv.RejectTokens(func(string) bool { return true })
	client := NewClient(srv.Config(), testLogger())

	_, err := client.Users(testContext(t))
	var reqErr *RequestFailedError
	require.True(t, errors.As(err, &reqErr), "expected RequestFailedError, got %v", err)
	assert.Equal(t, http.StatusUnauthorized, reqErr.StatusCode)
	assert.Contains(t, reqErr.Body, "Could not validate credentials")
	assert.Contains(t, reqErr.URL, "/api/users")

	assert.Equal(t, 2, srv.Gets("/api/users"))
	assert.Equal(t, 2, srv.Logins())
}

func TestClientAuthenticationFailed(t *testing.T) {
	srv := paneltest.New(t)
	srv.SetLoginStatus(http.StatusUnauthorized)
	client := NewClient(srv.Config(), testLogger())

	_, err := client.System(testContext(t))
	var authErr *AuthenticationFailedError
	require.True(t, errors.As(err, &authErr), "expected AuthenticationFailedError, got %v", err)
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
	assert.Contains(t, authErr.URL, "/api/admin/token")
	assert.Contains(t, authErr.Body, "Incorrect username or password")
	assert.Zero(t, srv.Gets(""), "no resource request without a token")

	_, ok := client.token.Get()
	assert.False(t, ok)
}

func TestClientWrongPassword(t *testing.T) {
	srv := paneltest.New(t)
	cfg := srv.Config()
	cfg.Panel.Password = "wrong"
	client := NewClient(cfg, testLogger())

	_, err := client.Authenticate(testContext(t))
	var authErr *AuthenticationFailedError
	require.True(t, errors.As(err, &authErr))
}

func TestClientRequestFailed(t *testing.T) {
	srv := paneltest.New(t)
	srv.SetStatus("/api/system", http.StatusInternalServerError)
	client := NewClient(srv.Config(), testLogger())

	_, err := client.System(testContext(t))
	var reqErr *RequestFailedError
	require.True(t, errors.As(err, &reqErr), "expected RequestFailedError, got %v", err)
	assert.Equal(t, http.StatusInternalServerError, reqErr.StatusCode)
	assert.Equal(t, 1, srv.Gets("/api/system"), "only 401 is retried")
}

func TestClientMalformedResponse(t *testing.T) {
	srv := paneltest.New(t)
	srv.SetBody("/api/system", "<html>maintenance</html>")
	client := NewClient(srv.Config(), testLogger())

	_, err := client.System(testContext(t))
	var badErr *MalformedResponseError
	require.True(t, errors.As(err, &badErr), "expected MalformedResponseError, got %v", err)
	assert.Contains(t, badErr.URL, "/api/system")
}

func TestClientMalformedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"token_type":"bearer"}`))
	}))
	defer srv.Close()

	cfg := &config.Config{}
	cfg.Panel.BaseURL = srv.URL
	cfg.Panel.Username = "admin"
	cfg.Panel.Password = "secret"
	client := NewClient(cfg, testLogger())

	_, err := client.Authenticate(testContext(t))
	var badErr *MalformedResponseError
	require.True(t, errors.As(err, &badErr), "expected MalformedResponseError, got %v", err)
}

func TestClientTransportError(t *testing.T) {
	srv := paneltest.New(t)
	cfg := srv.Config()
	srv.Close()
	client := NewClient(cfg, testLogger())

	_, err := client.Nodes(testContext(t))
	var trErr *TransportError
	require.True(t, errors.As(err, &trErr), "expected TransportError, got %v", err)
	assert.Contains(t, trErr.URL, "/api/admin/token")
}

func TestClientTimeoutIsTransportError(t *testing.T) {
	srv := paneltest.New(t)
	srv.SetLoginDelay(300 * time.Millisecond)
	client := NewClient(srv.Config(), testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Nodes(ctx)
	var trErr *TransportError
	require.True(t, errors.As(err, &trErr), "expected TransportError, got %v", err)
}

func TestClientConcurrentFetchesShareLogin(t *testing.T) {
	srv := paneltest.New(t)
	srv.SetLoginDelay(100 * time.Millisecond)
	client := NewClient(srv.Config(), testLogger())
	ctx := testContext(t)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Core(ctx)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.LessOrEqual(t, srv.Logins(), 2, "concurrent first fetches should collapse into one login")
	assert.Equal(t, 10, srv.Gets("/api/core"))
}

func TestClientLoginRateLimit(t *testing.T) {
	srv := paneltest.New(t)
	cfg := srv.Config()
	cfg.Auth.LoginBurst = 1
	cfg.Auth.LoginIntervalSec = 60
	client := NewClient(cfg, testLogger())

	_, err := client.Authenticate(testContext(t))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = client.Authenticate(ctx)
	var trErr *TransportError
	require.True(t, errors.As(err, &trErr), "expected rate-limited login to fail, got %v", err)
	assert.Equal(t, 1, srv.Logins())
}

func TestClientTrimsBaseURL(t *testing.T) {
	srv := paneltest.New(t)
	cfg := srv.Config()
	cfg.Panel.BaseURL = srv.URL + "/"
	client := NewClient(cfg, testLogger())

	_, err := client.Core(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, 1, srv.Gets("/api/core"))
}

func TestClientCancelledCallerDoesNotAbortSharedLogin(t *testing.T) {
	srv := paneltest.New(t)
	srv.SetLoginDelay(200 * time.Millisecond)
	client := NewClient(srv.Config(), testLogger())

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := client.Authenticate(firstCtx)
		firstErr <- err
	}()

	// Let the first caller start the login before the second one joins.
	time.Sleep(50 * time.Millisecond)
	secondTok := make(chan string, 1)
	secondErr := make(chan error, 1)
	go func() {
		tok, err := client.Authenticate(testContext(t))
		secondTok <- tok
		secondErr <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancelFirst()

	err := <-firstErr
	require.ErrorIs(t, err, context.Canceled)
	var trErr *TransportError
	require.ErrorAs(t, err, &trErr)

	require.NoError(t, <-secondErr)
	assert.Equal(t, "token-1", <-secondTok)
	assert.Equal(t, 1, srv.Logins())

	// The detached login still stored its token.
	_, err = client.Core(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, 1, srv.Logins())
}

func TestClientReusesConnectionAfterLargeErrorBody(t *testing.T) {
	big := strings.Repeat("x", 8*maxBodyExcerpt)
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/admin/token" {
			_, _ = w.Write([]byte(`{"access_token":"t","token_type":"bearer"}`))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(big))
	}))
	var conns atomic.Int32
	srv.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		if state == http.StateNew {
			conns.Add(1)
		}
	}
	srv.Start()
	defer srv.Close()

	cfg := &config.Config{}
	cfg.Panel.BaseURL = srv.URL
	cfg.Panel.Username = "admin"
	cfg.Panel.Password = "secret"
	client := NewClient(cfg, testLogger())

	for i := 0; i < 3; i++ {
		_, err := client.Users(testContext(t))
		var reqErr *RequestFailedError
		require.ErrorAs(t, err, &reqErr)
		assert.Len(t, reqErr.Body, maxBodyExcerpt)
	}
	assert.Equal(t, int32(1), conns.Load(), "failed requests should keep the connection alive")
}
