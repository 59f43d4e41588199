package panel

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/najahiiii/marzban-exporter/internal/config"
	"github.com/najahiiii/marzban-exporter/internal/model"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"log/slog"
)

const tokenPath = "/api/admin/token"

// Client talks to the Marzban admin API. It logs in lazily, caches the
// bearer token and logs in again once when a request comes back 401.
type Client struct {
	baseURL  string
	username string
	password string

	client  *http.Client
	log     *slog.Logger
	token   tokenCell
	logins  singleflight.Group
	limiter *rate.Limiter
}

func NewClient(cfg *config.Config, log *slog.Logger) *Client {
	tr := &http.Transport{
		DialContext: (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSClientConfig: &tls.Config{ //nolint:gosec
			InsecureSkipVerify: cfg.Panel.TLSInsecure,
			MinVersion:         tls.VersionTLS12,
		},
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	timeout := cfg.HTTPTimeout()
	if timeout <= 0 {
		timeout = time.Duration(config.DefaultHTTPTimeoutSec) * time.Second
	}
	interval := cfg.LoginInterval()
	if interval <= 0 {
		interval = time.Duration(config.DefaultLoginIntervalSec) * time.Second
	}
	burst := cfg.Auth.LoginBurst
	if burst <= 0 {
		burst = config.DefaultLoginBurst
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.Panel.BaseURL, "/"),
		username: cfg.Panel.Username,
		password: cfg.Panel.Password,
		client:   &http.Client{Transport: tr, Timeout: timeout},
		log:      log,
		limiter:  rate.NewLimiter(rate.Every(interval), burst),
	}
}

// Authenticate logs in and stores the new token, replacing any previous one.
// Concurrent callers share a single login request. The shared login is
// detached from the caller that started it and bounded by the HTTP timeout;
// each caller stops waiting when its own ctx is done.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	ch := c.logins.DoChan("login", func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.client.Timeout)
		defer cancel()
		return c.login(lctx)
	})

	select {
	case <-ctx.Done():
		return "", &TransportError{URL: c.baseURL + tokenPath, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			c.log.Debug("joined in-flight login")
		}
		return res.Val.(string), nil
	}
}

func (c *Client) login(ctx context.Context) (string, error) {
	u := c.baseURL + tokenPath
	if err := c.limiter.Wait(ctx); err != nil {
		return "", &TransportError{URL: u, Err: fmt.Errorf("login rate limit: %w", err)}
	}
	c.log.Info("fetching access token", "url", u)

	form := url.Values{}
	form.Set("username", c.username)
	form.Set("password", c.password)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &TransportError{URL: u, Err: err}
	}
	defer drain(resp.Body)

	if resp.StatusCode/100 != 2 {
		body := readExcerpt(resp.Body)
		c.log.Error("login rejected", "url", u, "status", resp.StatusCode, "body", body)
		return "", &AuthenticationFailedError{URL: u, StatusCode: resp.StatusCode, Body: body}
	}

	var tr model.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", &MalformedResponseError{URL: u, Err: err}
	}
	if tr.AccessToken == "" {
		return "", &MalformedResponseError{URL: u, Err: errors.New("empty access_token")}
	}
	c.token.Set(tr.AccessToken)
	return tr.AccessToken, nil
}

func (c *Client) ensureToken(ctx context.Context) (string, error) {
	if tok, ok := c.token.Get(); ok {
		return tok, nil
	}
	return c.Authenticate(ctx)
}

// getJSON performs an authenticated GET of path and decodes the body into
// dst. A 401 triggers exactly one fresh login and one retry.
func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	u := c.baseURL + path
	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}

	c.log.Debug("GET", "url", u)
	resp, err := c.get(ctx, u, token)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp.Body)
		c.log.Warn("token rejected, logging in again", "url", u)
		token, err = c.Authenticate(ctx)
		if err != nil {
			return err
		}
		resp, err = c.get(ctx, u, token)
		if err != nil {
			return err
		}
	}
	defer drain(resp.Body)

	if resp.StatusCode/100 != 2 {
		body := readExcerpt(resp.Body)
		c.log.Error("request failed", "url", u, "status", resp.StatusCode, "body", body)
		return &RequestFailedError{URL: u, StatusCode: resp.StatusCode, Body: body}
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		c.log.Error("decode response", "url", u, "err", err)
		return &MalformedResponseError{URL: u, Err: err}
	}
	return nil
}

func (c *Client) get(ctx context.Context, u, token string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: u, Err: err}
	}
	return resp, nil
}

func (c *Client) Nodes(ctx context.Context) ([]model.Node, error) {
	var nodes []model.Node
	if err := c.getJSON(ctx, "/api/nodes", &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (c *Client) NodeUsages(ctx context.Context) ([]model.NodeUsage, error) {
	var resp model.NodeUsageResponse
	if err := c.getJSON(ctx, "/api/nodes/usage", &resp); err != nil {
		return nil, err
	}
	return resp.Usages, nil
}

func (c *Client) System(ctx context.Context) (*model.SystemStats, error) {
	var s model.SystemStats
	if err := c.getJSON(ctx, "/api/system", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) Core(ctx context.Context) (*model.CoreStats, error) {
	var s model.CoreStats
	if err := c.getJSON(ctx, "/api/core", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) Users(ctx context.Context) ([]model.User, error) {
	var resp model.UsersResponse
	if err := c.getJSON(ctx, "/api/users", &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// readExcerpt keeps the first maxBodyExcerpt bytes and discards the rest so
// the connection can be reused.
func readExcerpt(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxBodyExcerpt))
	_, _ = io.Copy(io.Discard, io.LimitReader(r, maxDrain))
	return string(b)
}

// maxDrain bounds how much of an unwanted body is read before closing.
const maxDrain = 64 << 10

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxDrain))
	_ = body.Close()
}
