// Package paneltest provides an in-process fake of the Marzban admin API.
package paneltest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/najahiiii/marzban-exporter/internal/config"
)

const (
	Username = "admin"
	Password = "secret"
)

const (
	NodesBody      = `[{"id":1,"name":"nl-1","address":"10.0.0.1","port":62050,"api_port":62051,"usage_coefficient":1.5,"xray_version":"1.8.4","status":"connected","message":null}]`
	NodeUsagesBody = `{"usages":[{"node_id":null,"node_name":"Master","uplink":100,"downlink":200},{"node_id":1,"node_name":"nl-1","uplink":300,"downlink":400}]}`
	SystemBody     = `{"version":"0.8.4","mem_total":1000,"mem_used":400,"cpu_cores":4,"cpu_usage":12.5,"total_user":10,"online_users":3,"users_active":7,"users_on_hold":0,"users_disabled":1,"users_expired":1,"users_limited":1,"incoming_bandwidth":5000,"outgoing_bandwidth":6000,"incoming_bandwidth_speed":50,"outgoing_bandwidth_speed":60}`
	CoreBody       = `{"version":"1.8.4","started":true,"logs_websocket":"/api/core/logs"}`
	UsersBody      = `{"users":[{"username":"alice","status":"active","used_traffic":4096},{"username":"bob","status":"limited","used_traffic":8192}],"total":2}`
)

// Server answers the login and the five resource endpoints. Tokens are
// issued as "token-N" where N counts logins.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	bodies      map[string]string
	statuses    map[string]int
	loginStatus int
	loginDelay  time.Duration
	reject      func(token string) bool
	logins      int
	gets        map[string]int
}

func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		bodies: map[string]string{
			"/api/nodes":       NodesBody,
			"/api/nodes/usage": NodeUsagesBody,
			"/api/system":      SystemBody,
			"/api/core":        CoreBody,
			"/api/users":       UsersBody,
		},
		statuses: map[string]int{},
		gets:     map[string]int{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Config returns exporter settings pointing at the fake.
func (s *Server) Config() *config.Config {
	cfg := &config.Config{}
	cfg.Panel.BaseURL = s.URL
	cfg.Panel.Username = Username
	cfg.Panel.Password = Password
	cfg.Panel.TimeoutSec = 2
	cfg.Auth.LoginBurst = 10
	cfg.Auth.LoginIntervalSec = 1
	cfg.Intervals.UpdateSec = 60
	return cfg
}

func (s *Server) SetBody(path, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bodies[path] = body
}

// SetStatus forces path to answer with code. Zero restores normal answers.
func (s *Server) SetStatus(path string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[path] = code
}

func (s *Server) SetLoginStatus(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginStatus = code
}

func (s *Server) SetLoginDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginDelay = d
}

// RejectTokens makes resource endpoints answer 401 when fn returns true.
func (s *Server) RejectTokens(fn func(token string) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reject = fn
}

func (s *Server) Logins() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logins
}

// Gets returns the number of GETs served for path, or for every path when
// path is empty.
func (s *Server) Gets(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if path != "" {
		return s.gets[path]
	}
	total := 0
	for _, n := range s.gets {
		total += n
	}
	return total
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/admin/token" {
		s.handleLogin(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.Lock()
	s.gets[r.URL.Path]++
	body, ok := s.bodies[r.URL.Path]
	status := s.statuses[r.URL.Path]
	reject := s.reject
	s.mu.Unlock()

	token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !found || token == "" || (reject != nil && reject(token)) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Could not validate credentials"}`))
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	if status != 0 {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"detail":"forced failure"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.logins++
	n := s.logins
	status := s.loginStatus
	delay := s.loginDelay
	s.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if status != 0 {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"detail":"Incorrect username or password"}`))
		return
	}
	if r.PostForm.Get("username") != Username || r.PostForm.Get("password") != Password {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Incorrect username or password"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"access_token": fmt.Sprintf("token-%d", n),
		"token_type":   "bearer",
	})
}
