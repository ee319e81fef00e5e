package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"songquiz/internal/auth"
	"songquiz/internal/core"
	"songquiz/internal/flood"
	"songquiz/internal/game"
	"songquiz/internal/host"
	"songquiz/internal/i18n"
	"songquiz/internal/store"
)

type fakeSource struct {
	tracks int
}

func (f *fakeSource) PlaylistItems(_ context.Context, _ string, offset, limit int) (*core.PlaylistPage, error) {
	var items []core.TrackItem
	for i := offset; i < f.tracks && i < offset+limit; i++ {
		items = append(items, core.TrackItem{
			URI:         fmt.Sprintf("spotify:track:t%d", i),
			Name:        fmt.Sprintf("Song %d", i),
			Artists:     []string{"Artist"},
			ReleaseYear: "1999",
		})
	}
	return &core.PlaylistPage{Items: items, Fetched: len(items), Total: f.tracks}, nil
}

type fakeDevice struct {
	mu      sync.Mutex
	ready   bool
	playErr error
	played  []string
}

func (f *fakeDevice) Play(_ context.Context, uri string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playErr != nil {
		return f.playErr
	}
	f.played = append(f.played, uri)
	return nil
}

func (f *fakeDevice) Stop(_ context.Context) {}

func (f *fakeDevice) Announce(deviceID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ready = deviceID != ""
}

func (f *fakeDevice) IsReady() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

func (f *fakeDevice) ReportError(kind, message string) error {
	if kind == "authentication_error" {
		return fmt.Errorf("%s: %w", message, core.ErrSessionExpired)
	}
	return fmt.Errorf("%s: %w", message, core.ErrPlaybackFailed)
}

type fakeIdentity struct{}

func (fakeIdentity) CurrentUser(_ context.Context) (string, error) {
	return "DJ", nil
}

type fakeRefresher struct {
	mu       sync.Mutex
	triggers []string
}

func (f *fakeRefresher) Trigger(_ context.Context, trigger string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers = append(f.triggers, trigger)
}

type testServer struct {
	server    *Server
	handler   http.Handler
	state     *store.StateStore
	device    *fakeDevice
	refresher *fakeRefresher
	metrics   *Metrics
}

func newTestServer(t *testing.T, scanLimit int) *testServer {
	t.Helper()
	logger := zap.NewNop()

	ts := &testServer{
		state:     store.NewStateStore(store.NewMemoryKV()),
		device:    &fakeDevice{ready: true},
		refresher: &fakeRefresher{},
		metrics:   NewMetrics(),
	}

	manager := auth.NewManager(&core.SpotifyConfig{
		ClientID:    "client",
		RedirectURL: "http://127.0.0.1:8080/callback",
		AuthURL:     "https://accounts.example.com/authorize",
		TokenURL:    "https://accounts.example.com/api/token",
	}, ts.state, store.NewTabStore(store.NewMemoryKV()), logger)

	machine := game.NewMachine(ts.state, &fakeSource{tracks: 10}, ts.device,
		store.NewPlayedTracks(100, 0.01), logger)

	app := host.New(host.Components{
		Auth:      manager,
		Refresher: ts.refresher,
		Game:      machine,
		Device:    ts.device,
		Identity:  fakeIdentity{},
		Recorder:  ts.metrics,
	}, logger)

	hub := NewHub(logger, ts.metrics.SetViewsConnected)
	app.SetNotifier(hub)

	config := &core.ServerConfig{Host: "127.0.0.1", Port: 0, ReadTimeout: time.Second, WriteTimeout: time.Second}
	ts.server = NewServer(config, app, hub, ts.metrics, flood.New(scanLimit), "en", logger)
	ts.handler = ts.server.Handler()

	if err := ts.state.SaveSession(context.Background(), core.Session{AccessToken: "access", RefreshToken: "refresh"}); err != nil {
		t.Fatalf("SaveSession() error = %v", err)
	}

	return ts
}

func (ts *testServer) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}

	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "192.0.2.1:4711"
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) setup(t *testing.T) {
	t.Helper()
	rec := ts.do(http.MethodPost, "/api/setup",
		`{"playlistUrl":"https://open.spotify.com/playlist/pl1","categories":["Year"],"players":["Ann","Ben"],"winningScore":1}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/setup = %d: %s", rec.Code, rec.Body.String())
	}
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var value T
	if err := json.NewDecoder(rec.Body).Decode(&value); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return value
}

func TestCreateHTTPServer(t *testing.T) {
	config := &core.ServerConfig{
		Host:         "0.0.0.0",
		Port:         9090,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	mux := http.NewServeMux()
	server := createHTTPServer(config, mux)

	if server.Addr != "0.0.0.0:9090" {
		t.Errorf("createHTTPServer() Addr = %q, expected %q", server.Addr, "0.0.0.0:9090")
	}
	if server.Handler != mux {
		t.Errorf("createHTTPServer() Handler mismatch")
	}
	if server.ReadTimeout != config.ReadTimeout {
		t.Errorf("createHTTPServer() ReadTimeout = %v, expected %v", server.ReadTimeout, config.ReadTimeout)
	}
	if server.WriteTimeout != config.WriteTimeout {
		t.Errorf("createHTTPServer() WriteTimeout = %v, expected %v", server.WriteTimeout, config.WriteTimeout)
	}
}

func TestServiceEndpoints(t *testing.T) {
	ts := newTestServer(t, 10)

	tests := []struct {
		path        string
		contentType string
		contains    string
	}{
		{"/healthz", "application/json", `"status":"ok"`},
		{"/readyz", "application/json", `"status":"ready"`},
		{"/", "text/html", "<!DOCTYPE html>"},
		{"/metrics", "", "songquiz_views_connected"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := ts.do(http.MethodGet, tt.path, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("GET %s = %d", tt.path, rec.Code)
			}
			if tt.contentType != "" && rec.Header().Get("Content-Type") != tt.contentType {
				t.Errorf("GET %s Content-Type = %q, expected %q", tt.path, rec.Header().Get("Content-Type"), tt.contentType)
			}
			if !strings.Contains(rec.Body.String(), tt.contains) {
				t.Errorf("GET %s body does not contain %q", tt.path, tt.contains)
			}
		})
	}

	if rec := ts.do(http.MethodGet, "/unknown", ""); rec.Code != http.StatusNotFound {
		t.Errorf("GET /unknown = %d, expected 404", rec.Code)
	}
}

func TestLoginRedirectsToProvider(t *testing.T) {
	ts := newTestServer(t, 10)

	rec := ts.do(http.MethodGet, "/login", "")
	if rec.Code != http.StatusFound {
		t.Fatalf("GET /login = %d", rec.Code)
	}

	location := rec.Header().Get("Location")
	for _, want := range []string{"https://accounts.example.com/authorize", "code_challenge_method=S256", "client_id=client"} {
		if !strings.Contains(location, want) {
			t.Errorf("Location %q does not contain %q", location, want)
		}
	}
}

func TestCallbackDenied(t *testing.T) {
	ts := newTestServer(t, 10)

	rec := ts.do(http.MethodGet, "/callback?error=access_denied", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("GET /callback?error = %d, expected 401", rec.Code)
	}
}

func TestGameFlow(t *testing.T) {
	ts := newTestServer(t, 10)
	ts.setup(t)

	snapshot := decodeBody[core.Snapshot](t, ts.do(http.MethodGet, "/api/game", ""))
	if !snapshot.HasGame || !snapshot.PlaylistLoaded || snapshot.TracksRemaining != 10 {
		t.Fatalf("snapshot after setup = %+v", snapshot)
	}

	rec := ts.do(http.MethodPost, "/api/round/start", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/round/start = %d: %s", rec.Code, rec.Body.String())
	}
	round := decodeBody[core.Round](t, rec)
	if round.Player != "Ann" || round.Number != 1 {
		t.Errorf("round = %+v", round)
	}

	rec = ts.do(http.MethodPost, "/api/round/guess", `{"title":"song 0","artist":"artist"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("POST /api/round/guess = %d: %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(http.MethodPost, "/api/round/correct", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/round/correct = %d: %s", rec.Code, rec.Body.String())
	}
	judgment := decodeBody[core.Judgment](t, rec)
	if !judgment.GameOver || judgment.Winner == nil || judgment.Winner.Player != "Ann" {
		t.Errorf("judgment = %+v", judgment)
	}

	rec = ts.do(http.MethodPost, "/api/round/next", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("next after game over = %d, expected 409", rec.Code)
	}
	body := decodeBody[ErrorResponse](t, rec)
	if body.Error != "game.over" {
		t.Errorf("error = %q, expected game.over", body.Error)
	}
}

func TestSetupValidation(t *testing.T) {
	ts := newTestServer(t, 10)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"bad url", `{"playlistUrl":"nope","players":["Ann"],"winningScore":3}`, http.StatusBadRequest, "playlist.invalid_url"},
		{"no players", `{"playlistUrl":"https://open.spotify.com/playlist/pl1","winningScore":3}`, http.StatusBadRequest, "setup.no_players"},
		{"unknown field", `{"playlist":"x"}`, http.StatusBadRequest, "bad_request"},
		{"malformed", `{`, http.StatusBadRequest, "bad_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(http.MethodPost, "/api/setup", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, expected %d", rec.Code, tt.status)
			}
			if body := decodeBody[ErrorResponse](t, rec); body.Error != tt.code {
				t.Errorf("error = %q, expected %q", body.Error, tt.code)
			}
		})
	}
}

func TestErrorsAreLocalized(t *testing.T) {
	ts := newTestServer(t, 10)

	rec := ts.do(http.MethodPost, "/api/round/correct", "", "Accept-Language", "de-CH,de;q=0.9")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, expected 409", rec.Code)
	}

	body := decodeBody[ErrorResponse](t, rec)
	want := i18n.NewLocalizer(i18n.GermanMessages).T("error.game.none")
	if body.Message != want {
		t.Errorf("message = %q, expected %q", body.Message, want)
	}
}

func TestSessionExpiredReturnsUnauthorized(t *testing.T) {
	ts := newTestServer(t, 10)
	ts.setup(t)

	ts.device.playErr = core.ErrSessionExpired

	rec := ts.do(http.MethodPost, "/api/round/start", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, expected 401", rec.Code)
	}

	session := decodeBody[sessionResponse](t, ts.do(http.MethodGet, "/api/session", ""))
	if session.Authenticated {
		t.Error("session must be gone after a 401")
	}
}

func TestPlaybackFailureIsBadGateway(t *testing.T) {
	ts := newTestServer(t, 10)
	ts.setup(t)

	ts.device.playErr = fmt.Errorf("%w: no active device", core.ErrPlaybackFailed)

	if rec := ts.do(http.MethodPost, "/api/round/start", ""); rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, expected 502", rec.Code)
	}
}

func TestSession(t *testing.T) {
	ts := newTestServer(t, 10)

	session := decodeBody[sessionResponse](t, ts.do(http.MethodGet, "/api/session", ""))
	if !session.Authenticated || session.User != "DJ" {
		t.Errorf("session = %+v", session)
	}

	if rec := ts.do(http.MethodPost, "/logout", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("POST /logout = %d", rec.Code)
	}

	session = decodeBody[sessionResponse](t, ts.do(http.MethodGet, "/api/session", ""))
	if session.Authenticated {
		t.Errorf("session after logout = %+v", session)
	}
}

func TestRefresh(t *testing.T) {
	ts := newTestServer(t, 10)

	if rec := ts.do(http.MethodPost, "/api/session/refresh", `{"trigger":"visible"}`); rec.Code != http.StatusAccepted {
		t.Errorf("valid trigger = %d, expected 202", rec.Code)
	}
	if rec := ts.do(http.MethodPost, "/api/session/refresh", `{"trigger":"whenever"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown trigger = %d, expected 400", rec.Code)
	}

	if len(ts.refresher.triggers) != 1 || ts.refresher.triggers[0] != auth.TriggerVisible {
		t.Errorf("triggers = %v", ts.refresher.triggers)
	}
}

func TestScanIsRateLimited(t *testing.T) {
	ts := newTestServer(t, 2)

	body := `{"text":"https://open.spotify.com/track/abc123"}`
	for i := 0; i < 2; i++ {
		rec := ts.do(http.MethodPost, "/api/scan", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("scan %d = %d: %s", i, rec.Code, rec.Body.String())
		}
		if got := decodeBody[scanResponse](t, rec); got.URI != "spotify:track:abc123" {
			t.Errorf("uri = %q", got.URI)
		}
	}

	rec := ts.do(http.MethodPost, "/api/scan", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("third scan = %d, expected 429", rec.Code)
	}

	if rec := ts.do(http.MethodPost, "/api/scan", `{"text":"hello"}`); rec.Code != http.StatusTooManyRequests {
		t.Errorf("limit applies per client, got %d", rec.Code)
	}
}

func TestScanInvalidLink(t *testing.T) {
	ts := newTestServer(t, 10)

	rec := ts.do(http.MethodPost, "/api/scan", `{"text":"hello"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, expected 400", rec.Code)
	}
	if body := decodeBody[ErrorResponse](t, rec); body.Error != "scan.invalid_link" {
		t.Errorf("error = %q", body.Error)
	}
}

func TestDevice(t *testing.T) {
	ts := newTestServer(t, 10)
	ts.device.ready = false

	if rec := ts.do(http.MethodPost, "/api/device", `{"deviceId":"dev-1"}`); rec.Code != http.StatusNoContent {
		t.Errorf("announce = %d", rec.Code)
	}
	if !ts.device.IsReady() {
		t.Error("device should be ready after announce")
	}

	if rec := ts.do(http.MethodPost, "/api/device", `{"error":{"kind":"account_error","message":"premium"}}`); rec.Code != http.StatusNoContent {
		t.Errorf("account error = %d, expected 204", rec.Code)
	}
	if rec := ts.do(http.MethodPost, "/api/device", `{"error":{"kind":"authentication_error","message":"expired"}}`); rec.Code != http.StatusUnauthorized {
		t.Errorf("authentication error = %d, expected 401", rec.Code)
	}
	if rec := ts.do(http.MethodPost, "/api/device", `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("empty device request = %d, expected 400", rec.Code)
	}
}

func TestSuggestWithoutProvider(t *testing.T) {
	ts := newTestServer(t, 10)

	if rec := ts.do(http.MethodPost, "/api/categories/suggest", `{"count":3}`); rec.Code != http.StatusConflict {
		t.Errorf("suggest without playlist = %d, expected 409", rec.Code)
	}
}

func TestCards(t *testing.T) {
	ts := newTestServer(t, 10)

	if rec := ts.do(http.MethodGet, "/api/cards", ""); rec.Code != http.StatusConflict {
		t.Errorf("cards without playlist = %d, expected 409", rec.Code)
	}

	ts.setup(t)

	rec := ts.do(http.MethodGet, "/api/cards", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/cards = %d", rec.Code)
	}
	var deck []struct {
		Index int    `json:"index"`
		Link  string `json:"link"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&deck); err != nil {
		t.Fatalf("decode cards: %v", err)
	}
	if len(deck) != 10 || deck[0].Index != 1 || deck[0].Link != "https://open.spotify.com/track/t0" {
		t.Errorf("deck = %+v", deck)
	}

	rec = ts.do(http.MethodGet, "/api/cards/1/qr.png", "")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("GET qr = %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("QR code is not a PNG")
	}

	if rec := ts.do(http.MethodGet, "/api/cards/11/qr.png", ""); rec.Code != http.StatusNotFound {
		t.Errorf("out of range card = %d, expected 404", rec.Code)
	}
	if rec := ts.do(http.MethodGet, "/api/cards/x/qr.png", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("non numeric card = %d, expected 400", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: %w", core.ErrSessionExpired, core.ErrNetwork), http.StatusUnauthorized},
		{fmt.Errorf("%w: %w", core.ErrNetwork, core.ErrInvalidPlaylistURL), http.StatusBadGateway},
		{core.ErrEmptyPlaylist, http.StatusBadRequest},
		{core.ErrPlaylistExhausted, http.StatusConflict},
		{core.ErrLLMDisabled, http.StatusNotImplemented},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.status {
			t.Errorf("statusFor(%v) = %d, expected %d", tt.err, got, tt.status)
		}
	}
}
