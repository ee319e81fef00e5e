package http

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"songquiz/internal/auth"
	"songquiz/internal/cards"
	"songquiz/internal/core"
	"songquiz/internal/game"
	"songquiz/internal/host"
	"songquiz/pkg/fuzzy"
)

var errUnknownTrigger = errors.New("unknown refresh trigger")

const indexPage = `<!DOCTYPE html>
<html>
<head>
    <title>Song Quiz</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        .header { color: #333; }
        .endpoint { margin: 10px 0; }
        .endpoint a { text-decoration: none; color: #0066cc; }
        .endpoint a:hover { text-decoration: underline; }
    </style>
</head>
<body>
    <h1 class="header">🎵 Song Quiz</h1>
    <p>Guess the song, the artist or the year.</p>

    <h2>Start</h2>
    <div class="endpoint">🔑 <a href="/login">Login</a> - Connect your Spotify account</div>
    <div class="endpoint">🃏 <a href="/api/cards">Cards</a> - Printable cards of the loaded playlist</div>

    <h2>Service</h2>
    <div class="endpoint">📊 <a href="/metrics">Metrics</a> - Prometheus metrics</div>
    <div class="endpoint">💚 <a href="/healthz">Health</a> - Health check</div>
    <div class="endpoint">✅ <a href="/readyz">Ready</a> - Readiness check</div>
</body>
</html>`

type statusResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

type sessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	User          string `json:"user,omitempty"`
}

type refreshRequest struct {
	Trigger string `json:"trigger"`
}

type deviceRequest struct {
	DeviceID string `json:"deviceId"`
	Error    *struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

type scanRequest struct {
	Text string `json:"text"`
}

type scanResponse struct {
	URI string `json:"uri"`
}

type suggestRequest struct {
	Count int `json:"count"`
}

type suggestResponse struct {
	Categories []string `json:"categories"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok", Service: "songquiz"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ready", Service: "songquiz"})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(indexPage)); err != nil {
		s.logger.Debug("Failed to write index page", zap.Error(err))
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	url, err := s.host.BeginLogin(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if reason := query.Get("error"); reason != "" {
		s.logger.Warn("Authorization was denied", zap.String("reason", reason))
		s.writeError(w, r, core.ErrAuthExchange)
		return
	}

	if err := s.host.CompleteLogin(r.Context(), query.Get("code"), query.Get("state")); err != nil {
		s.writeError(w, r, err)
		return
	}
	// 303 drops the one-time code from the address bar
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.host.Logout(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.host.Reset(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if !s.host.Snapshot(r.Context()).Authenticated {
		writeJSON(w, http.StatusOK, sessionResponse{})
		return
	}

	user, err := s.host.CheckSession(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Authenticated: true, User: user})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}
	if req.Trigger == "" {
		req.Trigger = r.URL.Query().Get("trigger")
	}
	if !auth.IsTrigger(req.Trigger) {
		s.writeBadRequest(w, r, errUnknownTrigger)
		return
	}

	s.host.Refresh(r.Context(), req.Trigger)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	var req game.SetupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}

	snapshot, err := s.host.Setup(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, snapshot)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.host.ReloadPlaylist(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.host.Snapshot(r.Context()))
}

func (s *Server) handleStartRound(w http.ResponseWriter, r *http.Request) {
	round, err := s.host.StartRound(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}

func (s *Server) handleNextRound(w http.ResponseWriter, r *http.Request) {
	round, err := s.host.NextRound(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}

func (s *Server) handleCorrect(w http.ResponseWriter, r *http.Request) {
	judgment, err := s.host.MarkCorrect(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, judgment)
}

func (s *Server) handleWrong(w http.ResponseWriter, r *http.Request) {
	judgment, err := s.host.MarkWrong(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, judgment)
}

func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var guess fuzzy.Guess
	if err := decodeJSON(w, r, &guess); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}

	verdict, err := s.host.CheckGuess(guess)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verdict)
}

func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	var req deviceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}

	switch {
	case req.Error != nil:
		if err := s.host.ReportDeviceError(r.Context(), req.Error.Kind, req.Error.Message); err != nil {
			s.writeError(w, r, err)
			return
		}
	case req.DeviceID != "":
		s.host.AnnounceDevice(r.Context(), req.DeviceID)
	default:
		s.writeBadRequest(w, r, errors.New("device id or error required"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}

	uri, err := s.host.PlayScanned(r.Context(), req.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scanResponse{URI: uri})
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}

	categories, err := s.host.SuggestCategories(r.Context(), req.Count)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestResponse{Categories: categories})
}

func (s *Server) handleCards(w http.ResponseWriter, r *http.Request) {
	deck, err := s.host.Cards()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deck)
}

func (s *Server) handleCardQR(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		s.writeBadRequest(w, r, err)
		return
	}

	deck, err := s.host.Cards()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if index < 1 || index > len(deck) {
		http.NotFound(w, r)
		return
	}

	png, err := cards.QRCode(deck[index-1], cards.DefaultQRSize)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		s.logger.Debug("Failed to write QR code", zap.Error(err))
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	snapshot := s.host.Snapshot(r.Context())
	s.hub.ServeWS(w, r, host.Event{Type: host.EventState, Snapshot: &snapshot})
}
