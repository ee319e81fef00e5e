package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"songquiz/internal/core"
	"songquiz/internal/i18n"
)

const maxBodyBytes = 64 << 10

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var statusRules = []struct {
	status int
	errs   []error
}{
	{http.StatusUnauthorized, []error{
		core.ErrSessionExpired, core.ErrNotAuthenticated, core.ErrVerifierMissing,
		core.ErrStateMismatch, core.ErrAuthExchange,
	}},
	{http.StatusBadGateway, []error{core.ErrNetwork, core.ErrPlaybackFailed}},
	{http.StatusBadRequest, []error{
		core.ErrInvalidPlaylistURL, core.ErrEmptyPlaylist, core.ErrNoPlayers,
		core.ErrInvalidWinningScore, core.ErrInvalidTrackLink,
	}},
	{http.StatusConflict, []error{
		core.ErrNoGame, core.ErrNoActiveRound, core.ErrRoundInProgress, core.ErrGameOver,
		core.ErrPlaylistExhausted, core.ErrNoTracksAvailable, core.ErrDeviceNotReady,
	}},
	{http.StatusNotImplemented, []error{core.ErrLLMDisabled}},
}

// statusFor maps a domain error to its HTTP status. Session errors win over
// transport errors, which win over validation errors.
func statusFor(err error) int {
	for _, rule := range statusRules {
		for _, target := range rule.errs {
			if errors.Is(err, target) {
				return rule.status
			}
		}
	}
	return http.StatusInternalServerError
}

func (s *Server) localizer(r *http.Request) *i18n.Localizer {
	return i18n.NewLocalizer(i18n.Match(r.Header.Get("Accept-Language"), s.language))
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	key := i18n.ErrorKey(err)

	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	} else {
		s.logger.Debug("Request rejected", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	}

	writeJSON(w, status, ErrorResponse{
		Error:   strings.TrimPrefix(key, "error."),
		Message: s.localizer(r).T(key),
	})
}

func (s *Server) writeBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Debug("Malformed request", zap.String("path", r.URL.Path), zap.Error(err))
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   "bad_request",
		Message: s.localizer(r).T("error.generic"),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// decodeJSON reads a bounded JSON body. An empty body leaves target untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// limit rejects a client that exceeds the per-minute request limit of scope.
func (s *Server) limit(scope string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow(scope, clientAddr(r)) {
			s.metrics.RecordError("http", "rate_limited")
			writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
				Error:   "rate_limited",
				Message: s.localizer(r).T("error.rate_limited"),
			})
			return
		}
		next(w, r)
	}
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
