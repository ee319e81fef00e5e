package core

import "errors"

var (
	ErrAuthExchange     = errors.New("authorization code exchange failed")
	ErrSessionExpired   = errors.New("session expired")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrVerifierMissing  = errors.New("code verifier missing, login again")
	ErrStateMismatch    = errors.New("oauth state mismatch")
	ErrNetwork          = errors.New("network error")

	ErrInvalidPlaylistURL  = errors.New("invalid playlist url")
	ErrEmptyPlaylist       = errors.New("playlist is empty")
	ErrPlaylistExhausted   = errors.New("playlist exhausted")
	ErrNoTracksAvailable   = errors.New("no tracks available")
	ErrNoPlayers           = errors.New("at least one player is required")
	ErrInvalidWinningScore = errors.New("winning score must be at least 1")
	ErrNoGame              = errors.New("no game in progress")
	ErrNoActiveRound       = errors.New("no round awaiting judgment")
	ErrRoundInProgress     = errors.New("a round is already starting")
	ErrGameOver            = errors.New("game is over")

	ErrDeviceNotReady   = errors.New("playback device not ready")
	ErrPlaybackFailed   = errors.New("playback failed")
	ErrInvalidTrackLink = errors.New("not a track link")
	ErrLLMDisabled      = errors.New("LLM provider not configured")
)

// IsSessionError reports whether err requires a full logout.
func IsSessionError(err error) bool {
	return errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrNotAuthenticated)
}
