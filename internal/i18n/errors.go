package i18n

import (
	"errors"

	"songquiz/internal/core"
)

var errorKeys = []struct {
	err error
	key string
}{
	{core.ErrSessionExpired, "error.auth.session_expired"},
	{core.ErrNotAuthenticated, "error.auth.not_authenticated"},
	{core.ErrVerifierMissing, "error.auth.verifier_missing"},
	{core.ErrStateMismatch, "error.auth.state_mismatch"},
	{core.ErrNetwork, "error.network"},
	{core.ErrAuthExchange, "error.auth.exchange"},
	{core.ErrEmptyPlaylist, "error.playlist.empty"},
	{core.ErrInvalidPlaylistURL, "error.playlist.invalid_url"},
	{core.ErrPlaylistExhausted, "error.playlist.exhausted"},
	{core.ErrNoTracksAvailable, "error.playlist.not_loaded"},
	{core.ErrNoPlayers, "error.setup.no_players"},
	{core.ErrInvalidWinningScore, "error.setup.winning_score"},
	{core.ErrNoGame, "error.game.none"},
	{core.ErrNoActiveRound, "error.game.no_round"},
	{core.ErrRoundInProgress, "error.game.round_in_progress"},
	{core.ErrGameOver, "error.game.over"},
	{core.ErrDeviceNotReady, "error.device.not_ready"},
	{core.ErrPlaybackFailed, "error.playback.failed"},
	{core.ErrInvalidTrackLink, "error.scan.invalid_link"},
	{core.ErrLLMDisabled, "error.llm.disabled"},
}

// ErrorKey returns the message key for the first known error in err's chain.
// Session errors win over the errors they wrap.
func ErrorKey(err error) string {
	for _, entry := range errorKeys {
		if errors.Is(err, entry.err) {
			return entry.key
		}
	}
	return "error.generic"
}

// Error translates err into a user-facing message.
func (l *Localizer) Error(err error) string {
	return l.T(ErrorKey(err))
}
