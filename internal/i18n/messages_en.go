package i18n

// englishMessages contains all English translations.
var englishMessages = map[string]string{
	// Error messages
	"error.generic":                "Something went wrong. Please try again.",
	"error.auth.exchange":          "Login with Spotify failed. Please try again.",
	"error.auth.session_expired":   "Your Spotify session expired. Please log in again.",
	"error.auth.not_authenticated": "Please log in with Spotify first.",
	"error.auth.verifier_missing":  "This login link was already used or belongs to another tab. Please start the login again.",
	"error.auth.state_mismatch":    "The login response did not match this login attempt. Please start the login again.",
	"error.network":                "Spotify could not be reached. Check your connection and try again.",
	"error.playlist.invalid_url":   "That doesn't look like a Spotify playlist link.",
	"error.playlist.empty":         "This playlist has no playable tracks.",
	"error.playlist.exhausted":     "Every track of the playlist has been played.",
	"error.playlist.not_loaded":    "The playlist is not loaded yet.",
	"error.setup.no_players":       "Add at least one player.",
	"error.setup.winning_score":    "The winning score must be at least 1.",
	"error.game.none":              "No game is set up.",
	"error.game.no_round":          "There is no round to judge.",
	"error.game.round_in_progress": "A round is already starting.",
	"error.game.over":              "The game is over. Start a new one.",
	"error.device.not_ready":       "The player is not ready yet. Please wait a moment.",
	"error.playback.failed":        "The track could not be played.",
	"error.scan.invalid_link":      "That card doesn't contain a Spotify track.",
	"error.rate_limited":           "Slow down! Too many requests.",
	"error.llm.disabled":           "Category suggestions are not configured.",
	"error.llm.failed":             "Couldn't come up with categories. Please try again.",

	// Notifications
	"notify.round_started":   "Round %d: it's %s's turn.",
	"notify.category":        "Category: %s",
	"notify.correct":         "Correct! %s now has %d points.",
	"notify.wrong":           "Not quite. %s stays at %d points.",
	"notify.winner":          "%s wins with %d points!",
	"notify.logged_out":      "You have been logged out.",
	"notify.playlist_loaded": "Playlist loaded: %d tracks.",
	"notify.device_ready":    "The player is ready.",

	// Login prompts
	"login.scan_prompt": "Scan to log in with Spotify:",
	"login.open_url":    "Or open: %s",
}
