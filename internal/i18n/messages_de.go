package i18n

// germanMessages contains all German translations.
var germanMessages = map[string]string{
	// Error messages
	"error.generic":                "Etwas ist schiefgelaufen. Bitte versuche es nochmal.",
	"error.auth.exchange":          "Die Anmeldung bei Spotify ist fehlgeschlagen. Bitte versuche es nochmal.",
	"error.auth.session_expired":   "Deine Spotify-Sitzung ist abgelaufen. Bitte melde dich erneut an.",
	"error.auth.not_authenticated": "Bitte melde dich zuerst bei Spotify an.",
	"error.auth.verifier_missing":  "Dieser Anmeldelink wurde schon benutzt oder gehört zu einem anderen Tab. Bitte starte die Anmeldung neu.",
	"error.auth.state_mismatch":    "Die Antwort passt nicht zu diesem Anmeldeversuch. Bitte starte die Anmeldung neu.",
	"error.network":                "Spotify ist nicht erreichbar. Prüfe deine Verbindung und versuche es nochmal.",
	"error.playlist.invalid_url":   "Das sieht nicht nach einem Spotify-Playlist-Link aus.",
	"error.playlist.empty":         "Diese Playlist enthält keine abspielbaren Titel.",
	"error.playlist.exhausted":     "Alle Titel der Playlist wurden gespielt.",
	"error.playlist.not_loaded":    "Die Playlist ist noch nicht geladen.",
	"error.setup.no_players":       "Füge mindestens einen Spieler hinzu.",
	"error.setup.winning_score":    "Die Siegpunktzahl muss mindestens 1 sein.",
	"error.game.none":              "Es ist kein Spiel eingerichtet.",
	"error.game.no_round":          "Es gibt keine Runde zu bewerten.",
	"error.game.round_in_progress": "Eine Runde startet gerade.",
	"error.game.over":              "Das Spiel ist vorbei. Starte ein neues.",
	"error.device.not_ready":       "Der Player ist noch nicht bereit. Bitte warte einen Moment.",
	"error.playback.failed":        "Der Titel konnte nicht abgespielt werden.",
	"error.scan.invalid_link":      "Diese Karte enthält keinen Spotify-Titel.",
	"error.rate_limited":           "Langsam! Zu viele Anfragen.",
	"error.llm.disabled":           "Kategorievorschläge sind nicht eingerichtet.",
	"error.llm.failed":             "Mir sind keine Kategorien eingefallen. Bitte versuche es nochmal.",

	// Notifications
	"notify.round_started":   "Runde %d: %s ist dran.",
	"notify.category":        "Kategorie: %s",
	"notify.correct":         "Richtig! %s hat jetzt %d Punkte.",
	"notify.wrong":           "Leider nicht. %s bleibt bei %d Punkten.",
	"notify.winner":          "%s gewinnt mit %d Punkten!",
	"notify.logged_out":      "Du wurdest abgemeldet.",
	"notify.playlist_loaded": "Playlist geladen: %d Titel.",
	"notify.device_ready":    "Der Player ist bereit.",

	// Login prompts
	"login.scan_prompt": "Scanne den Code, um dich bei Spotify anzumelden:",
	"login.open_url":    "Oder öffne: %s",
}
