// Package text parses playlist and track links and cleans track metadata for display.
package text

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"songquiz/internal/core"
)

const trackURIPrefix = "spotify:track:"

var (
	playlistRegex   = regexp.MustCompile(`playlist/([a-zA-Z0-9]+)`)
	trackLinkRegex  = regexp.MustCompile(`open\.spotify\.com/(?:intl-[a-z]{2}/)?track/([a-zA-Z0-9]+)`)
	trackURIRegex   = regexp.MustCompile(`^spotify:track:([a-zA-Z0-9]+)$`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// PlaylistID extracts the playlist identifier from a ".../playlist/<id>..." URL.
func PlaylistID(rawURL string) (string, error) {
	match := playlistRegex.FindStringSubmatch(strings.TrimSpace(rawURL))
	if match == nil {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidPlaylistURL, rawURL)
	}
	return match[1], nil
}

// TrackURI converts decoded QR text into a track URI. Scanners often insert
// line breaks or odd unicode into long links, so the text is normalized and
// stripped of all whitespace first.
func TrackURI(scanned string) (string, error) {
	cleaned := whitespaceRegex.ReplaceAllString(norm.NFKC.String(scanned), "")

	if match := trackURIRegex.FindStringSubmatch(cleaned); match != nil {
		return trackURIPrefix + match[1], nil
	}
	if match := trackLinkRegex.FindStringSubmatch(cleaned); match != nil {
		return trackURIPrefix + match[1], nil
	}

	return "", fmt.Errorf("%w: %q", core.ErrInvalidTrackLink, scanned)
}

// TrackLink returns the public web link of a track URI.
func TrackLink(uri string) string {
	id := strings.TrimPrefix(uri, trackURIPrefix)
	return "https://open.spotify.com/track/" + id
}

// CleanTitle drops everything from the first " - " on, which removes
// suffixes like "- Remastered 2011" or "- Radio Edit".
func CleanTitle(title string) string {
	if idx := strings.Index(title, " - "); idx >= 0 {
		title = title[:idx]
	}
	return strings.TrimSpace(title)
}

// CleanList trims every entry and drops the empty ones.
func CleanList(items []string) []string {
	cleaned := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(norm.NFC.String(item))
		if item != "" {
			cleaned = append(cleaned, item)
		}
	}
	return cleaned
}
