// Package cards builds printable song cards: a QR code on the front that
// plays the track when scanned, and title, artists and year on the back.
package cards

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/skip2/go-qrcode"

	"songquiz/internal/core"
	"songquiz/pkg/text"
)

// DefaultQRSize is the edge length of a card QR code in pixels.
const DefaultQRSize = 320

// Card is one printable card. The front carries the QR code of Link, the
// back shows title, artists and year.
type Card struct {
	Index   int     `json:"index"`
	URI     string  `json:"uri"`
	Link    string  `json:"link"`
	Title   string  `json:"title"`
	Artists string  `json:"artists"`
	Year    string  `json:"year"`
	AddedBy *string `json:"addedBy,omitempty"`
	QRFile  string  `json:"qrFile,omitempty"`
}

// Build turns a playlist snapshot into cards, numbered from 1 in playlist order.
func Build(tracks []core.TrackItem) []Card {
	deck := make([]Card, 0, len(tracks))
	for i, track := range tracks {
		deck = append(deck, Card{
			Index:   i + 1,
			URI:     track.URI,
			Link:    text.TrackLink(track.URI),
			Title:   text.CleanTitle(track.Name),
			Artists: strings.Join(track.Artists, ", "),
			Year:    track.ReleaseYear,
			AddedBy: track.AddedBy,
		})
	}
	return deck
}

// QRCode renders the card's track link as a PNG.
func QRCode(card Card, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultQRSize
	}
	png, err := qrcode.Encode(card.Link, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code for card %d: %w", card.Index, err)
	}
	return png, nil
}

// WriteDeck writes one PNG per card plus a cards.json index into dir.
func WriteDeck(dir string, deck []Card, size int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create card directory: %w", err)
	}

	for i := range deck {
		png, err := QRCode(deck[i], size)
		if err != nil {
			return err
		}

		name := fmt.Sprintf("card-%03d.png", deck[i].Index)
		if err := os.WriteFile(filepath.Join(dir, name), png, 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		deck[i].QRFile = name
	}

	index, err := json.MarshalIndent(deck, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode card index: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "cards.json"), index, 0o600); err != nil {
		return fmt.Errorf("failed to write card index: %w", err)
	}

	return nil
}
