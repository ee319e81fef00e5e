package cards

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"songquiz/internal/core"
)

func testTracks() []core.TrackItem {
	alice := "alice"
	return []core.TrackItem{
		{URI: "spotify:track:4uLU6hMCjMI75M1A2tKUQC", Name: "Never Gonna Give You Up - 2022 Remaster",
			Artists: []string{"Rick Astley"}, ReleaseYear: "1987", AddedBy: &alice},
		{URI: "spotify:track:7GhIk7Il098yCjg4BQjzvb", Name: "Under Pressure",
			Artists: []string{"Queen", "David Bowie"}, ReleaseYear: "1981"},
	}
}

func TestBuild(t *testing.T) {
	deck := Build(testTracks())

	if len(deck) != 2 {
		t.Fatalf("Build() = %d cards, want 2", len(deck))
	}

	first := deck[0]
	if first.Index != 1 || first.Title != "Never Gonna Give You Up" || first.Year != "1987" {
		t.Errorf("first card = %+v", first)
	}
	if first.Link != "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC" {
		t.Errorf("Link = %q", first.Link)
	}
	if first.AddedBy == nil || *first.AddedBy != "alice" {
		t.Errorf("AddedBy = %v", first.AddedBy)
	}
	if deck[1].Artists != "Queen, David Bowie" {
		t.Errorf("Artists = %q", deck[1].Artists)
	}
}

func TestQRCode(t *testing.T) {
	png, err := QRCode(Build(testTracks())[0], 0)
	if err != nil {
		t.Fatalf("QRCode() error = %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("QRCode() did not return a PNG")
	}
}

func TestWriteDeck(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "deck")
	deck := Build(testTracks())

	if err := WriteDeck(dir, deck, 128); err != nil {
		t.Fatalf("WriteDeck() error = %v", err)
	}

	for _, name := range []string{"card-001.png", "card-002.png", "cards.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "cards.json"))
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	var index []Card
	if err := json.Unmarshal(data, &index); err != nil {
		t.Fatalf("decode index: %v", err)
	}
	if len(index) != 2 || index[1].QRFile != "card-002.png" {
		t.Errorf("index = %+v", index)
	}
}
