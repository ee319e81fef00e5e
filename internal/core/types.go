package core

import (
	"context"
	"time"
)

// Session holds the provider tokens kept in durable storage.
type Session struct {
	AccessToken  string
	RefreshToken string
}

// TrackItem is one playable entry of a loaded playlist.
type TrackItem struct {
	URI         string   `json:"uri"`
	Name        string   `json:"name"`
	Artists     []string `json:"artists"`
	ReleaseYear string   `json:"releaseYear"`
	AddedBy     *string  `json:"addedBy"`
}

// PlaylistPage is one provider page of playlist items.
type PlaylistPage struct {
	Items []TrackItem
	// Fetched counts every raw item on the page, including entries that are
	// not tracks and were skipped during conversion.
	Fetched int
	Total   int
}

// GameState is the persisted part of a game.
type GameState struct {
	Players            []string `json:"players"`
	Categories         []string `json:"categories"`
	CurrentPlayerIndex int      `json:"currentPlayerIndex"`
	Scores             []int    `json:"scores"`
	WinningScore       int      `json:"winningScore"`
	FirstRound         bool     `json:"firstRound"`
}

// Clone returns a deep copy so callers cannot alias the machine's slices.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Players = append([]string(nil), s.Players...)
	clone.Categories = append([]string(nil), s.Categories...)
	clone.Scores = append([]int(nil), s.Scores...)
	return &clone
}

// Phase is the round phase of the game machine.
type Phase int

const (
	// PhaseIdle means no round is active.
	PhaseIdle Phase = iota
	// PhaseRoundPlaying means a track was drawn and playback is being started.
	PhaseRoundPlaying
	// PhaseAwaitingJudgment means the track is playing and may be judged once.
	PhaseAwaitingJudgment
	// PhaseGameOver means a player reached the winning score.
	PhaseGameOver
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRoundPlaying:
		return "round_playing"
	case PhaseAwaitingJudgment:
		return "awaiting_judgment"
	case PhaseGameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

// Round is the ephemeral state of one guessing turn.
type Round struct {
	Number      int       `json:"number"`
	Track       TrackItem `json:"track"`
	Category    *string   `json:"category"`
	PlayerIndex int       `json:"playerIndex"`
	Player      string    `json:"player"`
	Judged      bool      `json:"judged"`
	StartedAt   time.Time `json:"startedAt"`
}

// Standing is one row of the score table.
type Standing struct {
	Index  int    `json:"index"`
	Player string `json:"player"`
	Score  int    `json:"score"`
}

// Judgment reports the outcome of markCorrect or markWrong.
type Judgment struct {
	Correct  bool      `json:"correct"`
	Player   string    `json:"player"`
	Score    int       `json:"score"`
	GameOver bool      `json:"gameOver"`
	Winner   *Standing `json:"winner,omitempty"`
}

// Snapshot is the full view state pushed to the browser.
type Snapshot struct {
	Authenticated      bool       `json:"authenticated"`
	DeviceReady        bool       `json:"deviceReady"`
	HasGame            bool       `json:"hasGame"`
	Phase              string     `json:"phase"`
	Players            []string   `json:"players"`
	Categories         []string   `json:"categories"`
	Scores             []int      `json:"scores"`
	CurrentPlayerIndex int        `json:"currentPlayerIndex"`
	WinningScore       int        `json:"winningScore"`
	FirstRound         bool       `json:"firstRound"`
	PlaylistID         string     `json:"playlistId,omitempty"`
	PlaylistLoaded     bool       `json:"playlistLoaded"`
	TracksRemaining    int        `json:"tracksRemaining"`
	Round              *Round     `json:"round,omitempty"`
	Winner             *Standing  `json:"winner,omitempty"`
	Standings          []Standing `json:"standings"`
}

// Device is a playback target reported by the provider.
type Device struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Active bool   `json:"active"`
}

// KV is a string key/value store where every write replaces the whole value.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Clear(ctx context.Context) error
}

// SessionStore owns the durable tokens. Clear wipes all durable state.
type SessionStore interface {
	LoadSession(ctx context.Context) (Session, error)
	SaveSession(ctx context.Context, session Session) error
	Clear(ctx context.Context) error
}

// GameStore owns the durable game keys. LoadGame returns nil when no game exists.
type GameStore interface {
	LoadGame(ctx context.Context) (*GameState, error)
	SaveGame(ctx context.Context, state *GameState) error
	LoadPlaylistURL(ctx context.Context) (string, error)
	SavePlaylistURL(ctx context.Context, url string) error
	ClearGame(ctx context.Context) error
}

// TabStore owns the transient values of one login attempt.
type TabStore interface {
	Verifier(ctx context.Context) (string, error)
	SaveVerifier(ctx context.Context, verifier string) error
	DeleteVerifier(ctx context.Context) error
	State(ctx context.Context) (string, error)
	SaveState(ctx context.Context, state string) error
	Clear(ctx context.Context) error
}

// PlayedSet remembers which track URIs were already drawn in a game.
type PlayedSet interface {
	Has(uri string) bool
	Add(uri string)
	Size() int
	Clear()
}

// PlaylistSource returns playlist items page by page.
type PlaylistSource interface {
	PlaylistItems(ctx context.Context, playlistID string, offset, limit int) (*PlaylistPage, error)
}

// PlaybackAPI is the provider's remote device control surface.
type PlaybackAPI interface {
	Play(ctx context.Context, deviceID, uri string) error
	Pause(ctx context.Context, deviceID string) error
	Devices(ctx context.Context) ([]Device, error)
}

// Player is the playback contract consumed by the game.
type Player interface {
	Play(ctx context.Context, uri string) error
	Stop(ctx context.Context)
}

// LLMProvider suggests guessing categories for a track sample.
type LLMProvider interface {
	SuggestCategories(ctx context.Context, sample []TrackItem, count int) ([]string, error)
}
