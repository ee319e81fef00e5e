package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"songquiz/internal/core"
)

// Durable keys.
const (
	KeyAccessToken        = "access_token"
	KeyRefreshToken       = "refresh_token"
	KeyPlaylistURL        = "playlist_url"
	KeyCategories         = "categories"
	KeyPlayers            = "players"
	KeyWinningScore       = "winning_score"
	KeyCurrentPlayerIndex = "current_player_index"
	KeyPlayerScores       = "player_scores"
	KeyFirstRound         = "first_round"
)

// Transient keys.
const (
	KeyCodeVerifier = "code_verifier"
	KeyOAuthState   = "oauth_state"
)

var gameKeys = []string{
	KeyPlaylistURL,
	KeyCategories,
	KeyPlayers,
	KeyWinningScore,
	KeyCurrentPlayerIndex,
	KeyPlayerScores,
	KeyFirstRound,
}

// StateStore gives typed access to the durable session and game keys.
type StateStore struct {
	kv core.KV
}

// NewStateStore wraps the durable key-value store.
func NewStateStore(kv core.KV) *StateStore {
	return &StateStore{kv: kv}
}

func (s *StateStore) LoadSession(ctx context.Context) (core.Session, error) {
	access, _, err := s.kv.Get(ctx, KeyAccessToken)
	if err != nil {
		return core.Session{}, err
	}
	refresh, _, err := s.kv.Get(ctx, KeyRefreshToken)
	if err != nil {
		return core.Session{}, err
	}
	return core.Session{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *StateStore) SaveSession(ctx context.Context, session core.Session) error {
	if err := s.kv.Set(ctx, KeyAccessToken, session.AccessToken); err != nil {
		return err
	}
	if session.RefreshToken == "" {
		return nil
	}
	return s.kv.Set(ctx, KeyRefreshToken, session.RefreshToken)
}

// Clear wipes every durable key, session and game alike.
func (s *StateStore) Clear(ctx context.Context) error {
	return s.kv.Clear(ctx)
}

// LoadGame returns nil when no game is stored.
func (s *StateStore) LoadGame(ctx context.Context) (*core.GameState, error) {
	rawPlayers, ok, err := s.kv.Get(ctx, KeyPlayers)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	state := &core.GameState{FirstRound: true}
	if err := json.Unmarshal([]byte(rawPlayers), &state.Players); err != nil {
		return nil, fmt.Errorf("corrupt %s: %w", KeyPlayers, err)
	}
	if err := s.getJSON(ctx, KeyCategories, &state.Categories); err != nil {
		return nil, err
	}
	if err := s.getJSON(ctx, KeyPlayerScores, &state.Scores); err != nil {
		return nil, err
	}
	if state.WinningScore, err = s.getInt(ctx, KeyWinningScore); err != nil {
		return nil, err
	}
	if state.CurrentPlayerIndex, err = s.getInt(ctx, KeyCurrentPlayerIndex); err != nil {
		return nil, err
	}
	if raw, ok, err := s.kv.Get(ctx, KeyFirstRound); err != nil {
		return nil, err
	} else if ok {
		state.FirstRound, _ = strconv.ParseBool(raw)
	}

	if len(state.Players) == 0 {
		return nil, fmt.Errorf("corrupt game: %w", core.ErrNoPlayers)
	}
	if state.Scores == nil {
		state.Scores = make([]int, len(state.Players))
	}
	if len(state.Scores) != len(state.Players) {
		return nil, fmt.Errorf("corrupt game: %d scores for %d players", len(state.Scores), len(state.Players))
	}
	if state.CurrentPlayerIndex < 0 || state.CurrentPlayerIndex >= len(state.Players) {
		return nil, fmt.Errorf("corrupt game: player index %d out of range", state.CurrentPlayerIndex)
	}
	if state.WinningScore < 1 {
		return nil, fmt.Errorf("corrupt game: %w", core.ErrInvalidWinningScore)
	}
	if state.Categories == nil {
		state.Categories = []string{}
	}

	return state, nil
}

// SaveGame overwrites every game key with the values of state.
func (s *StateStore) SaveGame(ctx context.Context, state *core.GameState) error {
	categories := state.Categories
	if categories == nil {
		categories = []string{}
	}
	if err := s.setJSON(ctx, KeyPlayers, state.Players); err != nil {
		return err
	}
	if err := s.setJSON(ctx, KeyCategories, categories); err != nil {
		return err
	}
	if err := s.setJSON(ctx, KeyPlayerScores, state.Scores); err != nil {
		return err
	}
	if err := s.kv.Set(ctx, KeyWinningScore, strconv.Itoa(state.WinningScore)); err != nil {
		return err
	}
	if err := s.kv.Set(ctx, KeyCurrentPlayerIndex, strconv.Itoa(state.CurrentPlayerIndex)); err != nil {
		return err
	}
	return s.kv.Set(ctx, KeyFirstRound, strconv.FormatBool(state.FirstRound))
}

func (s *StateStore) LoadPlaylistURL(ctx context.Context) (string, error) {
	url, _, err := s.kv.Get(ctx, KeyPlaylistURL)
	return url, err
}

func (s *StateStore) SavePlaylistURL(ctx context.Context, url string) error {
	return s.kv.Set(ctx, KeyPlaylistURL, url)
}

// ClearGame removes the game keys and leaves the session intact.
func (s *StateStore) ClearGame(ctx context.Context) error {
	return s.kv.Delete(ctx, gameKeys...)
}

func (s *StateStore) getJSON(ctx context.Context, key string, target any) error {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil || !ok {
		return err
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return fmt.Errorf("corrupt %s: %w", key, err)
	}
	return nil
}

func (s *StateStore) setJSON(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.kv.Set(ctx, key, string(data))
}

func (s *StateStore) getInt(ctx context.Context, key string) (int, error) {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil || !ok {
		return 0, err
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("corrupt %s: %w", key, err)
	}
	return value, nil
}

// TabStore keeps the verifier and state of the login attempt in flight.
type TabStore struct {
	kv core.KV
}

// NewTabStore wraps the per-login key-value store.
func NewTabStore(kv core.KV) *TabStore {
	return &TabStore{kv: kv}
}

func (t *TabStore) Verifier(ctx context.Context) (string, error) {
	value, _, err := t.kv.Get(ctx, KeyCodeVerifier)
	return value, err
}

func (t *TabStore) SaveVerifier(ctx context.Context, verifier string) error {
	return t.kv.Set(ctx, KeyCodeVerifier, verifier)
}

func (t *TabStore) DeleteVerifier(ctx context.Context) error {
	return t.kv.Delete(ctx, KeyCodeVerifier)
}

func (t *TabStore) State(ctx context.Context) (string, error) {
	value, _, err := t.kv.Get(ctx, KeyOAuthState)
	return value, err
}

func (t *TabStore) SaveState(ctx context.Context, state string) error {
	return t.kv.Set(ctx, KeyOAuthState, state)
}

func (t *TabStore) Clear(ctx context.Context) error {
	return t.kv.Clear(ctx)
}
