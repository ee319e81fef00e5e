package store

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"songquiz/internal/core"
)

func newSQLiteStore(t *testing.T) (*StateStore, *SQLiteKV) {
	t.Helper()
	kv, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { kv.Close() })
	return NewStateStore(kv), kv
}

func TestSQLiteKV_Overwrite(t *testing.T) {
	ctx := context.Background()
	_, kv := newSQLiteStore(t)

	if _, ok, err := kv.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok %v, err %v", ok, err)
	}

	if err := kv.Set(ctx, "k", "one"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := kv.Set(ctx, "k", "two"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	value, ok, err := kv.Get(ctx, "k")
	if err != nil || !ok || value != "two" {
		t.Errorf("Get(k) = %q, %v, %v; want two", value, ok, err)
	}

	if err := kv.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok, _ := kv.Get(ctx, "k"); ok {
		t.Error("key should be gone after Delete")
	}
}

func TestStateStore_SessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	st, _ := newSQLiteStore(t)

	if err := st.SaveSession(ctx, core.Session{AccessToken: "a1", RefreshToken: "r1"}); err != nil {
		t.Fatalf("SaveSession() error = %v", err)
	}
	// a refresh response without a rotated refresh token keeps the old one
	if err := st.SaveSession(ctx, core.Session{AccessToken: "a2"}); err != nil {
		t.Fatalf("SaveSession() error = %v", err)
	}

	session, err := st.LoadSession(ctx)
	if err != nil {
		t.Fatalf("LoadSession() error = %v", err)
	}
	if session.AccessToken != "a2" || session.RefreshToken != "r1" {
		t.Errorf("LoadSession() = %+v", session)
	}
}

func TestStateStore_GameRoundTrip(t *testing.T) {
	ctx := context.Background()
	st, kv := newSQLiteStore(t)

	game, err := st.LoadGame(ctx)
	if err != nil || game != nil {
		t.Fatalf("LoadGame() on empty store = %+v, %v", game, err)
	}

	want := &core.GameState{
		Players:            []string{"Anna", "Ben"},
		Categories:         []string{},
		CurrentPlayerIndex: 1,
		Scores:             []int{2, 3},
		WinningScore:       5,
		FirstRound:         false,
	}
	if err := st.SaveGame(ctx, want); err != nil {
		t.Fatalf("SaveGame() error = %v", err)
	}

	got, err := st.LoadGame(ctx)
	if err != nil {
		t.Fatalf("LoadGame() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("LoadGame() = %+v, want %+v", got, want)
	}

	raw, _, _ := kv.Get(ctx, KeyPlayerScores)
	if raw != "[2,3]" {
		t.Errorf("player_scores = %q, want JSON array", raw)
	}
	raw, _, _ = kv.Get(ctx, KeyWinningScore)
	if raw != "5" {
		t.Errorf("winning_score = %q, want stringified int", raw)
	}
}

func TestStateStore_LoadGameRejectsMisalignedScores(t *testing.T) {
	ctx := context.Background()
	st, kv := newSQLiteStore(t)

	_ = kv.Set(ctx, KeyPlayers, `["A","B"]`)
	_ = kv.Set(ctx, KeyPlayerScores, `[1]`)
	_ = kv.Set(ctx, KeyWinningScore, "3")

	if _, err := st.LoadGame(ctx); err == nil {
		t.Error("LoadGame() should fail when scores do not align with players")
	}
}

func TestStateStore_ClearGameKeepsSession(t *testing.T) {
	ctx := context.Background()
	st, kv := newSQLiteStore(t)

	_ = st.SaveSession(ctx, core.Session{AccessToken: "a", RefreshToken: "r"})
	_ = st.SavePlaylistURL(ctx, "https://open.spotify.com/playlist/abc")
	_ = st.SaveGame(ctx, &core.GameState{Players: []string{"A"}, Scores: []int{0}, WinningScore: 1})

	if err := st.ClearGame(ctx); err != nil {
		t.Fatalf("ClearGame() error = %v", err)
	}

	if game, _ := st.LoadGame(ctx); game != nil {
		t.Error("game should be gone after ClearGame")
	}
	if url, _ := st.LoadPlaylistURL(ctx); url != "" {
		t.Errorf("playlist url should be gone, got %q", url)
	}
	if _, ok, _ := kv.Get(ctx, KeyAccessToken); !ok {
		t.Error("ClearGame must not touch the session")
	}

	if err := st.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if session, _ := st.LoadSession(ctx); session.AccessToken != "" || session.RefreshToken != "" {
		t.Errorf("Clear() left session %+v", session)
	}
}

func TestTabStore(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	tab := NewTabStore(kv)

	_ = tab.SaveVerifier(ctx, "verifier")
	_ = tab.SaveState(ctx, "state")

	if v, _ := tab.Verifier(ctx); v != "verifier" {
		t.Errorf("Verifier() = %q", v)
	}
	if err := tab.DeleteVerifier(ctx); err != nil {
		t.Fatalf("DeleteVerifier() error = %v", err)
	}
	if v, _ := tab.Verifier(ctx); v != "" {
		t.Errorf("Verifier() after delete = %q", v)
	}
	if s, _ := tab.State(ctx); s != "state" {
		t.Errorf("State() = %q", s)
	}

	_ = tab.Clear(ctx)
	if kv.Len() != 0 {
		t.Errorf("Clear() left %d keys", kv.Len())
	}
}

func TestStateStore_CorruptJSON(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	st := NewStateStore(kv)

	_ = kv.Set(ctx, KeyPlayers, "not json")

	_, err := st.LoadGame(ctx)
	if err == nil {
		t.Fatal("LoadGame() should fail on corrupt JSON")
	}
	if errors.Is(err, core.ErrNoPlayers) {
		t.Errorf("unexpected error class: %v", err)
	}
}
