// Package game implements the round-by-round quiz state machine: setup,
// playlist loading, random draws, turn rotation, scoring and win detection.
package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"songquiz/internal/core"
	"songquiz/pkg/fuzzy"
	"songquiz/pkg/text"
)

// SetupRequest is the input of the setup flow.
type SetupRequest struct {
	PlaylistURL  string   `json:"playlistUrl"`
	Categories   []string `json:"categories"`
	Players      []string `json:"players"`
	WinningScore int      `json:"winningScore"`
}

// Machine owns the game state. All methods are safe for concurrent use.
//
// Turn rule: the first round keeps the current player; every later round
// advances the player index when the round is drawn, never when it is judged.
type Machine struct {
	mu      sync.Mutex
	store   core.GameStore
	source  core.PlaylistSource
	player  core.Player
	played  core.PlayedSet
	matcher *fuzzy.Matcher
	logger  *zap.Logger

	rng      *rand.Rand
	drawMode string
	pageSize int

	state      *core.GameState
	playlistID string
	snapshot   []core.TrackItem
	pool       []core.TrackItem
	phase      core.Phase
	round      *core.Round
	rounds     int
	generation int
}

// Option configures a Machine.
type Option func(*Machine)

// WithRand injects the random source used for track and category draws.
func WithRand(rng *rand.Rand) Option {
	return func(m *Machine) {
		m.rng = rng
	}
}

// WithDrawMode selects drawing with or without replacement.
func WithDrawMode(mode string) Option {
	return func(m *Machine) {
		m.drawMode = mode
	}
}

// WithPageSize sets how many playlist items are requested per page.
func WithPageSize(size int) Option {
	return func(m *Machine) {
		m.pageSize = size
	}
}

// NewMachine creates an idle machine. Call Setup or Restore before drawing rounds.
func NewMachine(store core.GameStore, source core.PlaylistSource, player core.Player,
	played core.PlayedSet, logger *zap.Logger, opts ...Option) *Machine {
	m := &Machine{
		store:    store,
		source:   source,
		player:   player,
		played:   played,
		logger:   logger,
		drawMode: core.DrawWithoutReplacement,
		pageSize: core.DefaultPageSize,
		phase:    core.PhaseIdle,
		matcher:  fuzzy.NewMatcher(fuzzy.DefaultThreshold),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // Track selection doesn't require crypto-secure randomness
	}

	return m
}

// Setup validates and persists a new game. It returns the playlist id to load.
func (m *Machine) Setup(ctx context.Context, req SetupRequest) (string, error) {
	playlistID, err := text.PlaylistID(req.PlaylistURL)
	if err != nil {
		return "", err
	}

	players := text.CleanList(req.Players)
	if len(players) == 0 {
		return "", core.ErrNoPlayers
	}
	if req.WinningScore < 1 {
		return "", fmt.Errorf("%w: got %d", core.ErrInvalidWinningScore, req.WinningScore)
	}

	state := &core.GameState{
		Players:            players,
		Categories:         text.CleanList(req.Categories),
		CurrentPlayerIndex: 0,
		Scores:             make([]int, len(players)),
		WinningScore:       req.WinningScore,
		FirstRound:         true,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.SaveGame(ctx, state); err != nil {
		return "", fmt.Errorf("failed to persist game: %w", err)
	}
	if err := m.store.SavePlaylistURL(ctx, req.PlaylistURL); err != nil {
		return "", fmt.Errorf("failed to persist playlist url: %w", err)
	}

	m.generation++
	m.state = state
	m.playlistID = playlistID
	m.snapshot = nil
	m.pool = nil
	m.phase = core.PhaseIdle
	m.round = nil
	m.rounds = 0
	m.played.Clear()

	m.logger.Info("Game set up",
		zap.Int("players", len(players)),
		zap.Int("categories", len(state.Categories)),
		zap.Int("winningScore", state.WinningScore),
		zap.String("playlistID", playlistID))

	return playlistID, nil
}

// Restore resumes a persisted game. It returns the playlist id to reload, or
// an empty string when there is nothing to resume.
func (m *Machine) Restore(ctx context.Context) (string, error) {
	state, err := m.store.LoadGame(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load game: %w", err)
	}
	if state == nil {
		return "", nil
	}

	url, err := m.store.LoadPlaylistURL(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load playlist url: %w", err)
	}
	playlistID, err := text.PlaylistID(url)
	if err != nil {
		m.logger.Warn("Stored playlist url is invalid", zap.String("url", url))
		playlistID = ""
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.generation++
	m.state = state
	m.playlistID = playlistID
	m.snapshot = nil
	m.pool = nil
	m.round = nil
	m.phase = core.PhaseIdle
	if hasWinner(state) {
		m.phase = core.PhaseGameOver
	}

	m.logger.Info("Game restored",
		zap.Strings("players", state.Players),
		zap.Ints("scores", state.Scores),
		zap.String("phase", m.phase.String()))

	return playlistID, nil
}

// LoadPlaylist replaces the cache with a fresh, complete snapshot of the
// playlist. On failure the cache is left unloaded.
func (m *Machine) LoadPlaylist(ctx context.Context, playlistID string) error {
	m.mu.Lock()
	generation := m.generation
	m.mu.Unlock()

	items, err := FetchPlaylist(ctx, m.source, playlistID, m.pageSize)

	m.mu.Lock()
	defer m.mu.Unlock()

	// a new game or a reset happened while the pages were fetched
	if m.generation != generation {
		m.logger.Debug("Discarding stale playlist load", zap.String("playlistID", playlistID))
		return core.ErrNoGame
	}

	if err != nil {
		m.snapshot = nil
		m.pool = nil
		m.logger.Warn("Playlist load failed", zap.String("playlistID", playlistID), zap.Error(err))
		return err
	}

	m.playlistID = playlistID
	m.snapshot = items
	m.pool = make([]core.TrackItem, 0, len(items))
	for _, item := range items {
		if m.drawMode == core.DrawWithoutReplacement && m.played.Has(item.URI) {
			continue
		}
		m.pool = append(m.pool, item)
	}

	m.logger.Info("Playlist loaded",
		zap.String("playlistID", playlistID),
		zap.Int("tracks", len(items)),
		zap.Int("available", len(m.pool)))

	return nil
}

// StartRound draws the next round. It is the entry point of the start button
// and behaves exactly like NextRound: whether the turn advances depends only
// on whether a round has been played yet.
func (m *Machine) StartRound(ctx context.Context) (*core.Round, error) {
	return m.playRound(ctx)
}

// NextRound draws a track and a category, advances the turn (except for the
// first round of a game) and starts playback. If playback fails, nothing is
// committed: no turn advance, no track consumed.
func (m *Machine) NextRound(ctx context.Context) (*core.Round, error) {
	return m.playRound(ctx)
}

func (m *Machine) playRound(ctx context.Context) (*core.Round, error) {
	m.mu.Lock()

	if err := m.checkDrawable(); err != nil {
		m.mu.Unlock()
		return nil, err
	}

	track := m.pool[m.rng.Intn(len(m.pool))]

	var category *string
	if len(m.state.Categories) > 0 {
		picked := m.state.Categories[m.rng.Intn(len(m.state.Categories))]
		category = &picked
	}

	playerIndex := m.state.CurrentPlayerIndex
	if !m.state.FirstRound {
		playerIndex = (playerIndex + 1) % len(m.state.Players)
	}

	previousPhase := m.phase
	generation := m.generation
	m.phase = core.PhaseRoundPlaying
	m.mu.Unlock()

	playErr := m.player.Play(ctx, track.URI)

	m.mu.Lock()
	if m.generation != generation {
		m.mu.Unlock()
		// the game this track was drawn for is gone
		if playErr == nil {
			m.player.Stop(ctx)
		}
		return nil, core.ErrNoGame
	}
	defer m.mu.Unlock()

	if playErr != nil {
		m.phase = previousPhase
		return nil, fmt.Errorf("failed to start round: %w", playErr)
	}

	m.state.CurrentPlayerIndex = playerIndex
	m.state.FirstRound = false
	if m.drawMode == core.DrawWithoutReplacement {
		m.removeFromPool(track.URI)
		m.played.Add(track.URI)
	}

	m.rounds++
	m.round = &core.Round{
		Number:      m.rounds,
		Track:       track,
		Category:    category,
		PlayerIndex: playerIndex,
		Player:      m.state.Players[playerIndex],
		StartedAt:   time.Now(),
	}
	m.phase = core.PhaseAwaitingJudgment

	if err := m.store.SaveGame(ctx, m.state); err != nil {
		m.logger.Warn("Failed to persist game after draw", zap.Error(err))
	}

	m.logger.Info("Round started",
		zap.Int("round", m.rounds),
		zap.String("player", m.round.Player),
		zap.String("uri", track.URI),
		zap.Int("remaining", len(m.pool)))

	round := *m.round
	return &round, nil
}

func (m *Machine) checkDrawable() error {
	if m.state == nil {
		return core.ErrNoGame
	}

	switch m.phase {
	case core.PhaseGameOver:
		return core.ErrGameOver
	case core.PhaseRoundPlaying:
		return core.ErrRoundInProgress
	}

	if m.pool == nil {
		return core.ErrNoTracksAvailable
	}
	if len(m.pool) == 0 {
		return core.ErrPlaylistExhausted
	}
	return nil
}

func (m *Machine) removeFromPool(uri string) {
	for i := range m.pool {
		if m.pool[i].URI == uri {
			m.pool = append(m.pool[:i], m.pool[i+1:]...)
			return
		}
	}
}

// MarkCorrect stops playback and awards a point to the round's player.
func (m *Machine) MarkCorrect(ctx context.Context) (*core.Judgment, error) {
	return m.judge(ctx, true)
}

// MarkWrong stops playback without changing the score.
func (m *Machine) MarkWrong(ctx context.Context) (*core.Judgment, error) {
	return m.judge(ctx, false)
}

// judge accepts exactly one judgment per round; later calls get ErrNoActiveRound.
func (m *Machine) judge(ctx context.Context, correct bool) (*core.Judgment, error) {
	m.mu.Lock()

	if m.state == nil {
		m.mu.Unlock()
		return nil, core.ErrNoGame
	}
	if m.phase != core.PhaseAwaitingJudgment || m.round == nil || m.round.Judged {
		m.mu.Unlock()
		return nil, core.ErrNoActiveRound
	}

	m.round.Judged = true
	index := m.round.PlayerIndex
	if correct {
		m.state.Scores[index]++
	}

	judgment := &core.Judgment{
		Correct: correct,
		Player:  m.state.Players[index],
		Score:   m.state.Scores[index],
	}

	if correct && m.state.Scores[index] >= m.state.WinningScore {
		m.phase = core.PhaseGameOver
		winner, _ := leader(m.state)
		judgment.GameOver = true
		judgment.Winner = &winner
	} else {
		m.phase = core.PhaseIdle
	}

	if err := m.store.SaveGame(ctx, m.state); err != nil {
		m.logger.Warn("Failed to persist scores", zap.Error(err))
	}
	m.mu.Unlock()

	m.player.Stop(ctx)

	m.logger.Info("Round judged",
		zap.String("player", judgment.Player),
		zap.Bool("correct", correct),
		zap.Int("score", judgment.Score),
		zap.Bool("gameOver", judgment.GameOver))

	return judgment, nil
}

// CheckGuess compares a guess with the track of the round awaiting judgment.
// It only informs the host; scoring still happens through MarkCorrect.
func (m *Machine) CheckGuess(guess fuzzy.Guess) (fuzzy.Verdict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != core.PhaseAwaitingJudgment || m.round == nil || m.round.Judged {
		return fuzzy.Verdict{}, core.ErrNoActiveRound
	}

	track := m.round.Track
	return m.matcher.Check(guess, fuzzy.Answer{
		Title:   track.Name,
		Artists: track.Artists,
		Year:    track.ReleaseYear,
	}), nil
}

// Winner returns the leading player: the first index holding the maximum score.
func (m *Machine) Winner() (core.Standing, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return leader(m.state)
}

// Scoreboard lists every player with their score in roster order.
func (m *Machine) Scoreboard() []core.Standing {
	m.mu.Lock()
	defer m.mu.Unlock()
	return standings(m.state)
}

func (m *Machine) Phase() core.Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Tracks returns the complete playlist snapshot from the last load.
func (m *Machine) Tracks() []core.TrackItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.TrackItem(nil), m.snapshot...)
}

// Sample returns up to n distinct random tracks from the playlist snapshot.
func (m *Machine) Sample(n int) []core.TrackItem {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n > len(m.snapshot) {
		n = len(m.snapshot)
	}
	sample := make([]core.TrackItem, 0, n)
	for _, i := range m.rng.Perm(len(m.snapshot))[:n] {
		sample = append(sample, m.snapshot[i])
	}
	return sample
}

// Snapshot fills the game part of the view state.
func (m *Machine) Snapshot() core.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := core.Snapshot{
		HasGame:        m.state != nil,
		Phase:          m.phase.String(),
		PlaylistID:     m.playlistID,
		PlaylistLoaded: m.pool != nil,
		Standings:      standings(m.state),
	}

	if m.state != nil {
		state := m.state.Clone()
		snapshot.Players = state.Players
		snapshot.Categories = state.Categories
		snapshot.Scores = state.Scores
		snapshot.CurrentPlayerIndex = state.CurrentPlayerIndex
		snapshot.WinningScore = state.WinningScore
		snapshot.FirstRound = state.FirstRound
	}
	if m.pool != nil {
		snapshot.TracksRemaining = len(m.pool)
	}
	if m.round != nil && m.phase == core.PhaseAwaitingJudgment {
		round := *m.round
		snapshot.Round = &round
	}
	if m.phase == core.PhaseGameOver {
		if winner, ok := leader(m.state); ok {
			snapshot.Winner = &winner
		}
	}

	return snapshot
}

// Reset discards the game in memory and in storage.
func (m *Machine) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.generation++
	m.state = nil
	m.playlistID = ""
	m.snapshot = nil
	m.pool = nil
	m.round = nil
	m.rounds = 0
	m.phase = core.PhaseIdle
	m.played.Clear()

	if err := m.store.ClearGame(ctx); err != nil {
		return fmt.Errorf("failed to clear game: %w", err)
	}

	m.logger.Info("Game reset")
	return nil
}

func leader(state *core.GameState) (core.Standing, bool) {
	if state == nil || len(state.Players) == 0 {
		return core.Standing{}, false
	}

	best := 0
	for i := 1; i < len(state.Scores); i++ {
		if state.Scores[i] > state.Scores[best] {
			best = i
		}
	}
	return core.Standing{Index: best, Player: state.Players[best], Score: state.Scores[best]}, true
}

func hasWinner(state *core.GameState) bool {
	for _, score := range state.Scores {
		if score >= state.WinningScore {
			return true
		}
	}
	return false
}

func standings(state *core.GameState) []core.Standing {
	if state == nil {
		return []core.Standing{}
	}
	result := make([]core.Standing, len(state.Players))
	for i, player := range state.Players {
		result[i] = core.Standing{Index: i, Player: player, Score: state.Scores[i]}
	}
	return result
}

// IsSetupError reports whether err is a setup validation failure.
func IsSetupError(err error) bool {
	return errors.Is(err, core.ErrInvalidPlaylistURL) ||
		errors.Is(err, core.ErrNoPlayers) ||
		errors.Is(err, core.ErrInvalidWinningScore)
}
