// Package host is the single entry point of the transport layer. It wires the
// auth manager, the game machine and the playback bridge together, maps
// session errors to a full logout and pushes state changes to the views.
package host

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"songquiz/internal/cards"
	"songquiz/internal/core"
	"songquiz/internal/game"
	"songquiz/internal/i18n"
	"songquiz/pkg/fuzzy"
	"songquiz/pkg/text"
)

const suggestionSampleSize = 30

// Event types pushed to connected views.
const (
	EventState        = "state"
	EventRound        = "round"
	EventJudgment     = "judgment"
	EventNotification = "notification"
	EventLoggedOut    = "logged_out"
)

// Event is one push message for the views. Snapshot is always the state after
// the change.
type Event struct {
	Type     string         `json:"type"`
	Message  string         `json:"message,omitempty"`
	Snapshot *core.Snapshot `json:"snapshot,omitempty"`
}

// Authenticator is the login flow as used by the host.
type Authenticator interface {
	BeginLogin(ctx context.Context) (string, error)
	CompleteLogin(ctx context.Context, code, state string) error
	Logout(ctx context.Context) error
	IsAuthenticated(ctx context.Context) bool
}

// RefreshTrigger fires a background token refresh.
type RefreshTrigger interface {
	Trigger(ctx context.Context, trigger string)
}

// Identity resolves the display name of the logged in user.
type Identity interface {
	CurrentUser(ctx context.Context) (string, error)
}

// Device is the playback bridge as seen by the host.
type Device interface {
	core.Player
	Announce(deviceID string)
	IsReady() bool
	ReportError(kind, message string) error
}

// Recorder receives game metrics.
type Recorder interface {
	RecordRound(status string)
	RecordJudgment(result string)
	RecordError(component, errorType string)
	RecordPlaylistLoad(status string, duration time.Duration)
	SetTracksRemaining(count int)
}

// Notifier delivers events to all connected views.
type Notifier interface {
	Broadcast(event Event)
}

// Components are the collaborators of a Host. Recorder and Notifier may be nil.
type Components struct {
	Auth      Authenticator
	Refresher RefreshTrigger
	Game      *game.Machine
	Device    Device
	Identity  Identity
	LLM       core.LLMProvider
	Recorder  Recorder
	Notifier  Notifier
	Localizer *i18n.Localizer
}

// Host runs the user facing operations on top of the auth manager, the game
// machine and the playback bridge. It maps session errors to a logout.
type Host struct {
	auth      Authenticator
	refresher RefreshTrigger
	game      *game.Machine
	device    Device
	identity  Identity
	llm       core.LLMProvider
	recorder  Recorder
	notifier  Notifier
	localizer *i18n.Localizer
	logger    *zap.Logger
}

// New creates a host. Missing recorder and notifier become no-ops.
func New(components Components, logger *zap.Logger) *Host {
	h := &Host{
		auth:      components.Auth,
		refresher: components.Refresher,
		game:      components.Game,
		device:    components.Device,
		identity:  components.Identity,
		llm:       components.LLM,
		recorder:  components.Recorder,
		notifier:  components.Notifier,
		localizer: components.Localizer,
		logger:    logger,
	}

	if h.recorder == nil {
		h.recorder = nopRecorder{}
	}
	if h.notifier == nil {
		h.notifier = nopNotifier{}
	}
	if h.localizer == nil {
		h.localizer = i18n.NewLocalizer(i18n.DefaultLanguage)
	}

	return h
}

// SetNotifier replaces the push target. It must be called before serving.
func (h *Host) SetNotifier(notifier Notifier) {
	h.notifier = notifier
}

// BeginLogin discards any game and session and returns the authorization URL.
func (h *Host) BeginLogin(ctx context.Context) (string, error) {
	if err := h.game.Reset(ctx); err != nil {
		h.logger.Warn("Failed to reset game before login", zap.Error(err))
	}

	url, err := h.auth.BeginLogin(ctx)
	if err != nil {
		return "", h.handleErr(ctx, "auth", err)
	}
	return url, nil
}

// CompleteLogin finishes the authorization callback and pushes the new state.
func (h *Host) CompleteLogin(ctx context.Context, code, state string) error {
	if err := h.auth.CompleteLogin(ctx, code, state); err != nil {
		return h.handleErr(ctx, "auth", err)
	}

	h.broadcastState(ctx)
	return nil
}

// Logout wipes every stored value and returns the views to the login page.
func (h *Host) Logout(ctx context.Context) error {
	err := h.logout(ctx)
	h.notifier.Broadcast(Event{
		Type:     EventLoggedOut,
		Message:  h.localizer.T("notify.logged_out"),
		Snapshot: h.snapshotPtr(ctx),
	})
	return err
}

// Reset is the escape hatch for a stuck view. It behaves like Logout.
func (h *Host) Reset(ctx context.Context) error {
	h.logger.Info("Reset requested")
	return h.Logout(ctx)
}

func (h *Host) logout(ctx context.Context) error {
	return errors.Join(h.game.Reset(ctx), h.auth.Logout(ctx))
}

// Refresh fires a token refresh in the background. The refresh outlives the
// request that triggered it.
func (h *Host) Refresh(ctx context.Context, trigger string) {
	h.refresher.Trigger(context.WithoutCancel(ctx), trigger)
}

// CheckSession validates the access token against the provider and returns
// the display name of the logged in user.
func (h *Host) CheckSession(ctx context.Context) (string, error) {
	name, err := h.identity.CurrentUser(ctx)
	if err != nil {
		return "", h.handleErr(ctx, "spotify", err)
	}
	return name, nil
}

// Resume restores a persisted game after a restart and reloads its playlist.
func (h *Host) Resume(ctx context.Context) error {
	if !h.auth.IsAuthenticated(ctx) {
		return nil
	}

	playlistID, err := h.game.Restore(ctx)
	if err != nil {
		return h.handleErr(ctx, "game", err)
	}
	if playlistID == "" {
		return nil
	}

	return h.loadPlaylist(ctx, playlistID)
}

// Setup creates a new game and loads its playlist. A failed load keeps the
// game; the view can retry with ReloadPlaylist.
func (h *Host) Setup(ctx context.Context, req game.SetupRequest) (core.Snapshot, error) {
	playlistID, err := h.game.Setup(ctx, req)
	if err != nil {
		return core.Snapshot{}, h.handleErr(ctx, "game", err)
	}

	if err := h.loadPlaylist(ctx, playlistID); err != nil {
		return core.Snapshot{}, err
	}

	return h.Snapshot(ctx), nil
}

func (h *Host) ReloadPlaylist(ctx context.Context) (core.Snapshot, error) {
	playlistID := h.game.Snapshot().PlaylistID
	if playlistID == "" {
		return core.Snapshot{}, core.ErrNoGame
	}

	if err := h.loadPlaylist(ctx, playlistID); err != nil {
		return core.Snapshot{}, err
	}

	return h.Snapshot(ctx), nil
}

func (h *Host) loadPlaylist(ctx context.Context, playlistID string) error {
	start := time.Now()
	err := h.game.LoadPlaylist(ctx, playlistID)
	if err != nil {
		h.recorder.RecordPlaylistLoad("error", time.Since(start))
		return h.handleErr(ctx, "game", err)
	}
	h.recorder.RecordPlaylistLoad("success", time.Since(start))

	snapshot := h.Snapshot(ctx)
	h.recorder.SetTracksRemaining(snapshot.TracksRemaining)
	h.notifier.Broadcast(Event{
		Type:     EventNotification,
		Message:  h.localizer.T("notify.playlist_loaded", len(h.game.Tracks())),
		Snapshot: &snapshot,
	})
	return nil
}

// StartRound draws the first round, or the next one when a game is under way.
func (h *Host) StartRound(ctx context.Context) (*core.Round, error) {
	return h.round(ctx, h.game.StartRound)
}

func (h *Host) NextRound(ctx context.Context) (*core.Round, error) {
	return h.round(ctx, h.game.NextRound)
}

func (h *Host) round(ctx context.Context, draw func(context.Context) (*core.Round, error)) (*core.Round, error) {
	round, err := draw(ctx)
	if err != nil {
		h.recorder.RecordRound("failed")
		return nil, h.handleErr(ctx, "game", err)
	}
	h.recorder.RecordRound("started")

	message := h.localizer.T("notify.round_started", round.Number, round.Player)
	if round.Category != nil {
		message += " " + h.localizer.T("notify.category", *round.Category)
	}

	snapshot := h.Snapshot(ctx)
	h.recorder.SetTracksRemaining(snapshot.TracksRemaining)
	h.notifier.Broadcast(Event{Type: EventRound, Message: message, Snapshot: &snapshot})

	return round, nil
}

// MarkCorrect scores the current round for its player.
func (h *Host) MarkCorrect(ctx context.Context) (*core.Judgment, error) {
	return h.judge(ctx, h.game.MarkCorrect)
}

func (h *Host) MarkWrong(ctx context.Context) (*core.Judgment, error) {
	return h.judge(ctx, h.game.MarkWrong)
}

func (h *Host) judge(ctx context.Context, mark func(context.Context) (*core.Judgment, error)) (*core.Judgment, error) {
	judgment, err := mark(ctx)
	if err != nil {
		return nil, h.handleErr(ctx, "game", err)
	}

	var message string
	switch {
	case judgment.GameOver:
		h.recorder.RecordJudgment("win")
		message = h.localizer.T("notify.winner", judgment.Winner.Player, judgment.Winner.Score)
	case judgment.Correct:
		h.recorder.RecordJudgment("correct")
		message = h.localizer.T("notify.correct", judgment.Player, judgment.Score)
	default:
		h.recorder.RecordJudgment("wrong")
		message = h.localizer.T("notify.wrong", judgment.Player, judgment.Score)
	}

	snapshot := h.Snapshot(ctx)
	h.notifier.Broadcast(Event{Type: EventJudgment, Message: message, Snapshot: &snapshot})

	return judgment, nil
}

// CheckGuess scores a typed guess against the running track without judging.
func (h *Host) CheckGuess(guess fuzzy.Guess) (fuzzy.Verdict, error) {
	return h.game.CheckGuess(guess)
}

// AnnounceDevice is called by the browser player once it has a device id.
func (h *Host) AnnounceDevice(ctx context.Context, deviceID string) {
	wasReady := h.device.IsReady()
	h.device.Announce(deviceID)

	if !wasReady && h.device.IsReady() {
		snapshot := h.Snapshot(ctx)
		h.notifier.Broadcast(Event{
			Type:     EventNotification,
			Message:  h.localizer.T("notify.device_ready"),
			Snapshot: &snapshot,
		})
	}
}

// ReportDeviceError handles an error event of the browser player. Only a
// session error is returned; everything else becomes a notification.
func (h *Host) ReportDeviceError(ctx context.Context, kind, message string) error {
	err := h.device.ReportError(kind, message)
	if core.IsSessionError(err) {
		return h.handleErr(ctx, "playback", err)
	}

	h.recorder.RecordError("playback", kind)
	h.notifier.Broadcast(Event{Type: EventNotification, Message: h.localizer.Error(err)})
	return nil
}

// PlayScanned plays the track encoded in a scanned card. It does not touch
// the game state.
func (h *Host) PlayScanned(ctx context.Context, scanned string) (string, error) {
	uri, err := text.TrackURI(scanned)
	if err != nil {
		return "", err
	}

	if err := h.device.Play(ctx, uri); err != nil {
		return "", h.handleErr(ctx, "playback", err)
	}

	h.logger.Info("Playing scanned card", zap.String("uri", uri))
	return uri, nil
}

// SuggestCategories proposes categories for the loaded playlist.
func (h *Host) SuggestCategories(ctx context.Context, count int) ([]string, error) {
	sample := h.game.Sample(suggestionSampleSize)
	if len(sample) == 0 {
		return nil, core.ErrNoTracksAvailable
	}

	categories, err := h.llm.SuggestCategories(ctx, sample, count)
	if err != nil {
		return nil, h.handleErr(ctx, "llm", err)
	}
	return categories, nil
}

// Cards returns the printable cards of the loaded playlist.
func (h *Host) Cards() ([]cards.Card, error) {
	tracks := h.game.Tracks()
	if len(tracks) == 0 {
		return nil, core.ErrNoTracksAvailable
	}
	return cards.Build(tracks), nil
}

// Snapshot is the complete view state.
func (h *Host) Snapshot(ctx context.Context) core.Snapshot {
	snapshot := h.game.Snapshot()
	snapshot.Authenticated = h.auth.IsAuthenticated(ctx)
	snapshot.DeviceReady = h.device.IsReady()
	return snapshot
}

func (h *Host) snapshotPtr(ctx context.Context) *core.Snapshot {
	snapshot := h.Snapshot(ctx)
	return &snapshot
}

func (h *Host) broadcastState(ctx context.Context) {
	h.notifier.Broadcast(Event{Type: EventState, Snapshot: h.snapshotPtr(ctx)})
}

// handleErr records err and turns a session error into a full logout.
func (h *Host) handleErr(ctx context.Context, component string, err error) error {
	if err == nil {
		return nil
	}

	h.recorder.RecordError(component, i18n.ErrorKey(err))

	if core.IsSessionError(err) {
		h.logger.Warn("Session is no longer valid, logging out",
			zap.String("component", component),
			zap.Error(err))
		if logoutErr := h.Logout(ctx); logoutErr != nil {
			h.logger.Error("Logout after session error failed", zap.Error(logoutErr))
		}
	}

	return err
}

type nopRecorder struct{}

func (nopRecorder) RecordRound(string) {}
func (nopRecorder) RecordJudgment(string) {}
func (nopRecorder) RecordError(string, string) {}
func (nopRecorder) RecordPlaylistLoad(string, time.Duration) {}
func (nopRecorder) SetTracksRemaining(int) {}

type nopNotifier struct{}

func (nopNotifier) Broadcast(Event) {}
