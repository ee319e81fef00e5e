// Package spotify wraps the Spotify Web API calls the quiz needs: playlist pages, devices and playback control.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/zmb3/spotify/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"songquiz/internal/core"
)

const (
	// ReleaseDateYearLength is the length of the year prefix of a release date
	ReleaseDateYearLength = 4
	// MaxPageSize is the largest page the playlist items endpoint accepts
	MaxPageSize = 50
)

// Client is the Spotify Web API client used for playlists, playback and the profile.
type Client struct {
	config *core.SpotifyConfig
	logger *zap.Logger
	client *spotify.Client
}

// NewClient builds an API client that asks tokens for a bearer token on every request.
func NewClient(config *core.SpotifyConfig, tokens oauth2.TokenSource, logger *zap.Logger) *Client {
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Source: tokens,
			Base:   http.DefaultTransport,
		},
	}

	var opts []spotify.ClientOption
	if config.APIBaseURL != "" {
		baseURL := config.APIBaseURL
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		opts = append(opts, spotify.WithBaseURL(baseURL))
	}

	return &Client{
		config: config,
		logger: logger,
		client: spotify.New(httpClient, opts...),
	}
}

// CurrentUser is the lightweight "whoami" liveness check. It returns the display name.
func (c *Client) CurrentUser(ctx context.Context) (string, error) {
	user, err := c.client.CurrentUser(ctx)
	if err != nil {
		return "", mapError("failed to get current user", err)
	}

	name := user.DisplayName
	if name == "" {
		name = user.ID
	}
	return name, nil
}

// PlaylistItems fetches one page of a playlist. Episodes and removed tracks
// are skipped but still counted in Fetched.
func (c *Client) PlaylistItems(ctx context.Context, playlistID string, offset, limit int) (*core.PlaylistPage, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}

	page, err := c.client.GetPlaylistItems(ctx, spotify.ID(playlistID),
		spotify.Limit(limit), spotify.Offset(offset))
	if err != nil {
		return nil, mapError("failed to get playlist items", err)
	}

	result := &core.PlaylistPage{
		Items:   make([]core.TrackItem, 0, len(page.Items)),
		Fetched: len(page.Items),
		Total:   int(page.Total),
	}

	for i := range page.Items {
		item := &page.Items[i]
		if item.Track.Track == nil || item.Track.Track.URI == "" {
			continue
		}
		result.Items = append(result.Items, convertTrack(item))
	}

	c.logger.Debug("Retrieved playlist page",
		zap.String("playlistID", playlistID),
		zap.Int("offset", offset),
		zap.Int("fetched", result.Fetched),
		zap.Int("tracks", len(result.Items)),
		zap.Int("total", result.Total))

	return result, nil
}

// Devices lists the Spotify Connect devices visible to the user.
func (c *Client) Devices(ctx context.Context) ([]core.Device, error) {
	devices, err := c.client.PlayerDevices(ctx)
	if err != nil {
		return nil, mapError("failed to get player devices", err)
	}

	result := make([]core.Device, 0, len(devices))
	for _, device := range devices {
		result = append(result, core.Device{
			ID:     device.ID.String(),
			Name:   device.Name,
			Type:   device.Type,
			Active: device.Active,
		})
	}
	return result, nil
}

// Play starts a single track on the given device.
func (c *Client) Play(ctx context.Context, deviceID, uri string) error {
	id := spotify.ID(deviceID)
	err := c.client.PlayOpt(ctx, &spotify.PlayOptions{
		DeviceID: &id,
		URIs:     []spotify.URI{spotify.URI(uri)},
	})
	if err != nil {
		return mapError("failed to start playback", err)
	}

	c.logger.Debug("Playback started", zap.String("deviceID", deviceID), zap.String("uri", uri))
	return nil
}

// Pause pauses playback on the given device.
func (c *Client) Pause(ctx context.Context, deviceID string) error {
	opts := &spotify.PlayOptions{}
	if deviceID != "" {
		id := spotify.ID(deviceID)
		opts.DeviceID = &id
	}

	if err := c.client.PauseOpt(ctx, opts); err != nil {
		return mapError("failed to pause playback", err)
	}
	return nil
}

func convertTrack(item *spotify.PlaylistItem) core.TrackItem {
	track := item.Track.Track

	artists := make([]string, 0, len(track.Artists))
	for _, artist := range track.Artists {
		artists = append(artists, artist.Name)
	}

	var year string
	if len(track.Album.ReleaseDate) >= ReleaseDateYearLength {
		year = track.Album.ReleaseDate[:ReleaseDateYearLength]
	}

	var addedBy *string
	if item.AddedBy.ID != "" {
		id := item.AddedBy.ID
		addedBy = &id
	}

	return core.TrackItem{
		URI:         string(track.URI),
		Name:        track.Name,
		Artists:     artists,
		ReleaseYear: year,
		AddedBy:     addedBy,
	}
}

// mapError turns provider responses into the core error taxonomy: a 401 means
// the session expired, transport failures are network errors.
func mapError(op string, err error) error {
	if errors.Is(err, core.ErrNotAuthenticated) {
		return fmt.Errorf("%s: %w", op, core.ErrNotAuthenticated)
	}

	if status, ok := statusOf(err); ok {
		if status == http.StatusUnauthorized {
			return fmt.Errorf("%s: %w: %w", op, core.ErrSessionExpired, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w: %w", op, core.ErrNetwork, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}

func statusOf(err error) (int, bool) {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		return apiErr.Status, true
	}
	var apiErrPtr *spotify.Error
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Status, true
	}
	return 0, false
}
