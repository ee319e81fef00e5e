package core

import (
	"time"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
)

const (
	// DrawWithoutReplacement removes every drawn track from the live cache.
	DrawWithoutReplacement = "without-replacement"
	// DrawWithReplacement leaves drawn tracks in the cache.
	DrawWithReplacement = "with-replacement"

	// DefaultPageSize is the provider's maximum playlist page size.
	DefaultPageSize = 50
	// DefaultRefreshInterval is the fixed token refresh schedule.
	DefaultRefreshInterval = 30 * time.Minute
	// DefaultDeviceReadyTimeout caps how long a round waits for the playback device.
	DefaultDeviceReadyTimeout = 10 * time.Second
	// DefaultDevicePollInterval is the device readiness polling tick.
	DefaultDevicePollInterval = 200 * time.Millisecond
	// DefaultScanLimitPerMinute throttles scan and refresh requests per client.
	DefaultScanLimitPerMinute = 30
	// DefaultPlayedCapacity bounds the played-track set of a single game.
	DefaultPlayedCapacity = 10000
	// DefaultAPIBaseURL is the provider Web API root.
	DefaultAPIBaseURL = "https://api.spotify.com/v1/"
)

// DefaultScopes are the capabilities the Web Playback SDK and the game need.
var DefaultScopes = []string{
	spotifyauth.ScopeUserReadPlaybackState,
	spotifyauth.ScopeUserModifyPlaybackState,
	spotifyauth.ScopeStreaming,
	spotifyauth.ScopeUserReadEmail,
	spotifyauth.ScopeUserReadPrivate,
}

// Config is the complete application configuration.
type Config struct {
	Spotify SpotifyConfig
	Game    GameConfig
	Store   StoreConfig
	LLM     LLMConfig
	Server  ServerConfig
	Log     LogConfig
	App     AppConfig
}

// SpotifyConfig holds the public client registration and endpoints.
type SpotifyConfig struct {
	ClientID    string
	RedirectURL string
	AuthURL     string
	TokenURL    string
	APIBaseURL  string
	Scopes      []string
	// DeviceName selects a Spotify Connect device by name instead of waiting
	// for the browser player to announce itself.
	DeviceName string
}

// GameConfig tunes drawing, paging and playback timing.
type GameConfig struct {
	DrawMode           string
	PageSize           int
	RefreshInterval    time.Duration
	DeviceReadyTimeout time.Duration
	DevicePollInterval time.Duration
}

type StoreConfig struct {
	Path                    string
	PlayedCapacity          int
	PlayedFalsePositiveRate float64
}

// LLMConfig selects the optional category suggestion model.
type LLMConfig struct {
	Provider       string
	Model          string
	APIKey         string
	BaseURL        string
	MaxSuggestions int
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type AppConfig struct {
	Language           string
	ScanLimitPerMinute int
	OpenBrowser        bool
	LoginQR            bool
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return &Config{
		Spotify: SpotifyConfig{
			RedirectURL: "http://127.0.0.1:8080/callback",
			AuthURL:     spotifyauth.AuthURL,
			TokenURL:    spotifyauth.TokenURL,
			APIBaseURL:  DefaultAPIBaseURL,
			Scopes:      DefaultScopes,
		},
		Game: GameConfig{
			DrawMode:           DrawWithoutReplacement,
			PageSize:           DefaultPageSize,
			RefreshInterval:    DefaultRefreshInterval,
			DeviceReadyTimeout: DefaultDeviceReadyTimeout,
			DevicePollInterval: DefaultDevicePollInterval,
		},
		Store: StoreConfig{
			Path:                    "./songquiz.db",
			PlayedCapacity:          DefaultPlayedCapacity,
			PlayedFalsePositiveRate: 0.001,
		},
		LLM: LLMConfig{
			Provider:       "none",
			MaxSuggestions: 5,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		App: AppConfig{
			Language:           "en",
			ScanLimitPerMinute: DefaultScanLimitPerMinute,
			LoginQR:            true,
		},
	}
}
