// Package main provides the Song Quiz CLI application entry point.
package main

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"songquiz/internal/core"
	"songquiz/internal/i18n"
)

const (
	defaultServerHost = "0.0.0.0"
	envPrefix         = "SONGQUIZ"
	noneProvider      = "none"
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "songquiz",
	Short: "Song Quiz - guess the song party game on Spotify",
	Long: `Song Quiz plays random tracks from a Spotify playlist in the browser. Players take turns
guessing the title, the artist or the year; the host judges each guess until someone wins.`,
	RunE: runServe,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := core.DefaultConfig()
	supportedLangs := strings.Join(i18n.GetSupportedLanguages(), ", ")

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is .env)")
	flags.String("log-level", defaults.Log.Level, "log level (debug, info, warn, error)")
	flags.String("log-format", defaults.Log.Format, "log format (json, text)")
	flags.String("spotify-client-id", "", "Spotify client ID")
	flags.String("spotify-redirect-url", "", "OAuth redirect URL (default: derived from server host and port)")
	flags.String("spotify-device-name", "", "Spotify Connect device to play on instead of the browser player")
	flags.String("draw-mode", defaults.Game.DrawMode,
		fmt.Sprintf("track draw mode (%s, %s)", core.DrawWithoutReplacement, core.DrawWithReplacement))
	flags.Int("page-size", defaults.Game.PageSize, "playlist page size")
	flags.Duration("refresh-interval", defaults.Game.RefreshInterval, "access token refresh interval")
	flags.Duration("device-ready-timeout", defaults.Game.DeviceReadyTimeout, "how long a round waits for the player")
	flags.String("db-path", defaults.Store.Path, "SQLite database path")
	flags.Int("played-capacity", defaults.Store.PlayedCapacity, "maximum number of remembered played tracks")
	flags.String("llm-provider", defaults.LLM.Provider, "LLM provider (openai, anthropic, ollama, none)")
	flags.String("llm-model", "", "LLM model name")
	flags.String("llm-api-key", "", "LLM API key")
	flags.String("llm-base-url", "", "LLM base URL (Ollama)")
	flags.Int("llm-max-suggestions", defaults.LLM.MaxSuggestions, "maximum number of suggested categories")
	flags.String("server-host", defaultServerHost, "HTTP server host")
	flags.Int("server-port", defaults.Server.Port, "HTTP server port")
	flags.String("language", i18n.DefaultLanguage, fmt.Sprintf("Fallback language (%s)", supportedLangs))
	flags.Int("scan-limit-per-minute", defaults.App.ScanLimitPerMinute, "Maximum scan and refresh requests per client per minute")
	flags.Bool("open-browser", defaults.App.OpenBrowser, "Open the login page in the default browser on start")
	flags.Bool("login-qr", defaults.App.LoginQR, "Print the login URL as a terminal QR code when not logged in")
	flags.Bool("generate-env-example", false, "Generate .env.example file from current configuration and exit")

	if err := viper.BindPFlags(flags); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(serveCmd, loginCmd, cardsCmd)
}

func initConfig() {
	envFile := ".env"
	if cfgFile != "" {
		envFile = cfgFile
	}

	if err := gotenv.Load(envFile); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	config = buildConfig()
	logger = buildLogger(config.Log.Level, config.Log.Format)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	configureServer(cfg)
	configureSpotify(cfg)
	configureGame(cfg)
	configureStore(cfg)
	configureLLM(cfg)
	configureApp(cfg)

	return cfg
}

func configureServer(cfg *core.Config) {
	cfg.Server.Host = viper.GetString("server-host")
	if cfg.Server.Host == "" {
		cfg.Server.Host = defaultServerHost
	}
	cfg.Server.Port = viper.GetInt("server-port")
	cfg.Log.Level = viper.GetString("log-level")
	cfg.Log.Format = viper.GetString("log-format")
}

func configureSpotify(cfg *core.Config) {
	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.DeviceName = viper.GetString("spotify-device-name")

	cfg.Spotify.RedirectURL = viper.GetString("spotify-redirect-url")
	if cfg.Spotify.RedirectURL == "" {
		serverHost := cfg.Server.Host
		if serverHost == defaultServerHost {
			// the provider only accepts loopback IPs for plain http callbacks
			serverHost = "127.0.0.1"
		}
		cfg.Spotify.RedirectURL = fmt.Sprintf("http://%s:%d/callback", serverHost, cfg.Server.Port)
	}
}

func configureGame(cfg *core.Config) {
	cfg.Game.DrawMode = viper.GetString("draw-mode")
	if cfg.Game.DrawMode != core.DrawWithReplacement && cfg.Game.DrawMode != core.DrawWithoutReplacement {
		fmt.Fprintf(os.Stderr, "Warning: Unknown draw mode '%s', using '%s'\n",
			cfg.Game.DrawMode, core.DrawWithoutReplacement)
		cfg.Game.DrawMode = core.DrawWithoutReplacement
	}

	cfg.Game.PageSize = viper.GetInt("page-size")
	if cfg.Game.PageSize <= 0 || cfg.Game.PageSize > core.DefaultPageSize {
		cfg.Game.PageSize = core.DefaultPageSize
	}

	cfg.Game.RefreshInterval = viper.GetDuration("refresh-interval")
	if cfg.Game.RefreshInterval <= 0 {
		cfg.Game.RefreshInterval = core.DefaultRefreshInterval
	}

	cfg.Game.DeviceReadyTimeout = viper.GetDuration("device-ready-timeout")
	if cfg.Game.DeviceReadyTimeout <= 0 {
		cfg.Game.DeviceReadyTimeout = core.DefaultDeviceReadyTimeout
	}
}

func configureStore(cfg *core.Config) {
	cfg.Store.Path = viper.GetString("db-path")
	cfg.Store.PlayedCapacity = viper.GetInt("played-capacity")
	if cfg.Store.PlayedCapacity <= 0 {
		cfg.Store.PlayedCapacity = core.DefaultPlayedCapacity
	}
}

func configureLLM(cfg *core.Config) {
	cfg.LLM.Provider = viper.GetString("llm-provider")
	cfg.LLM.Model = viper.GetString("llm-model")
	cfg.LLM.APIKey = viper.GetString("llm-api-key")
	cfg.LLM.BaseURL = viper.GetString("llm-base-url")
	cfg.LLM.MaxSuggestions = viper.GetInt("llm-max-suggestions")
}

func configureApp(cfg *core.Config) {
	cfg.App.Language = viper.GetString("language")
	if cfg.App.Language == "" {
		cfg.App.Language = i18n.DefaultLanguage
	}

	supportedLanguages := i18n.GetSupportedLanguages()
	if !slices.Contains(supportedLanguages, cfg.App.Language) {
		fmt.Fprintf(os.Stderr, "Warning: Unsupported language '%s', falling back to '%s'. Supported languages: %s\n",
			cfg.App.Language, i18n.DefaultLanguage, strings.Join(supportedLanguages, ", "))
		cfg.App.Language = i18n.DefaultLanguage
	}

	cfg.App.ScanLimitPerMinute = viper.GetInt("scan-limit-per-minute")
	cfg.App.OpenBrowser = viper.GetBool("open-browser")
	cfg.App.LoginQR = viper.GetBool("login-qr")
}

func buildLogger(level, format string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	if strings.EqualFold(format, "text") {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func validateConfig() error {
	if err := validateSpotifyConfig(); err != nil {
		return err
	}
	return validateLLMConfig()
}

func validateSpotifyConfig() error {
	if config.Spotify.ClientID == "" {
		return fmt.Errorf("spotify client ID is required")
	}

	redirect, err := url.Parse(config.Spotify.RedirectURL)
	if err != nil || redirect.Scheme == "" || redirect.Host == "" {
		return fmt.Errorf("invalid spotify redirect URL: %q", config.Spotify.RedirectURL)
	}

	return nil
}

func validateLLMConfig() error {
	if config.LLM.Provider != noneProvider && config.LLM.Provider != "" {
		if config.LLM.APIKey == "" && config.LLM.Provider != "ollama" {
			return fmt.Errorf("LLM API key is required for provider: %s", config.LLM.Provider)
		}
	}
	return nil
}

// loginURL is the local page that starts the login flow. It lives next to
// the redirect URL so the PKCE tab storage and the callback share one origin.
func loginURL() string {
	redirect, err := url.Parse(config.Spotify.RedirectURL)
	if err != nil {
		return fmt.Sprintf("http://127.0.0.1:%d/login", config.Server.Port)
	}
	redirect.Path = "/login"
	redirect.RawQuery = ""
	return redirect.String()
}
