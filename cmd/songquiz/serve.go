package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"songquiz/internal/auth"
	"songquiz/internal/flood"
	"songquiz/internal/game"
	"songquiz/internal/host"
	httpserver "songquiz/internal/http"
	"songquiz/internal/i18n"
	"songquiz/internal/llm"
	"songquiz/internal/playback"
	"songquiz/internal/spotify"
	"songquiz/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the quiz web server (default)",
	RunE:  runServe,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Print the login URL as a terminal QR code and open it in the browser",
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := validateSpotifyConfig(); err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}
		link := loginURL()
		printLoginQR(link)
		openBrowser(link)
		return nil
	},
}

type services struct {
	kv         *store.SQLiteKV
	host       *host.Host
	httpServer *httpserver.Server
	refresher  *auth.Refresher
	hub        *httpserver.Hub
	limiter    *flood.Floodgate
}

func runServe(cmd *cobra.Command, _ []string) error {
	if viper.GetBool("generate-env-example") {
		return generateEnvExample(cmd)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting Song Quiz",
		zap.String("version", "1.0.0"),
		zap.String("llm_provider", config.LLM.Provider),
		zap.String("draw_mode", config.Game.DrawMode),
		zap.String("language", config.App.Language))

	if err := validateConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	svcs, err := initializeServices()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := svcs.kv.Close(); closeErr != nil {
			logger.Warn("Failed to close database", zap.Error(closeErr))
		}
	}()

	return runServices(ctx, svcs)
}

func initializeServices() (*services, error) {
	kv, err := store.OpenSQLite(config.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}

	state := store.NewStateStore(kv)
	tab := store.NewTabStore(store.NewMemoryKV())

	manager := auth.NewManager(&config.Spotify, state, tab, logger.Named("auth"))
	spotifyClient := spotify.NewClient(&config.Spotify, manager.TokenSource(), logger.Named("spotify"))
	bridge := playback.NewBridge(spotifyClient, &config.Game, config.Spotify.DeviceName, logger.Named("playback"))

	machine := game.NewMachine(state, spotifyClient, bridge,
		store.NewPlayedTracks(config.Store.PlayedCapacity, config.Store.PlayedFalsePositiveRate),
		logger.Named("game"),
		game.WithDrawMode(config.Game.DrawMode),
		game.WithPageSize(config.Game.PageSize))

	llmProvider, err := llm.NewProvider(&config.LLM, logger.Named("llm"))
	if err != nil {
		kv.Close()
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}

	metrics := httpserver.NewMetrics()
	refresher := auth.NewRefresher(manager, config.Game.RefreshInterval, metrics, logger.Named("refresher"))

	app := host.New(host.Components{
		Auth:      manager,
		Refresher: refresher,
		Game:      machine,
		Device:    bridge,
		Identity:  spotifyClient,
		LLM:       llmProvider,
		Recorder:  metrics,
		Localizer: i18n.NewLocalizer(config.App.Language),
	}, logger.Named("host"))

	hub := httpserver.NewHub(logger.Named("ws"), metrics.SetViewsConnected)
	app.SetNotifier(hub)

	limiter := flood.New(config.App.ScanLimitPerMinute)
	httpServer := httpserver.NewServer(&config.Server, app, hub, metrics, limiter,
		config.App.Language, logger.Named("http"))

	return &services{
		kv:         kv,
		host:       app,
		httpServer: httpServer,
		refresher:  refresher,
		hub:        hub,
		limiter:    limiter,
	}, nil
}

func runServices(ctx context.Context, svcs *services) error {
	if err := svcs.host.Resume(ctx); err != nil {
		logger.Warn("Failed to resume stored game", zap.Error(err))
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return svcs.httpServer.Start(gCtx)
	})

	g.Go(func() error {
		return svcs.refresher.Start(gCtx)
	})

	g.Go(func() error {
		return svcs.hub.Run(gCtx)
	})

	g.Go(func() error {
		return svcs.limiter.Run(gCtx)
	})

	logger.Info("Song Quiz started successfully",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)))

	if !svcs.host.Snapshot(ctx).Authenticated {
		link := loginURL()
		logger.Info("Not logged in", zap.String("login_url", link))
		if config.App.LoginQR {
			printLoginQR(link)
		}
		if config.App.OpenBrowser {
			openBrowser(link)
		}
	}

	if err := g.Wait(); err != nil {
		logger.Error("Song Quiz stopped with error", zap.Error(err))
		return err
	}

	logger.Info("Song Quiz stopped gracefully")
	return nil
}

func printLoginQR(link string) {
	localizer := i18n.NewLocalizer(config.App.Language)
	fmt.Println(localizer.T("login.scan_prompt"))
	qrterminal.GenerateHalfBlock(link, qrterminal.L, os.Stdout)
	fmt.Println(localizer.T("login.open_url", link))
}

func openBrowser(link string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", link)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", link)
	default:
		cmd = exec.Command("xdg-open", link)
	}

	if err := cmd.Start(); err != nil {
		logger.Debug("Failed to open browser", zap.String("url", link), zap.Error(err))
		return
	}
	go func() {
		_ = cmd.Wait()
	}()
}
