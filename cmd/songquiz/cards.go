package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"songquiz/internal/auth"
	"songquiz/internal/cards"
	"songquiz/internal/game"
	"songquiz/internal/spotify"
	"songquiz/internal/store"
	"songquiz/pkg/text"
)

var cardsCmd = &cobra.Command{
	Use:   "cards <playlist-url>",
	Short: "Write printable QR cards for every track of a playlist",
	Long: `cards loads a playlist with the stored login and writes one QR code PNG per track
plus a cards.json with title, artists and year for the back side. Log in with
the web server first.`,
	Args: cobra.ExactArgs(1),
	RunE: runCards,
}

func init() {
	cardsCmd.Flags().String("out", "cards", "output directory")
	cardsCmd.Flags().Int("qr-size", cards.DefaultQRSize, "QR code edge length in pixels")
}

func runCards(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	playlistID, err := text.PlaylistID(args[0])
	if err != nil {
		return err
	}

	outDir, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}
	size, err := cmd.Flags().GetInt("qr-size")
	if err != nil {
		return err
	}

	kv, err := store.OpenSQLite(config.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}
	defer kv.Close()

	state := store.NewStateStore(kv)
	manager := auth.NewManager(&config.Spotify, state, store.NewTabStore(store.NewMemoryKV()), logger.Named("auth"))
	if !manager.IsAuthenticated(ctx) {
		return fmt.Errorf("not logged in: open %s first", loginURL())
	}
	if err := manager.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to refresh session: %w", err)
	}

	client := spotify.NewClient(&config.Spotify, manager.TokenSource(), logger.Named("spotify"))
	tracks, err := game.FetchPlaylist(ctx, client, playlistID, config.Game.PageSize)
	if err != nil {
		return fmt.Errorf("failed to load playlist: %w", err)
	}

	deck := cards.Build(tracks)
	if err := cards.WriteDeck(outDir, deck, size); err != nil {
		return err
	}

	logger.Info("Cards written",
		zap.String("playlist_id", playlistID),
		zap.Int("cards", len(deck)),
		zap.String("dir", outDir))
	return nil
}
