package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"songquiz/internal/core"
	"songquiz/internal/i18n"
)

func generateEnvExample(cmd *cobra.Command) error {
	fmt.Println("Generating .env.example file from current configuration...")

	content := generateEnvExampleContent(cmd)

	if err := os.WriteFile(".env.example", []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write .env.example: %w", err)
	}

	fmt.Println("✅ Successfully generated .env.example file")
	return nil
}

func generateEnvExampleContent(cmd *cobra.Command) string {
	var content strings.Builder

	content.WriteString("# =============================================================================\n")
	content.WriteString("# Song Quiz Configuration\n")
	content.WriteString("# =============================================================================\n")
	content.WriteString("#\n")
	content.WriteString("# Copy this file to .env and update with your values\n")
	content.WriteString("# All environment variables have CLI flag equivalents (use --help to see them)\n")
	content.WriteString("#\n")
	content.WriteString("# Format: SONGQUIZ_<SETTING>=value\n")
	content.WriteString("# CLI equivalent: --<setting>\n")
	content.WriteString("#\n\n")

	generateSpotifySection(&content, cmd)
	generateGameSection(&content, cmd)
	generateStoreSection(&content, cmd)
	generateLLMSection(&content, cmd)
	generateAppSection(&content, cmd)
	generateServerSection(&content, cmd)
	generateLoggingSection(&content, cmd)

	return content.String()
}

func flagToEnvVar(flagName string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

func getDefaultValueString(cmd *cobra.Command, flagName string) string {
	if f := cmd.Root().PersistentFlags().Lookup(flagName); f != nil {
		return f.DefValue
	}
	return ""
}

func sectionHeader(content *strings.Builder, title string, flags ...string) {
	content.WriteString("# -----------------------------------------------------------------------------\n")
	fmt.Fprintf(content, "# %s\n", title)
	content.WriteString("# -----------------------------------------------------------------------------\n")
	if len(flags) > 0 {
		fmt.Fprintf(content, "# CLI: --%s\n", strings.Join(flags, ", --"))
	}
}

// writeSetting emits one documented variable using the flag's default value.
func writeSetting(content *strings.Builder, cmd *cobra.Command, flagName, description string) {
	def := getDefaultValueString(cmd, flagName)
	fmt.Fprintf(content, "%s=%s  # %s (default: %s)\n", flagToEnvVar(flagName), def, description, def)
}

func generateSpotifySection(content *strings.Builder, _ *cobra.Command) {
	content.WriteString("# =============================================================================\n")
	content.WriteString("# SPOTIFY CONFIGURATION - Required\n")
	content.WriteString("# =============================================================================\n")
	content.WriteString("# Create an app at https://developer.spotify.com/dashboard, enable the Web API\n")
	content.WriteString("# and the Web Playback SDK and add the redirect URL below. No client secret is\n")
	content.WriteString("# needed: the login uses PKCE.\n")
	content.WriteString("# CLI: --spotify-client-id, --spotify-redirect-url, --spotify-device-name\n\n")

	fmt.Fprintf(content, "%s=your_spotify_client_id_here     # Spotify app client ID\n",
		flagToEnvVar("spotify-client-id"))
	fmt.Fprintf(content, "%s=http://127.0.0.1:8080/callback  # OAuth callback URL (default: auto-generated)\n",
		flagToEnvVar("spotify-redirect-url"))
	fmt.Fprintf(content, "# %s=Living Room                  # Play on a Connect device instead of the browser\n",
		flagToEnvVar("spotify-device-name"))
	content.WriteString("\n")
}

func generateGameSection(content *strings.Builder, cmd *cobra.Command) {
	sectionHeader(content, "Game", "draw-mode", "page-size", "refresh-interval", "device-ready-timeout")
	writeSetting(content, cmd, "draw-mode",
		fmt.Sprintf("%s or %s", core.DrawWithoutReplacement, core.DrawWithReplacement))
	writeSetting(content, cmd, "page-size", "Playlist page size, at most 50")
	writeSetting(content, cmd, "refresh-interval", "Access token refresh interval")
	writeSetting(content, cmd, "device-ready-timeout", "How long a round waits for the player")
	content.WriteString("\n")
}

func generateStoreSection(content *strings.Builder, cmd *cobra.Command) {
	sectionHeader(content, "Storage", "db-path", "played-capacity")
	writeSetting(content, cmd, "db-path", "SQLite file holding the session and the running game")
	writeSetting(content, cmd, "played-capacity", "Remembered played tracks per game")
	content.WriteString("\n")
}

func generateLLMSection(content *strings.Builder, cmd *cobra.Command) {
	content.WriteString("# =============================================================================\n")
	content.WriteString("# AI/LLM CONFIGURATION - Optional, suggests guessing categories\n")
	content.WriteString("# =============================================================================\n")
	content.WriteString("# CLI: --llm-provider, --llm-api-key, --llm-model, --llm-base-url\n")

	writeSetting(content, cmd, "llm-provider", "Provider: none, openai, anthropic, ollama")
	writeSetting(content, cmd, "llm-max-suggestions", "Maximum suggested categories")
	content.WriteString("\n")
	content.WriteString("# OpenAI: uncomment and set SONGQUIZ_LLM_PROVIDER=openai\n")
	fmt.Fprintf(content, "# %s=sk-...\n", flagToEnvVar("llm-api-key"))
	fmt.Fprintf(content, "# %s=gpt-4o-mini\n", flagToEnvVar("llm-model"))
	content.WriteString("\n")
	content.WriteString("# Anthropic: uncomment and set SONGQUIZ_LLM_PROVIDER=anthropic\n")
	fmt.Fprintf(content, "# %s=sk-ant-...\n", flagToEnvVar("llm-api-key"))
	fmt.Fprintf(content, "# %s=claude-3-haiku-20240307\n", flagToEnvVar("llm-model"))
	content.WriteString("\n")
	content.WriteString("# Ollama: uncomment and set SONGQUIZ_LLM_PROVIDER=ollama\n")
	fmt.Fprintf(content, "# %s=http://localhost:11434\n", flagToEnvVar("llm-base-url"))
	fmt.Fprintf(content, "# %s=llama3.2\n", flagToEnvVar("llm-model"))
	content.WriteString("\n")
}

func generateAppSection(content *strings.Builder, cmd *cobra.Command) {
	sectionHeader(content, "Application", "language", "scan-limit-per-minute", "open-browser", "login-qr")
	writeSetting(content, cmd, "language",
		"Fallback language: "+strings.Join(i18n.GetSupportedLanguages(), ", "))
	writeSetting(content, cmd, "scan-limit-per-minute", "Scan and refresh requests per client per minute, 0 disables")
	writeSetting(content, cmd, "open-browser", "Open the login page on start")
	writeSetting(content, cmd, "login-qr", "Print the login URL as a terminal QR code")
	content.WriteString("\n")
}

func generateServerSection(content *strings.Builder, cmd *cobra.Command) {
	sectionHeader(content, "HTTP Server", "server-host", "server-port")
	writeSetting(content, cmd, "server-host", "Server bind address")
	writeSetting(content, cmd, "server-port", "Server port")
	content.WriteString("\n")
}

func generateLoggingSection(content *strings.Builder, cmd *cobra.Command) {
	sectionHeader(content, "Logging", "log-level", "log-format")
	writeSetting(content, cmd, "log-level", "Log level: debug, info, warn, error")
	writeSetting(content, cmd, "log-format", "Log format: json, text")
}
