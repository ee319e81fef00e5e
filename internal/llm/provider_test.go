package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"

	"songquiz/internal/core"
)

type fakeCompleter struct {
	response string
	err      error
	system   string
	user     string
}

func (f *fakeCompleter) complete(_ context.Context, system, user string) (string, error) {
	f.system = system
	f.user = user
	return f.response, f.err
}

func sampleTracks() []core.TrackItem {
	return []core.TrackItem{
		{URI: "spotify:track:1", Name: "Wonderwall", Artists: []string{"Oasis"}, ReleaseYear: "1995"},
		{URI: "spotify:track:2", Name: "Song 2", Artists: []string{"Blur"}},
	}
}

func TestSuggestCategories(t *testing.T) {
	client := &fakeCompleter{response: "```json\n{\"categories\": [\"Release year\", \" \", \"Artist\", \"release year\", \"Decade\"]}\n```"}
	provider := &Provider{config: &core.LLMConfig{Provider: "fake", MaxSuggestions: 5}, logger: zap.NewNop(), client: client}

	categories, err := provider.SuggestCategories(context.Background(), sampleTracks(), 2)
	if err != nil {
		t.Fatalf("SuggestCategories() error = %v", err)
	}

	if want := []string{"Release year", "Artist"}; !reflect.DeepEqual(categories, want) {
		t.Errorf("categories = %v, want %v", categories, want)
	}
	if !strings.Contains(client.user, "- Oasis - Wonderwall (1995)") || !strings.Contains(client.user, "- Blur - Song 2\n") {
		t.Errorf("user prompt = %q", client.user)
	}
	if client.system != systemPrompt {
		t.Error("system prompt not sent")
	}
}

func TestSuggestCategories_Failures(t *testing.T) {
	tests := []struct {
		name   string
		client *fakeCompleter
	}{
		{"api error", &fakeCompleter{err: errors.New("rate limited")}},
		{"not json", &fakeCompleter{response: "Sure! Here are some ideas"}},
		{"no categories", &fakeCompleter{response: `{"categories": []}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &Provider{config: &core.LLMConfig{MaxSuggestions: 5}, logger: zap.NewNop(), client: tt.client}
			if _, err := provider.SuggestCategories(context.Background(), sampleTracks(), 3); err == nil {
				t.Error("SuggestCategories() should fail")
			}
		})
	}
}

func TestNewProvider(t *testing.T) {
	provider, err := NewProvider(&core.LLMConfig{Provider: "none"}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewProvider(none) error = %v", err)
	}
	if provider.Enabled() {
		t.Error("Enabled() = true for provider none")
	}
	if _, err := provider.SuggestCategories(context.Background(), sampleTracks(), 3); !errors.Is(err, core.ErrLLMDisabled) {
		t.Errorf("SuggestCategories() error = %v, want ErrLLMDisabled", err)
	}

	if _, err := NewProvider(&core.LLMConfig{Provider: "openai"}, zap.NewNop()); err == nil {
		t.Error("NewProvider(openai) without key should fail")
	}
	if _, err := NewProvider(&core.LLMConfig{Provider: "anthropic"}, zap.NewNop()); err == nil {
		t.Error("NewProvider(anthropic) without key should fail")
	}
	if _, err := NewProvider(&core.LLMConfig{Provider: "gemini"}, zap.NewNop()); err == nil {
		t.Error("NewProvider(gemini) should fail")
	}
}

func TestOllamaClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/generate" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}

		var req OllamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "mistral" || req.Format != "json" || req.Stream {
			t.Errorf("request = %+v", req)
		}

		_ = json.NewEncoder(w).Encode(OllamaResponse{
			Response: `{"categories": ["Genre"]}`,
			Done:     true,
		})
	}))
	defer server.Close()

	provider, err := NewProvider(&core.LLMConfig{
		Provider:       "ollama",
		Model:          "mistral",
		BaseURL:        server.URL + "/",
		MaxSuggestions: 5,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	categories, err := provider.SuggestCategories(context.Background(), sampleTracks(), 0)
	if err != nil {
		t.Fatalf("SuggestCategories() error = %v", err)
	}
	if len(categories) != 1 || categories[0] != "Genre" {
		t.Errorf("categories = %v", categories)
	}
}

func TestOllamaClient_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, _ := NewOllamaClient(&core.LLMConfig{BaseURL: server.URL}, zap.NewNop())
	if _, err := client.complete(context.Background(), "s", "u"); err == nil {
		t.Error("complete() should fail on a 500")
	}
}
