// Package ai generates style-mimicking replies through a local Ollama
// endpoint. Any failure degrades to an empty reply — the caller falls back
// to a canned line, never an error message in chat.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"
)

// HistoryItem is one recent chat line fed into the prompt.
type HistoryItem struct {
	Username string
	Text     string
}

// Config controls the Ollama client.
type Config struct {
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "http://127.0.0.1:11434"
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Model == "" {
		c.Model = "qwen2.5:1.5b"
	}
	if c.MaxTokens < 12 {
		c.MaxTokens = 32
	}
	if c.MaxTokens > 96 {
		c.MaxTokens = 96
	}
	if c.Timeout < 10*time.Second {
		c.Timeout = 45 * time.Second
	}
	if c.Timeout > 120*time.Second {
		c.Timeout = 120 * time.Second
	}
}

// Client calls the Ollama /api/chat endpoint.
type Client struct {
	cfg   Config
	vocab []string
	http  *http.Client

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Client. vocab seeds both the prompt and the post-processing
// injection; rng drives the randomized post-processing.
func New(cfg Config, vocab []string, rng *rand.Rand) *Client {
	cfg.applyDefaults()
	return &Client{
		cfg:   cfg,
		vocab: vocab,
		http:  &http.Client{Timeout: cfg.Timeout},
		rng:   rng,
	}
}

// FallbackText returns a random vocabulary word for when generation fails.
func (c *Client) FallbackText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vocab[c.rng.Intn(len(c.vocab))]
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Stream   bool          `json:"stream"`
	Messages []chatMessage `json:"messages"`
	Options  struct {
		Temperature float64 `json:"temperature"`
		NumPredict  int     `json:"num_predict"`
		NumCtx      int     `json:"num_ctx"`
		TopK        int     `json:"top_k"`
	} `json:"options"`
	KeepAlive string `json:"keep_alive"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Response string `json:"response"`
}

// GenerateStyleReply asks the model for one short reply in styleUsername's
// manner. Returns "" when generation failed or produced nothing usable.
func (c *Client) GenerateStyleReply(ctx context.Context, userMessage, styleUsername string, history []HistoryItem, styleExamples []string) string {
	userMessage = strings.TrimSpace(userMessage)
	if userMessage == "" {
		return ""
	}

	req := chatRequest{
		Model:     c.cfg.Model,
		Stream:    false,
		KeepAlive: "30m",
		Messages: []chatMessage{
			{Role: "system", Content: c.systemPrompt(styleUsername)},
			{Role: "user", Content: c.userPrompt(userMessage, styleUsername, history, styleExamples)},
		},
	}
	req.Options.Temperature = 0.6
	req.Options.NumPredict = c.cfg.MaxTokens
	req.Options.NumCtx = 512
	req.Options.TopK = 20

	body, err := json.Marshal(req)
	if err != nil {
		return ""
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return ""
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		slog.Warn("ollama request failed", "model", c.cfg.Model, "error", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("ollama /api/chat failed", "status", resp.StatusCode, "model", c.cfg.Model)
		return ""
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		slog.Warn("ollama decode failed", "error", err)
		return ""
	}

	content := parsed.Message.Content
	if content == "" {
		content = parsed.Response
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}

	final := EnforceStreetStyle(trimText(content, 700))
	if final == "" {
		return ""
	}
	if ContainsNonTargetLanguage(final) {
		return c.FallbackText()
	}
	return c.injectVocab(final)
}

func (c *Client) systemPrompt(styleUsername string) string {
	return "Ты телеграм бот для группы. " +
		"Отвечай только на казахском кириллицей и иногда вставляй русские слова. " +
		"Не используй узбекский или кыргызский язык. " +
		fmt.Sprintf("Держи стиль общения пользователя @%s. ", styleUsername) +
		"Тон грубый дерзкий без уважения без вежливости. " +
		"Не говори что ты ИИ. " +
		"Не используй знаки препинания. " +
		"Чаще используй слова из словаря: " + strings.Join(c.vocab, ", ") + "."
}

func (c *Client) userPrompt(userMessage, styleUsername string, history []HistoryItem, styleExamples []string) string {
	var hist []string
	for _, item := range history {
		text := trimText(item.Text, 120)
		if text == "" {
			continue
		}
		name := strings.TrimSpace(item.Username)
		if name == "" {
			name = "user"
		}
		hist = append(hist, fmt.Sprintf("@%s: %s", name, text))
	}
	if len(hist) > 4 {
		hist = hist[len(hist)-4:]
	}

	var examples []string
	for _, text := range styleExamples {
		if trimmed := trimText(text, 90); trimmed != "" {
			examples = append(examples, "- "+trimmed)
		}
	}
	if len(examples) > 3 {
		examples = examples[len(examples)-3:]
	}

	historyBlock := strings.Join(hist, "\n")
	if historyBlock == "" {
		historyBlock = "none"
	}
	exampleBlock := strings.Join(examples, "\n")
	if exampleBlock == "" {
		exampleBlock = "none"
	}

	return fmt.Sprintf(
		"Recent chat context:\n%s\n\nStyle examples of @%s:\n%s\n\nCurrent user message:\n%s\n\nReturn one short reply in the same style.",
		historyBlock, styleUsername, exampleBlock, trimText(userMessage, 160))
}

// injectVocab appends a vocabulary word 70% of the time when the reply
// doesn't already contain one.
func (c *Client) injectVocab(text string) string {
	lowered := strings.ToLower(text)
	for _, word := range c.vocab {
		if strings.Contains(lowered, word) {
			return text
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rng.Float64() < 0.7 {
		return strings.TrimSpace(text + " " + c.vocab[c.rng.Intn(len(c.vocab))])
	}
	return text
}

func trimText(value string, limit int) string {
	text := strings.TrimSpace(value)
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return strings.TrimRight(string(runes[:limit-3]), " ") + "..."
}

// EnforceStreetStyle strips punctuation and lowercases the reply to match
// the persona's rough chat style.
func EnforceStreetStyle(text string) string {
	var b strings.Builder
	for _, r := range text {
		switch {
		case r == '_':
			b.WriteRune(' ')
		case isWordRune(r) || r == ' ' || r == '\n' || r == '\t':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.ToLower(strings.Join(strings.Fields(b.String()), " "))
}

func isWordRune(r rune) bool {
	return r == '_' ||
		(r >= '0' && r <= '9') ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= 0x0400 && r <= 0x04FF) // Cyrillic block
}

var nonTargetMarkers = []string{
	"эмне", "жана", "болот", "кылам", "кыл", "сураныч",
	"nima", "rahmat", "yaxshi", "qalesan", "bo ladi",
}

// ContainsNonTargetLanguage flags replies that drifted into Latin script or
// known Uzbek/Kyrgyz markers — those get replaced with a canned fallback.
func ContainsNonTargetLanguage(text string) bool {
	lowered := strings.ToLower(text)
	for _, r := range lowered {
		if r >= 'a' && r <= 'z' {
			return true
		}
	}
	for _, marker := range nonTargetMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
