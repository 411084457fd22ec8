package groq

import (
	"net/http"
	"strings"
	"time"
)

// Client talks to an OpenAI-compatible chat/transcription API. The pipeline
// treats it as two opaque capabilities: content extraction and structure
// synthesis.
type Client struct {
	baseURL        string
	apiKey         string
	extractModel   string
	synthesisModel string
	transcribeModel string
	httpClient     *http.Client
}

func New(baseURL, apiKey, extractModel, synthesisModel, transcribeModel string) *Client {
	return &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		apiKey:          apiKey,
		extractModel:    extractModel,
		synthesisModel:  synthesisModel,
		transcribeModel: transcribeModel,
		httpClient:      &http.Client{Timeout: 120 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string         `json:"type"`
	Text     string         `json:"text,omitempty"`
	ImageURL *imageURLValue `json:"image_url,omitempty"`
}

type imageURLValue struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// extractJSONObject trims model chatter around the first JSON object in a
// completion. Models wrap JSON in prose or code fences often enough that
// this stays load-bearing.
func extractJSONObject(raw string) string {
	raw = stripCodeFence(raw)
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func extractJSONArray(raw string) string {
	raw = stripCodeFence(raw)
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func stripCodeFence(raw string) string {
	if idx := strings.Index(raw, "```json"); idx >= 0 {
		raw = raw[idx+len("```json"):]
	} else if idx := strings.Index(raw, "```"); idx >= 0 {
		raw = raw[idx+3:]
	}
	if idx := strings.LastIndex(raw, "```"); idx >= 0 {
		raw = raw[:idx]
	}
	return strings.TrimSpace(raw)
}
