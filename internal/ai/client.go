// Package ai streams chat completions from an OpenAI-compatible endpoint.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/petermazzocco/go-dashboard/internal/logger"
)

const defaultBaseURL = "https://api.openai.com"

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Streamer produces a model reply incrementally. onDelta receives each text
// chunk as it arrives; returning an error from it aborts the stream. The
// full reply is returned on success.
type Streamer interface {
	StreamChat(ctx context.Context, model string, messages []Message, onDelta func(string) error) (string, error)
	Model() string
}

// HTTPError is a non-2xx response from the completions endpoint.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("ai http %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

type Options struct {
	BaseURL string
	APIKey  string
	Model   string
	// HTTPClient defaults to a client without an overall timeout, since a
	// stream may run for minutes. Cancellation comes from the context.
	HTTPClient *http.Client
}

func NewClient(log *logger.Logger, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("missing OPENAI_API_KEY")
	}
	if strings.TrimSpace(opts.Model) == "" {
		return nil, errors.New("missing model")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: 60 * time.Second,
			IdleConnTimeout:       90 * time.Second,
		}}
	}
	return &Client{
		log:        log.With("client", "ai"),
		baseURL:    baseURL,
		apiKey:     opts.APIKey,
		model:      opts.Model,
		httpClient: httpClient,
	}, nil
}

func (c *Client) Model() string { return c.model }

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// StreamChat posts the conversation with stream enabled and forwards every
// content delta. An empty model uses the client default. On failure the
// text received so far is returned along with the error.
func (c *Client) StreamChat(ctx context.Context, model string, messages []Message, onDelta func(string) error) (string, error) {
	if model == "" {
		model = c.model
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(chatRequest{Model: model, Messages: messages, Stream: true}); err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return "", &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var full strings.Builder
	err = readSSE(resp.Body, func(data string) error {
		if data == "[DONE]" {
			return errStreamDone
		}
		var chunk chatChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			c.log.Debug("skipping malformed stream chunk", "error", err)
			return nil
		}
		if chunk.Error != nil {
			return fmt.Errorf("ai stream error: %s", chunk.Error.Message)
		}
		if len(chunk.Choices) == 0 {
			return nil
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			return nil
		}
		full.WriteString(delta)
		if onDelta != nil {
			return onDelta(delta)
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStreamDone) {
		return full.String(), err
	}
	c.log.Debug("ai stream finished", "model", model, "chars", full.Len(), "duration", time.Since(start))
	return full.String(), nil
}
