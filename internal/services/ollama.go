package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/hyde/internal/shared"
)

const (
	DefaultOllamaURL = "http://localhost:11434"

	defaultOllamaTimeout = 30 * time.Second
	maxStreamLine        = 1 << 20
)

// Completion is a single-turn request to a language model.
type Completion struct {
	Model  string
	Prompt string
	// Images are base64 encoded, without a data URL prefix.
	Images []string
	// Format asks the model for structured output, e.g. "json".
	Format string
}

type chatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error,omitempty"`
}

// OllamaClient talks to the Ollama chat API.
type OllamaClient struct {
	baseURL    string
	httpClient *http.Client
	// streamClient has no overall deadline; a stream may outlive the completion timeout.
	streamClient *http.Client
}

func NewOllamaClient(baseURL string, timeout time.Duration) *OllamaClient {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	if timeout <= 0 {
		timeout = defaultOllamaTimeout
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: timeout}).DialContext,
		ResponseHeaderTimeout: timeout,
	}
	return &OllamaClient{
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: timeout},
		streamClient: &http.Client{Transport: transport},
	}
}

// BaseURL returns the Ollama host the client talks to.
func (c *OllamaClient) BaseURL() string { return c.baseURL }

// Complete sends req and waits for the whole answer.
func (c *OllamaClient) Complete(ctx context.Context, req Completion) (string, error) {
	resp, err := c.post(ctx, c.httpClient, req, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: ollama: decode response: %v", shared.ErrUpstream, err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("%w: ollama: %s", shared.ErrUpstream, parsed.Error)
	}
	if strings.TrimSpace(parsed.Message.Content) == "" {
		return "", fmt.Errorf("%w: ollama: empty response", shared.ErrUpstream)
	}
	return parsed.Message.Content, nil
}

// Stream sends req and forwards each content chunk to emit as it arrives.
func (c *OllamaClient) Stream(ctx context.Context, req Completion, emit func(chunk string) error) (string, error) {
	resp, err := c.post(ctx, c.streamClient, req, true)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStreamLine)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var chunk chatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return full.String(), fmt.Errorf("%w: ollama: decode chunk: %v", shared.ErrUpstream, err)
		}
		if chunk.Error != "" {
			return full.String(), fmt.Errorf("%w: ollama: %s", shared.ErrUpstream, chunk.Error)
		}
		if chunk.Message.Content != "" {
			full.WriteString(chunk.Message.Content)
			if err := emit(chunk.Message.Content); err != nil {
				return full.String(), err
			}
		}
		if chunk.Done {
			return full.String(), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return full.String(), fmt.Errorf("%w: ollama: read stream: %v", shared.ErrUpstream, err)
	}
	return full.String(), fmt.Errorf("%w: ollama: stream ended before completion", shared.ErrUpstream)
}

// Ping checks that the Ollama server answers.
func (c *OllamaClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("ollama: build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: ollama: request failed: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ollama: unexpected status %d", shared.ErrServiceUnavailable, resp.StatusCode)
	}
	return nil
}

func (c *OllamaClient) post(ctx context.Context, client *http.Client, req Completion, stream bool) (*http.Response, error) {
	payload := chatRequest{
		Model:  req.Model,
		Stream: stream,
		Format: req.Format,
		Messages: []chatMessage{
			{Role: "user", Content: req.Prompt, Images: req.Images},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("ollama: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ollama: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: ollama: request failed: %v", shared.ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: ollama: unexpected status %d", shared.ErrUpstream, resp.StatusCode)
	}
	return resp, nil
}
