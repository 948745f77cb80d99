package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const generatorSystemPrompt = "You are a helpful AI research assistant."

// Generate runs a single non-streaming chat completion over the prompt.
// Returns ErrUnavailable-wrapped errors on any failure; never a partial
// answer.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"model": c.cfg.ChatModel,
		"messages": []chatMessage{
			{Role: "system", Content: generatorSystemPrompt},
			{Role: "user", Content: prompt},
		},
		"temperature": c.cfg.Temperature,
		"stream":      false,
	}
	if c.cfg.MaxTokens > 0 {
		reqBody["max_tokens"] = c.cfg.MaxTokens
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal completion request failed: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("build completion request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: completion request failed: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read completion response failed: %v", ErrUnavailable, err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: completion response status %d: %s", ErrUnavailable, resp.StatusCode, string(raw))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%w: parse completion json failed: %v", ErrUnavailable, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion choices", ErrUnavailable)
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
