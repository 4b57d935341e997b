// Package advisor turns optimization advice into operator prose via an
// OpenAI-compatible chat completion API.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	optimizationapp "github.com/YoussefMadkour/SmartGen-Energy-AI/internal/optimization/application"
)

const (
	defaultModel   = "gpt-4"
	temperature    = 0.1
	requestTimeout = 30 * time.Second
)

const systemPrompt = "You are an expert energy optimization advisor for industrial generators. Provide clear, actionable recommendations."

// Config holds the upstream API settings.
type Config struct {
	// BaseURL is the API root, e.g. https://api.openai.com/v1.
	BaseURL string
	APIKey  string
	Model   string
}

// Client is a minimal chat-completions client.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewClient constructs an advisor client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("advisor: empty base url")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("advisor: empty api key")
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   model,
		client:  &http.Client{Timeout: requestTimeout},
	}, nil
}

// Recommend renders the advice into a prompt and returns the model's
// completion text.
func (c *Client) Recommend(ctx context.Context, advice optimizationapp.Advice) (string, error) {
	body := chatRequest{
		Model:       c.model,
		Temperature: temperature,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: Prompt(advice)},
		},
	}

	var resp chatResponse
	if err := c.doJSON(ctx, http.MethodPost, "/chat/completions", body, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("advisor: no choices in completion")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("advisor: empty completion")
	}
	return text, nil
}

// Prompt renders the user message for one advice payload.
func Prompt(advice optimizationapp.Advice) string {
	return fmt.Sprintf(
		"Based on the generator usage analysis:\n"+
			"- Average power consumption: %.2f kW\n"+
			"- Lowest usage hours: %s\n"+
			"- Recommended shutdown window: %s to %s (%d hours)\n"+
			"- Daily savings: $%.2f\n"+
			"- Monthly savings: $%.2f\n\n"+
			"Provide a concise recommendation for the operator explaining the benefits of this shutdown window.",
		advice.AvgPowerKW,
		formatHours(advice.LowestHours),
		advice.WindowStart.UTC().Format("15:04"),
		advice.WindowEnd.UTC().Format("15:04"),
		advice.DurationHours,
		advice.DailySavingsUSD,
		advice.MonthlySavingsUSD,
	)
}

func formatHours(hours []int) string {
	if len(hours) == 0 {
		return "none"
	}
	parts := make([]string, len(hours))
	for i, h := range hours {
		parts[i] = strconv.Itoa(h)
	}
	return strings.Join(parts, ", ")
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("advisor: http %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
