// Package client is the HTTP side of the terminal chat client: the one-shot
// configuration fetch and the per-turn /kb call.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"kbchat/models"
)

// Client talks to one kbchat server. It carries no conversation state; the
// caller threads the session identifier between turns.
type Client struct {
	http   *resty.Client
	apiURL string
}

// New builds a client against an already-known API URL.
func New(apiURL string) *Client {
	return &Client{
		http:   resty.New().SetTimeout(60 * time.Second),
		apiURL: strings.TrimRight(apiURL, "/"),
	}
}

// FromConfig fetches /config.json from the base URL and builds a client
// against the endpoint it advertises. Called once at startup; a failure here
// leaves the UI in its permanent error state.
func FromConfig(ctx context.Context, baseURL string) (*Client, error) {
	http := resty.New().SetTimeout(10 * time.Second)

	resp, err := http.R().
		SetContext(ctx).
		Get(strings.TrimRight(baseURL, "/") + "/config.json")
	if err != nil {
		return nil, fmt.Errorf("config fetch: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("config fetch: status %d", resp.StatusCode())
	}

	var cfg models.ClientConfig
	if err := json.Unmarshal(resp.Body(), &cfg); err != nil {
		return nil, fmt.Errorf("config fetch: %w", err)
	}
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("config fetch: empty apiUrl")
	}

	return New(cfg.APIURL), nil
}

// APIURL returns the endpoint this client is bound to.
func (c *Client) APIURL() string {
	return c.apiURL
}

// Ask sends one prompt. sessionID is empty on the first turn and must be the
// value from the previous response afterwards.
func (c *Client) Ask(ctx context.Context, prompt, sessionID string) (*models.KBResponse, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(models.KBRequest{Prompt: prompt, SessionID: sessionID}).
		Post(c.apiURL + "/kb")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode())
	}

	var out models.KBResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &out, nil
}
