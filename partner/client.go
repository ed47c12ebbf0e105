// Package partner fetches cumulative participant earnings from the upstream
// partner API. The payload is decoded into an explicit shape and validated
// here, before any eligibility computation sees it.
package partner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"racepool/models"
)

// Client is an HTTP client for the partner earnings feed.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Config holds partner client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// NewClient creates a new partner feed client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("partner base URL required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// feedResponse is the exact wire shape the partner serves. Anything that does
// not fit is rejected rather than passed through.
type feedResponse struct {
	Success bool      `json:"success"`
	Data    []feedRow `json:"data"`
}

type feedRow struct {
	ParticipantID      string `json:"participantId"`
	CumulativeEarnings int64  `json:"cumulativeEarnings"`
}

// GetParticipantEarnings fetches and validates the current cumulative earnings
// for all participants.
func (c *Client) GetParticipantEarnings(ctx context.Context) ([]*models.ParticipantEarnings, error) {
	url := c.baseURL + "/participants"

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch participant earnings: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("partner feed returned status %d", resp.StatusCode)
	}

	var feed feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decode partner feed: %w", err)
	}

	if !feed.Success {
		return nil, fmt.Errorf("partner feed reported failure")
	}

	participants := make([]*models.ParticipantEarnings, 0, len(feed.Data))
	for i, row := range feed.Data {
		if strings.TrimSpace(row.ParticipantID) == "" {
			return nil, fmt.Errorf("partner feed row %d: empty participant id", i)
		}
		if row.CumulativeEarnings < 0 {
			return nil, fmt.Errorf("partner feed row %d (%s): negative cumulative earnings %d",
				i, row.ParticipantID, row.CumulativeEarnings)
		}
		participants = append(participants, &models.ParticipantEarnings{
			ParticipantID:      row.ParticipantID,
			CumulativeEarnings: row.CumulativeEarnings,
		})
	}

	return participants, nil
}
