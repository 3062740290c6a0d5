package score

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.carv.io"
	defaultTimeout = 10 * time.Second
	soulPath       = "/v1/user/soul"
)

// ErrNoScore is returned when the response carries no numeric soulScore.
var ErrNoScore = errors.New("response has no numeric soulScore")

// CARVConfig describes how to reach the CARV soul endpoint.
type CARVConfig struct {
	BaseURL string
	Timeout time.Duration
}

// CARVClient queries GET /v1/user/soul?walletAddress=... .
type CARVClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewCARVClient builds a client, defaulting the base URL and timeout.
func NewCARVClient(cfg CARVConfig) *CARVClient {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &CARVClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SoulScore implements Service.
func (c *CARVClient) SoulScore(ctx context.Context, address string) (int, error) {
	endpoint := c.baseURL + soulPath + "?walletAddress=" + url.QueryEscape(address)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("build score request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request score service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("score service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded struct {
		Data *struct {
			SoulScore *float64 `json:"soulScore"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return 0, fmt.Errorf("decode score response: %w", err)
	}
	if decoded.Data == nil || decoded.Data.SoulScore == nil {
		return 0, ErrNoScore
	}
	return toScore(*decoded.Data.SoulScore)
}

// toScore accepts only values an int represents exactly.
func toScore(v float64) (int, error) {
	if v != math.Trunc(v) || v < float64(math.MinInt) || v >= -float64(math.MinInt) {
		return 0, fmt.Errorf("%w: %v is not an integer score", ErrNoScore, v)
	}
	return int(v), nil
}
