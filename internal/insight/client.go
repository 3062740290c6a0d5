// Package insight requests a short AI-generated blurb about a wallet's soul
// score from the insight proxy.
package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	xerrors "soul-scanner/internal/errors"
	"soul-scanner/pkg/logger"
)

// DefaultCarvUID is sent when the user leaves the CARV UID empty.
const DefaultCarvUID = "Not Provided"

const defaultTimeout = 30 * time.Second

// Request is the JSON body accepted by the insight proxy.
type Request struct {
	Wallet    string `json:"wallet"`
	CarvUID   string `json:"carvUid,omitempty"`
	SoulScore int    `json:"soulScore"`
}

// Response lists every field the proxy may put the insight text in.
type Response struct {
	Answer  string `json:"answer,omitempty"`
	Insight string `json:"insight,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// UnmarshalJSON decodes each field on its own and leaves fields that are not
// JSON strings empty, so one malformed field does not hide the others.
func (r *Response) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*r = Response{
		Answer:  stringField(fields, "answer"),
		Insight: stringField(fields, "insight"),
		Message: stringField(fields, "message"),
		Error:   stringField(fields, "error"),
	}
	return nil
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return ""
	}
	return value
}

// Text returns the first non-empty of answer, insight and message.
func (r Response) Text() (string, bool) {
	for _, candidate := range []string{r.Answer, r.Insight, r.Message} {
		if candidate != "" {
			return candidate, true
		}
	}
	return "", false
}

// Config describes where the insight proxy lives.
type Config struct {
	Endpoint   string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client posts scan context to the insight proxy.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient builds a client for the given proxy endpoint.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{endpoint: strings.TrimSpace(cfg.Endpoint), httpClient: httpClient}
}

// Request asks for an insight. It reports false on any transport or decoding
// failure, or when the response carries no insight text. The status code is
// not inspected: error bodies simply have no insight field.
func (c *Client) Request(ctx context.Context, wallet, carvUID string, soulScore int) (string, bool) {
	log := logger.Named("insight")

	if strings.TrimSpace(carvUID) == "" {
		carvUID = DefaultCarvUID
	}
	payload, err := json.Marshal(Request{Wallet: wallet, CarvUID: carvUID, SoulScore: soulScore})
	if err != nil {
		log.Error("encode insight request failed", slog.Any("error", err))
		return "", false
	}

	resp, err := c.post(ctx, payload)
	if err != nil {
		failure := xerrors.Wrap(xerrors.Classify(err, xerrors.CodeInsightUnavailable), err, "")
		log.Warn("insight request failed", slog.String("code", string(failure.Code())), slog.Any("error", failure))
		return "", false
	}
	text, ok := resp.Text()
	if !ok {
		failure := xerrors.New(xerrors.CodeInsightUnavailable, "insight response has no text",
			xerrors.WithMetadata("proxy_error", resp.Error))
		log.Warn("insight proxy returned no insight", slog.String("code", string(failure.Code())), slog.Any("error", failure))
	}
	return text, ok
}

func (c *Client) post(ctx context.Context, payload []byte) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("build insight request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("post insight request: %w", err)
	}
	defer res.Body.Close()

	var decoded Response
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return Response{}, fmt.Errorf("decode insight response (status %d): %w", res.StatusCode, err)
	}
	return decoded, nil
}
