// Package engine provides an HTTP client for the remote calculation service,
// implementing the rasdesign.CalcEngine contract.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-rasdesign"
	"github.com/goliatone/go-rasdesign/internal/hydrate"
)

// Client talks to the calculation backend over HTTP. Previews are
// side-effect free POSTs; commits create or mutate design resources.
type Client struct {
	base   string
	http   *http.Client
	log    *slog.Logger
	apiKey string

	previewDecoder *hydrate.Decoder[previewResponse]
	commitDecoder  *hydrate.Decoder[commitResponse]
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient supplies the underlying HTTP client. Timeouts are governed
// by the caller's context, not the client, so the zero-timeout default is
// intentional.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger attaches a structured logger; defaults to slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithAPIKey sends the key as a bearer token on every request.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// New constructs a client for the engine at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("engine: base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("engine: parse base url: %w", err)
	}
	c := &Client{
		base: base,
		http: &http.Client{},
		log:  slog.Default(),
		previewDecoder: hydrate.NewDecoder[previewResponse](
			hydrate.WithUseNumber[previewResponse](),
		),
		commitDecoder: hydrate.NewDecoder[commitResponse](),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

type previewResponse struct {
	Status   string                    `json:"status"`
	Sections map[string]map[string]any `json:"sections"`
}

type commitResponse struct {
	Status        string `json:"status"`
	DesignHandle  string `json:"designHandle"`
	ProjectHandle string `json:"projectHandle"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// PreviewCalculate posts the payload for a transient, sectioned calculation.
func (c *Client) PreviewCalculate(ctx context.Context, stage rasdesign.StageID, payload map[string]any) (rasdesign.PreviewResult, error) {
	endpoint := fmt.Sprintf("%s/v1/stages/%s/preview", c.base, url.PathEscape(string(stage)))
	body, requestID, err := c.do(ctx, http.MethodPost, endpoint, map[string]any{"fields": payload})
	if err != nil {
		return rasdesign.PreviewResult{}, err
	}

	decoded, err := c.previewDecoder.Decode(hydrate.Context{Stage: string(stage), RequestID: requestID}, body)
	if err != nil {
		return rasdesign.PreviewResult{}, err
	}
	return rasdesign.PreviewResult{
		Status:   decoded.Status,
		Sections: normalizeSections(decoded.Sections),
	}, nil
}

// CommitStage persists the stage payload, creating the design resource on
// the first commit and updating it thereafter.
func (c *Client) CommitStage(ctx context.Context, stage rasdesign.StageID, mode rasdesign.CommitMode, identity rasdesign.Identity, payload map[string]any) (rasdesign.CommitResult, error) {
	method := http.MethodPost
	endpoint := fmt.Sprintf("%s/v1/designs", c.base)
	if mode == rasdesign.CommitUpdate {
		method = http.MethodPut
		endpoint = fmt.Sprintf("%s/v1/designs/%s", c.base, url.PathEscape(identity.DesignHandle))
	}

	request := map[string]any{
		"stage":  string(stage),
		"fields": payload,
	}
	if identity.ProjectHandle != "" {
		request["projectHandle"] = identity.ProjectHandle
	}

	body, requestID, err := c.do(ctx, method, endpoint, request)
	if err != nil {
		return rasdesign.CommitResult{}, err
	}

	decoded, err := c.commitDecoder.Decode(hydrate.Context{Stage: string(stage), RequestID: requestID}, body)
	if err != nil {
		return rasdesign.CommitResult{}, err
	}
	return rasdesign.CommitResult{
		Status:        decoded.Status,
		DesignHandle:  decoded.DesignHandle,
		ProjectHandle: decoded.ProjectHandle,
	}, nil
}

// do issues one JSON request and returns the decoded response body as a map
// ready for hydration, along with the request correlation id.
func (c *Client) do(ctx context.Context, method, endpoint string, request map[string]any) (map[string]any, string, error) {
	encoded, err := json.Marshal(request)
	if err != nil {
		return nil, "", fmt.Errorf("engine: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, "", fmt.Errorf("engine: build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("engine request failed",
			slog.String("method", method),
			slog.String("url", endpoint),
			slog.String("request_id", requestID),
			slog.Duration("elapsed", time.Since(start)),
			slog.Any("error", err))
		return nil, requestID, fmt.Errorf("engine: %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, requestID, fmt.Errorf("engine: read response: %w", err)
	}

	c.log.Debug("engine request",
		slog.String("method", method),
		slog.String("url", endpoint),
		slog.String("request_id", requestID),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, requestID, fmt.Errorf("engine: %s %s: status %d: %s", method, endpoint, resp.StatusCode, backendMessage(raw))
	}

	var body map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			return nil, requestID, fmt.Errorf("engine: unmarshal response: %w", err)
		}
	}
	return body, requestID, nil
}

// backendMessage extracts a human-readable error from a failure body,
// falling back to the raw payload.
func backendMessage(raw []byte) string {
	var parsed errorResponse
	if err := json.Unmarshal(raw, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return "no response body"
	}
	if len(trimmed) > 256 {
		trimmed = trimmed[:256]
	}
	return trimmed
}

// normalizeSections converts json.Number values produced by UseNumber into
// float64 so readiness consumers see plain scalars.
func normalizeSections(sections map[string]map[string]any) map[string]map[string]any {
	for _, fields := range sections {
		for name, value := range fields {
			if number, ok := value.(json.Number); ok {
				if f, err := number.Float64(); err == nil {
					fields[name] = f
				}
			}
		}
	}
	return sections
}
