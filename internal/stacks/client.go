/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package stacks is a client for the Stacks scheduling REST API, the remote
// store that holds and renders every campaign item.
package stacks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/friendsincode/signboard/internal/telemetry"
	"github.com/friendsincode/signboard/internal/timeline"
)

const (
	DefaultBaseURL = "https://stacks.targetr.net"
	tracerName     = "signboard/stacks"
)

var (
	// ErrMissingCredentials is returned by New when no username or password is configured.
	ErrMissingCredentials = errors.New("stacks credentials not configured")

	// ErrItemNotFound indicates no item in the sequence carries the programmatic id.
	ErrItemNotFound = errors.New("stacks item not found")
)

// StatusError reports a non-2xx response.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("stacks %s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("stacks %s: status %d: %s", e.Op, e.Status, e.Body)
}

// Config holds connection settings.
type Config struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration

	// RateLimit caps outgoing requests per second; zero disables limiting.
	RateLimit float64
	Burst     int

	// Transport overrides the HTTP transport (tests).
	Transport http.RoundTripper
}

// Client talks to the Stacks REST API with basic auth.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// New validates the configuration and builds a client.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, ErrMissingCredentials
	}

	baseURL := strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		baseURL:  baseURL,
		username: cfg.Username,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: telemetry.HTTPTransport(cfg.Transport),
		},
		limiter: limiter,
		logger:  logger.With().Str("component", "stacks").Logger(),
	}, nil
}

// ListItems fetches every item scheduled in a sequence, flattened across
// stacks in the order Stacks returns them.
func (c *Client) ListItems(ctx context.Context, sequenceID string) ([]timeline.Item, error) {
	seq, err := c.getSequence(ctx, sequenceID)
	if err != nil {
		return nil, err
	}
	return seq.flatten(), nil
}

// FindItem locates the item carrying programmaticID within a sequence.
func (c *Client) FindItem(ctx context.Context, sequenceID, programmaticID string) (*ItemLocation, error) {
	if programmaticID == "" {
		return nil, ErrItemNotFound
	}

	seq, err := c.getSequence(ctx, sequenceID)
	if err != nil {
		return nil, err
	}

	for si, stack := range seq.Stacks {
		for ii, it := range stack.Items {
			if it.Data.IDProgrammatic != programmaticID {
				continue
			}
			return &ItemLocation{
				SequenceID:       sequenceID,
				Stack:            si,
				Item:             ii,
				ProgrammaticType: it.Data.TypeProgrammatic,
				LibraryItemID:    it.Data.LibraryItemID,
			}, nil
		}
	}
	return nil, ErrItemNotFound
}

// UpdateItem overwrites the item at loc.
func (c *Client) UpdateItem(ctx context.Context, loc ItemLocation, upd ItemUpdate) error {
	body, err := json.Marshal(upd.request())
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}

	resp, err := c.do(ctx, "update_item", http.MethodPut, opPath(loc), body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkStatus("update_item", resp)
}

// DeleteItem removes the item at loc.
func (c *Client) DeleteItem(ctx context.Context, loc ItemLocation) error {
	resp, err := c.do(ctx, "delete_item", http.MethodDelete, opPath(loc), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkStatus("delete_item", resp)
}

func opPath(loc ItemLocation) string {
	return fmt.Sprintf("/rest-api/v1/op/sequence/%s/%d/%d", url.PathEscape(loc.SequenceID), loc.Stack, loc.Item)
}

func (c *Client) getSequence(ctx context.Context, sequenceID string) (*sequenceResponse, error) {
	if sequenceID == "" {
		return nil, fmt.Errorf("stacks get_sequence: empty sequence id")
	}

	resp, err := c.do(ctx, "get_sequence", http.MethodGet, "/rest-api/v1/sequences/"+url.PathEscape(sequenceID), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus("get_sequence", resp); err != nil {
		return nil, err
	}

	var seq sequenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&seq); err != nil {
		return nil, fmt.Errorf("decode sequence %s: %w", sequenceID, err)
	}
	return &seq, nil
}

// do performs an authenticated request. Callers close the body.
func (c *Client) do(ctx context.Context, op, method, path string, body []byte) (*http.Response, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "stacks."+op,
		attribute.String("http.method", method),
		attribute.String("stacks.path", path),
	)
	defer span.End()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("stacks %s: rate limit: %w", op, err)
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	outcome := "error"
	if err == nil {
		outcome = strings.ToLower(http.StatusText(resp.StatusCode))
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			outcome = "ok"
		}
	}
	telemetry.StacksRequestDuration.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		telemetry.RecordError(span, err)
		c.logger.Debug().Err(err).Str("op", op).Str("path", path).Msg("stacks request failed")
		return nil, fmt.Errorf("stacks %s: %w", op, err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	return resp, nil
}

func checkStatus(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
