// Package client talks to one or more City API deployments. Every call is
// issued against an ordered list of candidate base URLs and succeeds as soon
// as one candidate answers with a 2xx status.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-city-crud/internal/types"
)

// DefaultBaseURLs lists the two deployments the browser client knows about,
// in preference order.
var DefaultBaseURLs = []string{
	"http://localhost:8000/api/cities",
	"http://localhost:3000/cities",
}

// ErrAllCandidatesFailed is wrapped by every error returned after all base URLs failed.
var ErrAllCandidatesFailed = errors.New("all API endpoints failed")

const maxResponseBytes = 1 << 20

// APIError is a non-2xx answer from a candidate.
type APIError struct {
	BaseURL    string
	StatusCode int
	Title      string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %d %s: %s", e.BaseURL, e.StatusCode, e.Title, e.Message)
	}
	return fmt.Sprintf("%s: unexpected status %d", e.BaseURL, e.StatusCode)
}

// IsNotFound reports whether any candidate answered 404.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

func hasStatus(err error, status int) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == status {
		return true
	}
	// errors.As stops at the first match inside a join; walk the rest.
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if hasStatus(e, status) {
				return true
			}
		}
	}
	return false
}

type Client struct {
	bases      []string
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithHTTPClientTimeout bounds each individual request.
func WithHTTPClientTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient = &http.Client{Timeout: d} }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New returns a client for the given candidate base URLs, tried in order.
func New(bases []string, opts ...Option) (*Client, error) {
	if len(bases) == 0 {
		return nil, errors.New("at least one base URL is required")
	}
	c := &Client{
		bases:      make([]string, 0, len(bases)),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     slog.Default(),
	}
	for _, b := range bases {
		c.bases = append(c.bases, strings.TrimRight(b, "/"))
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListCities fetches the full list from whichever candidate answers first.
func (c *Client) ListCities(ctx context.Context) ([]types.City, error) {
	return race[[]types.City](ctx, c, "")
}

// GetCity fetches one city from whichever candidate answers first.
func (c *Client) GetCity(ctx context.Context, id int64) (*types.City, error) {
	city, err := race[types.City](ctx, c, "/"+strconv.FormatInt(id, 10))
	if err != nil {
		return nil, err
	}
	return &city, nil
}

// CreateCity creates a city on the first candidate that accepts it.
func (c *Client) CreateCity(ctx context.Context, req types.CreateCityRequest) (*types.City, error) {
	body, err := c.ordered(ctx, http.MethodPost, "", req)
	if err != nil {
		return nil, err
	}
	var city types.City
	if err := json.Unmarshal(body, &city); err != nil {
		return nil, fmt.Errorf("failed to decode created city: %w", err)
	}
	return &city, nil
}

// UpdateCity updates a city on the first candidate that accepts it.
func (c *Client) UpdateCity(ctx context.Context, id int64, req types.UpdateCityRequest) (*types.City, error) {
	body, err := c.ordered(ctx, http.MethodPut, "/"+strconv.FormatInt(id, 10), req)
	if err != nil {
		return nil, err
	}
	var city types.City
	if err := json.Unmarshal(body, &city); err != nil {
		return nil, fmt.Errorf("failed to decode updated city: %w", err)
	}
	return &city, nil
}

// DeleteCity deletes a city on the first candidate that accepts it.
func (c *Client) DeleteCity(ctx context.Context, id int64) error {
	_, err := c.ordered(ctx, http.MethodDelete, "/"+strconv.FormatInt(id, 10), nil)
	return err
}

// race issues a GET to every candidate at once. The first 2xx whose body
// decodes into T wins and the remaining requests are cancelled.
func race[T any](ctx context.Context, c *Client, path string) (T, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	results := make(chan result, len(c.bases))

	var g errgroup.Group
	for _, base := range c.bases {
		g.Go(func() error {
			var res result
			body, err := c.do(ctx, http.MethodGet, base, path, nil)
			if err == nil {
				if err = json.Unmarshal(body, &res.value); err != nil {
					err = fmt.Errorf("%s: failed to decode response: %w", base, err)
				}
			}
			res.err = err
			results <- res
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(results)
	}()

	var errs []error
	for res := range results {
		if res.err == nil {
			return res.value, nil
		}
		errs = append(errs, res.err)
	}
	var zero T
	return zero, fmt.Errorf("%w: %w", ErrAllCandidatesFailed, errors.Join(errs...))
}

// ordered tries candidates one after another so a write lands on at most one backend.
func (c *Client) ordered(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var errs []error
	for _, base := range c.bases {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		body, err := c.do(ctx, method, base, path, payload)
		if err == nil {
			return body, nil
		}
		c.logger.DebugContext(ctx, "Candidate failed, trying next",
			slog.String("base_url", base),
			slog.String("method", method),
			slog.Any("error", err),
		)
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("%w: %w", ErrAllCandidatesFailed, errors.Join(errs...))
}

func (c *Client) do(ctx context.Context, method, base, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		js, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(js)
	}

	req, err := http.NewRequestWithContext(ctx, method, base+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build request: %w", base, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", base, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w", base, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{BaseURL: base, StatusCode: resp.StatusCode}
		var eb types.ErrorBody
		if json.Unmarshal(body, &eb) == nil {
			apiErr.Title = eb.Error
			apiErr.Message = eb.Message
		}
		return nil, apiErr
	}
	return body, nil
}
