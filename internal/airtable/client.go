// Package airtable is a small client for the Airtable REST API (v0), the
// shared store for guestbook messages and image comments.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/starford/albumen/internal/apperr"
	"github.com/starford/albumen/internal/metrics"
)

const (
	DefaultAPIURL   = "https://api.airtable.com/v0"
	DefaultPageSize = 100

	// TimestampLayout is ISO-8601 UTC with millisecond precision.
	TimestampLayout = "2006-01-02T15:04:05.000Z"

	maxResponse = 16 << 20
)

// BreakerSettings tune the circuit breaker guarding the API.
type BreakerSettings struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerSettings trip after 5 requests with 60% failures and probe
// again after 30s.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// Options configure a Client.
type Options struct {
	APIURL     string
	BaseID     string
	APIKey     string
	PageSize   int
	HTTPClient *http.Client
	Breaker    BreakerSettings
	Metrics    *metrics.Collector
	Logger     *slog.Logger
	// Now stamps submissions; defaults to time.Now.
	Now func() time.Time
}

// Client talks to one Airtable base.
type Client struct {
	base     string
	apiKey   string
	pageSize int
	http     *http.Client
	cb       *gobreaker.CircuitBreaker
	metrics  *metrics.Collector
	logger   *slog.Logger
	now      func() time.Time
}

// New builds a Client.
func New(opts Options) *Client {
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	if opts.PageSize <= 0 || opts.PageSize > DefaultPageSize {
		opts.PageSize = DefaultPageSize
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Breaker == (BreakerSettings{}) {
		opts.Breaker = DefaultBreakerSettings()
	}

	c := &Client{
		base:     strings.TrimRight(opts.APIURL, "/") + "/" + url.PathEscape(opts.BaseID),
		apiKey:   opts.APIKey,
		pageSize: opts.PageSize,
		http:     opts.HTTPClient,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		now:      opts.Now,
	}
	bs := opts.Breaker
	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "airtable",
		MaxRequests: bs.MaxRequests,
		Interval:    bs.Interval,
		Timeout:     bs.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < bs.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= bs.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
			if c.metrics != nil {
				c.metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
		IsSuccessful: func(err error) bool {
			// A rejected request (bad field, bad formula) says nothing about
			// the health of the service.
			var se *StatusError
			if errors.As(err, &se) {
				return se.Code < 500 && se.Code != http.StatusTooManyRequests
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return c
}

// StatusError is a non-2xx response.
type StatusError struct {
	Code    int
	Type    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("airtable: status %d: %s: %s", e.Code, e.Type, e.Message)
	}
	return fmt.Sprintf("airtable: status %d", e.Code)
}

// Sort orders list results by one field.
type Sort struct {
	Field     string
	Direction string
}

// NewestFirst sorts by Timestamp, descending.
var NewestFirst = Sort{Field: FieldTimestamp, Direction: "desc"}

type listResponse struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset"`
}

type writeRequest struct {
	Records []writeRecord `json:"records"`
}

type writeRecord struct {
	Fields Fields `json:"fields"`
}

// Submit creates one record. An empty Timestamp is stamped with the current
// UTC time. The returned record is what the server stored.
func (c *Client) Submit(ctx context.Context, table string, f Fields) (Record, error) {
	if f.Timestamp == "" {
		f.Timestamp = c.now().UTC().Format(TimestampLayout)
	}
	body, err := json.Marshal(writeRequest{Records: []writeRecord{{Fields: f}}})
	if err != nil {
		return Record{}, fmt.Errorf("%w: encode: %w", apperr.ErrRemoteWrite, err)
	}

	var resp listResponse
	start := time.Now()
	_, err = c.cb.Execute(func() (interface{}, error) {
		return nil, c.do(ctx, http.MethodPost, c.tableURL(table, nil), body, &resp)
	})
	c.metrics.ObserveRemote("submit", table, start, err)
	if err != nil {
		return Record{}, fmt.Errorf("%w: submit to %s: %w", apperr.ErrRemoteWrite, table, err)
	}
	if len(resp.Records) == 0 {
		return Record{}, fmt.Errorf("%w: submit to %s: empty response", apperr.ErrRemoteWrite, table)
	}
	return resp.Records[0], nil
}

// ListAll fetches every record of table, following the offset cursor until
// the server stops returning one. A failed page discards everything fetched
// so far.
func (c *Client) ListAll(ctx context.Context, table string, sort Sort) ([]Record, error) {
	var all []Record
	offset := ""
	for page := 1; ; page++ {
		q := sortQuery(sort)
		q.Set("pageSize", strconv.Itoa(c.pageSize))
		if offset != "" {
			q.Set("offset", offset)
		}
		resp, err := c.list(ctx, "list", table, q)
		if err != nil {
			return nil, fmt.Errorf("%w: list %s page %d: %w", apperr.ErrRemoteRead, table, page, err)
		}
		all = append(all, resp.Records...)
		if resp.Offset == "" {
			return all, nil
		}
		offset = resp.Offset
	}
}

// ListFiltered fetches the records whose field equals value, newest first.
// Only the first page is read.
func (c *Client) ListFiltered(ctx context.Context, table, field, value string) ([]Record, error) {
	q := sortQuery(NewestFirst)
	q.Set("filterByFormula", Formula(field, value))
	resp, err := c.list(ctx, "filter", table, q)
	if err != nil {
		return nil, fmt.Errorf("%w: filter %s: %w", apperr.ErrRemoteRead, table, err)
	}
	return resp.Records, nil
}

func (c *Client) list(ctx context.Context, op, table string, q url.Values) (*listResponse, error) {
	var resp listResponse
	start := time.Now()
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.do(ctx, http.MethodGet, c.tableURL(table, q), nil, &resp)
	})
	c.metrics.ObserveRemote(op, table, start, err)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, target string, body []byte, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Code: resp.StatusCode}
		var apiErr struct {
			Error struct {
				Type    string `json:"type"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil {
			se.Type, se.Message = apiErr.Error.Type, apiErr.Error.Message
		}
		return se
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) tableURL(table string, q url.Values) string {
	u := c.base + "/" + url.PathEscape(table)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func sortQuery(s Sort) url.Values {
	q := url.Values{}
	if s.Field != "" {
		q.Set("sort[0][field]", s.Field)
		dir := s.Direction
		if dir == "" {
			dir = "asc"
		}
		q.Set("sort[0][direction]", dir)
	}
	return q
}

var formulaEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// Formula returns an equality filterByFormula expression.
func Formula(field, value string) string {
	return "{" + field + "}='" + formulaEscaper.Replace(value) + "'"
}
