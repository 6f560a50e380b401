// Package restdb implements the repository contracts against a hosted database data API
// that follows PostgREST conventions.
package restdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"coachsite/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const cachePrefix = "restdb:"

// HTTPError is returned for any non-2xx response.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http %d", e.Status)
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// Client talks to /rest/v1/{table} endpoints.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger

	redis    *redis.Client
	cacheTTL time.Duration
}

// NewClient constructs a client for baseURL (without the /rest/v1 suffix).
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "restdb").Logger(),
	}
}

// UseRedisCache enables caching of public list reads.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

func (c *Client) endpoint(table string, q url.Values) string {
	u := c.baseURL + "/rest/v1/" + table
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func cacheKey(table string, q url.Values) string {
	return cachePrefix + table + ":" + q.Encode()
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.cacheTTL).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// invalidate drops every cached read of table.
func (c *Client) invalidate(ctx context.Context, table string) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	iter := c.redis.Scan(ctx, 0, cachePrefix+table+":*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn().Err(err).Str("table", table).Msg("cache scan failed")
		return
	}
	if len(keys) > 0 {
		_ = c.redis.Del(ctx, keys...).Err()
	}
}

// selectCached runs a GET and caches the decoded rows.
func (c *Client) selectCached(ctx context.Context, table string, q url.Values, out any) error {
	key := cacheKey(table, q)
	if c.readCache(ctx, key, out) {
		return nil
	}
	if err := c.doGet(ctx, c.endpoint(table, q), out); err != nil {
		return err
	}
	c.writeCache(ctx, key, out)
	return nil
}

func (c *Client) doGet(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	c.addHeaders(req)
	return c.do(req, out)
}

// doWrite sends body with method and asks for the affected rows back.
func (c *Client) doWrite(ctx context.Context, method, endpoint string, body, out any, prefer string) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}
	c.addHeaders(req)
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return mapStatus(&HTTPError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))})
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) addHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func mapStatus(err *HTTPError) error {
	switch err.Status {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %v", repository.ErrNotFound, err)
	case http.StatusConflict:
		return fmt.Errorf("%w: %v", repository.ErrConflict, err)
	}
	return err
}

// Ping checks that the data API answers.
func (c *Client) Ping(ctx context.Context) error {
	q := url.Values{"select": {"key"}, "limit": {"1"}}
	var rows []json.RawMessage
	return c.doGet(ctx, c.endpoint("site_settings", q), &rows)
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
