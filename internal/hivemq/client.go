// Package hivemq talks to the HiveMQ REST API and exposes each collection as
// a resource.Ops capability record.
package hivemq

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/mqtt-tools/hivemq-tui/internal/resource"
	"github.com/mqtt-tools/hivemq-tui/pkg/logger"
)

// DefaultTimeout bounds every request when ClientConfig.Timeout is unset.
const DefaultTimeout = 30 * time.Second

// ClientConfig configures a Client.
type ClientConfig struct {
	Endpoint string        // e.g. http://localhost:8888
	Token    string        // bearer token, optional
	Timeout  time.Duration // per request
	Insecure bool          // skip TLS verification
	Logger   *logger.Logger
}

// Client is a HiveMQ REST API client.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
	log   *logger.Logger
}

// NewClient validates cfg and returns a client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.Endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", cfg.Endpoint, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid endpoint %q: scheme must be http or https", cfg.Endpoint)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		base:  base,
		token: cfg.Token,
		http:  &http.Client{Timeout: timeout, Transport: transport},
		log:   log,
	}, nil
}

// Endpoint returns the base URL.
func (c *Client) Endpoint() string { return c.base.String() }

// listResponse is the shape of every paginated collection response.
type listResponse struct {
	Items []json.RawMessage `json:"items"`
	Links struct {
		Next string `json:"next"`
	} `json:"_links"`
}

// List fetches one page of r starting at cursor.
func (c *Client) List(ctx context.Context, r Resource, cursor string, limit int) (resource.Page, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	body, err := c.do(ctx, r, http.MethodGet, "", q, nil)
	if err != nil {
		return resource.Page{}, err
	}
	var resp listResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return resource.Page{}, fmt.Errorf("%w: decode %s list: %v", resource.ErrSerialization, r.Name, err)
	}
	page := resource.Page{Items: make([]resource.Item, 0, len(resp.Items)), Next: resp.Links.Next}
	for _, raw := range resp.Items {
		item, err := resource.NewItem(raw, r.IDField)
		if err != nil {
			return resource.Page{}, fmt.Errorf("decode %s item: %w", r.Name, err)
		}
		page.Items = append(page.Items, item)
	}
	return page, nil
}

// Get fetches one item.
func (c *Client) Get(ctx context.Context, r Resource, id string) (resource.Item, error) {
	body, err := c.do(ctx, r, http.MethodGet, id, nil, nil)
	if err != nil {
		return resource.Item{}, err
	}
	return decodeItem(r, body)
}

// Create posts doc to the collection and returns the created item.
func (c *Client) Create(ctx context.Context, r Resource, doc string) (resource.Item, error) {
	body, err := c.do(ctx, r, http.MethodPost, "", nil, []byte(doc))
	if err != nil {
		return resource.Item{}, err
	}
	return decodeItem(r, body)
}

// Update replaces (or patches) the item id with doc.
func (c *Client) Update(ctx context.Context, r Resource, id, doc string) (resource.Item, error) {
	method := r.UpdateMethod
	if method == "" {
		method = http.MethodPut
	}
	body, err := c.do(ctx, r, method, id, nil, []byte(doc))
	if err != nil {
		return resource.Item{}, err
	}
	return decodeItem(r, body)
}

// Delete removes the item id and returns the deleted key.
func (c *Client) Delete(ctx context.Context, r Resource, id string) (string, error) {
	if _, err := c.do(ctx, r, http.MethodDelete, id, nil, nil); err != nil {
		return "", err
	}
	return id, nil
}

// Ops returns the capability record of r. Operations r does not support are
// left nil.
func (c *Client) Ops(r Resource) resource.Ops {
	ops := resource.Ops{
		ListPage: func(ctx context.Context, cursor string, limit int) (resource.Page, error) {
			return c.List(ctx, r, cursor, limit)
		},
	}
	if r.Get {
		ops.Get = func(ctx context.Context, id string) (resource.Item, error) {
			return c.Get(ctx, r, id)
		}
	}
	if r.Create {
		ops.Create = func(ctx context.Context, doc string) (resource.Item, error) {
			return c.Create(ctx, r, doc)
		}
	}
	if r.Update {
		ops.Update = func(ctx context.Context, id, doc string) (resource.Item, error) {
			return c.Update(ctx, r, id, doc)
		}
	}
	if r.Delete {
		ops.Delete = func(ctx context.Context, id string) (string, error) {
			return c.Delete(ctx, r, id)
		}
	}
	return ops
}

// requestURL addresses the collection of r, or its item id when id is set.
// The id is escaped exactly once, so "/" and spaces stay inside one segment.
func (c *Client) requestURL(r Resource, id string, q url.Values) *url.URL {
	u := *c.base
	u.Path = c.base.Path + r.Path
	u.RawPath = ""
	if id != "" {
		u.Path += "/" + id
		u.RawPath = c.base.EscapedPath() + r.Path + "/" + url.PathEscape(id)
	}
	u.RawQuery = q.Encode()
	return &u
}

func (c *Client) do(ctx context.Context, r Resource, method, id string, q url.Values, body []byte) ([]byte, error) {
	u := c.requestURL(r, id, q)
	path := u.Path

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", resource.ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		c.log.Debug(ctx, "Request failed", logger.Fields{"method": method, "url": u.String(), "error": err.Error()})
		return nil, fmt.Errorf("%w: %s %s: %v", resource.ErrTransport, method, path, err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", resource.ErrTransport, err)
	}
	c.log.Debug(ctx, "Request completed", logger.Fields{
		"method":   method,
		"url":      u.String(),
		"status":   res.StatusCode,
		"duration": time.Since(start).String(),
	})

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, statusError(res, data, method, r, id)
	}
	return data, nil
}

// errorResponse is the HiveMQ problem document.
type errorResponse struct {
	Errors []struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

func statusError(res *http.Response, data []byte, method string, r Resource, id string) error {
	var msg string
	var parsed errorResponse
	if json.Unmarshal(data, &parsed) == nil {
		parts := make([]string, 0, len(parsed.Errors))
		for _, e := range parsed.Errors {
			switch {
			case e.Detail != "":
				parts = append(parts, e.Detail)
			case e.Title != "":
				parts = append(parts, e.Title)
			}
		}
		msg = strings.Join(parts, "; ")
	}
	retryAfter, _ := strconv.Atoi(res.Header.Get("Retry-After"))
	se := apierrors.NewGenericServerResponse(res.StatusCode, method, r.GroupResource(), id, msg, retryAfter, false)
	if msg != "" {
		se.ErrStatus.Message = msg
	}
	return se
}

// decodeItem reads a single-item response, unwrapping the resource envelope
// when present.
func decodeItem(r Resource, body []byte) (resource.Item, error) {
	raw := body
	if r.Envelope != "" {
		var wrapped map[string]json.RawMessage
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return resource.Item{}, fmt.Errorf("%w: decode %s: %v", resource.ErrSerialization, r.Name, err)
		}
		if inner, ok := wrapped[r.Envelope]; ok {
			raw = inner
		}
	}
	item, err := resource.NewItem(raw, r.IDField)
	if err != nil {
		return resource.Item{}, fmt.Errorf("decode %s: %w", r.Name, err)
	}
	return item, nil
}
