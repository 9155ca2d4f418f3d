// Package rest provides a DocumentStore client speaking JSON over HTTP.
//
// Documents live at {base}/{collection}/{id}; GET returns the document body,
// PUT replaces it, DELETE removes it. A 404 on any operation maps to
// remote.ErrNotFound.
package rest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/studyhive/contentcache/remote"
)

// Client implements remote.DocumentStore over HTTP.
type Client struct {
	base    string
	client  *http.Client
	headers http.Header
}

// Option configures a Client.
type Option func(*Client)

// WithClient sets the HTTP client used for requests.
func WithClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithHeader sets a single header on each request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		if c.headers == nil {
			c.headers = make(http.Header)
		}
		c.headers.Set(key, value)
	}
}

// WithBearerToken sets the Authorization header on each request.
func WithBearerToken(token string) Option {
	return WithHeader("Authorization", "Bearer "+token)
}

// NewClient creates a document store client for the given base URL.
func NewClient(base string, opts ...Option) (*Client, error) {
	if base == "" {
		return nil, errors.New("base URL is empty")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	c := &Client{
		base:   strings.TrimRight(base, "/"),
		client: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = http.DefaultClient
	}
	return c, nil
}

// GetDocument returns the raw document, or remote.ErrNotFound.
func (c *Client) GetDocument(ctx context.Context, collection, id string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, collection, id, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, collection, id); err != nil {
		return nil, err
	}
	doc, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read document %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

// PutDocument creates or replaces the document.
func (c *Client) PutDocument(ctx context.Context, collection, id string, doc []byte) error {
	resp, err := c.do(ctx, http.MethodPut, collection, id, doc)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkStatus(resp, collection, id)
}

// DeleteDocument removes the document.
func (c *Client) DeleteDocument(ctx context.Context, collection, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, collection, id, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkStatus(resp, collection, id)
}

func (c *Client) do(ctx context.Context, method, collection, id string, body []byte) (*http.Response, error) {
	if collection == "" || id == "" {
		return nil, fmt.Errorf("%w: collection and id are required", remote.ErrRequestFailed)
	}
	u := c.base + "/" + url.PathEscape(collection) + "/" + url.PathEscape(id)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for key, values := range c.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", remote.ErrRequestFailed, err)
	}
	return resp, nil
}

func checkStatus(resp *http.Response, collection, id string) error {
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s/%s", remote.ErrNotFound, collection, id)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w: %s/%s: status %d", remote.ErrRequestFailed, collection, id, resp.StatusCode)
	}
	return nil
}

var _ remote.DocumentStore = (*Client)(nil)
