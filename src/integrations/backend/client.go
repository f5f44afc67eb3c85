package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"storeclip/src/videogen"
)

const (
	DefaultURL = "http://localhost:8000"

	maxErrorBody = 4 << 10
)

type Option func(*Client)

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// Client talks to the storefront REST backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	now        func() time.Time
}

// NewClient creates a new backend API client
func NewClient(baseURL string, c *http.Client, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if c == nil {
		c = http.DefaultClient
	}

	client := &Client{
		httpClient: c,
		baseURL:    strings.TrimRight(baseURL, "/"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// GetMyStore returns the store of the signed-in user.
func (c *Client) GetMyStore(ctx context.Context) (*Store, error) {
	var store Store
	if err := c.do(ctx, http.MethodGet, "/api/v1/stores/me", nil, &store); err != nil {
		return nil, err
	}
	return &store, nil
}

func (c *Client) CreateStore(ctx context.Context, req StoreRequest) (*Store, error) {
	var store Store
	if err := c.do(ctx, http.MethodPost, "/api/v1/stores", req, &store); err != nil {
		return nil, err
	}
	return &store, nil
}

func (c *Client) UpdateStore(ctx context.Context, storeID string, req StoreRequest) (*Store, error) {
	var store Store
	if err := c.do(ctx, http.MethodPut, "/api/v1/stores/"+url.PathEscape(storeID), req, &store); err != nil {
		return nil, err
	}
	return &store, nil
}

// CreateVideoGeneration submits a generation request and returns the id of
// the job to poll.
func (c *Client) CreateVideoGeneration(ctx context.Context, req videogen.GenerationRequest) (*videogen.GenerationCreated, error) {
	var created videogen.GenerationCreated
	if err := c.do(ctx, http.MethodPost, "/api/v1/video-generations", req, &created); err != nil {
		return nil, err
	}
	if created.ID == "" {
		return nil, fmt.Errorf("backend returned no generation id")
	}
	return &created, nil
}

func (c *Client) GetVideoGenerationStatus(ctx context.Context, id string) (*videogen.StatusResponse, error) {
	var status videogen.StatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/video-generations/"+url.PathEscape(id), nil, &status); err != nil {
		return nil, err
	}
	if status.ID == "" {
		status.ID = id
	}
	return &status, nil
}

// SubmitFile records an uploaded file. UploadedAt is always set to now.
func (c *Client) SubmitFile(ctx context.Context, file FileSubmission) (*Response, error) {
	file.UploadedAt = c.now().UTC()

	var resp Response
	if err := c.do(ctx, http.MethodPost, "/api/files", file, &resp); err != nil {
		return nil, fmt.Errorf("failed to submit file: %w", err)
	}
	return &resp, nil
}

func (c *Client) DeleteFile(ctx context.Context, fileID string) (*Response, error) {
	var resp Response
	if err := c.do(ctx, http.MethodDelete, "/api/files/"+url.PathEscape(fileID), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to delete file: %w", err)
	}
	return &resp, nil
}

func (c *Client) ListFiles(ctx context.Context, q FileQuery) (*Response, error) {
	params := url.Values{}
	if q.Category != "" {
		params.Set("category", q.Category)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		params.Set("offset", strconv.Itoa(q.Offset))
	}

	path := "/api/files"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var resp Response
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		jsonData, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("error marshaling request: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	return nil
}
