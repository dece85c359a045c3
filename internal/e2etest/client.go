package e2etest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/myrjola/foundit/internal/errors"
)

type Client struct {
	client *http.Client
	url    string
}

// NewClient creates a JSON API client for the server at url.
func NewClient(url string) *Client {
	return &Client{
		client: &http.Client{Timeout: time.Minute}, //nolint:exhaustruct // defaults are fine
		url:    url,
	}
}

// WaitForReady calls the specified endpoint until it gets a HTTP 200 Success
// response or until the context is cancelled or the 1-second timeout is reached.
func (c *Client) WaitForReady(ctx context.Context, urlPath string) error {
	timeout := 1 * time.Second
	startTime := time.Now()
	var (
		err  error
		req  *http.Request
		resp *http.Response
	)
	for {
		if req, err = http.NewRequestWithContext(
			ctx,
			http.MethodGet,
			c.url+urlPath,
			nil,
		); err != nil {
			return errors.Wrap(err, "create request")
		}

		if resp, err = c.client.Do(req); err == nil {
			if resp.StatusCode == http.StatusOK {
				if err = resp.Body.Close(); err != nil {
					return errors.Wrap(err, "close response body")
				}
				return nil
			}
			if err = resp.Body.Close(); err != nil {
				return errors.Wrap(err, "close response body")
			}
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "context cancelled")
		default:
			if time.Since(startTime) >= timeout {
				return errors.New("timeout waiting for endpoint to be ready")
			}
			time.Sleep(100 * time.Millisecond) //nolint:mnd // 100ms
		}
	}
}

// Get fetches a URL and returns the response.
func (c *Client) Get(ctx context.Context, urlPath string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+urlPath, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	return c.do(req)
}

// GetJSON fetches a URL and decodes the JSON response body into out. It returns the status code.
func (c *Client) GetJSON(ctx context.Context, urlPath string, out any) (int, error) {
	resp, err := c.Get(ctx, urlPath)
	if err != nil {
		return 0, err
	}
	return decode(resp, out)
}

// PostJSON posts in as JSON and decodes the JSON response body into out. It returns the status code.
func (c *Client) PostJSON(ctx context.Context, urlPath string, in any, out any) (int, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return 0, errors.Wrap(err, "encode request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+urlPath, bytes.NewReader(body))
	if err != nil {
		return 0, errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.do(req)
	if err != nil {
		return 0, err
	}
	return decode(resp, out)
}

// PostFile uploads content as a multipart form file and decodes the JSON response body into out.
func (c *Client) PostFile(
	ctx context.Context,
	urlPath, field, filename string,
	content []byte,
	out any,
) (int, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return 0, errors.Wrap(err, "create form file")
	}
	if _, err = part.Write(content); err != nil {
		return 0, errors.Wrap(err, "write form file")
	}
	if err = mw.Close(); err != nil {
		return 0, errors.Wrap(err, "close multipart writer")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+urlPath, &buf)
	if err != nil {
		return 0, errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.do(req)
	if err != nil {
		return 0, err
	}
	return decode(resp, out)
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request", slog.String("url", req.URL.String()))
	}
	return resp, nil
}

// decode reads the JSON body into out when out is not nil. Error responses are decoded as well so that tests can
// inspect them.
func decode(resp *http.Response, out any) (int, error) {
	defer func() {
		_ = resp.Body.Close()
	}()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, errors.Wrap(err, "read response body")
	}
	if out == nil || len(data) == 0 {
		return resp.StatusCode, nil
	}
	if err = json.Unmarshal(data, out); err != nil {
		return resp.StatusCode, errors.Wrap(err, "decode response body",
			slog.Int("status", resp.StatusCode), slog.String("body", string(data)))
	}
	return resp.StatusCode, nil
}
