package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"chatsync/pkg/models"
)

// HTTPClient talks to a chat backend over HTTP with JSON bodies.
// Transport failures are wrapped as retryable network errors; server
// verdicts carry the response status for classification.
type HTTPClient struct {
	base   string
	client *http.Client
}

// NewHTTPClient builds a client for the given base URL.
func NewHTTPClient(base string) *HTTPClient {
	return &HTTPClient{
		base:   base,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// apiError mirrors the backend's error body.
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return NewNetworkError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var ae apiError
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		_ = json.Unmarshal(data, &ae)
		msg := ae.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &Error{Code: ae.Code, Message: msg, StatusCode: resp.StatusCode}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *HTTPClient) SendMessage(ctx context.Context, m *models.Message) (*models.Message, error) {
	var got models.Message
	path := fmt.Sprintf("/channels/%s/messages", url.PathEscape(m.CID))
	if err := c.do(ctx, http.MethodPost, path, m, &got); err != nil {
		return nil, err
	}
	return &got, nil
}

func (c *HTTPClient) EditMessage(ctx context.Context, m *models.Message) (*models.Message, error) {
	var got models.Message
	path := "/messages/" + url.PathEscape(m.ID)
	if err := c.do(ctx, http.MethodPut, path, m, &got); err != nil {
		return nil, err
	}
	return &got, nil
}

func (c *HTTPClient) DeleteMessage(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/messages/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) SendReaction(ctx context.Context, r *models.Reaction) (*models.Reaction, error) {
	var got models.Reaction
	path := fmt.Sprintf("/messages/%s/reactions", url.PathEscape(r.MessageID))
	if err := c.do(ctx, http.MethodPost, path, r, &got); err != nil {
		return nil, err
	}
	return &got, nil
}

func (c *HTTPClient) DeleteReaction(ctx context.Context, r *models.Reaction) error {
	path := fmt.Sprintf("/messages/%s/reactions/%s/%s",
		url.PathEscape(r.MessageID), url.PathEscape(r.UserID), url.PathEscape(r.Type))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}
