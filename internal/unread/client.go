package unread

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"dogeow-realtime/internal/realtime"
)

const (
	unreadCountPath    = "/api/notifications/unread-count"
	knowledgeIndexPath = "/api/knowledge/index"

	maxBodySize = 4 << 20
)

type unreadCountResponse struct {
	Count *int `json:"count"`
}

func (c *implClient) UnreadCount(ctx context.Context) (realtime.UnreadSummary, error) {
	body, err := c.get(ctx, unreadCountPath)
	if err != nil {
		return realtime.UnreadSummary{}, err
	}
	var resp unreadCountResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return realtime.UnreadSummary{}, fmt.Errorf("decode unread count: %w", err)
	}
	if resp.Count == nil {
		return realtime.UnreadSummary{}, fmt.Errorf("decode unread count: missing count")
	}
	return realtime.UnreadSummary{Count: *resp.Count}, nil
}

func (c *implClient) KnowledgeIndex(ctx context.Context) (json.RawMessage, error) {
	body, err := c.get(ctx, knowledgeIndexPath)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("decode knowledge index: invalid json")
	}
	return body, nil
}

func (c *implClient) get(ctx context.Context, path string) ([]byte, error) {
	token := ""
	if c.token != nil {
		token = c.token()
	}
	if token == "" {
		return nil, ErrNoToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, &StatusError{Path: path, Code: resp.StatusCode})
	case resp.StatusCode >= 400:
		c.logger.Debugf(ctx, "unread: GET %s returned %d", path, resp.StatusCode)
		return nil, &StatusError{Path: path, Code: resp.StatusCode}
	}
	return body, nil
}
