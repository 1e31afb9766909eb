package pusher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"dogeow-realtime/pkg/log"
)

// Authorizer signs private channel subscriptions for a socket.
type Authorizer interface {
	Authorize(ctx context.Context, socketID, channel string) (string, error)
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context, socketID, channel string) (string, error)

func (f AuthorizerFunc) Authorize(ctx context.Context, socketID, channel string) (string, error) {
	return f(ctx, socketID, channel)
}

// HTTPAuthorizer calls a Laravel style broadcasting auth endpoint.
type HTTPAuthorizer struct {
	HTTP     *http.Client
	Endpoint string
	Token    string
	Logger   log.Logger
}

type authResponse struct {
	Auth string `json:"auth"`
}

func (a HTTPAuthorizer) Authorize(ctx context.Context, socketID, channel string) (string, error) {
	form := url.Values{}
	form.Set("socket_id", socketID)
	form.Set("channel_name", channel)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if a.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.Token)
	}

	client := a.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode >= 400 {
		if a.Logger != nil {
			a.Logger.Warnf(ctx, "pusher: auth for %s failed: %s", channel, resp.Status)
		}
		return "", &HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var out authResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("invalid auth response: %w", err)
	}
	if strings.TrimSpace(out.Auth) == "" {
		return "", ErrEmptyAuth
	}
	return out.Auth, nil
}
