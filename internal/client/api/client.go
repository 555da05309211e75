// Package api is a thin HTTP client for the validation server. It mirrors
// the server's response envelope and exposes one method per endpoint.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/userval/internal/server/models"
)

// envelope matches the server's response shape; Data is decoded lazily
// because its type varies per endpoint.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Token   string          `json:"token,omitempty"`
}

// LoginOutcome reports a login attempt. Either Token/User are set, or
// NeedsVerification is true and UserID carries the account to verify.
type LoginOutcome struct {
	User              *models.User
	Token             string
	NeedsVerification bool
	UserID            string
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any) (int, *envelope, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	env := &envelope{}
	if err := json.NewDecoder(resp.Body).Decode(env); err != nil {
		return resp.StatusCode, nil, fmt.Errorf("decoding response: %w", err)
	}
	return resp.StatusCode, env, nil
}

// Register creates an account and returns the new user's id.
func (c *Client) Register(ctx context.Context, email, password string) (string, error) {
	_, env, err := c.do(ctx, http.MethodPost, "/api/add-user",
		map[string]string{"email": email, "password": password})
	if err != nil {
		return "", err
	}
	if !env.Success {
		return "", errors.New(env.Message)
	}
	var id string
	if err := json.Unmarshal(env.Data, &id); err != nil {
		return "", fmt.Errorf("decoding user id: %w", err)
	}
	return id, nil
}

// Login authenticates. The "not verified" reply is not an error: the
// outcome carries the user id so the caller can route to verification.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginOutcome, error) {
	status, env, err := c.do(ctx, http.MethodPost, "/api/login",
		map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized && len(env.Data) > 0 {
		var id string
		if err := json.Unmarshal(env.Data, &id); err == nil && id != "" {
			return &LoginOutcome{NeedsVerification: true, UserID: id}, nil
		}
	}
	if !env.Success {
		return nil, errors.New(env.Message)
	}

	user := &models.User{}
	if err := json.Unmarshal(env.Data, user); err != nil {
		return nil, fmt.Errorf("decoding user: %w", err)
	}
	return &LoginOutcome{User: user, Token: env.Token}, nil
}

// Verify redeems an OTP and returns the verified user plus a session token.
func (c *Client) Verify(ctx context.Context, userID, otp string) (*models.User, string, error) {
	_, env, err := c.do(ctx, http.MethodPatch, "/api/verify-user?id="+userID,
		map[string]string{"otp": otp})
	if err != nil {
		return nil, "", err
	}
	if !env.Success {
		return nil, "", errors.New(env.Message)
	}
	user := &models.User{}
	if err := json.Unmarshal(env.Data, user); err != nil {
		return nil, "", fmt.Errorf("decoding user: %w", err)
	}
	return user, env.Token, nil
}

// Regenerate requests a fresh OTP for an unverified account.
func (c *Client) Regenerate(ctx context.Context, userID string) (string, error) {
	_, env, err := c.do(ctx, http.MethodPost, "/api/re-generate-otp/"+userID, nil)
	if err != nil {
		return "", err
	}
	if !env.Success {
		return "", errors.New(env.Message)
	}
	return env.Message, nil
}

// Ping checks the health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	status, env, err := c.do(ctx, http.MethodGet, "/", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK || !env.Success {
		return errors.New("server is not healthy")
	}
	return nil
}
