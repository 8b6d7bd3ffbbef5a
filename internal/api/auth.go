package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMissingToken is returned when sign-in succeeds without a token in the payload.
var ErrMissingToken = errors.New("api: sign-in response has no token")

// SignIn exchanges email and password for a user record and bearer token.
//
// A rejected sign-in returns *AuthError carrying the server's "error" text,
// or "login failed" when the body has none.
func (c *Client) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	resp, err := c.post(ctx, opSignIn, "/signin", "", signInRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, newAuthError(resp.StatusCode, resp.Body)
	}

	var out signInResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if out.Data == nil || out.Data.Token == "" {
		return nil, ErrMissingToken
	}

	return &SignInResult{User: out.Data.User, Token: out.Data.Token}, nil
}

// Profile fetches the signed-in user's record.
//
// Any non-2xx status returns *AuthError "failed to fetch profile". The body may
// be the bare record or wrapped in {"data": ...}.
func (c *Client) Profile(ctx context.Context, token string) (*User, error) {
	resp, err := c.get(ctx, opProfile, "/profile", token)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &AuthError{StatusCode: resp.StatusCode, Message: msgProfileFailed}
	}

	body := resp.Body
	var wrapped struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && isJSONObject(wrapped.Data) {
		body = wrapped.Data
	}

	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &user, nil
}

func isJSONObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
