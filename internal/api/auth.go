package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nissyi-gh/remind/internal/model"
)

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (model.AuthToken, error) {
	if err := creds.Validate(); err != nil {
		return model.AuthToken{}, err
	}
	var tok model.AuthToken
	if err := c.do(ctx, "login", http.MethodPost, loginPath, nil, creds, &tok); err != nil {
		return model.AuthToken{}, err
	}
	if tok.Access == "" {
		return model.AuthToken{}, fmt.Errorf("%w: login response has no access token", model.ErrInvalidRecord)
	}
	return tok, nil
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, reg model.Registration) (model.User, error) {
	if err := reg.Validate(); err != nil {
		return model.User{}, err
	}
	var user model.User
	if err := c.do(ctx, "register", http.MethodPost, registerPath, nil, reg, &user); err != nil {
		return model.User{}, err
	}
	return user, nil
}
