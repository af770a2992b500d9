package clinicapi

import (
	"context"
	"net/http"

	"clinicdesk/internal/model"
)

// LoginResponse is returned by POST /accounts/login.
type LoginResponse struct {
	Token   string        `json:"token"`
	Account model.Account `json:"account"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/accounts/login", loginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me returns the account the token belongs to.
func (c *Client) Me(ctx context.Context) (*model.Account, error) {
	var acc model.Account
	if err := c.doJSON(ctx, http.MethodGet, "/accounts/me", nil, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}
