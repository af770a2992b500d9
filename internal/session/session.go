package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"clinicdesk/internal/clinicapi"
	"clinicdesk/internal/model"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrNoRole   = errors.New("session: account has no usable role")
	ErrExpired  = errors.New("session: token already expired")
)

// Session is the signed-in account a chat acts as.
type Session struct {
	AccountID   int64      `json:"accountId"`
	ChatID      int64      `json:"chatId,omitempty"`
	DisplayName string     `json:"displayName"`
	Role        model.Role `json:"role"`
	Token       string     `json:"token"`
	ExpiresAt   time.Time  `json:"expiresAt,omitempty"`
}

// Expired reports whether the token expiry has passed.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

type tokenClaims struct {
	Role string `json:"role"`
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// FromLogin builds a session from a login response. The role comes from the
// account when present, otherwise from the token's role claim. The token is
// not verified here; the backend checks it on every call.
func FromLogin(resp *clinicapi.LoginResponse) (*Session, error) {
	s := &Session{
		AccountID:   resp.Account.ID,
		DisplayName: strings.TrimSpace(resp.Account.FullName),
		Token:       resp.Token,
	}

	var claims tokenClaims
	_, _, parseErr := jwt.NewParser().ParseUnverified(resp.Token, &claims)
	if parseErr == nil {
		if claims.ExpiresAt != nil {
			s.ExpiresAt = claims.ExpiresAt.Time
		}
		if s.DisplayName == "" {
			s.DisplayName = claims.Name
		}
		if s.AccountID == 0 && claims.Subject != "" {
			if id, err := strconv.ParseInt(claims.Subject, 10, 64); err == nil {
				s.AccountID = id
			}
		}
	}

	raw := resp.Account.Role
	if raw == "" && parseErr == nil {
		raw = claims.Role
	}
	if raw == "" {
		return nil, ErrNoRole
	}
	role, err := model.ParseRole(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoRole, err)
	}
	s.Role = role

	if s.DisplayName == "" {
		s.DisplayName = fmt.Sprintf("account #%d", s.AccountID)
	}
	return s, nil
}
