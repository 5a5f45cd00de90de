package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrijs2005/apotek/internal/backend"
	"github.com/dmitrijs2005/apotek/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

type userDTO struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func (u userDTO) toUser() backend.User {
	return backend.User{
		ID:               u.ID,
		Email:            u.Email,
		EmailConfirmedAt: u.EmailConfirmedAt,
		CreatedAt:        u.CreatedAt,
	}
}

type tokenResponse struct {
	AccessToken  string  `json:"access_token"`
	TokenType    string  `json:"token_type"`
	ExpiresIn    int64   `json:"expires_in"`
	ExpiresAt    int64   `json:"expires_at"`
	RefreshToken string  `json:"refresh_token"`
	User         userDTO `json:"user"`
}

// GetSession asks GoTrue who owns accessToken. Rejected tokens mean there is
// no session; only transport and server failures are errors.
func (c *Client) GetSession(ctx context.Context, accessToken string) (*backend.Session, error) {
	if accessToken == "" {
		return nil, nil
	}

	var u userDTO
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   []string{"auth", "v1", "user"},
		bearer: accessToken,
	}, &u)
	if err != nil {
		switch statusOf(err) {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	return &backend.Session{
		AccessToken: accessToken,
		ExpiresAt:   tokenExpiry(accessToken),
		User:        u.toUser(),
	}, nil
}

// tokenExpiry reads the exp claim without verifying the signature: GoTrue
// has just vouched for the token, this is informational only.
func tokenExpiry(accessToken string) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*backend.Session, error) {
	var tr tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   []string{"auth", "v1", "token"},
		query:  url.Values{"grant_type": {"password"}},
		body:   map[string]string{"email": email, "password": password},
	}, &tr)
	if err != nil {
		switch statusOf(err) {
		case http.StatusBadRequest, http.StatusUnauthorized:
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("sign in: %w", err)
	}

	expiresAt := time.Unix(tr.ExpiresAt, 0)
	if tr.ExpiresAt == 0 {
		expiresAt = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}

	return &backend.Session{
		AccessToken: tr.AccessToken,
		ExpiresAt:   expiresAt,
		User:        tr.User.toUser(),
	}, nil
}

// SignOut revokes the session behind accessToken. A token GoTrue no longer
// recognises is already signed out.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   []string{"auth", "v1", "logout"},
		bearer: accessToken,
	}, nil)
	if err != nil {
		switch statusOf(err) {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return nil
		}
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}
