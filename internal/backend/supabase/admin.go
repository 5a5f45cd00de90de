package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/apotek/internal/backend"
)

const listPageSize = "50"

type listUsersResponse struct {
	Users []userDTO `json:"users"`
}

// ListUsers returns the users registered with exactly this email
// (case-insensitive). GoTrue's filter parameter is a substring match, so the
// result is narrowed here.
func (c *Client) ListUsers(ctx context.Context, email string) ([]backend.User, error) {
	var resp listUsersResponse
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   []string{"auth", "v1", "admin", "users"},
		query: url.Values{
			"filter":   {email},
			"page":     {"1"},
			"per_page": {listPageSize},
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	users := make([]backend.User, 0, len(resp.Users))
	for _, u := range resp.Users {
		if strings.EqualFold(u.Email, email) {
			users = append(users, u.toUser())
		}
	}
	return users, nil
}

type createUserRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	EmailConfirm bool   `json:"email_confirm"`
}

func (c *Client) CreateUser(ctx context.Context, params backend.CreateUserParams) (*backend.User, error) {
	var u userDTO
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   []string{"auth", "v1", "admin", "users"},
		body: createUserRequest{
			Email:        params.Email,
			Password:     params.Password,
			EmailConfirm: params.EmailConfirm,
		},
	}, &u)
	if err != nil {
		if isAlreadyExists(err) {
			return nil, fmt.Errorf("create user: %w: %w", backend.ErrUserAlreadyExists, err)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	user := u.toUser()
	return &user, nil
}

func isAlreadyExists(err error) bool {
	var apiErr *backend.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case "email_exists", "user_already_exists":
		return true
	}
	if apiErr.Code != "" {
		return false
	}
	if apiErr.Status != http.StatusUnprocessableEntity && apiErr.Status != http.StatusBadRequest {
		return false
	}
	return strings.Contains(strings.ToLower(apiErr.Message), "already")
}
