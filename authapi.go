package steprun

import (
	"context"
	"net/url"
)

// AuthAPI wraps the authentication endpoints. Each method is a direct
// pass-through to the Client: request shaping only, no business logic.
type AuthAPI struct {
	c *Client
}

// NewAuthAPI returns an AuthAPI using c.
func NewAuthAPI(c *Client) *AuthAPI {
	return &AuthAPI{c: c}
}

// LoginResponse is the POST /api/v1/login/access-token response body.
type LoginResponse struct {
	TokenType   string `json:"token_type"`
	AccessToken string `json:"access_token"`
}

// MessageResponse is the body of endpoints whose success is keyed on
// the presence of a message field (password recovery and reset).
type MessageResponse struct {
	Message string `json:"message,omitempty"`
}

// Login exchanges credentials for an access token. The endpoint takes a
// form-encoded OAuth2 password grant, unlike every other endpoint.
func (a *AuthAPI) Login(ctx context.Context, username, password string) (LoginResponse, error) {
	form := url.Values{
		"username":   {username},
		"password":   {password},
		"grant_type": {"password"},
	}
	var out LoginResponse
	err := a.c.postForm(ctx, "/api/v1/login/access-token", form, &out)
	return out, err
}

type registerRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register signs up a new account. Note the path: signup is not under
// the /api/v1 prefix.
func (a *AuthAPI) Register(ctx context.Context, fullName, email, password string) error {
	return a.c.post(ctx, "/api/users/signup", registerRequest{
		FullName: fullName,
		Email:    email,
		Password: password,
	}, nil)
}

// CurrentUser fetches the profile of the authenticated user.
func (a *AuthAPI) CurrentUser(ctx context.Context) (User, error) {
	var out User
	err := a.c.get(ctx, "/api/v1/users/me", nil, &out)
	return out, err
}

// Logout invalidates the current access token server-side.
func (a *AuthAPI) Logout(ctx context.Context) error {
	return a.c.post(ctx, "/api/v1/auth/logout", nil, nil)
}

// RefreshToken exchanges the current token for a fresh one.
func (a *AuthAPI) RefreshToken(ctx context.Context) (LoginResponse, error) {
	var out LoginResponse
	err := a.c.post(ctx, "/api/v1/auth/refresh-token", nil, &out)
	return out, err
}

// RequestPasswordReset emails a reset token to the given address.
func (a *AuthAPI) RequestPasswordReset(ctx context.Context, email string) (MessageResponse, error) {
	var out MessageResponse
	err := a.c.post(ctx, "/api/v1/auth/request-password-reset", map[string]string{"email": email}, &out)
	return out, err
}

// ResetPassword sets a new password using an emailed reset token.
func (a *AuthAPI) ResetPassword(ctx context.Context, token, newPassword string) (MessageResponse, error) {
	var out MessageResponse
	err := a.c.post(ctx, "/api/v1/auth/reset-password", map[string]string{
		"token":        token,
		"new_password": newPassword,
	}, &out)
	return out, err
}

// KeyAPI wraps the API-key endpoints.
type KeyAPI struct {
	c *Client
}

// NewKeyAPI returns a KeyAPI using c.
func NewKeyAPI(c *Client) *KeyAPI {
	return &KeyAPI{c: c}
}

type createKeyRequest struct {
	Name string `json:"name"`
}

type createKeyResponse struct {
	APIKey string `json:"api_key"`
}

// Create issues a new API key. The full key string is visible only in
// this response.
func (k *KeyAPI) Create(ctx context.Context, name string) (APIKey, error) {
	var out createKeyResponse
	if err := k.c.post(ctx, "/api/v1/users/me/api-key", createKeyRequest{Name: name}, &out); err != nil {
		return APIKey{}, err
	}
	return APIKey{Name: name, Key: out.APIKey}, nil
}

type listKeysResponse struct {
	APIKeys []string `json:"apiKeys"`
}

// List returns the key strings currently issued to the user.
func (k *KeyAPI) List(ctx context.Context) ([]string, error) {
	var out listKeysResponse
	if err := k.c.get(ctx, "/api/v1/api-keys", nil, &out); err != nil {
		return nil, err
	}
	return out.APIKeys, nil
}

// Delete revokes a key. The key string is its id.
func (k *KeyAPI) Delete(ctx context.Context, id string) error {
	return k.c.delete(ctx, "/api/v1/api-keys/"+url.PathEscape(id))
}
