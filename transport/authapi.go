package transport

import (
	"context"
	"errors"
	"net/http"

	"github.com/MrEthical07/authsession/refresh"
)

// Paths locates the authentication endpoints relative to the base URL.
type Paths struct {
	Login    string `yaml:"login"`
	Register string `yaml:"register"`
	Refresh  string `yaml:"refresh"`
	Logout   string `yaml:"logout"`
	Me       string `yaml:"me"`
}

// DefaultPaths returns the /auth/* endpoint layout.
func DefaultPaths() Paths {
	return Paths{
		Login:    "/auth/login",
		Register: "/auth/register",
		Refresh:  "/auth/refresh",
		Logout:   "/auth/logout",
		Me:       "/auth/me",
	}
}

// AuthResult is the payload of login and register responses.
type AuthResult[U any] struct {
	User         U      `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// ErrMissingTokens is returned when a login or register response has no tokens.
var ErrMissingTokens = errors.New("transport: response carries no tokens")

// AuthAPI calls the authentication endpoints. U is the user payload type.
type AuthAPI[U any] struct {
	pipeline *Pipeline
	paths    Paths
}

// NewAuthAPI creates an [AuthAPI]. Empty paths fall back to [DefaultPaths].
func NewAuthAPI[U any](p *Pipeline, paths Paths) *AuthAPI[U] {
	def := DefaultPaths()
	if paths.Login == "" {
		paths.Login = def.Login
	}
	if paths.Register == "" {
		paths.Register = def.Register
	}
	if paths.Refresh == "" {
		paths.Refresh = def.Refresh
	}
	if paths.Logout == "" {
		paths.Logout = def.Logout
	}
	if paths.Me == "" {
		paths.Me = def.Me
	}
	return &AuthAPI[U]{pipeline: p, paths: paths}
}

// Login exchanges credentials for tokens and the user.
func (a *AuthAPI[U]) Login(ctx context.Context, identifier, password string) (AuthResult[U], error) {
	body := map[string]string{"identifier": identifier, "password": password}
	return a.authenticate(ctx, a.paths.Login, body)
}

// Register creates an account and signs it in. form is sent as JSON.
func (a *AuthAPI[U]) Register(ctx context.Context, form any) (AuthResult[U], error) {
	return a.authenticate(ctx, a.paths.Register, form)
}

func (a *AuthAPI[U]) authenticate(ctx context.Context, path string, body any) (AuthResult[U], error) {
	var out AuthResult[U]
	err := a.pipeline.DoJSON(ctx, Request{
		Method:    http.MethodPost,
		Path:      path,
		JSON:      body,
		Anonymous: true,
	}, &out)
	if err != nil {
		return AuthResult[U]{}, err
	}
	if out.AccessToken == "" || out.RefreshToken == "" {
		return AuthResult[U]{}, ErrMissingTokens
	}
	return out, nil
}

// Refresh calls the renewal endpoint. It never goes through renewal itself and
// satisfies [refresh.Renewer].
func (a *AuthAPI[U]) Refresh(ctx context.Context, refreshToken string) (refresh.Tokens, error) {
	var out struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	err := a.pipeline.DoJSON(ctx, Request{
		Method:    http.MethodPost,
		Path:      a.paths.Refresh,
		JSON:      map[string]string{"refreshToken": refreshToken},
		Anonymous: true,
	}, &out)
	if err != nil {
		return refresh.Tokens{}, err
	}
	return refresh.Tokens{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}, nil
}

// Logout revokes refreshToken server-side. An expired access token is not
// renewed for this call.
func (a *AuthAPI[U]) Logout(ctx context.Context, refreshToken string) error {
	return a.pipeline.DoJSON(ctx, Request{
		Method:  http.MethodPost,
		Path:    a.paths.Logout,
		JSON:    map[string]string{"refreshToken": refreshToken},
		NoRenew: true,
	}, nil)
}

// Me fetches the current user through the pipeline.
func (a *AuthAPI[U]) Me(ctx context.Context) (U, error) {
	var out U
	if err := a.pipeline.DoJSON(ctx, Request{Method: http.MethodGet, Path: a.paths.Me}, &out); err != nil {
		var zero U
		return zero, err
	}
	return out, nil
}
