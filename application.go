package chump

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"sync"
)

// Application is a registered Pushover app, identified by its API token.
//
// An Application is safe for concurrent use. Its authentication state is
// determined lazily by the first IsAuthenticated call, or explicitly by Validate.
type Application struct {
	token  string
	client *apiClient
	log    *slog.Logger

	// authMu serializes the lazy check-and-set in IsAuthenticated.
	authMu sync.Mutex

	mu     sync.RWMutex
	auth   Tristate
	limit  RateLimit
	sounds map[string]string
}

type limitsResponse struct {
	Status    int    `json:"status"`
	Request   string `json:"request"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	Reset     int64  `json:"reset"`
}

type soundsResponse struct {
	Status  int               `json:"status"`
	Request string            `json:"request"`
	Sounds  map[string]string `json:"sounds"`
}

// NewApplication returns an Application for token. No request is made.
func NewApplication(token string, opts ...Option) *Application {
	client := newClient(opts...)
	return &Application{
		token:  token,
		client: client,
		log:    client.cnf.Logger.With("component", "application"),
	}
}

func (a *Application) Token() string {
	return a.token
}

func (a *Application) String() string {
	return "Pushover App: " + a.token
}

// Authenticated returns the cached authentication state without making a request.
func (a *Application) Authenticated() Tristate {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.auth
}

// IsAuthenticated returns the cached authentication state, validating the token on
// first use. The result is memoized; call Validate to check again.
func (a *Application) IsAuthenticated(ctx context.Context) (bool, error) {
	a.authMu.Lock()
	defer a.authMu.Unlock()

	if state := a.Authenticated(); state.Known() {
		return state.Bool(), nil
	}
	if err := a.Validate(ctx); err != nil {
		return false, err
	}
	return a.Authenticated().Bool(), nil
}

// Validate checks the token with GET apps/limits.json, the provider endpoint that
// needs only the token, and records the limit, remaining and reset it returns.
// A rejected token is not an error: it sets the state to No. Any other failure,
// including a 4xx that does not name the token, is returned and leaves the state unchanged.
func (a *Application) Validate(ctx context.Context) error {
	var body limitsResponse
	_, err := a.request(ctx, http.MethodGet, "apps/limits.json", nil, &body)

	var apiErr *APIError
	switch {
	case err == nil:
		a.mu.Lock()
		a.auth = Yes
		a.limit = RateLimit{Limit: body.Limit, Remaining: body.Remaining, Reset: epochToTime(body.Reset)}
		a.mu.Unlock()
		a.log.Debug("token validated", "limit", body.Limit, "remaining", body.Remaining)
		return nil
	case errors.As(err, &apiErr) && apiErr.HasBadInput("token"):
		a.setAuth(No)
		a.log.Debug("token rejected", "request", apiErr.RequestID, "errors", apiErr.Messages)
		return nil
	default:
		return err
	}
}

// RateLimit returns the quota reported by the most recent successful request that carried one.
func (a *Application) RateLimit() RateLimit {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.limit
}

// Sounds fetches the sounds available to this app, including any custom ones,
// keyed by name. The list is fetched once and memoized.
func (a *Application) Sounds(ctx context.Context) (map[string]string, error) {
	a.mu.RLock()
	sounds := a.sounds
	a.mu.RUnlock()
	if sounds != nil {
		return maps.Clone(sounds), nil
	}

	var body soundsResponse
	if _, err := a.request(ctx, http.MethodGet, "sounds.json", nil, &body); err != nil {
		return nil, err
	}
	if body.Sounds == nil {
		body.Sounds = map[string]string{}
	}

	a.mu.Lock()
	a.sounds = body.Sounds
	a.mu.Unlock()
	return maps.Clone(body.Sounds), nil
}

func (a *Application) customSounds() map[string]string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sounds
}

// User returns a User bound to this app. No request is made.
func (a *Application) User(key string) *User {
	return &User{
		app: a,
		key: key,
		log: a.log.With("component", "user"),
	}
}

func (a *Application) limits() Limits {
	return a.client.cnf.Limits
}

func (a *Application) setAuth(state Tristate) {
	a.mu.Lock()
	a.auth = state
	a.mu.Unlock()
}

// request adds the app token to form and records rate-limit headers on success.
func (a *Application) request(ctx context.Context, method, path string, form url.Values, out any) (http.Header, error) {
	if form == nil {
		form = url.Values{}
	}
	form.Set("token", a.token)

	header, err := a.client.do(ctx, method, path, form, out)
	if err != nil {
		return header, err
	}
	if limit, ok := rateLimit(header); ok {
		a.mu.Lock()
		a.limit = limit
		a.mu.Unlock()
	}
	return header, nil
}
