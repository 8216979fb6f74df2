package chump

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"
)

// User is a message recipient, a user or group key, bound to one Application.
type User struct {
	app *Application
	key string
	log *slog.Logger

	authMu sync.Mutex

	mu      sync.RWMutex
	auth    Tristate
	group   bool
	devices []string
}

type validateResponse struct {
	Status   int      `json:"status"`
	Request  string   `json:"request"`
	Group    int      `json:"group"`
	Devices  []string `json:"devices"`
	Licenses []string `json:"licenses"`
}

func (u *User) Key() string {
	return u.key
}

func (u *User) App() *Application {
	return u.app
}

func (u *User) String() string {
	return "Pushover User: " + u.key
}

// Authenticated returns the cached authentication state without making a request.
func (u *User) Authenticated() Tristate {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.auth
}

// IsAuthenticated returns the cached authentication state, validating the key on
// first use. The result is memoized; call Validate to check again.
func (u *User) IsAuthenticated(ctx context.Context) (bool, error) {
	u.authMu.Lock()
	defer u.authMu.Unlock()

	if state := u.Authenticated(); state.Known() {
		return state.Bool(), nil
	}
	if err := u.Validate(ctx, ""); err != nil {
		return false, err
	}
	return u.Authenticated().Bool(), nil
}

// Validate checks the user key, optionally scoped to one device. On success the
// user's active devices are recorded. A rejected key or device sets the state to No
// and is not an error. A rejected app token marks the app unauthenticated and leaves
// the user Unknown, since the key was never checked. Any other failure is returned.
func (u *User) Validate(ctx context.Context, device string) error {
	form := url.Values{"user": {u.key}}
	if device != "" {
		form.Set("device", device)
	}

	var body validateResponse
	_, err := u.app.request(ctx, http.MethodPost, "users/validate.json", form, &body)

	var apiErr *APIError
	switch {
	case err == nil:
		devices := append([]string(nil), body.Devices...)
		sort.Strings(devices)
		u.mu.Lock()
		u.auth = Yes
		u.group = body.Group == 1
		u.devices = devices
		u.mu.Unlock()
		u.log.Debug("user validated", "devices", devices, "group", body.Group == 1)
		return nil
	case errors.As(err, &apiErr) && apiErr.HasBadInput("token"):
		u.app.setAuth(No)
		u.log.Debug("app token rejected", "request", apiErr.RequestID, "errors", apiErr.Messages)
		return nil
	case errors.As(err, &apiErr) && (apiErr.HasBadInput("user") || apiErr.HasBadInput("device")):
		u.mu.Lock()
		u.auth = No
		u.devices = nil
		u.mu.Unlock()
		u.log.Debug("user rejected", "request", apiErr.RequestID, "errors", apiErr.Messages)
		return nil
	default:
		return err
	}
}

// Devices returns the user's active device names, known only after a successful validation.
func (u *User) Devices() []string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return append([]string(nil), u.devices...)
}

// IsGroup reports whether the key belongs to a delivery group. Known only after validation.
func (u *User) IsGroup() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.group
}

// checkDevice accepts a single device or a comma separated list. Names are only
// checked when the user's devices are known.
func (u *User) checkDevice(device string) error {
	if device == "" {
		return nil
	}
	u.mu.RLock()
	known, devices := u.auth == Yes, u.devices
	u.mu.RUnlock()
	if !known {
		return nil
	}
	for _, name := range strings.Split(device, ",") {
		if !lo.Contains(devices, strings.TrimSpace(name)) {
			return mustBeIn("device", devices, device)
		}
	}
	return nil
}

// noteRejection applies what a failed send tells us about the credentials.
func (u *User) noteRejection(apiErr *APIError) {
	if apiErr.HasBadInput("token") {
		u.app.setAuth(No)
	}
	if apiErr.HasBadInput("user") {
		u.mu.Lock()
		u.auth = No
		u.devices = nil
		u.mu.Unlock()
	}
}

// CreateMessage builds an unsent message from params, validating every field.
// Emergency priority yields an *EmergencyMessage, any other priority a *Message.
// No request is made.
func (u *User) CreateMessage(params MessageParams) (Notification, error) {
	if params.Priority == Emergency {
		em, err := newEmergencyMessage(u, params)
		if err != nil {
			return nil, err
		}
		return em, nil
	}
	m, err := newMessage(u, params)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// SendMessage creates a message from params and sends it. When sending fails the
// message is still returned so its state can be inspected.
func (u *User) SendMessage(ctx context.Context, params MessageParams) (Notification, error) {
	msg, err := u.CreateMessage(params)
	if err != nil {
		return nil, err
	}
	if err = msg.Send(ctx); err != nil {
		return msg, err
	}
	return msg, nil
}
