package chump

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// MessageParams describes a message to create. Only Message is required.
// Retry, Expire and Callback apply to Emergency priority only.
type MessageParams struct {
	Message   string
	Title     string
	HTML      bool
	Monospace bool
	Sound     string
	Priority  Priority
	URL       string
	URLTitle  string
	Timestamp time.Time
	Device    string

	Retry    time.Duration
	Expire   time.Duration
	Callback string
}

// Message is a notification to one User. Every setter validates eagerly, and a
// message can be sent once: after the outcome is known it no longer changes.
type Message struct {
	user *User

	message   string
	title     string
	html      bool
	monospace bool
	sound     string
	priority  Priority
	url       string
	urlTitle  string
	timestamp time.Time
	device    string

	sent   Tristate
	id     string
	sentAt time.Time
	err    error
}

type sendResponse struct {
	Status  int    `json:"status"`
	Request string `json:"request"`
	Receipt string `json:"receipt"`
}

func newMessage(u *User, p MessageParams) (*Message, error) {
	m := &Message{user: u}
	if err := m.apply(p); err != nil {
		return nil, err
	}
	if err := m.SetPriority(p.Priority); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Message) apply(p MessageParams) error {
	setters := []func() error{
		func() error { return m.SetBody(p.Message) },
		func() error { return m.SetTitle(p.Title) },
		func() error { return m.SetHTML(p.HTML) },
		func() error { return m.SetMonospace(p.Monospace) },
		func() error { return m.SetSound(p.Sound) },
		func() error { return m.SetURL(p.URL) },
		func() error { return m.SetURLTitle(p.URLTitle) },
		func() error { return m.SetTimestamp(p.Timestamp) },
		func() error { return m.SetDevice(p.Device) },
	}
	for _, set := range setters {
		if err := set(); err != nil {
			return err
		}
	}
	return nil
}

func (m *Message) User() *User { return m.user }
func (m *Message) Body() string { return m.message }
func (m *Message) Title() string { return m.title }
func (m *Message) HTML() bool { return m.html }
func (m *Message) Monospace() bool { return m.monospace }
func (m *Message) Sound() string { return m.sound }
func (m *Message) Priority() Priority { return m.priority }
func (m *Message) URL() string { return m.url }
func (m *Message) URLTitle() string { return m.urlTitle }
func (m *Message) Device() string { return m.device }
func (m *Message) IsSent() Tristate { return m.sent }
func (m *Message) ID() string { return m.id }
func (m *Message) SentAt() time.Time { return m.sentAt }
func (m *Message) Err() error { return m.err }

// Timestamp is zero until set or sent; an unset timestamp becomes the send time.
func (m *Message) Timestamp() time.Time { return m.timestamp }

func (m *Message) writable() error {
	if m.sent.Known() {
		return ErrAlreadySent
	}
	return nil
}

func (m *Message) SetBody(message string) error {
	if err := m.writable(); err != nil {
		return err
	}
	limits := m.user.app.limits()
	if message == "" {
		return &ConstraintError{Field: "message", Constraint: "is required", Value: message}
	}
	if err := checkLength("message", message, limits.MessageLength); err != nil {
		return err
	}
	if err := checkCombined("message", message, m.title, limits.CombinedLength); err != nil {
		return err
	}
	m.message = message
	return nil
}

func (m *Message) SetTitle(title string) error {
	if err := m.writable(); err != nil {
		return err
	}
	limits := m.user.app.limits()
	if err := checkLength("title", title, limits.TitleLength); err != nil {
		return err
	}
	if err := checkCombined("title", m.message, title, limits.CombinedLength); err != nil {
		return err
	}
	m.title = title
	return nil
}

func (m *Message) SetHTML(html bool) error {
	if err := m.writable(); err != nil {
		return err
	}
	if html && m.monospace {
		return &ConstraintError{Field: "html", Constraint: "cannot be combined with monospace", Value: html}
	}
	m.html = html
	return nil
}

func (m *Message) SetMonospace(monospace bool) error {
	if err := m.writable(); err != nil {
		return err
	}
	if monospace && m.html {
		return &ConstraintError{Field: "monospace", Constraint: "cannot be combined with html", Value: monospace}
	}
	m.monospace = monospace
	return nil
}

// SetSound accepts "" (the user's default sound), a builtin sound, or a custom
// sound previously fetched with Application.Sounds.
func (m *Message) SetSound(sound string) error {
	if err := m.writable(); err != nil {
		return err
	}
	custom := m.user.app.customSounds()
	if sound != "" && !validSound(sound, custom) {
		return mustBeIn("sound", allowedSounds(custom), sound)
	}
	m.sound = sound
	return nil
}

// SetPriority accepts any level except Emergency, which needs an EmergencyMessage
// from User.CreateMessage.
func (m *Message) SetPriority(priority Priority) error {
	if err := m.writable(); err != nil {
		return err
	}
	if !priority.Valid() {
		return &ConstraintError{Field: "priority", Constraint: "must be between -2 and 2", Value: int(priority)}
	}
	if priority == Emergency {
		return &ConstraintError{Field: "priority", Constraint: "emergency messages need retry and expire, create them with User.CreateMessage", Value: int(priority)}
	}
	m.priority = priority
	return nil
}

func (m *Message) SetURL(u string) error {
	if err := m.writable(); err != nil {
		return err
	}
	if err := checkLength("url", u, m.user.app.limits().URLLength); err != nil {
		return err
	}
	if err := checkURL("url", u, "url"); err != nil {
		return err
	}
	m.url = u
	return nil
}

func (m *Message) SetURLTitle(title string) error {
	if err := m.writable(); err != nil {
		return err
	}
	if err := checkLength("url_title", title, m.user.app.limits().URLTitleLength); err != nil {
		return err
	}
	m.urlTitle = title
	return nil
}

func (m *Message) SetTimestamp(ts time.Time) error {
	if err := m.writable(); err != nil {
		return err
	}
	if !ts.IsZero() && ts.Unix() <= 0 {
		return &ConstraintError{Field: "timestamp", Constraint: "must be after the Unix epoch", Value: ts}
	}
	if !ts.IsZero() {
		ts = ts.UTC()
	}
	m.timestamp = ts
	return nil
}

func (m *Message) SetDevice(device string) error {
	if err := m.writable(); err != nil {
		return err
	}
	if err := m.user.checkDevice(device); err != nil {
		return err
	}
	m.device = device
	return nil
}

// Send delivers the message. It returns ErrAlreadySent once the outcome of a previous
// Send is known. A provider rejection sets IsSent to No and returns the *APIError; a
// transport failure leaves IsSent Unknown so that Send may be called again.
func (m *Message) Send(ctx context.Context) error {
	_, err := m.send(ctx, nil)
	return err
}

func (m *Message) send(ctx context.Context, extra url.Values) (*sendResponse, error) {
	if err := m.writable(); err != nil {
		return nil, err
	}

	app := m.user.app
	ts := m.timestamp
	if ts.IsZero() {
		ts = app.client.now()
	}

	form := m.form(ts)
	for k, v := range extra {
		form[k] = v
	}

	var body sendResponse
	header, err := app.request(ctx, http.MethodPost, "messages.json", form, &body)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			m.sent = No
			m.timestamp = ts
			m.err = apiErr
			m.user.noteRejection(apiErr)
		}
		return nil, err
	}

	m.sent = Yes
	m.timestamp = ts
	m.id = body.Request
	m.sentAt = app.client.sentAt(header)
	m.user.log.Debug("message sent", "request", body.Request, "priority", m.priority.String())
	return &body, nil
}

func (m *Message) form(ts time.Time) url.Values {
	form := url.Values{
		"user":      {m.user.key},
		"message":   {m.message},
		"priority":  {strconv.Itoa(int(m.priority))},
		"timestamp": {strconv.FormatInt(ts.Unix(), 10)},
	}
	optional := map[string]string{
		"title":     m.title,
		"sound":     m.sound,
		"url":       m.url,
		"url_title": m.urlTitle,
		"device":    m.device,
	}
	for k, v := range optional {
		if v != "" {
			form.Set(k, v)
		}
	}
	if m.html {
		form.Set("html", "1")
	}
	if m.monospace {
		form.Set("monospace", "1")
	}
	return form
}

// String renders the message as "(title) message", or just the message when untitled.
func (m *Message) String() string {
	if m.title != "" {
		return "(" + m.title + ") " + m.message
	}
	return m.message
}
