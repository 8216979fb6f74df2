package chump

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// EmergencyMessage is a message with Emergency priority. The provider re-alerts the
// user every Retry until the message is acknowledged or Expire has elapsed; Poll
// tracks which of the two happened.
//
//	created -> sent (pending) -> acknowledged | expired
type EmergencyMessage struct {
	Message

	retry    time.Duration
	expire   time.Duration
	callback string

	receipt string

	acknowledged         Tristate
	acknowledgedAt       time.Time
	acknowledgedBy       string
	acknowledgedByDevice string
	lastDeliveredAt      time.Time
	expired              Tristate
	expiresAt            time.Time
	calledBack           Tristate
	calledBackAt         time.Time
}

type receiptResponse struct {
	Status               int    `json:"status"`
	Request              string `json:"request"`
	Acknowledged         int    `json:"acknowledged"`
	AcknowledgedAt       int64  `json:"acknowledged_at"`
	AcknowledgedBy       string `json:"acknowledged_by"`
	AcknowledgedByDevice string `json:"acknowledged_by_device"`
	LastDeliveredAt      int64  `json:"last_delivered_at"`
	Expired              int    `json:"expired"`
	ExpiresAt            int64  `json:"expires_at"`
	CalledBack           int    `json:"called_back"`
	CalledBackAt         int64  `json:"called_back_at"`
}

func newEmergencyMessage(u *User, p MessageParams) (*EmergencyMessage, error) {
	limits := u.app.limits()
	if err := checkRetryExpire(p.Retry, p.Expire, limits); err != nil {
		return nil, err
	}
	e := &EmergencyMessage{
		Message: Message{user: u, priority: Emergency},
		retry:   p.Retry,
		expire:  p.Expire,
	}
	if err := e.apply(p); err != nil {
		return nil, err
	}
	if err := e.SetCallback(p.Callback); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *EmergencyMessage) Retry() time.Duration { return e.retry }
func (e *EmergencyMessage) Expire() time.Duration { return e.expire }
func (e *EmergencyMessage) Callback() string { return e.callback }
func (e *EmergencyMessage) Receipt() string { return e.receipt }
func (e *EmergencyMessage) IsAcknowledged() Tristate { return e.acknowledged }
func (e *EmergencyMessage) AcknowledgedAt() time.Time { return e.acknowledgedAt }
func (e *EmergencyMessage) AcknowledgedBy() string { return e.acknowledgedBy }
func (e *EmergencyMessage) AcknowledgedByDevice() string { return e.acknowledgedByDevice }
func (e *EmergencyMessage) LastDeliveredAt() time.Time { return e.lastDeliveredAt }
func (e *EmergencyMessage) IsExpired() Tristate { return e.expired }
func (e *EmergencyMessage) ExpiresAt() time.Time { return e.expiresAt }
func (e *EmergencyMessage) IsCalledBack() Tristate { return e.calledBack }
func (e *EmergencyMessage) CalledBackAt() time.Time { return e.calledBackAt }

// SetPriority only accepts Emergency: an EmergencyMessage cannot be downgraded.
func (e *EmergencyMessage) SetPriority(priority Priority) error {
	if err := e.writable(); err != nil {
		return err
	}
	if priority != Emergency {
		return &ConstraintError{Field: "priority", Constraint: "must be emergency for an emergency message", Value: int(priority)}
	}
	return nil
}

func (e *EmergencyMessage) SetRetry(retry time.Duration) error {
	if err := e.writable(); err != nil {
		return err
	}
	if err := checkRetryExpire(retry, e.expire, e.user.app.limits()); err != nil {
		return err
	}
	e.retry = retry
	return nil
}

func (e *EmergencyMessage) SetExpire(expire time.Duration) error {
	if err := e.writable(); err != nil {
		return err
	}
	if err := checkRetryExpire(e.retry, expire, e.user.app.limits()); err != nil {
		return err
	}
	e.expire = expire
	return nil
}

// SetCallback sets the URL the provider requests once the message is acknowledged.
func (e *EmergencyMessage) SetCallback(callback string) error {
	if err := e.writable(); err != nil {
		return err
	}
	if err := checkLength("callback", callback, e.user.app.limits().URLLength); err != nil {
		return err
	}
	if err := checkURL("callback", callback, "http_url"); err != nil {
		return err
	}
	e.callback = callback
	return nil
}

// Send delivers the message and records the receipt used by Poll.
func (e *EmergencyMessage) Send(ctx context.Context) error {
	extra := url.Values{
		"retry":  {strconv.Itoa(int(e.retry / time.Second))},
		"expire": {strconv.Itoa(int(e.expire / time.Second))},
	}
	if e.callback != "" {
		extra.Set("callback", e.callback)
	}

	body, err := e.send(ctx, extra)
	if err != nil {
		return err
	}
	e.receipt = body.Receipt
	e.acknowledged = No
	e.expired = No
	return nil
}

// Resolved reports whether the message reached a terminal state, acknowledged or expired.
func (e *EmergencyMessage) Resolved() bool {
	return e.acknowledged == Yes || e.expired == Yes
}

// Poll fetches the receipt status and reports whether the message is still pending,
// neither acknowledged nor expired. See Wait for a ready-made polling loop.
// It returns ErrNoReceipt before a successful Send. Once resolved, Poll returns
// false without making a request.
func (e *EmergencyMessage) Poll(ctx context.Context) (bool, error) {
	if e.receipt == "" {
		return false, ErrNoReceipt
	}
	if e.Resolved() {
		return false, nil
	}

	var body receiptResponse
	path := "receipts/" + url.PathEscape(e.receipt) + ".json"
	if _, err := e.user.app.request(ctx, http.MethodGet, path, nil, &body); err != nil {
		return false, err
	}

	e.acknowledged = tristate(body.Acknowledged == 1)
	e.expired = tristate(body.Expired == 1)
	e.calledBack = tristate(body.CalledBack == 1)
	e.acknowledgedBy = body.AcknowledgedBy
	e.acknowledgedByDevice = body.AcknowledgedByDevice
	for dst, sec := range map[*time.Time]int64{
		&e.acknowledgedAt:  body.AcknowledgedAt,
		&e.lastDeliveredAt: body.LastDeliveredAt,
		&e.expiresAt:       body.ExpiresAt,
		&e.calledBackAt:    body.CalledBackAt,
	} {
		if t := epochToTime(sec); !t.IsZero() {
			*dst = t
		}
	}

	e.user.log.Debug("receipt polled",
		"receipt", e.receipt,
		"acknowledged", e.acknowledged.String(),
		"expired", e.expired.String())
	return !e.Resolved(), nil
}
