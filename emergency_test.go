package chump

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	pendingReceipt = `{"status":1,"acknowledged":0,"acknowledged_at":0,"acknowledged_by":"","acknowledged_by_device":"",` +
		`"last_delivered_at":1792324800,"expired":0,"expires_at":1792328400,"called_back":0,"called_back_at":0,"request":"p1"}`
	acknowledgedReceipt = `{"status":1,"acknowledged":1,"acknowledged_at":1792324860,"acknowledged_by":"` + testUser + `","acknowledged_by_device":"iPhone",` +
		`"last_delivered_at":1792324830,"expired":0,"expires_at":1792328400,"called_back":1,"called_back_at":1792324861,"request":"p2"}`
	expiredReceipt = `{"status":1,"acknowledged":0,"acknowledged_at":0,"last_delivered_at":1792328370,"expired":1,` +
		`"expires_at":1792328400,"called_back":0,"called_back_at":0,"request":"p3"}`
)

func emergencyParams() MessageParams {
	return MessageParams{
		Message:  "The reactor is overheating",
		Title:    "Sector 7G",
		Priority: Emergency,
		Retry:    60 * time.Second,
		Expire:   time.Hour,
		Callback: "https://example.com/ack",
	}
}

func newTestEmergency(t *testing.T) (*EmergencyMessage, *Application, *fakeReceipts) {
	t.Helper()
	app, mock := newTestApp(t)
	n, err := app.User(testUser).CreateMessage(emergencyParams())
	require.NoError(t, err)
	em, ok := n.(*EmergencyMessage)
	require.True(t, ok)

	receipts := &fakeReceipts{}
	mock.RegisterResponder(http.MethodPost, messagesURL, jsonResponder(http.StatusOK, sentEmergency, nil))
	mock.RegisterResponder(http.MethodGet, receiptURL, func(req *http.Request) (*http.Response, error) {
		receipts.polls++
		return jsonResponder(http.StatusOK, receipts.next(), nil)(req)
	})
	return em, app, receipts
}

// fakeReceipts serves the queued receipt bodies in order, repeating the last one.
type fakeReceipts struct {
	bodies []string
	polls  int
}

func (f *fakeReceipts) next() string {
	body := f.bodies[0]
	if len(f.bodies) > 1 {
		f.bodies = f.bodies[1:]
	}
	return body
}

func TestEmergency_RetryExpireConstraints(t *testing.T) {
	limits := DefaultLimits()
	tests := []struct {
		name      string
		retry     time.Duration
		expire    time.Duration
		wantField string
	}{
		{"missing retry", 0, time.Hour, "retry"},
		{"missing expire", time.Minute, 0, "expire"},
		{"retry below minimum", limits.MinRetry - time.Second, time.Hour, "retry"},
		{"expire above maximum", time.Minute, limits.MaxExpire + time.Second, "expire"},
		{"expire equal to retry", time.Minute, time.Minute, "expire"},
		{"expire below retry", 10 * time.Minute, 5 * time.Minute, "expire"},
		{"fractional retry", 30*time.Second + 500*time.Millisecond, time.Hour, "retry"},
		{"fractional expire", limits.MinRetry, limits.MinRetry + 500*time.Millisecond, "expire"},
	}

	app, mock := newTestApp(t)
	user := app.User(testUser)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := emergencyParams()
			p.Retry, p.Expire = tt.retry, tt.expire

			n, err := user.CreateMessage(p)

			var constraint *ConstraintError
			require.ErrorAs(t, err, &constraint)
			assert.Equal(t, tt.wantField, constraint.Field)
			assert.Nil(t, n)
		})
	}

	t.Run("bounds are inclusive", func(t *testing.T) {
		p := emergencyParams()
		p.Retry, p.Expire = limits.MinRetry, limits.MaxExpire
		n, err := user.CreateMessage(p)
		require.NoError(t, err)
		assert.IsType(t, &EmergencyMessage{}, n)
	})

	assert.Zero(t, mock.GetTotalCallCount())
}

func TestEmergency_CallbackMustBeHTTPURL(t *testing.T) {
	app, _ := newTestApp(t)
	p := emergencyParams()
	p.Callback = "ftp://example.com/ack"

	_, err := app.User(testUser).CreateMessage(p)

	var constraint *ConstraintError
	require.ErrorAs(t, err, &constraint)
	assert.Equal(t, "callback", constraint.Field)
}

func TestEmergency_CannotBeDowngraded(t *testing.T) {
	em, _, _ := newTestEmergency(t)

	var constraint *ConstraintError
	require.ErrorAs(t, em.SetPriority(High), &constraint)
	require.NoError(t, em.SetPriority(Emergency))
	assert.Equal(t, Emergency, em.Priority())
}

func TestEmergency_SettersRevalidate(t *testing.T) {
	em, _, _ := newTestEmergency(t)
	var constraint *ConstraintError

	require.ErrorAs(t, em.SetRetry(2*time.Hour), &constraint, "retry must stay below expire")
	require.ErrorAs(t, em.SetExpire(30*time.Second), &constraint)
	require.NoError(t, em.SetRetry(45*time.Second))
	require.NoError(t, em.SetExpire(2*time.Hour))
	assert.Equal(t, 45*time.Second, em.Retry())
	assert.Equal(t, 2*time.Hour, em.Expire())
}

func TestEmergency_PollBeforeSend(t *testing.T) {
	em, _, receipts := newTestEmergency(t)

	pending, err := em.Poll(t.Context())

	require.ErrorIs(t, err, ErrNoReceipt)
	assert.False(t, pending)
	assert.Zero(t, receipts.polls)
}

func TestEmergency_SendForm(t *testing.T) {
	app, mock := newTestApp(t)
	n, err := app.User(testUser).CreateMessage(emergencyParams())
	require.NoError(t, err)
	capture := &formCapture{}
	mock.RegisterResponder(http.MethodPost, messagesURL, capture.responder(t, http.StatusOK, sentEmergency))

	require.NoError(t, n.Send(t.Context()))

	assert.Equal(t, strconv.Itoa(int(Emergency)), capture.get("priority"))
	assert.Equal(t, "60", capture.get("retry"))
	assert.Equal(t, "3600", capture.get("expire"))
	assert.Equal(t, "https://example.com/ack", capture.get("callback"))
	assert.Equal(t, "r3c31pt", n.(*EmergencyMessage).Receipt())
}

func TestEmergency_PollUntilAcknowledged(t *testing.T) {
	em, _, receipts := newTestEmergency(t)
	receipts.bodies = []string{pendingReceipt, acknowledgedReceipt}

	require.NoError(t, em.Send(t.Context()))
	assert.Equal(t, Yes, em.IsSent())
	assert.NotEmpty(t, em.ID())
	assert.Equal(t, "r3c31pt", em.Receipt())

	pending, err := em.Poll(t.Context())
	require.NoError(t, err)
	assert.True(t, pending)
	assert.Equal(t, No, em.IsAcknowledged())
	assert.True(t, em.AcknowledgedAt().IsZero())
	assert.Equal(t, time.Unix(1792324800, 0).UTC(), em.LastDeliveredAt())

	pending, err = em.Poll(t.Context())
	require.NoError(t, err)
	assert.False(t, pending)
	assert.Equal(t, Yes, em.IsAcknowledged())
	assert.Equal(t, time.Unix(1792324860, 0).UTC(), em.AcknowledgedAt())
	assert.Equal(t, testUser, em.AcknowledgedBy())
	assert.Equal(t, "iPhone", em.AcknowledgedByDevice())
	assert.Equal(t, time.Unix(1792324830, 0).UTC(), em.LastDeliveredAt())
	assert.Equal(t, Yes, em.IsCalledBack())
	assert.Equal(t, No, em.IsExpired())
	assert.True(t, em.Resolved())

	pending, err = em.Poll(t.Context())
	require.NoError(t, err)
	assert.False(t, pending)
	assert.Equal(t, 2, receipts.polls, "a resolved message is not polled again")
}

func TestEmergency_PollUntilExpired(t *testing.T) {
	em, _, receipts := newTestEmergency(t)
	receipts.bodies = []string{expiredReceipt}
	require.NoError(t, em.Send(t.Context()))

	pending, err := em.Poll(t.Context())

	require.NoError(t, err)
	assert.False(t, pending)
	assert.Equal(t, Yes, em.IsExpired())
	assert.Equal(t, No, em.IsAcknowledged())
	assert.Equal(t, time.Unix(1792328400, 0).UTC(), em.ExpiresAt())
}

func TestEmergency_Wait(t *testing.T) {
	em, _, receipts := newTestEmergency(t)
	receipts.bodies = []string{pendingReceipt, pendingReceipt, acknowledgedReceipt}

	require.NoError(t, em.SendAndWait(t.Context(), time.Millisecond))

	assert.Equal(t, 3, receipts.polls)
	assert.Equal(t, Yes, em.IsAcknowledged())
}

func TestEmergency_WaitStopsOnContext(t *testing.T) {
	em, _, receipts := newTestEmergency(t)
	receipts.bodies = []string{pendingReceipt}
	require.NoError(t, em.Send(t.Context()))

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()
	err := em.Wait(ctx, time.Hour)

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, receipts.polls)
	assert.False(t, em.Resolved())
}

func TestEmergency_WaitReturnsPollError(t *testing.T) {
	em, _, _ := newTestEmergency(t)

	err := em.Wait(t.Context(), time.Millisecond)

	require.ErrorIs(t, err, ErrNoReceipt)
}
