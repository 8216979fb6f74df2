package chump

import (
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"
)

const (
	testToken = "azGDORePK8gMaC0QOYAMyEEuzJnyUi"
	testUser  = "uQiRzpo4DXghDmr9QzzfQu27cmVRsG"

	limitsURL   = DefaultBaseURL + "apps/limits.json"
	validateURL = DefaultBaseURL + "users/validate.json"
	messagesURL = DefaultBaseURL + "messages.json"
	soundsURL   = DefaultBaseURL + "sounds.json"
	receiptURL  = DefaultBaseURL + "receipts/r3c31pt.json"

	limitsBody       = `{"limit":10000,"remaining":7496,"reset":1393653600,"status":1,"request":"a8f4f3c2-limits"}`
	validUserBody    = `{"status":1,"group":0,"devices":["iPhone"],"licenses":["iOS"],"request":"e460545a-valid"}`
	sentBody         = `{"status":1,"request":"647d2300-702c-4b38-8b2f-d56326ae460b"}`
	sentEmergency    = `{"status":1,"request":"5042853c-sent","receipt":"r3c31pt"}`
	invalidTokenBody = `{"token":"invalid","errors":["application token is invalid"],"status":0,"request":"5042853c-token"}`
	invalidUserBody  = `{"user":"invalid","errors":["user identifier is not a valid user, group, or subscribed user key"],"status":0,"request":"5042853c-user"}`
)

var testNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

// newTestApp returns an Application whose requests are served by the returned mock.
func newTestApp(t *testing.T, opts ...Option) (*Application, *httpmock.MockTransport) {
	t.Helper()
	mock := httpmock.NewMockTransport()
	opts = append([]Option{
		WithHttpClient(&http.Client{Transport: mock}),
		WithClock(func() time.Time { return testNow }),
	}, opts...)
	return NewApplication(testToken, opts...), mock
}

// newValidatedUser returns a User whose devices are known to be {"iPhone"}.
func newValidatedUser(t *testing.T, app *Application, mock *httpmock.MockTransport) *User {
	t.Helper()
	mock.RegisterResponder(http.MethodPost, validateURL, jsonResponder(http.StatusOK, validUserBody, nil))
	user := app.User(testUser)
	require.NoError(t, user.Validate(t.Context(), ""))
	require.Equal(t, Yes, user.Authenticated())
	return user
}

func jsonResponder(status int, body string, headers map[string]string) httpmock.Responder {
	return func(req *http.Request) (*http.Response, error) {
		resp := httpmock.NewStringResponse(status, body)
		resp.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			resp.Header.Set(k, v)
		}
		resp.Request = req
		return resp, nil
	}
}

// formCapture records the form of the last request it served.
type formCapture struct {
	form   map[string][]string
	header http.Header
}

func (c *formCapture) responder(t *testing.T, status int, body string) httpmock.Responder {
	t.Helper()
	return func(req *http.Request) (*http.Response, error) {
		require.NoError(t, req.ParseForm())
		c.form = req.Form
		c.header = req.Header.Clone()
		return jsonResponder(status, body, nil)(req)
	}
}

func (c *formCapture) get(key string) string {
	if v := c.form[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func (c *formCapture) has(key string) bool {
	_, ok := c.form[key]
	return ok
}
