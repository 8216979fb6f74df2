package chump

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// maxResponseBytes bounds how much of a response body is read; provider answers are tiny.
const maxResponseBytes = 1 << 20

// apiClient performs the request/response cycle against the provider. It is shared by an
// Application and every User and message created from it.
type apiClient struct {
	cnf *Config
}

func newClient(opts ...Option) *apiClient {
	c := &Config{}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	withDefaults(c)
	return &apiClient{c}
}

func (c *apiClient) now() time.Time {
	return c.cnf.Clock().UTC()
}

// do sends form to path and decodes a 200 JSON body into out. GET requests carry
// form in the query string, POST requests as an urlencoded body.
//
// A 4xx answer with a JSON body is returned as *APIError; anything else that is not
// a decodable 200 is returned as *RequestError.
func (c *apiClient) do(ctx context.Context, method, path string, form url.Values, out any) (http.Header, error) {
	op := method + " " + path
	endpoint := c.cnf.BaseURL + path

	var body io.Reader = http.NoBody
	if method == http.MethodGet {
		endpoint += "?" + form.Encode()
	} else {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, &RequestError{Op: op, Err: err}
	}
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cnf.UserAgent)

	c.cnf.Logger.Debug("pushover request", "op", op, "fields", fieldNames(form))
	start := time.Now()

	resp, err := c.cnf.HttpClient.Do(req)
	if err != nil {
		// The query string of a GET carries the token.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = c.cnf.BaseURL + path
		}
		return nil, &RequestError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &RequestError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	c.cnf.Logger.Debug("pushover response",
		"op", op,
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"body", string(data))

	if err = checkStatus(resp, data); err != nil {
		var reqErr *RequestError
		if errors.As(err, &reqErr) {
			reqErr.Op = op
		}
		return resp.Header, err
	}

	if out != nil {
		if err = json.Unmarshal(data, out); err != nil {
			return resp.Header, &RequestError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode body: %w", err)}
		}
	}
	return resp.Header, nil
}

func checkStatus(resp *http.Response, body []byte) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode <= 499:
		apiErr, err := parseAPIError(resp.StatusCode, body)
		if err != nil {
			return &RequestError{StatusCode: resp.StatusCode, Err: fmt.Errorf("malformed error body: %w", err)}
		}
		return apiErr
	default:
		return &RequestError{StatusCode: resp.StatusCode, Err: fmt.Errorf("invalid response (%s)", resp.Status)}
	}
}

// sentAt prefers the provider's Date header so that timestamps agree with its clock.
func (c *apiClient) sentAt(header http.Header) time.Time {
	if date := header.Get("Date"); date != "" {
		if t, err := http.ParseTime(date); err == nil {
			return t.UTC()
		}
	}
	return c.now()
}

// rateLimit reads the X-Limit-App-* headers the provider attaches to message responses.
// All three must be present and numeric.
func rateLimit(header http.Header) (RateLimit, bool) {
	limit, err := strconv.Atoi(header.Get("X-Limit-App-Limit"))
	if err != nil {
		return RateLimit{}, false
	}
	remaining, err := strconv.Atoi(header.Get("X-Limit-App-Remaining"))
	if err != nil {
		return RateLimit{}, false
	}
	reset, err := strconv.ParseInt(header.Get("X-Limit-App-Reset"), 10, 64)
	if err != nil {
		return RateLimit{}, false
	}
	return RateLimit{Limit: limit, Remaining: remaining, Reset: epochToTime(reset)}, true
}

func fieldNames(form url.Values) []string {
	names := make([]string, 0, len(form))
	for k := range form {
		if k != "token" {
			names = append(names, k)
		}
	}
	return names
}
