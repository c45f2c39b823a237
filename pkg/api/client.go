// Package api provides a client for the session actions proxy.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// Client talks to a running action proxy over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	config     clientConfig
}

// ClientOption is a function type for configuring client behavior.
type ClientOption func(*clientConfig)

type clientConfig struct {
	timeout    time.Duration
	maxRetries uint
	retryDelay time.Duration
}

// WithTimeout sets the timeout of each HTTP request.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithMaxRetries sets the maximum number of attempts for a request.
// Only connection failures and gateway errors are retried.
func WithMaxRetries(maxRetries uint) ClientOption {
	return func(c *clientConfig) {
		c.maxRetries = maxRetries
	}
}

// WithRetryDelay sets the base delay between attempts.
func WithRetryDelay(delay time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.retryDelay = delay
	}
}

// NewClient creates a client for the proxy at endpoint, e.g. "http://localhost:8080".
func NewClient(endpoint string, opts ...ClientOption) (*Client, error) {
	config := clientConfig{
		timeout:    10 * time.Second,
		maxRetries: 3,
		retryDelay: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&config)
	}
	if config.maxRetries == 0 {
		config.maxRetries = 1
	}

	if endpoint == "" {
		return nil, errors.New("endpoint is required")
	}
	u, err := url.Parse(strings.TrimRight(endpoint, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid endpoint")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("invalid endpoint %q: scheme must be http or https", endpoint)
	}

	return &Client{
		httpClient: &http.Client{Timeout: config.timeout},
		baseURL:    u,
		config:     config,
	}, nil
}

// Invoke calls the named action with a JSON parameter object and returns the
// JSON result. An action that produced nothing returns {}.
func (c *Client) Invoke(ctx context.Context, actionName string, params []byte) ([]byte, error) {
	if actionName == "" {
		return nil, errors.New("action name is required")
	}
	return c.do(ctx, http.MethodPost, "/actions/"+url.PathEscape(actionName), orEmptyObject(params))
}

// Init selects the action served by Run.
func (c *Client) Init(ctx context.Context, actionName string) error {
	var req initRequest
	req.Value.Main = actionName
	body, err := json.Marshal(req)
	if err != nil {
		return errors.Wrap(err, "failed to marshal init request")
	}
	_, err = c.do(ctx, http.MethodPost, "/init", body)
	return err
}

// Run invokes the initialized action the way the platform does.
func (c *Client) Run(ctx context.Context, params []byte, activation Activation) ([]byte, error) {
	req := runRequest{
		Value:        orEmptyObject(params),
		ActivationID: activation.ActivationID,
		ActionName:   activation.ActionName,
		Namespace:    activation.Namespace,
	}
	if req.ActivationID == "" {
		req.ActivationID = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	if !activation.Deadline.IsZero() {
		req.Deadline = strconv.FormatInt(activation.Deadline.UnixMilli(), 10)
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal run request")
	}
	return c.do(ctx, http.MethodPost, "/run", body)
}

// Ready returns nil once the proxy reports ready.
func (c *Client) Ready(ctx context.Context) error {
	rsp, err := c.do(ctx, http.MethodGet, "/ready", nil)
	if err != nil {
		return err
	}
	if status := gjson.GetBytes(rsp, "status").String(); status != "ready" {
		return errors.Errorf("proxy not ready: %q", status)
	}
	return nil
}

// Version returns the proxy's version information.
func (c *Client) Version(ctx context.Context) (*VersionInfo, error) {
	rsp, err := c.do(ctx, http.MethodGet, "/version", nil)
	if err != nil {
		return nil, err
	}
	var info VersionInfo
	if err := json.Unmarshal(rsp, &info); err != nil {
		return nil, errors.Wrap(err, "failed to decode version")
	}
	return &info, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	target := c.baseURL.String() + path
	var result []byte
	err := retry.Do(
		func() error {
			var reqBody io.Reader
			if body != nil {
				reqBody = bytes.NewReader(body)
			}
			req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
			if err != nil {
				return retry.Unrecoverable(errors.Wrap(err, "failed to create request"))
			}
			if body != nil {
				req.Header.Set("Content-Type", "application/json")
			}
			req.Header.Set("Accept", "application/json")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return errors.Wrapf(err, "%s %s", method, path)
			}
			defer resp.Body.Close()

			data, err := io.ReadAll(resp.Body)
			if err != nil {
				return errors.Wrap(err, "failed to read response")
			}
			if resp.StatusCode < 200 || resp.StatusCode > 299 {
				return &ResponseError{
					StatusCode: resp.StatusCode,
					Message:    gjson.GetBytes(data, "error").String(),
				}
			}
			result = data
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.config.maxRetries),
		retry.Delay(c.config.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
	)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func isRetryable(err error) bool {
	var rspErr *ResponseError
	if errors.As(err, &rspErr) {
		return rspErr.Temporary()
	}
	return true
}

type rawJSON = json.RawMessage

func orEmptyObject(b []byte) rawJSON {
	if len(bytes.TrimSpace(b)) == 0 {
		return rawJSON("{}")
	}
	return rawJSON(b)
}
