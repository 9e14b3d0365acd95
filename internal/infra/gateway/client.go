// Package gateway is the single outbound request pipeline. Every REST
// call the client makes goes through it: cookies are always sent, bearer
// tokens are attached when the active mode requires them, and 401
// responses are intercepted centrally.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"

	"stride/config"
	"stride/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

const maxResponseBody = 1 << 20

// unauthorizedExemptSubstrings lists URL fragments whose 401 responses do
// not imply the whole session is invalid: the login endpoint itself,
// identity-service callbacks, third-party-activity-provider paths, and
// webhook receivers.
var unauthorizedExemptSubstrings = []string{
	"/auth/login",
	"/auth/external",
	"/oauth",
	"/garmin",
	"/webhooks",
}

// UnauthorizedHandler reacts to an intercepted 401 outside the exemption
// list. In the dashboard this is a full navigation to the login page.
type UnauthorizedHandler func(rawURL string)

// Params holds dependencies for the Client, injected by Fx
type Params struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

// Client wraps one http.Client with a cookie jar, a deferred credential
// slot, and the 401 interception policy.
type Client struct {
	base     *url.URL
	http     *http.Client
	creds    *DeferredCredential
	mode     entity.AuthMode
	mockMode bool
	logger   *slog.Logger

	mu             sync.RWMutex
	onUnauthorized UnauthorizedHandler
}

// New builds the outbound pipeline from configuration.
func New(params Params) (*Client, error) {
	rawBase := strings.TrimSpace(params.Config.API.BaseURL)
	if rawBase == "" {
		return nil, errors.New("api base url must be provided")
	}
	base, err := url.Parse(rawBase)
	if err != nil {
		return nil, errors.Wrap(err, "parse api base url")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "create cookie jar")
	}

	mode := entity.ResolveAuthMode(params.Config.Auth.Mode, params.Config.HasExternalKey())

	return &Client{
		base: base,
		http: &http.Client{
			Jar:       jar,
			Timeout:   params.Config.API.Timeout,
			Transport: newRetryTransport(nil, params.Logger),
		},
		creds:    NewDeferredCredential(),
		mode:     mode,
		mockMode: params.Config.MockMode,
		logger:   params.Logger,
	}, nil
}

// Mode returns the effective authentication mode the pipeline serves.
func (c *Client) Mode() entity.AuthMode {
	return c.mode
}

// Credentials exposes the registration point the mounted identity
// provider resolves during startup.
func (c *Client) Credentials() *DeferredCredential {
	return c.creds
}

// SetUnauthorizedHandler installs the navigation side effect for
// intercepted 401 responses.
func (c *Client) SetUnauthorizedHandler(fn UnauthorizedHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

type requestOptions struct {
	skipBearer bool
	bearer     string
}

// RequestOption adjusts credential handling for a single request.
type RequestOption func(*requestOptions)

// WithoutBearer sends the request with cookie credentials only, used for
// the cookie-session checks in session and hybrid mode.
func WithoutBearer() RequestOption {
	return func(o *requestOptions) { o.skipBearer = true }
}

// WithBearer attaches an explicit token instead of consulting the
// registered credential source.
func WithBearer(token string) RequestOption {
	return func(o *requestOptions) { o.bearer = token }
}

// Get issues a GET request and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out, opts...)
}

// Post issues a POST request with a JSON body and decodes the JSON
// response into out.
func (c *Client) Post(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out, opts...)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any, opts ...RequestOption) error {
	var reqOpts requestOptions
	for _, opt := range opts {
		opt(&reqOpts)
	}

	target := c.base.JoinPath(path)
	if len(query) != 0 {
		target.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request body")
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reqBody)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.New().String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.attachCredential(ctx, req, reqOpts)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, target.Path)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return errors.Wrap(err, "read response body")
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.handleUnauthorized(resp)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{
			StatusCode: resp.StatusCode,
			URL:        resp.Request.URL.String(),
			Body:       string(payload),
		}
	}

	if out != nil && len(payload) != 0 {
		if err := json.Unmarshal(payload, out); err != nil {
			return errors.Wrap(err, "decode response body")
		}
	}

	return nil
}

// attachCredential adds the Authorization header when the mode requires
// one. Token-fetch failures are logged and the request proceeds without
// the header rather than failing.
func (c *Client) attachCredential(ctx context.Context, req *http.Request, opts requestOptions) {
	if c.mockMode || opts.skipBearer || !c.mode.RequiresToken() {
		return
	}

	token := opts.bearer
	if token == "" {
		var err error
		token, err = c.creds.Token(ctx)
		if err != nil {
			c.logger.Warn("credential fetch failed, sending request unauthenticated",
				slog.String("url", req.URL.Path),
				slog.Any("error", err),
			)

			return
		}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// handleUnauthorized applies the 401 interception policy: in external
// mode the provider owns recovery, in mock mode nothing happens, and
// exempted URLs legitimately return 401 without invalidating the session.
func (c *Client) handleUnauthorized(resp *http.Response) {
	if c.mockMode || c.mode == entity.AuthModeExternal {
		return
	}

	rawURL := resp.Request.URL.String()
	if unauthorizedExempt(rawURL) {
		return
	}

	c.mu.RLock()
	handler := c.onUnauthorized
	c.mu.RUnlock()

	if handler != nil {
		c.logger.Info("session rejected, redirecting to login", slog.String("url", rawURL))
		handler(rawURL)
	}
}

func unauthorizedExempt(rawURL string) bool {
	for _, fragment := range unauthorizedExemptSubstrings {
		if strings.Contains(rawURL, fragment) {
			return true
		}
	}

	return false
}
