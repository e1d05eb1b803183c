package fhem

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/psufhem/internal/logging"
	"github.com/muurk/psufhem/internal/settings"
	"github.com/muurk/psufhem/internal/version"
)

const (
	// DefaultTimeout bounds a single HTTP exchange with FHEM
	DefaultTimeout = 10 * time.Second

	// CommandPath is the FHEMWEB command endpoint below the configured address
	CommandPath = "/fhem"

	// TokenHeader carries the current csrf token on every FHEMWEB reply
	TokenHeader = "X-FHEM-csrfToken"

	// maxBodyBytes caps how much of a reply is read
	maxBodyBytes = 4 << 20
)

// ConfigProvider supplies the configuration for each operation.
// settings.Holder implements it.
type ConfigProvider interface {
	Current() settings.Configuration
}

// Observer receives exchange outcomes, e.g. for metrics.
type Observer interface {
	ObserveExchange(verb string, statusCode int, retried bool)
	ObserveTokenRefresh()
	ObserveError(kind ErrorType)
}

// Response is the outcome of one command, after any token retry.
type Response struct {
	StatusCode int
	Body       []byte
	// Token is the X-FHEM-csrfToken header of the reply ("" if absent)
	Token string
	// Retried is true when this reply answers the token retry
	Retried bool

	tokenSeen bool
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Client sends commands to FHEMWEB and keeps its csrf token fresh.
// The token mutex is held across the whole send, inspect and retry
// sequence.
type Client struct {
	config   ConfigProvider
	logger   *zap.Logger
	observer Observer

	secure   *http.Client
	insecure *http.Client
	timeout  time.Duration

	mu    sync.Mutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. The default is the global logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver registers an exchange observer.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// WithHTTPClient replaces both HTTP clients. The verify_tls setting then
// has no effect; the caller's transport decides.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.secure = hc
			c.insecure = hc
		}
	}
}

// WithTimeout sets the per-exchange timeout of the default HTTP clients.
// A client passed with WithHTTPClient keeps its own timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClient creates a client reading its configuration from config.
func NewClient(config ConfigProvider, opts ...Option) *Client {
	c := &Client{
		config:  config,
		logger:  logging.Named("fhem"),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.secure == nil {
		c.secure = newHTTPClient(false, c.timeout)
		c.insecure = newHTTPClient(true, c.timeout)
	}
	return c
}

func newHTTPClient(skipVerify bool, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if skipVerify {
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{}
		}
		transport.TLSClientConfig.InsecureSkipVerify = true //nolint:gosec // verify_tls=false is an explicit user choice
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// Token returns the current csrf token ("" while unset).
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// ResetToken forgets the csrf token, e.g. after the address changed.
func (c *Client) ResetToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
}

// Enabled reports whether a FHEM address is configured.
func (c *Client) Enabled() bool {
	return c.config.Current().Enabled()
}

// SendCommand sends a raw FHEM command. A non-success status is logged and
// returned in the Response with a nil error; only transport failures return
// an error. Without a configured address it returns (nil, nil) and makes no
// network call.
func (c *Client) SendCommand(ctx context.Context, command string) (*Response, error) {
	cfg := c.config.Current()
	if !cfg.Enabled() {
		c.logger.Debug("FHEM address not configured, ignoring command", zap.String("command", command))
		return nil, nil
	}
	return c.do(ctx, cfg, command)
}

// TurnOn sends "set <device> <set_on>". A nil error means the request was
// dispatched; query State for the resulting power state.
func (c *Client) TurnOn(ctx context.Context) error {
	return c.switchPower(ctx, true)
}

// TurnOff sends "set <device> <set_off>".
func (c *Client) TurnOff(ctx context.Context) error {
	return c.switchPower(ctx, false)
}

func (c *Client) switchPower(ctx context.Context, on bool) error {
	cfg := c.config.Current()
	if !cfg.Enabled() {
		c.logger.Debug("FHEM address not configured, ignoring power command", zap.Bool("on", on))
		return nil
	}

	value := cfg.OffValue
	if on {
		value = cfg.OnValue
	}

	c.logger.Debug("Switching PSU",
		zap.Bool("on", on),
		zap.String("device", cfg.DeviceName),
	)

	_, err := c.do(ctx, cfg, SetCommand(cfg.DeviceName, value))
	return err
}

// State queries the reading and reports whether the device is on.
//
// Disabled, transitional (set_*) and empty replies report false with a nil
// error. A reply without the reading path returns ErrMalformedStatusDocument,
// an unrecognized value returns ErrUnknownReading; both report false.
func (c *Client) State(ctx context.Context) (bool, error) {
	cfg := c.config.Current()
	if !cfg.Enabled() {
		return false, nil
	}

	resp, err := c.do(ctx, cfg, ListCommand(cfg.DeviceName))
	if err != nil {
		return false, err
	}
	if !resp.OK() {
		return false, NewHTTPError(resp.StatusCode, fmt.Sprintf("jsonlist2 %s failed with status %d", cfg.DeviceName, resp.StatusCode))
	}

	doc, err := ParseStatusDocument(resp.Body)
	if err != nil {
		c.logger.Error("Failed to parse FHEM status", zap.String("device", cfg.DeviceName), zap.Error(err))
		c.observeError(ErrTypeParse)
		return false, err
	}
	if doc == nil {
		c.logger.Warn("FHEM returned an empty status document", zap.String("device", cfg.DeviceName))
		return false, nil
	}

	value, err := doc.ReadingValue(cfg.ReadingName)
	if err != nil {
		c.logger.Error("Reading missing from FHEM status",
			zap.String("device", cfg.DeviceName),
			zap.String("reading", cfg.ReadingName),
			zap.Error(err),
		)
		c.observeError(ErrTypeMalformedStatus)
		return false, err
	}

	switch Interpret(value, cfg) {
	case StateOff:
		return false, nil
	case StateOn:
		return true, nil
	case StateTransition:
		// Neither on nor off yet; report off until the device settles
		c.logger.Debug("Device is switching",
			zap.String("device", cfg.DeviceName),
			zap.String("value", value),
		)
		return false, nil
	default:
		c.logger.Error("Unknown status reading",
			zap.String("device", cfg.DeviceName),
			zap.String("reading", cfg.ReadingName),
			zap.String("value", value),
		)
		c.observeError(ErrTypeUnknownReading)
		return false, newUnknownReadingError(cfg.ReadingName, value)
	}
}

// LoadToken seeds the csrf token with a jsonlist2 query so the first power
// command does not pay for the token retry. It is a no-op when disabled.
func (c *Client) LoadToken(ctx context.Context) error {
	cfg := c.config.Current()
	if !cfg.Enabled() {
		return nil
	}
	_, err := c.do(ctx, cfg, ListCommand(cfg.DeviceName))
	return err
}

func (c *Client) do(ctx context.Context, cfg settings.Configuration, command string) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.send(ctx, cfg, command, false)
}

// send performs one exchange and, on a stale-token rejection, exactly one
// retry. Callers hold c.mu.
func (c *Client) send(ctx context.Context, cfg settings.Configuration, command string, isRetry bool) (*Response, error) {
	sent := c.token

	resp, err := c.exchange(ctx, cfg, command, sent)
	if err != nil {
		c.logger.Error("FHEM request failed",
			zap.String("address", cfg.Address),
			zap.String("command", command),
			zap.Bool("retry", isRetry),
			zap.Error(err),
		)
		if t, ok := typeOf(err); ok {
			c.observeError(t)
		}
		return nil, err
	}
	resp.Retried = isRetry
	c.observeExchange(command, resp.StatusCode, isRetry)

	if resp.StatusCode == http.StatusBadRequest && resp.tokenSeen && resp.Token != sent && !isRetry {
		c.logger.Debug("csrf token rejected, retrying with refreshed token",
			zap.String("command", command),
			logging.Token("sent", sent),
			logging.Token("token", resp.Token),
		)
		c.token = resp.Token
		if c.observer != nil {
			c.observer.ObserveTokenRefresh()
		}
		return c.send(ctx, cfg, command, true)
	}

	if !resp.OK() {
		c.logger.Error("FHEM returned non-success status",
			zap.String("command", command),
			zap.Int("status_code", resp.StatusCode),
			zap.Bool("retry", isRetry),
			zap.String("body", snippet(resp.Body)),
		)
		c.observeError(ErrTypeHTTP)
	}

	if resp.tokenSeen {
		c.token = resp.Token
	}

	return resp, nil
}

func (c *Client) exchange(ctx context.Context, cfg settings.Configuration, command, token string) (*Response, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Address), "/") + CommandPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &Error{Type: ErrTypeNetwork, Message: "failed to create request", Address: cfg.Address, Err: err}
	}

	query := url.Values{}
	query.Set("cmd", command)
	query.Set("XHR", "1")
	query.Set("fwcsrf", token)
	req.URL.RawQuery = query.Encode()
	req.Header.Set("User-Agent", version.UserAgent())

	httpClient := c.insecure
	if cfg.VerifyTLS {
		httpClient = c.secure
	}

	httpResp, err := httpClient.Do(req)
	if err != nil {
		return nil, ClassifyNetworkError(err, cfg.Address)
	}
	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return nil, ClassifyNetworkError(err, cfg.Address)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Body:       body,
	}
	if values := httpResp.Header.Values(TokenHeader); len(values) > 0 {
		resp.Token = values[0]
		resp.tokenSeen = true
	}

	return resp, nil
}

func (c *Client) observeExchange(command string, status int, retried bool) {
	if c.observer != nil {
		c.observer.ObserveExchange(Verb(command), status, retried)
	}
}

func (c *Client) observeError(kind ErrorType) {
	if c.observer != nil {
		c.observer.ObserveError(kind)
	}
}

// Verb returns the first word of a command ("set", "jsonlist2").
func Verb(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func snippet(body []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
