package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	// DefaultEndpoint is the public Bot API host.
	DefaultEndpoint = "https://api.telegram.org"

	// DefaultParseMode is sent as parse_mode when SendMessage gets none.
	DefaultParseMode = "HTML"

	// MaxMessageLength is the Bot API text limit, in Unicode code points.
	MaxMessageLength = 4096

	defaultTimeout      = 60 * time.Second
	defaultAsyncTimeout = time.Second
)

// ErrUnknownResource is returned when a method name is empty or not on the
// client's allow-list.
var ErrUnknownResource = errors.New("telegram: unknown resource")

// defaultResources are the methods every client accepts without Allow.
var defaultResources = []string{"sendMessage", "getUpdates", "getMe"}

// Params is a flat set of Bot API parameters.
type Params map[string]any

// Credentials identify the bot. BotUsername is informational only and is
// never sent to the API.
type Credentials struct {
	Token       string
	BotUsername string
}

// Observer is notified after every completed call.
type Observer interface {
	ObserveCall(method string, res *Result, elapsed time.Duration)
}

// Client is a Telegram Bot API client. It is safe for concurrent use: each
// call returns its own Result, and the shared settings are guarded.
type Client struct {
	creds        Credentials
	endpoint     string
	timeout      time.Duration
	asyncTimeout time.Duration
	transport    http.RoundTripper
	logger       *slog.Logger
	observer     Observer
	tracer       trace.Tracer

	mu        sync.RWMutex
	aliases   map[string]any
	resources map[string]struct{}
	async     bool
	last      *Result
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the API host (e.g. a local Bot API server).
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = endpoint }
}

// WithTimeout sets the per-call timeout used in synchronous mode.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithAsyncTimeout sets how long a fire-and-forget call may block.
func WithAsyncTimeout(d time.Duration) Option {
	return func(c *Client) { c.asyncTimeout = d }
}

// WithTransport replaces the per-call transport. Mostly useful in tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.transport = rt }
}

// WithLogger sets the logger. Calls are logged at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithObserver registers a call observer (metrics).
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithTracer wraps every call in a client span.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// WithAsync starts the client in fire-and-forget mode.
func WithAsync(enabled bool) Option {
	return func(c *Client) { c.async = enabled }
}

// NewClient creates a client for the given bot. Until the first call,
// Last returns the "no call made" sentinel.
func NewClient(creds Credentials, opts ...Option) *Client {
	c := &Client{
		creds:        creds,
		endpoint:     DefaultEndpoint,
		timeout:      defaultTimeout,
		asyncTimeout: defaultAsyncTimeout,
		aliases:      map[string]any{},
		resources:    make(map[string]struct{}, len(defaultResources)),
		last:         newResult(),
	}
	for _, name := range defaultResources {
		c.resources[name] = struct{}{}
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if c.tracer == nil {
		c.tracer = noop.NewTracerProvider().Tracer("")
	}
	return c
}

// BotUsername returns the configured bot username.
func (c *Client) BotUsername() string {
	return c.creds.BotUsername
}

// SetChatAliases replaces the alias table. The map is copied.
func (c *Client) SetChatAliases(aliases map[string]any) {
	cp := make(map[string]any, len(aliases))
	maps.Copy(cp, aliases)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.aliases = cp
}

// ChatAliases returns a copy of the alias table.
func (c *Client) ChatAliases() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.aliases)
}

// SetAsync toggles fire-and-forget mode for subsequent calls.
func (c *Client) SetAsync(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.async = enabled
}

// Async reports whether fire-and-forget mode is enabled.
func (c *Client) Async() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.async
}

// Allow adds method names to the allow-list. Empty names are ignored.
func (c *Client) Allow(names ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, name := range names {
		if name != "" {
			c.resources[name] = struct{}{}
		}
	}
}

// Resources returns the allow-listed method names, sorted.
func (c *Client) Resources() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.resources))
}

// Last returns the Result of the most recent call on this client.
func (c *Client) Last() *Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

func (c *Client) setLast(res *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = res
}

func (c *Client) allowed(name string) bool {
	if name == "" {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.resources[name]
	return ok
}

func (c *Client) resolveChat(chat string) any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if id, ok := c.aliases[chat]; ok {
		return id
	}
	return chat
}

// resourceURL builds <endpoint>/bot<token>/<method>.
func (c *Client) resourceURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.endpoint, c.creds.Token, method)
}

// Invoke calls an allow-listed Bot API method with the given HTTP verb.
// The returned Result is never nil. The error is non-nil only when the
// method is not allow-listed or the parameters cannot be encoded.
func (c *Client) Invoke(ctx context.Context, verb, method string, params Params) (*Result, error) {
	res := newResult()
	c.setLast(res)

	if !c.allowed(method) {
		return res, fmt.Errorf("%w: %q", ErrUnknownResource, method)
	}

	async := c.Async()
	target := c.resourceURL(method)

	ctx, span := c.tracer.Start(ctx, "telegram."+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(spanAttrs(method, verb, async)...),
	)
	defer span.End()

	req, err := c.newRequest(ctx, verb, target, params, async)
	if err != nil {
		recordSpanError(span, err)
		return res, fmt.Errorf("telegram: build %s request: %w", method, err)
	}

	start := time.Now()
	res = c.execute(req, target, async)
	elapsed := time.Since(start)

	c.setLast(res)
	finishSpan(span, res)
	if c.observer != nil {
		c.observer.ObserveCall(method, res, elapsed)
	}

	if res.HasError() {
		c.logger.Warn("telegram call failed",
			"method", method,
			"status", res.StatusCode(),
			"elapsed", elapsed,
		)
	} else {
		c.logger.Debug("telegram call",
			"method", method,
			"status", res.StatusCode(),
			"async", async,
			"elapsed", elapsed,
		)
	}

	return res, nil
}
