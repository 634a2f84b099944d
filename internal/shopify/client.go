package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/iliyamo/theme-section-installer/internal/config"
	"github.com/iliyamo/theme-section-installer/internal/metrics"
)

const tracerName = "theme-section-installer/shopify"

// maxErrorBody caps how much of an error response is kept in APIError.
const maxErrorBody = 512

// Options tune a Client.  Zero values fall back to defaults.
type Options struct {
	APIVersion        string
	RequestsPerSecond float64
	Burst             int
	MaxRetries        int
	Timeout           time.Duration
	// Backoff is the first retry delay when the response carries no
	// Retry-After header; it doubles on every attempt.
	Backoff time.Duration
	// BaseURL overrides https://{shop}/admin/api/{version}.
	BaseURL    string
	HTTPClient *http.Client
	Logger     logrus.FieldLogger
}

// OptionsFromConfig maps the environment configuration onto client options.
func OptionsFromConfig(cfg config.ShopifyConfig, log logrus.FieldLogger) Options {
	return Options{
		APIVersion:        cfg.APIVersion,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
		MaxRetries:        cfg.MaxRetries,
		Timeout:           cfg.Timeout,
		Logger:            log,
	}
}

// Client is a minimal REST Admin API client bound to one shop and one
// offline access token.  Requests are throttled by a token bucket and
// retried on 429 and 5xx responses.
type Client struct {
	shop       string
	token      string
	baseURL    string
	http       *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	tracer     trace.Tracer
	log        logrus.FieldLogger
}

// NewClient returns a Client for shop (a *.myshopify.com domain).
func NewClient(shop, token string, opts Options) *Client {
	if opts.APIVersion == "" {
		opts.APIVersion = config.DefaultAPIVersion
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 2
	}
	if opts.Burst < 1 {
		opts.Burst = 1
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 500 * time.Millisecond
	}
	if opts.HTTPClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		opts.HTTPClient = &http.Client{Timeout: timeout}
	}
	if opts.BaseURL == "" {
		opts.BaseURL = fmt.Sprintf("https://%s/admin/api/%s", shop, opts.APIVersion)
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		shop:       shop,
		token:      token,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		http:       opts.HTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
		tracer:     otel.Tracer(tracerName),
		log:        log.WithField("shop", shop),
	}
}

// Shop returns the domain the client is bound to.
func (c *Client) Shop() string { return c.shop }

// Do sends one request.  in, when non-nil, is JSON encoded as the body and
// a 2xx response is decoded into out when out is non-nil.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("shopify: encode %s %s: %w", method, path, err)
		}
		payload = b
	}

	ctx, span := c.tracer.Start(ctx, "shopify "+method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("shopify.shop", c.shop),
			attribute.String("http.method", method),
			attribute.String("shopify.path", path),
		),
	)
	defer span.End()

	var err error
	for attempt := 0; ; attempt++ {
		var status int
		var wait time.Duration
		status, wait, err = c.once(ctx, method, path, query, payload, out)
		span.SetAttributes(attribute.Int("http.status_code", status), attribute.Int("shopify.attempt", attempt))
		if err == nil || !retryable(status) || attempt >= c.maxRetries {
			break
		}
		if wait <= 0 {
			wait = c.backoff << attempt
		}
		metrics.RecordAdminRetry()
		c.log.WithFields(logrus.Fields{
			"method":  method,
			"path":    path,
			"status":  status,
			"attempt": attempt + 1,
			"wait":    wait.String(),
		}).Warn("shopify request throttled, retrying")
		if serr := sleep(ctx, wait); serr != nil {
			err = serr
			break
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// once performs a single attempt.  It returns the HTTP status (0 when no
// response arrived) and the server requested retry delay, if any.
func (c *Client) once(ctx context.Context, method, path string, query url.Values, payload []byte, out any) (int, time.Duration, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, 0, err
	}

	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("X-Shopify-Access-Token", c.token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveAdminRequest(method, 0, time.Since(start))
		return 0, 0, fmt.Errorf("shopify: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	metrics.ObserveAdminRequest(method, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, retryAfter(resp.Header.Get("Retry-After")), &APIError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Body:       strings.TrimSpace(string(raw)),
		}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, 0, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, 0, fmt.Errorf("shopify: decode %s %s: %w", method, path, err)
	}
	return resp.StatusCode, 0, nil
}

// retryAfter parses a Retry-After header given in (possibly fractional)
// seconds, as Shopify sends it.
func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
