// Package backend is the REST client for the wallet authentication API.
//
// Every call runs under its own deadline. A deadline that expires is reported
// as a Timeout, a transport failure or non-2xx answer as a NetworkFailure. The
// decoded error body of a non-2xx answer is kept as the cause (*StatusError)
// so callers can map backend codes to user messages.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	pkgErrors "github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/authErrors"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/types"
)

const (
	DefaultRequestTimeout = 15 * time.Second
	DefaultRateLimit      = 5
	DefaultRateBurst      = 10

	RequestIDHeader = "X-Request-ID"

	pathGenerateNonce = "/auth/generate-nonce"
	pathAuthenticate  = "/auth/authenticate"
	pathLinkWallet    = "/wallet/link"
	pathListWallets   = "/wallet/list"
	pathWallet        = "/wallet/"

	maxErrorBody = 64 * 1024

	tracerName = "github.com/Layr-Labs/eigenx-wallet-auth/pkg/backend"
)

// Config configures a Client. BaseURL includes the API prefix, for example
// https://example.com/api/web3.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	// RateLimit is requests per second; zero uses DefaultRateLimit
	RateLimit  float64
	RateBurst  int
	HTTPClient *http.Client
	// TracerProvider and Propagator default to the otel globals
	TracerProvider trace.TracerProvider
	Propagator     propagation.TextMapPropagator
	Logger         *zap.Logger
}

// Client talks to the authentication backend
type Client struct {
	baseURL    string
	timeout    time.Duration
	limiter    *rate.Limiter
	httpClient *http.Client
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	logger     *zap.Logger
}

// StatusError is a non-2xx answer from the backend
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

// NewClient validates cfg and creates a Client
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL %q is not an absolute URL", cfg.BaseURL)
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = DefaultRateBurst
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	propagator := cfg.Propagator
	if propagator == nil {
		propagator = otel.GetTextMapPropagator()
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		timeout:    timeout,
		limiter:    rate.NewLimiter(rate.Limit(limit), burst),
		httpClient: httpClient,
		tracer:     tp.Tracer(tracerName),
		propagator: propagator,
		logger:     cfg.Logger,
	}, nil
}

// GenerateNonce asks the backend for a fresh challenge
func (c *Client) GenerateNonce(ctx context.Context, req *types.NonceRequest) (*types.NonceResponse, error) {
	var resp types.NonceResponse
	if err := c.do(ctx, http.MethodPost, pathGenerateNonce, "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Authenticate submits a signed challenge. A 401 answer without a known
// error code is returned as a decoded AuthResult with Success false, so the
// caller sees the rejection rather than a transport failure. A 401 with a
// known code stays an error for UserError to map.
func (c *Client) Authenticate(ctx context.Context, req *types.AuthRequest) (*types.AuthResult, error) {
	var resp types.AuthResult
	err := c.do(ctx, http.MethodPost, pathAuthenticate, "", req, &resp)
	if err == nil {
		return &resp, nil
	}
	if statusErr, ok := StatusOf(err); ok && statusErr.StatusCode == http.StatusUnauthorized {
		if _, known := MessageForCode(statusErr.Code); !known {
			return &types.AuthResult{Success: false, Message: statusErr.Message}, nil
		}
	}
	return nil, err
}

// LinkWallet binds the wallet in req to the account behind token. Any 2xx
// answer is success; the body may be empty.
func (c *Client) LinkWallet(ctx context.Context, token string, req *types.LinkWalletRequest) (*types.LinkWalletResponse, error) {
	var resp types.LinkWalletResponse
	if err := c.do(ctx, http.MethodPost, pathLinkWallet, token, req, optionalBody{&resp}); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UnlinkWallet removes the binding of address from the account behind token.
// Any 2xx answer is success; the body may be empty.
func (c *Client) UnlinkWallet(ctx context.Context, token string, address string) (*types.UnlinkWalletResponse, error) {
	var resp types.UnlinkWalletResponse
	if err := c.do(ctx, http.MethodDelete, pathWallet+url.PathEscape(address), token, nil, optionalBody{&resp}); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListWallets returns the wallets bound to the account behind token
func (c *Client) ListWallets(ctx context.Context, token string) (*types.ListWalletsResponse, error) {
	var resp types.ListWalletsResponse
	if err := c.do(ctx, http.MethodGet, pathListWallets, token, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// optionalBody wraps a response target for endpoints that may answer 2xx
// with no body
type optionalBody struct {
	target any
}

func (c *Client) do(ctx context.Context, method string, path string, token string, body any, out any) (err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	requestID := uuid.New().String()
	sugar := c.logger.Sugar().With("request_id", requestID, "method", method, "path", path)

	ctx, span := c.tracer.Start(ctx, method+" "+routeOf(method, path),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", routeOf(method, path)),
			attribute.String("request_id", requestID),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(pkgErrors.Cause(err))
			span.SetStatus(codes.Error, authErrors.UserMessage(err))
		}
		span.End()
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		sugar.Warnw("Rate limiter wait aborted", "error", err)
		return classify(ctx, err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return authErrors.NetworkFailure(pkgErrors.Wrap(err, "failed to marshal request"))
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return authErrors.NetworkFailure(pkgErrors.Wrapf(err, "failed to build request %s %s", method, path))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	c.propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		sugar.Warnw("Backend request failed", "error", err)
		return classify(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	sugar.Debugw("Backend responded", "status", resp.StatusCode, "duration", time.Since(start))
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := decodeStatusError(resp)
		sugar.Warnw("Backend returned an error",
			"status", statusErr.StatusCode,
			"code", statusErr.Code,
			"message", statusErr.Message,
		)
		return authErrors.NetworkFailure(statusErr)
	}

	if out == nil {
		return nil
	}
	optional := false
	if o, ok := out.(optionalBody); ok {
		out, optional = o.target, true
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return classify(ctx, err)
	}
	if optional && len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return authErrors.NetworkFailure(pkgErrors.Wrapf(err, "failed to decode response of %s %s", method, path))
	}
	return nil
}

// routeOf keeps addresses out of span names
func routeOf(method string, path string) string {
	if method == http.MethodDelete && strings.HasPrefix(path, pathWallet) {
		return pathWallet + "{address}"
	}
	return path
}

func decodeStatusError(resp *http.Response) *StatusError {
	statusErr := &StatusError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return statusErr
	}
	var body types.ErrorResponse
	if err := json.Unmarshal(data, &body); err != nil {
		return statusErr
	}
	statusErr.Code = body.Code
	if body.Message != "" {
		statusErr.Message = body.Message
	}
	return statusErr
}

func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return authErrors.Timeout(err)
	}
	return authErrors.NetworkFailure(err)
}

// StatusOf returns the backend StatusError behind err, if any
func StatusOf(err error) (*StatusError, bool) {
	var statusErr *StatusError
	if errors.As(pkgErrors.Cause(err), &statusErr) {
		return statusErr, true
	}
	return nil, false
}
