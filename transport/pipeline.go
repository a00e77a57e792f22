package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MrEthical07/authsession/jwt"
	"github.com/MrEthical07/authsession/refresh"
)

const (
	// HeaderRequestID carries the per-call correlation ID.
	HeaderRequestID = "X-Request-ID"

	// DefaultTimeout bounds a single HTTP exchange when Deps.Timeout is zero.
	DefaultTimeout = 30 * time.Second

	maxBodyBytes = 8 << 20
)

// TokenSource supplies the current access token. An empty token means the
// request goes out without credentials.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Observer receives one call per HTTP exchange, including retries.
type Observer interface {
	ObserveRequest(method, path string, status int, d time.Duration)
	ObserveRetry()
}

// Deps captures pipeline dependencies. BaseURL and Tokens are required.
type Deps struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	Tokens     TokenSource
	Logger     *zap.Logger
	Observer   Observer

	// Inspector enables proactive renewal of access tokens whose exp claim
	// has already passed. Nil disables it.
	Inspector *jwt.Inspector
}

// Pipeline is the single funnel for API calls.
type Pipeline struct {
	baseURL   string
	client    *http.Client
	tokens    TokenSource
	logger    *zap.Logger
	observer  Observer
	inspector *jwt.Inspector

	coordinator atomic.Pointer[refresh.Coordinator]
}

// NewPipeline creates a [Pipeline]. Renewal stays disabled until
// [Pipeline.UseCoordinator] is called.
func NewPipeline(deps Deps) (*Pipeline, error) {
	if strings.TrimSpace(deps.BaseURL) == "" {
		return nil, errors.New("transport: base URL required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("transport: token source required")
	}

	client := deps.HTTPClient
	if client == nil {
		timeout := deps.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pipeline{
		baseURL:   strings.TrimRight(deps.BaseURL, "/"),
		client:    client,
		tokens:    deps.Tokens,
		logger:    logger,
		observer:  deps.Observer,
		inspector: deps.Inspector,
	}, nil
}

// UseCoordinator enables renewal through c. The coordinator's renewer is
// usually an [AuthAPI] built on this same pipeline, hence the late binding.
func (p *Pipeline) UseCoordinator(c *refresh.Coordinator) {
	p.coordinator.Store(c)
}

// Do sends req and returns the fully read response for 2xx statuses. A 401
// with code AUTH_TOKEN_EXPIRED is renewed and retried once; every other
// failure is returned as-is.
func (p *Pipeline) Do(ctx context.Context, req Request) (*Response, error) {
	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, err
	}

	var access string
	if !req.Anonymous {
		access, err = p.tokens.AccessToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("transport: read access token: %w", err)
		}
	}

	coord := p.coordinator.Load()
	renewable := !req.Anonymous && !req.NoRenew && coord != nil

	if renewable && access != "" && p.inspector != nil && p.inspector.Expired(access) {
		p.logger.Debug("access token past expiry, renewing before send", zap.String("path", req.Path))
		tokens, err := coord.Renew(ctx)
		if err != nil {
			return nil, err
		}
		access = tokens.AccessToken
	}

	resp, err := p.send(ctx, req, body, contentType, access)
	if err == nil || !renewable || !errors.Is(err, ErrTokenExpired) {
		return resp, err
	}

	p.logger.Debug("access token expired, renewing", zap.String("path", req.Path))
	return refresh.RefreshOrEnqueue(ctx, coord, func(ctx context.Context, renewed string) (*Response, error) {
		if p.observer != nil {
			p.observer.ObserveRetry()
		}
		return p.send(ctx, req, body, contentType, renewed)
	})
}

// DoJSON sends req and decodes the response's data envelope into out. A body
// without a data member is decoded whole. out may be nil.
func (p *Pipeline) DoJSON(ctx context.Context, req Request, out any) error {
	resp, err := p.Do(ctx, req)
	if err != nil {
		return err
	}
	return DecodeData(resp.Body, out)
}

// DecodeData decodes the data member of a success envelope into out.
func DecodeData(body []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("transport: decode response: %w", err)
	}
	payload := []byte(envelope.Data)
	if len(payload) == 0 {
		payload = body
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("transport: decode response: %w", err)
	}
	return nil
}

func encodeBody(req Request) ([]byte, string, error) {
	if req.JSON != nil {
		data, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, "", fmt.Errorf("transport: encode request: %w", err)
		}
		return data, "application/json", nil
	}
	return req.Body, req.ContentType, nil
}

func (p *Pipeline) send(ctx context.Context, req Request, body []byte, contentType, access string) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	target := p.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("transport: build request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	requestID := uuid.NewString()
	httpReq.Header.Set(HeaderRequestID, requestID)
	if access != "" {
		httpReq.Header.Set("Authorization", "Bearer "+access)
	} else {
		httpReq.Header.Del("Authorization")
	}

	start := time.Now()
	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		p.observe(method, req.Path, 0, start)
		return nil, classifyTransportError(ctx, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	p.observe(method, req.Path, httpResp.StatusCode, start)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}

	if httpResp.StatusCode >= 400 {
		apiErr := NewAPIError(httpResp.StatusCode, data)
		apiErr.RequestID = requestID
		p.logger.Debug("api call failed",
			zap.String("method", method),
			zap.String("path", req.Path),
			zap.Int("status", apiErr.StatusCode),
			zap.String("code", apiErr.Code),
			zap.String("request_id", requestID),
		)
		return nil, apiErr
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
		RequestID:  requestID,
	}, nil
}

func (p *Pipeline) observe(method, path string, status int, start time.Time) {
	if p.observer != nil {
		p.observer.ObserveRequest(method, path, status, time.Since(start))
	}
}

func classifyTransportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", ErrTimeout, ctxErr)
		}
		return ctxErr
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}
