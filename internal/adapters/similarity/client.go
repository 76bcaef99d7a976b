// Package similarity is the client for the remote similarity-search API.
package similarity

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/statscout/internal/domain/query"
	"github.com/okian/statscout/internal/domain/submission"
	"github.com/okian/statscout/pkg/logger"
	"github.com/okian/statscout/pkg/metrics"
)

// OffensePath is the offense similarity endpoint relative to the base URL.
const OffensePath = "/similarity/offense"

const (
	tracerName       = "github.com/okian/statscout/similarity"
	DefaultUserAgent = "statscout/1.0"
)

// Client performs similarity queries. It never retries.
type Client struct {
	baseURL    string
	timeout    time.Duration
	userAgent  string
	httpClient *http.Client
	logger     logger.Logger
	tracer     trace.Tracer

	rest *resty.Client
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: DefaultUserAgent,
		logger:    logger.Nop(),
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient != nil {
		c.rest = resty.NewWithClient(c.httpClient)
	} else {
		c.rest = resty.New()
	}
	c.rest.
		SetBaseURL(c.baseURL).
		SetRetryCount(0).
		SetHeader("User-Agent", c.userAgent).
		OnBeforeRequest(c.onBeforeRequest)
	if c.timeout > 0 {
		c.rest.SetTimeout(c.timeout)
	}
	return c
}

// BaseURL returns the API root the client posts to.
func (c *Client) BaseURL() string { return c.baseURL }

// onBeforeRequest forwards the submission id so backend logs can be joined
// with ours.
func (c *Client) onBeforeRequest(_ *resty.Client, req *resty.Request) error {
	if id, ok := submission.IDFrom(req.Context()); ok {
		req.SetHeader(submission.HeaderRequestID, id)
	}
	return nil
}

// SubmitOffense posts q to the offense endpoint and returns the JSON body of
// a successful response. Failures are *Error values of one of three kinds.
func (c *Client) SubmitOffense(ctx context.Context, q query.OffenseQuery) (json.RawMessage, error) {
	const op = "similarity.submit_offense"
	ctx, span := c.tracer.Start(ctx, op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.request.method", http.MethodPost),
		attribute.String("url.full", c.baseURL+OffensePath),
	)

	start := time.Now()
	body, status, err := c.post(ctx, q)
	elapsed := time.Since(start)

	outcome := "success"
	if err != nil {
		outcome = KindOf(err).String()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if status > 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}
	metrics.RecordUpstreamRequest(outcome, strconv.Itoa(status), float64(elapsed.Milliseconds()))

	fields := []logger.Field{
		logger.String("outcome", outcome),
		logger.Int("status", status),
		logger.Duration("elapsed", elapsed),
	}
	if id, ok := submission.IDFrom(ctx); ok {
		fields = append(fields, logger.String("request_id", id))
	}
	if err != nil {
		c.logger.Warn(ctx, "similarity request failed", append(fields, logger.Error(err))...)
		return nil, err
	}
	c.logger.Debug(ctx, "similarity request succeeded", fields...)
	return body, nil
}

func (c *Client) post(ctx context.Context, q query.OffenseQuery) (json.RawMessage, int, error) {
	res, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(q).
		Post(OffensePath)
	if err != nil {
		return nil, 0, &Error{Kind: KindTransport, Err: err}
	}

	code := res.StatusCode()
	if code < http.StatusOK || code >= http.StatusMultipleChoices {
		return nil, code, &Error{
			Kind:       KindHTTPStatus,
			StatusCode: code,
			StatusText: statusText(code, res.Status()),
			Body:       string(res.Body()),
		}
	}

	var raw json.RawMessage
	if err := json.Unmarshal(res.Body(), &raw); err != nil {
		return nil, code, &Error{Kind: KindDecode, StatusCode: code, Err: err}
	}
	return raw, code, nil
}

// statusText strips the code from a status line such as "500 Internal
// Server Error", falling back to the standard text.
func statusText(code int, status string) string {
	text := strings.TrimSpace(strings.TrimPrefix(status, strconv.Itoa(code)))
	if text == "" {
		return http.StatusText(code)
	}
	return text
}
