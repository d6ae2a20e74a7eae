// SPDX-License-Identifier: GPL-3.0-or-later

package ipwatch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// HttpRequest is the value model for an outbound HTTP request.
type HttpRequest struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
}

// HttpResponse is the value model for an HTTP response.
type HttpResponse struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// IsSuccess reports whether Status is in [200, 300).
func (r *HttpResponse) IsSuccess() bool {
	return r.Status >= 200 && r.Status < 300
}

// HttpErrorKind classifies an [HttpError].
type HttpErrorKind int

const (
	// HttpErrorConnection means the transport could not establish or
	// complete the connection.
	HttpErrorConnection HttpErrorKind = iota
	// HttpErrorTimeout means the request exceeded its deadline.
	HttpErrorTimeout
	// HttpErrorInvalidURL means the request URL could not be parsed
	// — a configuration error, not a transient condition.
	HttpErrorInvalidURL
)

// HttpError is the error type returned by an [HttpClient].
type HttpError struct {
	Kind HttpErrorKind
	URL  string
	Err  error
}

// Error implements the error interface.
func (e *HttpError) Error() string {
	switch e.Kind {
	case HttpErrorTimeout:
		return fmt.Sprintf("http: timeout: %v", e.Err)
	case HttpErrorInvalidURL:
		return fmt.Sprintf("http: invalid url %q: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("http: connection error: %v", e.Err)
	}
}

// Unwrap returns the wrapped transport error.
func (e *HttpError) Unwrap() error { return e.Err }

// IsRetryable reports whether retrying this error has a realistic
// chance of success: connection and timeout errors are retryable,
// invalid URLs are a configuration error and are not.
func (e *HttpError) IsRetryable() bool {
	return e.Kind == HttpErrorConnection || e.Kind == HttpErrorTimeout
}

// HttpClient abstracts request/response transport so tests can inject
// deterministic responders instead of hitting the network.
type HttpClient interface {
	Request(ctx context.Context, req *HttpRequest) (*HttpResponse, error)
}

// StdlibHttpClient is the production [HttpClient], wrapping a stdlib
// [*http.Client]. Request/response round trips are logged the same way
// the teacher's HTTP primitives log a round trip: one event before
// (method/url/start time), one after (method/url/status/err/start and
// end times).
type StdlibHttpClient struct {
	Client  *http.Client
	Logger  SLogger
	TimeNow func() time.Time
}

// NewStdlibHttpClient returns a [*StdlibHttpClient] with sensible
// defaults: a [*http.Client] with the given timeout, a discarding
// logger, and [time.Now].
func NewStdlibHttpClient(timeout time.Duration) *StdlibHttpClient {
	return &StdlibHttpClient{
		Client:  &http.Client{Timeout: timeout},
		Logger:  DefaultSLogger(),
		TimeNow: time.Now,
	}
}

var _ HttpClient = &StdlibHttpClient{}

// Request implements [HttpClient].
func (c *StdlibHttpClient) Request(ctx context.Context, req *HttpRequest) (*HttpResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, &HttpError{Kind: HttpErrorInvalidURL, URL: req.URL, Err: err}
	}
	for name, values := range req.Headers {
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}

	t0 := c.TimeNow()
	c.logRoundTripStart(req, t0)

	resp, err := c.Client.Do(httpReq)
	if err != nil {
		classified := classifyTransportError(err, req.URL)
		c.logRoundTripDone(req, t0, 0, classified)
		return nil, classified
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		classified := &HttpError{Kind: HttpErrorConnection, URL: req.URL, Err: err}
		c.logRoundTripDone(req, t0, resp.StatusCode, classified)
		return nil, classified
	}

	c.logRoundTripDone(req, t0, resp.StatusCode, nil)
	return &HttpResponse{Status: resp.StatusCode, Headers: resp.Header, Body: body}, nil
}

func classifyTransportError(err error, url string) *HttpError {
	kind := HttpErrorConnection
	if netErr, ok := err.(interface{ Timeout() bool }); ok && netErr.Timeout() {
		kind = HttpErrorTimeout
	}
	return &HttpError{Kind: kind, URL: url, Err: err}
}

func (c *StdlibHttpClient) logRoundTripStart(req *HttpRequest, t0 time.Time) {
	c.Logger.Info(
		"webhookRoundTripStart",
		slog.String("httpMethod", req.Method),
		slog.String("httpUrl", req.URL),
		slog.Time("t", t0),
	)
}

func (c *StdlibHttpClient) logRoundTripDone(req *HttpRequest, t0 time.Time, status int, err error) {
	c.Logger.Info(
		"webhookRoundTripDone",
		slog.String("httpMethod", req.Method),
		slog.String("httpUrl", req.URL),
		slog.Int("httpResponseStatusCode", status),
		slog.Any("err", err),
		slog.Time("t0", t0),
		slog.Time("t", c.TimeNow()),
	)
}
