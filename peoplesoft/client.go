package peoplesoft

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/psq/errors"
	"github.com/teranos/psq/internal/httpclient"
	"github.com/teranos/psq/logger"
)

const (
	// DefaultTimeout applies when Config.Timeout is zero
	DefaultTimeout = 60 * time.Second

	// TokenCookie is the cookie PeopleSoft PIA signon issues
	TokenCookie = "PS_TOKEN"
)

// Credentials are sent with HTTP Basic authentication.
type Credentials struct {
	Username string
	Password string
}

// TLSConfig controls verification of the gateway certificate.
// The zero value verifies against the system roots.
type TLSConfig struct {
	// InsecureSkipVerify accepts any certificate. Development only.
	InsecureSkipVerify bool
	// CABundle is a PEM file of roots to verify against instead of the system pool.
	CABundle string
}

// Config holds ExecuteQuery client configuration
type Config struct {
	// BaseURL ends at the service, e.g.
	// https://host/PSIGW/RESTListeningConnector/PSFT_EP/ExecuteQuery.v1
	BaseURL     string
	Credentials *Credentials // nil = no Authorization header
	Token       string       // PS_TOKEN cookie value; empty = no cookie
	TLS         TLSConfig
	Timeout     time.Duration      // 0 = DefaultTimeout
	Logger      *zap.SugaredLogger // nil = nop logger
	Recorder    Recorder           // nil = runs are not recorded
	UserAgent   string             // empty = Go default

	// HTTPClient replaces the transport built from TLS and Timeout (tests, proxies).
	HTTPClient *http.Client
}

// Client issues ExecuteQuery requests. It holds no per-call state and is
// safe for concurrent use.
type Client struct {
	baseURL     string
	credentials *Credentials
	token       string
	httpClient  *httpclient.Client
	recorder    Recorder
	userAgent   string
	logger      *zap.SugaredLogger
}

// NewClient creates a client with defaults applied.
func NewClient(config Config) (*Client, error) {
	if strings.TrimSpace(config.BaseURL) == "" {
		return nil, errors.WithHint(
			errors.NewInvalidConfigError("base URL is empty"),
			"set peoplesoft.base_url in psq.toml or PSQ_PEOPLESOFT_BASE_URL",
		)
	}

	log := config.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	var hc *httpclient.Client
	if config.HTTPClient != nil {
		hc = httpclient.WrapClient(config.HTTPClient)
	} else {
		var err error
		hc, err = httpclient.New(httpclient.Options{
			Timeout: timeout,
			TLS: httpclient.TLSOptions{
				InsecureSkipVerify: config.TLS.InsecureSkipVerify,
				CABundle:           config.TLS.CABundle,
			},
		})
		if err != nil {
			return nil, errors.Mark(errors.Wrap(err, "failed to build HTTP client"), errors.ErrInvalidConfig)
		}
	}

	c := &Client{
		baseURL:     strings.TrimRight(config.BaseURL, "/"),
		credentials: config.Credentials,
		token:       config.Token,
		httpClient:  hc,
		recorder:    config.Recorder,
		userAgent:   config.UserAgent,
		logger:      log,
	}

	if config.TLS.InsecureSkipVerify {
		log.Warnw("TLS certificate verification is disabled; use only against development gateways",
			logger.FieldURL, c.baseURL)
	}

	return c, nil
}

// BaseURL returns the configured base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL returns the request URL for a query without sending anything.
func (c *Client) URL(queryName string, prompts Prompts, opts QueryOptions) string {
	return BuildURL(c.baseURL, queryName, prompts, opts)
}

// RemoteError is returned when PeopleSoft answers with a non-2xx status.
// Body is the full response text; Integration Broker puts the actual
// failure (often an IB or database message) there.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("PeopleSoft ExecuteQuery call failed: %d\n%s", e.StatusCode, e.Body)
}

// Fetch performs the ExecuteQuery GET and returns the body exactly as received.
//
// Errors are marked errors.ErrTransport (no response; timeouts also carry
// errors.ErrTimeout) or errors.ErrRemoteRejection (non-2xx, concrete type
// *RemoteError).
func (c *Client) Fetch(ctx context.Context, queryName string, prompts Prompts, opts QueryOptions) (string, error) {
	body, _, err := c.fetch(ctx, c.URL(queryName, prompts, opts), queryName)
	return body, err
}

func (c *Client) fetch(ctx context.Context, requestURL, queryName string) (string, int, error) {
	log := logger.LoggerFromContext(ctx, c.logger)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return "", 0, errors.Mark(errors.Wrap(err, "failed to create request"), errors.ErrTransport)
	}
	c.authorize(req)

	log.Debugw("ExecuteQuery request",
		logger.FieldQuery, queryName,
		logger.FieldURL, requestURL,
		logger.FieldBasicAuth, c.credentials != nil,
		logger.FieldPSToken, c.token != "",
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, transportError(err, queryName)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resp.StatusCode, transportError(errors.Wrap(err, "failed to read response"), queryName)
	}
	body := string(respBody)

	log.Debugw("ExecuteQuery response",
		logger.FieldQuery, queryName,
		logger.FieldStatus, resp.StatusCode,
		logger.FieldBodyBytes, len(respBody),
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", resp.StatusCode, errors.Mark(&RemoteError{StatusCode: resp.StatusCode, Body: body}, errors.ErrRemoteRejection)
	}

	return body, resp.StatusCode, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.credentials != nil {
		req.SetBasicAuth(c.credentials.Username, c.credentials.Password)
	}
	if c.token != "" {
		req.AddCookie(&http.Cookie{Name: TokenCookie, Value: c.token})
	}
}

func transportError(err error, queryName string) error {
	wrapped := errors.Wrapf(err, "ExecuteQuery %s: no response", queryName)
	if isTimeout(err) {
		wrapped = errors.Mark(wrapped, errors.ErrTimeout)
	}
	return errors.Mark(wrapped, errors.ErrTransport)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Result is one completed Run.
type Result struct {
	RunID      string        `json:"run_id"`
	Query      string        `json:"query"`
	URL        string        `json:"url"`
	StatusCode int           `json:"status_code"`
	Raw        string        `json:"-"`
	Columns    []string      `json:"columns"`
	Rows       []Row         `json:"rows"`
	Duration   time.Duration `json:"duration"`
}

// Run fetches and parses in one call.
//
// On a parse failure Run returns the Result with Raw filled in (Rows nil)
// together with the ErrParse error, so the body can still be inspected.
// Transport and remote failures return a nil Result.
//
// The run ID comes from logger.WithRunID when present on ctx, otherwise a
// new UUID. When a Recorder is configured every run is recorded; recorder
// failures are logged, not returned.
func (c *Client) Run(ctx context.Context, queryName string, prompts Prompts, opts QueryOptions) (*Result, error) {
	runID := logger.RunIDFromContext(ctx)
	if runID == "" {
		runID = uuid.New().String()
		ctx = logger.WithRunID(ctx, runID)
	}
	log := logger.LoggerFromContext(ctx, c.logger)

	requestURL := c.URL(queryName, prompts, opts)
	started := time.Now()

	body, status, err := c.fetch(ctx, requestURL, queryName)

	result := &Result{
		RunID:      runID,
		Query:      queryName,
		URL:        requestURL,
		StatusCode: status,
		Raw:        body,
	}

	if err == nil {
		var rs *ResultSet
		rs, err = Parse(body)
		if err == nil {
			result.Columns = rs.Columns
			result.Rows = rs.Rows
		}
	}
	result.Duration = time.Since(started)

	c.record(ctx, RunRecord{
		RunID:      runID,
		Query:      queryName,
		Prompts:    prompts,
		Options:    opts,
		URL:        requestURL,
		StatusCode: status,
		RowCount:   len(result.Rows),
		Started:    started,
		Finished:   started.Add(result.Duration),
		Err:        err,
	})

	if err != nil {
		log.Warnw("ExecuteQuery run failed",
			logger.FieldQuery, queryName,
			logger.FieldStatus, status,
			logger.FieldErrorKind, ErrorKind(err),
			logger.FieldError, err,
		)
		if errors.IsParseError(err) {
			return result, err
		}
		return nil, err
	}

	log.Infow("ExecuteQuery run complete",
		logger.FieldQuery, queryName,
		logger.FieldRowCount, len(result.Rows),
		logger.FieldDurationMS, result.Duration.Milliseconds(),
	)

	return result, nil
}

// ErrorKind names the category of a Run/Fetch error: "transport",
// "remote_rejection", "parse", or "other".
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.IsTransportError(err):
		return "transport"
	case errors.IsRemoteRejection(err):
		return "remote_rejection"
	case errors.IsParseError(err):
		return "parse"
	default:
		return "other"
	}
}
