package frappe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/shopsync/internal/domain"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "shopsync/1.0"

	jobDoctype = "RQ Job"
)

// Options tunes a Client
type Options struct {
	MethodPrefix      string        // dotted module path of the importer page methods
	Timeout           time.Duration // per request, 0 = 30s
	RequestsPerSecond float64       // 0 disables limiting
	Burst             int
}

// Client implements domain.CatalogClient against a Frappe site
type Client struct {
	baseURL      string
	apiKey       string
	apiSecret    string
	methodPrefix string
	httpClient   *http.Client
	limiter      *rate.Limiter
	logger       *slog.Logger
}

// NewClient creates a new Frappe API client
func NewClient(baseURL, apiKey, apiSecret string, opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		apiSecret:    apiSecret,
		methodPrefix: strings.TrimRight(opts.MethodPrefix, "."),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: limiter,
		logger:  logger,
	}
}

// RemoteError is a server-side exception returned by a method call
type RemoteError struct {
	Status  int
	ExcType string
	Message string
}

func (e *RemoteError) Error() string {
	switch {
	case e.ExcType != "" && e.Message != "":
		return fmt.Sprintf("%s: %s", e.ExcType, e.Message)
	case e.Message != "":
		return e.Message
	case e.ExcType != "":
		return e.ExcType
	default:
		return fmt.Sprintf("unexpected status code: %d", e.Status)
	}
}

// authHeader returns the token authorization header value
func (c *Client) authHeader() string {
	return fmt.Sprintf("token %s:%s", c.apiKey, c.apiSecret)
}

// doRequest performs an authenticated HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, query, form url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL = reqURL + "?" + query.Encode()
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.authHeader())
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	c.logger.Debug("frappe request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Error("frappe request failed", "path", path, "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrServerOffline, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		c.logger.Warn("frappe auth rejected", "path", path, "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: %s", domain.ErrAuthFailed, parseRemoteError(resp.StatusCode, respBody))
	}

	if resp.StatusCode != http.StatusOK {
		remoteErr := parseRemoteError(resp.StatusCode, respBody)
		c.logger.Error("frappe request error", "path", path, "status", resp.StatusCode, "exc_type", remoteErr.ExcType)
		return nil, remoteErr
	}

	return respBody, nil
}

// call invokes a whitelisted method and decodes its message into out (nil discards it)
func (c *Client) call(ctx context.Context, method string, args url.Values, out any) error {
	if args == nil {
		args = url.Values{}
	}
	body, err := c.doRequest(ctx, http.MethodPost, "/api/method/"+method, nil, args)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}

	var envelope methodResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		c.logger.Error("JSON parse error", "method", method, "error", err, "bodyLen", len(body))
		return fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	if len(envelope.Message) == 0 {
		return fmt.Errorf("%w: %s returned no message", domain.ErrMalformedResponse, method)
	}
	if err := json.Unmarshal(envelope.Message, out); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrMalformedResponse, method, err)
	}
	return nil
}

// pageMethod returns the fully qualified name of an importer page method
func (c *Client) pageMethod(name string) string {
	if c.methodPrefix == "" {
		return name
	}
	return c.methodPrefix + "." + name
}

// GetProductCount returns the remote, local and synced counters
func (c *Client) GetProductCount(ctx context.Context) (domain.SyncCounts, error) {
	var resp ProductCountResponse
	if err := c.call(ctx, c.pageMethod("get_product_count"), nil, &resp); err != nil {
		return domain.SyncCounts{}, err
	}
	return MapCounts(resp)
}

// ListProducts returns one page of remote products. The cursor is passed back verbatim.
func (c *Client) ListProducts(ctx context.Context, cursor domain.Cursor) (*domain.ProductPage, error) {
	args := url.Values{}
	if !cursor.IsZero() {
		args.Set("from_", string(cursor))
	}

	var resp ProductListResponse
	if err := c.call(ctx, c.pageMethod("get_shopify_products"), args, &resp); err != nil {
		return nil, err
	}
	return MapProductPage(resp)
}

// SyncProduct imports a product that has no local item yet
func (c *Client) SyncProduct(ctx context.Context, productID string) (bool, error) {
	return c.productCommand(ctx, "sync_product", productID)
}

// ResyncProduct re-imports all variants of a product
func (c *Client) ResyncProduct(ctx context.Context, productID string) (bool, error) {
	return c.productCommand(ctx, "resync_product", productID)
}

func (c *Client) productCommand(ctx context.Context, name, productID string) (bool, error) {
	args := url.Values{}
	args.Set("product", productID)

	var ok *bool
	if err := c.call(ctx, c.pageMethod(name), args, &ok); err != nil {
		return false, err
	}
	if ok == nil {
		return false, fmt.Errorf("%w: %s returned null", domain.ErrMalformedResponse, name)
	}
	return *ok, nil
}

// StartBulkSync enqueues the sync-all job. The server returns as soon as it is queued.
func (c *Client) StartBulkSync(ctx context.Context) error {
	return c.call(ctx, c.pageMethod("import_all_products"), nil, nil)
}

// ListActiveJobs returns queued and started background jobs
func (c *Client) ListActiveJobs(ctx context.Context) ([]domain.Job, error) {
	filters, _ := json.Marshal([][]any{{"status", "in", []string{"queued", "started"}}})
	fields, _ := json.Marshal([]string{"name", "job_name", "status"})

	query := url.Values{}
	query.Set("filters", string(filters))
	query.Set("fields", string(fields))
	query.Set("limit_page_length", "0")

	body, err := c.doRequest(ctx, http.MethodGet, "/api/resource/"+url.PathEscape(jobDoctype), query, nil)
	if err != nil {
		return nil, err
	}

	var resp resourceListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: job list: %v", domain.ErrMalformedResponse, err)
	}
	return MapJobs(resp.Data), nil
}

// Ping checks that the URL serves a Frappe site
func (c *Client) Ping(ctx context.Context) error {
	var pong string
	if err := c.call(ctx, "frappe.ping", nil, &pong); err != nil {
		return err
	}
	if pong != "pong" {
		return fmt.Errorf("not a frappe site: ping answered %q", pong)
	}
	return nil
}

// LoggedUser returns the user the API credentials belong to
func (c *Client) LoggedUser(ctx context.Context) (string, error) {
	var user string
	if err := c.call(ctx, "frappe.auth.get_logged_user", nil, &user); err != nil {
		return "", err
	}
	if user == "" || user == "Guest" {
		return "", domain.ErrAuthFailed
	}
	return user, nil
}

// parseRemoteError extracts the exception type and the first user-facing message
func parseRemoteError(status int, body []byte) *RemoteError {
	remoteErr := &RemoteError{Status: status}

	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return remoteErr
	}
	remoteErr.ExcType = resp.ExcType

	if msg := firstServerMessage(resp.ServerMessages); msg != "" {
		remoteErr.Message = msg
	} else if resp.Exception != "" {
		remoteErr.Message = resp.Exception
	} else {
		remoteErr.Message = resp.Message
	}
	remoteErr.Message = StripMarkup(remoteErr.Message)
	return remoteErr
}

// firstServerMessage decodes Frappe's doubly encoded _server_messages field
func firstServerMessage(raw string) string {
	if raw == "" {
		return ""
	}
	var encoded []string
	if err := json.Unmarshal([]byte(raw), &encoded); err != nil {
		return ""
	}
	for _, e := range encoded {
		var msg struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal([]byte(e), &msg); err == nil && msg.Message != "" {
			return msg.Message
		}
	}
	return ""
}

// IsRemoteError reports whether err carries a server exception
func IsRemoteError(err error) bool {
	var remoteErr *RemoteError
	return errors.As(err, &remoteErr)
}
