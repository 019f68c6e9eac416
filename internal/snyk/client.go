package snyk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultBaseURL    = "https://api.snyk.io"
	DefaultAPIVersion = "2024-10-15"
	DefaultTimeout    = 30 * time.Second
	DefaultRetries    = 2

	// PageLimit is the page size requested for target listings
	PageLimit = 100

	jsonAPIContentType = "application/vnd.api+json"
	maxErrorBody       = 512
)

// RequestObserver is notified once per HTTP attempt. Status is 0 when no
// response was received.
type RequestObserver interface {
	ObserveRequest(method string, status int)
}

// Client is the Snyk REST API client
type Client struct {
	BaseURL    string
	APIVersion string
	Token      string
	UserAgent  string
	HTTPClient *http.Client

	// Retries is the number of extra attempts for GET requests that fail
	// before a response arrives. HTTP status codes are never retried.
	Retries    int
	RetryDelay time.Duration

	Observer RequestObserver
}

// NewClient creates a new API client authenticated with token
func NewClient(baseURL, token string) *Client {
	return NewClientWithHTTPClient(baseURL, token, &http.Client{
		Timeout: DefaultTimeout,
	})
}

// NewClientWithHTTPClient creates a new API client with a custom HTTP client
func NewClientWithHTTPClient(baseURL, token string, httpClient *http.Client) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIVersion: DefaultAPIVersion,
		Token:      token,
		HTTPClient: httpClient,
		Retries:    DefaultRetries,
		RetryDelay: 500 * time.Millisecond,
	}
}

// ListOrganizations returns the organizations the token can access.
// Only the first page is read.
func (c *Client) ListOrganizations(ctx context.Context) ([]Organization, error) {
	reqURL := c.BaseURL + "/rest/orgs?" + url.Values{"version": {c.APIVersion}}.Encode()

	var list orgListResponse
	if err := c.getJSON(ctx, reqURL, &list); err != nil {
		return nil, goerr.Wrap(err, "failed to list organizations",
			goerr.T(ErrTagOrganizationFetchFailed),
			goerr.V("status", StatusCode(err)))
	}

	orgs := make([]Organization, 0, len(list.Data))
	for _, item := range list.Data {
		orgs = append(orgs, Organization{ID: item.ID, Name: item.Attributes.Name})
	}
	return orgs, nil
}

// ListTargets follows links.next until the listing is exhausted. When a page
// fails, the targets collected from earlier pages are returned along with the
// error and no further pages are requested.
func (c *Client) ListTargets(ctx context.Context, orgID string) ([]Target, error) {
	query := url.Values{
		"version": {c.APIVersion},
		"limit":   {strconv.Itoa(PageLimit)},
	}
	next := c.targetsURL(orgID) + "?" + query.Encode()

	var targets []Target
	for page := 1; next != ""; page++ {
		pageURL, err := c.resolve(next)
		if err != nil {
			return targets, goerr.Wrap(err, "invalid pagination link",
				goerr.T(ErrTagTargetFetchFailed),
				goerr.V("org_id", orgID),
				goerr.V("next", next))
		}

		var resp targetPageResponse
		if err := c.getJSON(ctx, pageURL, &resp); err != nil {
			return targets, goerr.Wrap(err, "failed to fetch targets",
				goerr.T(ErrTagTargetFetchFailed),
				goerr.V("org_id", orgID),
				goerr.V("page", page),
				goerr.V("status", StatusCode(err)))
		}

		targets = append(targets, resp.targets()...)
		next = resp.next()
	}

	return targets, nil
}

// DeleteTarget deletes a single target. Only 204 No Content counts as success.
func (c *Client) DeleteTarget(ctx context.Context, orgID, targetID string) error {
	reqURL := c.targetsURL(orgID) + "/" + url.PathEscape(targetID) +
		"?" + url.Values{"version": {c.APIVersion}}.Encode()

	resp, err := c.do(ctx, http.MethodDelete, reqURL)
	if err != nil {
		return goerr.Wrap(err, "failed to delete target",
			goerr.T(ErrTagTargetDeleteFailed),
			goerr.V("org_id", orgID),
			goerr.V("target_id", targetID))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return goerr.Wrap(newStatusError(resp), "failed to delete target",
			goerr.T(ErrTagTargetDeleteFailed),
			goerr.V("org_id", orgID),
			goerr.V("target_id", targetID),
			goerr.V("status", resp.StatusCode))
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) targetsURL(orgID string) string {
	return fmt.Sprintf("%s/rest/orgs/%s/targets", c.BaseURL, url.PathEscape(orgID))
}

// resolve turns a pagination link into a URL on the API host. Path-only links
// are resolved against BaseURL; absolute links keep their path and query but
// are re-homed onto the BaseURL scheme and host so the token is never sent
// elsewhere.
func (c *Client) resolve(link string) (string, error) {
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", goerr.Wrap(err, "invalid base URL", goerr.V("base_url", c.BaseURL))
	}
	ref, err := url.Parse(link)
	if err != nil {
		return "", goerr.Wrap(err, "invalid link", goerr.V("link", link))
	}

	if ref.IsAbs() {
		ref.Scheme = base.Scheme
		ref.Host = base.Host
		ref.User = nil
		return ref.String(), nil
	}
	return base.ResolveReference(ref).String(), nil
}

func (c *Client) getJSON(ctx context.Context, reqURL string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, reqURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return newStatusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return goerr.Wrap(err, "failed to decode response", goerr.V("url", reqURL))
	}
	return nil
}

// do sends one authenticated request. GET requests are retried on transport
// errors; DELETE requests are sent exactly once.
func (c *Client) do(ctx context.Context, method, reqURL string) (*http.Response, error) {
	logger := ctxlog.From(ctx)

	attempts := 1
	if method == http.MethodGet && c.Retries > 0 {
		attempts += c.Retries
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to build request", goerr.V("url", reqURL))
		}
		req.Header.Set("Authorization", c.Token)
		req.Header.Set("Accept", jsonAPIContentType)
		if c.UserAgent != "" {
			req.Header.Set("User-Agent", c.UserAgent)
		}

		start := time.Now()
		resp, err := c.HTTPClient.Do(req)
		if err == nil {
			logger.Debug("API request",
				"method", method,
				"path", req.URL.Path,
				"status", resp.StatusCode,
				"duration", time.Since(start))
			c.observe(method, resp.StatusCode)
			return resp, nil
		}

		lastErr = err
		c.observe(method, 0)
		logger.Debug("API request failed",
			"method", method,
			"path", req.URL.Path,
			"attempt", attempt,
			"error", err)

		if attempt == attempts || ctx.Err() != nil {
			break
		}

		select {
		case <-ctx.Done():
			return nil, goerr.Wrap(ctx.Err(), "request cancelled", goerr.V("method", method))
		case <-time.After(c.RetryDelay * time.Duration(attempt)):
		}
	}

	return nil, goerr.Wrap(lastErr, "HTTP request failed",
		goerr.V("method", method),
		goerr.V("attempts", attempts))
}

func (c *Client) observe(method string, status int) {
	if c.Observer != nil {
		c.Observer.ObserveRequest(method, status)
	}
}

func newStatusError(resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		Code: resp.StatusCode,
		Body: strings.TrimSpace(string(body)),
	}
}
