package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/brporter/lakegate/internal/identity"
)

// Endpoints maps the names accepted by Call to gateway paths.
var Endpoints = map[string]string{
	"healthcheck": "/api/v1/healthcheck",
	"me":          "/api/v1/me",
	"groups":      "/api/v1/me/groups",
	"trips":       "/api/v1/trips",
	"headers":     "/api/v1/debug/headers",
}

// EndpointNames returns the known endpoint names in order.
func EndpointNames() []string {
	names := make([]string, 0, len(Endpoints))
	for n := range Endpoints {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

const callTimeout = 30 * time.Second

// CallOptions selects the credentials sent with a call.
type CallOptions struct {
	// Token is sent as an Authorization bearer; the platform proxy forwards
	// it to the gateway as the delegated token.
	Token string
	// ForwardedToken sets x-forwarded-access-token directly, for talking to
	// a gateway without a proxy in front.
	ForwardedToken string
	UserToken      string
	UserEmail      string
}

// Response is a gateway reply.
type Response struct {
	Method      string
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Client calls gateway endpoints.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient creates a client for the gateway at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: callTimeout},
	}
}

// Call performs a GET against the named endpoint.
func (c *Client) Call(ctx context.Context, endpoint string, opts CallOptions) (*Response, error) {
	path, ok := Endpoints[endpoint]
	if !ok {
		return nil, fmt.Errorf("unknown endpoint: %s (supported: %s)", endpoint, strings.Join(EndpointNames(), ", "))
	}

	url := c.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}
	setIfPresent(req.Header, identity.HeaderForwardedAccessToken, opts.ForwardedToken)
	setIfPresent(req.Header, identity.HeaderUserToken, opts.UserToken)
	setIfPresent(req.Header, identity.HeaderUserEmail, opts.UserEmail)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &Response{
		Method:      http.MethodGet,
		URL:         url,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

func setIfPresent(h http.Header, key, value string) {
	if value != "" {
		h.Set(key, value)
	}
}

// Print writes the response the way an operator wants to read it: status
// line first, then indented JSON or raw text.
func (r *Response) Print(w io.Writer, label string) {
	fmt.Fprintf(w, "\n--- %s ---\n", label)
	fmt.Fprintf(w, "%s %s\n", r.Method, r.URL)
	fmt.Fprintf(w, "Status: %d\n", r.StatusCode)

	if strings.HasPrefix(r.ContentType, "application/json") {
		var buf bytes.Buffer
		if err := json.Indent(&buf, r.Body, "", "  "); err == nil {
			fmt.Fprintln(w, strings.TrimRight(buf.String(), "\n"))
			return
		}
	}
	fmt.Fprintln(w, string(r.Body))
}
