package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/pkg/errors"
)

const maxResponseBytes = 1 << 20

// HTTPClient is the registry client speaking the registration lookup API.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ Client = (*HTTPClient)(nil)

func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Lookup queries the registration of key. It performs exactly one HTTP request.
func (c *HTTPClient) Lookup(ctx context.Context, key string) (*Outcome, error) {
	endpoint := fmt.Sprintf("%s/v1/registrations/%s", c.baseURL, url.PathEscape(key))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, NewError(ErrorInternal, key, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(key, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, NewTransientError(key, "failed to read response body", errors.Wrap(err, "reading registry response"))
	}

	return parseResponse(key, resp.StatusCode, body)
}

func parseResponse(key string, status int, body []byte) (*Outcome, error) {
	switch {
	case status == http.StatusOK:
	case status == http.StatusNotFound || status == http.StatusNoContent:
		return nil, NewNoDataError(key)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return nil, NewTerminalInputError(key, fmt.Sprintf("registry rejected identifier (status %d)", status), nil)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return nil, NewError(ErrorAuthentication, key, fmt.Sprintf("registry refused credentials (status %d)", status), nil)
	case status == http.StatusTooManyRequests || status == http.StatusRequestTimeout || status >= 500:
		return nil, NewTransientError(key, fmt.Sprintf("registry unavailable (status %d)", status), nil)
	default:
		return nil, NewError(ErrorInternal, key, fmt.Sprintf("unexpected registry status %d", status), nil)
	}

	if len(body) == 0 {
		return nil, NewNoDataError(key)
	}

	var r registrationResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, NewError(ErrorNoData, key, "malformed registry response", errors.Wrap(err, "decoding registry response"))
	}
	if r.NoData || r.IsRegistered == nil {
		return nil, NewNoDataError(key)
	}

	return &Outcome{
		IsRegistered: *r.IsRegistered,
		LocationCode: nonEmpty(r.LocationCode),
		StatusLabel:  r.StatusLabel,
		VenueName:    nonEmpty(r.VenueName),
		RegionCodes:  stringify(r.RegionCodes),
	}, nil
}

func classifyTransportError(key string, err error) error {
	wrapped := errors.Wrap(err, "calling registry")

	if errors.Is(err, context.DeadlineExceeded) {
		return NewTransientError(key, "registry call timed out", wrapped)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewTransientError(key, "registry call timed out", wrapped)
	}
	return NewTransientError(key, "registry unreachable", wrapped)
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func stringify(m map[string]any) map[string]string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]string, len(m))
	for _, k := range keys {
		if m[k] == nil {
			continue
		}
		out[k] = fmt.Sprint(m[k])
	}
	return out
}
