package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// HTTP status code constants.
const (
	statusOK       = 200
	statusNotFound = 404
)

const maxBodyBytes = 1 << 20

// httpClient wraps http.Client with the service's base URL.
type httpClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *httpClient {
	return &httpClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (c *httpClient) get(ctx context.Context, path string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, body, nil
}

// health verifies the root route answers 200.
func (c *httpClient) health(ctx context.Context) error {
	status, _, err := c.get(ctx, "/")
	if err != nil {
		return err
	}
	if status != statusOK {
		return fmt.Errorf("health check returned status %d", status)
	}
	return nil
}

// recommendations returns the decoded titles on 200, the status otherwise.
func (c *httpClient) recommendations(ctx context.Context, user int64) ([]string, int, error) {
	status, body, err := c.get(ctx, "/recommendations/"+strconv.FormatInt(user, 10))
	if err != nil {
		return nil, status, err
	}
	switch status {
	case statusOK:
		var titles []string
		if err := json.Unmarshal(body, &titles); err != nil {
			return nil, status, fmt.Errorf("decode titles: %w", err)
		}
		return titles, status, nil
	case statusNotFound:
		return nil, status, nil
	default:
		return nil, status, fmt.Errorf("unexpected status %d", status)
	}
}
