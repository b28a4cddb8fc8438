package rpc

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"tunman/internal/config"
)

// HTTPClient is the thin client CLI commands use to reach a running daemon.
type HTTPClient interface {
	Get(path string, params map[string]string) (*HTTPResponse, error)
	Post(path string, data interface{}) (*HTTPResponse, error)
	Delete(path string, params map[string]string) (*HTTPResponse, error)
}

/**
 * HTTP client configuration
 * @property {string} baseURL - Daemon address, defaults to the configured server address
 * @property {time.Duration} timeout - Per-request timeout
 */
type HTTPConfig struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultHTTPConfig points at the locally configured daemon.
func DefaultHTTPConfig() *HTTPConfig {
	return &HTTPConfig{
		BaseURL: "http://" + config.Config.Server.Address,
		Timeout: 10 * time.Second,
	}
}

// HTTPResponse carries the status code, the decoded JSON body when the
// payload is a JSON object, and the raw bytes otherwise.
type HTTPResponse struct {
	StatusCode int
	Body       map[string]interface{}
	Raw        []byte
}

func buildURL(baseURL, path string, params map[string]string) (string, error) {
	u, err := url.Parse(baseURL + path)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", baseURL+path, err)
	}
	if len(params) > 0 {
		q := u.Query()
		for key, value := range params {
			q.Set(key, value)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func deserializeResponse(resp *http.Response) (*HTTPResponse, error) {
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	result := &HTTPResponse{
		StatusCode: resp.StatusCode,
		Raw:        raw,
	}
	// Body stays nil for non-object payloads; callers fall back to Raw.
	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err == nil {
		result.Body = body
	}
	return result, nil
}
