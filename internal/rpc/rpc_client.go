package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

type httpClient struct {
	config *HTTPConfig
	client *http.Client
}

// NewHTTPClient creates a client for the daemon API; a nil config uses the
// defaults.
func NewHTTPClient(cfg *HTTPConfig) HTTPClient {
	if cfg == nil {
		cfg = DefaultHTTPConfig()
	}
	return &httpClient{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *httpClient) Get(path string, params map[string]string) (*HTTPResponse, error) {
	fullURL, err := buildURL(c.config.BaseURL, path, params)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Get(fullURL)
	if err != nil {
		return nil, fmt.Errorf("GET %s failed: %w", fullURL, err)
	}
	return deserializeResponse(resp)
}

func (c *httpClient) Post(path string, data interface{}) (*HTTPResponse, error) {
	fullURL, err := buildURL(c.config.BaseURL, path, nil)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	if data != nil {
		if err := json.NewEncoder(&body).Encode(data); err != nil {
			return nil, fmt.Errorf("failed to serialize request body: %w", err)
		}
	}

	resp, err := c.client.Post(fullURL, "application/json", &body)
	if err != nil {
		return nil, fmt.Errorf("POST %s failed: %w", fullURL, err)
	}
	return deserializeResponse(resp)
}

func (c *httpClient) Delete(path string, params map[string]string) (*HTTPResponse, error) {
	fullURL, err := buildURL(c.config.BaseURL, path, params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodDelete, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("DELETE %s failed: %w", fullURL, err)
	}
	return deserializeResponse(resp)
}
