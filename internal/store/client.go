// Package store implements the remote document-store client.
//
// The reconciliation service reads its two input datasets from, and writes
// its report back to, an external document-management service addressed by
// server-relative file paths. This client wraps that service's REST surface:
// client-credential authentication, file download, and file upload into a
// configured output folder. Store failures are request-level; the caller
// never persists partial output.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"
)

// Config holds document store connection settings.
type Config struct {
	// BaseURL is the root of the document-store site, e.g.
	// "https://tenant.example.com/sites/finance".
	BaseURL string `json:"base_url"`

	// TokenURL is the OAuth client-credentials token endpoint. When empty,
	// requests are sent unauthenticated (local test stores).
	TokenURL     string `json:"token_url"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`

	// OutputFolder is the server-relative folder reports are uploaded to.
	OutputFolder string `json:"output_folder"`

	Timeout time.Duration `json:"timeout"`
}

// DefaultConfig returns a store configuration with defaults applied.
func DefaultConfig() *Config {
	return &Config{
		OutputFolder: "Shared Documents/Reconciled Reports",
		Timeout:      60 * time.Second,
	}
}

// Validate checks the store configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("store base URL cannot be empty")
	}
	if strings.TrimSpace(c.OutputFolder) == "" {
		return fmt.Errorf("store output folder cannot be empty")
	}
	if c.TokenURL != "" && (c.ClientID == "" || c.ClientSecret == "") {
		return fmt.Errorf("client id and secret are required when a token URL is set")
	}
	return nil
}

// Client talks to the remote document store.
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     logger.Logger

	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient creates a document store client.
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigError(errors.CodeInvalidConfig, "store", err)
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.WithComponent("document_store"),
	}, nil
}

// Download fetches a file's content by its server-relative path.
func (c *Client) Download(ctx context.Context, serverRelativePath string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/_api/web/GetFileByServerRelativeUrl('%s')/$value",
		strings.TrimRight(c.config.BaseURL, "/"), escapePath(serverRelativePath))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.StoreError(errors.CodeDownloadFailed, serverRelativePath, err)
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, errors.StoreError(errors.CodeDownloadFailed, serverRelativePath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.StoreError(errors.CodeDownloadFailed, serverRelativePath,
			fmt.Errorf("store returned status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.StoreError(errors.CodeDownloadFailed, serverRelativePath, err)
	}

	c.logger.WithFields(logger.Fields{
		"path":  serverRelativePath,
		"bytes": len(data),
	}).Info("Downloaded file from document store")

	return data, nil
}

// Upload stores a file under the configured output folder and returns its
// addressable location.
func (c *Client) Upload(ctx context.Context, name string, data []byte) (string, error) {
	endpoint := fmt.Sprintf("%s/_api/web/GetFolderByServerRelativeUrl('%s')/Files/add(url='%s',overwrite=true)",
		strings.TrimRight(c.config.BaseURL, "/"), escapePath(c.config.OutputFolder), escapePath(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", errors.StoreError(errors.CodeUploadFailed, name, err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.do(ctx, req)
	if err != nil {
		return "", errors.StoreError(errors.CodeUploadFailed, name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", errors.StoreError(errors.CodeUploadFailed, name,
			fmt.Errorf("store returned status %d", resp.StatusCode))
	}

	location := fmt.Sprintf("%s/%s/%s",
		strings.TrimRight(c.config.BaseURL, "/"),
		strings.Trim(c.config.OutputFolder, "/"), name)

	c.logger.WithFields(logger.Fields{
		"name":     name,
		"location": location,
		"bytes":    len(data),
	}).Info("Uploaded file to document store")

	return location, nil
}

// do attaches authentication when configured and executes the request.
func (c *Client) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if c.config.TokenURL != "" {
		token, err := c.token(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.httpClient.Do(req)
}

// token returns a cached access token, refreshing it via the
// client-credentials grant when missing or near expiry.
func (c *Client) token(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-30*time.Second)) {
		return c.accessToken, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.config.ClientID},
		"client_secret": {c.config.ClientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.StoreError(errors.CodeAuthFailed, c.config.TokenURL, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.StoreError(errors.CodeAuthFailed, c.config.TokenURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.StoreError(errors.CodeAuthFailed, c.config.TokenURL,
			fmt.Errorf("token endpoint returned status %d", resp.StatusCode))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", errors.StoreError(errors.CodeAuthFailed, c.config.TokenURL, err)
	}
	if payload.AccessToken == "" {
		return "", errors.StoreError(errors.CodeAuthFailed, c.config.TokenURL,
			fmt.Errorf("token endpoint returned an empty token"))
	}

	c.accessToken = payload.AccessToken
	expiresIn := payload.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	c.tokenExpiry = time.Now().Add(time.Duration(expiresIn) * time.Second)

	return c.accessToken, nil
}

// escapePath escapes single quotes for embedding a path in the store's REST
// URL literals.
func escapePath(p string) string {
	return strings.ReplaceAll(p, "'", "''")
}
