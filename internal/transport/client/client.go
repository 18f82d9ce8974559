package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/joshdurbin/tinylink/internal/domain"
)

// Client represents an HTTP client for the TinyLink API
type Client struct {
	serverURL  string
	httpClient *http.Client
}

// NewClient creates a new TinyLink client
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: serverURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			// Resolve reports the redirect target instead of following it
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// ShortURL returns the public short URL for code
func (c *Client) ShortURL(code string) string {
	return c.serverURL + "/" + code
}

// CreateLink creates a link; an empty code asks the server to generate one
func (c *Client) CreateLink(ctx context.Context, target, code string) (*domain.Link, error) {
	jsonData, err := json.Marshal(domain.CreateLinkRequest{URL: target, Code: code})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/api/links", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var link domain.Link
	if err := c.doJSON(req, http.StatusCreated, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

// GetLink retrieves a link and its counters
func (c *Client) GetLink(ctx context.Context, code string) (*domain.Link, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.linkURL(code), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var link domain.Link
	if err := c.doJSON(req, http.StatusOK, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

// DeleteLink deletes a link
func (c *Client) DeleteLink(ctx context.Context, code string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.linkURL(code), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	var result domain.DeleteLinkResponse
	if err := c.doJSON(req, http.StatusOK, &result); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("server did not confirm deletion of %s", code)
	}
	return nil
}

// ListLinks retrieves every link, newest first
func (c *Client) ListLinks(ctx context.Context) ([]*domain.Link, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serverURL+"/api/links", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var links []*domain.Link
	if err := c.doJSON(req, http.StatusOK, &links); err != nil {
		return nil, err
	}
	return links, nil
}

// Resolve follows the short link once, counting a click, and returns its target
func (c *Client) Resolve(ctx context.Context, code string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serverURL+"/"+url.PathEscape(code), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		return "", statusError(resp)
	}
	return resp.Header.Get("Location"), nil
}

// QRCode downloads the PNG QR code of the short URL
func (c *Client) QRCode(ctx context.Context, code string, size int) ([]byte, error) {
	endpoint := c.linkURL(code) + "/qr"
	if size > 0 {
		endpoint += "?size=" + strconv.Itoa(size)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	png, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return png, nil
}

func (c *Client) linkURL(code string) string {
	return c.serverURL + "/api/links/" + url.PathEscape(code)
}

func (c *Client) doJSON(req *http.Request, expected int, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != expected {
		return statusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// statusError turns an unexpected response into an error wrapping the
// matching domain sentinel, so callers can use errors.Is
func statusError(resp *http.Response) error {
	message := ""
	var apiErr domain.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&apiErr); err == nil {
		message = apiErr.Error
	}

	var sentinel error
	switch resp.StatusCode {
	case http.StatusBadRequest:
		sentinel = domain.ErrInvalidInput
	case http.StatusNotFound:
		sentinel = domain.ErrNotFound
	case http.StatusConflict:
		sentinel = domain.ErrCodeConflict
	case http.StatusServiceUnavailable:
		sentinel = domain.ErrGenerationExhausted
	}

	base := fmt.Sprintf("server returned status %d", resp.StatusCode)
	if message != "" {
		base += ": " + message
	}
	if sentinel == nil {
		return errors.New(base)
	}
	return fmt.Errorf("%s: %w", base, sentinel)
}
