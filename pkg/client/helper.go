package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	httphandler "github.com/ericfisherdev/mytaskpanel/internal/adapter/driving/http"
	"github.com/ericfisherdev/mytaskpanel/internal/domain/model"
	"github.com/ericfisherdev/mytaskpanel/internal/domain/port/driven"
)

func (c *Client) get(ctx context.Context, url string, creds model.Credentials, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, creds, result)
}

func (c *Client) post(ctx context.Context, url string, creds model.Credentials, payload, result any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshaling payload: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, creds, result)
}

// parseErrorResponse turns an {error} body into a *driven.RemoteError.
func parseErrorResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("request failed with status %d and unreadable body: %w", resp.StatusCode, err)
	}
	var errResp httphandler.ErrorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		return &driven.RemoteError{Status: resp.StatusCode, Message: errResp.Error}
	}
	return &driven.RemoteError{
		Status:  resp.StatusCode,
		Message: fmt.Sprintf("unparsed response %q", string(body)),
	}
}

func (c *Client) do(req *http.Request, creds model.Credentials, result any) error {
	// Empty fields are left off so the server falls back to its defaults.
	if creds.Token != "" {
		req.Header.Set(httphandler.HeaderNotionToken, creds.Token)
	}
	if creds.DatabaseID != "" {
		req.Header.Set(httphandler.HeaderNotionDatabaseID, creds.DatabaseID)
	}
	if creds.Provider != "" {
		req.Header.Set(httphandler.HeaderTaskProvider, string(creds.Provider))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode >= 400 {
		return parseErrorResponse(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
