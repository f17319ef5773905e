package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/docchat/docchat/internal/api"
	"github.com/docchat/docchat/internal/config"
	"github.com/docchat/docchat/internal/session"
)

type apiClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var newAPIClient = func() (*apiClient, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return &apiClient{
		baseURL:    fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port),
		token:      cfg.Server.APIToken,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

func (c *apiClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshalling request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("server not reachable — is docchat running? (%w)", err)
	}
	return resp, nil
}

func (c *apiClient) get(ctx context.Context, path string) (*http.Response, error) {
	return c.do(ctx, "GET", path, nil)
}

func (c *apiClient) post(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.do(ctx, "POST", path, body)
}

func (c *apiClient) patch(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.do(ctx, "PATCH", path, body)
}

func (c *apiClient) delete(ctx context.Context, path string) (*http.Response, error) {
	return c.do(ctx, "DELETE", path, nil)
}

// upload sends a PDF as a multipart form. chunkSize of 0 keeps the server
// default.
func (c *apiClient) upload(ctx context.Context, path string, chunkSize int) (api.UploadResponse, error) {
	var result api.UploadResponse

	f, err := os.Open(path)
	if err != nil {
		return result, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return result, fmt.Errorf("building upload: %w", err)
	}
	if _, err := io.Copy(fw, f); err != nil {
		return result, fmt.Errorf("reading file: %w", err)
	}
	if chunkSize > 0 {
		if err := mw.WriteField("chunk_size", strconv.Itoa(chunkSize)); err != nil {
			return result, fmt.Errorf("building upload: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return result, fmt.Errorf("building upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/documents", &buf)
	if err != nil {
		return result, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return result, fmt.Errorf("server not reachable — is docchat running? (%w)", err)
	}
	if err := decodeJSON(resp, &result); err != nil {
		return result, err
	}
	return result, nil
}

func (c *apiClient) createSession(ctx context.Context) (api.SessionView, error) {
	var view api.SessionView
	resp, err := c.post(ctx, "/v1/sessions", nil)
	if err != nil {
		return view, err
	}
	if err := decodeJSON(resp, &view); err != nil {
		return view, err
	}
	return view, nil
}

func (c *apiClient) attachDocument(ctx context.Context, sessionID, documentID string) error {
	resp, err := c.post(ctx, "/v1/sessions/"+sessionID+"/document", map[string]string{"document_id": documentID})
	if err != nil {
		return err
	}
	var out map[string]any
	return decodeJSON(resp, &out)
}

// Ask, Messages, and Clear implement tui.Backend.

func (c *apiClient) Ask(ctx context.Context, sessionID, question string) error {
	resp, err := c.post(ctx, "/v1/sessions/"+sessionID+"/messages", map[string]string{"question": question})
	if err != nil {
		return err
	}
	var out map[string]any
	return decodeJSON(resp, &out)
}

func (c *apiClient) Messages(ctx context.Context, sessionID string) ([]session.Message, bool, error) {
	resp, err := c.get(ctx, "/v1/sessions/"+sessionID+"/messages")
	if err != nil {
		return nil, false, err
	}
	var out struct {
		Messages []session.Message `json:"messages"`
		Thinking bool              `json:"thinking"`
	}
	if err := decodeJSON(resp, &out); err != nil {
		return nil, false, err
	}
	return out.Messages, out.Thinking, nil
}

func (c *apiClient) Clear(ctx context.Context, sessionID string) error {
	resp, err := c.post(ctx, "/v1/sessions/"+sessionID+"/clear", nil)
	if err != nil {
		return err
	}
	var out map[string]any
	return decodeJSON(resp, &out)
}

func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("server returned %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
