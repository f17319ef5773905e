package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

var ctx = context.Background()

func TestUpload(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /v1/documents": `{"document":{"id":"doc-1","name":"report.pdf","status":"processing"},"reprocessed":true}`,
	})

	path := filepath.Join(t.TempDir(), "report.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 test"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	result, err := ts.client().upload(ctx, path, 750)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Reprocessed || result.Document.ID != "doc-1" {
		t.Errorf("result = %+v", result)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	r := ts.requests[0]
	if r.Auth != "Bearer test-token" {
		t.Errorf("auth = %q", r.Auth)
	}
	if !strings.Contains(r.Body, "report.pdf") {
		t.Error("multipart body missing filename")
	}
	if !strings.Contains(r.Body, "750") {
		t.Error("multipart body missing chunk_size field")
	}
}

func TestCreateSessionAndAsk(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /v1/sessions":                 `{"id":"sess-1","settings":{"temperature":0.7,"max_tokens":1000,"chunk_size":1000}}`,
		"POST /v1/sessions/sess-1/messages": `{"status":"thinking"}`,
	})
	client := ts.client()

	view, err := client.createSession(ctx)
	if err != nil {
		t.Fatalf("createSession: %v", err)
	}
	if view.ID != "sess-1" {
		t.Errorf("session ID = %q", view.ID)
	}

	if err := client.Ask(ctx, view.ID, "What is this?"); err != nil {
		t.Fatalf("Ask: %v", err)
	}

	var body map[string]string
	if err := json.Unmarshal([]byte(ts.requests[1].Body), &body); err != nil {
		t.Fatalf("body parse: %v", err)
	}
	if body["question"] != "What is this?" {
		t.Errorf("question = %q", body["question"])
	}
}

func TestMessagesPolling(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /v1/sessions/sess-1/messages": `{"messages":[{"role":"user","content":"q"},{"role":"assistant","content":"a"}],"thinking":false}`,
	})

	msgs, thinking, err := ts.client().Messages(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if thinking {
		t.Error("thinking should be false")
	}
	if len(msgs) != 2 || msgs[1].Content != "a" {
		t.Errorf("messages = %+v", msgs)
	}
}

func TestWaitForAnswer(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /v1/sessions/sess-1/messages": `{"messages":[{"role":"user","content":"q"},{"role":"assistant","content":"the answer"}],"thinking":false}`,
	})

	answer, err := waitForAnswer(ctx, ts.client(), "sess-1")
	if err != nil {
		t.Fatalf("waitForAnswer: %v", err)
	}
	if answer != "the answer" {
		t.Errorf("answer = %q", answer)
	}
}

func TestWaitForAnswer_Timeout(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /v1/sessions/sess-1/messages": `{"messages":[{"role":"user","content":"q"}],"thinking":true}`,
	})

	timeoutCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	if _, err := waitForAnswer(timeoutCtx, ts.client(), "sess-1"); err == nil {
		t.Error("expected timeout error")
	}
}

func TestDecodeJSON_ServerError(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := ts.client().get(ctx, "/v1/documents/missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var out map[string]any
	err = decodeJSON(resp, &out)
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("err = %v, want 404 in message", err)
	}
}

func TestColorize(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	if result := colorize(colorGreen, "ok"); strings.Contains(result, "\033") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}

	noColor = false
	if result := colorize(colorGreen, "ok"); !strings.Contains(result, "\033") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}
