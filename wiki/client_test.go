package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
)

// createMockClient creates a client that talks to a mock server without pacing
func createMockClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	config := &Config{
		BaseURL:      server.URL,
		UserAgent:    "TestClient/1.0",
		Timeout:      5 * time.Second,
		PageLimit:    DefaultPageLimit,
		RequestDelay: 0,
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	client := NewClient(config, logger)
	t.Cleanup(client.Close)
	return client
}

// mockMediaWikiServer creates a test server that rejects anything but GET requests
// and delegates the rest to handler
func mockMediaWikiServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method %s", r.Method)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return server
}

// writeJSON encodes v as the response body
func writeJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("failed to encode response: %v", err)
	}
}

func TestNewClient(t *testing.T) {
	config := &Config{
		BaseURL:      "https://wiki.example.com/api.php",
		UserAgent:    "TestClient/1.0",
		Timeout:      10 * time.Second,
		PageLimit:    50,
		RequestDelay: 250 * time.Millisecond,
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	client := NewClient(config, logger)
	defer client.Close()

	if client.httpClient.Timeout != 10*time.Second {
		t.Errorf("timeout = %v, want 10s", client.httpClient.Timeout)
	}
	if client.httpClient.Jar == nil {
		t.Error("cookie jar is nil")
	}
	if client.Pacer() == nil {
		t.Fatal("Pacer() returned nil")
	}
	if client.Pacer().Delay() != 250*time.Millisecond {
		t.Errorf("pacer delay = %v, want 250ms", client.Pacer().Delay())
	}
}

func TestAPIRequest_SetsHeadersAndFormat(t *testing.T) {
	var gotUA, gotAccept, gotFormat, gotAction string
	server := mockMediaWikiServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		gotFormat = r.URL.Query().Get("format")
		gotAction = r.URL.Query().Get("action")
		writeJSON(t, w, map[string]interface{}{"batchcomplete": ""})
	})

	client := createMockClient(t, server)

	resp, err := client.apiRequest(context.Background(), ActionAllPages, map[string][]string{
		"action": {"query"},
	})
	if err != nil {
		t.Fatalf("apiRequest failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if gotUA != "TestClient/1.0" {
		t.Errorf("User-Agent = %q, want TestClient/1.0", gotUA)
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q, want application/json", gotAccept)
	}
	if gotFormat != "json" {
		t.Errorf("format = %q, want json", gotFormat)
	}
	if gotAction != "query" {
		t.Errorf("action = %q, want query", gotAction)
	}
}

func TestAPIRequest_KeepsBaseURLQuery(t *testing.T) {
	var gotQuery map[string][]string
	server := mockMediaWikiServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		writeJSON(t, w, map[string]interface{}{})
	})

	client := createMockClient(t, server)
	client.config.BaseURL = server.URL + "/api.php?uselang=en"

	if _, err := client.apiRequest(context.Background(), ActionAllPages, map[string][]string{
		"action": {"query"},
	}); err != nil {
		t.Fatalf("apiRequest failed: %v", err)
	}

	if got := gotQuery["uselang"]; len(got) != 1 || got[0] != "en" {
		t.Errorf("uselang = %v, want [en]", got)
	}
}

func TestAPIRequest_NonOKStatusStillReturnsBody(t *testing.T) {
	server := mockMediaWikiServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	})

	client := createMockClient(t, server)

	resp, err := client.apiRequest(context.Background(), ActionRevisions, map[string][]string{})
	if err != nil {
		t.Fatalf("apiRequest failed: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
	if !strings.Contains(string(resp.Body), "maintenance") {
		t.Errorf("body = %q, want maintenance page", resp.Body)
	}
}

func TestAPIRequest_ContextCanceled(t *testing.T) {
	server := mockMediaWikiServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach the server")
	})

	client := createMockClient(t, server)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.apiRequest(ctx, ActionAllPages, map[string][]string{}); err == nil {
		t.Error("expected error for canceled context")
	}
}

func TestAPIRequest_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := createMockClient(t, server)
	server.Close()

	if _, err := client.apiRequest(context.Background(), ActionAllPages, map[string][]string{}); err == nil {
		t.Error("expected error when server is unreachable")
	}
}

func TestDecode(t *testing.T) {
	t.Run("valid JSON", func(t *testing.T) {
		var v map[string]interface{}
		resp := &apiResponse{StatusCode: 200, Body: []byte(`{"query":{}}`)}
		if err := decode(ActionAllPages, "", resp, &v); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if _, ok := v["query"]; !ok {
			t.Error("expected query key")
		}
	})

	t.Run("valid JSON of another shape", func(t *testing.T) {
		var v struct {
			Query map[string]interface{} `json:"query"`
		}
		resp := &apiResponse{StatusCode: 200, Body: []byte(`{"query":[]}`)}
		err := decode(ActionAllPages, "", resp, &v)
		if !errors.Is(err, ErrUnexpectedShape) {
			t.Fatalf("error = %v, want ErrUnexpectedShape", err)
		}
		if IsParseError(err) {
			t.Error("shape mismatch must not be a parse error")
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		var v map[string]interface{}
		resp := &apiResponse{StatusCode: 502, Body: []byte("<html>Bad Gateway</html>")}
		err := decode(ActionRevisions, "Archer", resp, &v)
		if err == nil {
			t.Fatal("expected error")
		}
		pe, ok := err.(*ResponseParseError)
		if !ok {
			t.Fatalf("error type = %T, want *ResponseParseError", err)
		}
		if pe.StatusCode != 502 {
			t.Errorf("StatusCode = %d, want 502", pe.StatusCode)
		}
		if pe.Title != "Archer" {
			t.Errorf("Title = %q, want Archer", pe.Title)
		}
		if pe.Snippet != "<html>Bad Gateway</html>" {
			t.Errorf("Snippet = %q", pe.Snippet)
		}
	})
}
