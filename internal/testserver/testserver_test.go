// File: internal/testserver/testserver_test.go
// Author: momentics <momentics@gmail.com>

package testserver

import (
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestEndpoints(t *testing.T) {
	s, err := Start()
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Close()

	resp, err := http.Get(s.URL() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != 200 || string(body) != "OK" {
		t.Fatalf("/health = %d %q, want 200 OK", resp.StatusCode, body)
	}

	resp, err = http.Get(s.URL() + "/chunked")
	if err != nil {
		t.Fatalf("GET /chunked: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "Hello, chunked world!" {
		t.Fatalf("/chunked = %q, want %q", body, "Hello, chunked world!")
	}

	resp, err = http.Get(s.URL() + "/status/500")
	if err != nil {
		t.Fatalf("GET /status/500: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != 500 || string(body) != "Status: 500" {
		t.Fatalf("/status/500 = %d %q, want 500 %q", resp.StatusCode, body, "Status: 500")
	}

	resp, err = http.Post(s.URL()+"/echo", "application/json", strings.NewReader(`{"k":"v"}`))
	if err != nil {
		t.Fatalf("POST /echo: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != `{"k":"v"}` {
		t.Fatalf("/echo = %q, want %q", body, `{"k":"v"}`)
	}
}
