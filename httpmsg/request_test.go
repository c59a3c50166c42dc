package httpmsg

import (
	"strings"
	"testing"

	"github.com/momentics/loadjs/urlx"
)

func TestBuildDefaultPortNoHostPort(t *testing.T) {
	u, _ := urlx.Parse("http://example.com/foo")
	s, err := Build(Template{URL: u}, "")
	if err != nil {
		t.Fatal(err)
	}
	raw := string(s.Bytes())
	if !strings.HasPrefix(raw, "GET /foo HTTP/1.1\r\n") {
		t.Fatalf("unexpected request line: %q", raw)
	}
	if !strings.Contains(raw, "Host: example.com\r\n") {
		t.Fatalf("expected bare Host header, got %q", raw)
	}
	if !strings.Contains(raw, "Connection: keep-alive\r\n") {
		t.Fatalf("expected keep-alive header, got %q", raw)
	}
	if strings.Contains(raw, "Content-Length") {
		t.Fatalf("unexpected content-length for empty body: %q", raw)
	}
}

func TestBuildNonDefaultPortAndBody(t *testing.T) {
	u, _ := urlx.Parse("http://example.com:8080/echo")
	s, err := Build(Template{
		URL:     u,
		Method:  "POST",
		Headers: map[string]string{"X-T": "1"},
		Body:    []byte(`{"k":"v"}`),
	}, "")
	if err != nil {
		t.Fatal(err)
	}
	raw := string(s.Bytes())
	if !strings.HasPrefix(raw, "POST /echo HTTP/1.1\r\n") {
		t.Fatalf("unexpected request line: %q", raw)
	}
	if !strings.Contains(raw, "Host: example.com:8080\r\n") {
		t.Fatalf("expected host:port header, got %q", raw)
	}
	if !strings.Contains(raw, "X-T: 1\r\n") {
		t.Fatalf("missing user header: %q", raw)
	}
	if !strings.Contains(raw, "Content-Length: 9\r\n") {
		t.Fatalf("missing content-length: %q", raw)
	}
	if !strings.HasSuffix(raw, `{"k":"v"}`) {
		t.Fatalf("missing body: %q", raw)
	}
}

func TestBuildHostOverride(t *testing.T) {
	u, _ := urlx.Parse("http://example.com/")
	s, _ := Build(Template{URL: u}, "override.test")
	if !strings.Contains(string(s.Bytes()), "Host: override.test\r\n") {
		t.Fatalf("host override not applied: %q", s.Bytes())
	}
}
