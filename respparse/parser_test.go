package respparse

import (
	"bytes"
	"math/rand"
	"testing"
)

func feedAll(t *testing.T, p *Parser, data []byte) Status {
	t.Helper()
	var st Status
	for len(data) > 0 {
		n := len(data)
		if n > 3 {
			n = 3
		}
		st = p.Feed(data[:n])
		data = data[n:]
		if st != NeedMore {
			return st
		}
	}
	return st
}

func TestIdentityBody(t *testing.T) {
	raw := []byte("HTTP/1.1 200 OK\r\nContent-Length: 5\r\nX-A: 1\r\n\r\nhello")
	p := New()
	if st := feedAll(t, p, raw); st != Done {
		t.Fatalf("status = %v, want Done", st)
	}
	if p.StatusCode != 200 || p.StatusText != "OK" {
		t.Fatalf("got code=%d text=%q", p.StatusCode, p.StatusText)
	}
	if v, ok := p.Header("x-a"); !ok || v != "1" {
		t.Fatalf("header lookup case-insensitive failed: %q %v", v, ok)
	}
	if !bytes.Equal(p.Body(), []byte("hello")) {
		t.Fatalf("body = %q", p.Body())
	}
}

func TestChunkedBody(t *testing.T) {
	raw := []byte("HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n" +
		"5\r\nHello\r\n7\r\n, chunk\r\n9\r\ned world!\r\n0\r\n\r\n")
	p := New()
	if st := feedAll(t, p, raw); st != Done {
		t.Fatalf("status = %v, want Done", st)
	}
	if string(p.Body()) != "Hello, chunked world!" {
		t.Fatalf("body = %q", p.Body())
	}
}

func TestChunkedEqualsIdentity(t *testing.T) {
	body := []byte("Hello, chunked world!")

	identity := New()
	idRaw := append([]byte("HTTP/1.1 200 OK\r\nContent-Length: 21\r\n\r\n"), body...)
	feedAll(t, identity, idRaw)

	chunked := New()
	chunkedRaw := []byte("HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n" +
		"15\r\nHello, chunked world!\r\n0\r\n\r\n")
	feedAll(t, chunked, chunkedRaw)

	multi := New()
	multiRaw := []byte("HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n" +
		"5\r\nHello\r\n10\r\n, chunked world!\r\n0\r\n\r\n")
	feedAll(t, multi, multiRaw)

	if !bytes.Equal(identity.Body(), body) || !bytes.Equal(chunked.Body(), body) || !bytes.Equal(multi.Body(), body) {
		t.Fatalf("mismatched bodies: %q %q %q", identity.Body(), chunked.Body(), multi.Body())
	}
}

func TestRandomPartitionRoundTrip(t *testing.T) {
	raw := []byte("HTTP/1.1 201 Created\r\nContent-Length: 13\r\n\r\nHello, World!")
	body := []byte("Hello, World!")
	for trial := 0; trial < 20; trial++ {
		p := New()
		r := rand.New(rand.NewSource(int64(trial)))
		data := raw
		var st Status
		for len(data) > 0 {
			n := 1 + r.Intn(len(data))
			st = p.Feed(data[:n])
			data = data[n:]
		}
		if st != Done {
			t.Fatalf("trial %d: status = %v", trial, st)
		}
		if !bytes.Equal(p.Body(), body) {
			t.Fatalf("trial %d: body = %q", trial, p.Body())
		}
	}
}

// TestConnectionClose covers a close-framed response (no Content-Length,
// no chunked Transfer-Encoding): chooseBodyMode treats the header-ending
// blank line as the end of the message and never captures a body, the
// same "assume no body for now" behavior as the original C parser.
func TestConnectionClose(t *testing.T) {
	p := New()
	raw := []byte("HTTP/1.1 500 Internal Server Error\r\nConnection: close\r\n\r\nStatus: 500")
	st := feedAll(t, p, raw)
	if st != Done {
		t.Fatalf("status = %v", st)
	}
	if p.KeepAlive() {
		t.Fatal("expected KeepAlive() == false")
	}
	if len(p.Body()) != 0 {
		t.Fatalf("body = %q, want empty", p.Body())
	}
}

// TestEOFNoContentLength feeds a close-framed response in one shot. Feed
// itself reaches Done as soon as the blank line ends the headers, before
// "partial-body" is ever consumed, so HandleEOF's Done case is reached
// trivially and the body stays empty.
func TestEOFNoContentLength(t *testing.T) {
	p := New()
	p.Feed([]byte("HTTP/1.1 200 OK\r\n\r\npartial-body"))
	if st := p.HandleEOF(); st != Done {
		t.Fatalf("HandleEOF = %v, want Done", st)
	}
	if len(p.Body()) != 0 {
		t.Fatalf("body = %q, want empty", p.Body())
	}
}

func TestEOFMidIdentityBodyIsError(t *testing.T) {
	p := New()
	p.Feed([]byte("HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\n"))
	if st := p.HandleEOF(); st != Error {
		t.Fatalf("HandleEOF = %v, want Error", st)
	}
}

func TestResetAllowsReuse(t *testing.T) {
	p := New()
	feedAll(t, p, []byte("HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nhi"))
	p.Reset()
	if st := feedAll(t, p, []byte("HTTP/1.1 404 Not Found\r\nContent-Length: 0\r\n\r\n")); st != Done {
		t.Fatalf("status after reset = %v", st)
	}
	if p.StatusCode != 404 {
		t.Fatalf("code after reset = %d", p.StatusCode)
	}
}

func TestDoneIsSticky(t *testing.T) {
	p := New()
	feedAll(t, p, []byte("HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n"))
	if st := p.Feed([]byte("garbage")); st != Done {
		t.Fatalf("Feed after Done = %v, want Done", st)
	}
}

func TestHeaderLimitDropsExtras(t *testing.T) {
	p := New()
	var raw bytes.Buffer
	raw.WriteString("HTTP/1.1 200 OK\r\n")
	for i := 0; i < 70; i++ {
		raw.WriteString("X-N: v\r\n")
	}
	raw.WriteString("Content-Length: 0\r\n\r\n")
	if st := feedAll(t, p, raw.Bytes()); st != Done {
		t.Fatalf("status = %v", st)
	}
	if p.numHeaders != maxHeaders {
		t.Fatalf("numHeaders = %d, want %d", p.numHeaders, maxHeaders)
	}
}
