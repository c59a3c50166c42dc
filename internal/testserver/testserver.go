// File: internal/testserver/testserver.go
// Author: momentics <momentics@gmail.com>
//
// Package testserver is the minimal HTTP server spec.md §1/§8 describes
// as "used for the test suite only" and explicitly out of scope for the
// core itself — it exists purely so worker/script/cmd tests can drive
// the real state machine against the exact endpoints spec.md §8's
// end-to-end scenarios name, instead of hand-rolled raw-socket fixtures
// in every package. Built on net/http, never on this module's own
// reactor — the core never serves HTTP, only generates load against it.
package testserver

import (
	"fmt"
	"io"
	"net"
	"net/http"
)

// Server wraps a net/http.Server bound to an ephemeral loopback port.
type Server struct {
	ln  net.Listener
	srv *http.Server
}

// Start launches the server and returns once it's accepting
// connections. Call Close to shut it down.
func Start() (*Server, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("testserver: listen: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/chunked", handleChunked)
	mux.HandleFunc("/status/500", handleStatus500)
	mux.HandleFunc("/echo", handleEcho)

	srv := &http.Server{Handler: mux}
	s := &Server{ln: ln, srv: srv}
	go srv.Serve(ln)
	return s, nil
}

// Addr returns "host:port" for the listening socket.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// URL returns "http://host:port".
func (s *Server) URL() string { return "http://" + s.Addr() }

// Close stops accepting and closes the listener.
func (s *Server) Close() error {
	return s.srv.Close()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "OK")
}

func handleChunked(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	for _, chunk := range []string{"Hello, ", "chunked ", "world!"} {
		io.WriteString(w, chunk)
		if ok {
			flusher.Flush()
		}
	}
}

func handleStatus500(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusInternalServerError)
	io.WriteString(w, "Status: 500")
}

func handleEcho(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
